package config

import (
	"time"

	"zeus/internal/risk"
)

// Config is the main configuration carrier for the bot.
type Config struct {
	App        AppConfig        `toml:"app"`
	Risk       RiskConfig       `toml:"risk"`
	Reconciler ReconcilerConfig `toml:"reconciler"`
	Venues     VenuesConfig     `toml:"venues"`
	Audit      AuditConfig      `toml:"audit"`
}

type AppConfig struct {
	Env      string `toml:"env"`
	LogLevel string `toml:"log_level"`
	HTTPAddr string `toml:"http_addr"`
	LogPath  string `toml:"log_path"`
}

// RiskConfig mirrors risk.Parameters plus the starting balance.
type RiskConfig struct {
	InitialBalance        float64 `toml:"initial_balance"`
	MaxPositionPct        float64 `toml:"max_position_pct"`   // 0~1
	MaxDailyLossPct       float64 `toml:"max_daily_loss_pct"` // 0~1
	StopLossPct           float64 `toml:"stop_loss_pct"`
	TakeProfitPct         float64 `toml:"take_profit_pct"`
	MaxOpenPositions      int     `toml:"max_open_positions"`
	MinRiskReward         float64 `toml:"min_risk_reward"`
	MaxCorrelatedExposure float64 `toml:"max_correlated_exposure"`
	EmergencyStopPct      float64 `toml:"emergency_stop_pct"`
	VolatilityAdjustment  bool    `toml:"volatility_adjustment"`
	PaperTrading          bool    `toml:"paper_trading"`
}

// Parameters converts the config block into the ledger's parameter set.
func (r RiskConfig) Parameters() risk.Parameters {
	return risk.Parameters{
		MaxPositionFraction:   r.MaxPositionPct,
		MaxDailyLossFraction:  r.MaxDailyLossPct,
		StopLossFraction:      r.StopLossPct,
		TakeProfitFraction:    r.TakeProfitPct,
		MaxOpenPositions:      r.MaxOpenPositions,
		MinRiskReward:         r.MinRiskReward,
		MaxCorrelatedExposure: r.MaxCorrelatedExposure,
		EmergencyStopFraction: r.EmergencyStopPct,
		VolatilityAdjustment:  r.VolatilityAdjustment,
		PaperTrading:          r.PaperTrading,
	}
}

type ReconcilerConfig struct {
	PollIntervalSeconds    float64 `toml:"poll_interval_seconds"`
	CallTimeoutSeconds     float64 `toml:"call_timeout_seconds"`
	LatencyWindow          int     `toml:"latency_window"`
	BreakerThreshold       int     `toml:"breaker_threshold"`
	BreakerCooldownSeconds int     `toml:"breaker_cooldown_seconds"`
}

func (r ReconcilerConfig) PollInterval() time.Duration {
	return time.Duration(r.PollIntervalSeconds * float64(time.Second))
}

func (r ReconcilerConfig) CallTimeout() time.Duration {
	return time.Duration(r.CallTimeoutSeconds * float64(time.Second))
}

func (r ReconcilerConfig) BreakerCooldown() time.Duration {
	return time.Duration(r.BreakerCooldownSeconds) * time.Second
}

type VenuesConfig struct {
	Binance BinanceConfig `toml:"binance"`
}

type BinanceConfig struct {
	Enabled        bool   `toml:"enabled"`
	Name           string `toml:"name"`
	APIKey         string `toml:"api_key"`
	SecretKey      string `toml:"secret_key"`
	RESTBaseURL    string `toml:"rest_base_url"`
	Testnet        bool   `toml:"testnet"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

type AuditConfig struct {
	Enabled bool   `toml:"enabled"`
	DBPath  string `toml:"db_path"`
}
