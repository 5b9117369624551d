package risk

// Parameters holds the immutable-after-construction risk limits.
// Fractions are of current balance unless noted.
type Parameters struct {
	MaxPositionFraction   float64 `json:"max_position_fraction"`   // max fraction of balance per position
	MaxDailyLossFraction  float64 `json:"max_daily_loss_fraction"` // daily loss limit
	StopLossFraction      float64 `json:"stop_loss_fraction"`
	TakeProfitFraction    float64 `json:"take_profit_fraction"`
	MaxOpenPositions      int     `json:"max_open_positions"`
	MinRiskReward         float64 `json:"min_risk_reward"`
	MaxCorrelatedExposure float64 `json:"max_correlated_exposure"`
	EmergencyStopFraction float64 `json:"emergency_stop_fraction"` // of initial balance
	VolatilityAdjustment  bool    `json:"volatility_adjustment"`
	PaperTrading          bool    `json:"paper_trading"`
}

// DefaultParameters mirrors the limits the bot has always shipped with:
// 5% per position, 2% daily loss, 2%/6% stop/take, 3 concurrent positions,
// emergency stop at 10% drawdown.
func DefaultParameters() Parameters {
	return Parameters{
		MaxPositionFraction:   0.05,
		MaxDailyLossFraction:  0.02,
		StopLossFraction:      0.02,
		TakeProfitFraction:    0.06,
		MaxOpenPositions:      3,
		MinRiskReward:         2.0,
		MaxCorrelatedExposure: 0.3,
		EmergencyStopFraction: 0.10,
		VolatilityAdjustment:  true,
		PaperTrading:          false,
	}
}
