// Package risk implements the in-memory risk ledger: balance and daily PnL
// tracking, the open-position registry, position sizing and trade
// validation against configured limits, and a bounded audit event log.
//
// Every operation, reads included, runs under one exclusive lock so a
// caller never observes a half-applied mutation. The ledger holds no
// durable state; it is rebuilt from venue truth on every run.
package risk

import (
	"math"
	"sync"
	"time"

	"zeus/internal/logger"
	"zeus/internal/pkg/rolling"
)

const (
	eventLogCapacity = 1000
	historyCapacity  = 1000

	// balance changes below this fraction of balance are not audit-logged
	balanceEventFloor = 0.001
)

// OpenPosition is one entry in the ledger's symbol-keyed registry. The
// ledger is venue-agnostic; venue scoping lives in the reconciler cache.
type OpenPosition struct {
	Symbol     string            `json:"symbol"`
	Side       string            `json:"side"` // "long"/"buy" or "short"/"sell"
	Quantity   float64           `json:"quantity"`
	EntryPrice float64           `json:"entry_price"`
	EntryTime  time.Time         `json:"entry_time"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// HistoryEntry records a position open or close for the bounded history.
type HistoryEntry struct {
	Symbol      string    `json:"symbol"`
	Action      string    `json:"action"` // "open" or "close"
	Side        string    `json:"side"`
	Quantity    float64   `json:"quantity"`
	EntryPrice  float64   `json:"entry_price"`
	ExitPrice   float64   `json:"exit_price,omitempty"`
	RealizedPnL float64   `json:"realized_pnl,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// CorrelationAdjuster scales the per-trade risk budget by correlated
// exposure for a symbol. The default reports 1.0 (no correlation data).
type CorrelationAdjuster func(symbol string) float64

type Ledger struct {
	mu sync.Mutex

	params         Parameters
	initialBalance float64
	balance        float64
	dailyPnL       float64
	open           map[string]OpenPosition
	history        *rolling.Ring[HistoryEntry]
	events         *rolling.Ring[Event]
	lastUpdate     time.Time

	correlation CorrelationAdjuster
	sink        EventSink
}

// Option configures optional ledger collaborators.
type Option func(*Ledger)

// WithEventSink forwards every audit event to sink.
func WithEventSink(sink EventSink) Option {
	return func(l *Ledger) { l.sink = sink }
}

// WithCorrelationAdjuster overrides the default no-op exposure adjustment.
func WithCorrelationAdjuster(fn CorrelationAdjuster) Option {
	return func(l *Ledger) { l.correlation = fn }
}

func NewLedger(initialBalance float64, params Parameters, opts ...Option) *Ledger {
	l := &Ledger{
		params:         params,
		initialBalance: initialBalance,
		balance:        initialBalance,
		open:           make(map[string]OpenPosition),
		history:        rolling.NewRing[HistoryEntry](historyCapacity),
		events:         rolling.NewRing[Event](eventLogCapacity),
		lastUpdate:     time.Now(),
		correlation:    func(string) float64 { return 1.0 },
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Ledger) Params() Parameters {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.params
}

// SizePosition converts the configured risk budget into units for a trade
// with the given entry and stop. A zero price risk (entry == stop) means
// the risk is undefined and sizing refuses with 0. Volatility <= 0 means
// no volatility estimate is available.
func (l *Ledger) SizePosition(symbol string, entryPrice, stopPrice, volatility float64) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	if entryPrice <= 0 {
		return 0
	}
	riskPerTrade := l.balance * l.params.MaxPositionFraction
	priceRisk := math.Abs(entryPrice-stopPrice) / entryPrice
	if priceRisk == 0 {
		return 0
	}

	volatilityFactor := 1.0
	if l.params.VolatilityAdjustment && volatility > 0 {
		// high-volatility assets get a smaller budget, floored at half
		volatilityFactor = math.Max(0.5, 1.0-volatility*2)
		riskPerTrade *= volatilityFactor
	}

	correlationAdjust := l.correlation(symbol)
	riskPerTrade *= correlationAdjust

	positionValue := riskPerTrade / priceRisk
	maxValue := l.balance * l.params.MaxPositionFraction
	size := math.Min(positionValue, maxValue) / entryPrice

	l.logEvent(EventPositionSizing, map[string]any{
		"symbol":                 symbol,
		"calculated_size":        size,
		"volatility_factor":      volatilityFactor,
		"correlation_adjustment": correlationAdjust,
	})
	return size
}

// MarketFlags carry advisory market-condition hints into validation.
type MarketFlags struct {
	HighVolatility bool
	LowLiquidity   bool
}

// ValidationResult is a decision value, never an error: callers branch on
// Valid and surface Reasons as-is.
type ValidationResult struct {
	Valid   bool     `json:"valid"`
	Reasons []string `json:"reasons"`
}

// ValidateTrade evaluates the hard risk limits for a hypothetical trade.
// Market flags append advisory reasons without invalidating the trade.
func (l *Ledger) ValidateTrade(symbol, side string, quantity, price float64, flags MarketFlags) ValidationResult {
	l.mu.Lock()
	defer l.mu.Unlock()

	res := ValidationResult{Valid: true, Reasons: []string{}}

	if decimalLTE(l.dailyPnL, -l.balance*l.params.MaxDailyLossFraction) {
		res.Valid = false
		res.Reasons = append(res.Reasons, "daily loss limit reached")
	}

	totalLoss := (l.initialBalance - l.balance) / l.initialBalance
	if decimalGTE(totalLoss, l.params.EmergencyStopFraction) {
		res.Valid = false
		res.Reasons = append(res.Reasons, "emergency stop loss triggered")
	}

	if len(l.open) >= l.params.MaxOpenPositions {
		res.Valid = false
		res.Reasons = append(res.Reasons, "maximum open positions reached")
	}

	maxValue := l.balance * l.params.MaxPositionFraction
	if decimalGT(quantity*price, maxValue) {
		res.Valid = false
		res.Reasons = append(res.Reasons, "position size exceeds limit")
	}

	if flags.HighVolatility {
		res.Reasons = append(res.Reasons, "high volatility detected - proceed with caution")
	}
	if flags.LowLiquidity {
		res.Reasons = append(res.Reasons, "low liquidity detected")
	}

	l.logEvent(EventTradeValidation, map[string]any{
		"symbol":   symbol,
		"side":     side,
		"quantity": quantity,
		"price":    price,
		"valid":    res.Valid,
		"reasons":  res.Reasons,
	})
	return res
}

// Levels is a computed stop-loss / take-profit pair.
type Levels struct {
	StopLoss   float64 `json:"stop_loss"`
	TakeProfit float64 `json:"take_profit"`
	RiskReward float64 `json:"risk_reward_ratio"`
}

// StopTakeLevels derives stop/take prices from the configured fractions,
// widened for volatile assets when volatility adjustment is on.
func (l *Ledger) StopTakeLevels(entryPrice float64, side string, volatility float64) Levels {
	l.mu.Lock()
	defer l.mu.Unlock()

	stopFrac := l.params.StopLossFraction
	takeFrac := l.params.TakeProfitFraction
	if l.params.VolatilityAdjustment && volatility > 0 {
		mult := 1 + volatility*0.5
		stopFrac *= mult
		takeFrac *= mult
	}

	var lv Levels
	if isLong(side) {
		lv.StopLoss = entryPrice * (1 - stopFrac)
		lv.TakeProfit = entryPrice * (1 + takeFrac)
	} else {
		lv.StopLoss = entryPrice * (1 + stopFrac)
		lv.TakeProfit = entryPrice * (1 - takeFrac)
	}
	lv.RiskReward = takeFrac / stopFrac
	return lv
}

// UpdateBalance applies a fresh balance reading, accumulating the delta
// into daily PnL. Sub-0.1% changes skip the audit log to keep it quiet.
func (l *Ledger) UpdateBalance(newBalance float64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	change := newBalance - l.balance
	oldBalance := l.balance
	l.dailyPnL += change
	l.balance = newBalance
	l.lastUpdate = time.Now()

	if math.Abs(change) > l.balance*balanceEventFloor {
		l.logEvent(EventBalanceUpdate, map[string]any{
			"old_balance": oldBalance,
			"new_balance": newBalance,
			"pnl_change":  change,
			"daily_pnl":   l.dailyPnL,
		})
	}
	logger.Debugf("risk: balance=%.2f daily_pnl=%.2f", l.balance, l.dailyPnL)
}

// AddPosition registers an open position in the symbol-keyed registry.
func (l *Ledger) AddPosition(symbol, side string, quantity, entryPrice float64, metadata map[string]string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	pos := OpenPosition{
		Symbol:     symbol,
		Side:       side,
		Quantity:   quantity,
		EntryPrice: entryPrice,
		EntryTime:  time.Now(),
		Metadata:   metadata,
	}
	l.open[symbol] = pos
	l.history.Push(HistoryEntry{
		Symbol:     symbol,
		Action:     "open",
		Side:       side,
		Quantity:   quantity,
		EntryPrice: entryPrice,
		Timestamp:  pos.EntryTime,
	})
}

// RemovePosition drops a position from the registry. A positive exitPrice
// realizes PnL into the history; zero means the exit price is unknown
// (e.g. closed externally) and only the removal is recorded.
func (l *Ledger) RemovePosition(symbol string, exitPrice float64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	pos, ok := l.open[symbol]
	if !ok {
		return
	}
	delete(l.open, symbol)

	entry := HistoryEntry{
		Symbol:     symbol,
		Action:     "close",
		Side:       pos.Side,
		Quantity:   pos.Quantity,
		EntryPrice: pos.EntryPrice,
		Timestamp:  time.Now(),
	}
	if exitPrice > 0 {
		entry.ExitPrice = exitPrice
		entry.RealizedPnL = (exitPrice - pos.EntryPrice) * pos.Quantity * direction(pos.Side)
	}
	l.history.Push(entry)
}

// ResetDailyMetrics zeroes the daily PnL accumulator, e.g. at UTC rollover.
func (l *Ledger) ResetDailyMetrics() {
	l.mu.Lock()
	defer l.mu.Unlock()

	previous := l.dailyPnL
	l.dailyPnL = 0
	l.logEvent(EventDailyReset, map[string]any{"previous_daily_pnl": previous})
	logger.Infof("risk: daily metrics reset (previous daily_pnl=%.2f)", previous)
}

func isLong(side string) bool {
	switch side {
	case "long", "buy":
		return true
	}
	return false
}

func direction(side string) float64 {
	if isLong(side) {
		return 1
	}
	return -1
}
