package risk

import "time"

// Metrics is a point-in-time snapshot of the ledger, taken atomically.
type Metrics struct {
	CurrentBalance  float64   `json:"current_balance"`
	DailyPnL        float64   `json:"daily_pnl"`
	DailyPnLPct     float64   `json:"daily_pnl_percentage"`
	TotalPnLPct     float64   `json:"total_pnl_percentage"`
	OpenPositions   int       `json:"open_positions"`
	RiskUtilization float64   `json:"risk_utilization"` // open/max * 100
	TotalExposure   float64   `json:"total_exposure"`   // sum of qty*entry
	ExposureRatio   float64   `json:"exposure_ratio"`   // exposure/balance
	ExposurePct     float64   `json:"exposure_pct"`     // exposure ratio * 100
	PaperTrading    bool      `json:"paper_trading_mode"`
	LastUpdate      time.Time `json:"last_update"`
}

// Metrics computes the snapshot under the ledger lock; cheap enough to
// call every cycle and from the HTTP surface.
func (l *Ledger) Metrics() Metrics {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.metricsLocked()
}

func (l *Ledger) metricsLocked() Metrics {
	var exposure float64
	for _, pos := range l.open {
		exposure += pos.Quantity * pos.EntryPrice
	}
	exposureRatio := 0.0
	if l.balance > 0 {
		exposureRatio = exposure / l.balance
	}
	utilization := 0.0
	if l.params.MaxOpenPositions > 0 {
		utilization = float64(len(l.open)) / float64(l.params.MaxOpenPositions) * 100
	}
	return Metrics{
		CurrentBalance:  l.balance,
		DailyPnL:        l.dailyPnL,
		DailyPnLPct:     l.dailyPnL / l.initialBalance * 100,
		TotalPnLPct:     (l.balance - l.initialBalance) / l.initialBalance * 100,
		OpenPositions:   len(l.open),
		RiskUtilization: utilization,
		TotalExposure:   exposure,
		ExposureRatio:   exposureRatio,
		ExposurePct:     exposureRatio * 100,
		PaperTrading:    l.params.PaperTrading,
		LastUpdate:      l.lastUpdate,
	}
}

// OpenPositionSnapshot lists the registry contents, copied out under the
// lock for the diagnostics endpoints.
func (l *Ledger) OpenPositionSnapshot() []OpenPosition {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]OpenPosition, 0, len(l.open))
	for _, pos := range l.open {
		out = append(out, pos)
	}
	return out
}
