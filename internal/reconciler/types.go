package reconciler

import (
	"time"

	"zeus/internal/risk"
)

// Position is the reconciler's venue-scoped view of one open position,
// keyed by (venue, symbol). At most one entry per key; size is strictly
// positive for any cached entry.
type Position struct {
	Symbol        string    `json:"symbol"`
	Side          string    `json:"side"` // "long" or "short"
	Size          float64   `json:"size"`
	AvgPrice      float64   `json:"avg_price"`
	UnrealizedPnL float64   `json:"unrealized_pnl"`
	RealizedPnL   float64   `json:"realized_pnl"`
	Venue         string    `json:"venue"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type posKey struct {
	venue  string
	symbol string
}

// RiskTracker is the slice of the risk ledger the reconciler mutates.
// Implementations never fail for normal flow control.
type RiskTracker interface {
	AddPosition(symbol, side string, quantity, entryPrice float64, metadata map[string]string)
	RemovePosition(symbol string, exitPrice float64)
	Metrics() risk.Metrics
}

// TransportStatus is one venue's entry in the health snapshot's ws map.
// Status is "up", "down" or "unknown"; PingMs is nil when no ping is
// available.
type TransportStatus struct {
	Status string   `json:"status"`
	PingMs *float64 `json:"ping_ms"`
}

// HealthSnapshot is rebuilt wholesale every cycle and read-only to
// consumers. The JSON field names are fixed for dashboard compatibility.
type HealthSnapshot struct {
	Breaker     string                     `json:"breaker"` // "open" | "closed"
	WS          map[string]TransportStatus `json:"ws"`
	ExposurePct float64                    `json:"exposicion_pct"`
	SlippageBps float64                    `json:"slippage_bps"`
	LatencyMs   float64                    `json:"latencia_ms"`
	FillRate    float64                    `json:"fill_rate"`
	LastError   *string                    `json:"ultimo_error"`
}

// fill is one detected fill with its slippage reference price.
type fill struct {
	venue    string
	symbol   string
	side     string
	size     float64
	price    float64
	refPrice float64
}
