// Package venue defines the common abstraction over external trading
// venues. The reconciler only ever talks to venues through this interface,
// so new backends (Binance, Gate, paper) plug in without touching the
// core loop.
package venue

import "time"

// Ticker is the normalized quote used for mark-price resolution.
type Ticker struct {
	Symbol    string
	Last      float64
	Bid       float64
	Ask       float64
	UpdatedAt time.Time
}

// Order is a normalized open-order row as reported by a venue.
type Order struct {
	ID       string
	Symbol   string
	Side     string  // "buy" or "sell"
	Amount   float64 // requested quantity
	Filled   float64 // executed quantity
	Status   string  // venue status, lowercased ("open", "filled", "closed", ...)
	Price    float64 // limit price, 0 for market
	Average  float64 // average fill price, 0 when nothing executed
	RefPrice float64 // reference price at submission, for slippage; 0 if unknown
}

// FillDetected reports whether the order counts as a fill: terminal status
// or executed quantity within 1% of the requested amount.
func (o Order) FillDetected() bool {
	switch o.Status {
	case "filled", "closed":
		return true
	}
	return o.Filled > 0 && o.Amount > 0 && o.Filled >= o.Amount*0.99
}

// FillPrice is the price a detected fill executed at, preferring the
// venue-reported average over the limit price.
func (o Order) FillPrice() float64 {
	if o.Average > 0 {
		return o.Average
	}
	return o.Price
}

// Position is a normalized open position as reported by a venue.
type Position struct {
	Symbol   string
	Side     string // "long" or "short"
	Size     float64
	AvgPrice float64
}

// Capabilities lists the optional parts of the adapter surface a venue
// actually implements. Explicit flags, not runtime probing.
type Capabilities struct {
	Positions bool // GetOpenPositions returns real data
	Ping      bool // PingTransport is meaningful
}
