package venue

import (
	"context"
	"time"
)

// Adapter is the capability set a venue exposes to the reconciler.
// GetTicker and GetOpenOrders are required; the optional calls are gated
// by Capabilities and must still be safe to invoke (return empty / zero)
// when unsupported.
type Adapter interface {
	Name() string
	Capabilities() Capabilities

	GetTicker(ctx context.Context, symbol string) (Ticker, error)
	GetOpenOrders(ctx context.Context) ([]Order, error)

	// GetOpenPositions returns the venue's open positions, or an empty
	// slice when Capabilities().Positions is false.
	GetOpenPositions(ctx context.Context) ([]Position, error)

	// PingTransport measures a transport round trip. Venues without a
	// cheap ping report Capabilities().Ping=false and are shown with
	// unknown status rather than down.
	PingTransport(ctx context.Context) (time.Duration, error)
}
