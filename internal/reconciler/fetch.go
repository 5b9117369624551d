package reconciler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"zeus/internal/logger"
	"zeus/internal/venue"
)

// venueState is one venue's contribution to a cycle. Venues whose fetch
// failed are absent from the remote map entirely, leaving their cached
// positions untouched (stale rather than wrongly closed).
type venueState struct {
	positions []venue.Position
	orders    []venue.Order
}

// fetchRemote queries every venue concurrently and waits for all of them,
// bounding cycle latency to the slowest venue plus the per-call timeout.
func (r *Reconciler) fetchRemote(ctx context.Context) map[string]venueState {
	remote := make(map[string]venueState, len(r.venues))
	var remoteMu sync.Mutex

	group, gctx := errgroup.WithContext(ctx)
	for _, ad := range r.venues {
		ad := ad
		group.Go(func() error {
			state, status, err := r.fetchVenue(gctx, ad)
			r.mu.Lock()
			r.wsStatus[ad.Name()] = status
			r.mu.Unlock()
			if err != nil {
				r.setLastError(fmt.Errorf("%s: %w", ad.Name(), err))
				logger.Warnf("reconciler: fetch failed venue=%s err=%v", ad.Name(), err)
				// fail-soft: degrade this venue only
				return nil
			}
			remoteMu.Lock()
			remote[ad.Name()] = state
			remoteMu.Unlock()
			return nil
		})
	}
	_ = group.Wait()
	return remote
}

// fetchVenue gathers positions, open orders and an optional transport ping
// from one venue, recording the wall-clock round trip for the latency
// window.
func (r *Reconciler) fetchVenue(ctx context.Context, ad venue.Adapter) (venueState, TransportStatus, error) {
	caps := ad.Capabilities()
	start := time.Now()

	var state venueState
	var err error
	if caps.Positions {
		state.positions, err = callWithTimeout(ctx, r.callTimeout, func(cctx context.Context) ([]venue.Position, error) {
			return ad.GetOpenPositions(cctx)
		})
		if err != nil {
			return venueState{}, TransportStatus{Status: "down"}, err
		}
	}

	state.orders, err = callWithTimeout(ctx, r.callTimeout, func(cctx context.Context) ([]venue.Order, error) {
		return ad.GetOpenOrders(cctx)
	})
	if err != nil {
		return venueState{}, TransportStatus{Status: "down"}, err
	}

	status := TransportStatus{Status: "unknown"}
	if caps.Ping {
		rtt, pingErr := callWithTimeout(ctx, r.callTimeout, func(cctx context.Context) (time.Duration, error) {
			return ad.PingTransport(cctx)
		})
		if pingErr != nil {
			status = TransportStatus{Status: "down"}
			logger.Warnf("reconciler: transport ping failed venue=%s err=%v", ad.Name(), pingErr)
		} else {
			ms := float64(rtt) / float64(time.Millisecond)
			status = TransportStatus{Status: "up", PingMs: &ms}
		}
	}

	elapsed := float64(time.Since(start)) / float64(time.Millisecond)
	r.mu.Lock()
	r.latency.Push(elapsed)
	r.mu.Unlock()

	return state, status, nil
}

// callWithTimeout wraps a single venue call with the configured budget; a
// timeout is reported as an ordinary transport error for that venue only.
func callWithTimeout[T any](ctx context.Context, budget time.Duration, call func(context.Context) (T, error)) (T, error) {
	cctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()
	return call(cctx)
}
