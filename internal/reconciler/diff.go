package reconciler

import (
	"context"
	"time"

	"zeus/internal/logger"
	"zeus/internal/venue"
)

type remotePos struct {
	side     string
	size     float64
	avgPrice float64
}

// reconcile diffs each successfully fetched venue against the local cache,
// applies add/update/remove to both the cache and the risk ledger, and
// returns the fills detected from this cycle's order data.
func (r *Reconciler) reconcile(ctx context.Context, remote map[string]venueState) []fill {
	var detected []fill
	for name, state := range remote {
		remoteMap := buildRemoteMap(state.positions)
		detected = append(detected, r.detectFills(name, state.orders)...)
		r.applyPositions(ctx, name, remoteMap)
		r.dropClosed(name, remoteMap)
	}
	return detected
}

// buildRemoteMap indexes remote positions by symbol, skipping zero-size
// entries so a flat position never creates a cache entry.
func buildRemoteMap(positions []venue.Position) map[string]remotePos {
	out := make(map[string]remotePos, len(positions))
	for _, p := range positions {
		if p.Symbol == "" || p.Size == 0 {
			continue
		}
		out[p.Symbol] = remotePos{side: p.Side, size: p.Size, avgPrice: p.AvgPrice}
	}
	return out
}

// detectFills counts order events and collects (fill price, reference
// price) pairs for the slippage metric.
func (r *Reconciler) detectFills(venueName string, orders []venue.Order) []fill {
	var fills []fill
	var orderSeen, fillSeen int64
	for _, o := range orders {
		if o.Symbol == "" || o.Amount <= 0 {
			continue
		}
		orderSeen++
		if !o.FillDetected() || o.Filled <= 0 {
			continue
		}
		fillSeen++
		ref := o.RefPrice
		if ref == 0 {
			ref = o.Price
		}
		fills = append(fills, fill{
			venue:    venueName,
			symbol:   o.Symbol,
			side:     o.Side,
			size:     o.Filled,
			price:    o.FillPrice(),
			refPrice: ref,
		})
	}
	r.mu.Lock()
	r.orderEvents += orderSeen
	r.fillEvents += fillSeen
	r.mu.Unlock()
	return fills
}

// applyPositions upserts every remote position into the cache, registering
// new (venue, symbol) keys with the risk ledger.
func (r *Reconciler) applyPositions(ctx context.Context, venueName string, remoteMap map[string]remotePos) {
	for symbol, rp := range remoteMap {
		mark := r.resolveMarkPrice(ctx, venueName, symbol, rp.avgPrice)
		unreal := (mark - rp.avgPrice) * rp.size * sideDirection(rp.side)

		key := posKey{venue: venueName, symbol: symbol}
		r.mu.Lock()
		pos, ok := r.cache[key]
		if !ok {
			r.cache[key] = &Position{
				Symbol:        symbol,
				Side:          rp.side,
				Size:          rp.size,
				AvgPrice:      rp.avgPrice,
				UnrealizedPnL: unreal,
				Venue:         venueName,
				UpdatedAt:     time.Now(),
			}
			r.mu.Unlock()
			r.ledger.AddPosition(symbol, rp.side, rp.size, rp.avgPrice, map[string]string{"venue": venueName})
			logger.Infof("reconciler: new position venue=%s symbol=%s side=%s size=%.6f avg=%.4f",
				venueName, symbol, rp.side, rp.size, rp.avgPrice)
			continue
		}
		pos.Side = rp.side
		pos.Size = rp.size
		pos.AvgPrice = rp.avgPrice
		pos.UnrealizedPnL = unreal
		pos.UpdatedAt = time.Now()
		r.mu.Unlock()
	}
}

// dropClosed treats cached (venue, symbol) keys absent from this cycle's
// remote map as externally closed: removed from the cache and from the
// ledger, exactly once.
func (r *Reconciler) dropClosed(venueName string, remoteMap map[string]remotePos) {
	var closed []string
	r.mu.Lock()
	for key := range r.cache {
		if key.venue != venueName {
			continue
		}
		if _, still := remoteMap[key.symbol]; !still {
			delete(r.cache, key)
			closed = append(closed, key.symbol)
		}
	}
	r.mu.Unlock()

	for _, symbol := range closed {
		r.ledger.RemovePosition(symbol, 0)
		logger.Infof("reconciler: position closed externally venue=%s symbol=%s", venueName, symbol)
	}
}

// resolveMarkPrice asks the venue for a ticker and falls back to the
// position's own average price when the lookup fails or returns nothing.
func (r *Reconciler) resolveMarkPrice(ctx context.Context, venueName, symbol string, fallback float64) float64 {
	ad := r.adapterByName(venueName)
	if ad == nil {
		return fallback
	}
	tkr, err := callWithTimeout(ctx, r.callTimeout, func(cctx context.Context) (venue.Ticker, error) {
		return ad.GetTicker(cctx, symbol)
	})
	if err != nil || tkr.Last <= 0 {
		return fallback
	}
	return tkr.Last
}

func (r *Reconciler) adapterByName(name string) venue.Adapter {
	for _, ad := range r.venues {
		if ad.Name() == name {
			return ad
		}
	}
	return nil
}

// updateSlippage blends the batch-average absolute slippage into the
// running value with exponential smoothing, seeding directly from the
// first batch.
func (r *Reconciler) updateSlippage(fills []fill) {
	var sum float64
	var n int
	for _, f := range fills {
		if f.refPrice == 0 || f.price == 0 {
			continue
		}
		bps := (f.price - f.refPrice) / f.refPrice * 10000
		if bps < 0 {
			bps = -bps
		}
		sum += bps
		n++
	}
	if n == 0 {
		return
	}
	batch := sum / float64(n)

	r.mu.Lock()
	if r.slippageBps == 0 {
		r.slippageBps = batch
	} else {
		r.slippageBps = (1-slippageAlpha)*r.slippageBps + slippageAlpha*batch
	}
	r.mu.Unlock()
}

func sideDirection(side string) float64 {
	switch side {
	case "long", "buy":
		return 1
	}
	return -1
}
