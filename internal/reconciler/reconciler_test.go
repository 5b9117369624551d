package reconciler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zeus/internal/pkg/circuit"
	"zeus/internal/risk"
	"zeus/internal/venue"
)

type fakeLedger struct {
	mu       sync.Mutex
	adds     []string
	removes  []string
	exposure float64
}

func (f *fakeLedger) AddPosition(symbol, side string, quantity, entryPrice float64, metadata map[string]string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.adds = append(f.adds, symbol)
}

func (f *fakeLedger) RemovePosition(symbol string, exitPrice float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removes = append(f.removes, symbol)
}

func (f *fakeLedger) Metrics() risk.Metrics {
	f.mu.Lock()
	defer f.mu.Unlock()
	return risk.Metrics{ExposurePct: f.exposure}
}

type fakeVenue struct {
	name string
	caps venue.Capabilities

	mu           sync.Mutex
	positions    []venue.Position
	orders       []venue.Order
	ticker       venue.Ticker
	tickerErr    error
	positionsErr error
	ordersErr    error
	pingRTT      time.Duration
	pingErr      error
}

func newFakeVenue(name string) *fakeVenue {
	return &fakeVenue{
		name:    name,
		caps:    venue.Capabilities{Positions: true, Ping: true},
		pingRTT: 3 * time.Millisecond,
	}
}

func (f *fakeVenue) Name() string                     { return f.name }
func (f *fakeVenue) Capabilities() venue.Capabilities { return f.caps }

func (f *fakeVenue) GetTicker(ctx context.Context, symbol string) (venue.Ticker, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ticker, f.tickerErr
}

func (f *fakeVenue) GetOpenOrders(ctx context.Context) ([]venue.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.orders, f.ordersErr
}

func (f *fakeVenue) GetOpenPositions(ctx context.Context) ([]venue.Position, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.positions, f.positionsErr
}

func (f *fakeVenue) PingTransport(ctx context.Context) (time.Duration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pingRTT, f.pingErr
}

func (f *fakeVenue) set(fn func(*fakeVenue)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func newTestReconciler(ledger RiskTracker, venues ...venue.Adapter) *Reconciler {
	return New(ledger, venues, nil, Config{
		PollInterval: 10 * time.Millisecond,
		CallTimeout:  time.Second,
	})
}

func TestRunCycle_NewPositionRegistration(t *testing.T) {
	ledger := &fakeLedger{}
	v := newFakeVenue("binance")
	v.positions = []venue.Position{{Symbol: "BTC/USDT", Side: "long", Size: 0.5, AvgPrice: 50000}}
	v.ticker = venue.Ticker{Symbol: "BTC/USDT", Last: 51000}

	r := newTestReconciler(ledger, v)
	r.RunCycle(context.Background())

	require.Equal(t, []string{"BTC/USDT"}, ledger.adds)
	assert.Empty(t, ledger.removes)

	positions := r.Positions()
	require.Len(t, positions, 1)
	assert.Equal(t, "binance", positions[0].Venue)
	assert.InDelta(t, (51000.0-50000.0)*0.5, positions[0].UnrealizedPnL, 1e-9)
}

func TestRunCycle_KeyUniqueness(t *testing.T) {
	ledger := &fakeLedger{}
	v := newFakeVenue("binance")
	v.positions = []venue.Position{{Symbol: "BTC/USDT", Side: "long", Size: 0.5, AvgPrice: 50000}}
	v.ticker = venue.Ticker{Last: 50000}

	r := newTestReconciler(ledger, v)
	for i := 0; i < 3; i++ {
		r.RunCycle(context.Background())
	}

	assert.Len(t, r.Positions(), 1)
	// only the first cycle registers with the ledger
	assert.Len(t, ledger.adds, 1)
}

func TestRunCycle_ReconciliationClosure(t *testing.T) {
	ledger := &fakeLedger{}
	v := newFakeVenue("binance")
	v.positions = []venue.Position{{Symbol: "BTC/USDT", Side: "long", Size: 0.5, AvgPrice: 50000}}
	v.ticker = venue.Ticker{Last: 50000}

	r := newTestReconciler(ledger, v)
	r.RunCycle(context.Background())
	require.Len(t, r.Positions(), 1)

	v.set(func(f *fakeVenue) { f.positions = nil })
	r.RunCycle(context.Background())

	assert.Empty(t, r.Positions())
	assert.Equal(t, []string{"BTC/USDT"}, ledger.removes)

	// a further cycle must not remove again
	r.RunCycle(context.Background())
	assert.Len(t, ledger.removes, 1)
}

func TestRunCycle_ZeroSizeSkipped(t *testing.T) {
	ledger := &fakeLedger{}
	v := newFakeVenue("binance")
	v.positions = []venue.Position{{Symbol: "BTC/USDT", Side: "long", Size: 0, AvgPrice: 50000}}

	r := newTestReconciler(ledger, v)
	r.RunCycle(context.Background())

	assert.Empty(t, r.Positions())
	assert.Empty(t, ledger.adds)
}

func TestRunCycle_MarkPriceFallback(t *testing.T) {
	ledger := &fakeLedger{}
	v := newFakeVenue("binance")
	v.positions = []venue.Position{{Symbol: "BTC/USDT", Side: "long", Size: 0.5, AvgPrice: 50000}}
	v.tickerErr = errors.New("ticker unavailable")

	r := newTestReconciler(ledger, v)
	r.RunCycle(context.Background())

	positions := r.Positions()
	require.Len(t, positions, 1)
	// mark falls back to avg price, so unrealized PnL is flat
	assert.InDelta(t, 0, positions[0].UnrealizedPnL, 1e-9)
}

func TestRunCycle_SlippageSmoothing(t *testing.T) {
	ledger := &fakeLedger{}
	v := newFakeVenue("binance")
	v.orders = []venue.Order{{
		ID: "1", Symbol: "BTC/USDT", Side: "buy",
		Amount: 1, Filled: 1, Status: "filled",
		Average: 100.10, RefPrice: 100, // 10 bps
	}}

	r := newTestReconciler(ledger, v)
	r.RunCycle(context.Background())
	assert.InDelta(t, 10, r.Health().SlippageBps, 1e-6)

	v.set(func(f *fakeVenue) {
		f.orders = []venue.Order{{
			ID: "2", Symbol: "BTC/USDT", Side: "buy",
			Amount: 1, Filled: 1, Status: "filled",
			Average: 100.20, RefPrice: 100, // 20 bps
		}}
	})
	r.RunCycle(context.Background())
	assert.InDelta(t, 12, r.Health().SlippageBps, 1e-6)
}

func TestRunCycle_FillRate(t *testing.T) {
	ledger := &fakeLedger{}
	v := newFakeVenue("binance")

	orders := make([]venue.Order, 0, 10)
	for i := 0; i < 6; i++ {
		orders = append(orders, venue.Order{
			ID: "f", Symbol: "BTC/USDT", Side: "buy",
			Amount: 1, Filled: 1, Status: "filled", Average: 100,
		})
	}
	for i := 0; i < 4; i++ {
		orders = append(orders, venue.Order{
			ID: "o", Symbol: "BTC/USDT", Side: "buy",
			Amount: 1, Filled: 0.5, Status: "open", Price: 100,
		})
	}
	v.orders = orders

	r := newTestReconciler(ledger, v)
	r.RunCycle(context.Background())

	assert.InDelta(t, 0.6, r.Health().FillRate, 1e-9)
}

func TestRunCycle_FailSoftFetch(t *testing.T) {
	ledger := &fakeLedger{exposure: 42}

	good := newFakeVenue("binance")
	good.positions = []venue.Position{{Symbol: "ETH/USDT", Side: "short", Size: 2, AvgPrice: 3000}}
	good.ticker = venue.Ticker{Last: 3000}

	bad := newFakeVenue("gate")
	bad.ordersErr = errors.New("connection refused")

	r := newTestReconciler(ledger, good, bad)
	r.RunCycle(context.Background())

	snap := r.Health()
	require.Contains(t, snap.WS, "binance")
	require.Contains(t, snap.WS, "gate")
	assert.Equal(t, "up", snap.WS["binance"].Status)
	assert.Equal(t, "down", snap.WS["gate"].Status)
	require.NotNil(t, snap.LastError)
	assert.Contains(t, *snap.LastError, "gate")
	assert.InDelta(t, 42, snap.ExposurePct, 1e-9)

	// the healthy venue still reconciled
	assert.Equal(t, []string{"ETH/USDT"}, ledger.adds)
}

func TestRunCycle_BreakerShortCircuits(t *testing.T) {
	ledger := &fakeLedger{}
	v := newFakeVenue("binance")
	v.positions = []venue.Position{{Symbol: "BTC/USDT", Side: "long", Size: 1, AvgPrice: 100}}

	breaker := circuit.NewBreaker("test", 5, time.Minute)
	breaker.Trip()

	r := New(ledger, []venue.Adapter{v}, breaker, Config{
		PollInterval: 10 * time.Millisecond,
		CallTimeout:  time.Second,
	})
	r.RunCycle(context.Background())

	snap := r.Health()
	assert.Equal(t, "open", snap.Breaker)
	assert.Empty(t, ledger.adds)

	breaker.Reset()
	r.RunCycle(context.Background())
	assert.Equal(t, "closed", r.Health().Breaker)
	assert.Len(t, ledger.adds, 1)
}

func TestRunCycle_BreakerKeepsExposure(t *testing.T) {
	ledger := &fakeLedger{exposure: 42}
	v := newFakeVenue("binance")
	v.positions = []venue.Position{{Symbol: "BTC/USDT", Side: "long", Size: 1, AvgPrice: 100}}
	v.ticker = venue.Ticker{Last: 100}

	breaker := circuit.NewBreaker("test", 5, time.Minute)
	r := New(ledger, []venue.Adapter{v}, breaker, Config{
		PollInterval: 10 * time.Millisecond,
		CallTimeout:  time.Second,
	})
	r.RunCycle(context.Background())
	require.InDelta(t, 42, r.Health().ExposurePct, 1e-9)

	// pausing the loop must not zero the exposure the operator watches
	breaker.Trip()
	r.RunCycle(context.Background())

	snap := r.Health()
	assert.Equal(t, "open", snap.Breaker)
	assert.InDelta(t, 42, snap.ExposurePct, 1e-9)
}

func TestRunCycle_PerCallTimeout(t *testing.T) {
	ledger := &fakeLedger{}
	v := &slowVenue{name: "binance", delay: 200 * time.Millisecond}

	r := New(ledger, []venue.Adapter{v}, nil, Config{
		PollInterval: 10 * time.Millisecond,
		CallTimeout:  20 * time.Millisecond,
	})

	start := time.Now()
	r.RunCycle(context.Background())
	elapsed := time.Since(start)

	assert.Less(t, elapsed, 150*time.Millisecond, "cycle must not wait out a stalled venue")
	snap := r.Health()
	assert.Equal(t, "down", snap.WS["binance"].Status)
	require.NotNil(t, snap.LastError)
}

func TestRunStop(t *testing.T) {
	ledger := &fakeLedger{}
	v := newFakeVenue("binance")
	r := newTestReconciler(ledger, v)

	done := make(chan error, 1)
	go func() { done <- r.Run(context.Background()) }()

	time.Sleep(30 * time.Millisecond)
	r.Stop()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("loop did not stop")
	}
}

// slowVenue blocks until the per-call context expires.
type slowVenue struct {
	name  string
	delay time.Duration
}

func (s *slowVenue) Name() string                     { return s.name }
func (s *slowVenue) Capabilities() venue.Capabilities { return venue.Capabilities{Positions: true, Ping: true} }

func (s *slowVenue) GetTicker(ctx context.Context, symbol string) (venue.Ticker, error) {
	return venue.Ticker{}, s.wait(ctx)
}

func (s *slowVenue) GetOpenOrders(ctx context.Context) ([]venue.Order, error) {
	return nil, s.wait(ctx)
}

func (s *slowVenue) GetOpenPositions(ctx context.Context) ([]venue.Position, error) {
	return nil, s.wait(ctx)
}

func (s *slowVenue) PingTransport(ctx context.Context) (time.Duration, error) {
	return 0, s.wait(ctx)
}

func (s *slowVenue) wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(s.delay):
		return nil
	}
}
