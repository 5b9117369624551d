// Package reconciler drives the position reconciliation loop: every poll
// interval it fans out read-only queries to all configured venues, diffs
// the reported positions against its local cache, pushes the resulting
// mutations into the risk ledger, and publishes a fresh health snapshot.
//
// The loop is fail-soft: one venue erroring, timing out or returning
// garbage degrades that venue's slice of the cycle and nothing else. The
// loop only exits on context cancellation or Stop.
package reconciler

import (
	"context"
	"sync"
	"time"

	"zeus/internal/logger"
	"zeus/internal/pkg/circuit"
	"zeus/internal/pkg/rolling"
	"zeus/internal/venue"
)

const (
	defaultPollInterval  = 2 * time.Second
	defaultCallTimeout   = 5 * time.Second
	defaultLatencyWindow = 50

	slippageAlpha = 0.2
)

// Config tunes the loop; zero values fall back to defaults.
type Config struct {
	PollInterval  time.Duration
	CallTimeout   time.Duration // per venue call; a timeout is a transport error
	LatencyWindow int
}

type Reconciler struct {
	ledger  RiskTracker
	venues  []venue.Adapter
	breaker *circuit.Breaker

	pollInterval time.Duration
	callTimeout  time.Duration

	mu          sync.Mutex
	cache       map[posKey]*Position
	latency     *rolling.Window
	slippageBps float64
	fillEvents  int64
	orderEvents int64
	lastError   string
	wsStatus    map[string]TransportStatus
	breakerOpen bool
	snapshot    HealthSnapshot

	stopOnce sync.Once
	stopCh   chan struct{}
}

func New(ledger RiskTracker, venues []venue.Adapter, breaker *circuit.Breaker, cfg Config) *Reconciler {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = defaultCallTimeout
	}
	if cfg.LatencyWindow <= 0 {
		cfg.LatencyWindow = defaultLatencyWindow
	}
	r := &Reconciler{
		ledger:       ledger,
		venues:       venues,
		breaker:      breaker,
		pollInterval: cfg.PollInterval,
		callTimeout:  cfg.CallTimeout,
		cache:        make(map[posKey]*Position),
		latency:      rolling.NewWindow(cfg.LatencyWindow),
		wsStatus:     make(map[string]TransportStatus),
		stopCh:       make(chan struct{}),
	}
	r.snapshot = r.buildSnapshotLocked(0)
	return r
}

// Run executes reconciliation cycles until ctx is cancelled or Stop is
// called. Errors inside a cycle never terminate the loop.
func (r *Reconciler) Run(ctx context.Context) error {
	logger.Infof("reconciler: loop started venues=%d interval=%s", len(r.venues), r.pollInterval)
	defer logger.Infof("reconciler: loop stopped")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.stopCh:
			return nil
		default:
		}

		r.RunCycle(ctx)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.stopCh:
			return nil
		case <-time.After(r.pollInterval):
		}
	}
}

// Stop requests loop shutdown; it is observed at the cycle boundary and
// during the sleep phase, never mid-mutation.
func (r *Reconciler) Stop() {
	r.stopOnce.Do(func() { close(r.stopCh) })
}

// RunCycle performs one fetch→diff→apply→publish pass. An engaged breaker
// short-circuits everything except the snapshot update.
func (r *Reconciler) RunCycle(ctx context.Context) {
	if r.breaker != nil && r.breaker.Engaged() {
		// exposure still comes from the ledger's normal locked path so a
		// paused loop keeps reporting what is actually open
		exposurePct := 0.0
		if r.ledger != nil {
			exposurePct = r.ledger.Metrics().ExposurePct
		}
		r.mu.Lock()
		r.breakerOpen = true
		r.snapshot = r.buildSnapshotLocked(exposurePct)
		r.mu.Unlock()
		return
	}
	r.mu.Lock()
	r.breakerOpen = false
	r.mu.Unlock()

	remote := r.fetchRemote(ctx)

	fills := r.reconcile(ctx, remote)
	r.updateSlippage(fills)

	// ledger mutations above are complete before the snapshot is taken,
	// so a snapshot never reflects a half-applied cycle
	exposurePct := 0.0
	if r.ledger != nil {
		exposurePct = r.ledger.Metrics().ExposurePct
	}
	r.mu.Lock()
	r.snapshot = r.buildSnapshotLocked(exposurePct)
	r.mu.Unlock()

	if r.breaker != nil {
		if len(remote) == 0 && len(r.venues) > 0 {
			r.breaker.RecordFailure()
		} else {
			r.breaker.RecordSuccess()
		}
	}
}

// Health returns the snapshot published by the most recent cycle.
func (r *Reconciler) Health() HealthSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.copySnapshotLocked()
}

// Positions copies the local cache for the diagnostics surface.
func (r *Reconciler) Positions() []Position {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Position, 0, len(r.cache))
	for _, p := range r.cache {
		out = append(out, *p)
	}
	return out
}

func (r *Reconciler) setLastError(err error) {
	if err == nil {
		return
	}
	r.mu.Lock()
	r.lastError = err.Error()
	r.mu.Unlock()
}

// buildSnapshotLocked runs with r.mu held.
func (r *Reconciler) buildSnapshotLocked(exposurePct float64) HealthSnapshot {
	breaker := "closed"
	if r.breakerOpen {
		breaker = "open"
	}
	ws := make(map[string]TransportStatus, len(r.wsStatus))
	for name, st := range r.wsStatus {
		ws[name] = st
	}
	fillRate := 0.0
	if r.orderEvents > 0 {
		fillRate = float64(r.fillEvents) / float64(r.orderEvents)
	}
	var lastErr *string
	if r.lastError != "" {
		msg := r.lastError
		lastErr = &msg
	}
	return HealthSnapshot{
		Breaker:     breaker,
		WS:          ws,
		ExposurePct: exposurePct,
		SlippageBps: r.slippageBps,
		LatencyMs:   r.latency.Mean(),
		FillRate:    fillRate,
		LastError:   lastErr,
	}
}

func (r *Reconciler) copySnapshotLocked() HealthSnapshot {
	snap := r.snapshot
	ws := make(map[string]TransportStatus, len(snap.WS))
	for name, st := range snap.WS {
		ws[name] = st
	}
	snap.WS = ws
	if snap.LastError != nil {
		msg := *snap.LastError
		snap.LastError = &msg
	}
	return snap
}
