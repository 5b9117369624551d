package app

import (
	"context"
	"errors"
	"sync"

	"zeus/internal/logger"
	"zeus/internal/reconciler"
)

// loopController owns the reconciler goroutine so the HTTP surface can
// start and stop the loop independently of process lifetime. Every run
// is a child of the bound context, so process shutdown still stops a
// loop started over HTTP.
type loopController struct {
	rec *reconciler.Reconciler

	mu     sync.Mutex
	base   context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func newLoopController(rec *reconciler.Reconciler) *loopController {
	return &loopController{rec: rec, base: context.Background()}
}

// bind sets the parent context for subsequently started runs.
func (c *loopController) bind(ctx context.Context) {
	c.mu.Lock()
	c.base = ctx
	c.mu.Unlock()
}

// StartLoop launches a reconciliation loop; false when one is already
// running.
func (c *loopController) StartLoop() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.runningLocked() {
		return false
	}
	runCtx, cancel := context.WithCancel(c.base)
	done := make(chan struct{})
	c.cancel = cancel
	c.done = done
	go func() {
		defer close(done)
		if err := c.rec.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Errorf("app: reconciler loop exited err=%v", err)
		}
	}()
	return true
}

// StopLoop cancels the running loop and waits for it to exit; false
// when no loop is running.
func (c *loopController) StopLoop() bool {
	c.mu.Lock()
	if !c.runningLocked() {
		c.mu.Unlock()
		return false
	}
	cancel, done := c.cancel, c.done
	c.mu.Unlock()

	cancel()
	<-done
	return true
}

func (c *loopController) LoopRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.runningLocked()
}

// runningLocked runs with c.mu held.
func (c *loopController) runningLocked() bool {
	if c.done == nil {
		return false
	}
	select {
	case <-c.done:
		return false
	default:
		return true
	}
}
