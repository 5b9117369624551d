// Package app wires the ledger, venues, reconciler and HTTP surface
// together and runs them as one unit.
package app

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"zeus/internal/config"
	"zeus/internal/logger"
	"zeus/internal/reconciler"
	"zeus/internal/store/riskevents"
	healthhttp "zeus/internal/transport/http/health"
)

type App struct {
	cfg        *config.Config
	ledger     ledgerAPI
	reconciler *reconciler.Reconciler
	loop       *loopController
	httpServer *healthhttp.Server
	audit      *riskevents.Store
}

// NewApp builds the application object from config without starting it.
// A construction failure here is the only fatal path; once Run starts,
// cycle errors never bring the process down.
func NewApp(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	return build(cfg)
}

// Run serves HTTP and the reconciliation loop until ctx is cancelled or
// one of them fails to start. The loop runs under the controller so the
// bot start/stop endpoints can pause and resume it while HTTP stays up.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}
	defer func() {
		if a.audit != nil {
			a.audit.Close()
		}
	}()

	a.loop.bind(ctx)
	a.loop.StartLoop()
	defer a.loop.StopLoop()

	group, gctx := errgroup.WithContext(ctx)

	if a.httpServer != nil {
		group.Go(func() error {
			if err := a.httpServer.Start(gctx); err != nil {
				return fmt.Errorf("health http server error: %w", err)
			}
			return nil
		})
	}

	group.Go(func() error {
		<-gctx.Done()
		return gctx.Err()
	})

	return group.Wait()
}

// Reconciler exposes the loop for test harnesses.
func (a *App) Reconciler() *reconciler.Reconciler {
	if a == nil {
		return nil
	}
	return a.reconciler
}
