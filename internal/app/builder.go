package app

import (
	"fmt"
	"time"

	"zeus/internal/config"
	"zeus/internal/logger"
	"zeus/internal/pkg/circuit"
	"zeus/internal/reconciler"
	"zeus/internal/risk"
	"zeus/internal/store/riskevents"
	healthhttp "zeus/internal/transport/http/health"
	"zeus/internal/venue"
	"zeus/internal/venue/binance"
)

// ledgerAPI is what the app needs from the risk ledger beyond what the
// reconciler consumes.
type ledgerAPI interface {
	Metrics() risk.Metrics
	ExportReport() risk.Report
	AddPosition(symbol, side string, quantity, entryPrice float64, metadata map[string]string)
	RemovePosition(symbol string, exitPrice float64)
}

func build(cfg *config.Config) (*App, error) {
	var audit *riskevents.Store
	var ledgerOpts []risk.Option
	if cfg.Audit.Enabled {
		store, err := riskevents.NewStore(cfg.Audit.DBPath)
		if err != nil {
			return nil, fmt.Errorf("building risk event store failed: %w", err)
		}
		audit = store
		ledgerOpts = append(ledgerOpts, risk.WithEventSink(store))
	}

	ledger := risk.NewLedger(cfg.Risk.InitialBalance, cfg.Risk.Parameters(), ledgerOpts...)

	venues := buildVenues(cfg)
	if len(venues) == 0 {
		logger.Warnf("app: no venues enabled, reconciler will idle")
	}

	breaker := circuit.NewBreaker("reconciler",
		cfg.Reconciler.BreakerThreshold, cfg.Reconciler.BreakerCooldown())

	rec := reconciler.New(ledger, venues, breaker, reconciler.Config{
		PollInterval:  cfg.Reconciler.PollInterval(),
		CallTimeout:   cfg.Reconciler.CallTimeout(),
		LatencyWindow: cfg.Reconciler.LatencyWindow,
	})

	loop := newLoopController(rec)

	serverCfg := healthhttp.ServerConfig{
		Addr:    cfg.App.HTTPAddr,
		Source:  rec,
		Risk:    ledger,
		Breaker: breaker,
		Loop:    loop,
	}
	if audit != nil {
		serverCfg.Reports = audit
	}
	server, err := healthhttp.NewServer(serverCfg)
	if err != nil {
		return nil, fmt.Errorf("building health http server failed: %w", err)
	}

	return &App{
		cfg:        cfg,
		ledger:     ledger,
		reconciler: rec,
		loop:       loop,
		httpServer: server,
		audit:      audit,
	}, nil
}

func buildVenues(cfg *config.Config) []venue.Adapter {
	var venues []venue.Adapter
	if b := cfg.Venues.Binance; b.Enabled {
		venues = append(venues, binance.New(b.Name, binance.Config{
			APIKey:      b.APIKey,
			SecretKey:   b.SecretKey,
			RESTBaseURL: b.RESTBaseURL,
			HTTPTimeout: time.Duration(b.TimeoutSeconds) * time.Second,
			Testnet:     b.Testnet,
		}))
		logger.Infof("app: venue enabled name=%s testnet=%v", b.Name, b.Testnet)
	}
	return venues
}
