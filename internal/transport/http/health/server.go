// Package healthhttp exposes the reconciler's health snapshot and the
// risk ledger's read-only diagnostics over HTTP. Error detail never goes
// past the snapshot's last-error string; no stack traces on the wire.
package healthhttp

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"zeus/internal/logger"
	"zeus/internal/pkg/circuit"
	"zeus/internal/reconciler"
	"zeus/internal/risk"
)

// HealthSource is the reconciler-facing slice the server reads from.
type HealthSource interface {
	Health() reconciler.HealthSnapshot
	Positions() []reconciler.Position
}

// RiskReader is the ledger-facing slice the server reads from.
type RiskReader interface {
	Metrics() risk.Metrics
	ExportReport() risk.Report
}

// ReportSaver optionally persists exported reports (the sqlite audit
// store); nil disables persistence.
type ReportSaver interface {
	SaveReport(rep risk.Report) error
}

// LoopController starts and stops the reconciliation loop; nil disables
// the bot control endpoints.
type LoopController interface {
	StartLoop() bool
	StopLoop() bool
	LoopRunning() bool
}

type ServerConfig struct {
	Addr    string
	Source  HealthSource
	Risk    RiskReader
	Breaker *circuit.Breaker
	Reports ReportSaver
	Loop    LoopController
}

type Server struct {
	addr    string
	router  *gin.Engine
	started time.Time
}

func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Source == nil || cfg.Risk == nil {
		return nil, errors.New("health http server requires a health source and a risk reader")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	s := &Server{addr: cfg.Addr, router: router, started: time.Now()}

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, cfg.Source.Health())
	})

	api := router.Group("/api")
	api.GET("/status", func(c *gin.Context) {
		snap := cfg.Source.Health()
		body := gin.H{
			"breaker":   snap.Breaker,
			"uptime":    time.Since(s.started).String(),
			"positions": len(cfg.Source.Positions()),
		}
		if cfg.Loop != nil {
			status := "stopped"
			if cfg.Loop.LoopRunning() {
				status = "running"
			}
			body["status"] = status
		}
		c.JSON(http.StatusOK, body)
	})
	api.GET("/risk-metrics", func(c *gin.Context) {
		c.JSON(http.StatusOK, cfg.Risk.Metrics())
	})
	api.GET("/positions", func(c *gin.Context) {
		positions := cfg.Source.Positions()
		var totalValue float64
		for _, p := range positions {
			totalValue += p.Size * p.AvgPrice
		}
		c.JSON(http.StatusOK, gin.H{
			"positions":   positions,
			"count":       len(positions),
			"total_value": totalValue,
		})
	})
	api.GET("/report", func(c *gin.Context) {
		rep := cfg.Risk.ExportReport()
		if cfg.Reports != nil {
			if err := cfg.Reports.SaveReport(rep); err != nil {
				logger.Warnf("health http: report persist failed err=%v", err)
			}
		}
		c.JSON(http.StatusOK, rep)
	})

	if cfg.Loop != nil {
		api.POST("/bot/start", func(c *gin.Context) {
			if !cfg.Loop.StartLoop() {
				c.JSON(http.StatusBadRequest, gin.H{"error": "bot is already running"})
				return
			}
			logger.Infof("health http: bot started via api")
			c.JSON(http.StatusOK, gin.H{"message": "trading bot started", "status": "running"})
		})
		api.POST("/bot/stop", func(c *gin.Context) {
			if !cfg.Loop.StopLoop() {
				c.JSON(http.StatusBadRequest, gin.H{"error": "bot is not running"})
				return
			}
			logger.Infof("health http: bot stopped via api")
			c.JSON(http.StatusOK, gin.H{"message": "trading bot stopped", "status": "stopped"})
		})
	}

	if cfg.Breaker != nil {
		api.POST("/breaker/open", func(c *gin.Context) {
			cfg.Breaker.Trip()
			c.JSON(http.StatusOK, gin.H{"breaker": "open"})
		})
		api.POST("/breaker/close", func(c *gin.Context) {
			cfg.Breaker.Reset()
			c.JSON(http.StatusOK, gin.H{"breaker": "closed"})
		})
	}

	return s, nil
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debugf("HTTP %s %s status=%d ip=%s dur=%s",
			c.Request.Method, c.Request.URL.Path, c.Writer.Status(), c.ClientIP(), time.Since(start))
	}
}

func (s *Server) Addr() string {
	if s == nil {
		return ""
	}
	return s.addr
}

// Router exposes the handler for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	srv := &http.Server{Addr: s.addr, Handler: s.router}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return ctx.Err()
	}
}
