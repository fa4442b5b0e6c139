// Package sqlsmell wires SQL issue collection into a host service. The
// agent owns the shared pieces: the logger, the issue store, the optional
// CPU profiler and the runtime collector. Hosts take the middleware for
// their router, open their database through the traced driver, and mount
// the snapshot handler wherever they expose debug endpoints.
package sqlsmell

import (
	"database/sql"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/yevheniidehtiar/sqlsmell/config"
	"github.com/yevheniidehtiar/sqlsmell/infrastructure/storage/inmemory"
	"github.com/yevheniidehtiar/sqlsmell/internal/adapters/sqltrace"
	"github.com/yevheniidehtiar/sqlsmell/internal/application/collector"
	"github.com/yevheniidehtiar/sqlsmell/internal/ports/http_middleware"
	"github.com/yevheniidehtiar/sqlsmell/internal/ports/http_reporter"
	"github.com/yevheniidehtiar/sqlsmell/pkg/logging"
	"github.com/yevheniidehtiar/sqlsmell/profiling"
)

type Agent struct {
	cfg      *config.Config
	logger   *zap.Logger
	store    *inmemory.Store
	profiler *profiling.Profiler

	runtime *collector.RuntimeCollector
}

// New builds an agent from the given configuration. The runtime collector
// starts immediately unless collection is disabled entirely.
func New(cfg *config.Config) (*Agent, error) {
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	a := &Agent{
		cfg:    cfg,
		logger: logger,
		store:  inmemory.NewStoreWithCapacity(cfg.Store.MaxIssues, cfg.Store.MaxErrors),
	}

	if cfg.Enabled {
		a.profiler = profiling.NewProfiler(profiling.Config{
			Enabled:  cfg.Profiling.Enabled,
			Duration: cfg.Profiling.Duration(),
			Cooldown: cfg.Profiling.Cooldown(),
			Dir:      cfg.Profiling.Dir,
		}, logger)

		a.runtime = collector.New(a.store, cfg.Collector.Interval(), logger)
		a.runtime.Start()
	}

	return a, nil
}

// Middleware returns the request wrapper that collects and reports SQL
// issues. Chain it around any http.Handler.
func (a *Agent) Middleware() func(http.Handler) http.Handler {
	return http_middleware.CollectorMiddleware(a.cfg, a.store, a.logger, a.profiler)
}

// Handler serves the collected issues and metrics as JSON.
func (a *Agent) Handler() http.Handler {
	return http_reporter.NewHandler(a.store)
}

// OpenDB opens a database through the traced driver so every query lands
// in the per-request accumulator.
func (a *Agent) OpenDB(driverName, dsn string) (*sql.DB, error) {
	return sqltrace.Open(driverName, dsn)
}

// Store exposes the issue store for direct snapshot access.
func (a *Agent) Store() *inmemory.Store { return a.store }

// Logger exposes the agent's logger so hosts can share it.
func (a *Agent) Logger() *zap.Logger { return a.logger }

// Close stops background work and flushes the logger.
func (a *Agent) Close() {
	if a.runtime != nil {
		a.runtime.Stop()
	}
	_ = a.logger.Sync()
}
