// Package collector runs background upkeep for the issue store. Issue
// detection itself happens inline at response time; the only periodic work
// left is refreshing runtime metrics so snapshots stay current on an idle
// server.
package collector

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/yevheniidehtiar/sqlsmell/domain"
)

const defaultInterval = 10 * time.Second

// RuntimeCollector periodically updates the store's runtime metrics.
type RuntimeCollector struct {
	store    domain.StoreWriter
	interval time.Duration
	logger   *zap.Logger

	done chan struct{}
	once sync.Once
}

var _ domain.Collector = (*RuntimeCollector)(nil)

// New returns a collector ticking at the given interval. Non-positive
// intervals fall back to a sane default.
func New(store domain.StoreWriter, interval time.Duration, logger *zap.Logger) *RuntimeCollector {
	if interval <= 0 {
		interval = defaultInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RuntimeCollector{
		store:    store,
		interval: interval,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// Start launches the background goroutine. It returns immediately.
func (c *RuntimeCollector) Start() {
	c.logger.Debug("runtime collector started", zap.Duration("interval", c.interval))
	ticker := time.NewTicker(c.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.store.UpdateRuntime()
			case <-c.done:
				return
			}
		}
	}()
}

// Stop terminates the background goroutine. Safe to call more than once.
func (c *RuntimeCollector) Stop() {
	c.once.Do(func() { close(c.done) })
}
