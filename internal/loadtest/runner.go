// Package loadtest drives synthetic traffic against a running demo server.
// Each simulated user loops over a weighted task list with think-time
// pauses, and every issue header found in a response is folded back into
// the statistics under its query shape, next to the plain request timings.
package loadtest

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/yevheniidehtiar/sqlsmell/config"
)

type task struct {
	name   string
	path   string
	weight int
}

// The endpoints that invite SQL issues carry three times the weight of the
// plain author listing.
func defaultTasks() []task {
	return []task{
		{name: "authors", path: "/api/authors", weight: 1},
		{name: "books", path: "/api/books", weight: 2},
		{name: "n-plus-one", path: "/api/examples/n-plus-one", weight: 3},
		{name: "optimized", path: "/api/examples/optimized", weight: 3},
		{name: "expensive", path: "/api/examples/expensive", weight: 3},
		{name: "complex-nested", path: "/api/examples/complex-nested", weight: 3},
	}
}

type Runner struct {
	cfg    config.LoadtestConfig
	logger *zap.Logger
	stats  *Registry
	client *http.Client

	tasks       []task
	totalWeight int
}

func NewRunner(cfg config.LoadtestConfig, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	stats := NewRegistry()
	r := &Runner{
		cfg:    cfg,
		logger: logger,
		stats:  stats,
		client: &http.Client{
			Transport: &measuringTransport{stats: stats},
			Timeout:   60 * time.Second,
		},
	}
	r.setTasks(defaultTasks())
	return r
}

func (r *Runner) setTasks(tasks []task) {
	r.tasks = tasks
	r.totalWeight = 0
	for _, t := range tasks {
		r.totalWeight += t.weight
	}
}

// Stats exposes the registry for the final report.
func (r *Runner) Stats() *Registry { return r.stats }

// Run spawns the configured number of users and blocks until the test
// duration elapses or ctx is cancelled. A summary is logged at the end.
func (r *Runner) Run(ctx context.Context) error {
	if _, err := url.ParseRequestURI(r.cfg.BaseURL); err != nil {
		return fmt.Errorf("parse base url: %w", err)
	}

	users := r.cfg.Users
	if users <= 0 {
		users = 1
	}

	if d := r.cfg.Duration(); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	r.logger.Info("load test starting",
		zap.String("base_url", r.cfg.BaseURL),
		zap.Int("users", users),
		zap.Duration("duration", r.cfg.Duration()))

	if interval := r.cfg.ReportInterval(); interval > 0 {
		go r.reportLoop(ctx, interval)
	}

	var wg sync.WaitGroup
	for i := 0; i < users; i++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			r.runUser(ctx, seed)
		}(int64(i))
	}
	wg.Wait()

	r.stats.Report(r.logger)
	return nil
}

func (r *Runner) runUser(ctx context.Context, seed int64) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano() ^ (seed << 32)))
	for {
		if ctx.Err() != nil {
			return
		}
		r.execute(ctx, r.pickTask(rng))

		select {
		case <-ctx.Done():
			return
		case <-time.After(r.waitTime(rng)):
		}
	}
}

func (r *Runner) pickTask(rng *rand.Rand) task {
	if r.totalWeight <= 0 {
		return r.tasks[rng.Intn(len(r.tasks))]
	}
	n := rng.Intn(r.totalWeight)
	for _, t := range r.tasks {
		n -= t.weight
		if n < 0 {
			return t
		}
	}
	return r.tasks[len(r.tasks)-1]
}

func (r *Runner) waitTime(rng *rand.Rand) time.Duration {
	min, max := r.cfg.WaitMin(), r.cfg.WaitMax()
	if max <= min {
		return min
	}
	return min + time.Duration(rng.Int63n(int64(max-min)))
}

func (r *Runner) execute(ctx context.Context, t task) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		strings.TrimRight(r.cfg.BaseURL, "/")+t.path, nil)
	if err != nil {
		r.logger.Warn("build request failed", zap.String("task", t.name), zap.Error(err))
		return
	}

	start := time.Now()
	resp, err := r.client.Do(req)
	if err != nil {
		if ctx.Err() == nil {
			r.logger.Warn("request failed", zap.String("task", t.name), zap.Error(err))
		}
		return
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	elapsed := time.Since(start)

	if resp.StatusCode != http.StatusOK {
		return
	}
	for _, ih := range ParseIssueHeaders(resp.Header) {
		r.stats.Add(ih.StatName(), elapsed)
	}
}

func (r *Runner) reportLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.stats.Report(r.logger)
		}
	}
}
