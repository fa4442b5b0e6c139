package http_middleware

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/yevheniidehtiar/sqlsmell/config"
	"github.com/yevheniidehtiar/sqlsmell/detect"
	"github.com/yevheniidehtiar/sqlsmell/domain"
	"github.com/yevheniidehtiar/sqlsmell/domain/issue"
	"github.com/yevheniidehtiar/sqlsmell/domain/metrics"
	"github.com/yevheniidehtiar/sqlsmell/internal/adapters/sqltrace"
	"github.com/yevheniidehtiar/sqlsmell/profiling"
)

// CollectorMiddleware creates the HTTP middleware that installs a fresh
// query accumulator per request, runs the handler, classifies the captured
// queries and reports the issues. It returns a function that takes an
// http.Handler and returns an http.Handler, suitable for use with
// frameworks like chi. store and profiler may be nil.
func CollectorMiddleware(cfg *config.Config, store domain.StoreWriter, logger *zap.Logger, profiler *profiling.Profiler) func(http.Handler) http.Handler {
	if !cfg.Enabled {
		// If disabled, return a no-op middleware.
		return func(next http.Handler) http.Handler {
			return next
		}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &collector{
		cfg:    cfg,
		store:  store,
		logger: logger,
		detector: detect.NewDetector(detect.Config{
			SlowThreshold:      cfg.Detect.SlowThreshold(),
			DuplicateThreshold: cfg.Detect.DuplicateThreshold,
			NPlusOneLimit:      cfg.Detect.NPlusOneLimit,
			SlowLimit:          cfg.Detect.SlowLimit,
			SummaryLen:         cfg.Detect.SummaryLen,
		}),
		profiler: profiler,
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rc := issue.NewRequestContext(c.cfg.Detect.StackDepth)
			ctx := sqltrace.WithRequestContext(r.Context(), rc)

			bw := newBufferedWriter(w)
			next.ServeHTTP(bw, r.WithContext(ctx))

			c.finalize(bw, r, rc, time.Since(start))
		})
	}
}

type collector struct {
	cfg      *config.Config
	store    domain.StoreWriter
	logger   *zap.Logger
	detector *detect.Detector
	profiler *profiling.Profiler
}

// finalize classifies the captured queries, injects issue headers and
// delivers the buffered response. A panic anywhere in collection is
// logged and swallowed; the response always goes out as the handler
// produced it.
func (c *collector) finalize(bw *bufferedWriter, r *http.Request, rc *issue.RequestContext, elapsed time.Duration) {
	defer bw.deliver()
	defer func() {
		if rec := recover(); rec != nil {
			c.logger.Error("sql issue collection failed",
				zap.Any("panic", rec), zap.String("path", r.URL.Path))
		}
	}()

	if c.store != nil {
		c.store.AddRequest(r.URL.Path, elapsed, bw.status())
		if bw.status() >= 500 {
			c.store.AddError(metrics.NewErrorEvent(r))
		}
	}

	reports := c.detector.Classify(rc.Records())
	if len(reports) == 0 {
		return
	}

	// A handler that already streamed its response cannot receive headers
	// anymore; the issues are still logged and stored.
	if !bw.streamed() {
		setIssueHeaders(bw.Header(), reports, c.cfg.Detect.MaxHeaderValueLen)
	}

	slow := false
	for _, rep := range reports {
		c.logIssue(rep)
		if c.store != nil {
			c.store.RecordIssue(r.URL.Path, rep)
		}
		if rep.Kind == issue.KindSlowQuery {
			slow = true
		}
	}
	if slow {
		c.profiler.TriggerForPath(r.URL.Path)
	}
}

// logIssue emits the one-line record for a report:
// <uuid> <kind> <sql-summary> <stack-trace>.
func (c *collector) logIssue(rep issue.IssueReport) {
	msg := rep.UUID + " " + rep.Kind.String() + " " + rep.Summary
	if stack := issue.FormatStack(rep.Stack); stack != "" {
		msg += " " + stack
	}
	c.logger.Info(msg)
}
