package sqltrace

import (
	"context"
	"time"

	"github.com/yevheniidehtiar/sqlsmell/domain"
	"github.com/yevheniidehtiar/sqlsmell/domain/issue"
)

// contextKey is an unexported type for keys defined in this package.
type contextKey struct{}

var requestContextKey = contextKey{}

// WithRequestContext returns a context carrying the given accumulator.
// The HTTP middleware attaches this to the incoming *http.Request so the
// wrapped driver can record every query the handler executes.
func WithRequestContext(parent context.Context, rc *issue.RequestContext) context.Context {
	return context.WithValue(parent, requestContextKey, rc)
}

// RequestContextFrom retrieves the accumulator, or nil if the context was
// not initialised via WithRequestContext.
func RequestContextFrom(ctx context.Context) *issue.RequestContext {
	rc, ok := ctx.Value(requestContextKey).(*issue.RequestContext)
	if !ok {
		return nil
	}
	return rc
}

// SinkFrom returns the request's query sink. Outside a traced request it
// returns a no-op sink, so instrumented code never has to nil-check. Code
// that times work outside database/sql can use this to contribute records.
func SinkFrom(ctx context.Context) domain.QuerySink {
	if rc := RequestContextFrom(ctx); rc != nil {
		return rc
	}
	return nopSink{}
}

type nopSink struct{}

func (nopSink) Record(context.Context, issue.QueryRecord) {}

// recordQuery builds a record for an executed statement and appends it to
// the accumulator, if any. Used internally by the wrapped driver
// components; without an accumulator in ctx it is a no-op.
func recordQuery(ctx context.Context, query string, start time.Time, dur time.Duration) {
	rc := RequestContextFrom(ctx)
	if rc == nil {
		return
	}
	rec := issue.QueryRecord{
		SQL:       query,
		Duration:  dur,
		StartedAt: start,
	}
	if depth := rc.StackDepth(); depth > 0 {
		rec.Stack = captureStack(2, depth)
	}
	rc.Append(rec)
}
