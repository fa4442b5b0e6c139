package domain

import (
	"context"
	"net/http"
	"time"

	"github.com/yevheniidehtiar/sqlsmell/domain/issue"
	"github.com/yevheniidehtiar/sqlsmell/domain/metrics"
)

// Snapshot is a point-in-time, read-only copy of everything the store
// holds. This is part of the domain contracts as it defines the data
// structure that application services and infrastructure reporters will
// work with.
type Snapshot struct {
	ServerEndpoints map[string]metrics.EndpointMetricsSnapshot `json:"server_endpoints"`
	Runtime         metrics.RuntimeMetrics                     `json:"runtime_metrics"`
	Errors          []metrics.ErrorEvent                       `json:"errors"`
	Issues          []issue.IssueEvent                         `json:"sql_issues"`
}

// QuerySink receives captured SQL executions. The production sink appends
// to the request-scoped accumulator installed by the HTTP middleware; tests
// substitute their own.
type QuerySink interface {
	Record(ctx context.Context, rec issue.QueryRecord)
}

// StoreReader defines the contract for reading collected data from a store.
type StoreReader interface {
	GetSnapshot() *Snapshot
}

// StoreWriter defines the contract for writing collected data to a store.
type StoreWriter interface {
	AddRequest(path string, duration time.Duration, statusCode int)
	AddError(event metrics.ErrorEvent)
	RecordIssue(path string, rep issue.IssueReport)
	UpdateRuntime()
}

// Store is the combined interface for an issue and metrics store.
type Store interface {
	StoreReader
	StoreWriter
}

// Collector defines a component that periodically collects metrics.
type Collector interface {
	Start()
	Stop()
}

// Reporter defines a component that can report collected issues, e.g., via
// an HTTP handler.
type Reporter interface {
	Handler() http.Handler
}
