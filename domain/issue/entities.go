package issue

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Kind identifies the category of a detected SQL issue.
type Kind string

const (
	// KindNPlusOne marks a group of queries that share one normalized
	// signature within a single request, the shape produced by per-row
	// lookups inside a loop.
	KindNPlusOne Kind = "n_plus_one"

	// KindSlowQuery marks a single query whose execution time exceeded
	// the configured threshold.
	KindSlowQuery Kind = "slow_query"
)

func (k Kind) String() string { return string(k) }

// HeaderToken returns the fragment of the kind used in response header
// names, e.g. NPLUS1 in DJ_TB_SQL_NPLUS1_1.
func (k Kind) HeaderToken() string {
	switch k {
	case KindNPlusOne:
		return "NPLUS1"
	case KindSlowQuery:
		return "SLOW"
	default:
		return strings.ToUpper(string(k))
	}
}

// StackFrame is one application frame captured at query execution time.
type StackFrame struct {
	Function string `json:"function"`
	File     string `json:"file"`
	Line     int    `json:"line"`
}

func (f StackFrame) String() string {
	return fmt.Sprintf("%s:%d %s", f.File, f.Line, f.Function)
}

// FormatStack renders frames as a single pipe-separated line for log output.
func FormatStack(frames []StackFrame) string {
	if len(frames) == 0 {
		return ""
	}
	parts := make([]string, len(frames))
	for i, f := range frames {
		parts[i] = f.String()
	}
	return strings.Join(parts, " | ")
}

// QueryRecord is a single captured SQL execution, ordered by start time
// within its request.
type QueryRecord struct {
	SQL       string        `json:"sql"`
	Duration  time.Duration `json:"duration"`
	Signature string        `json:"signature,omitempty"`
	Stack     []StackFrame  `json:"stack,omitempty"`
	StartedAt time.Time     `json:"started_at"`
}

// IssueReport is one detected issue, ready for header, log and store
// reporting. Ordinal numbering starts at 1 per kind per response.
type IssueReport struct {
	Kind      Kind
	UUID      string
	Ordinal   int
	Signature string
	Digest    string
	SQL       string
	Summary   string
	Count     int
	Duration  time.Duration
	Stack     []StackFrame
}

// IssueEvent is the stored form of an IssueReport, annotated with the
// request path it was observed on.
type IssueEvent struct {
	Timestamp  time.Time `json:"timestamp"`
	Path       string    `json:"path"`
	Kind       Kind      `json:"kind"`
	UUID       string    `json:"uuid"`
	Signature  string    `json:"signature,omitempty"`
	Digest     string    `json:"digest,omitempty"`
	Summary    string    `json:"summary"`
	Count      int       `json:"count,omitempty"`
	DurationMS int64     `json:"duration_ms,omitempty"`
}

// NewIssueEvent creates the stored event form of a report.
func NewIssueEvent(path string, rep IssueReport) IssueEvent {
	return IssueEvent{
		Timestamp:  time.Now(),
		Path:       path,
		Kind:       rep.Kind,
		UUID:       rep.UUID,
		Signature:  rep.Signature,
		Digest:     rep.Digest,
		Summary:    rep.Summary,
		Count:      rep.Count,
		DurationMS: rep.Duration.Milliseconds(),
	}
}

// RequestContext accumulates the queries executed while serving one HTTP
// request. A fresh value is created per request and discarded with it, so
// no state is ever shared between requests. The mutex only guards against
// handlers that fan queries out across goroutines.
type RequestContext struct {
	mu         sync.Mutex
	records    []QueryRecord
	stackDepth int
}

// NewRequestContext returns an empty accumulator. stackDepth bounds how
// many call frames the capture layer keeps per query; zero disables stack
// capture.
func NewRequestContext(stackDepth int) *RequestContext {
	return &RequestContext{stackDepth: stackDepth}
}

// StackDepth reports how many stack frames the capture layer should keep.
func (rc *RequestContext) StackDepth() int {
	return rc.stackDepth
}

// Append adds a record, preserving execution order.
func (rc *RequestContext) Append(rec QueryRecord) {
	rc.mu.Lock()
	rc.records = append(rc.records, rec)
	rc.mu.Unlock()
}

// Record implements the query sink contract. The ctx parameter is unused
// because the receiver is already bound to its request.
func (rc *RequestContext) Record(_ context.Context, rec QueryRecord) {
	rc.Append(rec)
}

// Records returns a copy of the captured records in execution order.
func (rc *RequestContext) Records() []QueryRecord {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	out := make([]QueryRecord, len(rc.records))
	copy(out, rc.records)
	return out
}

// Len reports how many queries have been captured so far.
func (rc *RequestContext) Len() int {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return len(rc.records)
}

// SummarizeSQL collapses whitespace and truncates the statement so it fits
// in a header value or a single log line.
func SummarizeSQL(sql string, max int) string {
	s := strings.Join(strings.Fields(sql), " ")
	if max <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}
