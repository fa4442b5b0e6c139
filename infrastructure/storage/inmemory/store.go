package inmemory

import (
	"runtime"
	"sync"
	"time"

	"github.com/yevheniidehtiar/sqlsmell/domain"
	"github.com/yevheniidehtiar/sqlsmell/domain/issue"
	"github.com/yevheniidehtiar/sqlsmell/domain/metrics"
)

const (
	// Default buffer size for events like errors and detected issues.
	defaultEventBufferSize = 100
)

// --- Store Implementation ---

// Store is a thread-safe in-memory data store for collected issues and
// request metrics. It implements the domain.Store interface.
var _ domain.Store = (*Store)(nil)

type Store struct {
	mu              sync.RWMutex
	serverEndpoints map[string]*metrics.EndpointMetrics
	runtime         metrics.RuntimeMetrics
	errors          *ringBuffer[metrics.ErrorEvent]
	issues          *ringBuffer[issue.IssueEvent]
}

// NewStore creates a Store with default buffer capacities.
func NewStore() *Store {
	return NewStoreWithCapacity(defaultEventBufferSize, defaultEventBufferSize)
}

// NewStoreWithCapacity creates a Store keeping at most maxIssues issue
// events and maxErrors error events; non-positive values fall back to the
// default.
func NewStoreWithCapacity(maxIssues, maxErrors int) *Store {
	if maxIssues <= 0 {
		maxIssues = defaultEventBufferSize
	}
	if maxErrors <= 0 {
		maxErrors = defaultEventBufferSize
	}
	return &Store{
		serverEndpoints: make(map[string]*metrics.EndpointMetrics),
		errors:          newRingBuffer[metrics.ErrorEvent](maxErrors),
		issues:          newRingBuffer[issue.IssueEvent](maxIssues),
	}
}

// AddRequest records a completed server request.
func (s *Store) AddRequest(path string, duration time.Duration, statusCode int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	endpoint := s.endpointFor(path)
	endpoint.TotalRequests++
	endpoint.TotalRequestTime += uint64(duration.Nanoseconds())

	switch {
	case statusCode >= 500:
		endpoint.Status5xx++
	case statusCode >= 400:
		endpoint.Status4xx++
	default:
		endpoint.Status2xx++
	}
}

// AddError adds a new error event to the ring buffer.
func (s *Store) AddError(event metrics.ErrorEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors.add(event)
}

// RecordIssue stores a detected issue and bumps the endpoint's per-kind
// counter.
func (s *Store) RecordIssue(path string, rep issue.IssueReport) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.issues.add(issue.NewIssueEvent(path, rep))

	endpoint := s.endpointFor(path)
	switch rep.Kind {
	case issue.KindNPlusOne:
		endpoint.NPlusOneIssues++
	case issue.KindSlowQuery:
		endpoint.SlowQueryIssues++
	}
}

// endpointFor returns the aggregate for a path, creating it on first use.
// Callers must hold the write lock.
func (s *Store) endpointFor(path string) *metrics.EndpointMetrics {
	endpoint, ok := s.serverEndpoints[path]
	if !ok {
		endpoint = &metrics.EndpointMetrics{}
		s.serverEndpoints[path] = endpoint
	}
	return endpoint
}

// UpdateRuntime captures current runtime metrics.
func (s *Store) UpdateRuntime() {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.runtime.NumGoroutine = runtime.NumGoroutine()
	s.runtime.MemoryAllocBytes = memStats.Alloc
	s.runtime.MemoryTotalAllocBytes = memStats.TotalAlloc
	s.runtime.MemoryHeapAllocBytes = memStats.HeapAlloc
	s.runtime.MemoryHeapSysBytes = memStats.HeapSys
}

// GetSnapshot returns a read-only copy of everything collected so far.
func (s *Store) GetSnapshot() *domain.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := &domain.Snapshot{
		ServerEndpoints: make(map[string]metrics.EndpointMetricsSnapshot),
		Errors:          s.errors.getAll(),
		Issues:          s.issues.getAll(),
	}

	for path, m := range s.serverEndpoints {
		var avgTimeNs uint64
		if m.TotalRequests > 0 {
			avgTimeNs = m.TotalRequestTime / m.TotalRequests
		}
		snapshot.ServerEndpoints[path] = metrics.EndpointMetricsSnapshot{
			TotalRequests:    m.TotalRequests,
			AvgRequestTimeNs: avgTimeNs,
			AvgRequestTime:   time.Duration(avgTimeNs).String(),
			Status2xx:        m.Status2xx,
			Status4xx:        m.Status4xx,
			Status5xx:        m.Status5xx,
			NPlusOneIssues:   m.NPlusOneIssues,
			SlowQueryIssues:  m.SlowQueryIssues,
		}
	}

	snapshot.Runtime = s.runtime

	return snapshot
}

// --- Ring Buffer for Events ---

// ringBuffer is a generic, thread-unsafe circular buffer.
// The locking must be handled by the parent (Store).
type ringBuffer[T any] struct {
	buffer []T
	size   int
	start  int
	count  int
}

// newRingBuffer creates a new ring buffer of a given size.
func newRingBuffer[T any](size int) *ringBuffer[T] {
	return &ringBuffer[T]{
		buffer: make([]T, size),
		size:   size,
	}
}

// add inserts an element into the buffer, overwriting the oldest if full.
func (rb *ringBuffer[T]) add(item T) {
	index := (rb.start + rb.count) % rb.size
	rb.buffer[index] = item
	if rb.count < rb.size {
		rb.count++
	} else {
		rb.start = (rb.start + 1) % rb.size
	}
}

// getAll returns all elements in the buffer in order.
func (rb *ringBuffer[T]) getAll() []T {
	if rb.count == 0 {
		return nil
	}
	items := make([]T, rb.count)
	for i := 0; i < rb.count; i++ {
		items[i] = rb.buffer[(rb.start+i)%rb.size]
	}
	return items
}
