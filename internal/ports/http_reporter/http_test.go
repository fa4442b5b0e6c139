package http_reporter

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yevheniidehtiar/sqlsmell/domain"
	"github.com/yevheniidehtiar/sqlsmell/domain/issue"
	"github.com/yevheniidehtiar/sqlsmell/infrastructure/storage/inmemory"
)

func TestSnapshotHandler(t *testing.T) {
	// 1. Setup: Create a store and populate it with metrics and issues.
	store := inmemory.NewStore()
	path1 := "/api/authors"
	path2 := "/api/books"

	// Metrics for path1
	store.AddRequest(path1, 100*time.Millisecond, http.StatusOK)      // 200
	store.AddRequest(path1, 150*time.Millisecond, http.StatusCreated) // 201

	// Metrics for path2
	store.AddRequest(path2, 200*time.Millisecond, http.StatusNotFound)            // 404
	store.AddRequest(path2, 300*time.Millisecond, http.StatusInternalServerError) // 500

	store.RecordIssue(path2, issue.IssueReport{
		Kind:      issue.KindNPlusOne,
		UUID:      "11111111-1111-1111-1111-111111111111",
		Ordinal:   1,
		Signature: "select * from book where author_id = ?",
		Summary:   "SELECT * FROM book WHERE author_id = 1",
		Count:     3,
		Duration:  33 * time.Millisecond,
	})
	store.RecordIssue(path2, issue.IssueReport{
		Kind:     issue.KindSlowQuery,
		UUID:     "22222222-2222-2222-2222-222222222222",
		Ordinal:  1,
		Summary:  "SELECT SUM(hours) FROM tasks",
		Count:    1,
		Duration: 600 * time.Millisecond,
	})
	store.UpdateRuntime()

	handler := NewHandler(store)

	// 2. Execution: Make a request to the snapshot handler.
	req := httptest.NewRequest("GET", "/debug/sql-issues", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	// 3. Verification: Check the response.
	require.Equal(t, http.StatusOK, rr.Code, "handler should return status OK")
	assert.Equal(t, "application/json; charset=utf-8", rr.Header().Get("Content-Type"))

	// Unmarshal the response into our primary snapshot struct.
	var snapshot domain.Snapshot
	err := json.Unmarshal(rr.Body.Bytes(), &snapshot)
	require.NoError(t, err, "Failed to unmarshal response body")

	// --- Assertions for Server-side Endpoint Metrics ---
	require.Len(t, snapshot.ServerEndpoints, 2, "Should be metrics for two endpoints")

	// Check metrics for path1
	require.Contains(t, snapshot.ServerEndpoints, path1)
	snap1 := snapshot.ServerEndpoints[path1]
	assert.Equal(t, uint64(2), snap1.TotalRequests)
	assert.Equal(t, uint64(2), snap1.Status2xx)
	assert.Equal(t, uint64(0), snap1.Status4xx)
	assert.Equal(t, uint64(0), snap1.Status5xx)
	expectedAvg1 := uint64((100*time.Millisecond + 150*time.Millisecond) / 2)
	assert.Equal(t, expectedAvg1, snap1.AvgRequestTimeNs)

	// Check metrics for path2
	require.Contains(t, snapshot.ServerEndpoints, path2)
	snap2 := snapshot.ServerEndpoints[path2]
	assert.Equal(t, uint64(2), snap2.TotalRequests)
	assert.Equal(t, uint64(1), snap2.Status4xx)
	assert.Equal(t, uint64(1), snap2.Status5xx)
	assert.Equal(t, uint64(1), snap2.NPlusOneIssues)
	assert.Equal(t, uint64(1), snap2.SlowQueryIssues)

	// --- Assertions for Issue Events ---
	require.Len(t, snapshot.Issues, 2)
	assert.Equal(t, issue.KindNPlusOne, snapshot.Issues[0].Kind)
	assert.Equal(t, path2, snapshot.Issues[0].Path)
	assert.Equal(t, 3, snapshot.Issues[0].Count)
	assert.Equal(t, issue.KindSlowQuery, snapshot.Issues[1].Kind)
	assert.Equal(t, int64(600), snapshot.Issues[1].DurationMS)

	// --- Assertions for Runtime Metrics ---
	assert.Greater(t, snapshot.Runtime.NumGoroutine, 0)
	assert.Greater(t, snapshot.Runtime.MemoryAllocBytes, uint64(0))
}

func TestSnapshotHandlerPrettyPrint(t *testing.T) {
	store := inmemory.NewStore()
	store.AddRequest("/api/authors", 10*time.Millisecond, http.StatusOK)

	handler := NewHandler(store)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/debug/sql-issues?pretty", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "\n  \"sql_issues\"", "pretty output should be indented")
}
