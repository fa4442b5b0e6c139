package loadtest

import (
	"context"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yevheniidehtiar/sqlsmell/config"
)

func testLoadtestConfig(baseURL string) config.LoadtestConfig {
	return config.LoadtestConfig{
		BaseURL:   baseURL,
		Users:     3,
		WaitMinMS: 1,
		WaitMaxMS: 2,
	}
}

func TestRunnerCollectsRequestAndIssueStats(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h["DJ_TB_SQL_NPLUS1_1"] = []string{"u1; signature=select * from t where id = ?; count=4"}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("{}"))
	}))
	defer ts.Close()

	r := NewRunner(testLoadtestConfig(ts.URL), zap.NewNop())
	r.setTasks([]task{{name: "n-plus-one", path: "/api/examples/n-plus-one", weight: 1}})

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	require.NoError(t, r.Run(ctx))

	byName := make(map[string]Stat)
	for _, s := range r.Stats().Snapshot() {
		byName[s.Name] = s
	}

	requests, ok := byName["GET /api/examples/n-plus-one"]
	require.True(t, ok, "request timings should be recorded")
	assert.Greater(t, requests.Count, 0)
	assert.Equal(t, 0, requests.Failures)

	issues, ok := byName["N+1 Query - select * from t where id = ?"]
	require.True(t, ok, "issue headers should be folded into stats")
	assert.Equal(t, requests.Count, issues.Count, "one issue entry per successful request")
}

func TestRunnerCountsServerErrors(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer ts.Close()

	r := NewRunner(testLoadtestConfig(ts.URL), zap.NewNop())
	r.setTasks([]task{{name: "broken", path: "/broken", weight: 1}})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	require.NoError(t, r.Run(ctx))

	stats := r.Stats().Snapshot()
	require.Len(t, stats, 1, "no issue entries for failed responses")
	assert.Greater(t, stats[0].Failures, 0)
}

func TestRunnerRejectsInvalidBaseURL(t *testing.T) {
	r := NewRunner(config.LoadtestConfig{BaseURL: ""}, nil)
	assert.Error(t, r.Run(context.Background()))
}

func TestPickTaskRespectsWeights(t *testing.T) {
	r := NewRunner(testLoadtestConfig("http://localhost:0"), nil)
	r.setTasks([]task{
		{name: "rare", path: "/rare", weight: 1},
		{name: "common", path: "/common", weight: 9},
	})

	rng := rand.New(rand.NewSource(1))
	counts := make(map[string]int)
	for i := 0; i < 1000; i++ {
		counts[r.pickTask(rng).name]++
	}

	assert.Equal(t, 1000, counts["rare"]+counts["common"])
	assert.Greater(t, counts["common"], counts["rare"])
}

func TestWaitTimeWithinBounds(t *testing.T) {
	r := NewRunner(config.LoadtestConfig{WaitMinMS: 10, WaitMaxMS: 20}, nil)
	rng := rand.New(rand.NewSource(2))

	for i := 0; i < 100; i++ {
		w := r.waitTime(rng)
		assert.GreaterOrEqual(t, w, 10*time.Millisecond)
		assert.Less(t, w, 20*time.Millisecond)
	}
}

func TestWaitTimeDegenerateRange(t *testing.T) {
	r := NewRunner(config.LoadtestConfig{WaitMinMS: 15, WaitMaxMS: 15}, nil)
	rng := rand.New(rand.NewSource(3))
	assert.Equal(t, 15*time.Millisecond, r.waitTime(rng))
}

func TestDefaultTaskWeights(t *testing.T) {
	r := NewRunner(config.LoadtestConfig{BaseURL: "http://localhost"}, nil)
	assert.Equal(t, 15, r.totalWeight)
	assert.Len(t, r.tasks, 6)
}
