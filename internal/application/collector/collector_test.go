package collector

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/yevheniidehtiar/sqlsmell/infrastructure/storage/inmemory"
)

func TestRuntimeCollectorUpdatesStore(t *testing.T) {
	store := inmemory.NewStore()
	c := New(store, 10*time.Millisecond, nil)

	c.Start()
	defer c.Stop()

	// Wait for at least one tick to land in the store.
	assert.Eventually(t, func() bool {
		return store.GetSnapshot().Runtime.NumGoroutine > 0
	}, time.Second, 5*time.Millisecond, "runtime metrics should be populated after a tick")
}

func TestRuntimeCollectorStopIsIdempotent(t *testing.T) {
	c := New(inmemory.NewStore(), 10*time.Millisecond, nil)
	c.Start()

	assert.NotPanics(t, func() {
		c.Stop()
		c.Stop()
	})
}

func TestNewClampsInterval(t *testing.T) {
	c := New(inmemory.NewStore(), 0, nil)
	assert.Equal(t, defaultInterval, c.interval)
}
