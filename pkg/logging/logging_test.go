package logging

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yevheniidehtiar/sqlsmell/config"
)

func TestNewRejectsBadLevel(t *testing.T) {
	_, err := New(config.LogConfig{Level: "shouting"})
	assert.Error(t, err)
}

func TestNewLogsISO8601Lines(t *testing.T) {
	file := filepath.Join(t.TempDir(), "sqlsmell.log")
	logger, err := New(config.LogConfig{Level: "info", File: file, MaxSizeMB: 1})
	require.NoError(t, err)

	logger.Info("deadbeef n_plus_one SELECT * FROM books WHERE author_id = ?")
	_ = logger.Sync()

	data, err := os.ReadFile(file)
	require.NoError(t, err)

	line := regexp.MustCompile(
		`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}\.\d{3}(Z|[+-]\d{4}) INFO deadbeef n_plus_one SELECT`)
	assert.Regexp(t, line, string(data))
}

func TestNewLevelFilters(t *testing.T) {
	file := filepath.Join(t.TempDir(), "sqlsmell.log")
	logger, err := New(config.LogConfig{Level: "warn", File: file, MaxSizeMB: 1})
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("visible")
	_ = logger.Sync()

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hidden")
	assert.Contains(t, string(data), "visible")
}
