package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "sqlsmell", cfg.ServiceName)
	assert.True(t, cfg.Enabled)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 500*time.Millisecond, cfg.Detect.SlowThreshold())
	assert.Equal(t, 2, cfg.Detect.DuplicateThreshold)
	assert.Equal(t, 0, cfg.Detect.NPlusOneLimit)
	assert.Equal(t, 1024, cfg.Detect.MaxHeaderValueLen)
	assert.Equal(t, 8, cfg.Detect.StackDepth)
	assert.Equal(t, "sqlite3", cfg.Demo.Driver)
	assert.Equal(t, 10, cfg.Loadtest.Users)
	assert.Equal(t, time.Second, cfg.Loadtest.WaitMin())
	assert.Equal(t, 5*time.Second, cfg.Loadtest.WaitMax())
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SQLSMELL_ENABLED", "false")
	t.Setenv("SQLSMELL_DETECT_SLOW_THRESHOLD_MS", "250")
	t.Setenv("SQLSMELL_DEMO_DRIVER", "mysql")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.False(t, cfg.Enabled)
	assert.Equal(t, 250*time.Millisecond, cfg.Detect.SlowThreshold())
	assert.Equal(t, "mysql", cfg.Demo.Driver)
}

func TestLoadYAMLFile(t *testing.T) {
	dir := t.TempDir()
	yaml := []byte("service_name: bookshop\ndetect:\n  duplicate_threshold: 3\n  nplus1_limit: 10\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "bookshop", cfg.ServiceName)
	assert.Equal(t, 3, cfg.Detect.DuplicateThreshold)
	assert.Equal(t, 10, cfg.Detect.NPlusOneLimit)
	// untouched keys keep their defaults
	assert.Equal(t, 500, cfg.Detect.SlowThresholdMS)
}

func TestLoadMissingConfigFileIsFine(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.True(t, cfg.Enabled)
}
