// Package profiling captures on-demand CPU profiles for endpoints whose
// requests produced slow-query issues.
package profiling

import (
	"fmt"
	"os"
	"runtime/pprof"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

type Config struct {
	Enabled  bool
	Duration time.Duration
	Cooldown time.Duration
	Dir      string
}

type Profiler struct {
	config        Config
	logger        *zap.Logger
	cooldowns     map[string]time.Time
	cooldownsLock sync.Mutex
}

// NewProfiler returns nil when profiling is disabled; a nil *Profiler is
// safe to call.
func NewProfiler(config Config, logger *zap.Logger) *Profiler {
	if !config.Enabled {
		return nil
	}
	if config.Dir == "" {
		config.Dir = os.TempDir()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Info("initializing on-demand profiler", zap.String("dir", config.Dir))
	return &Profiler{
		config:    config,
		logger:    logger,
		cooldowns: make(map[string]time.Time),
	}
}

// TriggerForPath starts a background CPU profile for the endpoint unless
// one ran recently. Called when a request on the path yielded at least one
// slow-query issue.
func (p *Profiler) TriggerForPath(path string) {
	if p == nil {
		return
	}

	if p.isCoolingDown(path) {
		p.logger.Debug("endpoint produced slow queries, but profiler is in cooldown", zap.String("path", path))
		return
	}

	p.logger.Info("endpoint produced slow queries, starting CPU profile", zap.String("path", path))
	p.setCooldown(path)
	go p.startProfiling(path)
}

func (p *Profiler) startProfiling(path string) {
	sanitizedPath := strings.ReplaceAll(path, "/", "_")
	filename := fmt.Sprintf("%s/profile_%s_%d.pprof", p.config.Dir, sanitizedPath, time.Now().Unix())

	f, err := os.Create(filename)
	if err != nil {
		p.logger.Error("creating profile file failed", zap.String("path", path), zap.Error(err))
		return
	}
	defer f.Close()

	if err := pprof.StartCPUProfile(f); err != nil {
		p.logger.Error("starting CPU profile failed", zap.String("path", path), zap.Error(err))
		return
	}

	time.Sleep(p.config.Duration)
	pprof.StopCPUProfile()

	p.logger.Info("CPU profile completed", zap.String("path", path), zap.String("file", filename))
}

func (p *Profiler) isCoolingDown(path string) bool {
	p.cooldownsLock.Lock()
	defer p.cooldownsLock.Unlock()

	if cooldownEnd, exists := p.cooldowns[path]; exists {
		if time.Now().Before(cooldownEnd) {
			return true
		}
		delete(p.cooldowns, path)
	}
	return false
}

func (p *Profiler) setCooldown(path string) {
	p.cooldownsLock.Lock()
	defer p.cooldownsLock.Unlock()

	p.cooldowns[path] = time.Now().Add(p.config.Cooldown)
}
