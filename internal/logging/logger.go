// Package logging provides config-driven categorized logging for the-forge.
// Each subsystem gets its own named logger backed by a shared zap core;
// debug-level output is gated by the debug flag loaded at Initialize time.
package logging

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category identifies the subsystem a logger belongs to.
type Category string

const (
	CategoryPlant        Category = "plant"
	CategoryPreparation  Category = "preparation"
	CategoryExecution    Category = "execution"
	CategoryFeedback     Category = "feedback"
	CategoryTools        Category = "tools"
	CategoryRouter       Category = "router"
	CategoryPattern      Category = "pattern"
	CategoryQuality      Category = "quality"
	CategoryStateMachine Category = "statemachine"
	CategoryWorker       Category = "worker"
	CategoryPersistence  Category = "persistence"
	CategoryLLM          Category = "llm"
	CategoryContextPack  Category = "contextpack"
	CategoryDiffApply    Category = "diffapply"
)

var (
	mu       sync.RWMutex
	base     *zap.Logger
	loggers  = make(map[Category]*zap.SugaredLogger)
	debugOn  bool
	devMode  bool
	initOnce sync.Once
)

// Initialize configures the shared zap core. debug gates Debug()-level
// output; dev switches from JSON to a human-readable console encoder.
// Safe to call multiple times; only the first call takes effect per
// process unless Reset is used (tests only).
func Initialize(debug bool, dev bool) {
	initOnce.Do(func() {
		debugOn = debug
		devMode = dev
		base = buildLogger(debug, dev)
	})
}

// Reset tears down the shared state so tests can re-Initialize with
// different settings.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	if base != nil {
		_ = base.Sync()
	}
	base = nil
	loggers = make(map[Category]*zap.SugaredLogger)
	initOnce = sync.Once{}
}

func buildLogger(debug, dev bool) *zap.Logger {
	level := zapcore.InfoLevel
	if debug {
		level = zapcore.DebugLevel
	}

	cfg := zap.NewProductionConfig()
	if dev {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.DisableStacktrace = !debug

	l, err := cfg.Build()
	if err != nil {
		// Fall back to a no-op logger rather than panic; logging must
		// never be able to take the pipeline down.
		return zap.NewNop()
	}
	return l
}

// Get returns (creating if needed) the logger for category.
func Get(category Category) *zap.SugaredLogger {
	mu.RLock()
	if l, ok := loggers[category]; ok {
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if l, ok := loggers[category]; ok {
		return l
	}
	if base == nil {
		base = buildLogger(false, false)
	}
	l := base.With(zap.String("category", string(category))).Sugar()
	loggers[category] = l
	return l
}

// IsDebugEnabled reports whether Debug-level logging is currently on.
func IsDebugEnabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return debugOn
}

// Sync flushes all buffered log entries. Call at process shutdown.
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	if base != nil {
		_ = base.Sync()
	}
}
