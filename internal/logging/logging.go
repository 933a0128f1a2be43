// Package logging provides a small categorized wrapper around zap for the
// cortex engine and its front-ends. Every subsystem logs through one of the
// Category constants below, so a single log line can always be attributed
// to store/index/policy/config/client/adapter without per-call boilerplate.
package logging

import (
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category identifies the subsystem emitting a log line.
type Category string

const (
	CategoryStore   Category = "store"
	CategoryIndex   Category = "index"
	CategoryPolicy  Category = "policy"
	CategoryConfig  Category = "config"
	CategoryClient  Category = "client"
	CategoryAdapter Category = "adapter"
)

var (
	mu      sync.RWMutex
	base    *zap.Logger = zap.NewNop()
	started bool
)

// Init builds the process-wide zap.Logger used by every Get(category) call.
// debug enables debug-level output; jsonFormat switches the encoder from a
// human-readable console format to structured JSON (for log aggregation).
// Init is safe to call more than once; the most recent call wins.
func Init(debug bool, jsonFormat bool) error {
	level := zapcore.InfoLevel
	if debug {
		level = zapcore.DebugLevel
	}

	cfg := zap.NewProductionConfig()
	if !jsonFormat {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(level)

	l, err := cfg.Build()
	if err != nil {
		return err
	}

	mu.Lock()
	defer mu.Unlock()
	base = l
	started = true
	return nil
}

// Get returns a zap.Logger scoped to category. Safe to call before Init;
// logs are simply discarded (zap.NewNop) until Init runs.
func Get(category Category) *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base.With(zap.String("category", string(category)))
}

// Sync flushes any buffered log entries. Call during shutdown.
func Sync() error {
	mu.RLock()
	defer mu.RUnlock()
	if !started {
		return nil
	}
	return base.Sync()
}

// Timer measures the duration of a named operation within a category and
// logs it at debug level when stopped. Mirrors the teacher's
// StartTimer/Stop pattern for hot-path instrumentation (index rebuilds,
// adapter round-trips).
type Timer struct {
	category Category
	op       string
	start    time.Time
}

// StartTimer begins timing op within category.
func StartTimer(category Category, op string) *Timer {
	return &Timer{category: category, op: op, start: time.Now()}
}

// Stop logs the elapsed duration since StartTimer at debug level.
func (t *Timer) Stop() {
	Get(t.category).Debug("operation complete",
		zap.String("op", t.op),
		zap.Duration("elapsed", time.Since(t.start)),
	)
}
