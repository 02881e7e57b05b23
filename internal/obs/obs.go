// Package obs provides the engine's structured logging. It wraps
// go.uber.org/zap with a handful of named, per-component loggers rather
// than one global logger, so each core component can be silenced or
// filtered independently.
package obs

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu      sync.Mutex
	root    *zap.Logger
	named   = map[string]*zap.SugaredLogger{}
	verbose bool
)

// Init builds the root logger. Call once from main(); safe to call again
// in tests. When v is true the level is lowered to Debug, mirroring the
// --verbose flag behavior of the CLI adapter.
func Init(v bool) error {
	mu.Lock()
	defer mu.Unlock()

	verbose = v
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if v {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	l, err := cfg.Build()
	if err != nil {
		return err
	}
	root = l
	named = map[string]*zap.SugaredLogger{}
	return nil
}

func ensureRoot() *zap.Logger {
	mu.Lock()
	defer mu.Unlock()
	if root == nil {
		root = zap.NewNop()
	}
	return root
}

// Named returns (creating if needed) the sugared logger for component.
func Named(component string) *zap.SugaredLogger {
	mu.Lock()
	if l, ok := named[component]; ok {
		mu.Unlock()
		return l
	}
	mu.Unlock()

	l := ensureRoot().Named(component).Sugar()
	mu.Lock()
	named[component] = l
	mu.Unlock()
	return l
}

// Trace logs a "→ rendered command" line the way the executor announces
// a command before running it. It is its own logger name so a caller can
// silence command tracing (the `@` silent prefix) independently of other
// exec logging.
func Trace(rendered string) {
	Named("trace").Infof("→ %s", rendered)
}

// Sync flushes any buffered log entries. Call from main() on exit.
func Sync() {
	mu.Lock()
	r := root
	mu.Unlock()
	if r != nil {
		_ = r.Sync()
	}
}
