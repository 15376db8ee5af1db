// Package monitoring holds the process-wide diagnostic logger.
package monitoring

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logf is the package-level diagnostic logger. It defaults to a zap
// production logger but may be replaced by SetLogger or Use. Tests or
// production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = defaultLogf()

// Debugf is the verbose counterpart of Logf used for per-stage tracing.
var Debugf func(format string, v ...interface{}) = func(string, ...interface{}) {}

func defaultLogf() func(string, ...interface{}) {
	l, err := zap.NewProduction()
	if err != nil {
		return func(string, ...interface{}) {}
	}
	return l.Sugar().Infof
}

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// Use routes both Logf and Debugf through l.
func Use(l *zap.Logger) {
	if l == nil {
		SetLogger(nil)
		Debugf = func(string, ...interface{}) {}
		return
	}
	s := l.Sugar()
	Logf = s.Infof
	Debugf = s.Debugf
}

// NewLogger builds a zap logger at the given level ("debug", "info",
// "warn", "error"). Development mode uses the console encoder.
func NewLogger(level string, development bool) (*zap.Logger, error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	cfg := zap.NewProductionConfig()
	if development {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}
