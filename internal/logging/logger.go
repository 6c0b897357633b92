// Package logging holds the package-level zap logger used by tidycsv internals.
package logging

import (
	"sync/atomic"

	"go.uber.org/zap"
)

// logger defaults to nil, which makes L() hand out a no-op logger.
var logger atomic.Pointer[zap.Logger]

// SetLogger configures the package-level logger. Pass nil to disable logging.
//
// SetLogger is safe for concurrent use.
func SetLogger(l *zap.Logger) {
	if l == nil {
		logger.Store(zap.NewNop())
		return
	}
	logger.Store(l)
}

// L returns the package-level logger, or a no-op logger if none was set.
func L() *zap.Logger {
	l := logger.Load()
	if l == nil {
		l = zap.NewNop()
		logger.Store(l)
	}
	return l
}

// NewDebug builds a human readable development logger writing to stderr.
func NewDebug() (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.DisableStacktrace = true
	return cfg.Build()
}
