package uthread

import (
	"os"
	"sync"

	"github.com/rs/zerolog"
)

// Design decision: a package-level default logger, overridable per-Runtime
// via WithLogger, mirrors eventloop/logging.go's package-level global —
// scheduling diagnostics are an infrastructure cross-cutting concern, not
// something every call site should have to thread through explicitly.
var globalLogger struct {
	sync.RWMutex
	logger zerolog.Logger
}

func init() {
	globalLogger.logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(zerolog.InfoLevel).
		With().Timestamp().Logger()
}

func getDefaultLogger() zerolog.Logger {
	globalLogger.RLock()
	defer globalLogger.RUnlock()
	return globalLogger.logger
}

// SetDefaultLogger overrides the package-level default logger used by any
// Runtime created without an explicit WithLogger option.
func SetDefaultLogger(l zerolog.Logger) {
	globalLogger.Lock()
	defer globalLogger.Unlock()
	globalLogger.logger = l
}
