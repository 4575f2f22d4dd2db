package debug

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// named returns the debug child of logger. A nil logger is silent.
func named(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger.Named("debug")
}

// DebugHeader prints debug header if debugging is enabled
func DebugHeader(logger *zap.Logger, enabled bool) {
	if enabled {
		named(logger).Debug("=== DEBUG START ===")
	}
}

// DebugFooter prints debug footer if debugging is enabled
func DebugFooter(logger *zap.Logger, enabled bool) {
	if enabled {
		named(logger).Debug("=== DEBUG END ===")
	}
}

// DebugOutput prints debug output if debugging is enabled
func DebugOutput(logger *zap.Logger, enabled bool, format string, args ...interface{}) {
	if enabled {
		named(logger).Debug(fmt.Sprintf(format, args...))
	}
}

// DebugTiming measures and logs execution time if debugging is enabled
func DebugTiming(logger *zap.Logger, enabled bool, operation string) func() {
	if !enabled {
		return func() {}
	}

	start := time.Now()
	DebugOutput(logger, enabled, "Starting: %s", operation)

	return func() {
		named(logger).Debug("Completed: "+operation, zap.Duration("took", time.Since(start)))
	}
}
