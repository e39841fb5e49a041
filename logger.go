package logport

import "log/slog"

// Logger is the interface for structured logging.
// It is designed to be compatible with *slog.Logger from the standard library.
// Applications can provide their own implementation or use the default slog logger.
type Logger interface {
	// Debug logs a debug-level message with optional key-value pairs.
	Debug(msg string, args ...any)
	// Info logs an info-level message with optional key-value pairs.
	Info(msg string, args ...any)
	// Warn logs a warning-level message with optional key-value pairs.
	Warn(msg string, args ...any)
	// Error logs an error-level message with optional key-value pairs.
	Error(msg string, args ...any)
}

// defaultLogger returns the default slog logger from the standard library.
func defaultLogger() Logger {
	return slog.Default()
}

// logAt routes a message to logger at the given wire severity.
// Critical records go through Error, the highest method the
// four-level Logger interface offers.
func logAt(logger Logger, level Level, msg string, args ...any) {
	switch {
	case level <= LevelDebug:
		logger.Debug(msg, args...)
	case level <= LevelInfo:
		logger.Info(msg, args...)
	case level <= LevelWarn:
		logger.Warn(msg, args...)
	default:
		logger.Error(msg, args...)
	}
}
