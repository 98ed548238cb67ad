package logger

import (
	"github.com/meadowbrook-ops/invoice-pipeline/internal/domain/port/core"
)

// NoopLogger discards all log output; used in tests that do not assert on
// logging
type NoopLogger struct{}

// NewNoopLogger creates a no-op logger
func NewNoopLogger() core.Logger {
	return &NoopLogger{}
}

// SetLevel does nothing
func (l *NoopLogger) SetLevel(core.LogLevel) {}

// Debug does nothing
func (l *NoopLogger) Debug(string, map[string]any) {}

// Info does nothing
func (l *NoopLogger) Info(string, map[string]any) {}

// Warn does nothing
func (l *NoopLogger) Warn(string, map[string]any) {}

// Error does nothing
func (l *NoopLogger) Error(string, map[string]any) {}

// Flush does nothing
func (l *NoopLogger) Flush() error { return nil }
