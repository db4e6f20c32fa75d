// Package observability centralizes structured logging (zap), tracing
// (otel), and metrics (prometheus) for the agent service. Library code
// never calls log.Printf; only cmd/ entrypoints fall back to the stdlib
// logger for pre-logger bootstrap failures.
package observability

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds the process-wide zap logger. env selects the preset:
// "production" gets JSON output at info level, anything else gets a
// human-readable development console at debug level.
func NewLogger(env string) (*zap.Logger, error) {
	if env == "production" {
		cfg := zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "timestamp"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		return cfg.Build()
	}
	return zap.NewDevelopment()
}

// WithTraceID returns a child logger that tags every entry with the
// request's trace id, threading it through plan, run, and knowledge
// records per §7's propagation policy.
func WithTraceID(logger *zap.Logger, traceID string) *zap.Logger {
	return logger.With(zap.String("trace_id", traceID))
}
