// Package notify fans fired alerts out to external destinations
package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/udayhese96/Gemscap-Assignment/internal/alert"
	"github.com/udayhese96/Gemscap-Assignment/pkg/logger"
)

// Sink delivers a fired alert to some destination. Implementations must be
// safe for concurrent use; delivery failures are logged by the caller, not
// retried.
type Sink interface {
	Publish(ctx context.Context, a alert.Alert) error
	Close() error
}

// LogSink writes alerts to the structured log. Always wired; it is the
// delivery of last resort when no external sink is configured.
type LogSink struct{}

// NewLogSink creates a log-backed sink
func NewLogSink() *LogSink {
	return &LogSink{}
}

// Publish logs the alert at a level matching its severity
func (s *LogSink) Publish(_ context.Context, a alert.Alert) error {
	fields := []zap.Field{
		logger.String("rule", a.Rule),
		logger.String("symbol", a.Symbol),
		logger.Float64("value", a.Value),
		logger.Time("at", a.Timestamp),
	}
	switch a.Severity {
	case alert.SeverityCritical:
		logger.Error(a.Message, fields...)
	case alert.SeverityWarning:
		logger.Warn(a.Message, fields...)
	default:
		logger.Info(a.Message, fields...)
	}
	return nil
}

// Close is a no-op
func (s *LogSink) Close() error {
	return nil
}
