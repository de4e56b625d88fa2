// Package events provides EventSink implementations: a structured-log
// sink and a websocket hub that fans lifecycle events out to connected
// clients, replacing the original socket.io broadcast.
package events

import (
	"context"
	"log/slog"
)

// LogSink publishes events to a structured logger. Useful in development
// and as a default when no websocket hub is wired.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a logging event sink.
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

// Publish logs the event and returns nil.
func (s *LogSink) Publish(ctx context.Context, event string, payload any) error {
	s.logger.Info("resource event", "event", event, "payload", payload)
	return nil
}
