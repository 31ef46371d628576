// Package notify defines the outbound notification boundary.
package notify

import (
	"context"
	"log/slog"
)

// Sink delivers a text message to a user. Delivery is best-effort: a failure
// for one recipient must not affect others, and callers log failures rather
// than retry.
type Sink interface {
	Send(ctx context.Context, userID, text string) error
}

// LogSink writes notifications to the log. Used when no chat transport is
// connected, and in headless runs.
type LogSink struct{}

// Send logs the notification.
func (LogSink) Send(_ context.Context, userID, text string) error {
	slog.Info("notification", "user_id", userID, "text", text)
	return nil
}
