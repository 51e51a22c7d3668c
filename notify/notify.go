// Package notify is the human-facing failure/success surface. Callers report
// to it and never depend on what it does with the message.
package notify

import (
	"context"
	"log/slog"
)

type Notifier interface {
	Success(ctx context.Context, msg string)
	Failure(ctx context.Context, msg string, err error)
}

// Logger writes notifications to slog.
type Logger struct {
	logger *slog.Logger
}

var _ Notifier = (*Logger)(nil)

func NewLogger(logger *slog.Logger) *Logger {
	if logger == nil {
		logger = slog.Default()
	}

	return &Logger{logger: logger}
}

func (l *Logger) Success(ctx context.Context, msg string) {
	l.logger.InfoContext(ctx, msg)
}

func (l *Logger) Failure(ctx context.Context, msg string, err error) {
	l.logger.WarnContext(ctx, msg, "error", err)
}

// Discard drops every notification.
type Discard struct{}

var _ Notifier = Discard{}

func (Discard) Success(context.Context, string)        {}
func (Discard) Failure(context.Context, string, error) {}
