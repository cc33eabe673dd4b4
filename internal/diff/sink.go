package diff

import (
	"context"
	"log/slog"
)

// LogSink writes every change to the structured log.
type LogSink struct {
	Logger *slog.Logger
}

func (s *LogSink) Publish(ctx context.Context, change Change) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.DebugContext(ctx, "change",
		"dataset", change.Dataset,
		"type", string(change.Kind),
		"action", string(change.Action),
		"data", string(change.Data),
	)
	return nil
}
