package events

import (
	"context"
	"log/slog"

	"github.com/simaogato/shiftescrow-backend/internal/domain"
)

// Publisher delivers one domain event to the notification collaborators
type Publisher interface {
	Publish(ctx context.Context, event domain.Event) error
}

// LoggingPublisher logs events instead of sending them; used when no broker is configured
type LoggingPublisher struct {
	logger *slog.Logger
}

func NewLoggingPublisher(logger *slog.Logger) *LoggingPublisher {
	return &LoggingPublisher{logger: logger}
}

func (p *LoggingPublisher) Publish(ctx context.Context, event domain.Event) error {
	p.logger.InfoContext(ctx, "event published",
		"module", "events.publisher",
		"layer", "adapter",
		"operation", "publish",
		"outcome", "success",
		"event_id", event.ID.String(),
		"event_type", string(event.Type),
		"aggregate_id", event.AggregateID.String(),
		"recipients", len(event.Recipients),
	)
	return nil
}
