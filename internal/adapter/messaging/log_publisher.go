package messaging

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/rl1809/shop-orders/internal/core/domain"
)

// LogPublisher writes order events to the log. Used when no broker is configured.
type LogPublisher struct {
	logger zerolog.Logger
}

func NewLogPublisher(logger zerolog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger.With().Str("component", "event_log").Logger()}
}

func (p *LogPublisher) Publish(ctx context.Context, event domain.OrderEvent) error {
	p.logger.Info().
		Str("event", string(event.Type)).
		Int64("order_id", event.OrderID).
		Int64("customer_id", event.CustomerID).
		Str("status", string(event.Status)).
		Interface("lines", event.Lines).
		Time("occurred_at", event.OccurredAt).
		Msg("order event")
	return nil
}
