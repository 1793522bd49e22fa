package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/booklend/apiserver/internal/mq"
	"github.com/booklend/apiserver/types"
	"go.uber.org/zap"
)

// Rental lifecycle event types published to the broker.
const (
	EventRentalCheckedOut = "rental.checked_out"
	EventRentalReturned   = "rental.returned"
	EventRentalCanceled   = "rental.canceled"
)

// RentalEvent is the payload published on rental transitions.
type RentalEvent struct {
	Type       string    `json:"type"`
	RentalID   string    `json:"rental_id"`
	BookID     string    `json:"book_id"`
	UserID     string    `json:"user_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// EventPublisher publishes rental events best-effort: broker failures are
// logged and never fail the originating request. A nil publisher or nil
// broker disables publishing.
type EventPublisher struct {
	mq      *mq.MQ
	channel string
	logger  *zap.Logger
}

func NewEventPublisher(broker *mq.MQ, channel string, logger *zap.Logger) *EventPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventPublisher{mq: broker, channel: channel, logger: logger}
}

func (p *EventPublisher) Publish(ctx context.Context, eventType string, rental types.Rental) {
	if p == nil || p.mq == nil {
		return
	}

	event := RentalEvent{
		Type:       eventType,
		RentalID:   rental.ID,
		BookID:     rental.BookID,
		UserID:     rental.UserID,
		OccurredAt: time.Now(),
	}
	data, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("marshal rental event", zap.Error(err))
		return
	}

	attrs := map[string]string{"type": eventType}
	if _, err := p.mq.Publish(ctx, p.channel, data, attrs); err != nil {
		p.logger.Error("publish rental event",
			zap.String("type", eventType),
			zap.String("rental_id", rental.ID),
			zap.Error(err),
		)
	}
}
