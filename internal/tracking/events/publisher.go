package events

import (
	"context"

	"github.com/pharmtrace/pharmtrace-backend/internal/tracking/domain"
	"github.com/pharmtrace/pharmtrace-backend/pkg/logger"
	"github.com/pharmtrace/pharmtrace-backend/pkg/messaging"
)

// Publisher emits tracking events to the message broker. Publishing is
// best-effort: ledger writes are the source of truth and must not fail
// because the broker is down, so errors are logged and swallowed.
// A nil Publisher is safe to call; it does nothing.
type Publisher struct {
	publisher *messaging.Publisher
	log       *logger.Logger
}

// NewPublisher creates a new tracking event publisher
func NewPublisher(publisher *messaging.Publisher, log *logger.Logger) *Publisher {
	return &Publisher{
		publisher: publisher,
		log:       log.WithComponent("tracking-events"),
	}
}

// PublishMovementRecorded publishes a movement-appended notification
func (p *Publisher) PublishMovementRecorded(ctx context.Context, ev *domain.MovementEvent) {
	if p == nil || p.publisher == nil {
		return
	}

	var qty *string
	if ev.Quantity != nil {
		s := ev.Quantity.String()
		qty = &s
	}

	payload := messaging.MovementRecordedEvent{
		EventID:      ev.ID,
		LabelID:      ev.LabelID,
		EventType:    string(ev.Type),
		FromLocation: ev.FromLocation,
		ToLocation:   ev.ToLocation,
		Quantity:     qty,
		Containers:   ev.Containers,
		Reason:       ev.Reason,
		ActorID:      ev.ActorID,
	}

	if err := p.publisher.Publish(ctx, messaging.EventMovementRecorded, payload); err != nil {
		p.log.Error().Err(err).
			Str("label_id", ev.LabelID).
			Str("event_type", string(ev.Type)).
			Msg("Failed to publish movement recorded event")
	}
}

// PublishQualityChanged publishes a quality-status transition notification
func (p *Publisher) PublishQualityChanged(ctx context.Context, ev *domain.QualityEvent) {
	if p == nil || p.publisher == nil {
		return
	}

	payload := messaging.QualityChangedEvent{
		EventID: ev.ID,
		LabelID: ev.LabelID,
		Status:  string(ev.Status),
		Reason:  ev.Reason,
		ActorID: ev.ActorID,
	}

	if err := p.publisher.Publish(ctx, messaging.EventQualityChanged, payload); err != nil {
		p.log.Error().Err(err).
			Str("label_id", ev.LabelID).
			Str("status", string(ev.Status)).
			Msg("Failed to publish quality changed event")
	}
}

// PublishLabelEmptied publishes a label's exit from tracked inventory
func (p *Publisher) PublishLabelEmptied(ctx context.Context, ev *domain.MovementEvent) {
	if p == nil || p.publisher == nil {
		return
	}

	location := ""
	if ev.FromLocation != nil {
		location = *ev.FromLocation
	}

	payload := messaging.LabelEmptiedEvent{
		EventID:  ev.ID,
		LabelID:  ev.LabelID,
		Location: location,
		ActorID:  ev.ActorID,
	}

	if err := p.publisher.Publish(ctx, messaging.EventLabelEmptied, payload); err != nil {
		p.log.Error().Err(err).
			Str("label_id", ev.LabelID).
			Msg("Failed to publish label emptied event")
	}
}
