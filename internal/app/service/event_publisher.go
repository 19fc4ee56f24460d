package service

import (
	"encoding/json"
	"time"

	"github.com/afftrack/afftrack/internal/app/model"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// EventPublisher publishes tracking events to NATS JetStream after the
// synchronous writes succeed. Publish failures are logged and dropped; the
// event stream feeds metrics and exports, never the source of truth.
type EventPublisher struct {
	js     nats.JetStreamContext
	logger *zap.Logger
}

// NewEventPublisher creates a tracking event publisher.
func NewEventPublisher(js nats.JetStreamContext, logger *zap.Logger) *EventPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventPublisher{js: js, logger: logger}
}

// PublishClick emits a click event for the given stored click.
func (p *EventPublisher) PublishClick(click *model.Click) {
	p.publish(model.TrackingEvent{
		ID:         click.ID,
		Kind:       model.EventKindClick,
		LinkHash:   click.LinkHash,
		OwnerID:    click.OwnerID,
		TrackingID: click.TrackingID,
		IsUnique:   click.IsUnique,
		Timestamp:  click.Timestamp,
	})
}

// PublishConversion emits a conversion event for the given stored conversion.
func (p *EventPublisher) PublishConversion(conv *model.Conversion) {
	p.publish(model.TrackingEvent{
		ID:         conv.ID,
		Kind:       model.EventKindConversion,
		LinkHash:   conv.LinkHash,
		OwnerID:    conv.OwnerID,
		TrackingID: conv.TrackingID,
		Payout:     conv.PayoutAmount,
		Timestamp:  conv.ConvertedAt,
	})
}

func (p *EventPublisher) publish(event model.TrackingEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("failed to marshal tracking event",
			zap.String("kind", event.Kind), zap.Error(err))
		return
	}

	if _, err := p.js.Publish(model.TrackingStreamSubject, data); err != nil {
		p.logger.Error("failed to publish tracking event",
			zap.String("kind", event.Kind),
			zap.String("tracking_id", event.TrackingID),
			zap.Error(err))
	}
}
