package service

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/afftrack/afftrack/internal/app/model"
	infraProm "github.com/afftrack/afftrack/internal/infra/prometheus"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// EventConsumer drains the tracking stream and folds events into Prometheus
// metrics, keeping instrumentation off the redirect and postback hot paths.
type EventConsumer struct {
	js       nats.JetStreamContext
	logger   *zap.Logger
	metrics  *infraProm.Metrics
	stopChan chan struct{}
}

// NewEventConsumer creates a tracking event consumer.
func NewEventConsumer(js nats.JetStreamContext, logger *zap.Logger, metrics *infraProm.Metrics) *EventConsumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventConsumer{
		js:       js,
		logger:   logger,
		metrics:  metrics,
		stopChan: make(chan struct{}),
	}
}

// Start ensures the stream and durable consumer exist and begins consuming.
func (c *EventConsumer) Start() error {
	_, err := c.js.StreamInfo(model.TrackingStreamName)
	if err != nil {
		_, err = c.js.AddStream(&nats.StreamConfig{
			Name:     model.TrackingStreamName,
			Subjects: []string{model.TrackingStreamSubject},
			MaxBytes: model.TrackingStreamMaxBytes,
		})
		if err != nil {
			return fmt.Errorf("failed to create stream: %w", err)
		}
	}

	_, err = c.js.ConsumerInfo(model.TrackingStreamName, model.TrackingConsumerName)
	if err != nil {
		_, err = c.js.AddConsumer(model.TrackingStreamName, &nats.ConsumerConfig{
			Durable:   model.TrackingConsumerName,
			AckPolicy: nats.AckExplicitPolicy,
		})
		if err != nil {
			return fmt.Errorf("failed to create consumer: %w", err)
		}
	}

	sub, err := c.js.PullSubscribe(model.TrackingStreamSubject, model.TrackingConsumerName)
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	go c.consume(sub)
	return nil
}

// Stop ends the consume loop after the in-flight fetch completes.
func (c *EventConsumer) Stop() {
	close(c.stopChan)
}

func (c *EventConsumer) consume(sub *nats.Subscription) {
	for {
		select {
		case <-c.stopChan:
			_ = sub.Unsubscribe()
			c.logger.Info("tracking event consumer stopped")
			return
		default:
		}

		msgs, err := sub.Fetch(10, nats.MaxWait(5*time.Second))
		if err != nil && err != nats.ErrTimeout {
			c.logger.Error("failed to fetch tracking events", zap.Error(err))
			continue
		}

		for _, msg := range msgs {
			var event model.TrackingEvent
			if err := json.Unmarshal(msg.Data, &event); err != nil {
				c.logger.Error("failed to unmarshal tracking event", zap.Error(err))
				msg.Nak()
				continue
			}

			c.apply(event)
			msg.Ack()
		}
	}
}

func (c *EventConsumer) apply(event model.TrackingEvent) {
	if c.metrics != nil {
		if !event.Timestamp.IsZero() {
			c.metrics.EventLag.Observe(time.Since(event.Timestamp).Seconds())
		}
		switch event.Kind {
		case model.EventKindClick:
			c.metrics.Clicks.WithLabelValues(strconv.FormatBool(event.IsUnique)).Inc()
		case model.EventKindConversion:
			c.metrics.Conversions.Inc()
			c.metrics.Revenue.Add(event.Payout)
		}
	}

	c.logger.Debug("tracking event consumed",
		zap.String("kind", event.Kind),
		zap.String("link_hash", event.LinkHash),
		zap.String("tracking_id", event.TrackingID),
		zap.Time("timestamp", event.Timestamp),
	)
}
