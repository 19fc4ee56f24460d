package model

import "time"

// TrackingEvent is published to JetStream after every successful click or
// conversion write so downstream consumers (metrics, exports) see the raw
// event stream without touching the hot path.
type TrackingEvent struct {
	ID         string    `json:"id"`
	Kind       string    `json:"kind"` // "click" or "conversion"
	LinkHash   string    `json:"link_hash"`
	OwnerID    string    `json:"owner_id"`
	TrackingID string    `json:"tracking_id"`
	IsUnique   bool      `json:"is_unique,omitempty"`
	Payout     float64   `json:"payout,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

const (
	EventKindClick      = "click"
	EventKindConversion = "conversion"

	TrackingStreamName     = "TRACKING"
	TrackingStreamSubject  = "tracking.events"
	TrackingConsumerName   = "tracking-metrics"
	TrackingStreamMaxBytes = 1024 * 1024 * 100 // 100MB
)
