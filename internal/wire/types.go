package wire

import (
	"time"

	"github.com/google/uuid"
)

// Version is the SDK version stamped on every outbound batch.
const Version = "2.3.0"

// Event is a single tracked event as it appears on the wire.
//
// Events are immutable once constructed: they are queued, then either
// transmitted or parked in the durable failed buffer. Nothing mutates an
// Event after NewEvent returns.
type Event struct {
	EventID           string         `json:"event_id"`
	EventType         string         `json:"event_type"`
	Timestamp         int64          `json:"timestamp"` // unix milliseconds
	UserID            string         `json:"user_id"`
	SessionID         string         `json:"session_id"`
	PageURL           string         `json:"page_url"`
	DeviceFingerprint Fingerprint    `json:"device_fingerprint"`
	Platform          string         `json:"platform"`
	Properties        map[string]any `json:"properties,omitempty"`
}

// NewEvent constructs an Event with a fresh UUID and the given timestamp.
func NewEvent(eventType string, ts time.Time) Event {
	return Event{
		EventID:   uuid.NewString(),
		EventType: eventType,
		Timestamp: ts.UnixMilli(),
	}
}

// Batch is the envelope for one HTTP send.
//
// The collection endpoint accepts up to the configured batch size of events
// per request; Timestamp records the send time, not the event times.
type Batch struct {
	ProjectID string  `json:"project_id"`
	Events    []Event `json:"events"`
	Version   string  `json:"version"`
	Timestamp int64   `json:"timestamp"`
}

// Fingerprint is a snapshot of device/browser characteristics attached to
// every event for cross-event correlation. Captured once per page life.
type Fingerprint struct {
	ScreenWidth  int    `json:"screen_width,omitempty"`
	ScreenHeight int    `json:"screen_height,omitempty"`
	Language     string `json:"language,omitempty"`
	Timezone     string `json:"timezone,omitempty"`
	Platform     string `json:"platform,omitempty"`
	TouchSupport bool   `json:"touch_support,omitempty"`
	UserAgent    string `json:"user_agent,omitempty"`
}
