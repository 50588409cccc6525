package event

import "time"

// Envelope is the versioned wrapper around every message this service
// publishes. Consumers that only care about the payload can ignore the rest.
type Envelope[T any] struct {
	Version    int       `json:"version"`
	Producer   string    `json:"producer"`
	TraceID    string    `json:"trace_id,omitempty"`
	MessageID  string    `json:"message_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    T         `json:"payload"`
}

// StayCreatedPayload is published on the stay.created routing key whenever a
// reservation is written. HostID is null for a host's own stay.
type StayCreatedPayload struct {
	StayDate int     `json:"stay_date"`
	UserID   string  `json:"user_id"`
	HostID   *string `json:"host_id"`
	IsHost   bool    `json:"is_host"`
}
