package events

import (
	"encoding/json"
	"time"
)

// Envelope is the wire shape every broker payload travels in, whether it
// came from the outbox change feed or from an ephemeral broadcast.
type Envelope struct {
	EventType     string          `json:"event_type"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Payload       json.RawMessage `json:"payload"`
}
