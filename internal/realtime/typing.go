package realtime

import (
	"context"
	"encoding/json"
	"time"

	"relay-chat/internal/events"
	relay_errors "relay-chat/pkg/errors"

	"github.com/google/uuid"
)

// TypingPublisher emits typing signals straight to the broker. Used by
// the HTTP surface, which has no channel handle of its own.
type TypingPublisher struct {
	broker Broker
}

func NewTypingPublisher(b Broker) *TypingPublisher {
	return &TypingPublisher{broker: b}
}

func (p *TypingPublisher) BroadcastTyping(ctx context.Context, conversationID, userID uuid.UUID, isTyping bool) error {
	return publishTyping(ctx, p.broker, conversationID, userID, isTyping)
}

func publishTyping(ctx context.Context, b Broker, conversationID, userID uuid.UUID, isTyping bool) error {
	eventType := events.EventTypeTypingStarted
	if !isTyping {
		eventType = events.EventTypeTypingStopped
	}
	now := time.Now()
	payload, err := json.Marshal(&events.TypingEvent{
		Type:           eventType,
		ConversationID: conversationID,
		UserID:         userID,
		IsTyping:       isTyping,
		At:             now,
	})
	if err != nil {
		return err
	}
	env, err := json.Marshal(events.Envelope{
		EventType:     eventType,
		AggregateType: events.AggregateTypeTyping,
		AggregateID:   conversationID.String(),
		OccurredAt:    now,
		Payload:       payload,
	})
	if err != nil {
		return err
	}

	if err := b.Publish(ctx, events.ConversationChannel(conversationID.String()), env); err != nil {
		return relay_errors.Transport(err)
	}
	return nil
}
