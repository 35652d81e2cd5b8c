package events

import (
	"encoding/json"
	"fmt"
)

// Normalize converts a raw broker payload into a typed event. Ordering is
// only guaranteed within a single open channel; nothing is guaranteed
// across channels or across a reconnect. Unknown event types are dropped
// rather than failing the whole stream, since a newer writer may emit
// types this consumer does not know yet.
func Normalize(raw []byte) (Event, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("malformed envelope: %w", err)
	}
	return normalizeEnvelope(env)
}

func normalizeEnvelope(env Envelope) (Event, error) {
	switch env.EventType {
	case EventTypeMessageCreated, EventTypeMessageUpdated, EventTypeMessageDeleted:
		var e MessageEvent
		if err := json.Unmarshal(env.Payload, &e); err != nil {
			return nil, fmt.Errorf("malformed %s payload: %w", env.EventType, err)
		}
		e.Type = env.EventType
		return &e, nil
	case EventTypeReactionSet, EventTypeReactionCleared:
		var e ReactionEvent
		if err := json.Unmarshal(env.Payload, &e); err != nil {
			return nil, fmt.Errorf("malformed %s payload: %w", env.EventType, err)
		}
		e.Type = env.EventType
		return &e, nil
	case EventTypeReceiptRead:
		var e ReceiptEvent
		if err := json.Unmarshal(env.Payload, &e); err != nil {
			return nil, fmt.Errorf("malformed %s payload: %w", env.EventType, err)
		}
		e.Type = env.EventType
		return &e, nil
	case EventTypeTypingStarted, EventTypeTypingStopped:
		var e TypingEvent
		if err := json.Unmarshal(env.Payload, &e); err != nil {
			return nil, fmt.Errorf("malformed %s payload: %w", env.EventType, err)
		}
		e.Type = env.EventType
		e.IsTyping = env.EventType == EventTypeTypingStarted
		return &e, nil
	case EventTypeParticipantJoined, EventTypeParticipantLeft:
		var e ParticipantEvent
		if err := json.Unmarshal(env.Payload, &e); err != nil {
			return nil, fmt.Errorf("malformed %s payload: %w", env.EventType, err)
		}
		e.Type = env.EventType
		return &e, nil
	case EventTypeConversationCreated, EventTypeConversationHidden, EventTypeConversationRevealed:
		var e ConversationEvent
		if err := json.Unmarshal(env.Payload, &e); err != nil {
			return nil, fmt.Errorf("malformed %s payload: %w", env.EventType, err)
		}
		e.Type = env.EventType
		return &e, nil
	}
	return nil, nil
}
