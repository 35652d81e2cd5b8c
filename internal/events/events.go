package events

import (
	"time"

	"github.com/google/uuid"
)

// Event is the typed vocabulary consumed by the tracker, the visibility
// manager and connected sessions. Delivery is at-least-once: the same
// logical change may arrive more than once, so consumers dedupe by the
// entity id carried on each event.
type Event interface {
	EventType() string
	Conversation() uuid.UUID
}

type MessageEvent struct {
	Type           string     `json:"type"`
	MessageID      uuid.UUID  `json:"message_id"`
	ConversationID uuid.UUID  `json:"conversation_id"`
	AuthorID       uuid.UUID  `json:"author_id"`
	Content        string     `json:"content"`
	CreatedAt      time.Time  `json:"created_at"`
	EditedAt       *time.Time `json:"edited_at,omitempty"`
	DeletedAt      *time.Time `json:"deleted_at,omitempty"`
}

func (e *MessageEvent) EventType() string       { return e.Type }
func (e *MessageEvent) Conversation() uuid.UUID { return e.ConversationID }

type ReactionEvent struct {
	Type           string    `json:"type"`
	MessageID      uuid.UUID `json:"message_id"`
	ConversationID uuid.UUID `json:"conversation_id"`
	UserID         uuid.UUID `json:"user_id"`
	ReactionType   string    `json:"reaction_type"`
}

func (e *ReactionEvent) EventType() string       { return e.Type }
func (e *ReactionEvent) Conversation() uuid.UUID { return e.ConversationID }

type ReceiptEvent struct {
	Type           string    `json:"type"`
	ConversationID uuid.UUID `json:"conversation_id"`
	UserID         uuid.UUID `json:"user_id"`
	LastReadAt     time.Time `json:"last_read_at"`
}

func (e *ReceiptEvent) EventType() string       { return e.Type }
func (e *ReceiptEvent) Conversation() uuid.UUID { return e.ConversationID }

type TypingEvent struct {
	Type           string    `json:"type"`
	ConversationID uuid.UUID `json:"conversation_id"`
	UserID         uuid.UUID `json:"user_id"`
	IsTyping       bool      `json:"is_typing"`
	At             time.Time `json:"at"`
}

func (e *TypingEvent) EventType() string       { return e.Type }
func (e *TypingEvent) Conversation() uuid.UUID { return e.ConversationID }

type ParticipantEvent struct {
	Type           string    `json:"type"`
	ConversationID uuid.UUID `json:"conversation_id"`
	UserID         uuid.UUID `json:"user_id"`
}

func (e *ParticipantEvent) EventType() string       { return e.Type }
func (e *ParticipantEvent) Conversation() uuid.UUID { return e.ConversationID }

type ConversationEvent struct {
	Type           string    `json:"type"`
	ConversationID uuid.UUID `json:"conversation_id"`
	Kind           string    `json:"kind"`
	Title          string    `json:"title,omitempty"`
	ActorID        uuid.UUID `json:"actor_id"`
}

func (e *ConversationEvent) EventType() string       { return e.Type }
func (e *ConversationEvent) Conversation() uuid.UUID { return e.ConversationID }
