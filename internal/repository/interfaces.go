package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"relay-chat/internal/domain/conversation"
	"relay-chat/internal/domain/message"
	"relay-chat/internal/domain/outbox"
)

type ConversationRepository interface {
	Create(ctx context.Context, c *conversation.Conversation) error
	GetByID(ctx context.Context, id uuid.UUID) (conversation.Conversation, error)
	GetDirect(ctx context.Context, userA, userB uuid.UUID) (conversation.Conversation, error)
	ListForUser(ctx context.Context, userID uuid.UUID, includeHidden bool) ([]conversation.Conversation, error)

	AddParticipant(ctx context.Context, p *conversation.Participant) error
	GetParticipant(ctx context.Context, conversationID, userID uuid.UUID) (conversation.Participant, error)
	GetParticipants(ctx context.Context, conversationID uuid.UUID) ([]conversation.Participant, error)

	SetHidden(ctx context.Context, conversationID, userID uuid.UUID, at time.Time) error
	ClearHidden(ctx context.Context, conversationID, userID uuid.UUID) error
	// RevealHiddenBefore clears HiddenAt for every participant other than
	// exceptUserID whose hide predates cutoff, returning the affected
	// user ids.
	RevealHiddenBefore(ctx context.Context, conversationID uuid.UUID, exceptUserID uuid.UUID, cutoff time.Time) ([]uuid.UUID, error)

	GetReceipt(ctx context.Context, conversationID, userID uuid.UUID) (conversation.ReadReceipt, error)
	// AdvanceReceipt writes the read position only if it moves forward.
	// A stale write reports advanced=false and no error.
	AdvanceReceipt(ctx context.Context, r conversation.ReadReceipt) (advanced bool, err error)
}

type MessageRepository interface {
	Create(ctx context.Context, m *message.Message) error
	GetByID(ctx context.Context, id uuid.UUID) (message.Message, error)
	SetContent(ctx context.Context, id uuid.UUID, content string, editedAt time.Time) error
	// SoftDelete redacts content and sets the tombstone timestamp; the row
	// and its id survive for ordering and dedup.
	SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) error
	ListByConversation(ctx context.Context, conversationID uuid.UUID, before time.Time, limit int) ([]message.Message, error)
	// ListUnread returns non-deleted messages by other authors created
	// strictly after `after`, oldest first.
	ListUnread(ctx context.Context, conversationID, excludeAuthor uuid.UUID, after time.Time) ([]message.Message, error)
	CountSince(ctx context.Context, conversationID, excludeAuthor uuid.UUID, after time.Time) (int64, error)
	// CountUnreadTotal aggregates unread messages across every
	// conversation the user has not hidden.
	CountUnreadTotal(ctx context.Context, userID uuid.UUID) (int64, error)

	GetReaction(ctx context.Context, messageID, userID uuid.UUID) (message.Reaction, error)
	UpsertReaction(ctx context.Context, r *message.Reaction) error
	DeleteReaction(ctx context.Context, messageID, userID uuid.UUID) error
	ListReactions(ctx context.Context, messageID uuid.UUID) ([]message.Reaction, error)
}

type OutboxRepository interface {
	Create(ctx context.Context, e *outbox.OutboxEvent) error
	GetPending(ctx context.Context, limit int) ([]outbox.OutboxEvent, error)
	MarkProcessed(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, nextRetry time.Time, cause string) error
	MarkDead(ctx context.Context, id uuid.UUID, cause string) error
}

// Repositories bundles the repository set bound to one database handle,
// either the pooled connection or a single transaction.
type Repositories struct {
	Conversations ConversationRepository
	Messages      MessageRepository
	Outbox        OutboxRepository
}

// TxManager runs a function with repositories bound to one transaction.
// The store relies on it to make every mutation and its outbox row
// atomic.
type TxManager interface {
	Repos() Repositories
	WithinTx(ctx context.Context, fn func(r Repositories) error) error
}
