package store

import (
	"context"
	"errors"
	"time"

	"relay-chat/internal/domain/conversation"
	"relay-chat/internal/domain/message"
	"relay-chat/internal/events"
	"relay-chat/internal/repository"
	relay_errors "relay-chat/pkg/errors"

	"github.com/google/uuid"
)

// MarkRead advances the caller's read position. A stale timestamp is a
// silent no-op, never an error; that single rule keeps concurrent
// mark-reads safe without locks.
func (s *Store) MarkRead(ctx context.Context, conversationID, userID uuid.UUID, at time.Time) (advanced bool, err error) {
	if _, err := s.tx.Repos().Conversations.GetParticipant(ctx, conversationID, userID); err != nil {
		return false, err
	}

	err = s.tx.WithinTx(ctx, func(r repository.Repositories) error {
		moved, err := r.Conversations.AdvanceReceipt(ctx, conversation.ReadReceipt{
			ConversationID: conversationID,
			UserID:         userID,
			LastReadAt:     at,
		})
		if err != nil {
			return err
		}
		advanced = moved
		if !moved {
			return nil
		}
		return appendOutbox(ctx, r, events.EventTypeReceiptRead, events.AggregateTypeReceipt, conversationID.String(), &events.ReceiptEvent{
			Type:           events.EventTypeReceiptRead,
			ConversationID: conversationID,
			UserID:         userID,
			LastReadAt:     at,
		})
	})
	return advanced, err
}

// ReadReceipt returns the stored read position, zero-valued when the
// user never read the conversation.
func (s *Store) ReadReceipt(ctx context.Context, conversationID, userID uuid.UUID) (conversation.ReadReceipt, error) {
	receipt, err := s.tx.Repos().Conversations.GetReceipt(ctx, conversationID, userID)
	if err != nil {
		if errors.Is(err, relay_errors.ErrNotFound) {
			return conversation.ReadReceipt{ConversationID: conversationID, UserID: userID}, nil
		}
		return conversation.ReadReceipt{}, err
	}
	return receipt, nil
}

// UnreadCount computes the live unread count for one conversation. It is
// computable even when the participant hid the conversation; hidden
// threads are only excluded from the aggregate total.
func (s *Store) UnreadCount(ctx context.Context, conversationID, userID uuid.UUID) (int64, error) {
	if _, err := s.tx.Repos().Conversations.GetParticipant(ctx, conversationID, userID); err != nil {
		return 0, err
	}
	receipt, err := s.ReadReceipt(ctx, conversationID, userID)
	if err != nil {
		return 0, err
	}
	return s.tx.Repos().Messages.CountSince(ctx, conversationID, userID, receipt.LastReadAt)
}

// UnreadMessages returns the authoritative unread slice for one
// conversation, used by trackers to resynchronize after a gap.
func (s *Store) UnreadMessages(ctx context.Context, conversationID, userID uuid.UUID) ([]message.Message, error) {
	receipt, err := s.ReadReceipt(ctx, conversationID, userID)
	if err != nil {
		return nil, err
	}
	return s.tx.Repos().Messages.ListUnread(ctx, conversationID, userID, receipt.LastReadAt)
}

// UnreadTotal aggregates unread counts over the caller's non-hidden
// conversations.
func (s *Store) UnreadTotal(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.tx.Repos().Messages.CountUnreadTotal(ctx, userID)
}
