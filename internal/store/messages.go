package store

import (
	"context"
	"errors"
	"time"

	"relay-chat/internal/domain/message"
	"relay-chat/internal/events"
	"relay-chat/internal/repository"
	relay_errors "relay-chat/pkg/errors"

	"github.com/google/uuid"
)

// InsertMessage persists a message from an active participant. Depending
// on the revival policy, participants who hid the conversation before
// this message see it resurface; each reveal rides the same transaction
// and change feed as the message itself.
func (s *Store) InsertMessage(ctx context.Context, conversationID, authorID uuid.UUID, content string) (message.Message, error) {
	if content == "" {
		return message.Message{}, relay_errors.ErrValidation
	}
	if _, err := s.activeParticipant(ctx, conversationID, authorID); err != nil {
		return message.Message{}, err
	}

	msg := message.Message{
		ID:             uuid.New(),
		ConversationID: conversationID,
		AuthorID:       authorID,
		Content:        content,
		CreatedAt:      s.clock(),
	}

	err := s.tx.WithinTx(ctx, func(r repository.Repositories) error {
		if err := r.Messages.Create(ctx, &msg); err != nil {
			return err
		}

		if s.revival == ReviveOnNewMessage {
			revealed, err := r.Conversations.RevealHiddenBefore(ctx, conversationID, authorID, msg.CreatedAt)
			if err != nil {
				return err
			}
			for _, userID := range revealed {
				if err := appendOutbox(ctx, r, events.EventTypeConversationRevealed, events.AggregateTypeConversation, conversationID.String(), &events.ConversationEvent{
					Type:           events.EventTypeConversationRevealed,
					ConversationID: conversationID,
					ActorID:        userID,
				}); err != nil {
					return err
				}
			}
		}

		return appendOutbox(ctx, r, events.EventTypeMessageCreated, events.AggregateTypeMessage, msg.ConversationID.String(), &events.MessageEvent{
			Type:           events.EventTypeMessageCreated,
			MessageID:      msg.ID,
			ConversationID: msg.ConversationID,
			AuthorID:       msg.AuthorID,
			Content:        msg.Content,
			CreatedAt:      msg.CreatedAt,
		})
	})
	if err != nil {
		return message.Message{}, err
	}
	return msg, nil
}

// EditMessage replaces the content of the caller's own message.
func (s *Store) EditMessage(ctx context.Context, messageID, byUserID uuid.UUID, content string) (message.Message, error) {
	if content == "" {
		return message.Message{}, relay_errors.ErrValidation
	}
	msg, err := s.tx.Repos().Messages.GetByID(ctx, messageID)
	if err != nil {
		return message.Message{}, err
	}
	if msg.AuthorID != byUserID {
		return message.Message{}, relay_errors.ErrPermission
	}
	if msg.Deleted() {
		return message.Message{}, relay_errors.ErrNotFound
	}

	editedAt := s.clock()
	err = s.tx.WithinTx(ctx, func(r repository.Repositories) error {
		if err := r.Messages.SetContent(ctx, messageID, content, editedAt); err != nil {
			return err
		}
		return appendOutbox(ctx, r, events.EventTypeMessageUpdated, events.AggregateTypeMessage, msg.ConversationID.String(), &events.MessageEvent{
			Type:           events.EventTypeMessageUpdated,
			MessageID:      messageID,
			ConversationID: msg.ConversationID,
			AuthorID:       msg.AuthorID,
			Content:        content,
			CreatedAt:      msg.CreatedAt,
			EditedAt:       &editedAt,
		})
	})
	if err != nil {
		return message.Message{}, err
	}

	msg.Content = content
	msg.EditedAt.Time = editedAt
	msg.EditedAt.Valid = true
	return msg, nil
}

// SoftDeleteMessage tombstones the caller's own message. Content is
// redacted, the id survives, and nobody's read receipt is touched.
func (s *Store) SoftDeleteMessage(ctx context.Context, messageID, byUserID uuid.UUID) error {
	msg, err := s.tx.Repos().Messages.GetByID(ctx, messageID)
	if err != nil {
		return err
	}
	if msg.AuthorID != byUserID {
		return relay_errors.ErrPermission
	}
	if msg.Deleted() {
		return nil
	}

	deletedAt := s.clock()
	return s.tx.WithinTx(ctx, func(r repository.Repositories) error {
		if err := r.Messages.SoftDelete(ctx, messageID, deletedAt); err != nil {
			return err
		}
		return appendOutbox(ctx, r, events.EventTypeMessageDeleted, events.AggregateTypeMessage, msg.ConversationID.String(), &events.MessageEvent{
			Type:           events.EventTypeMessageDeleted,
			MessageID:      messageID,
			ConversationID: msg.ConversationID,
			AuthorID:       msg.AuthorID,
			CreatedAt:      msg.CreatedAt,
			DeletedAt:      &deletedAt,
		})
	})
}

// ToggleReaction applies toggle-by-type semantics: a different type
// replaces the row, the same type twice removes it.
func (s *Store) ToggleReaction(ctx context.Context, messageID, userID uuid.UUID, reactionType string) (applied bool, err error) {
	if reactionType == "" {
		return false, relay_errors.ErrValidation
	}
	msg, err := s.tx.Repos().Messages.GetByID(ctx, messageID)
	if err != nil {
		return false, err
	}
	if _, err := s.activeParticipant(ctx, msg.ConversationID, userID); err != nil {
		return false, err
	}

	existing, err := s.tx.Repos().Messages.GetReaction(ctx, messageID, userID)
	samePresent := err == nil && existing.ReactionType == reactionType
	if err != nil && !errors.Is(err, relay_errors.ErrNotFound) {
		return false, err
	}

	if samePresent {
		err = s.tx.WithinTx(ctx, func(r repository.Repositories) error {
			if err := r.Messages.DeleteReaction(ctx, messageID, userID); err != nil {
				// Lost a race with a concurrent un-react; converged anyway.
				if errors.Is(err, relay_errors.ErrNotFound) {
					return nil
				}
				return err
			}
			return appendOutbox(ctx, r, events.EventTypeReactionCleared, events.AggregateTypeReaction, msg.ConversationID.String(), &events.ReactionEvent{
				Type:           events.EventTypeReactionCleared,
				MessageID:      messageID,
				ConversationID: msg.ConversationID,
				UserID:         userID,
				ReactionType:   reactionType,
			})
		})
		return false, err
	}

	reaction := message.Reaction{
		MessageID:    messageID,
		UserID:       userID,
		ReactionType: reactionType,
		CreatedAt:    s.clock(),
	}
	err = s.tx.WithinTx(ctx, func(r repository.Repositories) error {
		if err := r.Messages.UpsertReaction(ctx, &reaction); err != nil {
			return err
		}
		return appendOutbox(ctx, r, events.EventTypeReactionSet, events.AggregateTypeReaction, msg.ConversationID.String(), &events.ReactionEvent{
			Type:           events.EventTypeReactionSet,
			MessageID:      messageID,
			ConversationID: msg.ConversationID,
			UserID:         userID,
			ReactionType:   reactionType,
		})
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// ListMessages pages a conversation's history backwards from `before`
// (zero means newest). Tombstones are included.
func (s *Store) ListMessages(ctx context.Context, conversationID, callerID uuid.UUID, before time.Time, limit int) ([]message.Message, error) {
	if _, err := s.tx.Repos().Conversations.GetParticipant(ctx, conversationID, callerID); err != nil {
		if errors.Is(err, relay_errors.ErrNotFound) {
			return nil, relay_errors.ErrPermission
		}
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}
	return s.tx.Repos().Messages.ListByConversation(ctx, conversationID, before, limit)
}

// ListReactions returns every reaction on a message.
func (s *Store) ListReactions(ctx context.Context, messageID uuid.UUID) ([]message.Reaction, error) {
	return s.tx.Repos().Messages.ListReactions(ctx, messageID)
}
