package store

import (
	"context"
	"database/sql"
	"errors"

	"relay-chat/internal/domain/conversation"
	"relay-chat/internal/events"
	"relay-chat/internal/repository"
	relay_errors "relay-chat/pkg/errors"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// CreateDirect returns the existing direct conversation between the pair
// if one exists, otherwise creates it with both participant rows.
func (s *Store) CreateDirect(ctx context.Context, userA, userB uuid.UUID) (conversation.Conversation, error) {
	if userA == userB {
		return conversation.Conversation{}, relay_errors.ErrValidation
	}

	existing, err := s.tx.Repos().Conversations.GetDirect(ctx, userA, userB)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, relay_errors.ErrNotFound) {
		return conversation.Conversation{}, err
	}

	return s.createConversation(ctx, conversation.KindDirect, uuid.NullUUID{}, "", userA, []uuid.UUID{userA, userB})
}

// CreateGroup creates a group conversation. The creator is added on top
// of memberIDs with the OWNER role.
func (s *Store) CreateGroup(ctx context.Context, creator uuid.UUID, memberIDs []uuid.UUID, title string) (conversation.Conversation, error) {
	members := normalizeMembers(creator, memberIDs)
	if len(members) < 3 { // creator plus at least two others
		return conversation.Conversation{}, relay_errors.ErrValidation
	}
	return s.createConversation(ctx, conversation.KindGroup, uuid.NullUUID{}, title, creator, members)
}

// CreateTenant creates a tenant-scoped conversation owned by tenantID.
func (s *Store) CreateTenant(ctx context.Context, tenantID, creator uuid.UUID, memberIDs []uuid.UUID, title string) (conversation.Conversation, error) {
	if tenantID == uuid.Nil {
		return conversation.Conversation{}, relay_errors.ErrValidation
	}
	members := normalizeMembers(creator, memberIDs)
	return s.createConversation(ctx, conversation.KindTenant, uuid.NullUUID{UUID: tenantID, Valid: true}, title, creator, members)
}

func normalizeMembers(creator uuid.UUID, memberIDs []uuid.UUID) []uuid.UUID {
	members := append([]uuid.UUID{creator}, memberIDs...)
	return lo.Uniq(members)
}

func (s *Store) createConversation(ctx context.Context, kind string, tenantID uuid.NullUUID, title string, creator uuid.UUID, members []uuid.UUID) (conversation.Conversation, error) {
	now := s.clock()
	conv := conversation.Conversation{
		ID:        uuid.New(),
		Kind:      kind,
		TenantID:  tenantID,
		Title:     nullString(title),
		CreatedBy: uuid.NullUUID{UUID: creator, Valid: true},
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := s.tx.WithinTx(ctx, func(r repository.Repositories) error {
		if err := r.Conversations.Create(ctx, &conv); err != nil {
			return err
		}
		for _, memberID := range members {
			role := "MEMBER"
			if memberID == creator {
				role = "OWNER"
			}
			p := &conversation.Participant{
				ConversationID: conv.ID,
				UserID:         memberID,
				Role:           sql.NullString{String: role, Valid: true},
				JoinedAt:       now,
			}
			if err := r.Conversations.AddParticipant(ctx, p); err != nil {
				return err
			}
			conv.Participants = append(conv.Participants, *p)
		}

		return appendOutbox(ctx, r, events.EventTypeConversationCreated, events.AggregateTypeConversation, conv.ID.String(), &events.ConversationEvent{
			Type:           events.EventTypeConversationCreated,
			ConversationID: conv.ID,
			Kind:           kind,
			Title:          title,
			ActorID:        creator,
		})
	})
	if err != nil {
		return conversation.Conversation{}, err
	}
	return conv, nil
}

// AddParticipant joins a user to an existing group or tenant thread.
func (s *Store) AddParticipant(ctx context.Context, conversationID, userID, addedBy uuid.UUID) error {
	conv, err := s.tx.Repos().Conversations.GetByID(ctx, conversationID)
	if err != nil {
		return err
	}
	if conv.Kind == conversation.KindDirect {
		return relay_errors.ErrValidation
	}
	if _, err := s.activeParticipant(ctx, conversationID, addedBy); err != nil {
		return err
	}

	return s.tx.WithinTx(ctx, func(r repository.Repositories) error {
		p := &conversation.Participant{
			ConversationID: conversationID,
			UserID:         userID,
			Role:           sql.NullString{String: "MEMBER", Valid: true},
			JoinedAt:       s.clock(),
		}
		if err := r.Conversations.AddParticipant(ctx, p); err != nil {
			if errors.Is(err, relay_errors.ErrAlreadyExists) {
				return nil
			}
			return err
		}
		return appendOutbox(ctx, r, events.EventTypeParticipantJoined, events.AggregateTypeParticipant, conversationID.String(), &events.ParticipantEvent{
			Type:           events.EventTypeParticipantJoined,
			ConversationID: conversationID,
			UserID:         userID,
		})
	})
}

// GetConversation returns the conversation if the caller is a participant.
func (s *Store) GetConversation(ctx context.Context, conversationID, callerID uuid.UUID) (conversation.Conversation, error) {
	conv, err := s.tx.Repos().Conversations.GetByID(ctx, conversationID)
	if err != nil {
		return conversation.Conversation{}, err
	}
	isMember := lo.ContainsBy(conv.Participants, func(p conversation.Participant) bool {
		return p.UserID == callerID
	})
	if !isMember {
		return conversation.Conversation{}, relay_errors.ErrPermission
	}
	return conv, nil
}

// ListConversations returns the caller's visible conversations; hidden
// ones are excluded from the list but never deleted.
func (s *Store) ListConversations(ctx context.Context, userID uuid.UUID) ([]conversation.Conversation, error) {
	return s.tx.Repos().Conversations.ListForUser(ctx, userID, false)
}

// HideForUser soft-deletes the conversation from one participant's view.
// Message rows are untouched.
func (s *Store) HideForUser(ctx context.Context, conversationID, userID uuid.UUID) error {
	return s.tx.WithinTx(ctx, func(r repository.Repositories) error {
		if err := r.Conversations.SetHidden(ctx, conversationID, userID, s.clock()); err != nil {
			return err
		}
		return appendOutbox(ctx, r, events.EventTypeConversationHidden, events.AggregateTypeConversation, conversationID.String(), &events.ConversationEvent{
			Type:           events.EventTypeConversationHidden,
			ConversationID: conversationID,
			ActorID:        userID,
		})
	})
}

// UnhideForUser reverses a hide explicitly.
func (s *Store) UnhideForUser(ctx context.Context, conversationID, userID uuid.UUID) error {
	return s.tx.WithinTx(ctx, func(r repository.Repositories) error {
		if err := r.Conversations.ClearHidden(ctx, conversationID, userID); err != nil {
			return err
		}
		return appendOutbox(ctx, r, events.EventTypeConversationRevealed, events.AggregateTypeConversation, conversationID.String(), &events.ConversationEvent{
			Type:           events.EventTypeConversationRevealed,
			ConversationID: conversationID,
			ActorID:        userID,
		})
	})
}

// activeParticipant resolves the participant row and rejects hidden ones.
func (s *Store) activeParticipant(ctx context.Context, conversationID, userID uuid.UUID) (conversation.Participant, error) {
	p, err := s.tx.Repos().Conversations.GetParticipant(ctx, conversationID, userID)
	if err != nil {
		return conversation.Participant{}, err
	}
	if p.Hidden() {
		return conversation.Participant{}, relay_errors.ErrNotFound
	}
	return p, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
