package websocket

import (
	"context"
	"errors"
	"strings"

	"relay-chat/internal/events"
	"relay-chat/internal/repository"
	relay_errors "relay-chat/pkg/errors"

	"github.com/google/uuid"
)

// ChannelAuthorizer decides which broker channels a session may mirror.
type ChannelAuthorizer struct {
	conversationRepo repository.ConversationRepository
}

func NewChannelAuthorizer(conversationRepo repository.ConversationRepository) *ChannelAuthorizer {
	return &ChannelAuthorizer{conversationRepo: conversationRepo}
}

// CanSubscribe checks if a user is authorized to subscribe to a channel.
// Hidden participants stay authorized: hiding only affects their listing,
// not their membership.
func (a *ChannelAuthorizer) CanSubscribe(ctx context.Context, userID uuid.UUID, channel string) (bool, error) {
	if channel == events.ChannelActivity {
		return true, nil
	}

	if strings.HasPrefix(channel, events.ChannelPrefixConversation) {
		convID, err := uuid.Parse(strings.TrimPrefix(channel, events.ChannelPrefixConversation))
		if err != nil {
			return false, nil
		}
		return a.IsParticipant(ctx, convID, userID)
	}

	return false, nil
}

// IsParticipant reports whether the user has a participant row for the
// conversation, hidden or not.
func (a *ChannelAuthorizer) IsParticipant(ctx context.Context, conversationID, userID uuid.UUID) (bool, error) {
	_, err := a.conversationRepo.GetParticipant(ctx, conversationID, userID)
	if err != nil {
		if errors.Is(err, relay_errors.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
