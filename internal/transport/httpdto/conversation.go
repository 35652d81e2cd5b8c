package httpdto

import (
	"time"

	"relay-chat/internal/domain/conversation"

	"github.com/samber/lo"
)

type CreateConversationRequest struct {
	Kind         string   `json:"kind" binding:"required"`
	Title        string   `json:"title"`
	TenantID     string   `json:"tenant_id"`
	Participants []string `json:"participants"`
}

type AddParticipantRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

type MarkReadRequest struct {
	At time.Time `json:"at"`
}

type ParticipantResponse struct {
	UserID   string    `json:"user_id"`
	Role     string    `json:"role,omitempty"`
	JoinedAt time.Time `json:"joined_at"`
}

type ConversationResponse struct {
	ID           string                `json:"id"`
	Kind         string                `json:"kind"`
	TenantID     string                `json:"tenant_id,omitempty"`
	Title        string                `json:"title,omitempty"`
	CreatedAt    time.Time             `json:"created_at"`
	Participants []ParticipantResponse `json:"participants,omitempty"`
}

type ListConversationsResponse struct {
	Conversations []ConversationResponse `json:"conversations"`
	Total         int                    `json:"total"`
}

type ReceiptResponse struct {
	ConversationID    string    `json:"conversation_id"`
	UserID            string    `json:"user_id"`
	LastReadAt        time.Time `json:"last_read_at"`
	LastReadMessageID string    `json:"last_read_message_id,omitempty"`
	Advanced          bool      `json:"advanced"`
}

type UnreadCountResponse struct {
	ConversationID string `json:"conversation_id,omitempty"`
	Unread         int64  `json:"unread"`
}

func FromConversation(c conversation.Conversation) ConversationResponse {
	resp := ConversationResponse{
		ID:        c.ID.String(),
		Kind:      c.Kind,
		CreatedAt: c.CreatedAt,
		Participants: lo.Map(c.Participants, func(p conversation.Participant, _ int) ParticipantResponse {
			return ParticipantResponse{
				UserID:   p.UserID.String(),
				Role:     p.Role.String,
				JoinedAt: p.JoinedAt,
			}
		}),
	}
	if c.TenantID.Valid {
		resp.TenantID = c.TenantID.UUID.String()
	}
	if c.Title.Valid {
		resp.Title = c.Title.String
	}
	return resp
}

func FromConversationSlice(items []conversation.Conversation) []ConversationResponse {
	return lo.Map(items, func(c conversation.Conversation, _ int) ConversationResponse {
		return FromConversation(c)
	})
}

func FromReceipt(r conversation.ReadReceipt, advanced bool) ReceiptResponse {
	resp := ReceiptResponse{
		ConversationID: r.ConversationID.String(),
		UserID:         r.UserID.String(),
		LastReadAt:     r.LastReadAt,
		Advanced:       advanced,
	}
	if r.LastReadMessageID.Valid {
		resp.LastReadMessageID = r.LastReadMessageID.UUID.String()
	}
	return resp
}
