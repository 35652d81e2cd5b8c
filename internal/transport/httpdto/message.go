package httpdto

import (
	"time"

	"relay-chat/internal/domain/message"

	"github.com/samber/lo"
)

type SendMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

type EditMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

type ReactionRequest struct {
	Type string `json:"type" binding:"required"`
}

type TypingRequest struct {
	IsTyping bool `json:"is_typing"`
}

type MessageResponse struct {
	ID             string     `json:"id"`
	ConversationID string     `json:"conversation_id"`
	AuthorID       string     `json:"author_id"`
	Content        string     `json:"content"`
	CreatedAt      time.Time  `json:"created_at"`
	EditedAt       *time.Time `json:"edited_at,omitempty"`
	Deleted        bool       `json:"deleted"`
}

type ListMessagesResponse struct {
	Messages []MessageResponse `json:"messages"`
}

type ReactionResponse struct {
	MessageID string    `json:"message_id"`
	UserID    string    `json:"user_id"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"created_at"`
}

type ToggleReactionResponse struct {
	MessageID string `json:"message_id"`
	Type      string `json:"type"`
	Applied   bool   `json:"applied"`
}

func FromMessage(m message.Message) MessageResponse {
	resp := MessageResponse{
		ID:             m.ID.String(),
		ConversationID: m.ConversationID.String(),
		AuthorID:       m.AuthorID.String(),
		Content:        m.Content,
		CreatedAt:      m.CreatedAt,
		Deleted:        m.Deleted(),
	}
	if m.EditedAt.Valid {
		t := m.EditedAt.Time
		resp.EditedAt = &t
	}
	return resp
}

func FromMessageSlice(items []message.Message) []MessageResponse {
	return lo.Map(items, func(m message.Message, _ int) MessageResponse {
		return FromMessage(m)
	})
}

func FromReactionSlice(items []message.Reaction) []ReactionResponse {
	return lo.Map(items, func(r message.Reaction, _ int) ReactionResponse {
		return ReactionResponse{
			MessageID: r.MessageID.String(),
			UserID:    r.UserID.String(),
			Type:      r.ReactionType,
			CreatedAt: r.CreatedAt,
		}
	})
}
