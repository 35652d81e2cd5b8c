package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"relay-chat/internal/auth"
	"relay-chat/internal/store"
	"relay-chat/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// TypingBroadcaster pushes ephemeral typing signals to the realtime
// backend without touching storage.
type TypingBroadcaster interface {
	BroadcastTyping(ctx context.Context, conversationID, userID uuid.UUID, isTyping bool) error
}

type MessageHandler struct {
	store  *store.Store
	typing TypingBroadcaster
}

func NewMessageHandler(s *store.Store, typing TypingBroadcaster) *MessageHandler {
	return &MessageHandler{store: s, typing: typing}
}

func (h *MessageHandler) Send(c *gin.Context) {
	conversationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondInvalid(c, "invalid conversation id")
		return
	}
	var req httpdto.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalid(c, "invalid request")
		return
	}
	userID, ok := auth.UserIDFromContext(c.Request.Context())
	if !ok {
		respondUnauthorized(c)
		return
	}

	msg, err := h.store.InsertMessage(c.Request.Context(), conversationID, userID, req.Content)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.FromMessage(msg)))
}

func (h *MessageHandler) List(c *gin.Context) {
	conversationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondInvalid(c, "invalid conversation id")
		return
	}
	userID, ok := auth.UserIDFromContext(c.Request.Context())
	if !ok {
		respondUnauthorized(c)
		return
	}

	before, err := parseTime(c.Query("before"))
	if err != nil {
		respondInvalid(c, "invalid before")
		return
	}
	limit, err := parseInt(c.Query("limit"))
	if err != nil {
		respondInvalid(c, "invalid limit")
		return
	}

	items, err := h.store.ListMessages(c.Request.Context(), conversationID, userID, before, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.ListMessagesResponse{
		Messages: httpdto.FromMessageSlice(items),
	}))
}

func (h *MessageHandler) Edit(c *gin.Context) {
	messageID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondInvalid(c, "invalid message id")
		return
	}
	var req httpdto.EditMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalid(c, "invalid request")
		return
	}
	userID, ok := auth.UserIDFromContext(c.Request.Context())
	if !ok {
		respondUnauthorized(c)
		return
	}

	msg, err := h.store.EditMessage(c.Request.Context(), messageID, userID, req.Content)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.FromMessage(msg)))
}

func (h *MessageHandler) Delete(c *gin.Context) {
	messageID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondInvalid(c, "invalid message id")
		return
	}
	userID, ok := auth.UserIDFromContext(c.Request.Context())
	if !ok {
		respondUnauthorized(c)
		return
	}

	if err := h.store.SoftDeleteMessage(c.Request.Context(), messageID, userID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse[any](nil))
}

func (h *MessageHandler) React(c *gin.Context) {
	messageID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondInvalid(c, "invalid message id")
		return
	}
	var req httpdto.ReactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalid(c, "invalid request")
		return
	}
	userID, ok := auth.UserIDFromContext(c.Request.Context())
	if !ok {
		respondUnauthorized(c)
		return
	}

	applied, err := h.store.ToggleReaction(c.Request.Context(), messageID, userID, req.Type)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.ToggleReactionResponse{
		MessageID: messageID.String(),
		Type:      req.Type,
		Applied:   applied,
	}))
}

func (h *MessageHandler) Reactions(c *gin.Context) {
	messageID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondInvalid(c, "invalid message id")
		return
	}

	items, err := h.store.ListReactions(c.Request.Context(), messageID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.FromReactionSlice(items)))
}

func (h *MessageHandler) Typing(c *gin.Context) {
	conversationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondInvalid(c, "invalid conversation id")
		return
	}
	var req httpdto.TypingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalid(c, "invalid request")
		return
	}
	userID, ok := auth.UserIDFromContext(c.Request.Context())
	if !ok {
		respondUnauthorized(c)
		return
	}

	if err := h.typing.BroadcastTyping(c.Request.Context(), conversationID, userID, req.IsTyping); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse[any](nil))
}

func parseInt(value string) (int, error) {
	if value == "" {
		return 0, nil
	}
	return strconv.Atoi(value)
}

func parseTime(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, value)
}
