package handler

import (
	"net/http"
	"time"

	"relay-chat/internal/auth"
	"relay-chat/internal/domain/conversation"
	"relay-chat/internal/store"
	"relay-chat/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ConversationHandler struct {
	store *store.Store
}

func NewConversationHandler(s *store.Store) *ConversationHandler {
	return &ConversationHandler{store: s}
}

func (h *ConversationHandler) Create(c *gin.Context) {
	var req httpdto.CreateConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalid(c, "invalid request")
		return
	}

	creatorID, ok := auth.UserIDFromContext(c.Request.Context())
	if !ok {
		respondUnauthorized(c)
		return
	}

	memberIDs := make([]uuid.UUID, 0, len(req.Participants))
	for _, idStr := range req.Participants {
		id, err := uuid.Parse(idStr)
		if err != nil {
			respondInvalid(c, "invalid participant id")
			return
		}
		memberIDs = append(memberIDs, id)
	}

	var (
		conv conversation.Conversation
		err  error
	)
	switch req.Kind {
	case conversation.KindDirect:
		if len(memberIDs) != 1 {
			respondInvalid(c, "direct conversation needs exactly one other participant")
			return
		}
		conv, err = h.store.CreateDirect(c.Request.Context(), creatorID, memberIDs[0])
	case conversation.KindGroup:
		conv, err = h.store.CreateGroup(c.Request.Context(), creatorID, memberIDs, req.Title)
	case conversation.KindTenant:
		tenantID, perr := uuid.Parse(req.TenantID)
		if perr != nil {
			respondInvalid(c, "invalid tenant_id")
			return
		}
		conv, err = h.store.CreateTenant(c.Request.Context(), tenantID, creatorID, memberIDs, req.Title)
	default:
		respondInvalid(c, "invalid conversation kind")
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.FromConversation(conv)))
}

func (h *ConversationHandler) List(c *gin.Context) {
	userID, ok := auth.UserIDFromContext(c.Request.Context())
	if !ok {
		respondUnauthorized(c)
		return
	}

	items, err := h.store.ListConversations(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.ListConversationsResponse{
		Conversations: httpdto.FromConversationSlice(items),
		Total:         len(items),
	}))
}

func (h *ConversationHandler) GetByID(c *gin.Context) {
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

	conv, err := h.store.GetConversation(c.Request.Context(), conversationID, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.FromConversation(conv)))
}

func (h *ConversationHandler) AddParticipant(c *gin.Context) {
	conversationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondInvalid(c, "invalid conversation id")
		return
	}
	var req httpdto.AddParticipantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalid(c, "invalid request")
		return
	}
	newUserID, err := uuid.Parse(req.UserID)
	if err != nil {
		respondInvalid(c, "invalid user_id")
		return
	}
	callerID, ok := auth.UserIDFromContext(c.Request.Context())
	if !ok {
		respondUnauthorized(c)
		return
	}

	if err := h.store.AddParticipant(c.Request.Context(), conversationID, newUserID, callerID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse[any](nil))
}

// Hide removes the conversation from the caller's own view. The
// conversation itself and every other participant's view are untouched.
func (h *ConversationHandler) Hide(c *gin.Context) {
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

	if err := h.store.HideForUser(c.Request.Context(), conversationID, userID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse[any](nil))
}

func (h *ConversationHandler) Unhide(c *gin.Context) {
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

	if err := h.store.UnhideForUser(c.Request.Context(), conversationID, userID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse[any](nil))
}

func (h *ConversationHandler) MarkRead(c *gin.Context) {
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

	var req httpdto.MarkReadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalid(c, "invalid request")
		return
	}
	at := req.At
	if at.IsZero() {
		at = time.Now()
	}

	advanced, err := h.store.MarkRead(c.Request.Context(), conversationID, userID, at)
	if err != nil {
		respondError(c, err)
		return
	}
	receipt, err := h.store.ReadReceipt(c.Request.Context(), conversationID, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.FromReceipt(receipt, advanced)))
}

func (h *ConversationHandler) UnreadCount(c *gin.Context) {
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

	count, err := h.store.UnreadCount(c.Request.Context(), conversationID, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.UnreadCountResponse{
		ConversationID: conversationID.String(),
		Unread:         count,
	}))
}

func (h *ConversationHandler) UnreadTotal(c *gin.Context) {
	userID, ok := auth.UserIDFromContext(c.Request.Context())
	if !ok {
		respondUnauthorized(c)
		return
	}

	count, err := h.store.UnreadTotal(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.UnreadCountResponse{Unread: count}))
}
