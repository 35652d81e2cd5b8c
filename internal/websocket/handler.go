package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"relay-chat/internal/auth"
	"relay-chat/internal/events"
	"relay-chat/internal/realtime"
	"relay-chat/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// clientCommand is the only inbound frame shape. Everything else a
// session receives flows outward from the bridge.
type clientCommand struct {
	Action         string `json:"action"`
	ConversationID string `json:"conversation_id"`
	IsTyping       bool   `json:"is_typing"`
}

type Handler struct {
	verifier *auth.Verifier
	hub      *Hub
	auth     *ChannelAuthorizer
	typing   *realtime.TypingPublisher
}

func NewHandler(verifier *auth.Verifier, hub *Hub, authz *ChannelAuthorizer, typing *realtime.TypingPublisher) *Handler {
	return &Handler{verifier: verifier, hub: hub, auth: authz, typing: typing}
}

func (h *Handler) Connect(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	claims, err := h.verifier.ParseAccessToken(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}
	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	client := NewClient(conn, userID)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h.hub.Register(client)
	go client.WriteLoop(ctx)

	// Every session hears conversation announcements.
	h.hub.Subscribe(client, events.ChannelActivity)

	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			break
		}
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		h.handleCommand(ctx, client, raw)
	}

	h.hub.Unregister(client)
}

func (h *Handler) handleCommand(ctx context.Context, client *Client, raw []byte) {
	var cmd clientCommand
	if err := json.Unmarshal(raw, &cmd); err != nil {
		return
	}
	convID, err := uuid.Parse(cmd.ConversationID)
	if err != nil {
		return
	}
	channel := events.ConversationChannel(convID.String())

	switch cmd.Action {
	case "subscribe":
		allowed, err := h.auth.CanSubscribe(ctx, client.UserID, channel)
		if err != nil || !allowed {
			return
		}
		h.hub.Subscribe(client, channel)
	case "unsubscribe":
		h.hub.Unsubscribe(client, channel)
	case "typing":
		if !client.IsSubscribed(channel) {
			return
		}
		_ = h.typing.BroadcastTyping(ctx, convID, client.UserID, cmd.IsTyping)
	}
}
