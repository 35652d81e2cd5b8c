package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func wrap(t *testing.T, eventType string, payload interface{}) []byte {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	raw, err := json.Marshal(Envelope{
		EventType:     eventType,
		AggregateType: AggregateTypeMessage,
		AggregateID:   uuid.New().String(),
		OccurredAt:    time.Now(),
		Payload:       body,
	})
	require.NoError(t, err)
	return raw
}

func Test_Normalize_Message_Created(t *testing.T) {
	conv := uuid.New()
	msgID := uuid.New()
	raw := wrap(t, EventTypeMessageCreated, MessageEvent{
		MessageID:      msgID,
		ConversationID: conv,
		AuthorID:       uuid.New(),
		Content:        "hello",
		CreatedAt:      time.Now(),
	})

	ev, err := Normalize(raw)
	require.NoError(t, err)

	msg, ok := ev.(*MessageEvent)
	require.True(t, ok)
	require.Equal(t, EventTypeMessageCreated, msg.EventType())
	require.Equal(t, conv, msg.Conversation())
	require.Equal(t, msgID, msg.MessageID)
	require.Equal(t, "hello", msg.Content)
}

func Test_Normalize_Typing_Derives_IsTyping(t *testing.T) {
	conv := uuid.New()

	started, err := Normalize(wrap(t, EventTypeTypingStarted, TypingEvent{ConversationID: conv, UserID: uuid.New()}))
	require.NoError(t, err)
	require.True(t, started.(*TypingEvent).IsTyping)

	stopped, err := Normalize(wrap(t, EventTypeTypingStopped, TypingEvent{ConversationID: conv, UserID: uuid.New(), IsTyping: true}))
	require.NoError(t, err)
	require.False(t, stopped.(*TypingEvent).IsTyping)
}

func Test_Normalize_Reaction_And_Receipt(t *testing.T) {
	conv := uuid.New()

	ev, err := Normalize(wrap(t, EventTypeReactionCleared, ReactionEvent{
		MessageID:      uuid.New(),
		ConversationID: conv,
		UserID:         uuid.New(),
		ReactionType:   "heart",
	}))
	require.NoError(t, err)
	reaction := ev.(*ReactionEvent)
	require.Equal(t, EventTypeReactionCleared, reaction.EventType())
	require.Equal(t, "heart", reaction.ReactionType)

	at := time.Now().UTC().Truncate(time.Millisecond)
	ev, err = Normalize(wrap(t, EventTypeReceiptRead, ReceiptEvent{
		ConversationID: conv,
		UserID:         uuid.New(),
		LastReadAt:     at,
	}))
	require.NoError(t, err)
	require.Equal(t, at, ev.(*ReceiptEvent).LastReadAt)
}

func Test_Normalize_Unknown_Type_Is_Dropped(t *testing.T) {
	raw := wrap(t, "message.pinned", map[string]string{"x": "y"})

	ev, err := Normalize(raw)
	require.NoError(t, err)
	require.Nil(t, ev)
}

func Test_Normalize_Malformed_Envelope(t *testing.T) {
	_, err := Normalize([]byte("{not json"))
	require.Error(t, err)
}

func Test_Normalize_Malformed_Payload(t *testing.T) {
	raw, err := json.Marshal(Envelope{
		EventType: EventTypeMessageCreated,
		Payload:   json.RawMessage(`"scalar"`),
	})
	require.NoError(t, err)

	_, err = Normalize(raw)
	require.Error(t, err)
}
