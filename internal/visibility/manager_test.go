package visibility

import (
	"context"
	"errors"
	"testing"
	"time"

	"relay-chat/internal/events"
	"relay-chat/internal/store"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	hides   []uuid.UUID
	unhides []uuid.UUID
	err     error
}

func (f *fakeStore) HideForUser(ctx context.Context, conversationID, userID uuid.UUID) error {
	if f.err != nil {
		return f.err
	}
	f.hides = append(f.hides, conversationID)
	return nil
}

func (f *fakeStore) UnhideForUser(ctx context.Context, conversationID, userID uuid.UUID) error {
	if f.err != nil {
		return f.err
	}
	f.unhides = append(f.unhides, conversationID)
	return nil
}

func Test_Manager_Hide_Then_Unhide(t *testing.T) {
	self := uuid.New()
	conv := uuid.New()
	fs := &fakeStore{}
	m := NewManager(self, fs, store.ReviveOnNewMessage)

	require.False(t, m.Hidden(conv))
	require.NoError(t, m.Hide(context.Background(), conv))
	require.True(t, m.Hidden(conv))
	require.Equal(t, []uuid.UUID{conv}, fs.hides)

	require.NoError(t, m.Unhide(context.Background(), conv))
	require.False(t, m.Hidden(conv))
	require.Equal(t, []uuid.UUID{conv}, fs.unhides)
}

func Test_Manager_Store_Failure_Keeps_Local_State(t *testing.T) {
	self := uuid.New()
	conv := uuid.New()
	fs := &fakeStore{err: errors.New("db down")}
	m := NewManager(self, fs, store.ReviveOnNewMessage)

	require.Error(t, m.Hide(context.Background(), conv))
	require.False(t, m.Hidden(conv))
}

func Test_Manager_New_Message_Revives_Hidden_Conversation(t *testing.T) {
	self := uuid.New()
	conv := uuid.New()
	m := NewManager(self, &fakeStore{}, store.ReviveOnNewMessage)

	require.NoError(t, m.Hide(context.Background(), conv))

	// The user's own message does not revive.
	m.OnMessage(&events.MessageEvent{
		Type:           events.EventTypeMessageCreated,
		ConversationID: conv,
		AuthorID:       self,
		CreatedAt:      time.Now().Add(time.Minute),
	})
	require.True(t, m.Hidden(conv))

	// A message older than the hide does not revive either.
	m.OnMessage(&events.MessageEvent{
		Type:           events.EventTypeMessageCreated,
		ConversationID: conv,
		AuthorID:       uuid.New(),
		CreatedAt:      time.Now().Add(-time.Minute),
	})
	require.True(t, m.Hidden(conv))

	m.OnMessage(&events.MessageEvent{
		Type:           events.EventTypeMessageCreated,
		ConversationID: conv,
		AuthorID:       uuid.New(),
		CreatedAt:      time.Now().Add(time.Minute),
	})
	require.False(t, m.Hidden(conv))
}

func Test_Manager_StayHidden_Ignores_New_Messages(t *testing.T) {
	self := uuid.New()
	conv := uuid.New()
	m := NewManager(self, &fakeStore{}, store.StayHidden)

	require.NoError(t, m.Hide(context.Background(), conv))
	m.OnMessage(&events.MessageEvent{
		Type:           events.EventTypeMessageCreated,
		ConversationID: conv,
		AuthorID:       uuid.New(),
		CreatedAt:      time.Now().Add(time.Minute),
	})
	require.True(t, m.Hidden(conv))
}

func Test_Manager_Mirrors_Own_Events_From_Other_Devices(t *testing.T) {
	self := uuid.New()
	conv := uuid.New()
	m := NewManager(self, &fakeStore{}, store.ReviveOnNewMessage)

	// Another user hiding their view is not mirrored.
	m.OnConversation(&events.ConversationEvent{
		Type:           events.EventTypeConversationHidden,
		ConversationID: conv,
		ActorID:        uuid.New(),
	})
	require.False(t, m.Hidden(conv))

	m.OnConversation(&events.ConversationEvent{
		Type:           events.EventTypeConversationHidden,
		ConversationID: conv,
		ActorID:        self,
	})
	require.True(t, m.Hidden(conv))

	m.OnConversation(&events.ConversationEvent{
		Type:           events.EventTypeConversationRevealed,
		ConversationID: conv,
		ActorID:        self,
	})
	require.False(t, m.Hidden(conv))
}
