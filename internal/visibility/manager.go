package visibility

import (
	"context"
	"sync"
	"time"

	"relay-chat/internal/events"
	"relay-chat/internal/store"

	"github.com/google/uuid"
)

// Store is the durable side of visibility: hide and unhide both mutate
// only the caller's Participant row.
type Store interface {
	HideForUser(ctx context.Context, conversationID, userID uuid.UUID) error
	UnhideForUser(ctx context.Context, conversationID, userID uuid.UUID) error
}

// Manager mirrors one user's per-conversation visibility, applying the
// same revival policy the store enforces durably so the local view and
// the database agree without a round trip.
type Manager struct {
	self    uuid.UUID
	store   Store
	revival store.RevivalPolicy

	mu     sync.Mutex
	hidden map[uuid.UUID]time.Time
}

func NewManager(self uuid.UUID, s Store, revival store.RevivalPolicy) *Manager {
	if revival == "" {
		revival = store.ReviveOnNewMessage
	}
	return &Manager{
		self:    self,
		store:   s,
		revival: revival,
		hidden:  make(map[uuid.UUID]time.Time),
	}
}

// Hide soft-deletes the conversation from this user's view. Shared
// history is untouched and other participants see nothing change.
func (m *Manager) Hide(ctx context.Context, conversationID uuid.UUID) error {
	if err := m.store.HideForUser(ctx, conversationID, m.self); err != nil {
		return err
	}
	m.mu.Lock()
	m.hidden[conversationID] = time.Now()
	m.mu.Unlock()
	return nil
}

// Unhide reverses a hide explicitly.
func (m *Manager) Unhide(ctx context.Context, conversationID uuid.UUID) error {
	if err := m.store.UnhideForUser(ctx, conversationID, m.self); err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.hidden, conversationID)
	m.mu.Unlock()
	return nil
}

// Hidden reports whether the conversation is hidden for this user.
func (m *Manager) Hidden(conversationID uuid.UUID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.hidden[conversationID]
	return ok
}

// OnMessage applies the revival policy to the local mirror: under
// ReviveOnNewMessage, someone else's message newer than the hide brings
// the thread back.
func (m *Manager) OnMessage(ev *events.MessageEvent) {
	if m.revival != store.ReviveOnNewMessage || ev.AuthorID == m.self {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	hiddenAt, ok := m.hidden[ev.ConversationID]
	if ok && hiddenAt.Before(ev.CreatedAt) {
		delete(m.hidden, ev.ConversationID)
	}
}

// OnConversation consumes hide/reveal announcements for this user from
// other devices. Events about other users are not ours to mirror.
func (m *Manager) OnConversation(ev *events.ConversationEvent) {
	if ev.ActorID != m.self {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	switch ev.Type {
	case events.EventTypeConversationHidden:
		m.hidden[ev.ConversationID] = time.Now()
	case events.EventTypeConversationRevealed:
		delete(m.hidden, ev.ConversationID)
	}
}
