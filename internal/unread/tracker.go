package unread

import (
	"context"
	"sync"
	"time"

	"relay-chat/internal/domain/conversation"
	"relay-chat/internal/domain/message"
	"relay-chat/internal/events"

	"github.com/google/uuid"
)

// Source is the authoritative state the tracker falls back to: the
// durable store. Every reconnect gap ends in a Resync against it.
type Source interface {
	ReadReceipt(ctx context.Context, conversationID, userID uuid.UUID) (conversation.ReadReceipt, error)
	UnreadMessages(ctx context.Context, conversationID, userID uuid.UUID) ([]message.Message, error)
	MarkRead(ctx context.Context, conversationID, userID uuid.UUID, at time.Time) (bool, error)
}

// entry is the derived unread state for one conversation. seen maps
// counted message ids to their timestamps; timestamps are what resolve
// the markRead-vs-insert race, never operation arrival order.
type entry struct {
	lastReadAt time.Time
	seen       map[uuid.UUID]time.Time
}

// Tracker derives per-conversation unread counts for one user from the
// typed event stream. It tolerates at-least-once delivery by deduping on
// message id and suppresses anything at or before the read position.
type Tracker struct {
	self   uuid.UUID
	source Source

	mu      sync.Mutex
	entries map[uuid.UUID]*entry
}

func NewTracker(self uuid.UUID, source Source) *Tracker {
	return &Tracker{
		self:    self,
		source:  source,
		entries: make(map[uuid.UUID]*entry),
	}
}

func (t *Tracker) entryFor(conversationID uuid.UUID) *entry {
	e, ok := t.entries[conversationID]
	if !ok {
		e = &entry{seen: make(map[uuid.UUID]time.Time)}
		t.entries[conversationID] = e
	}
	return e
}

// OnMessage counts a newly observed message. Own messages, duplicates
// and messages at or before the read position never increment.
func (t *Tracker) OnMessage(ev *events.MessageEvent) {
	if ev.AuthorID == t.self {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	e := t.entryFor(ev.ConversationID)
	if !ev.CreatedAt.After(e.lastReadAt) {
		return
	}
	if _, dup := e.seen[ev.MessageID]; dup {
		return
	}
	e.seen[ev.MessageID] = ev.CreatedAt
}

// OnMessageDelete drops a tombstoned message from the count if it was
// counted; deleting never touches the read position.
func (t *Tracker) OnMessageDelete(ev *events.MessageEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[ev.ConversationID]
	if !ok {
		return
	}
	delete(e.seen, ev.MessageID)
}

// OnReceipt applies a read position observed on the event stream, e.g.
// the same user reading on another device. Stale positions are ignored.
func (t *Tracker) OnReceipt(ev *events.ReceiptEvent) {
	if ev.UserID != t.self {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entryFor(ev.ConversationID).advance(ev.LastReadAt)
}

// MarkRead persists the read position through the store and applies it
// locally. Messages newer than the committed position stay counted even
// when their events raced the mark-read, because pruning compares
// timestamps only.
func (t *Tracker) MarkRead(ctx context.Context, conversationID uuid.UUID, at time.Time) error {
	if _, err := t.source.MarkRead(ctx, conversationID, t.self, at); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.entryFor(conversationID).advance(at)
	return nil
}

// Unread returns the current derived count for one conversation.
func (t *Tracker) Unread(conversationID uuid.UUID) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[conversationID]
	if !ok {
		return 0
	}
	return len(e.seen)
}

// Snapshot returns the derived counts for every tracked conversation.
func (t *Tracker) Snapshot() map[uuid.UUID]int {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[uuid.UUID]int, len(t.entries))
	for id, e := range t.entries {
		out[id] = len(e.seen)
	}
	return out
}

// Resync replaces derived state with an authoritative re-fetch of the
// read receipt and the unread slice. Called on every transition back to
// Subscribed after a reconnect, since the stream has a gap there.
func (t *Tracker) Resync(ctx context.Context, conversationID uuid.UUID) {
	receipt, err := t.source.ReadReceipt(ctx, conversationID, t.self)
	if err != nil {
		return
	}
	unread, err := t.source.UnreadMessages(ctx, conversationID, t.self)
	if err != nil {
		return
	}

	e := &entry{
		lastReadAt: receipt.LastReadAt,
		seen:       make(map[uuid.UUID]time.Time, len(unread)),
	}
	for _, m := range unread {
		e.seen[m.ID] = m.CreatedAt
	}

	t.mu.Lock()
	t.entries[conversationID] = e
	t.mu.Unlock()
}

// advance moves the read position forward and prunes counted messages it
// covers. Stale positions are a no-op.
func (e *entry) advance(at time.Time) {
	if !at.After(e.lastReadAt) {
		return
	}
	e.lastReadAt = at
	for id, createdAt := range e.seen {
		if !createdAt.After(at) {
			delete(e.seen, id)
		}
	}
}
