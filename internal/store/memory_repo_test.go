package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"relay-chat/internal/domain/conversation"
	"relay-chat/internal/domain/message"
	"relay-chat/internal/domain/outbox"
	"relay-chat/internal/repository"
	relay_errors "relay-chat/pkg/errors"

	"github.com/google/uuid"
)

// memDB is an in-memory stand-in for the gorm repositories, close enough
// to the real SQL semantics to exercise the store end to end.
type memDB struct {
	mu sync.Mutex

	conversations map[uuid.UUID]*conversation.Conversation
	participants  map[uuid.UUID]map[uuid.UUID]*conversation.Participant
	receipts      map[pairKey]*conversation.ReadReceipt
	messages      map[uuid.UUID]*message.Message
	reactions     map[pairKey]*message.Reaction
	outbox        []outbox.OutboxEvent
}

type pairKey struct {
	a, b uuid.UUID
}

func newMemDB() *memDB {
	return &memDB{
		conversations: make(map[uuid.UUID]*conversation.Conversation),
		participants:  make(map[uuid.UUID]map[uuid.UUID]*conversation.Participant),
		receipts:      make(map[pairKey]*conversation.ReadReceipt),
		messages:      make(map[uuid.UUID]*message.Message),
		reactions:     make(map[pairKey]*message.Reaction),
	}
}

func (db *memDB) Repos() repository.Repositories {
	return repository.Repositories{
		Conversations: &memConvRepo{db},
		Messages:      &memMsgRepo{db},
		Outbox:        &memOutboxRepo{db},
	}
}

func (db *memDB) WithinTx(ctx context.Context, fn func(r repository.Repositories) error) error {
	return fn(db.Repos())
}

func (db *memDB) outboxTypes() []string {
	db.mu.Lock()
	defer db.mu.Unlock()
	out := make([]string, 0, len(db.outbox))
	for _, e := range db.outbox {
		out = append(out, e.EventType)
	}
	return out
}

func (db *memDB) countOutbox(eventType string) int {
	n := 0
	for _, t := range db.outboxTypes() {
		if t == eventType {
			n++
		}
	}
	return n
}

type memConvRepo struct{ db *memDB }

func (r *memConvRepo) Create(ctx context.Context, c *conversation.Conversation) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	cp := *c
	cp.Participants = nil
	r.db.conversations[c.ID] = &cp
	return nil
}

func (r *memConvRepo) GetByID(ctx context.Context, id uuid.UUID) (conversation.Conversation, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	c, ok := r.db.conversations[id]
	if !ok {
		return conversation.Conversation{}, relay_errors.ErrNotFound
	}
	out := *c
	for _, p := range r.db.participants[id] {
		out.Participants = append(out.Participants, *p)
	}
	return out, nil
}

func (r *memConvRepo) GetDirect(ctx context.Context, userA, userB uuid.UUID) (conversation.Conversation, error) {
	r.db.mu.Lock()
	var found uuid.UUID
	for id, c := range r.db.conversations {
		if c.Kind != conversation.KindDirect {
			continue
		}
		members := r.db.participants[id]
		if len(members) != 2 {
			continue
		}
		_, okA := members[userA]
		_, okB := members[userB]
		if okA && okB {
			found = id
			break
		}
	}
	r.db.mu.Unlock()
	if found == uuid.Nil {
		return conversation.Conversation{}, relay_errors.ErrNotFound
	}
	return r.GetByID(ctx, found)
}

func (r *memConvRepo) ListForUser(ctx context.Context, userID uuid.UUID, includeHidden bool) ([]conversation.Conversation, error) {
	r.db.mu.Lock()
	var ids []uuid.UUID
	for id := range r.db.conversations {
		p, ok := r.db.participants[id][userID]
		if !ok {
			continue
		}
		if p.Hidden() && !includeHidden {
			continue
		}
		ids = append(ids, id)
	}
	r.db.mu.Unlock()

	out := make([]conversation.Conversation, 0, len(ids))
	for _, id := range ids {
		c, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func (r *memConvRepo) AddParticipant(ctx context.Context, p *conversation.Participant) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	members, ok := r.db.participants[p.ConversationID]
	if !ok {
		members = make(map[uuid.UUID]*conversation.Participant)
		r.db.participants[p.ConversationID] = members
	}
	if _, exists := members[p.UserID]; exists {
		return relay_errors.ErrAlreadyExists
	}
	cp := *p
	members[p.UserID] = &cp
	return nil
}

func (r *memConvRepo) GetParticipant(ctx context.Context, conversationID, userID uuid.UUID) (conversation.Participant, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p, ok := r.db.participants[conversationID][userID]
	if !ok {
		return conversation.Participant{}, relay_errors.ErrNotFound
	}
	return *p, nil
}

func (r *memConvRepo) GetParticipants(ctx context.Context, conversationID uuid.UUID) ([]conversation.Participant, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []conversation.Participant
	for _, p := range r.db.participants[conversationID] {
		out = append(out, *p)
	}
	return out, nil
}

func (r *memConvRepo) SetHidden(ctx context.Context, conversationID, userID uuid.UUID, at time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p, ok := r.db.participants[conversationID][userID]
	if !ok {
		return relay_errors.ErrNotFound
	}
	p.HiddenAt.Time = at
	p.HiddenAt.Valid = true
	return nil
}

func (r *memConvRepo) ClearHidden(ctx context.Context, conversationID, userID uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p, ok := r.db.participants[conversationID][userID]
	if !ok {
		return relay_errors.ErrNotFound
	}
	p.HiddenAt.Valid = false
	return nil
}

func (r *memConvRepo) RevealHiddenBefore(ctx context.Context, conversationID uuid.UUID, exceptUserID uuid.UUID, cutoff time.Time) ([]uuid.UUID, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var revealed []uuid.UUID
	for userID, p := range r.db.participants[conversationID] {
		if userID == exceptUserID || !p.Hidden() {
			continue
		}
		if p.HiddenAt.Time.Before(cutoff) {
			p.HiddenAt.Valid = false
			revealed = append(revealed, userID)
		}
	}
	return revealed, nil
}

func (r *memConvRepo) GetReceipt(ctx context.Context, conversationID, userID uuid.UUID) (conversation.ReadReceipt, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	receipt, ok := r.db.receipts[pairKey{conversationID, userID}]
	if !ok {
		return conversation.ReadReceipt{}, relay_errors.ErrNotFound
	}
	return *receipt, nil
}

func (r *memConvRepo) AdvanceReceipt(ctx context.Context, receipt conversation.ReadReceipt) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	key := pairKey{receipt.ConversationID, receipt.UserID}
	existing, ok := r.db.receipts[key]
	if ok && !receipt.LastReadAt.After(existing.LastReadAt) {
		return false, nil
	}
	cp := receipt
	cp.UpdatedAt = time.Now()
	r.db.receipts[key] = &cp
	return true, nil
}

type memMsgRepo struct{ db *memDB }

func (r *memMsgRepo) Create(ctx context.Context, m *message.Message) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	cp := *m
	r.db.messages[m.ID] = &cp
	return nil
}

func (r *memMsgRepo) GetByID(ctx context.Context, id uuid.UUID) (message.Message, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	m, ok := r.db.messages[id]
	if !ok {
		return message.Message{}, relay_errors.ErrNotFound
	}
	return *m, nil
}

func (r *memMsgRepo) SetContent(ctx context.Context, id uuid.UUID, content string, editedAt time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	m, ok := r.db.messages[id]
	if !ok || m.Deleted() {
		return relay_errors.ErrNotFound
	}
	m.Content = content
	m.EditedAt.Time = editedAt
	m.EditedAt.Valid = true
	return nil
}

func (r *memMsgRepo) SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	m, ok := r.db.messages[id]
	if !ok || m.Deleted() {
		return relay_errors.ErrNotFound
	}
	m.Content = ""
	m.DeletedAt.Time = at
	m.DeletedAt.Valid = true
	return nil
}

func (r *memMsgRepo) ListByConversation(ctx context.Context, conversationID uuid.UUID, before time.Time, limit int) ([]message.Message, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []message.Message
	for _, m := range r.db.messages {
		if m.ConversationID != conversationID {
			continue
		}
		if !before.IsZero() && !m.CreatedAt.Before(before) {
			continue
		}
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memMsgRepo) ListUnread(ctx context.Context, conversationID, excludeAuthor uuid.UUID, after time.Time) ([]message.Message, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return r.listUnreadLocked(conversationID, excludeAuthor, after), nil
}

func (r *memMsgRepo) listUnreadLocked(conversationID, excludeAuthor uuid.UUID, after time.Time) []message.Message {
	var out []message.Message
	for _, m := range r.db.messages {
		if m.ConversationID != conversationID || m.AuthorID == excludeAuthor || m.Deleted() {
			continue
		}
		if !m.CreatedAt.After(after) {
			continue
		}
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (r *memMsgRepo) CountSince(ctx context.Context, conversationID, excludeAuthor uuid.UUID, after time.Time) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return int64(len(r.listUnreadLocked(conversationID, excludeAuthor, after))), nil
}

func (r *memMsgRepo) CountUnreadTotal(ctx context.Context, userID uuid.UUID) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var total int64
	for convID := range r.db.conversations {
		p, ok := r.db.participants[convID][userID]
		if !ok || p.Hidden() {
			continue
		}
		var after time.Time
		if receipt, ok := r.db.receipts[pairKey{convID, userID}]; ok {
			after = receipt.LastReadAt
		}
		total += int64(len(r.listUnreadLocked(convID, userID, after)))
	}
	return total, nil
}

func (r *memMsgRepo) GetReaction(ctx context.Context, messageID, userID uuid.UUID) (message.Reaction, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	reaction, ok := r.db.reactions[pairKey{messageID, userID}]
	if !ok {
		return message.Reaction{}, relay_errors.ErrNotFound
	}
	return *reaction, nil
}

func (r *memMsgRepo) UpsertReaction(ctx context.Context, reaction *message.Reaction) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	cp := *reaction
	r.db.reactions[pairKey{reaction.MessageID, reaction.UserID}] = &cp
	return nil
}

func (r *memMsgRepo) DeleteReaction(ctx context.Context, messageID, userID uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	key := pairKey{messageID, userID}
	if _, ok := r.db.reactions[key]; !ok {
		return relay_errors.ErrNotFound
	}
	delete(r.db.reactions, key)
	return nil
}

func (r *memMsgRepo) ListReactions(ctx context.Context, messageID uuid.UUID) ([]message.Reaction, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []message.Reaction
	for key, reaction := range r.db.reactions {
		if key.a == messageID {
			out = append(out, *reaction)
		}
	}
	return out, nil
}

type memOutboxRepo struct{ db *memDB }

func (r *memOutboxRepo) Create(ctx context.Context, e *outbox.OutboxEvent) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.outbox = append(r.db.outbox, *e)
	return nil
}

func (r *memOutboxRepo) GetPending(ctx context.Context, limit int) ([]outbox.OutboxEvent, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []outbox.OutboxEvent
	for _, e := range r.db.outbox {
		if e.Status == outbox.StatusPending {
			out = append(out, e)
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (r *memOutboxRepo) MarkProcessed(ctx context.Context, id uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for i := range r.db.outbox {
		if r.db.outbox[i].ID == id {
			r.db.outbox[i].Status = outbox.StatusCompleted
			return nil
		}
	}
	return relay_errors.ErrNotFound
}

func (r *memOutboxRepo) MarkFailed(ctx context.Context, id uuid.UUID, nextRetry time.Time, cause string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for i := range r.db.outbox {
		if r.db.outbox[i].ID == id {
			r.db.outbox[i].RetryCount++
			r.db.outbox[i].Error = cause
			r.db.outbox[i].NextRetryAt = &nextRetry
			return nil
		}
	}
	return relay_errors.ErrNotFound
}

func (r *memOutboxRepo) MarkDead(ctx context.Context, id uuid.UUID, cause string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for i := range r.db.outbox {
		if r.db.outbox[i].ID == id {
			r.db.outbox[i].Status = outbox.StatusFailed
			r.db.outbox[i].Error = cause
			return nil
		}
	}
	return relay_errors.ErrNotFound
}
