package store

import (
	"context"
	"encoding/json"
	"time"

	"relay-chat/internal/domain/outbox"
	"relay-chat/internal/repository"
	"relay-chat/pkg/logger"

	"github.com/google/uuid"
)

// RevivalPolicy names the behavior applied to hidden participants when a
// new message lands in their conversation.
type RevivalPolicy string

const (
	// ReviveOnNewMessage clears a participant's hide when a message newer
	// than the hide arrives, so the thread resurfaces in their list.
	ReviveOnNewMessage RevivalPolicy = "revive-on-new-message"
	// StayHidden leaves hidden participants hidden regardless of new
	// activity.
	StayHidden RevivalPolicy = "stay-hidden"
)

// Store owns every durable mutation over conversations, participants,
// messages, reactions and read receipts. It knows nothing about the
// transport; each mutation appends its row diff to the outbox inside the
// same transaction, and the outbox processor feeds the broker from there.
type Store struct {
	tx      repository.TxManager
	log     *logger.Logger
	revival RevivalPolicy
	clock   func() time.Time
}

func New(tx repository.TxManager, log *logger.Logger, revival RevivalPolicy) *Store {
	if revival == "" {
		revival = ReviveOnNewMessage
	}
	return &Store{
		tx:      tx,
		log:     log,
		revival: revival,
		clock:   time.Now,
	}
}

// appendOutbox serializes the event payload and stages it on the
// transaction's outbox repository.
func appendOutbox(ctx context.Context, r repository.Repositories, eventType, aggregateType, aggregateID string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return r.Outbox.Create(ctx, &outbox.OutboxEvent{
		ID:            uuid.New(),
		EventType:     eventType,
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		Payload:       data,
		Status:        outbox.StatusPending,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	})
}
