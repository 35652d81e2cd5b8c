package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	outboxdomain "relay-chat/internal/domain/outbox"
	"relay-chat/internal/events"
	"relay-chat/internal/realtime"
	"relay-chat/pkg/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type fakeOutboxRepo struct {
	mu        sync.Mutex
	now       func() time.Time
	events    []outboxdomain.OutboxEvent
	processed []uuid.UUID
	failed    []uuid.UUID
	dead      []uuid.UUID
}

func (f *fakeOutboxRepo) clock() time.Time {
	if f.now != nil {
		return f.now()
	}
	return time.Now()
}

func (f *fakeOutboxRepo) Create(ctx context.Context, e *outboxdomain.OutboxEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, *e)
	return nil
}

func (f *fakeOutboxRepo) GetPending(ctx context.Context, limit int) ([]outboxdomain.OutboxEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []outboxdomain.OutboxEvent
	for _, e := range f.events {
		if e.Status != outboxdomain.StatusPending {
			continue
		}
		if e.NextRetryAt != nil && e.NextRetryAt.After(f.clock()) {
			continue
		}
		out = append(out, e)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (f *fakeOutboxRepo) MarkProcessed(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.processed = append(f.processed, id)
	for i := range f.events {
		if f.events[i].ID == id {
			f.events[i].Status = outboxdomain.StatusCompleted
		}
	}
	return nil
}

func (f *fakeOutboxRepo) MarkFailed(ctx context.Context, id uuid.UUID, nextRetry time.Time, cause string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failed = append(f.failed, id)
	for i := range f.events {
		if f.events[i].ID == id {
			f.events[i].RetryCount++
			f.events[i].Error = cause
			retryAt := nextRetry
			f.events[i].NextRetryAt = &retryAt
		}
	}
	return nil
}

func (f *fakeOutboxRepo) MarkDead(ctx context.Context, id uuid.UUID, cause string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dead = append(f.dead, id)
	for i := range f.events {
		if f.events[i].ID == id {
			f.events[i].Status = outboxdomain.StatusFailed
			f.events[i].Error = cause
		}
	}
	return nil
}

type recordingBroker struct {
	mu        sync.Mutex
	published map[string][][]byte
	err       error
}

func newRecordingBroker() *recordingBroker {
	return &recordingBroker{published: make(map[string][][]byte)}
}

func (b *recordingBroker) Publish(ctx context.Context, channel string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	b.published[channel] = append(b.published[channel], payload)
	return nil
}

func (b *recordingBroker) Subscribe(ctx context.Context, channel string) (realtime.Subscription, error) {
	return nil, errors.New("not implemented")
}

func (b *recordingBroker) Close() error { return nil }

func pendingEvent(eventType, aggregateType, aggregateID string, payload interface{}) outboxdomain.OutboxEvent {
	data, _ := json.Marshal(payload)
	return outboxdomain.OutboxEvent{
		ID:            uuid.New(),
		EventType:     eventType,
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		Payload:       data,
		Status:        outboxdomain.StatusPending,
		CreatedAt:     time.Now(),
	}
}

func Test_Processor_Routes_Message_Events_To_Conversation_Channel(t *testing.T) {
	conv := uuid.New()
	repo := &fakeOutboxRepo{}
	broker := newRecordingBroker()
	ev := pendingEvent(events.EventTypeMessageCreated, events.AggregateTypeMessage, conv.String(),
		events.MessageEvent{MessageID: uuid.New(), ConversationID: conv})
	_ = repo.Create(context.Background(), &ev)

	p := NewProcessor(repo, broker, logger.New(logger.DevelopmentMode), 10, time.Millisecond, 3)
	p.processBatch(context.Background())

	channel := events.ConversationChannel(conv.String())
	require.Len(t, broker.published[channel], 1)
	require.Empty(t, broker.published[events.ChannelActivity])
	require.Len(t, repo.processed, 1)

	var env events.Envelope
	require.NoError(t, json.Unmarshal(broker.published[channel][0], &env))
	require.Equal(t, events.EventTypeMessageCreated, env.EventType)
	require.Equal(t, conv.String(), env.AggregateID)
}

func Test_Processor_Routes_Conversation_Created_To_Activity(t *testing.T) {
	conv := uuid.New()
	repo := &fakeOutboxRepo{}
	broker := newRecordingBroker()
	ev := pendingEvent(events.EventTypeConversationCreated, events.AggregateTypeConversation, conv.String(),
		events.ConversationEvent{ConversationID: conv})
	_ = repo.Create(context.Background(), &ev)

	p := NewProcessor(repo, broker, logger.New(logger.DevelopmentMode), 10, time.Millisecond, 3)
	p.processBatch(context.Background())

	require.Len(t, broker.published[events.ChannelActivity], 1)
	require.Empty(t, broker.published[events.ConversationChannel(conv.String())])
}

func Test_Processor_Routes_Hidden_To_Both_Scopes(t *testing.T) {
	conv := uuid.New()
	repo := &fakeOutboxRepo{}
	broker := newRecordingBroker()
	ev := pendingEvent(events.EventTypeConversationHidden, events.AggregateTypeConversation, conv.String(),
		events.ConversationEvent{ConversationID: conv, ActorID: uuid.New()})
	_ = repo.Create(context.Background(), &ev)

	p := NewProcessor(repo, broker, logger.New(logger.DevelopmentMode), 10, time.Millisecond, 3)
	p.processBatch(context.Background())

	require.Len(t, broker.published[events.ConversationChannel(conv.String())], 1)
	require.Len(t, broker.published[events.ChannelActivity], 1)
}

func Test_Processor_Publish_Failure_Marks_For_Retry(t *testing.T) {
	conv := uuid.New()
	repo := &fakeOutboxRepo{}
	broker := newRecordingBroker()
	broker.err = errors.New("broker down")
	ev := pendingEvent(events.EventTypeMessageCreated, events.AggregateTypeMessage, conv.String(),
		events.MessageEvent{MessageID: uuid.New(), ConversationID: conv})
	_ = repo.Create(context.Background(), &ev)

	p := NewProcessor(repo, broker, logger.New(logger.DevelopmentMode), 10, time.Millisecond, 3)
	p.processBatch(context.Background())

	require.Empty(t, repo.processed)
	require.Len(t, repo.failed, 1)

	// The row stays pending and is re-sent once the broker recovers and
	// the backoff window has passed.
	broker.mu.Lock()
	broker.err = nil
	broker.mu.Unlock()
	repo.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	p.processBatch(context.Background())
	require.Len(t, repo.processed, 1)
}

func Test_Processor_Gives_Up_After_Max_Retries(t *testing.T) {
	conv := uuid.New()
	repo := &fakeOutboxRepo{}
	broker := newRecordingBroker()
	ev := pendingEvent(events.EventTypeMessageCreated, events.AggregateTypeMessage, conv.String(),
		events.MessageEvent{MessageID: uuid.New(), ConversationID: conv})
	ev.RetryCount = 3
	_ = repo.Create(context.Background(), &ev)

	p := NewProcessor(repo, broker, logger.New(logger.DevelopmentMode), 10, time.Millisecond, 3)
	p.processBatch(context.Background())

	require.Empty(t, repo.processed)
	require.Empty(t, repo.failed)
	require.Len(t, repo.dead, 1)
	require.Empty(t, broker.published)
	require.Equal(t, outboxdomain.StatusFailed, repo.events[0].Status)

	// Terminal: even far past any retry window the row is never
	// re-selected or re-failed.
	repo.now = func() time.Time { return time.Now().Add(24 * time.Hour) }
	p.processBatch(context.Background())
	require.Len(t, repo.dead, 1)
	require.Empty(t, broker.published)
}
