package outbox

import (
	"context"
	"encoding/json"
	"time"

	"relay-chat/internal/events"
	"relay-chat/internal/realtime"
	"relay-chat/internal/repository"
	"relay-chat/pkg/logger"
)

// Processor drains pending outbox rows and publishes them to the
// realtime broker. Because rows are committed atomically with the store
// mutation they describe, the feed is at-least-once: a publish that
// succeeds but fails to be marked processed is re-sent, and consumers
// dedupe by entity id.
type Processor struct {
	repo       repository.OutboxRepository
	broker     realtime.Broker
	log        *logger.Logger
	clock      func() time.Time
	batchSize  int
	interval   time.Duration
	maxRetries int
}

func NewProcessor(repo repository.OutboxRepository, broker realtime.Broker, log *logger.Logger, batchSize int, interval time.Duration, maxRetries int) *Processor {
	return &Processor{
		repo:       repo,
		broker:     broker,
		log:        log,
		clock:      time.Now,
		batchSize:  batchSize,
		interval:   interval,
		maxRetries: maxRetries,
	}
}

func DefaultProcessor(repo repository.OutboxRepository, broker realtime.Broker, log *logger.Logger) *Processor {
	return NewProcessor(repo, broker, log, 100, time.Second*2, 5)
}

func (p *Processor) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.processBatch(ctx)
		}
	}
}

func (p *Processor) processBatch(ctx context.Context) {
	batch, err := p.repo.GetPending(ctx, p.batchSize)
	if err != nil || len(batch) == 0 {
		return
	}

	for _, e := range batch {
		if e.RetryCount >= p.maxRetries {
			_ = p.repo.MarkDead(ctx, e.ID, "max retries exceeded")
			continue
		}

		env := events.Envelope{
			EventType:     e.EventType,
			AggregateType: e.AggregateType,
			AggregateID:   e.AggregateID,
			OccurredAt:    e.CreatedAt.UTC(),
			Payload:       json.RawMessage(e.Payload),
		}
		payload, err := json.Marshal(env)
		if err != nil {
			_ = p.repo.MarkFailed(ctx, e.ID, p.clock().Add(time.Minute), err.Error())
			continue
		}

		published := true
		for _, channel := range routeChannels(env) {
			if err := p.broker.Publish(ctx, channel, payload); err != nil {
				p.log.Warnf("outbox publish %s to %s failed: %v", e.EventType, channel, err)
				published = false
				break
			}
		}
		if !published {
			_ = p.repo.MarkFailed(ctx, e.ID, p.clock().Add(time.Minute), "publish failed")
			continue
		}

		_ = p.repo.MarkProcessed(ctx, e.ID)
	}
}

// routeChannels maps an envelope to its broker channels. Conversation
// scoped changes go to that conversation's channel; lifecycle changes
// additionally hit the process-wide activity scope so clients learn
// about threads they are not yet subscribed to.
func routeChannels(env events.Envelope) []string {
	switch env.AggregateType {
	case events.AggregateTypeMessage,
		events.AggregateTypeReaction,
		events.AggregateTypeReceipt,
		events.AggregateTypeParticipant,
		events.AggregateTypeTyping:
		return []string{events.ConversationChannel(env.AggregateID)}
	case events.AggregateTypeConversation:
		switch env.EventType {
		case events.EventTypeConversationCreated:
			return []string{events.ChannelActivity}
		default:
			return []string{events.ConversationChannel(env.AggregateID), events.ChannelActivity}
		}
	}
	return nil
}
