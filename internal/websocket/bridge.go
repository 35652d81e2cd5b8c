package websocket

import (
	"context"
	"sync"
	"time"

	"relay-chat/internal/events"
	"relay-chat/internal/realtime"
	"relay-chat/pkg/logger"
)

// Bridge mirrors broker channels into the hub. A broker subscription
// exists only while at least one session is subscribed to the matching
// hub channel; the activity channel is mirrored for the whole process
// lifetime.
type Bridge struct {
	broker realtime.Broker
	hub    *Hub
	auth   *ChannelAuthorizer
	log    *logger.Logger

	runCtx  context.Context
	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

func NewBridge(broker realtime.Broker, hub *Hub, auth *ChannelAuthorizer, log *logger.Logger) *Bridge {
	return &Bridge{
		broker:  broker,
		hub:     hub,
		auth:    auth,
		log:     log,
		cancels: make(map[string]context.CancelFunc),
	}
}

// Run wires the hub's channel lifecycle hooks and starts the activity
// mirror. Call before Hub.Run.
func (b *Bridge) Run(ctx context.Context) {
	b.runCtx = ctx
	b.hub.SetChannelHooks(b.acquire, b.release)
	go b.pump(ctx, events.ChannelActivity, b.deliverAnnouncement)
}

func (b *Bridge) acquire(channel string) {
	if channel == events.ChannelActivity {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.cancels[channel]; ok {
		return
	}
	ctx, cancel := context.WithCancel(b.runCtx)
	b.cancels[channel] = cancel
	go b.pump(ctx, channel, func(payload []byte) {
		b.hub.Broadcast(channel, payload)
	})
}

func (b *Bridge) release(channel string) {
	if channel == events.ChannelActivity {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if cancel, ok := b.cancels[channel]; ok {
		cancel()
		delete(b.cancels, channel)
	}
}

// pump keeps one broker subscription alive, resubscribing after drops.
func (b *Bridge) pump(ctx context.Context, channel string, deliver func([]byte)) {
	backoff := time.Second
	for {
		sub, err := b.broker.Subscribe(ctx, channel)
		if err != nil {
			b.log.Warnf("bridge subscribe %s failed: %v", channel, err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			continue
		}

		for payload := range sub.Messages() {
			deliver(payload)
		}
		_ = sub.Close()

		select {
		case <-ctx.Done():
			return
		default:
		}
		b.log.Warnf("bridge channel %s dropped, resubscribing", channel)
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
	}
}

// deliverAnnouncement fans activity events out to the sessions that
// should hear about them. conversation.created goes to every session
// whose user participates, deduped per session; hidden and revealed go
// only to the acting user's sessions.
func (b *Bridge) deliverAnnouncement(raw []byte) {
	ev, err := events.Normalize(raw)
	if err != nil || ev == nil {
		return
	}
	conv, ok := ev.(*events.ConversationEvent)
	if !ok {
		return
	}

	ctx := b.runCtx
	switch conv.Type {
	case events.EventTypeConversationCreated:
		for _, client := range b.hub.Snapshot() {
			isPart, err := b.auth.IsParticipant(ctx, conv.ConversationID, client.UserID)
			if err != nil || !isPart {
				continue
			}
			if !client.ObserveAnnouncement(conv.ConversationID) {
				continue
			}
			client.SendMessage(raw)
		}
	case events.EventTypeConversationHidden, events.EventTypeConversationRevealed:
		for _, client := range b.hub.Snapshot() {
			if client.UserID == conv.ActorID {
				client.SendMessage(raw)
			}
		}
	}
}
