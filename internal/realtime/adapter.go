package realtime

import (
	"context"
	"sync"
	"time"

	"relay-chat/internal/events"
	"relay-chat/pkg/logger"

	"github.com/google/uuid"
)

// Adapter turns domain requests (subscribe to a conversation, announce
// typing) into broker primitives and owns reconnection. It holds one
// logical channel per subscription plus the process-wide activity scope.
type Adapter struct {
	broker Broker
	log    *logger.Logger

	subscribeAttempts int
	baseBackoff       time.Duration
	maxBackoff        time.Duration

	mu     sync.RWMutex
	active map[uuid.UUID]int // subscribed conversation refcounts
}

func NewAdapter(broker Broker, log *logger.Logger) *Adapter {
	return &Adapter{
		broker:            broker,
		log:               log,
		subscribeAttempts: 5,
		baseBackoff:       500 * time.Millisecond,
		maxBackoff:        30 * time.Second,
		active:            make(map[uuid.UUID]int),
	}
}

// Channel builds an idle handle for one conversation. The handle must be
// Subscribed before it delivers anything; resync may be nil for callers
// that re-fetch on their own schedule.
func (a *Adapter) Channel(conversationID uuid.UUID, h Handlers, resync ResyncFunc) *Channel {
	return &Channel{
		adapter:        a,
		name:           events.ConversationChannel(conversationID.String()),
		conversationID: conversationID,
		handlers:       h,
		resync:         resync,
		state:          StateIdle,
	}
}

// Subscribe opens a conversation channel and returns its disposer. After
// the disposer returns no handler fires again.
func (a *Adapter) Subscribe(ctx context.Context, conversationID uuid.UUID, h Handlers, resync ResyncFunc) (func(), error) {
	ch := a.Channel(conversationID, h, resync)
	if err := ch.Subscribe(ctx); err != nil {
		return nil, err
	}
	return ch.Unsubscribe, nil
}

// SubscribeActivity opens the process-wide activity scope, which carries
// lightweight announcements (new conversations, hide/reveal) independent
// of any single conversation subscription.
func (a *Adapter) SubscribeActivity(ctx context.Context, onEvent func(*events.ConversationEvent)) (func(), error) {
	ch := &Channel{
		adapter:  a,
		name:     events.ChannelActivity,
		handlers: Handlers{OnConversation: onEvent},
		state:    StateIdle,
	}
	if err := ch.Subscribe(ctx); err != nil {
		return nil, err
	}
	return ch.Unsubscribe, nil
}

// BroadcastTyping publishes an ephemeral typing signal. Best-effort: no
// retry, no persistence, and a conversation this process never
// subscribed is silently skipped. Failures surface as a transport error
// without retry.
func (a *Adapter) BroadcastTyping(ctx context.Context, conversationID, userID uuid.UUID, isTyping bool) error {
	if !a.isSubscribed(conversationID) {
		return nil
	}
	return publishTyping(ctx, a.broker, conversationID, userID, isTyping)
}

func (a *Adapter) isSubscribed(conversationID uuid.UUID) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.active[conversationID] > 0
}

func (a *Adapter) markSubscribed(conversationID uuid.UUID) {
	if conversationID == uuid.Nil {
		return
	}
	a.mu.Lock()
	a.active[conversationID]++
	a.mu.Unlock()
}

func (a *Adapter) markUnsubscribed(conversationID uuid.UUID) {
	if conversationID == uuid.Nil {
		return
	}
	a.mu.Lock()
	if a.active[conversationID] > 1 {
		a.active[conversationID]--
	} else {
		delete(a.active, conversationID)
	}
	a.mu.Unlock()
}
