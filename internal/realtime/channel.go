package realtime

import (
	"context"
	"sync"
	"time"

	"relay-chat/internal/events"
	relay_errors "relay-chat/pkg/errors"

	"github.com/google/uuid"
)

// State of a logical channel.
type State int32

const (
	StateIdle State = iota
	StateSubscribing
	StateSubscribed
	StateReconnecting
	StateUnsubscribed // terminal
)

// Handlers is the optional-callback record a subscriber provides. Each
// callback is invoked independently; nil callbacks are skipped.
// Callbacks run on the channel's pump goroutine under the dispatch lock
// and must not call the channel's own disposer; dispose from another
// goroutine.
type Handlers struct {
	OnMessage       func(*events.MessageEvent)
	OnMessageUpdate func(*events.MessageEvent)
	OnMessageDelete func(*events.MessageEvent)
	OnTyping        func(*events.TypingEvent)
	OnUserJoin      func(*events.ParticipantEvent)
	OnUserLeave     func(*events.ParticipantEvent)
	OnReceipt       func(*events.ReceiptEvent)
	OnReaction      func(*events.ReactionEvent)
	OnConversation  func(*events.ConversationEvent)
}

// ResyncFunc is called after every Reconnecting to Subscribed transition.
// The adapter does not replay events missed during the outage, so the
// consumer must re-fetch authoritative state here; skipping this step is
// how read/unread drift happens.
type ResyncFunc func(ctx context.Context, conversationID uuid.UUID)

// Channel is one logical subscription scope. Handlers run sequentially
// in arrival order; no two callbacks for the same channel ever run
// concurrently.
type Channel struct {
	adapter        *Adapter
	name           string
	conversationID uuid.UUID
	handlers       Handlers
	resync         ResyncFunc

	// mu guards state transitions and handler dispatch. Unsubscribe
	// acquires it before entering the terminal state, which is what
	// makes the disposer synchronous: once it returns, no callback can
	// be running or start.
	mu     sync.Mutex
	state  State
	cancel context.CancelFunc
	done   chan struct{}
}

func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Channel) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// Subscribe opens the channel. Subscribing a terminal or already-open
// handle is a state error. Transport failures are retried with backoff
// before being surfaced.
func (c *Channel) Subscribe(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return relay_errors.ErrState
	}
	c.state = StateSubscribing
	runCtx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.done = make(chan struct{})
	c.mu.Unlock()

	sub, err := c.attemptSubscribe(ctx, runCtx, c.adapter.subscribeAttempts)
	if err != nil {
		cancel()
		c.mu.Lock()
		c.state = StateIdle
		close(c.done)
		c.mu.Unlock()
		return err
	}

	c.setState(StateSubscribed)
	c.adapter.markSubscribed(c.conversationID)
	go c.run(runCtx, sub)
	return nil
}

// attemptSubscribe retries the raw subscribe with exponential backoff.
// attempts <= 0 means retry until the context is done.
func (c *Channel) attemptSubscribe(ctx, runCtx context.Context, attempts int) (Subscription, error) {
	backoff := c.adapter.baseBackoff
	var lastErr error
	for i := 0; attempts <= 0 || i < attempts; i++ {
		if i > 0 {
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-runCtx.Done():
				return nil, runCtx.Err()
			}
			backoff *= 2
			if backoff > c.adapter.maxBackoff {
				backoff = c.adapter.maxBackoff
			}
		}
		sub, err := c.adapter.broker.Subscribe(runCtx, c.name)
		if err == nil {
			return sub, nil
		}
		lastErr = err
		c.adapter.log.Warnf("subscribe %s failed (attempt %d): %v", c.name, i+1, err)
	}
	return nil, relay_errors.Transport(lastErr)
}

// run pumps events until the transport drops, then cycles through
// Reconnecting until either resubscription succeeds or the channel is
// disposed. Every recovery ends with the resync callback because the
// stream has a gap.
func (c *Channel) run(ctx context.Context, sub Subscription) {
	defer close(c.done)
	for {
		for payload := range sub.Messages() {
			c.dispatch(payload)
		}
		_ = sub.Close()

		if ctx.Err() != nil || c.State() == StateUnsubscribed {
			return
		}

		c.setState(StateReconnecting)
		c.adapter.log.Warnf("channel %s dropped: %v, reconnecting", c.name, sub.Err())

		next, err := c.attemptSubscribe(ctx, ctx, 0)
		if err != nil {
			return
		}
		sub = next

		c.mu.Lock()
		if c.state == StateUnsubscribed {
			c.mu.Unlock()
			_ = sub.Close()
			return
		}
		c.state = StateSubscribed
		c.mu.Unlock()

		if c.resync != nil {
			c.resync(ctx, c.conversationID)
		}
	}
}

func (c *Channel) dispatch(raw []byte) {
	ev, err := events.Normalize(raw)
	if err != nil {
		c.adapter.log.Warnf("channel %s: dropping event: %v", c.name, err)
		return
	}
	if ev == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateSubscribed {
		return
	}

	switch e := ev.(type) {
	case *events.MessageEvent:
		switch e.Type {
		case events.EventTypeMessageCreated:
			if c.handlers.OnMessage != nil {
				c.handlers.OnMessage(e)
			}
		case events.EventTypeMessageUpdated:
			if c.handlers.OnMessageUpdate != nil {
				c.handlers.OnMessageUpdate(e)
			}
		case events.EventTypeMessageDeleted:
			if c.handlers.OnMessageDelete != nil {
				c.handlers.OnMessageDelete(e)
			}
		}
	case *events.TypingEvent:
		if c.handlers.OnTyping != nil {
			c.handlers.OnTyping(e)
		}
	case *events.ParticipantEvent:
		switch e.Type {
		case events.EventTypeParticipantJoined:
			if c.handlers.OnUserJoin != nil {
				c.handlers.OnUserJoin(e)
			}
		case events.EventTypeParticipantLeft:
			if c.handlers.OnUserLeave != nil {
				c.handlers.OnUserLeave(e)
			}
		}
	case *events.ReceiptEvent:
		if c.handlers.OnReceipt != nil {
			c.handlers.OnReceipt(e)
		}
	case *events.ReactionEvent:
		if c.handlers.OnReaction != nil {
			c.handlers.OnReaction(e)
		}
	case *events.ConversationEvent:
		if c.handlers.OnConversation != nil {
			c.handlers.OnConversation(e)
		}
	}
}

// Unsubscribe releases the channel. It is synchronous: when it returns,
// no handler is running and none will fire again. Safe to call twice.
// It takes the dispatch lock and waits for any in-flight handler, so
// calling it from inside one of this channel's handlers deadlocks; see
// the Handlers doc.
func (c *Channel) Unsubscribe() {
	c.mu.Lock()
	if c.state == StateUnsubscribed {
		c.mu.Unlock()
		return
	}
	started := c.state != StateIdle
	c.state = StateUnsubscribed
	cancel, done := c.cancel, c.done
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if started && done != nil {
		<-done
	}
	// An idle handle never incremented the refcount, so disposing it
	// must not decrement a live subscription on the same conversation.
	if started {
		c.adapter.markUnsubscribed(c.conversationID)
	}
}
