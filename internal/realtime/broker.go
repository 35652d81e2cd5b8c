package realtime

import (
	"context"
)

// Broker is the raw pub/sub primitive a backend must provide. Delivery
// is at-least-once and ordered only within one subscription; everything
// above the broker is built to tolerate duplicates and gaps.
type Broker interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	// Subscribe opens a raw subscription on channel. The returned
	// subscription's Messages channel closes when the underlying
	// transport fails; Err then reports the cause.
	Subscribe(ctx context.Context, channel string) (Subscription, error)
	Close() error
}

type Subscription interface {
	Messages() <-chan []byte
	Err() error
	Close() error
}
