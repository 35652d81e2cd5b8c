package realtime

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

type NATSConfig struct {
	URL           string
	MaxReconnects int
	ReconnectWait time.Duration
}

// NATSBroker implements Broker over core NATS subjects. Broker channels
// use ':' separators; NATS subjects use '.', so names are mapped at the
// boundary.
type NATSBroker struct {
	conn *nats.Conn
}

func NewNATSBroker(cfg NATSConfig) (*NATSBroker, error) {
	if cfg.MaxReconnects == 0 {
		cfg.MaxReconnects = -1
	}
	if cfg.ReconnectWait == 0 {
		cfg.ReconnectWait = 2 * time.Second
	}
	conn, err := nats.Connect(cfg.URL,
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
	)
	if err != nil {
		return nil, err
	}
	return &NATSBroker{conn: conn}, nil
}

func subject(channel string) string {
	return strings.ReplaceAll(channel, ":", ".")
}

func (b *NATSBroker) Publish(_ context.Context, channel string, payload []byte) error {
	return b.conn.Publish(subject(channel), payload)
}

func (b *NATSBroker) Subscribe(ctx context.Context, channel string) (Subscription, error) {
	sub := &natsSubscription{out: make(chan []byte, 64)}

	natsSub, err := b.conn.Subscribe(subject(channel), func(msg *nats.Msg) {
		sub.deliver(msg.Data)
	})
	if err != nil {
		return nil, err
	}
	sub.sub = natsSub

	go func() {
		<-ctx.Done()
		sub.fail(ctx.Err())
	}()
	return sub, nil
}

func (b *NATSBroker) Close() error {
	b.conn.Close()
	return nil
}

type natsSubscription struct {
	sub *nats.Subscription
	out chan []byte

	mu     sync.Mutex
	err    error
	closed bool
}

func (s *natsSubscription) deliver(data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.out <- data:
	default:
		// Slow consumer; ephemeral events are droppable, durable state
		// is recovered by resync.
	}
}

func (s *natsSubscription) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.err = err
	_ = s.sub.Unsubscribe()
	close(s.out)
}

func (s *natsSubscription) Messages() <-chan []byte {
	return s.out
}

func (s *natsSubscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *natsSubscription) Close() error {
	s.fail(nil)
	return nil
}
