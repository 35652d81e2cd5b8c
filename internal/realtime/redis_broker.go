package realtime

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// RedisBroker implements Broker over Redis Pub/Sub.
type RedisBroker struct {
	client *redis.Client
}

func NewRedisBroker(cfg RedisConfig) *RedisBroker {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &RedisBroker{client: client}
}

func (b *RedisBroker) Publish(ctx context.Context, channel string, payload []byte) error {
	return b.client.Publish(ctx, channel, payload).Err()
}

func (b *RedisBroker) Subscribe(ctx context.Context, channel string) (Subscription, error) {
	pubsub := b.client.Subscribe(ctx, channel)
	// Surface subscription errors now instead of on first receive.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, err
	}

	sub := &redisSubscription{
		pubsub: pubsub,
		out:    make(chan []byte, 64),
	}
	go sub.pump(ctx)
	return sub, nil
}

func (b *RedisBroker) Close() error {
	return b.client.Close()
}

type redisSubscription struct {
	pubsub *redis.PubSub
	out    chan []byte

	mu  sync.Mutex
	err error
}

func (s *redisSubscription) pump(ctx context.Context) {
	defer close(s.out)
	for {
		msg, err := s.pubsub.ReceiveMessage(ctx)
		if err != nil {
			s.mu.Lock()
			s.err = err
			s.mu.Unlock()
			return
		}
		select {
		case s.out <- []byte(msg.Payload):
		case <-ctx.Done():
			s.mu.Lock()
			s.err = ctx.Err()
			s.mu.Unlock()
			return
		}
	}
}

func (s *redisSubscription) Messages() <-chan []byte {
	return s.out
}

func (s *redisSubscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *redisSubscription) Close() error {
	return s.pubsub.Close()
}
