package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	pkglog "github.com/weiawesome/wes-io-live/pkg/log"
)

type redisSubscription struct {
	key  string
	ps   *redis.PubSub
	done chan struct{}
}

// RedisPubSub carries room events over Redis PUBLISH/PSUBSCRIBE.
type RedisPubSub struct {
	client *redis.Client

	mu   sync.Mutex
	subs map[*redisSubscription]struct{}
}

// NewRedisPubSub dials Redis and verifies the connection.
func NewRedisPubSub(cfg RedisConfig) (*RedisPubSub, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Address, err)
	}
	return NewRedisPubSubWithClient(client), nil
}

// NewRedisPubSubWithClient uses an existing client; Close closes it.
func NewRedisPubSubWithClient(client *redis.Client) *RedisPubSub {
	return &RedisPubSub{client: client, subs: make(map[*redisSubscription]struct{})}
}

// Publish sends the JSON-encoded event on channel.
func (r *RedisPubSub) Publish(ctx context.Context, channel string, event *Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := r.client.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish on %s: %w", channel, err)
	}
	return nil
}

// Subscribe delivers the events of one channel.
func (r *RedisPubSub) Subscribe(ctx context.Context, channel string) (<-chan *Event, error) {
	return r.attach(ctx, channel, r.client.Subscribe(ctx, channel))
}

// SubscribePattern delivers the events of every channel matching pattern.
func (r *RedisPubSub) SubscribePattern(ctx context.Context, pattern string) (<-chan *Event, error) {
	return r.attach(ctx, pattern, r.client.PSubscribe(ctx, pattern))
}

func (r *RedisPubSub) attach(ctx context.Context, key string, ps *redis.PubSub) (<-chan *Event, error) {
	// Receive blocks until the server confirms, so a publish right after
	// Subscribe returns is not lost.
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", key, err)
	}

	sub := &redisSubscription{key: key, ps: ps, done: make(chan struct{})}
	r.mu.Lock()
	r.subs[sub] = struct{}{}
	r.mu.Unlock()

	out := make(chan *Event, 100)
	go r.forward(ctx, sub, out)
	return out, nil
}

func (r *RedisPubSub) forward(ctx context.Context, sub *redisSubscription, out chan<- *Event) {
	defer func() {
		sub.ps.Close()
		r.mu.Lock()
		delete(r.subs, sub)
		r.mu.Unlock()
		close(out)
		close(sub.done)
	}()

	messages := sub.ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				l := pkglog.L()
				l.Warn().Err(err).Str("channel", msg.Channel).Msg("redis pubsub: undecodable event")
				continue
			}
			if event.RoomID == "" {
				event.RoomID, _ = RoomFromChannel(msg.Channel)
			}
			select {
			case out <- &event:
			default:
				// Channel full, skip message
			}
		}
	}
}

// Unsubscribe closes every subscription on channel.
func (r *RedisPubSub) Unsubscribe(_ context.Context, channel string) error {
	r.stop(func(sub *redisSubscription) bool { return sub.key == channel })
	return nil
}

// Close closes all subscriptions and the client.
func (r *RedisPubSub) Close() error {
	r.stop(func(*redisSubscription) bool { return true })
	return r.client.Close()
}

func (r *RedisPubSub) stop(match func(*redisSubscription) bool) {
	r.mu.Lock()
	var stopping []*redisSubscription
	for sub := range r.subs {
		if match(sub) {
			stopping = append(stopping, sub)
		}
	}
	r.mu.Unlock()

	for _, sub := range stopping {
		// Closing the PubSub closes its message channel and ends forward.
		sub.ps.Close()
		<-sub.done
	}
}
