package pubsub

import (
	"context"
	"path"
	"sync"
)

type memorySubscription struct {
	key    string
	ch     chan *Event
	cancel context.CancelFunc
}

// MemoryPubSub is an in-process PubSub for single-instance deployments and
// tests. Patterns use path.Match syntax, which covers the "*" channel
// patterns used by the Redis driver. Several subscribers may share a key.
type MemoryPubSub struct {
	subs map[*memorySubscription]struct{}
	mu   sync.RWMutex
}

// NewMemoryPubSub creates a new in-process PubSub.
func NewMemoryPubSub() *MemoryPubSub {
	return &MemoryPubSub{subs: make(map[*memorySubscription]struct{})}
}

// Publish delivers the event to every matching subscription. Slow
// subscribers drop events, matching the Redis driver's behaviour.
func (m *MemoryPubSub) Publish(ctx context.Context, channel string, event *Event) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for sub := range m.subs {
		if ok, _ := path.Match(sub.key, channel); !ok {
			continue
		}
		select {
		case sub.ch <- event:
		default:
			// Channel full, skip message
		}
	}
	return ctx.Err()
}

// Subscribe subscribes to a specific channel.
func (m *MemoryPubSub) Subscribe(ctx context.Context, channel string) (<-chan *Event, error) {
	return m.subscribe(ctx, channel), nil
}

// SubscribePattern subscribes to channels matching a pattern.
func (m *MemoryPubSub) SubscribePattern(ctx context.Context, pattern string) (<-chan *Event, error) {
	return m.subscribe(ctx, pattern), nil
}

func (m *MemoryPubSub) subscribe(ctx context.Context, key string) <-chan *Event {
	subCtx, cancel := context.WithCancel(ctx)
	sub := &memorySubscription{key: key, ch: make(chan *Event, 100), cancel: cancel}

	m.mu.Lock()
	m.subs[sub] = struct{}{}
	m.mu.Unlock()

	go func() {
		<-subCtx.Done()
		m.mu.Lock()
		delete(m.subs, sub)
		m.mu.Unlock()
		close(sub.ch)
	}()

	return sub.ch
}

// Unsubscribe cancels every subscription to a channel or pattern.
func (m *MemoryPubSub) Unsubscribe(_ context.Context, channel string) error {
	m.mu.RLock()
	var matched []*memorySubscription
	for sub := range m.subs {
		if sub.key == channel {
			matched = append(matched, sub)
		}
	}
	m.mu.RUnlock()

	for _, sub := range matched {
		sub.cancel()
	}
	return nil
}

// Close cancels every subscription.
func (m *MemoryPubSub) Close() error {
	m.mu.Lock()
	subs := m.subs
	m.subs = make(map[*memorySubscription]struct{})
	m.mu.Unlock()

	for sub := range subs {
		sub.cancel()
	}
	return nil
}
