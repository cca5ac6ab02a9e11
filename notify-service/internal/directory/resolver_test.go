package directory

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weiawesome/wes-io-live/notify-service/internal/cache"
	"github.com/weiawesome/wes-io-live/notify-service/internal/platform"
)

type countingLookup struct {
	orgs  map[string]string
	err   error
	gate  chan struct{}
	calls atomic.Int32
}

func (c *countingLookup) OrganizationForRoom(_ context.Context, roomID string) (string, error) {
	c.calls.Add(1)
	if c.gate != nil {
		<-c.gate
	}
	if c.err != nil {
		return "", c.err
	}
	org, ok := c.orgs[roomID]
	if !ok {
		return "", platform.ErrRoomNotFound
	}
	return org, nil
}

type memoryCache struct {
	mu   sync.Mutex
	data map[string]string
	sets chan string
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: make(map[string]string), sets: make(chan string, 10)}
}

func (m *memoryCache) Get(_ context.Context, roomID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	org, ok := m.data[roomID]
	if !ok {
		return "", cache.ErrCacheMiss
	}
	return org, nil
}

func (m *memoryCache) Set(_ context.Context, roomID, orgID string, _ time.Duration) error {
	m.mu.Lock()
	m.data[roomID] = orgID
	m.mu.Unlock()
	m.sets <- roomID
	return nil
}

func (m *memoryCache) Close() error { return nil }

func TestResolveCachesForProcessLifetime(t *testing.T) {
	lookup := &countingLookup{orgs: map[string]string{"r1": "org1"}}
	r := NewResolver(lookup, nil, 0)

	for i := 0; i < 3; i++ {
		org, err := r.Resolve(context.Background(), "r1")
		require.NoError(t, err)
		assert.Equal(t, "org1", org)
	}
	assert.Equal(t, int32(1), lookup.calls.Load())

	org, ok := r.Cached("r1")
	assert.True(t, ok)
	assert.Equal(t, "org1", org)
}

func TestResolveUnknownRoom(t *testing.T) {
	lookup := &countingLookup{orgs: map[string]string{}}
	r := NewResolver(lookup, nil, 0)

	_, err := r.Resolve(context.Background(), "r2")
	assert.ErrorIs(t, err, ErrOrganizationNotFound)

	_, ok := r.Cached("r2")
	assert.False(t, ok)

	_, err = r.Resolve(context.Background(), "r2")
	assert.ErrorIs(t, err, ErrOrganizationNotFound)
	assert.Equal(t, int32(2), lookup.calls.Load())
}

func TestResolveLookupFailure(t *testing.T) {
	lookup := &countingLookup{err: errors.New("connection refused")}
	r := NewResolver(lookup, nil, 0)

	_, err := r.Resolve(context.Background(), "r1")
	assert.ErrorIs(t, err, ErrLookupFailed)
}

func TestResolveConcurrentCallersShareOneLookup(t *testing.T) {
	lookup := &countingLookup{orgs: map[string]string{"r1": "org1"}, gate: make(chan struct{})}
	r := NewResolver(lookup, nil, 0)

	const callers = 10
	var wg sync.WaitGroup
	results := make([]string, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			org, err := r.Resolve(context.Background(), "r1")
			if err == nil {
				results[i] = org
			}
		}(i)
	}

	time.Sleep(50 * time.Millisecond)
	close(lookup.gate)
	wg.Wait()

	assert.Equal(t, int32(1), lookup.calls.Load())
	for _, org := range results {
		assert.Equal(t, "org1", org)
	}
}

func TestResolveUsesSharedCache(t *testing.T) {
	shared := newMemoryCache()
	lookup := &countingLookup{orgs: map[string]string{"r1": "org1"}}

	first := NewResolver(lookup, shared, time.Minute)
	org, err := first.Resolve(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, "org1", org)

	select {
	case <-shared.sets:
	case <-time.After(time.Second):
		t.Fatal("binding was not written to the shared cache")
	}

	second := NewResolver(lookup, shared, time.Minute)
	org, err = second.Resolve(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, "org1", org)
	assert.Equal(t, int32(1), lookup.calls.Load())
}

// ctxLookup blocks until released or until the ctx it was handed ends.
type ctxLookup struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (c *ctxLookup) OrganizationForRoom(ctx context.Context, _ string) (string, error) {
	c.once.Do(func() { close(c.started) })
	select {
	case <-c.release:
		return "org1", nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func TestResolveCancelledCallerDoesNotFailOthers(t *testing.T) {
	lookup := &ctxLookup{started: make(chan struct{}), release: make(chan struct{})}
	r := NewResolver(lookup, nil, 0)

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := r.Resolve(ctxA, "r1")
		errA <- err
	}()
	<-lookup.started

	type result struct {
		org string
		err error
	}
	resB := make(chan result, 1)
	go func() {
		org, err := r.Resolve(context.Background(), "r1")
		resB <- result{org, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancelA()
	select {
	case err := <-errA:
		assert.ErrorIs(t, err, ErrLookupFailed)
		assert.ErrorContains(t, err, context.Canceled.Error())
	case <-time.After(time.Second):
		t.Fatal("cancelled caller kept waiting")
	}

	close(lookup.release)
	select {
	case res := <-resB:
		require.NoError(t, res.err)
		assert.Equal(t, "org1", res.org)
	case <-time.After(time.Second):
		t.Fatal("second caller never resolved")
	}

	org, ok := r.Cached("r1")
	assert.True(t, ok)
	assert.Equal(t, "org1", org)
}
