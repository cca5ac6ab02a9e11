// Package directory maps rooms to the organizations that own them.
package directory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/weiawesome/wes-io-live/notify-service/internal/cache"
	"github.com/weiawesome/wes-io-live/notify-service/internal/platform"
	"github.com/weiawesome/wes-io-live/pkg/log"
)

var (
	ErrOrganizationNotFound = errors.New("organization not found for room")
	ErrLookupFailed         = errors.New("directory lookup failed")
)

// OrganizationLookup is the slice of the platform the resolver needs.
type OrganizationLookup interface {
	OrganizationForRoom(ctx context.Context, roomID string) (string, error)
}

// Resolver caches room→organization bindings for the process lifetime.
// Bindings never change once resolved, so entries never expire locally.
type Resolver struct {
	lookup       OrganizationLookup
	shared       cache.OrganizationCache
	sharedTTL    time.Duration
	fetchTimeout time.Duration

	mu    sync.RWMutex
	local map[string]string
	sf    singleflight.Group
}

// NewResolver creates a resolver. shared may be nil.
func NewResolver(lookup OrganizationLookup, shared cache.OrganizationCache, sharedTTL time.Duration) *Resolver {
	return &Resolver{
		lookup:       lookup,
		shared:       shared,
		sharedTTL:    sharedTTL,
		fetchTimeout: defaultFetchTimeout,
		local:        make(map[string]string),
	}
}

const defaultFetchTimeout = 10 * time.Second

// Resolve returns the organization owning roomID. Concurrent misses share
// one fetch that is detached from any single caller's cancellation; each
// caller still stops waiting when its own ctx ends.
func (r *Resolver) Resolve(ctx context.Context, roomID string) (string, error) {
	r.mu.RLock()
	orgID, ok := r.local[roomID]
	r.mu.RUnlock()
	if ok {
		return orgID, nil
	}

	flight := r.sf.DoChan(roomID, func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.fetchTimeout)
		defer cancel()
		return r.fetch(fetchCtx, roomID)
	})

	var res singleflight.Result
	select {
	case res = <-flight:
	case <-ctx.Done():
		return "", fmt.Errorf("%w: %v", ErrLookupFailed, ctx.Err())
	}
	if res.Err != nil {
		return "", res.Err
	}

	orgID, ok = res.Val.(string)
	if !ok {
		return "", fmt.Errorf("unexpected result type from singleflight")
	}
	return orgID, nil
}

// Cached reports the locally cached binding, if any.
func (r *Resolver) Cached(roomID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	orgID, ok := r.local[roomID]
	return orgID, ok
}

func (r *Resolver) fetch(ctx context.Context, roomID string) (string, error) {
	l := log.Ctx(ctx)

	if r.shared != nil {
		orgID, err := r.shared.Get(ctx, roomID)
		if err == nil && orgID != "" {
			r.remember(roomID, orgID)
			return orgID, nil
		}
		if err != nil && !errors.Is(err, cache.ErrCacheMiss) {
			// Log error but continue to the platform
			l.Warn().Err(err).Str(log.FieldRoomID, roomID).Msg("organization cache get error")
		}
	}

	orgID, err := r.lookup.OrganizationForRoom(ctx, roomID)
	if err != nil {
		if errors.Is(err, platform.ErrRoomNotFound) || errors.Is(err, platform.ErrNoOrganization) {
			return "", fmt.Errorf("%w: %s", ErrOrganizationNotFound, roomID)
		}
		return "", fmt.Errorf("%w: %v", ErrLookupFailed, err)
	}
	if orgID == "" {
		return "", fmt.Errorf("%w: %s", ErrOrganizationNotFound, roomID)
	}

	r.remember(roomID, orgID)

	if r.shared != nil {
		go func() {
			cacheCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := r.shared.Set(cacheCtx, roomID, orgID, r.sharedTTL); err != nil {
				l := log.L()
				l.Warn().Err(err).Str(log.FieldRoomID, roomID).Msg("organization cache set error")
			}
		}()
	}

	return orgID, nil
}

func (r *Resolver) remember(roomID, orgID string) {
	r.mu.Lock()
	r.local[roomID] = orgID
	r.mu.Unlock()
}
