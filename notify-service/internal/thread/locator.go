// Package thread finds or creates the discussion thread bound to a room.
package thread

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/weiawesome/wes-io-live/notify-service/internal/domain"
	"github.com/weiawesome/wes-io-live/notify-service/internal/platform"
	"github.com/weiawesome/wes-io-live/pkg/log"
)

var (
	ErrNoActingIdentity = errors.New("no acting identity")
	ErrPermissionDenied = errors.New("no permission to locate or create thread")
	ErrLocateFailed     = errors.New("thread locate failed")
)

// Store is the slice of the platform the locator needs.
type Store interface {
	LocateOrCreateThread(ctx context.Context, req platform.ThreadRequest) (*domain.Thread, error)
}

// Locator is idempotent per (organization, room). Concurrent callers in this
// process share one platform call; the store's unique room binding covers
// other processes.
type Locator struct {
	store        Store
	sf           singleflight.Group
	storeTimeout time.Duration

	mu    sync.RWMutex
	known map[string]string
}

// NewLocator creates a new thread locator.
func NewLocator(store Store) *Locator {
	return &Locator{store: store, storeTimeout: defaultStoreTimeout, known: make(map[string]string)}
}

const defaultStoreTimeout = 10 * time.Second

// LocateOrCreate returns the id of the room's thread.
func (l *Locator) LocateOrCreate(ctx context.Context, orgID, roomID, name, whoCanPost string, actor domain.ActorIdentity) (string, error) {
	if actor.IsNone() {
		return "", ErrNoActingIdentity
	}

	key := orgID + ":" + roomID
	l.mu.RLock()
	threadID, ok := l.known[key]
	l.mu.RUnlock()
	if ok {
		return threadID, nil
	}

	// The shared store call outlives any one caller's cancellation; a caller
	// whose ctx ends stops waiting without failing the others.
	flight := l.sf.DoChan(key+":"+string(actor.Kind)+":"+actor.ID(), func() (interface{}, error) {
		storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.storeTimeout)
		defer cancel()
		thread, err := l.store.LocateOrCreateThread(storeCtx, platform.ThreadRequest{
			OrganizationID: orgID,
			RoomID:         roomID,
			Name:           name,
			WhoCanPost:     whoCanPost,
			Actor:          actor,
		})
		if err != nil {
			return nil, err
		}
		return thread.ID, nil
	})

	var res singleflight.Result
	select {
	case res = <-flight:
	case <-ctx.Done():
		return "", fmt.Errorf("%w: %v", ErrLocateFailed, ctx.Err())
	}
	if err := res.Err; err != nil {
		if errors.Is(err, platform.ErrPermissionDenied) {
			return "", fmt.Errorf("%w: %v", ErrPermissionDenied, err)
		}
		return "", fmt.Errorf("%w: %v", ErrLocateFailed, err)
	}

	threadID, ok = res.Val.(string)
	if !ok {
		return "", fmt.Errorf("unexpected result type from singleflight")
	}

	l.mu.Lock()
	l.known[key] = threadID
	l.mu.Unlock()

	lg := log.Ctx(ctx)
	lg.Debug().
		Str(log.FieldThreadID, threadID).
		Str(log.FieldOrgID, orgID).
		Bool("shared", res.Shared).
		Msg("thread located")

	return threadID, nil
}
