package cache

import (
	"context"
	"errors"
	"time"
)

var ErrCacheMiss = errors.New("cache miss")

// OrganizationCache shares room→organization bindings between instances.
type OrganizationCache interface {
	Get(ctx context.Context, roomID string) (string, error)
	Set(ctx context.Context, roomID, organizationID string, ttl time.Duration) error
	Close() error
}
