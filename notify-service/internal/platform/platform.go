package platform

import (
	"context"
	"errors"
	"fmt"

	"github.com/weiawesome/wes-io-live/notify-service/internal/domain"
)

// Broadcaster delivers a frame to a room's connected peers.
type Broadcaster interface {
	Broadcast(ctx context.Context, roomID string, message []byte, excludeClientID string) error
}

// Client is the Platform assembled from a token validator, the GORM store
// and a broadcaster.
type Client struct {
	tokens      TokenValidator
	store       *GormStore
	broadcaster Broadcaster
}

// New assembles a platform client. broadcaster may be nil.
func New(tokens TokenValidator, store *GormStore, broadcaster Broadcaster) *Client {
	return &Client{tokens: tokens, store: store, broadcaster: broadcaster}
}

func (c *Client) ValidateToken(ctx context.Context, token string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	userID, err := c.tokens.ValidateToken(token)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return userID, nil
}

func (c *Client) OrganizationForRoom(ctx context.Context, roomID string) (string, error) {
	return c.store.OrganizationForRoom(ctx, roomID)
}

func (c *Client) AccessLevel(ctx context.Context, roomID, userID string) (string, error) {
	return c.store.AccessLevel(ctx, roomID, userID)
}

func (c *Client) LocateOrCreateThread(ctx context.Context, req ThreadRequest) (*domain.Thread, error) {
	return c.store.LocateOrCreateThread(ctx, req)
}

func (c *Client) PublishPost(ctx context.Context, req PostRequest) (*domain.Post, error) {
	return c.store.PublishPost(ctx, req)
}

func (c *Client) Broadcast(ctx context.Context, roomID string, message []byte, excludeClientID string) error {
	if c.broadcaster == nil {
		return ErrBroadcastDisabled
	}
	return c.broadcaster.Broadcast(ctx, roomID, message, excludeClientID)
}

// IsPermission reports whether err is a platform permission denial.
func IsPermission(err error) bool {
	return errors.Is(err, ErrPermissionDenied)
}
