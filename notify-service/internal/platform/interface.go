package platform

import (
	"context"
	"errors"

	"github.com/weiawesome/wes-io-live/notify-service/internal/domain"
)

var (
	ErrInvalidToken      = errors.New("invalid token")
	ErrRoomNotFound      = errors.New("room not found")
	ErrNoOrganization    = errors.New("room has no owning organization")
	ErrThreadNotFound    = errors.New("thread not found")
	ErrPermissionDenied  = errors.New("permission denied")
	ErrBroadcastDisabled = errors.New("broadcast is not configured")
)

// ThreadRequest asks the platform for the room's thread, creating it when
// absent.
type ThreadRequest struct {
	OrganizationID string
	RoomID         string
	Name           string
	WhoCanPost     string
	Actor          domain.ActorIdentity
}

// PostRequest publishes a message into a thread.
type PostRequest struct {
	ThreadID  string
	Title     string
	Content   string
	IsMention bool
	Actor     domain.ActorIdentity
}

// Platform is the capability set the join pipeline consumes from the
// hosting platform. A single handle is built in main and injected.
type Platform interface {
	ValidateToken(ctx context.Context, token string) (userID string, err error)
	OrganizationForRoom(ctx context.Context, roomID string) (string, error)
	AccessLevel(ctx context.Context, roomID, userID string) (string, error)
	LocateOrCreateThread(ctx context.Context, req ThreadRequest) (*domain.Thread, error)
	PublishPost(ctx context.Context, req PostRequest) (*domain.Post, error)
	Broadcast(ctx context.Context, roomID string, message []byte, excludeClientID string) error
}

// TokenValidator verifies platform user tokens.
type TokenValidator interface {
	ValidateToken(token string) (userID string, err error)
}
