package service

import (
	"context"

	"github.com/weiawesome/wes-io-live/notify-service/internal/domain"
	"github.com/weiawesome/wes-io-live/pkg/notify"
)

// NotifyService defines the join notification gateway.
type NotifyService interface {
	// NotifyJoin never returns an error: every failure is an Outcome.
	NotifyJoin(ctx context.Context, req *notify.NotifyJoinRequest, creds domain.Credentials) domain.Outcome
	// BroadcastJoin sends the join frame to every peer connected to roomID.
	BroadcastJoin(ctx context.Context, roomID, message string) error
}

// IdentityResolver resolves credentials to an acting identity.
type IdentityResolver interface {
	Resolve(ctx context.Context, creds domain.Credentials) domain.ActorIdentity
}

// DirectoryResolver maps a room to its organization.
type DirectoryResolver interface {
	Resolve(ctx context.Context, roomID string) (string, error)
}

// ThreadLocator finds or creates the room's thread.
type ThreadLocator interface {
	LocateOrCreate(ctx context.Context, orgID, roomID, name, whoCanPost string, actor domain.ActorIdentity) (string, error)
}

// PostPublisher publishes a post into a thread.
type PostPublisher interface {
	Publish(ctx context.Context, threadID, title, body string, actor domain.ActorIdentity) (string, error)
}

// AccessChecker reports a user's access level in a room.
type AccessChecker interface {
	AccessLevel(ctx context.Context, roomID, userID string) (string, error)
}

// Broadcaster delivers a frame to a room's peers.
type Broadcaster interface {
	Broadcast(ctx context.Context, roomID string, message []byte, excludeClientID string) error
}
