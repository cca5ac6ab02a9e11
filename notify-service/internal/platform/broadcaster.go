package platform

import (
	"context"
	"fmt"

	"github.com/weiawesome/wes-io-live/pkg/pubsub"
)

// PubSubBroadcaster fans room messages out to every hub instance through
// the configured pub/sub driver.
type PubSubBroadcaster struct {
	publisher  pubsub.Publisher
	instanceID string
}

// NewPubSubBroadcaster creates a broadcaster publishing on room channels.
func NewPubSubBroadcaster(publisher pubsub.Publisher, instanceID string) *PubSubBroadcaster {
	return &PubSubBroadcaster{publisher: publisher, instanceID: instanceID}
}

// Broadcast publishes message to the room's peers channel.
func (b *PubSubBroadcaster) Broadcast(ctx context.Context, roomID string, message []byte, excludeClientID string) error {
	event, err := pubsub.NewEvent(pubsub.EventUserJoined, roomID, pubsub.RoomBroadcastPayload{
		RoomID:          roomID,
		Message:         message,
		ExcludeClientID: excludeClientID,
	})
	if err != nil {
		return fmt.Errorf("failed to build broadcast event: %w", err)
	}
	event.Origin = b.instanceID
	if err := b.publisher.Publish(ctx, pubsub.RoomPeersChannel(roomID), event); err != nil {
		return fmt.Errorf("failed to publish broadcast: %w", err)
	}
	return nil
}
