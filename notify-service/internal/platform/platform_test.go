package platform

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weiawesome/wes-io-live/pkg/jwt"
	"github.com/weiawesome/wes-io-live/pkg/pubsub"
)

func TestClientValidateToken(t *testing.T) {
	manager, err := jwt.NewManager("secret", "", time.Hour)
	require.NoError(t, err)
	client := New(NewJWTValidator(manager), newTestStore(t), nil)

	token, err := manager.Issue("u1", nil)
	require.NoError(t, err)

	userID, err := client.ValidateToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "u1", userID)

	_, err = client.ValidateToken(context.Background(), "garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestClientBroadcastWithoutBroadcaster(t *testing.T) {
	client := New(nil, nil, nil)
	err := client.Broadcast(context.Background(), "r1", []byte("{}"), "")
	assert.ErrorIs(t, err, ErrBroadcastDisabled)
}

func TestPubSubBroadcasterPublishesOnRoomChannel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := pubsub.NewMemoryPubSub()
	events, err := bus.SubscribePattern(ctx, pubsub.PatternRoomPeers)
	require.NoError(t, err)

	client := New(nil, nil, NewPubSubBroadcaster(bus, "node-1"))
	require.NoError(t, client.Broadcast(ctx, "r1", []byte(`{"type":"user_joined"}`), "c1"))

	select {
	case event := <-events:
		assert.Equal(t, pubsub.EventUserJoined, event.Type)
		var payload pubsub.RoomBroadcastPayload
		require.NoError(t, event.UnmarshalPayload(&payload))
		assert.Equal(t, "r1", payload.RoomID)
		assert.Equal(t, "c1", payload.ExcludeClientID)
		assert.Equal(t, "node-1", event.Origin)
		assert.JSONEq(t, `{"type":"user_joined"}`, string(payload.Message))
	case <-time.After(time.Second):
		t.Fatal("no broadcast event")
	}
}

type failingPublisher struct{}

func (failingPublisher) Publish(context.Context, string, *pubsub.Event) error {
	return errors.New("bus down")
}

func TestPubSubBroadcasterWrapsPublishError(t *testing.T) {
	err := NewPubSubBroadcaster(failingPublisher{}, "").Broadcast(context.Background(), "r1", []byte("{}"), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bus down")
}
