package hub

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weiawesome/wes-io-live/notify-service/internal/config"
)

func startHub(t *testing.T) *Hub {
	t.Helper()
	h := NewHub(config.WebSocketConfig{})
	go h.Run()
	t.Cleanup(h.Stop)
	return h
}

func TestSendMessageAfterUnregister(t *testing.T) {
	h := startHub(t)
	c := NewClient("c1", "r1", h, nil, config.WebSocketConfig{})
	h.Register(c)

	require.NoError(t, c.SendMessage(map[string]string{"type": "pong"}))
	assert.JSONEq(t, `{"type":"pong"}`, string(<-c.Send))

	h.Unregister(c)
	require.Eventually(t, func() bool {
		return errors.Is(c.SendMessage(map[string]string{"type": "pong"}), ErrClientClosed)
	}, time.Second, 5*time.Millisecond)

	_, ok := <-c.Send
	assert.False(t, ok)
}

func TestSendMessageAfterStop(t *testing.T) {
	h := NewHub(config.WebSocketConfig{})
	go h.Run()
	c := NewClient("c1", "r1", h, nil, config.WebSocketConfig{})
	h.Register(c)

	h.Stop()

	assert.ErrorIs(t, c.SendMessage(map[string]string{"type": "pong"}), ErrClientClosed)
	// Unregister after stop must not close Send twice.
	h.Unregister(c)
}

func TestBroadcastSkipsExcludedClient(t *testing.T) {
	h := startHub(t)
	sender := NewClient("c1", "r1", h, nil, config.WebSocketConfig{})
	peer := NewClient("c2", "r1", h, nil, config.WebSocketConfig{})
	other := NewClient("c3", "r2", h, nil, config.WebSocketConfig{})
	for _, c := range []*Client{sender, peer, other} {
		h.Register(c)
	}

	h.BroadcastRawToRoom("r1", []byte(`{"type":"user_joined"}`), sender.ID)

	select {
	case data := <-peer.Send:
		assert.JSONEq(t, `{"type":"user_joined"}`, string(data))
	case <-time.After(time.Second):
		t.Fatal("peer did not receive the frame")
	}
	assert.Empty(t, sender.Send)
	assert.Empty(t, other.Send)
}
