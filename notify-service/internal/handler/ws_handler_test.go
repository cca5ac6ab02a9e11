package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weiawesome/wes-io-live/notify-service/internal/hub"
	"github.com/weiawesome/wes-io-live/pkg/notify"
	"github.com/weiawesome/wes-io-live/pkg/pubsub"
)

// startNode runs one gateway instance with its own hub attached to bus.
func startNode(t *testing.T, bus pubsub.PubSub) *httptest.Server {
	t.Helper()

	h := hub.NewHub(testWS)
	go h.Run()

	if bus != nil {
		ctx, cancel := context.WithCancel(context.Background())
		sub := hub.NewSubscriber(bus, h)
		require.NoError(t, sub.Ready(ctx))
		t.Cleanup(func() {
			cancel()
			<-sub.Done()
		})
	}
	env := newTestEnv(t, bus, h, false)

	srv := httptest.NewServer(env.router)
	t.Cleanup(func() {
		srv.Close()
		h.Stop()
	})
	return srv
}

func dial(t *testing.T, srv *httptest.Server, roomID string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/presence/ws?room_id=" + url.QueryEscape(roomID)
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn, timeout time.Duration) (map[string]any, error) {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(timeout))
	_, data, err := conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	var frame map[string]any
	require.NoError(t, json.Unmarshal(data, &frame))
	return frame, nil
}

func sendJoin(t *testing.T, conn *websocket.Conn, message string) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(notify.UserJoinedMessage{
		Type: notify.MsgTypeUserJoined,
		Data: notify.UserJoinedData{Message: message},
	}))
}

// waitForClients round-trips a ping on each connection. A pong means the
// read pump is running, which only starts after the hub registered the client.
func waitForClients(t *testing.T, conns ...*websocket.Conn) {
	t.Helper()
	for _, conn := range conns {
		require.NoError(t, conn.WriteJSON(map[string]string{"type": notify.MsgTypePing}))
		frame, err := readFrame(t, conn, 2*time.Second)
		require.NoError(t, err)
		require.Equal(t, notify.MsgTypePong, frame["type"])
	}
}

func TestPresenceRequiresRoomID(t *testing.T) {
	srv := startNode(t, nil)

	resp, err := http.Get(srv.URL + "/presence/ws")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPresenceRelaysJoinWithinInstance(t *testing.T) {
	srv := startNode(t, nil)

	sender := dial(t, srv, "r1")
	peer := dial(t, srv, "r1")
	other := dial(t, srv, "r9")
	waitForClients(t, sender, peer, other)

	sendJoin(t, sender, "")

	frame, err := readFrame(t, peer, 2*time.Second)
	require.NoError(t, err)
	assert.Equal(t, notify.MsgTypeUserJoined, frame["type"])
	data := frame["data"].(map[string]any)
	assert.Equal(t, notify.DefaultJoinMessage, data["message"])
	assert.NotZero(t, data["timestamp"])

	_, err = readFrame(t, sender, 200*time.Millisecond)
	assert.Error(t, err, "sender must not receive its own join")

	_, err = readFrame(t, other, 200*time.Millisecond)
	assert.Error(t, err, "other rooms must not receive the join")
}

func TestPresenceRelaysJoinAcrossInstances(t *testing.T) {
	bus := pubsub.NewMemoryPubSub()
	nodeA := startNode(t, bus)
	nodeB := startNode(t, bus)

	sender := dial(t, nodeA, "r1")
	peer := dial(t, nodeB, "r1")
	waitForClients(t, sender, peer)

	sendJoin(t, sender, "hello from A")

	frame, err := readFrame(t, peer, 2*time.Second)
	require.NoError(t, err)
	assert.Equal(t, notify.MsgTypeUserJoined, frame["type"])
	assert.Equal(t, "hello from A", frame["data"].(map[string]any)["message"])

	_, err = readFrame(t, sender, 200*time.Millisecond)
	assert.Error(t, err)
}

func TestPresenceRelaysJoinForRoomIDWithSeparators(t *testing.T) {
	bus := pubsub.NewMemoryPubSub()
	nodeA := startNode(t, bus)
	nodeB := startNode(t, bus)

	sender := dial(t, nodeA, "org/room:1")
	peer := dial(t, nodeB, "org/room:1")
	waitForClients(t, sender, peer)

	sendJoin(t, sender, "slash and colon")

	frame, err := readFrame(t, peer, 2*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "slash and colon", frame["data"].(map[string]any)["message"])
}

func TestBroadcastJoinEndpointReachesPeers(t *testing.T) {
	bus := pubsub.NewMemoryPubSub()
	srv := startNode(t, bus)

	peer := dial(t, srv, "r1")
	waitForClients(t, peer)

	resp, err := http.Post(srv.URL+"/api/v1/rooms/r1/broadcast-join", "application/json", strings.NewReader(`{"message":"tuned in"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	frame, err := readFrame(t, peer, 2*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "tuned in", frame["data"].(map[string]any)["message"])
}

func TestPresenceRejectsUnknownFrames(t *testing.T) {
	srv := startNode(t, nil)
	conn := dial(t, srv, "r1")

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"shout"}`)))
	frame, err := readFrame(t, conn, 2*time.Second)
	require.NoError(t, err)
	assert.Equal(t, notify.MsgTypeError, frame["type"])

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`not json`)))
	frame, err = readFrame(t, conn, 2*time.Second)
	require.NoError(t, err)
	assert.Equal(t, notify.MsgTypeError, frame["type"])
}
