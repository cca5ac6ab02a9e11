package hub

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/gorilla/websocket"

	"github.com/weiawesome/wes-io-live/notify-service/internal/config"
	"github.com/weiawesome/wes-io-live/pkg/log"
)

// ErrClientClosed is returned when queueing a frame for a client the hub
// has already removed.
var ErrClientClosed = errors.New("client closed")

type Client struct {
	ID     string
	RoomID string
	Hub    *Hub
	Conn   *websocket.Conn
	Send   chan []byte
	config config.WebSocketConfig

	// closed is guarded by Hub.mu and set when Send is closed.
	closed bool
}

func NewClient(id, roomID string, hub *Hub, conn *websocket.Conn, cfg config.WebSocketConfig) *Client {
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 54 * time.Second
	}
	if cfg.PongWait <= 0 {
		cfg.PongWait = 60 * time.Second
	}
	if cfg.WriteWait <= 0 {
		cfg.WriteWait = 10 * time.Second
	}
	return &Client{
		ID:     id,
		RoomID: roomID,
		Hub:    hub,
		Conn:   conn,
		Send:   make(chan []byte, 256),
		config: cfg,
	}
}

func (c *Client) ReadPump(handler func(*Client, []byte)) {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()

	if c.config.MaxMessageSize > 0 {
		c.Conn.SetReadLimit(c.config.MaxMessageSize)
	}
	c.Conn.SetReadDeadline(time.Now().Add(c.config.PongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.config.PongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				l := log.L()
				l.Warn().Err(err).Str(log.FieldClientID, c.ID).Msg("websocket read error")
			}
			break
		}

		handler(c, message)
	}
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(c.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// SendMessage queues a frame for this client, dropping it when the buffer
// is full.
func (c *Client) SendMessage(message interface{}) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}

	c.Hub.mu.RLock()
	defer c.Hub.mu.RUnlock()
	if c.closed {
		return ErrClientClosed
	}
	select {
	case c.Send <- data:
	default:
		l := log.L()
		l.Warn().Str(log.FieldClientID, c.ID).Msg("client send buffer full, frame dropped")
	}
	return nil
}

// closeSend closes Send once. The caller holds Hub.mu for writing.
func (c *Client) closeSend() {
	if !c.closed {
		c.closed = true
		close(c.Send)
	}
}
