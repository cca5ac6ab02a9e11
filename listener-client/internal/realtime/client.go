// Package realtime keeps the presence websocket connected and feeds its
// lifecycle into a session.
package realtime

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/weiawesome/wes-io-live/listener-client/internal/session"
	"github.com/weiawesome/wes-io-live/pkg/log"
)

var ErrNotConnected = errors.New("presence channel not connected")

// Events receives connection lifecycle triggers and inbound frames.
type Events interface {
	Apply(t session.Trigger) (session.Status, error)
	HandleMessage(data []byte)
}

// Config configures the presence connection.
type Config struct {
	URL               string // ws://host/presence/ws
	RoomID            string
	Token             string
	ReconnectDelay    time.Duration
	MaxReconnectDelay time.Duration
	WriteWait         time.Duration
	HandshakeTimeout  time.Duration
}

// Client dials the presence channel and reconnects with backoff.
type Client struct {
	cfg    Config
	dialer *websocket.Dialer
	logger zerolog.Logger

	mu   sync.Mutex
	conn *websocket.Conn
}

// NewClient creates a presence channel client.
func NewClient(cfg Config) *Client {
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = time.Second
	}
	if cfg.MaxReconnectDelay < cfg.ReconnectDelay {
		cfg.MaxReconnectDelay = 30 * time.Second
	}
	if cfg.WriteWait <= 0 {
		cfg.WriteWait = 10 * time.Second
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = 10 * time.Second
	}
	l := log.L()
	return &Client{
		cfg:    cfg,
		dialer: &websocket.Dialer{HandshakeTimeout: cfg.HandshakeTimeout},
		logger: l.With().Str(log.FieldRoomID, cfg.RoomID).Logger(),
	}
}

// Send writes one text frame. It fails fast when no connection is up.
func (c *Client) Send(ctx context.Context, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return ErrNotConnected
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	deadline := time.Now().Add(c.cfg.WriteWait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	c.conn.SetWriteDeadline(deadline)
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Run keeps the connection up until ctx is done or the session is torn
// down, reporting every lifecycle step to events.
func (c *Client) Run(ctx context.Context, events Events) error {
	delay := c.cfg.ReconnectDelay

	for {
		if _, err := events.Apply(session.TriggerConnectAttempt); errors.Is(err, session.ErrTornDown) {
			return nil
		}

		conn, err := c.dial(ctx)
		if err == nil {
			delay = c.cfg.ReconnectDelay
			// Send must work as soon as the session sees connected.
			c.setConn(conn)
			if _, err := events.Apply(session.TriggerConnectionAcknowledged); errors.Is(err, session.ErrTornDown) {
				c.setConn(nil)
				conn.Close()
				return nil
			}
			c.logger.Info().Msg("presence channel connected")

			err = c.readLoop(ctx, conn, events)
		}

		if ctx.Err() != nil {
			return nil
		}
		c.logger.Warn().Err(err).Dur("retry_in", delay).Msg("presence channel dropped")
		if _, err := events.Apply(session.TriggerConnectionDropped); errors.Is(err, session.ErrTornDown) {
			return nil
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}
		delay *= 2
		if delay > c.cfg.MaxReconnectDelay {
			delay = c.cfg.MaxReconnectDelay
		}
	}
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	u, err := url.Parse(c.cfg.URL)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("room_id", c.cfg.RoomID)
	u.RawQuery = q.Encode()

	header := http.Header{}
	if c.cfg.Token != "" {
		header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	conn, _, err := c.dialer.DialContext(ctx, u.String(), header)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

func (c *Client) setConn(conn *websocket.Conn) {
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn, events Events) error {
	defer func() {
		c.setConn(nil)
		conn.Close()
	}()

	// Unblock ReadMessage when ctx ends.
	stop := context.AfterFunc(ctx, func() {
		conn.Close()
	})
	defer stop()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		events.HandleMessage(data)
	}
}
