package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Room channels follow "{prefix}:room:{roomID}:to_{target}". The Kafka
// driver relies on that shape to derive topics and message keys. Room ids
// are query-escaped in channel names so ":", "/" and glob characters in an
// id cannot break the shape or pattern matching.
const (
	ChannelRoomPeers = "notify:room:%s:to_peers"
	PatternRoomPeers = "notify:room:*:to_peers"
)

// EventUserJoined is published when a listener announces itself in a room.
const EventUserJoined = "user_joined"

// Event is the envelope carried by every driver.
type Event struct {
	Type      string          `json:"type"`
	RoomID    string          `json:"room_id"`
	Origin    string          `json:"origin,omitempty"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewEvent marshals payload into a fresh event stamped with the current time.
func NewEvent(eventType, roomID string, payload any) (*Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}
	return &Event{
		Type:      eventType,
		RoomID:    roomID,
		Payload:   data,
		Timestamp: time.Now(),
	}, nil
}

// UnmarshalPayload decodes the payload into v.
func (e *Event) UnmarshalPayload(v any) error {
	return json.Unmarshal(e.Payload, v)
}

// RoomBroadcastPayload is the payload of a room fan-out event. Message is
// the exact frame written to peers and ExcludeClientID names the sender's
// socket, which never receives its own frame.
type RoomBroadcastPayload struct {
	RoomID          string `json:"room_id"`
	Message         []byte `json:"message"`
	ExcludeClientID string `json:"exclude_client_id,omitempty"`
}

// Publisher publishes events on a channel.
type Publisher interface {
	Publish(ctx context.Context, channel string, event *Event) error
}

// Subscriber delivers events for a channel or a "*" pattern until ctx is
// cancelled or the key is unsubscribed, at which point the channel closes.
type Subscriber interface {
	Subscribe(ctx context.Context, channel string) (<-chan *Event, error)
	SubscribePattern(ctx context.Context, pattern string) (<-chan *Event, error)
	Unsubscribe(ctx context.Context, channel string) error
}

// PubSub is a driver: memory, redis or kafka.
type PubSub interface {
	Publisher
	Subscriber
	Close() error
}

// RoomPeersChannel returns the fan-out channel for a room.
func RoomPeersChannel(roomID string) string {
	return fmt.Sprintf(ChannelRoomPeers, url.QueryEscape(roomID))
}

// roomChannel is a parsed room channel or pattern. roomID is unescaped
// and empty for a pattern.
type roomChannel struct {
	prefix  string
	roomID  string
	target  string
	pattern bool
}

func parseRoomChannel(channel string) (roomChannel, error) {
	parts := strings.Split(channel, ":")
	if len(parts) != 4 || parts[1] != "room" || parts[2] == "" || !strings.HasPrefix(parts[3], "to_") {
		return roomChannel{}, fmt.Errorf("invalid room channel %q", channel)
	}
	rc := roomChannel{prefix: parts[0], target: strings.TrimPrefix(parts[3], "to_")}
	if parts[2] == "*" {
		rc.pattern = true
		return rc, nil
	}
	roomID, err := url.QueryUnescape(parts[2])
	if err != nil {
		return roomChannel{}, fmt.Errorf("invalid room id in channel %q: %w", channel, err)
	}
	rc.roomID = roomID
	return rc, nil
}

// RoomFromChannel extracts the room id from a concrete room channel.
func RoomFromChannel(channel string) (string, bool) {
	rc, err := parseRoomChannel(channel)
	if err != nil || rc.pattern {
		return "", false
	}
	return rc.roomID, true
}
