// Package notify holds the wire types shared by the notify gateway and the
// listener client.
package notify

import "time"

// Message types carried on the presence channel.
const (
	MsgTypeUserJoined = "user_joined"
	MsgTypePing       = "ping"
	MsgTypePong       = "pong"
	MsgTypeError      = "error"
)

// DefaultJoinMessage is the text peers see when someone starts listening.
const DefaultJoinMessage = "🎵 someone joined the radio station"

// NotifyJoinRequest is the body of POST /api/v1/notify-join.
type NotifyJoinRequest struct {
	RoomID          string `json:"roomId"`
	TitleOverride   string `json:"titleOverride,omitempty"`
	ContentOverride string `json:"contentOverride,omitempty"`
}

// NotifyJoinResponse mirrors the gateway response envelope.
type NotifyJoinResponse struct {
	Success       bool   `json:"success"`
	ThreadID      string `json:"threadId,omitempty"`
	PostID        string `json:"postId,omitempty"`
	Degraded      bool   `json:"degraded,omitempty"`
	Reason        string `json:"reason,omitempty"`
	Error         string `json:"error,omitempty"`
	RequiredLevel string `json:"requiredLevel,omitempty"`
	Details       string `json:"details,omitempty"`
}

// BaseMessage is used to peek at the type of an inbound frame.
type BaseMessage struct {
	Type string `json:"type"`
}

// UserJoinedData is the payload of a user_joined frame.
type UserJoinedData struct {
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}

// UserJoinedMessage announces that a listener started playback.
type UserJoinedMessage struct {
	Type string         `json:"type"`
	Data UserJoinedData `json:"data"`
}

// NewUserJoinedMessage builds a user_joined frame stamped with now in unix ms.
func NewUserJoinedMessage(message string, now time.Time) *UserJoinedMessage {
	if message == "" {
		message = DefaultJoinMessage
	}
	return &UserJoinedMessage{
		Type: MsgTypeUserJoined,
		Data: UserJoinedData{
			Message:   message,
			Timestamp: now.UnixMilli(),
		},
	}
}

// ErrorMessage reports a rejected frame back to its sender.
type ErrorMessage struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewErrorMessage builds an error frame.
func NewErrorMessage(code, message string) *ErrorMessage {
	return &ErrorMessage{
		Type:    MsgTypeError,
		Code:    code,
		Message: message,
	}
}
