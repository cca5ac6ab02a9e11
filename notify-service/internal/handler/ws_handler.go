package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/weiawesome/wes-io-live/notify-service/internal/config"
	"github.com/weiawesome/wes-io-live/notify-service/internal/hub"
	"github.com/weiawesome/wes-io-live/notify-service/internal/service"
	"github.com/weiawesome/wes-io-live/pkg/log"
	"github.com/weiawesome/wes-io-live/pkg/notify"
	"github.com/weiawesome/wes-io-live/pkg/response"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const ErrCodeBadRequest = "BAD_REQUEST"

// WSHandler serves the presence channel: peers in a room exchange
// user_joined frames through the hub.
type WSHandler struct {
	hub         *hub.Hub
	broadcaster service.Broadcaster
	wsCfg       config.WebSocketConfig
}

func NewWSHandler(h *hub.Hub, broadcaster service.Broadcaster, wsCfg config.WebSocketConfig) *WSHandler {
	return &WSHandler{
		hub:         h,
		broadcaster: broadcaster,
		wsCfg:       wsCfg,
	}
}

func (h *WSHandler) RegisterRoutes(r *gin.Engine) {
	r.GET("/presence/ws", h.HandleWebSocket)
}

func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	roomID := c.Query("room_id")
	if roomID == "" {
		response.BadRequest(c, "room_id is required")
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		l := log.Ctx(c.Request.Context())
		l.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := hub.NewClient(uuid.New().String(), roomID, h.hub, conn, h.wsCfg)

	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump(h.handleMessage)
}

func (h *WSHandler) handleMessage(client *hub.Client, message []byte) {
	var base notify.BaseMessage
	if err := json.Unmarshal(message, &base); err != nil {
		client.SendMessage(notify.NewErrorMessage(ErrCodeBadRequest, "Invalid message format"))
		return
	}

	switch base.Type {
	case notify.MsgTypeUserJoined:
		var msg notify.UserJoinedMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			client.SendMessage(notify.NewErrorMessage(ErrCodeBadRequest, "Invalid user_joined message"))
			return
		}
		h.relayJoin(client, &msg)

	case notify.MsgTypePing:
		client.SendMessage(map[string]string{"type": notify.MsgTypePong})

	default:
		client.SendMessage(notify.NewErrorMessage(ErrCodeBadRequest, "Unknown message type"))
	}
}

// relayJoin forwards a peer's join frame to the rest of the room. Without a
// broadcaster the frame only reaches clients on this instance.
func (h *WSHandler) relayJoin(client *hub.Client, msg *notify.UserJoinedMessage) {
	if msg.Data.Timestamp == 0 {
		msg.Data.Timestamp = time.Now().UnixMilli()
	}
	if msg.Data.Message == "" {
		msg.Data.Message = notify.DefaultJoinMessage
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}

	if h.broadcaster == nil {
		h.hub.BroadcastRawToRoom(client.RoomID, data, client.ID)
		return
	}

	timeout := h.wsCfg.WriteWait
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := h.broadcaster.Broadcast(ctx, client.RoomID, data, client.ID); err != nil {
		l := log.L()
		l.Warn().Err(err).Str(log.FieldClientID, client.ID).Str(log.FieldRoomID, client.RoomID).Msg("failed to relay join")
	}
}
