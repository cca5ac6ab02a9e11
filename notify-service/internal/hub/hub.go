package hub

import (
	"sync"

	"github.com/weiawesome/wes-io-live/notify-service/internal/config"
	"github.com/weiawesome/wes-io-live/pkg/log"
)

// Hub tracks websocket clients per room and fans frames out to them.
type Hub struct {
	clients    map[string]*Client            // clientID -> client
	rooms      map[string]map[string]*Client // roomID -> clientID -> client
	register   chan *Client
	unregister chan *Client
	broadcast  chan *RoomMessage
	stop       chan struct{}
	stopOnce   sync.Once
	done       chan struct{}
	mu         sync.RWMutex
	config     config.WebSocketConfig
}

// RoomMessage is a frame addressed to every client in a room but one.
type RoomMessage struct {
	RoomID  string
	Message []byte
	Exclude string // Client ID to exclude
}

func NewHub(cfg config.WebSocketConfig) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		rooms:      make(map[string]map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *RoomMessage, 256),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
		config:     cfg,
	}
}

// Run processes registrations and broadcasts until Stop is called.
func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			if client.RoomID != "" {
				if _, ok := h.rooms[client.RoomID]; !ok {
					h.rooms[client.RoomID] = make(map[string]*Client)
				}
				h.rooms[client.RoomID][client.ID] = client
			}
			h.mu.Unlock()
			l := log.L()
			l.Debug().Str(log.FieldClientID, client.ID).Str(log.FieldRoomID, client.RoomID).Msg("client registered")

		case client := <-h.unregister:
			h.remove(client)

		case msg := <-h.broadcast:
			var slow []*Client
			h.mu.RLock()
			for clientID, client := range h.rooms[msg.RoomID] {
				if clientID == msg.Exclude {
					continue
				}
				select {
				case client.Send <- msg.Message:
				default:
					slow = append(slow, client)
				}
			}
			h.mu.RUnlock()
			for _, client := range slow {
				h.remove(client)
			}

		case <-h.stop:
			h.mu.Lock()
			for id, client := range h.clients {
				client.closeSend()
				delete(h.clients, id)
			}
			h.rooms = make(map[string]map[string]*Client)
			h.mu.Unlock()
			return
		}
	}
}

// Stop closes every client and ends Run.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.stop) })
	<-h.done
}

func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.stop:
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.stop:
	}
}

// BroadcastRawToRoom sends raw bytes to all clients in a room.
func (h *Hub) BroadcastRawToRoom(roomID string, data []byte, exclude string) {
	select {
	case h.broadcast <- &RoomMessage{RoomID: roomID, Message: data, Exclude: exclude}:
	case <-h.stop:
	}
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client.ID]; ok {
		if roomClients, ok := h.rooms[client.RoomID]; ok {
			delete(roomClients, client.ID)
			if len(roomClients) == 0 {
				delete(h.rooms, client.RoomID)
			}
		}
		delete(h.clients, client.ID)
		client.closeSend()
	}
	h.mu.Unlock()
	l := log.L()
	l.Debug().Str(log.FieldClientID, client.ID).Msg("client unregistered")
}
