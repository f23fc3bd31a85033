package ws

import (
	"encoding/json"
	"sync"
	"teamquest/internal/model"

	"github.com/rs/zerolog/log"
)

// MessageType defines the type of WebSocket message
type MessageType string

// Server message types
const (
	MsgRoomsSnapshot MessageType = "rooms_snapshot"
	MsgRoomSnapshot  MessageType = "room_snapshot"
	MsgRoomReset     MessageType = "room_reset"
	MsgError         MessageType = "error"
)

// Client message types
const (
	MsgActivity MessageType = "activity"
)

// Message is the WebSocket envelope format
type Message struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Hub relays room snapshots to connected browsers and clients. Admin
// connections receive the whole room set; room connections receive only
// their room.
type Hub struct {
	adminConns map[*Connection]struct{}
	roomConns  map[string]map[*Connection]struct{} // roomID -> conns

	// latest snapshot, replayed to each new connection
	latest map[string]*model.Room

	mu sync.RWMutex

	// Channels for coordination
	register   chan *Connection
	unregister chan *Connection
	broadcast  chan *BroadcastMessage
	disconnect chan string
}

// Connection represents a WebSocket connection
type Connection struct {
	RoomID    string // Empty for admin connections
	TeamID    int
	SessionID string
	Send      chan []byte
	Hub       *Hub
}

// IsAdmin reports whether the connection watches the whole room set
func (c *Connection) IsAdmin() bool {
	return c.RoomID == ""
}

// BroadcastMessage is a message to broadcast. When Rooms is set the message
// is a full snapshot batch and the hub builds the per-connection payloads.
type BroadcastMessage struct {
	RoomID   string
	ToAdmins bool
	Message  *Message
	Rooms    map[string]*model.Room
}

// NewHub creates a new WebSocket hub
func NewHub() *Hub {
	h := &Hub{
		adminConns: make(map[*Connection]struct{}),
		roomConns:  make(map[string]map[*Connection]struct{}),
		latest:     make(map[string]*model.Room),
		register:   make(chan *Connection),
		unregister: make(chan *Connection),
		broadcast:  make(chan *BroadcastMessage, 256),
		disconnect: make(chan string, 16),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case conn := <-h.register:
			h.mu.Lock()
			if conn.IsAdmin() {
				h.adminConns[conn] = struct{}{}
				log.Debug().Msg("admin connected")
			} else {
				if h.roomConns[conn.RoomID] == nil {
					h.roomConns[conn.RoomID] = make(map[*Connection]struct{})
				}
				h.roomConns[conn.RoomID][conn] = struct{}{}
				log.Debug().Str("room_id", conn.RoomID).Int("team_id", conn.TeamID).Msg("room client connected")
			}
			h.sendSnapshotLocked(conn)
			h.mu.Unlock()

		case conn := <-h.unregister:
			h.mu.Lock()
			h.removeLocked(conn)
			h.mu.Unlock()

		case roomID := <-h.disconnect:
			h.mu.Lock()
			for conn := range h.roomConns[roomID] {
				h.removeLocked(conn)
			}
			delete(h.roomConns, roomID)
			h.mu.Unlock()
			log.Info().Str("room_id", roomID).Msg("room clients disconnected")

		case msg := <-h.broadcast:
			h.mu.RLock()
			if msg.Rooms != nil {
				h.fanoutSnapshotLocked(msg.Rooms)
				h.mu.RUnlock()
				continue
			}
			data, err := json.Marshal(msg.Message)
			if err != nil {
				h.mu.RUnlock()
				log.Error().Err(err).Msg("failed to marshal ws message")
				continue
			}
			if msg.ToAdmins {
				for conn := range h.adminConns {
					trySend(conn, data)
				}
			} else {
				for conn := range h.roomConns[msg.RoomID] {
					trySend(conn, data)
				}
			}
			h.mu.RUnlock()
		}
	}
}

// removeLocked closes a connection's send channel exactly once
func (h *Hub) removeLocked(conn *Connection) {
	if conn.IsAdmin() {
		if _, ok := h.adminConns[conn]; ok {
			delete(h.adminConns, conn)
			close(conn.Send)
			log.Debug().Msg("admin disconnected")
		}
		return
	}
	if conns, ok := h.roomConns[conn.RoomID]; ok {
		if _, ok := conns[conn]; ok {
			delete(conns, conn)
			close(conn.Send)
			log.Debug().Str("room_id", conn.RoomID).Int("team_id", conn.TeamID).Msg("room client disconnected")
		}
		if len(conns) == 0 {
			delete(h.roomConns, conn.RoomID)
		}
	}
}

// fanoutSnapshotLocked marshals each payload once and only for rooms that
// have listeners
func (h *Hub) fanoutSnapshotLocked(rooms map[string]*model.Room) {
	if len(h.adminConns) > 0 {
		if data, err := json.Marshal(newMessage(MsgRoomsSnapshot, rooms)); err == nil {
			for conn := range h.adminConns {
				trySend(conn, data)
			}
		} else {
			log.Error().Err(err).Msg("failed to marshal rooms snapshot")
		}
	}
	for id, conns := range h.roomConns {
		room, ok := rooms[id]
		if !ok || len(conns) == 0 {
			continue
		}
		data, err := json.Marshal(newMessage(MsgRoomSnapshot, room))
		if err != nil {
			log.Error().Err(err).Str("room_id", id).Msg("failed to marshal room snapshot")
			continue
		}
		for conn := range conns {
			trySend(conn, data)
		}
	}
}

func (h *Hub) sendSnapshotLocked(conn *Connection) {
	var msg *Message
	if conn.IsAdmin() {
		msg = newMessage(MsgRoomsSnapshot, h.latest)
	} else if room, ok := h.latest[conn.RoomID]; ok {
		msg = newMessage(MsgRoomSnapshot, room)
	} else {
		msg = newMessage(MsgError, map[string]string{"error": "room not found"})
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	trySend(conn, data)
}

func trySend(conn *Connection, data []byte) {
	select {
	case conn.Send <- data:
	default:
		// Drop message if buffer full; the next snapshot supersedes it
	}
}

func newMessage(t MessageType, payload interface{}) *Message {
	data, _ := json.Marshal(payload)
	return &Message{Type: t, Payload: data}
}

// Register adds a connection
func (h *Hub) Register(conn *Connection) {
	h.register <- conn
}

// Unregister removes a connection
func (h *Hub) Unregister(conn *Connection) {
	h.unregister <- conn
}

// PublishRooms is the room store listener. It records the snapshot for new
// connections and queues one batch for the run loop, whatever the room count.
func (h *Hub) PublishRooms(rooms map[string]*model.Room) {
	if rooms == nil {
		rooms = make(map[string]*model.Room)
	}
	h.mu.Lock()
	h.latest = rooms
	h.mu.Unlock()

	h.broadcast <- &BroadcastMessage{Rooms: rooms}
}

// Snapshot returns the last room set the hub received
func (h *Hub) Snapshot() map[string]*model.Room {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return model.CloneRooms(h.latest)
}

// BroadcastToRoom sends a message to every client of a room (implements service.Broadcaster)
func (h *Hub) BroadcastToRoom(roomID string, msgType string, payload interface{}) {
	h.broadcast <- &BroadcastMessage{
		RoomID:  roomID,
		Message: newMessage(MessageType(msgType), payload),
	}
}

// DisconnectRoom closes every client of a deleted room (implements service.Broadcaster)
func (h *Hub) DisconnectRoom(roomID string) {
	h.disconnect <- roomID
}
