package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"teamquest/internal/model"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

// Server message types the feed understands
const (
	msgRoomsSnapshot = "rooms_snapshot"
	msgRoomSnapshot  = "room_snapshot"
	msgError         = "error"
	msgActivity      = "activity"
)

// closeSessionExpired is the close code the server sends when the idle window lapses
const closeSessionExpired = 4401

// Feed delivers broadcast room snapshots.
type Feed interface {
	// Next blocks until the next snapshot arrives, keyed by room id.
	Next(ctx context.Context) (map[string]*model.Room, error)
	Close() error
}

type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// WSFeed is a Feed over the server's websocket endpoint.
type WSFeed struct {
	conn *websocket.Conn

	writeMu sync.Mutex
}

// DialRooms subscribes to every room (admin token required).
func DialRooms(ctx context.Context, baseURL, token string) (*WSFeed, error) {
	return dial(ctx, baseURL, "/v1/ws/rooms", token)
}

// DialRoom subscribes to a single room.
func DialRoom(ctx context.Context, baseURL, roomID, token string) (*WSFeed, error) {
	return dial(ctx, baseURL, "/v1/ws/rooms/"+url.PathEscape(roomID), token)
}

func dial(ctx context.Context, baseURL, path, token string) (*WSFeed, error) {
	u, err := url.Parse(baseURL + path)
	if err != nil {
		return nil, fmt.Errorf("client.dial: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("client.dial: %w", &HTTPError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(resp.Status)})
		}
		return nil, fmt.Errorf("client.dial: %w", err)
	}
	return &WSFeed{conn: conn}, nil
}

// Next reads until a snapshot arrives. A room_snapshot is returned as a
// one-entry set.
func (f *WSFeed) Next(ctx context.Context) (map[string]*model.Room, error) {
	if deadline, ok := ctx.Deadline(); ok {
		f.conn.SetReadDeadline(deadline)
	} else {
		f.conn.SetReadDeadline(time.Time{})
	}

	for {
		var msg envelope
		if err := f.conn.ReadJSON(&msg); err != nil {
			if websocket.IsCloseError(err, closeSessionExpired) {
				return nil, ErrSessionExpired
			}
			return nil, fmt.Errorf("client.Feed: %w", err)
		}

		switch msg.Type {
		case msgRoomsSnapshot:
			rooms := make(map[string]*model.Room)
			if err := json.Unmarshal(msg.Payload, &rooms); err != nil {
				return nil, fmt.Errorf("client.Feed: decode rooms: %w", err)
			}
			for _, r := range rooms {
				model.NormalizeRoom(r)
			}
			return rooms, nil
		case msgRoomSnapshot:
			var room model.Room
			if err := json.Unmarshal(msg.Payload, &room); err != nil {
				return nil, fmt.Errorf("client.Feed: decode room: %w", err)
			}
			return map[string]*model.Room{room.ID: model.NormalizeRoom(&room)}, nil
		case msgError:
			var body struct {
				Error string `json:"error"`
			}
			_ = json.Unmarshal(msg.Payload, &body)
			return nil, fmt.Errorf("client.Feed: %w", errors.New(body.Error))
		}
	}
}

// SendActivity tells the server the user is still active.
func (f *WSFeed) SendActivity() error {
	f.writeMu.Lock()
	defer f.writeMu.Unlock()
	f.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return f.conn.WriteJSON(envelope{Type: msgActivity})
}

// Close closes the underlying connection.
func (f *WSFeed) Close() error {
	f.writeMu.Lock()
	f.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
	f.writeMu.Unlock()
	return f.conn.Close()
}
