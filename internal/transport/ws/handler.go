package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"teamquest/internal/service"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512

	// inbound client messages per second, with a small burst
	inboundRate  = 2
	inboundBurst = 5

	// application close code sent when the idle window has lapsed
	closeSessionExpired = 4401
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for dev
	},
}

// Handler handles WebSocket connections
type Handler struct {
	hub     *Hub
	authSvc *service.AuthService
}

// NewHandler creates a new WebSocket handler
func NewHandler(hub *Hub, authSvc *service.AuthService) *Handler {
	return &Handler{
		hub:     hub,
		authSvc: authSvc,
	}
}

// AdminWS handles GET /v1/ws/rooms
func (h *Handler) AdminWS(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}

	claims, err := h.authSvc.ValidateAdminToken(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	h.serve(w, r, &Connection{
		SessionID: claims.SessionID,
		Send:      make(chan []byte, 256),
		Hub:       h.hub,
	})
}

// RoomWS handles GET /v1/ws/rooms/{roomId}. Learners may only watch their
// own room; admins may watch any.
func (h *Handler) RoomWS(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["roomId"]
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}

	conn := &Connection{
		RoomID: roomID,
		Send:   make(chan []byte, 256),
		Hub:    h.hub,
	}

	if admin, err := h.authSvc.ValidateAdminToken(token); err == nil {
		conn.SessionID = admin.SessionID
	} else {
		claims, err := h.authSvc.ValidateLearnerToken(token)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		if claims.RoomID != roomID {
			http.Error(w, "token not valid for this room", http.StatusForbidden)
			return
		}
		conn.TeamID = claims.TeamID
		conn.SessionID = claims.SessionID
	}

	h.serve(w, r, conn)
}

func (h *Handler) serve(w http.ResponseWriter, r *http.Request, conn *Connection) {
	if err := h.authSvc.TouchSession(r.Context(), conn.SessionID); err != nil {
		http.Error(w, "session expired", http.StatusUnauthorized)
		return
	}

	wsConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	h.hub.Register(conn)

	go h.writePump(wsConn, conn)
	go h.readPump(wsConn, conn)
}

func (h *Handler) readPump(wsConn *websocket.Conn, conn *Connection) {
	defer func() {
		h.hub.Unregister(conn)
		wsConn.Close()
	}()

	wsConn.SetReadLimit(maxMessageSize)
	wsConn.SetReadDeadline(time.Now().Add(pongWait))
	wsConn.SetPongHandler(func(string) error {
		wsConn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	limiter := rate.NewLimiter(inboundRate, inboundBurst)
	for {
		_, data, err := wsConn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warn().Err(err).Str("room_id", conn.RoomID).Msg("websocket read error")
			}
			break
		}
		if !limiter.Allow() {
			continue
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		if msg.Type != MsgActivity {
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), writeWait)
		err = h.authSvc.TouchSession(ctx, conn.SessionID)
		cancel()
		if errors.Is(err, service.ErrSessionExpired) {
			// WriteControl is safe alongside writePump
			wsConn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(closeSessionExpired, err.Error()),
				time.Now().Add(writeWait))
			return
		}
	}
}

func (h *Handler) writePump(wsConn *websocket.Conn, conn *Connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		wsConn.Close()
	}()

	for {
		select {
		case message, ok := <-conn.Send:
			wsConn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				wsConn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := wsConn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			wsConn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := wsConn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
