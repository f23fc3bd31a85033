package service

// Broadcaster interface for WebSocket broadcasting (avoids import cycle)
type Broadcaster interface {
	BroadcastToRoom(roomID string, msgType string, payload interface{})
	DisconnectRoom(roomID string)
}
