package types

import (
	"time"
)

// ChatMessage is a chat event as handed to the message store.
type ChatMessage struct {
	Room      RoomID    `json:"roomId"`
	SenderID  string    `json:"senderId"`
	Content   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// ClientInfo holds metadata about a connected WebSocket client.
type ClientInfo struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	ConnectedAt time.Time `json:"connected_at"`
	Rooms       []string  `json:"rooms"`
}

// Conn abstracts a WebSocket connection for testability.
// *websocket.Conn from fasthttp/websocket satisfies it.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}
