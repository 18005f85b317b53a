package protocol

import (
	"encoding/json"

	"github.com/excalisketch/socket/src/types"
)

// RoomAck confirms a state-changing join or leave.
type RoomAck struct {
	Type   string       `json:"type"`
	RoomID types.RoomID `json:"roomId"`
}

// ChatOut is the chat frame fanned out to room members.
type ChatOut struct {
	Type     string       `json:"type"`
	RoomID   types.RoomID `json:"roomId"`
	Message  string       `json:"message"`
	SenderID string       `json:"senderId"`
}

// Joined encodes a joined_room frame.
func Joined(room types.RoomID) ([]byte, error) {
	return json.Marshal(RoomAck{Type: TypeJoinedRoom, RoomID: room})
}

// Left encodes a left_room frame.
func Left(room types.RoomID) ([]byte, error) {
	return json.Marshal(RoomAck{Type: TypeLeftRoom, RoomID: room})
}

// ChatFrame encodes the broadcast form of a chat message.
func ChatFrame(msg types.ChatMessage) ([]byte, error) {
	return json.Marshal(ChatOut{
		Type:     TypeChat,
		RoomID:   msg.Room,
		Message:  msg.Content,
		SenderID: msg.SenderID,
	})
}
