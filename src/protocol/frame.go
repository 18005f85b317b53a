// Package protocol parses inbound socket frames into a closed set of
// variants and builds the frames the server sends back.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/excalisketch/socket/src/types"
)

// Frame type discriminators.
const (
	TypeJoinRoom   = "join_room"
	TypeLeaveRoom  = "leave_room"
	TypeChat       = "chat"
	TypeJoinedRoom = "joined_room"
	TypeLeftRoom   = "left_room"
)

var (
	// ErrMalformedFrame marks frames that are not JSON objects or lack the
	// fields their type requires.
	ErrMalformedFrame = errors.New("protocol: malformed frame")
	// ErrInvalidChatPayload marks chat frames without a room or message.
	ErrInvalidChatPayload = errors.New("protocol: invalid chat payload")
)

// Frame is one of JoinRoom, LeaveRoom, Chat or Unknown.
type Frame interface {
	frame()
}

// JoinRoom asks to add the connection to a room.
type JoinRoom struct {
	Room types.RoomID
}

// LeaveRoom asks to remove the connection from a room.
type LeaveRoom struct {
	Room types.RoomID
}

// Chat carries a message for every member of Room.
type Chat struct {
	Room    types.RoomID
	Message string
}

// Unknown is any frame with a missing or unrecognised type.
type Unknown struct {
	Type string
}

func (JoinRoom) frame()  {}
func (LeaveRoom) frame() {}
func (Chat) frame()      {}
func (Unknown) frame()   {}

type inbound struct {
	Type    string          `json:"type"`
	RoomID  json.RawMessage `json:"roomId"`
	Message json.RawMessage `json:"message"`
}

// Parse validates a raw frame. The returned error wraps ErrMalformedFrame
// or ErrInvalidChatPayload; the frame is nil whenever err is not.
func Parse(data []byte) (Frame, error) {
	var in inbound
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}

	switch in.Type {
	case TypeJoinRoom, TypeLeaveRoom:
		room, err := parseRoom(in.RoomID)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrMalformedFrame, in.Type, err)
		}
		if in.Type == TypeJoinRoom {
			return JoinRoom{Room: room}, nil
		}
		return LeaveRoom{Room: room}, nil

	case TypeChat:
		room, err := parseRoom(in.RoomID)
		if err != nil || !room.Truthy() {
			return nil, fmt.Errorf("%w: missing roomId", ErrInvalidChatPayload)
		}
		var text string
		if len(in.Message) == 0 || json.Unmarshal(in.Message, &text) != nil || text == "" {
			return nil, fmt.Errorf("%w: missing message", ErrInvalidChatPayload)
		}
		return Chat{Room: room, Message: text}, nil

	default:
		return Unknown{Type: in.Type}, nil
	}
}

func parseRoom(raw json.RawMessage) (types.RoomID, error) {
	if len(raw) == 0 {
		return types.RoomID{}, types.ErrBadRoomID
	}
	return types.ParseRoomID(raw)
}
