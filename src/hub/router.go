package hub

import (
	"errors"
	"time"

	"github.com/excalisketch/socket/src/protocol"
	"github.com/excalisketch/socket/src/types"
)

// HandleFrame parses one inbound frame from c and dispatches it. Bad
// frames are dropped without a reply and never end the connection.
func (h *Hub) HandleFrame(c *Client, data []byte) {
	frame, err := protocol.Parse(data)
	switch {
	case errors.Is(err, protocol.ErrInvalidChatPayload):
		c.logger.Warn().Err(err).Msg("invalid chat payload")
		return
	case err != nil:
		c.logger.Debug().Err(err).Msg("dropping frame")
		return
	}

	switch f := frame.(type) {
	case protocol.JoinRoom:
		h.Join(c, f.Room)
	case protocol.LeaveRoom:
		h.Leave(c, f.Room)
	case protocol.Chat:
		h.chat(c, f)
	case protocol.Unknown:
		c.logger.Debug().Str("type", f.Type).Msg("ignoring frame")
	}
}

func (h *Hub) chat(c *Client, f protocol.Chat) {
	msg := types.ChatMessage{
		Room:      f.Room,
		SenderID:  c.UserID,
		Content:   f.Message,
		Timestamp: time.Now(),
	}

	if h.persister != nil {
		h.persister.Persist(msg)
	}

	frame, err := protocol.ChatFrame(msg)
	if err != nil {
		c.logger.Error().Err(err).Msg("encode chat")
		return
	}
	n := h.broadcastToRoom(msg.Room, frame)
	c.logger.Debug().Str("room", msg.Room.String()).Int("recipients", n).Msg("chat broadcast")
}
