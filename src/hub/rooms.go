package hub

import (
	"github.com/excalisketch/socket/src/protocol"
	"github.com/excalisketch/socket/src/types"
)

// Join adds the client to a room. On a state change the client is sent a
// joined_room frame; joining a room twice is a silent no-op.
func (h *Hub) Join(c *Client, room types.RoomID) bool {
	ack, err := protocol.Joined(room)
	if err != nil {
		c.logger.Error().Err(err).Msg("encode joined_room")
		return false
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c.ID]; !ok {
		return false
	}
	key := room.Key()
	if _, ok := c.rooms[key]; ok {
		return false
	}
	c.rooms[key] = room
	if h.rooms[key] == nil {
		h.rooms[key] = make(map[string]*Client)
	}
	h.rooms[key][c.ID] = c

	// Queued under the lock so no chat for this room can overtake the ack.
	if !c.enqueue(ack) {
		c.logger.Warn().Str("room", room.String()).Msg("send buffer full, disconnecting")
		c.Close()
	}
	c.logger.Debug().Str("room", room.String()).Msg("joined room")
	return true
}

// Leave removes the client from a room. On a state change the client is
// sent a left_room frame; leaving a room not joined is a silent no-op.
func (h *Hub) Leave(c *Client, room types.RoomID) bool {
	ack, err := protocol.Left(room)
	if err != nil {
		c.logger.Error().Err(err).Msg("encode left_room")
		return false
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	key := room.Key()
	if _, ok := c.rooms[key]; !ok {
		return false
	}
	delete(c.rooms, key)
	h.removeMemberLocked(key, c)

	if !c.enqueue(ack) {
		c.logger.Warn().Str("room", room.String()).Msg("send buffer full, disconnecting")
		c.Close()
	}
	c.logger.Debug().Str("room", room.String()).Msg("left room")
	return true
}

// MembersOf returns a snapshot of the room's members. Unknown rooms yield
// an empty slice.
func (h *Hub) MembersOf(room types.RoomID) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()

	members := h.rooms[room.Key()]
	out := make([]*Client, 0, len(members))
	for _, c := range members {
		out = append(out, c)
	}
	return out
}

// broadcastToRoom queues frame for every current member. A member whose
// queue is full is closed; the others are unaffected.
func (h *Hub) broadcastToRoom(room types.RoomID, frame []byte) int {
	delivered := 0
	for _, c := range h.MembersOf(room) {
		if c.enqueue(frame) {
			delivered++
			continue
		}
		c.logger.Warn().Str("room", room.String()).Msg("send buffer full, disconnecting")
		c.Close()
	}
	return delivered
}
