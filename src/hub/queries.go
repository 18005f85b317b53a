package hub

import (
	"sort"

	"github.com/excalisketch/socket/src/types"
)

// OnConnection registers a callback for admitted clients.
func (h *Hub) OnConnection(cb func(*Client)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onConnect = append(h.onConnect, cb)
}

// OnDisconnection registers a callback for evicted clients.
func (h *Hub) OnDisconnection(cb func(*Client)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onDisconn = append(h.onDisconn, cb)
}

// ConnectedClients returns a list of connected client IDs.
func (h *Hub) ConnectedClients() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ids := make([]string, 0, len(h.clients))
	for id := range h.clients {
		ids = append(ids, id)
	}
	return ids
}

// ClientInfo returns info for a connected client, or nil.
func (h *Hub) ClientInfo(clientID string) *types.ClientInfo {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.clients[clientID]
	if !ok {
		return nil
	}
	rooms := make([]string, 0, len(c.rooms))
	for _, r := range c.rooms {
		rooms = append(rooms, r.String())
	}
	sort.Strings(rooms)
	return &types.ClientInfo{
		ID:          c.ID,
		UserID:      c.UserID,
		ConnectedAt: c.connectedAt,
		Rooms:       rooms,
	}
}

// Rooms returns room keys with their member counts.
func (h *Hub) Rooms() map[string]int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	result := make(map[string]int, len(h.rooms))
	for key, members := range h.rooms {
		result[key] = len(members)
	}
	return result
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
