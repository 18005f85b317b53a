package hub

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/excalisketch/socket/src/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const idlePoll = 10 * time.Millisecond

// Persister records chat messages off the delivery path. Implementations
// must not block.
type Persister interface {
	Persist(msg types.ChatMessage)
}

// Options tunes per-client queues and socket timing.
type Options struct {
	SendBuffer   int
	PingInterval time.Duration
	WriteTimeout time.Duration
}

// DefaultOptions returns the options used when none are given.
func DefaultOptions() Options {
	return Options{
		SendBuffer:   256,
		PingInterval: 30 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}

// Hub is the connection registry and room membership index. A single
// RWMutex guards clients, rooms and every client's room set.
type Hub struct {
	clients map[string]*Client
	rooms   map[string]map[string]*Client // room key -> set of clients

	onConnect []func(*Client)
	onDisconn []func(*Client)

	persister Persister
	opts      Options
	mu        sync.RWMutex
	logger    zerolog.Logger
}

// Option configures a Hub.
type Option func(*Hub)

// WithPersister sets where chat messages are recorded.
func WithPersister(p Persister) Option {
	return func(h *Hub) { h.persister = p }
}

// WithOptions overrides queue and timing settings. Non-positive fields keep
// their defaults.
func WithOptions(o Options) Option {
	return func(h *Hub) {
		if o.SendBuffer > 0 {
			h.opts.SendBuffer = o.SendBuffer
		}
		if o.PingInterval > 0 {
			h.opts.PingInterval = o.PingInterval
		}
		if o.WriteTimeout > 0 {
			h.opts.WriteTimeout = o.WriteTimeout
		}
	}
}

// New creates a new Hub instance.
func New(logger zerolog.Logger, opts ...Option) *Hub {
	h := &Hub{
		clients: make(map[string]*Client),
		rooms:   make(map[string]map[string]*Client),
		opts:    DefaultOptions(),
		logger:  logger.With().Str("component", "hub").Logger(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Admit registers an authenticated connection and returns its client. The
// caller runs the client's pumps.
func (h *Hub) Admit(conn types.Conn, userID string) *Client {
	c := newClient(uuid.New().String(), userID, conn, h)

	h.mu.Lock()
	h.clients[c.ID] = c
	count := len(h.clients)
	cbs := append(([]func(*Client))(nil), h.onConnect...)
	h.mu.Unlock()

	c.logger.Info().Int("clients", count).Msg("client admitted")
	for _, cb := range cbs {
		cb(c)
	}
	return c
}

// Evict removes a client from the registry and from every room it joined,
// then closes it. It reports whether the client was still registered;
// repeated calls are no-ops.
func (h *Hub) Evict(c *Client) bool {
	h.mu.Lock()
	if cur, ok := h.clients[c.ID]; !ok || cur != c {
		h.mu.Unlock()
		return false
	}
	delete(h.clients, c.ID)

	for key := range c.rooms {
		h.removeMemberLocked(key, c)
	}
	left := len(c.rooms)
	c.rooms = make(map[string]types.RoomID)
	count := len(h.clients)
	cbs := append(([]func(*Client))(nil), h.onDisconn...)
	h.mu.Unlock()

	c.Close()
	c.logger.Info().Int("rooms_left", left).Int("clients", count).Msg("client evicted")

	for _, cb := range cbs {
		cb(c)
	}
	return true
}

// Lookup returns a registered client by id.
func (h *Hub) Lookup(id string) (*Client, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.clients[id]
	return c, ok
}

// Shutdown closes every client. Each read pump then evicts its client.
func (h *Hub) Shutdown() {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.Close()
	}
	h.logger.Info().Int("clients", len(clients)).Msg("hub shut down")
}

// WaitIdle blocks until every client has been evicted or ctx is done.
// After Shutdown it returns once all read pumps have finished, so no chat
// can reach the persister afterwards.
func (h *Hub) WaitIdle(ctx context.Context) error {
	ticker := time.NewTicker(idlePoll)
	defer ticker.Stop()
	for {
		if h.ClientCount() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("wait for %d clients: %w", h.ClientCount(), ctx.Err())
		case <-ticker.C:
		}
	}
}

func (h *Hub) removeMemberLocked(key string, c *Client) {
	members, ok := h.rooms[key]
	if !ok {
		return
	}
	delete(members, c.ID)
	if len(members) == 0 {
		delete(h.rooms, key)
	}
}
