package hub

import (
	"sync"
	"time"

	"github.com/excalisketch/socket/src/types"
	"github.com/fasthttp/websocket"
	"github.com/rs/zerolog"
)

// Client is one authenticated WebSocket connection.
type Client struct {
	ID          string
	UserID      string
	conn        types.Conn
	hub         *Hub
	send        chan []byte
	connectedAt time.Time
	logger      zerolog.Logger

	// rooms is guarded by hub.mu and only changed by Join, Leave and Evict.
	rooms map[string]types.RoomID

	done      chan struct{}
	closeOnce sync.Once
}

func newClient(id, userID string, conn types.Conn, h *Hub) *Client {
	return &Client{
		ID:          id,
		UserID:      userID,
		conn:        conn,
		hub:         h,
		send:        make(chan []byte, h.opts.SendBuffer),
		connectedAt: time.Now(),
		logger:      h.logger.With().Str("client_id", id).Str("user_id", userID).Logger(),
		rooms:       make(map[string]types.RoomID),
		done:        make(chan struct{}),
	}
}

// enqueue hands a frame to the write pump without blocking. It reports
// false when the client is closed or its buffer is full.
func (c *Client) enqueue(frame []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// ReadPump reads frames and routes them through the hub until the socket
// fails. Frames are handled one at a time, in arrival order. The client is
// evicted when it returns.
func (c *Client) ReadPump() {
	defer c.hub.Evict(c)

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug().Err(err).Msg("read failed")
			}
			return
		}
		c.hub.HandleFrame(c, data)
	}
}

// WritePump drains the send queue to the socket and keeps it alive with
// pings. A write failure closes the client.
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.hub.opts.PingInterval)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case frame := <-c.send:
			if err := c.write(websocket.TextMessage, frame); err != nil {
				c.logger.Error().Err(err).Msg("write failed")
				return
			}
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				c.logger.Debug().Err(err).Msg("ping failed")
				return
			}
		case <-c.done:
			return
		}
	}
}

func (c *Client) write(messageType int, data []byte) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.hub.opts.WriteTimeout)); err != nil {
		return err
	}
	return c.conn.WriteMessage(messageType, data)
}

// Close stops the pumps and closes the socket. The read pump then fails
// and evicts the client. Safe to call more than once.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		if err := c.conn.Close(); err != nil {
			c.logger.Debug().Err(err).Msg("close failed")
		}
	})
}
