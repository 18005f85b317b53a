package store

import (
	"context"
	"sync"

	"github.com/excalisketch/socket/src/types"
)

// Memory keeps history in process. History is lost on restart.
type Memory struct {
	mu    sync.RWMutex
	rooms map[int64][]types.ChatMessage
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{rooms: make(map[int64][]types.ChatMessage)}
}

func (m *Memory) Append(ctx context.Context, msg types.ChatMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	id, err := roomKey(msg)
	if err != nil {
		return err
	}
	msg.Room = types.NumberRoom(id)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.rooms[id] = append(m.rooms[id], msg)
	return nil
}

func (m *Memory) History(ctx context.Context, roomID int64, limit int) ([]types.ChatMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	msgs := m.rooms[roomID]
	if limit <= 0 || limit > len(msgs) {
		limit = len(msgs)
	}
	out := make([]types.ChatMessage, 0, limit)
	for i := len(msgs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, msgs[i])
	}
	return out, nil
}

func (m *Memory) Close() error { return nil }
