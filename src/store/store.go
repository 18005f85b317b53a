// Package store holds the durable chat history backends.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/excalisketch/socket/src/types"
	"github.com/rs/zerolog"
)

var (
	// ErrInvalidRoomID is returned when a room identifier has no integer form.
	ErrInvalidRoomID = errors.New("store: room id is not an integer")
	// ErrUnknownDriver is returned by Open for unsupported drivers.
	ErrUnknownDriver = errors.New("store: unknown driver")
)

// Drivers accepted by Open.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

// Store appends chat messages and reads room history.
type Store interface {
	Append(ctx context.Context, msg types.ChatMessage) error
	// History returns up to limit messages of a room, newest first.
	History(ctx context.Context, roomID int64, limit int) ([]types.ChatMessage, error)
	Close() error
}

// Config selects and configures a backend.
type Config struct {
	Driver      string
	DatabaseURL string
	Redis       *RedisConfig
}

// Open connects the configured backend.
func Open(ctx context.Context, cfg Config, logger zerolog.Logger) (Store, error) {
	switch cfg.Driver {
	case "", DriverMemory:
		return NewMemory(), nil
	case DriverPostgres:
		return NewPostgres(ctx, cfg.DatabaseURL, logger)
	case DriverRedis:
		rc := cfg.Redis
		if rc == nil {
			rc = DefaultRedisConfig()
		}
		return NewRedis(ctx, rc, logger)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
}

func roomKey(msg types.ChatMessage) (int64, error) {
	id, err := msg.Room.Int64()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidRoomID, err)
	}
	return id, nil
}
