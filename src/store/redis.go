package store

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/excalisketch/socket/src/types"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisConfig holds connection settings for the Redis stream store.
type RedisConfig struct {
	Addr     string // Redis address, default "localhost:6379"
	Password string // Redis password, default ""
	DB       int    // Redis database number, default 0
	Prefix   string // Key prefix, default "excalisketch:chat:"
	MaxLen   int64  // Approximate entries kept per room, default 100000
}

// DefaultRedisConfig returns a RedisConfig with sensible defaults.
func DefaultRedisConfig() *RedisConfig {
	return &RedisConfig{
		Addr:   "localhost:6379",
		Prefix: "excalisketch:chat:",
		MaxLen: 100_000,
	}
}

// Redis keeps one stream per room.
type Redis struct {
	client *redis.Client
	prefix string
	maxLen int64
	logger zerolog.Logger
}

// NewRedis connects to Redis and checks the connection.
func NewRedis(ctx context.Context, cfg *RedisConfig, logger zerolog.Logger) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	r := newRedis(client, cfg, logger)
	r.logger.Info().Str("addr", cfg.Addr).Msg("redis store ready")
	return r, nil
}

func newRedis(client *redis.Client, cfg *RedisConfig, logger zerolog.Logger) *Redis {
	maxLen := cfg.MaxLen
	if maxLen <= 0 {
		maxLen = DefaultRedisConfig().MaxLen
	}
	return &Redis{
		client: client,
		prefix: cfg.Prefix,
		maxLen: maxLen,
		logger: logger.With().Str("component", "redis-store").Logger(),
	}
}

func (r *Redis) streamKey(roomID int64) string {
	return r.prefix + "room:" + strconv.FormatInt(roomID, 10)
}

func (r *Redis) Append(ctx context.Context, msg types.ChatMessage) error {
	id, err := roomKey(msg)
	if err != nil {
		return err
	}
	args := &redis.XAddArgs{
		Stream: r.streamKey(id),
		Values: encodeEntry(id, msg),
		Approx: true,
		MaxLen: r.maxLen,
	}
	if err := r.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("xadd chat: %w", err)
	}
	return nil
}

func (r *Redis) History(ctx context.Context, roomID int64, limit int) ([]types.ChatMessage, error) {
	var cmd *redis.XMessageSliceCmd
	if limit > 0 {
		cmd = r.client.XRevRangeN(ctx, r.streamKey(roomID), "+", "-", int64(limit))
	} else {
		cmd = r.client.XRevRange(ctx, r.streamKey(roomID), "+", "-")
	}
	entries, err := cmd.Result()
	if err != nil {
		return nil, fmt.Errorf("xrevrange chats: %w", err)
	}
	out := make([]types.ChatMessage, 0, len(entries))
	for _, e := range entries {
		msg, err := decodeEntry(roomID, e.Values)
		if err != nil {
			r.logger.Warn().Err(err).Str("entry", e.ID).Msg("skipping bad stream entry")
			continue
		}
		out = append(out, msg)
	}
	return out, nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}

func encodeEntry(roomID int64, msg types.ChatMessage) map[string]any {
	return map[string]any{
		"room_id":    roomID,
		"user_id":    msg.SenderID,
		"message":    msg.Content,
		"created_at": msg.Timestamp.UTC().Format(time.RFC3339Nano),
	}
}

func decodeEntry(roomID int64, values map[string]any) (types.ChatMessage, error) {
	user, _ := values["user_id"].(string)
	text, _ := values["message"].(string)
	ts, _ := values["created_at"].(string)
	if user == "" || text == "" {
		return types.ChatMessage{}, fmt.Errorf("entry missing user_id or message")
	}
	at, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return types.ChatMessage{}, fmt.Errorf("entry created_at: %w", err)
	}
	return types.ChatMessage{
		Room:      types.NumberRoom(roomID),
		SenderID:  user,
		Content:   text,
		Timestamp: at,
	}, nil
}
