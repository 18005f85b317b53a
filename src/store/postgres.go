package store

import (
	"context"
	"fmt"

	"github.com/excalisketch/socket/src/types"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

var schemaSQL = []string{
	`CREATE TABLE IF NOT EXISTS chats (
	id         BIGSERIAL PRIMARY KEY,
	room_id    BIGINT      NOT NULL,
	user_id    TEXT        NOT NULL,
	message    TEXT        NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
	`CREATE INDEX IF NOT EXISTS chats_room_id_id_idx ON chats (room_id, id DESC)`,
}

const (
	insertSQL  = `INSERT INTO chats (room_id, user_id, message, created_at) VALUES ($1, $2, $3, $4)`
	historySQL = `SELECT room_id, user_id, message, created_at FROM chats WHERE room_id = $1 ORDER BY id DESC LIMIT $2`
)

// Postgres stores chats in a pgx connection pool.
type Postgres struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewPostgres connects to databaseURL and makes sure the chats table exists.
func NewPostgres(ctx context.Context, databaseURL string, logger zerolog.Logger) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	p := &Postgres{pool: pool, logger: logger.With().Str("component", "postgres-store").Logger()}
	if err := p.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	p.logger.Info().Msg("postgres store ready")
	return p, nil
}

// EnsureSchema creates the chats table and its index if missing.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaSQL {
		if _, err := p.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("create chats schema: %w", err)
		}
	}
	return nil
}

func (p *Postgres) Append(ctx context.Context, msg types.ChatMessage) error {
	id, err := roomKey(msg)
	if err != nil {
		return err
	}
	if _, err := p.pool.Exec(ctx, insertSQL, id, msg.SenderID, msg.Content, msg.Timestamp); err != nil {
		return fmt.Errorf("insert chat: %w", err)
	}
	return nil
}

func (p *Postgres) History(ctx context.Context, roomID int64, limit int) ([]types.ChatMessage, error) {
	// LIMIT NULL returns every row.
	var lim any = limit
	if limit <= 0 {
		lim = nil
	}
	rows, err := p.pool.Query(ctx, historySQL, roomID, lim)
	if err != nil {
		return nil, fmt.Errorf("query chats: %w", err)
	}
	msgs, err := pgx.CollectRows(rows, scanChat)
	if err != nil {
		return nil, fmt.Errorf("scan chats: %w", err)
	}
	return msgs, nil
}

func scanChat(row pgx.CollectableRow) (types.ChatMessage, error) {
	var (
		msg  types.ChatMessage
		room int64
	)
	if err := row.Scan(&room, &msg.SenderID, &msg.Content, &msg.Timestamp); err != nil {
		return types.ChatMessage{}, err
	}
	msg.Room = types.NumberRoom(room)
	return msg, nil
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
