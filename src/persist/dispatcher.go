// Package persist records chat messages in the background so a slow or
// failing store never delays delivery.
package persist

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/excalisketch/socket/src/types"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Appender is the write side of a message store.
type Appender interface {
	Append(ctx context.Context, msg types.ChatMessage) error
}

// Config sizes the dispatcher.
type Config struct {
	Workers   int
	QueueSize int
	Timeout   time.Duration
}

// DefaultConfig returns the dispatcher defaults.
func DefaultConfig() Config {
	return Config{
		Workers:   4,
		QueueSize: 1024,
		Timeout:   5 * time.Second,
	}
}

// Dispatcher queues chat messages and appends them from a worker pool.
// Failed appends are logged and never retried.
type Dispatcher struct {
	store  Appender
	queue  chan types.ChatMessage
	cfg    Config
	logger zerolog.Logger

	dropped atomic.Int64
	failed  atomic.Int64
	stored  atomic.Int64
}

// New creates a dispatcher in front of store. Call Run to start workers.
func New(store Appender, cfg Config, logger zerolog.Logger) *Dispatcher {
	def := DefaultConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = def.QueueSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	return &Dispatcher{
		store:  store,
		queue:  make(chan types.ChatMessage, cfg.QueueSize),
		cfg:    cfg,
		logger: logger.With().Str("component", "persist").Logger(),
	}
}

// Persist queues msg without blocking. A full queue drops it.
func (d *Dispatcher) Persist(msg types.ChatMessage) {
	select {
	case d.queue <- msg:
	default:
		d.dropped.Add(1)
		d.logger.Warn().
			Str("room", msg.Room.String()).
			Str("user_id", msg.SenderID).
			Msg("persist queue full, dropping message")
	}
}

// Run appends queued messages until ctx is cancelled, then drains what is
// already queued with a fresh deadline per message.
func (d *Dispatcher) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < d.cfg.Workers; i++ {
		g.Go(func() error {
			d.work(gctx)
			return nil
		})
	}
	err := g.Wait()
	d.drain()
	d.logger.Info().
		Int64("stored", d.stored.Load()).
		Int64("failed", d.failed.Load()).
		Int64("dropped", d.dropped.Load()).
		Msg("persist dispatcher stopped")
	return err
}

func (d *Dispatcher) work(ctx context.Context) {
	for {
		select {
		case msg := <-d.queue:
			d.append(msg)
		case <-ctx.Done():
			return
		}
	}
}

func (d *Dispatcher) drain() {
	for {
		select {
		case msg := <-d.queue:
			d.append(msg)
		default:
			return
		}
	}
}

func (d *Dispatcher) append(msg types.ChatMessage) {
	ctx, cancel := context.WithTimeout(context.Background(), d.cfg.Timeout)
	defer cancel()

	if err := d.store.Append(ctx, msg); err != nil {
		d.failed.Add(1)
		d.logger.Error().Err(err).
			Str("room", msg.Room.String()).
			Str("user_id", msg.SenderID).
			Msg("persist chat failed")
		return
	}
	d.stored.Add(1)
}

// Stats reports stored, failed and dropped message counts.
func (d *Dispatcher) Stats() (stored, failed, dropped int64) {
	return d.stored.Load(), d.failed.Load(), d.dropped.Load()
}
