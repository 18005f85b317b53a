package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/excalisketch/socket/config"
	"github.com/excalisketch/socket/src/auth"
	"github.com/excalisketch/socket/src/hub"
	"github.com/excalisketch/socket/src/persist"
	"github.com/excalisketch/socket/src/service"
	"github.com/excalisketch/socket/src/store"
	"github.com/excalisketch/socket/src/transport"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := pflag.StringP("config", "c", "", "path to a config file (yaml, json or toml)")
	pflag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		boot := zerolog.New(os.Stderr).With().Timestamp().Logger()
		boot.Fatal().Err(err).Msg("load config")
	}

	logger := newLogger(cfg.Log)
	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("socket server stopped")
	}
}

func newLogger(cfg config.LogConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	if cfg.Pretty {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	} else {
		logger = zerolog.New(os.Stderr)
	}
	return logger.Level(level).With().Timestamp().Str("service", "excalisketch-socket").Logger()
}

func run(cfg *config.SocketConfig, logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, store.Config{
		Driver:      cfg.Store.Driver,
		DatabaseURL: cfg.Store.DatabaseURL,
		Redis: &store.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
			MaxLen:   cfg.Redis.MaxLen,
		},
	}, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Error().Err(err).Msg("close store")
		}
	}()

	dispatcher := persist.New(st, persist.Config{
		Workers:   cfg.Persist.Workers,
		QueueSize: cfg.Persist.QueueSize,
		Timeout:   cfg.Persist.Timeout,
	}, logger)

	h := hub.New(logger,
		hub.WithPersister(dispatcher),
		hub.WithOptions(hub.Options{
			SendBuffer:   cfg.Server.SendBuffer,
			PingInterval: cfg.Server.PingInterval,
			WriteTimeout: cfg.Server.WriteTimeout,
		}),
	)
	verifier := auth.NewJWTVerifier(cfg.JWT.Secret, cfg.JWT.Claim)
	svc := service.New(h, verifier, st, cfg.Store.HistoryLimit, logger)
	srv := transport.New(cfg.Server, svc, logger)

	// The dispatcher is stopped only after every read pump has evicted its
	// client, so chats handled during shutdown still reach the store.
	persistCtx, stopPersist := context.WithCancel(context.Background())
	defer stopPersist()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return dispatcher.Run(persistCtx)
	})
	g.Go(srv.ListenAndServe)
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down")

		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := srv.Shutdown(sctx)
		h.Shutdown()
		if werr := h.WaitIdle(sctx); werr != nil {
			logger.Warn().Err(werr).Msg("clients still connected at shutdown deadline")
		}
		stopPersist()
		return err
	})

	return g.Wait()
}
