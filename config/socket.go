package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// SocketConfig holds the chat socket server configuration.
type SocketConfig struct {
	Server  ServerConfig  `mapstructure:"server"`
	JWT     JWTConfig     `mapstructure:"jwt"`
	Store   StoreConfig   `mapstructure:"store"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Persist PersistConfig `mapstructure:"persist"`
	Log     LogConfig     `mapstructure:"log"`
}

// ServerConfig holds listener, socket and per-client queue settings.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	MaxConnections  int           `mapstructure:"max_connections"`
	PingInterval    time.Duration `mapstructure:"ping_interval"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	SendBuffer      int           `mapstructure:"send_buffer"`
	ReadBufferSize  int           `mapstructure:"read_buffer_size"`
	WriteBufferSize int           `mapstructure:"write_buffer_size"`
}

// JWTConfig holds the token signing secret and the user id claim.
type JWTConfig struct {
	Secret string `mapstructure:"secret"`
	Claim  string `mapstructure:"claim"`
}

// StoreConfig selects the chat history backend.
type StoreConfig struct {
	Driver       string `mapstructure:"driver"`
	DatabaseURL  string `mapstructure:"database_url"`
	HistoryLimit int    `mapstructure:"history_limit"`
}

// RedisConfig holds the Redis stream store connection.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
	MaxLen   int64  `mapstructure:"max_len"`
}

// PersistConfig tunes the background chat writer.
type PersistConfig struct {
	Workers   int           `mapstructure:"workers"`
	QueueSize int           `mapstructure:"queue_size"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// LogConfig sets the root logger level and output format.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// DefaultConfig returns the default socket configuration.
func DefaultConfig() *SocketConfig {
	return &SocketConfig{
		Server: ServerConfig{
			Addr:            ":8080",
			AllowedOrigins:  []string{"*"},
			MaxConnections:  1000,
			PingInterval:    30 * time.Second,
			WriteTimeout:    10 * time.Second,
			SendBuffer:      256,
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		JWT: JWTConfig{
			Claim: "userId",
		},
		Store: StoreConfig{
			Driver:       "memory",
			HistoryLimit: 1000,
		},
		Redis: RedisConfig{
			Addr:   "localhost:6379",
			Prefix: "excalisketch:chat:",
			MaxLen: 100_000,
		},
		Persist: PersistConfig{
			Workers:   4,
			QueueSize: 1024,
			Timeout:   5 * time.Second,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from defaults, the optional file at path and
// the environment, in increasing priority. Environment keys replace "."
// with "_": server.addr is SERVER_ADDR.
func Load(path string) (*SocketConfig, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := &SocketConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Every key needs a default for AutomaticEnv to reach it through Unmarshal.
func setDefaults(v *viper.Viper, d *SocketConfig) {
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.allowed_origins", d.Server.AllowedOrigins)
	v.SetDefault("server.max_connections", d.Server.MaxConnections)
	v.SetDefault("server.ping_interval", d.Server.PingInterval)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	v.SetDefault("server.send_buffer", d.Server.SendBuffer)
	v.SetDefault("server.read_buffer_size", d.Server.ReadBufferSize)
	v.SetDefault("server.write_buffer_size", d.Server.WriteBufferSize)

	v.SetDefault("jwt.secret", d.JWT.Secret)
	v.SetDefault("jwt.claim", d.JWT.Claim)

	v.SetDefault("store.driver", d.Store.Driver)
	v.SetDefault("store.database_url", d.Store.DatabaseURL)
	v.SetDefault("store.history_limit", d.Store.HistoryLimit)

	v.SetDefault("redis.addr", d.Redis.Addr)
	v.SetDefault("redis.password", d.Redis.Password)
	v.SetDefault("redis.db", d.Redis.DB)
	v.SetDefault("redis.prefix", d.Redis.Prefix)
	v.SetDefault("redis.max_len", d.Redis.MaxLen)

	v.SetDefault("persist.workers", d.Persist.Workers)
	v.SetDefault("persist.queue_size", d.Persist.QueueSize)
	v.SetDefault("persist.timeout", d.Persist.Timeout)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.pretty", d.Log.Pretty)
}

// Validate reports the first setting the server cannot start with.
func (c *SocketConfig) Validate() error {
	switch {
	case strings.TrimSpace(c.JWT.Secret) == "":
		return errors.New("config: jwt.secret is required")
	case c.JWT.Claim == "":
		return errors.New("config: jwt.claim must not be empty")
	case c.Server.Addr == "":
		return errors.New("config: server.addr is required")
	case c.Server.SendBuffer <= 0:
		return errors.New("config: server.send_buffer must be positive")
	case c.Server.PingInterval <= 0 || c.Server.WriteTimeout <= 0:
		return errors.New("config: server.ping_interval and server.write_timeout must be positive")
	case c.Store.HistoryLimit <= 0:
		return errors.New("config: store.history_limit must be positive")
	case c.Persist.Workers <= 0 || c.Persist.QueueSize <= 0:
		return errors.New("config: persist.workers and persist.queue_size must be positive")
	}

	switch c.Store.Driver {
	case "memory", "redis":
	case "postgres":
		if c.Store.DatabaseURL == "" {
			return errors.New("config: store.database_url is required for the postgres driver")
		}
	default:
		return fmt.Errorf("config: unknown store.driver %q", c.Store.Driver)
	}
	return nil
}
