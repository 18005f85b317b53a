package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 1000, cfg.Server.MaxConnections)
	assert.Equal(t, 30*time.Second, cfg.Server.PingInterval)
	assert.Equal(t, 10*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, 256, cfg.Server.SendBuffer)
	assert.Equal(t, "userId", cfg.JWT.Claim)
	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, 1000, cfg.Store.HistoryLimit)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 4, cfg.Persist.Workers)
	assert.Equal(t, "info", cfg.Log.Level)

	// The secret has no default.
	assert.Error(t, cfg.Validate())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("SERVER_ADDR", ":9090")
	t.Setenv("SERVER_PING_INTERVAL", "5s")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("STORE_DRIVER", "redis")
	t.Setenv("PERSIST_WORKERS", "8")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "s3cret", cfg.JWT.Secret)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 5*time.Second, cfg.Server.PingInterval)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, "redis", cfg.Store.Driver)
	assert.Equal(t, 8, cfg.Persist.Workers)

	// Untouched keys keep their defaults.
	assert.Equal(t, 256, cfg.Server.SendBuffer)
	assert.Equal(t, "excalisketch:chat:", cfg.Redis.Prefix)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "socket.yaml")
	body := `
server:
  addr: ":7000"
  allowed_origins:
    - "https://excalisketch.app"
jwt:
  secret: from-file
store:
  history_limit: 50
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	t.Setenv("SERVER_ADDR", ":7001")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":7001", cfg.Server.Addr, "env wins over file")
	assert.Equal(t, []string{"https://excalisketch.app"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "from-file", cfg.JWT.Secret)
	assert.Equal(t, 50, cfg.Store.HistoryLimit)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadRequiresSecret(t *testing.T) {
	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "jwt.secret")
}

func TestValidate(t *testing.T) {
	valid := func() *SocketConfig {
		cfg := DefaultConfig()
		cfg.JWT.Secret = "s3cret"
		return cfg
	}
	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*SocketConfig)
		want   string
	}{
		{"blank secret", func(c *SocketConfig) { c.JWT.Secret = "  " }, "jwt.secret"},
		{"empty claim", func(c *SocketConfig) { c.JWT.Claim = "" }, "jwt.claim"},
		{"no addr", func(c *SocketConfig) { c.Server.Addr = "" }, "server.addr"},
		{"zero send buffer", func(c *SocketConfig) { c.Server.SendBuffer = 0 }, "send_buffer"},
		{"zero ping", func(c *SocketConfig) { c.Server.PingInterval = 0 }, "ping_interval"},
		{"zero history", func(c *SocketConfig) { c.Store.HistoryLimit = 0 }, "history_limit"},
		{"zero workers", func(c *SocketConfig) { c.Persist.Workers = 0 }, "persist.workers"},
		{"unknown driver", func(c *SocketConfig) { c.Store.Driver = "sqlite" }, "sqlite"},
		{"postgres without url", func(c *SocketConfig) { c.Store.Driver = "postgres" }, "database_url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
