package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coin-ledger/internal/seeder"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":3000", cfg.HTTP.Addr)
	assert.Equal(t, BackendMemory, cfg.Storage.Backend)
	assert.True(t, cfg.Seed.Enabled)
	assert.Equal(t, seeder.DefaultConfig(), cfg.Seed.SeederConfig())
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := writeFile(t, `
http:
  addr: ":8080"
  cors_origins: ["http://localhost:5173"]
  feed_interval: 500ms
storage:
  backend: postgres
  postgres_dsn: postgres://file/db
seed:
  enabled: true
  clients: 4
  coins: 3
  transactions: 9
  rand_seed: 42
log:
  level: debug
  format: json
`)

	t.Setenv("POSTGRES_DSN", "postgres://env/db")
	t.Setenv("LEDGER_SEED_COINS", "5")
	t.Setenv("LEDGER_CORS_ORIGINS", "http://a.test, http://b.test")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, 500*time.Millisecond, cfg.HTTP.FeedInterval)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.HTTP.CORSOrigins)
	assert.Equal(t, BackendPostgres, cfg.Storage.Backend)
	assert.Equal(t, "postgres://env/db", cfg.Storage.PostgresDSN)
	assert.Equal(t, seeder.Config{
		ClientCount:      4,
		CoinCount:        5,
		TransactionCount: 9,
		ClearExisting:    true,
		RandSeed:         42,
	}, cfg.Seed.SeederConfig())
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_BadEnv(t *testing.T) {
	t.Setenv("LEDGER_SEED_CLIENTS", "many")
	_, err := Load("")
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestRead_DefersValidationToCaller(t *testing.T) {
	t.Setenv("LEDGER_STORAGE", "postgres")
	t.Setenv("POSTGRES_DSN", "")

	_, err := Load("")
	require.ErrorIs(t, err, ErrInvalid)

	// The DSN can still arrive later, e.g. from a command-line flag.
	cfg, err := Read("")
	require.NoError(t, err)
	assert.Equal(t, BackendPostgres, cfg.Storage.Backend)
	assert.ErrorIs(t, cfg.Validate(), ErrInvalid)

	cfg.Storage.PostgresDSN = "postgres://flag/db"
	assert.NoError(t, cfg.Validate())
}

func TestRead_BadEnv(t *testing.T) {
	t.Setenv("LEDGER_SEED_COINS", "-")
	_, err := Read("")
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{name: "empty addr", mutate: func(c *Config) { c.HTTP.Addr = "" }},
		{name: "zero feed interval", mutate: func(c *Config) { c.HTTP.FeedInterval = 0 }},
		{name: "unknown backend", mutate: func(c *Config) { c.Storage.Backend = "sqlite" }},
		{name: "postgres without dsn", mutate: func(c *Config) { c.Storage.Backend = BackendPostgres }},
		{name: "single seed client", mutate: func(c *Config) { c.Seed.Clients = 1 }},
		{name: "bad log level", mutate: func(c *Config) { c.Log.Level = "loud" }},
		{name: "bad log format", mutate: func(c *Config) { c.Log.Format = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}

	t.Run("seed errors keep their cause", func(t *testing.T) {
		cfg := Default()
		cfg.Seed.Transactions = 0
		err := cfg.Validate()
		assert.True(t, errors.Is(err, seeder.ErrConfiguration), "got %v", err)
	})

	t.Run("disabled seed skips counts", func(t *testing.T) {
		cfg := Default()
		cfg.Seed.Enabled = false
		cfg.Seed.Clients = 0
		assert.NoError(t, cfg.Validate())
	})
}
