// Package config loads service configuration from defaults, an optional YAML
// file and the environment, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"coin-ledger/internal/seeder"
)

// Storage backends.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
)

// ErrInvalid is returned by Validate.
var ErrInvalid = errors.New("invalid configuration")

// Config is the service configuration.
type Config struct {
	HTTP    HTTPConfig    `yaml:"http"`
	Storage StorageConfig `yaml:"storage"`
	Seed    SeedConfig    `yaml:"seed"`
	Log     LogConfig     `yaml:"log"`
}

// HTTPConfig configures the HTTP surface.
type HTTPConfig struct {
	Addr            string        `yaml:"addr"`
	StaticDir       string        `yaml:"static_dir"` // empty disables static files
	CORSOrigins     []string      `yaml:"cors_origins"`
	FeedInterval    time.Duration `yaml:"feed_interval"` // live feed poll interval
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// StorageConfig selects the stores.
type StorageConfig struct {
	Backend       string `yaml:"backend"`        // memory or postgres
	PostgresDSN   string `yaml:"postgres_dsn"`   // required for postgres
	ClickhouseDSN string `yaml:"clickhouse_dsn"` // optional; audit history stays in memory when empty
}

// SeedConfig controls startup seeding.
type SeedConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Clients       int    `yaml:"clients"`
	Coins         int    `yaml:"coins"`
	Transactions  int    `yaml:"transactions"`
	ClearExisting bool   `yaml:"clear_existing"`
	RandSeed      uint64 `yaml:"rand_seed"`
}

// SeederConfig converts to the seeder's run configuration.
func (s SeedConfig) SeederConfig() seeder.Config {
	return seeder.Config{
		ClientCount:      s.Clients,
		CoinCount:        s.Coins,
		TransactionCount: s.Transactions,
		ClearExisting:    s.ClearExisting,
		RandSeed:         s.RandSeed,
	}
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text or json
}

// Default returns the built-in configuration.
func Default() *Config {
	seed := seeder.DefaultConfig()
	return &Config{
		HTTP: HTTPConfig{
			Addr:            ":3000",
			StaticDir:       "web",
			CORSOrigins:     []string{"*"},
			FeedInterval:    2 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Storage: StorageConfig{
			Backend: BackendMemory,
		},
		Seed: SeedConfig{
			Enabled:       true,
			Clients:       seed.ClientCount,
			Coins:         seed.CoinCount,
			Transactions:  seed.TransactionCount,
			ClearExisting: seed.ClearExisting,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads the configuration and validates it.
func Load(path string) (*Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read builds the configuration from defaults, the YAML file at path and the
// environment without validating it, so callers can apply flag overrides
// first. An empty path skips the file; a named file that does not exist is an
// error. Malformed environment values still fail with ErrInvalid.
func Read(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides fields from LEDGER_* variables, POSTGRES_DSN and
// CLICKHOUSE_DSN.
func (c *Config) applyEnv() error {
	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}
	var errs []error
	integer := func(key string, dst *int) {
		if v, ok := os.LookupEnv(key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := os.LookupEnv(key); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
		}
	}
	duration := func(key string, dst *time.Duration) {
		if v, ok := os.LookupEnv(key); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}

	str("LEDGER_HTTP_ADDR", &c.HTTP.Addr)
	str("LEDGER_STATIC_DIR", &c.HTTP.StaticDir)
	if v, ok := os.LookupEnv("LEDGER_CORS_ORIGINS"); ok {
		c.HTTP.CORSOrigins = splitList(v)
	}
	duration("LEDGER_FEED_INTERVAL", &c.HTTP.FeedInterval)
	duration("LEDGER_SHUTDOWN_TIMEOUT", &c.HTTP.ShutdownTimeout)

	str("LEDGER_STORAGE", &c.Storage.Backend)
	str("POSTGRES_DSN", &c.Storage.PostgresDSN)
	str("CLICKHOUSE_DSN", &c.Storage.ClickhouseDSN)

	boolean("LEDGER_SEED", &c.Seed.Enabled)
	integer("LEDGER_SEED_CLIENTS", &c.Seed.Clients)
	integer("LEDGER_SEED_COINS", &c.Seed.Coins)
	integer("LEDGER_SEED_TRANSACTIONS", &c.Seed.Transactions)
	boolean("LEDGER_SEED_CLEAR", &c.Seed.ClearExisting)
	if v, ok := os.LookupEnv("LEDGER_SEED_RAND"); ok {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("LEDGER_SEED_RAND: %w", err))
		} else {
			c.Seed.RandSeed = n
		}
	}

	str("LEDGER_LOG_LEVEL", &c.Log.Level)
	str("LEDGER_LOG_FORMAT", &c.Log.Format)

	if len(errs) > 0 {
		return fmt.Errorf("%w: environment: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.HTTP.Addr == "" {
		return fmt.Errorf("%w: http.addr is required", ErrInvalid)
	}
	if c.HTTP.FeedInterval <= 0 {
		return fmt.Errorf("%w: http.feed_interval must be positive, got %v", ErrInvalid, c.HTTP.FeedInterval)
	}
	if c.HTTP.ShutdownTimeout <= 0 {
		return fmt.Errorf("%w: http.shutdown_timeout must be positive, got %v", ErrInvalid, c.HTTP.ShutdownTimeout)
	}

	switch c.Storage.Backend {
	case BackendMemory:
	case BackendPostgres:
		if c.Storage.PostgresDSN == "" {
			return fmt.Errorf("%w: storage.postgres_dsn is required for the postgres backend", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown storage backend %q", ErrInvalid, c.Storage.Backend)
	}

	if c.Seed.Enabled {
		if err := c.Seed.SeederConfig().Validate(); err != nil {
			return fmt.Errorf("%w: seed: %w", ErrInvalid, err)
		}
	}

	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: log.level: %w", ErrInvalid, err)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("%w: unknown log format %q", ErrInvalid, c.Log.Format)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
