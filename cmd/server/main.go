// Package main runs the ledger browser service:
// - Bootstrap: stores, migrations, seeding, startup integrity audit
// - HTTP: transactions API, accounts, live feed, audit, health/status/metrics
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"coin-ledger/internal/api"
	"coin-ledger/internal/app"
	"coin-ledger/internal/auth"
	"coin-ledger/internal/config"
	"coin-ledger/internal/logging"
	"coin-ledger/internal/seeder"
	"coin-ledger/internal/verification"
)

const statsInterval = 15 * time.Second

func main() {
	// Load .env file if exists; real environment wins
	_ = godotenv.Load()

	// Parse flags (env vars as defaults); set flags override the config file
	configPath := flag.String("config", os.Getenv("LEDGER_CONFIG"), "Path to YAML config file")
	addr := flag.String("addr", "", "HTTP listen address")
	backend := flag.String("storage", "", "Storage backend: memory or postgres")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string for audit history")
	staticDir := flag.String("static-dir", "", "Directory with the browser bundle")
	seed := flag.Bool("seed", true, "Seed the ledger at startup")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error)")
	flag.Parse()

	cfg, err := config.Read(*configPath)
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "addr":
			cfg.HTTP.Addr = *addr
		case "storage":
			cfg.Storage.Backend = *backend
		case "postgres-dsn":
			cfg.Storage.PostgresDSN = *postgresDSN
		case "clickhouse-dsn":
			cfg.Storage.ClickhouseDSN = *clickhouseDSN
		case "static-dir":
			cfg.HTTP.StaticDir = *staticDir
		case "seed":
			cfg.Seed.Enabled = *seed
		case "log-level":
			cfg.Log.Level = *logLevel
		}
	})
	if err := cfg.Validate(); err != nil {
		logrus.Fatalf("Invalid configuration: %v", err)
	}

	// Setup logger
	base, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		logrus.Fatalf("Failed to create logger: %v", err)
	}
	logger := base.WithField("component", "server")
	if base.GetLevel() < logrus.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Create stores
	stores, err := app.OpenStores(ctx, cfg.Storage, base)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer stores.Close()
	logger.WithField("backend", cfg.Storage.Backend).Info("stores ready")

	// Seed before the listener starts; a failed seed aborts startup
	if cfg.Seed.Enabled {
		s := seeder.New(stores.Ledger, seeder.Options{Logger: base})
		if _, err := s.Seed(ctx, cfg.Seed.SeederConfig()); err != nil {
			logger.Fatalf("Seeding failed: %v", err)
		}
	}

	// Startup integrity audit
	auditor := verification.NewAuditor(verification.AuditorOptions{
		Ledger: stores.Ledger,
		Audits: stores.Audits,
		Logger: base,
	})
	if _, err := auditor.Run(ctx); err != nil {
		logger.Fatalf("Startup audit failed: %v", err)
	}

	apiServer := api.New(api.Options{
		Ledger:       stores.Ledger,
		Auditor:      auditor,
		Auth:         auth.NewService(stores.Accounts, auth.Options{Logger: base}),
		Logger:       base,
		StaticDir:    cfg.HTTP.StaticDir,
		CORSOrigins:  cfg.HTTP.CORSOrigins,
		FeedInterval: cfg.HTTP.FeedInterval,
	})
	httpServer := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start HTTP server
	serveErr := make(chan error, 1)
	go func() {
		logger.Infof("Starting HTTP server on %s", cfg.HTTP.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	// Pool gauges
	go func() {
		ticker := time.NewTicker(statsInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				stores.ReportStats()
			}
		}
	}()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Infof("Received signal %v, initiating graceful shutdown...", sig)
	case err := <-serveErr:
		logger.Errorf("HTTP server error: %v", err)
	}

	// Wait for second signal for immediate shutdown
	go func() {
		sig := <-sigCh
		logger.Warnf("Received second signal %v, forcing immediate shutdown", sig)
		os.Exit(1)
	}()

	cancel()
	apiServer.Close()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Graceful shutdown failed: %v", err)
	}

	logger.Info("Shutdown complete")
}
