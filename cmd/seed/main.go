// Package main seeds a ledger store once and exits.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"coin-ledger/internal/app"
	"coin-ledger/internal/config"
	"coin-ledger/internal/logging"
	"coin-ledger/internal/seeder"
)

func main() {
	// Load .env file if exists
	_ = godotenv.Load()

	defaults := seeder.DefaultConfig()
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clients := flag.Int("clients", defaults.ClientCount, "Number of clients")
	coins := flag.Int("coins", defaults.CoinCount, "Number of coins")
	transactions := flag.Int("transactions", defaults.TransactionCount, "Number of transactions")
	appendMode := flag.Bool("append", false, "Keep existing rows instead of clearing the ledger")
	randSeed := flag.Uint64("rand-seed", 0, "Seed for reproducible data (0 = time-based)")
	logLevel := flag.String("log-level", "info", "Log level")
	flag.Parse()

	if *postgresDSN == "" {
		fmt.Fprintln(os.Stderr, "Error: --postgres-dsn is required (an in-memory ledger would not outlive this process)")
		os.Exit(1)
	}

	logger, err := logging.New(*logLevel, logging.FormatText)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stores, err := app.OpenStores(ctx, config.StorageConfig{
		Backend:     config.BackendPostgres,
		PostgresDSN: *postgresDSN,
	}, logger)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer stores.Close()

	cfg := seeder.Config{
		ClientCount:      *clients,
		CoinCount:        *coins,
		TransactionCount: *transactions,
		ClearExisting:    !*appendMode,
		RandSeed:         *randSeed,
	}
	res, err := seeder.New(stores.Ledger, seeder.Options{Logger: logger}).Seed(ctx, cfg)
	if err != nil {
		logger.Errorf("Seeding failed: %v", err)
		stores.Close()
		os.Exit(1)
	}

	fmt.Printf("Seeded %d clients, %d coins, %d transactions in %v (%d mint retries, %d contact retries)\n",
		res.Clients, res.Coins, res.Transactions, res.Duration, res.MintRetries, res.ContactRetries)
}
