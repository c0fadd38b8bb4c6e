// Package seeder populates a ledger store with synthetic clients, coins and
// transactions.
//
// Everything is written through storage.LedgerWriter inside one
// LedgerStore.Exclusive unit, so a failed run leaves the store as it was and
// readers never see a half-seeded ledger.
package seeder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"coin-ledger/internal/domain"
	"coin-ledger/internal/identity"
	"coin-ledger/internal/observability"
	"coin-ledger/internal/storage"
)

var (
	// ErrConfiguration is returned for counts that cannot be satisfied.
	ErrConfiguration = errors.New("invalid seed configuration")

	// ErrRetriesExhausted is returned when collisions persist past the retry
	// bound. It wraps ErrConfiguration.
	ErrRetriesExhausted = fmt.Errorf("%w: retries exhausted", ErrConfiguration)
)

// Default retry bounds.
const (
	DefaultMaxMintAttempts    = 64
	DefaultMaxContactAttempts = 16
)

// Config describes one seed run.
type Config struct {
	ClientCount      int
	CoinCount        int
	TransactionCount int
	ClearExisting    bool
	// RandSeed makes a run reproducible. Zero picks a time-based seed.
	RandSeed uint64
}

// DefaultConfig returns the bootstrap configuration used at service start.
func DefaultConfig() Config {
	return Config{
		ClientCount:      30,
		CoinCount:        20,
		TransactionCount: 50,
		ClearExisting:    true,
	}
}

// Validate checks counts before anything is written.
func (c Config) Validate() error {
	switch {
	case c.ClientCount <= 0 || c.CoinCount <= 0 || c.TransactionCount <= 0:
		return fmt.Errorf("%w: counts must be positive (clients=%d coins=%d transactions=%d)",
			ErrConfiguration, c.ClientCount, c.CoinCount, c.TransactionCount)
	case c.ClientCount < 2:
		return fmt.Errorf("%w: need at least 2 clients so a seller can differ from the buyer, got %d",
			ErrConfiguration, c.ClientCount)
	case int64(c.CoinCount) > identity.DomainSize:
		return fmt.Errorf("%w: %d coins exceed the %d distinct component triples",
			ErrConfiguration, c.CoinCount, identity.DomainSize)
	}
	return nil
}

// Options tunes a Seeder. Zero values select defaults.
type Options struct {
	Logger             logrus.FieldLogger
	MaxMintAttempts    int
	MaxContactAttempts int
	// BaseTime is the timestamp of the first generated transaction.
	// Zero means TransactionCount hours before now.
	BaseTime time.Time
}

// Result summarizes a committed seed run.
type Result struct {
	Clients        int
	Coins          int
	Transactions   int
	MintRetries    int
	ContactRetries int
	Duration       time.Duration
}

// Seeder writes synthetic ledger data to a store.
type Seeder struct {
	store storage.LedgerStore
	opts  Options
	log   logrus.FieldLogger
}

// New creates a Seeder over store.
func New(store storage.LedgerStore, opts Options) *Seeder {
	if opts.MaxMintAttempts <= 0 {
		opts.MaxMintAttempts = DefaultMaxMintAttempts
	}
	if opts.MaxContactAttempts <= 0 {
		opts.MaxContactAttempts = DefaultMaxContactAttempts
	}
	log := opts.Logger
	if log == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		log = discard
	}
	return &Seeder{store: store, opts: opts, log: log.WithField("component", "seeder")}
}

// Seed validates cfg and then populates the store in a single exclusive unit.
// On error nothing from this run is visible.
func (s *Seeder) Seed(ctx context.Context, cfg Config) (*Result, error) {
	start := time.Now()

	if err := cfg.Validate(); err != nil {
		observability.RecordSeedRun(err, time.Since(start))
		return nil, err
	}

	seed := cfg.RandSeed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}

	base := s.opts.BaseTime
	if base.IsZero() {
		base = time.Now().UTC().Add(-time.Duration(cfg.TransactionCount) * time.Hour)
	}

	var result *Result
	err := s.store.Exclusive(ctx, func(ctx context.Context, w storage.LedgerWriter) error {
		run := &seedRun{
			w:     w,
			cfg:   cfg,
			opts:  s.opts,
			rng:   rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
			base:  base,
			owner: make(map[int64]int64),
		}
		run.names = newNameGenerator(run.rng)

		if err := run.execute(ctx); err != nil {
			return err
		}
		result = &Result{
			Clients:        len(run.clients),
			Coins:          len(run.coins),
			Transactions:   run.transactions,
			MintRetries:    run.mintRetries,
			ContactRetries: run.contactRetries,
		}
		return nil
	})
	observability.RecordSeedRun(err, time.Since(start))
	if err != nil {
		s.log.WithError(err).WithField("seed", seed).Error("seed run failed, store left unchanged")
		return nil, err
	}

	result.Duration = time.Since(start)
	observability.RecordSeedCounts(result.Clients, result.Coins, result.Transactions,
		result.MintRetries, result.ContactRetries)

	s.log.WithFields(logrus.Fields{
		"clients":         result.Clients,
		"coins":           result.Coins,
		"transactions":    result.Transactions,
		"mint_retries":    result.MintRetries,
		"contact_retries": result.ContactRetries,
		"seed":            seed,
		"duration":        result.Duration,
	}).Info("ledger seeded")

	return result, nil
}

// seedRun holds the state of one run inside the exclusive unit.
type seedRun struct {
	w     storage.LedgerWriter
	cfg   Config
	opts  Options
	rng   *rand.Rand
	names *nameGenerator
	base  time.Time

	clients []int64
	coins   []int64
	owner   map[int64]int64 // coin id -> current owner

	transactions   int
	mintRetries    int
	contactRetries int
}

func (r *seedRun) execute(ctx context.Context) error {
	if r.cfg.ClearExisting {
		if err := r.w.Clear(ctx); err != nil {
			return fmt.Errorf("clear ledger: %w", err)
		}
	}
	if err := r.createClients(ctx); err != nil {
		return err
	}
	if err := r.mintCoins(ctx); err != nil {
		return err
	}
	return r.recordTransactions(ctx)
}

func (r *seedRun) createClients(ctx context.Context) error {
	for i := 0; i < r.cfg.ClientCount; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		name := r.names.name()
		created := false
		for attempt := 0; attempt < r.opts.MaxContactAttempts; attempt++ {
			c := &domain.Client{Name: name, Contact: r.names.contact(name)}
			err := r.w.CreateClient(ctx, c)
			if errors.Is(err, storage.ErrDuplicateContact) {
				r.contactRetries++
				continue
			}
			if err != nil {
				return fmt.Errorf("create client %q: %w", name, err)
			}
			r.clients = append(r.clients, c.ID)
			created = true
			break
		}
		if !created {
			return fmt.Errorf("client %q: no free contact after %d attempts: %w",
				name, r.opts.MaxContactAttempts, ErrRetriesExhausted)
		}
	}
	return nil
}

func (r *seedRun) mintCoins(ctx context.Context) error {
	for i := 0; i < r.cfg.CoinCount; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		minted := false
		for attempt := 0; attempt < r.opts.MaxMintAttempts; attempt++ {
			c1, c2, c3 := r.component(), r.component(), r.component()
			value, err := identity.Compute(c1, c2, c3)
			if err != nil {
				return fmt.Errorf("compute identity: %w", err)
			}

			coin := &domain.Coin{Component1: c1, Component2: c2, Component3: c3, Value: value}
			err = r.w.MintCoin(ctx, coin)
			if errors.Is(err, storage.ErrDuplicateComponents) {
				r.mintRetries++
				continue
			}
			if err != nil {
				return fmt.Errorf("mint coin %v: %w", coin.Components(), err)
			}
			r.coins = append(r.coins, coin.ID)
			minted = true
			break
		}
		if !minted {
			return fmt.Errorf("coin %d of %d: no free component triple after %d attempts: %w",
				i+1, r.cfg.CoinCount, r.opts.MaxMintAttempts, ErrRetriesExhausted)
		}
	}
	return nil
}

// recordTransactions walks an ownership chain: a coin's first sale has no
// seller, later sales are made by the current owner to a different client.
func (r *seedRun) recordTransactions(ctx context.Context) error {
	ts := r.base
	for i := 0; i < r.cfg.TransactionCount; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		coinID := r.coins[r.rng.IntN(len(r.coins))]
		t := &domain.Transaction{
			CoinID:          coinID,
			Amount:          r.amount(),
			TransactionDate: ts,
		}

		if owner, owned := r.owner[coinID]; owned {
			seller := owner
			t.SellerID = &seller
			t.BuyerID = r.otherClient(owner)
		} else {
			t.BuyerID = r.clients[r.rng.IntN(len(r.clients))]
		}

		if err := r.w.RecordTransaction(ctx, t); err != nil {
			return fmt.Errorf("record transaction %d: %w", i+1, err)
		}
		r.owner[coinID] = t.BuyerID
		r.transactions++

		// Strictly increasing: one minute plus up to an hour of jitter.
		ts = ts.Add(time.Minute + time.Duration(r.rng.IntN(3600))*time.Second)
	}
	return nil
}

func (r *seedRun) component() int {
	return identity.MinComponent + r.rng.IntN(identity.MaxComponent-identity.MinComponent+1)
}

// amount returns a price in [1.00, 1000.00] with two decimals.
func (r *seedRun) amount() decimal.Decimal {
	return decimal.New(int64(100+r.rng.IntN(99901)), -2)
}

// otherClient picks a client uniformly among all but exclude.
func (r *seedRun) otherClient(exclude int64) int64 {
	for {
		id := r.clients[r.rng.IntN(len(r.clients))]
		if id != exclude {
			return id
		}
	}
}
