// Package auth registers and authenticates browser accounts.
package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"coin-ledger/internal/domain"
	"coin-ledger/internal/storage"
)

var (
	// ErrMissingFields is returned when a required request field is empty.
	ErrMissingFields = errors.New("missing fields")

	// ErrAccountNotFound is returned when no account has the e-mail.
	ErrAccountNotFound = errors.New("account not found")

	// ErrInvalidPassword is returned when the password does not match.
	ErrInvalidPassword = errors.New("invalid password")

	// ErrPasswordTooLong is returned for passwords bcrypt cannot hash.
	ErrPasswordTooLong = bcrypt.ErrPasswordTooLong
)

// Service handles account registration and login.
type Service struct {
	accounts storage.AccountStore
	cost     int
	log      logrus.FieldLogger
}

// Options contains configuration for creating a Service.
type Options struct {
	Cost   int // bcrypt cost; 0 means bcrypt.DefaultCost
	Logger logrus.FieldLogger
}

// NewService creates a new Service over accounts.
func NewService(accounts storage.AccountStore, opts Options) *Service {
	cost := opts.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	log := opts.Logger
	if log == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		log = discard
	}
	return &Service{
		accounts: accounts,
		cost:     cost,
		log:      log.WithField("component", "auth"),
	}
}

// Register creates an account. A taken e-mail yields storage.ErrDuplicateContact.
// The returned account carries no password hash.
func (s *Service) Register(ctx context.Context, name, email, password string) (*domain.Account, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	if name == "" || email == "" || password == "" {
		return nil, ErrMissingFields
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return nil, err
		}
		return nil, fmt.Errorf("hash password: %w", err)
	}

	account := &domain.Account{Name: name, Email: email, PasswordHash: string(hash)}
	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, err
	}

	s.log.WithField("account_id", account.ID).Info("account registered")
	account.PasswordHash = ""
	return account, nil
}

// Login checks the credentials and returns the account without its hash.
func (s *Service) Login(ctx context.Context, email, password string) (*domain.Account, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, ErrMissingFields
	}

	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("get account: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			s.log.WithField("account_id", account.ID).Warn("login rejected")
			return nil, ErrInvalidPassword
		}
		return nil, fmt.Errorf("compare password: %w", err)
	}

	account.PasswordHash = ""
	return account, nil
}
