package storage

import "errors"

// Storage errors. Every store implementation maps its native constraint
// failures onto these so callers can use errors.Is regardless of backend.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")

	// ErrDuplicateKey is returned when attempting to insert a record
	// with a key that already exists. Append-only stores do not allow updates.
	ErrDuplicateKey = errors.New("duplicate key: append-only store does not allow updates")

	// ErrDuplicateContact is returned when a client contact handle
	// (or account e-mail) is already registered.
	ErrDuplicateContact = errors.New("duplicate contact")

	// ErrDuplicateComponents is returned when a coin with the same
	// component triple has already been minted.
	ErrDuplicateComponents = errors.New("duplicate coin components")

	// ErrIdentityMismatch is returned when a coin's stored value differs from
	// the identity recomputed from its components. It signals data corruption
	// and must never be corrected automatically.
	ErrIdentityMismatch = errors.New("coin identity mismatch")

	// ErrUnknownReference is returned when a transaction references a coin or
	// client that does not exist.
	ErrUnknownReference = errors.New("unknown reference")

	// ErrInvalidAmount is returned when a transaction amount is negative,
	// carries more than two decimal places or overflows NUMERIC(18,2).
	ErrInvalidAmount = errors.New("invalid amount")
)
