package domain

import "time"

// Account is a login identity for the ledger browser.
// Accounts are distinct from ledger clients.
type Account struct {
	ID           int64
	Name         string
	Email        string // unique
	PasswordHash string // bcrypt, never serialized
	CreatedAt    time.Time
}
