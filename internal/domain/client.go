package domain

import "time"

// Client is a ledger participant that buys and sells coins.
// Corresponds to clients table in PostgreSQL.
type Client struct {
	ID        int64     // auto-assigned on insert
	Name      string    // display name
	Contact   string    // contact handle, globally unique
	CreatedAt time.Time // record creation time
}
