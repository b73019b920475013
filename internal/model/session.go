package model

import "time"

// SessionRow is the persisted shape of a conversation session. The context is
// stored as a JSON column; business logic never touches the raw bytes — the
// sessions repository (de)serializes into session.Context at the boundary.
type SessionRow struct {
	Phone        string    `db:"phone"`
	Context      []byte    `db:"context"`
	LastActivity time.Time `db:"last_activity"`
	ExpiresAt    time.Time `db:"expires_at"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// Expired reports whether the session must be treated as absent.
func (s SessionRow) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}
