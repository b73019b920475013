package model

import (
	"database/sql"
	"time"
)

type OptInStatus string

const (
	OptedIn      OptInStatus = "opted_in"
	OptedOut     OptInStatus = "opted_out"
	OptInPending OptInStatus = "pending"
)

type Contact struct {
	ID              int64        `db:"id"`
	Phone           string       `db:"phone"`
	Name            string       `db:"name"`
	OptIn           OptInStatus  `db:"opt_in"`
	Tags            string       `db:"tags"` // free-text, JSON array
	LastContactedAt sql.NullTime `db:"last_contacted_at"`
	CreatedAt       time.Time    `db:"created_at"`
	UpdatedAt       time.Time    `db:"updated_at"`
}
