package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/storekit/wa-bridge/internal/model"
)

// SessionsRepositoryImpl persists conversation sessions with the context as a
// JSON column; it satisfies session.Repository.
type SessionsRepositoryImpl struct {
	db *sqlx.DB
}

func NewSessionsRepository(db *sqlx.DB) *SessionsRepositoryImpl {
	return &SessionsRepositoryImpl{db: db}
}

func (r *SessionsRepositoryImpl) Load(ctx context.Context, phone string) (*model.SessionRow, error) {
	var row model.SessionRow
	err := r.db.GetContext(ctx, &row, `SELECT * FROM sessions WHERE phone = ? LIMIT 1`, phone)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// Save upserts the full row; the write either lands completely or not at all,
// so a failed save never leaves a half-merged context behind.
func (r *SessionsRepositoryImpl) Save(ctx context.Context, row model.SessionRow) error {
	const q = `
		INSERT INTO sessions (phone, context, last_activity, expires_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, NOW(), NOW())
		ON DUPLICATE KEY UPDATE
		    context = VALUES(context),
		    last_activity = VALUES(last_activity),
		    expires_at = VALUES(expires_at),
		    updated_at = VALUES(updated_at)
	`
	_, err := r.db.ExecContext(ctx, q, row.Phone, row.Context, row.LastActivity, row.ExpiresAt)
	return err
}

func (r *SessionsRepositoryImpl) Delete(ctx context.Context, phone string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE phone = ?`, phone)
	return err
}

func (r *SessionsRepositoryImpl) DeleteExpired(ctx context.Context, now time.Time, batch int) (int64, error) {
	if batch <= 0 {
		batch = 500
	}
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE expires_at <= ? ORDER BY expires_at LIMIT ?`, now, batch)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
