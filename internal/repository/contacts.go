package repository

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/storekit/wa-bridge/internal/model"
)

// ContactsRepository is the contact-manager collaborator surface the core
// consumes. The gateway and webhook pipeline tolerate a nil repository and
// degrade to no-ops.
type ContactsRepository interface {
	GetByPhone(ctx context.Context, phone string) (*model.Contact, error)
	// UpsertInbound creates the contact on first inbound message; an existing
	// name is never overwritten.
	UpsertInbound(ctx context.Context, phone, name string) error
	SetOptIn(ctx context.Context, phone string, status model.OptInStatus) error
	TouchLastContacted(ctx context.Context, phone string) error
}

type ContactsRepositoryImpl struct {
	db *sqlx.DB
}

func NewContactsRepository(db *sqlx.DB) *ContactsRepositoryImpl {
	return &ContactsRepositoryImpl{db: db}
}

var _ ContactsRepository = (*ContactsRepositoryImpl)(nil)

func (r *ContactsRepositoryImpl) GetByPhone(ctx context.Context, phone string) (*model.Contact, error) {
	var c model.Contact
	err := r.db.GetContext(ctx, &c, `SELECT * FROM contacts WHERE phone = ? LIMIT 1`, phone)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *ContactsRepositoryImpl) UpsertInbound(ctx context.Context, phone, name string) error {
	const q = `
		INSERT INTO contacts (phone, name, opt_in, tags, created_at, updated_at)
		VALUES (?, ?, 'pending', '[]', NOW(), NOW())
		ON DUPLICATE KEY UPDATE
		    name = IF(name = '' OR name IS NULL, VALUES(name), name),
		    updated_at = VALUES(updated_at)
	`
	_, err := r.db.ExecContext(ctx, q, phone, name)
	return err
}

func (r *ContactsRepositoryImpl) SetOptIn(ctx context.Context, phone string, status model.OptInStatus) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE contacts SET opt_in = ?, updated_at = NOW() WHERE phone = ?
	`, string(status), phone)
	return err
}

func (r *ContactsRepositoryImpl) TouchLastContacted(ctx context.Context, phone string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE contacts SET last_contacted_at = NOW(), updated_at = NOW() WHERE phone = ?
	`, phone)
	return err
}
