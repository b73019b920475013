package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/storekit/wa-bridge/internal/model"
)

// MessageFilter narrows history queries; zero values mean "any".
type MessageFilter struct {
	Phone      string
	Direction  model.MessageDirection
	Status     model.MessageStatus
	CampaignID string
	Limit      int
	Offset     int
}

type MessagesRepository interface {
	// InsertPending persists the outbound row before any transport attempt,
	// so no send is ever un-auditable.
	InsertPending(ctx context.Context, m model.Message) error
	MarkSent(ctx context.Context, id, providerMessageID, transport string) error
	MarkFailed(ctx context.Context, id, errMsg string) error
	// AdvanceStatus conditionally moves the message found by provider id to
	// the given status; it reports false when no row matched (unknown id or
	// transition not allowed), which makes redelivered events no-ops.
	AdvanceStatus(ctx context.Context, providerMessageID string, to model.MessageStatus, errMsg string) (bool, error)
	// InsertInbound is idempotent on provider_message_id; it reports false
	// when the row already existed.
	InsertInbound(ctx context.Context, m model.Message) (bool, error)
	GetByID(ctx context.Context, id string) (*model.Message, error)
	List(ctx context.Context, f MessageFilter) ([]model.Message, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time, batch int) (int64, error)
}

type MessagesRepositoryImpl struct {
	db *sqlx.DB
}

func NewMessagesRepository(db *sqlx.DB) *MessagesRepositoryImpl {
	return &MessagesRepositoryImpl{db: db}
}

var _ MessagesRepository = (*MessagesRepositoryImpl)(nil)

func (r *MessagesRepositoryImpl) InsertPending(ctx context.Context, m model.Message) error {
	const q = `
		INSERT INTO messages
		    (id, phone, direction, type, payload, status, campaign_id, created_at, updated_at)
		VALUES
		    (?,  ?,     'outbound', ?,   ?,       'pending', ?,        NOW(),     NOW())
	`
	_, err := r.db.ExecContext(ctx, q, m.ID, m.Phone, m.Type.String(), m.Payload, m.CampaignID)
	return err
}

func (r *MessagesRepositoryImpl) MarkSent(ctx context.Context, id, providerMessageID, transport string) error {
	const q = `
		UPDATE messages
		   SET status = 'sent',
		       provider_message_id = NULLIF(?, ''),
		       transport = ?,
		       sent_at = NOW(),
		       updated_at = NOW()
		 WHERE id = ? AND status = 'pending'
	`
	_, err := r.db.ExecContext(ctx, q, providerMessageID, transport, id)
	return err
}

func (r *MessagesRepositoryImpl) MarkFailed(ctx context.Context, id, errMsg string) error {
	const q = `
		UPDATE messages
		   SET status = 'failed', error = ?, updated_at = NOW()
		 WHERE id = ? AND status = 'pending'
	`
	_, err := r.db.ExecContext(ctx, q, errMsg, id)
	return err
}

// AdvanceStatus guards against out-of-order webhook delivery with a
// conditional update: the row only moves when its current status is a legal
// predecessor of the target. Timestamps are back-filled so "read" implies a
// delivered_at even when the delivered event never arrived.
func (r *MessagesRepositoryImpl) AdvanceStatus(ctx context.Context, providerMessageID string, to model.MessageStatus, errMsg string) (bool, error) {
	from := model.TransitionsTo(to)
	if len(from) == 0 {
		return false, nil
	}

	const base = `
		UPDATE messages
		   SET status = ?,
		       sent_at      = IF(? IN ('sent','delivered','read') AND sent_at IS NULL, NOW(), sent_at),
		       delivered_at = IF(? IN ('delivered','read') AND delivered_at IS NULL, NOW(), delivered_at),
		       read_at      = IF(? = 'read' AND read_at IS NULL, NOW(), read_at),
		       error        = IF(? = 'failed', ?, error),
		       updated_at   = NOW()
		 WHERE provider_message_id = ? AND status IN (?)
	`
	ts := to.String()
	query, args, err := sqlx.In(base, ts, ts, ts, ts, ts, errMsg, providerMessageID, from)
	if err != nil {
		return false, err
	}
	query = r.db.Rebind(query)

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *MessagesRepositoryImpl) InsertInbound(ctx context.Context, m model.Message) (bool, error) {
	const q = `
		INSERT INTO messages
		    (id, provider_message_id, phone, direction, type, payload, status, created_at, updated_at)
		VALUES
		    (?,  ?,                   ?,     'inbound', ?,    ?,       ?,      NOW(),      NOW())
		ON DUPLICATE KEY UPDATE id = id
	`
	res, err := r.db.ExecContext(ctx, q,
		m.ID, m.ProviderMessageID, m.Phone, m.Type.String(), m.Payload, m.Status.String(),
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *MessagesRepositoryImpl) GetByID(ctx context.Context, id string) (*model.Message, error) {
	var m model.Message
	err := r.db.GetContext(ctx, &m, `SELECT * FROM messages WHERE id = ? LIMIT 1`, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *MessagesRepositoryImpl) List(ctx context.Context, f MessageFilter) ([]model.Message, error) {
	q := `SELECT * FROM messages WHERE 1=1`
	args := make([]any, 0, 6)
	if f.Phone != "" {
		q += ` AND phone = ?`
		args = append(args, f.Phone)
	}
	if f.Direction != "" {
		q += ` AND direction = ?`
		args = append(args, string(f.Direction))
	}
	if f.Status != "" {
		q += ` AND status = ?`
		args = append(args, f.Status.String())
	}
	if f.CampaignID != "" {
		q += ` AND campaign_id = ?`
		args = append(args, f.CampaignID)
	}
	limit := f.Limit
	if limit <= 0 || limit > 1000 {
		limit = 50
	}
	q += ` ORDER BY created_at DESC LIMIT ? OFFSET ?`
	args = append(args, limit, f.Offset)

	var out []model.Message
	if err := r.db.SelectContext(ctx, &out, q, args...); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteOlderThan removes messages past retention in bounded batches to avoid
// long locks.
func (r *MessagesRepositoryImpl) DeleteOlderThan(ctx context.Context, cutoff time.Time, batch int) (int64, error) {
	if batch <= 0 {
		batch = 1000
	}
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM messages WHERE created_at < ? ORDER BY created_at LIMIT ?`, cutoff, batch)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
