package repository

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/storekit/wa-bridge/internal/model"
)

type WebhookEventsRepository interface {
	// Insert is the durability boundary of the webhook pipeline: the raw
	// envelope is stored before any handler runs.
	Insert(ctx context.Context, ev model.WebhookEvent) error
	MarkProcessed(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id, errMsg string) error
	ListUnprocessed(ctx context.Context, limit int) ([]model.WebhookEvent, error)
}

type WebhookEventsRepositoryImpl struct {
	db *sqlx.DB
}

func NewWebhookEventsRepository(db *sqlx.DB) *WebhookEventsRepositoryImpl {
	return &WebhookEventsRepositoryImpl{db: db}
}

var _ WebhookEventsRepository = (*WebhookEventsRepositoryImpl)(nil)

func (r *WebhookEventsRepositoryImpl) Insert(ctx context.Context, ev model.WebhookEvent) error {
	const q = `
		INSERT INTO webhook_events (id, kind, payload, processed, created_at, updated_at)
		VALUES (?, ?, ?, 0, NOW(), NOW())
	`
	_, err := r.db.ExecContext(ctx, q, ev.ID, string(ev.Kind), ev.Payload)
	return err
}

func (r *WebhookEventsRepositoryImpl) MarkProcessed(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE webhook_events SET processed = 1, error = NULL, updated_at = NOW() WHERE id = ?
	`, id)
	return err
}

func (r *WebhookEventsRepositoryImpl) MarkFailed(ctx context.Context, id, errMsg string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE webhook_events SET processed = 0, error = ?, updated_at = NOW() WHERE id = ?
	`, errMsg, id)
	return err
}

// ListUnprocessed supports inspection and replay of events whose handlers
// failed after the durable insert.
func (r *WebhookEventsRepositoryImpl) ListUnprocessed(ctx context.Context, limit int) ([]model.WebhookEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	var out []model.WebhookEvent
	err := r.db.SelectContext(ctx, &out, `
		SELECT * FROM webhook_events WHERE processed = 0 ORDER BY created_at LIMIT ?
	`, limit)
	return out, err
}
