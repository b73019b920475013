package model

import (
	"database/sql"
	"time"
)

type WebhookEventKind string

const (
	EventKindStatus         WebhookEventKind = "status"
	EventKindInboundMessage WebhookEventKind = "inbound_message"
	EventKindTemplateStatus WebhookEventKind = "template_status"
	EventKindUnknown        WebhookEventKind = "unknown"
)

// WebhookEvent is the raw inbound envelope, persisted before parsing so no
// provider callback is lost even when downstream handling fails. Unprocessed
// rows (processed=0, error set) can be inspected and replayed.
type WebhookEvent struct {
	ID        string           `db:"id"`
	Kind      WebhookEventKind `db:"kind"`
	Payload   []byte           `db:"payload"`
	Processed bool             `db:"processed"`
	Error     sql.NullString   `db:"error"`
	CreatedAt time.Time        `db:"created_at"`
	UpdatedAt time.Time        `db:"updated_at"`
}
