package model

import (
	"database/sql"
	"strings"
	"time"
)

type MessageStatus string

const (
	StatusPending   MessageStatus = "pending"
	StatusSent      MessageStatus = "sent"
	StatusDelivered MessageStatus = "delivered"
	StatusRead      MessageStatus = "read"
	StatusFailed    MessageStatus = "failed"

	// StatusReceived marks inbound rows; it takes no part in the outbound
	// delivery state machine.
	StatusReceived MessageStatus = "received"
)

func (s MessageStatus) String() string {
	return string(s)
}

func (s MessageStatus) Valid() bool {
	switch s {
	case StatusPending, StatusSent, StatusDelivered, StatusRead, StatusFailed:
		return true
	}
	return false
}

// ParseMessageStatus maps provider status strings onto the state machine.
// Returns (value, true) if recognized.
func ParseMessageStatus(s string) (MessageStatus, bool) {
	st := MessageStatus(strings.ToLower(strings.TrimSpace(s)))
	if st.Valid() {
		return st, true
	}
	return "", false
}

// TransitionsTo reports the statuses a message may hold immediately before
// moving to target. The delivery order is pending -> sent -> delivered -> read;
// failed is terminal and reachable only from sent or delivered. Skipped
// intermediate states are allowed because the provider may collapse them.
func TransitionsTo(target MessageStatus) []MessageStatus {
	switch target {
	case StatusSent:
		return []MessageStatus{StatusPending}
	case StatusDelivered:
		return []MessageStatus{StatusPending, StatusSent}
	case StatusRead:
		return []MessageStatus{StatusPending, StatusSent, StatusDelivered}
	case StatusFailed:
		return []MessageStatus{StatusSent, StatusDelivered}
	default:
		return nil
	}
}

// CanTransition reports whether from -> to is a legal forward move.
func CanTransition(from, to MessageStatus) bool {
	for _, s := range TransitionsTo(to) {
		if s == from {
			return true
		}
	}
	return false
}

type MessageDirection string

const (
	DirectionOutbound MessageDirection = "outbound"
	DirectionInbound  MessageDirection = "inbound"
)

type MessageType string

const (
	TypeText     MessageType = "text"
	TypeTemplate MessageType = "template"
	TypeMedia    MessageType = "media"
)

// ParseMessageType normalizes input; empty => text.
// Returns (value, true) if valid; otherwise (text, false).
func ParseMessageType(s string) (MessageType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text":
		return TypeText, true
	case "template":
		return TypeTemplate, true
	case "media":
		return TypeMedia, true
	default:
		return TypeText, false
	}
}

func (t MessageType) String() string { return string(t) }

// Message is the DB entity persisted in the messages table. ProviderMessageID
// is NULL until the provider acknowledges the send; once set it is unique and
// serves as the dedup key for webhook status updates.
type Message struct {
	ID                string           `db:"id"`
	ProviderMessageID sql.NullString   `db:"provider_message_id"`
	Phone             string           `db:"phone"`
	Direction         MessageDirection `db:"direction"`
	Type              MessageType      `db:"type"`
	Payload           string           `db:"payload"`
	Status            MessageStatus    `db:"status"`
	Transport         sql.NullString   `db:"transport"`
	CampaignID        sql.NullString   `db:"campaign_id"`
	Error             sql.NullString   `db:"error"`
	SentAt            sql.NullTime     `db:"sent_at"`
	DeliveredAt       sql.NullTime     `db:"delivered_at"`
	ReadAt            sql.NullTime     `db:"read_at"`
	CreatedAt         time.Time        `db:"created_at"`
	UpdatedAt         time.Time        `db:"updated_at"`
}
