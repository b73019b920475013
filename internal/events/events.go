package events

import (
	"encoding/json"
	"time"

	"github.com/storekit/wa-bridge/internal/model"
)

const (
	TopicMessageReceived = "wa.message.received"
	TopicMessageStatus   = "wa.message.status"
)

// Envelope wraps every domain event put on the wire.
type Envelope struct {
	ID         string          `json:"id"`
	Kind       string          `json:"kind"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

// MessageReceived is published for each newly stored inbound message, carrying
// the extracted content so collaborators (contact manager, automation) can
// react without re-parsing provider payloads.
type MessageReceived struct {
	MessageID         string            `json:"message_id"`
	ProviderMessageID string            `json:"provider_message_id"`
	From              string            `json:"from"`
	Type              model.MessageType `json:"type"`
	Text              string            `json:"text,omitempty"`
	MediaID           string            `json:"media_id,omitempty"`
	Selection         string            `json:"selection,omitempty"` // interactive button/list choice
}

// StatusChanged is published when a delivery state transition applies.
type StatusChanged struct {
	ProviderMessageID string              `json:"provider_message_id"`
	Status            model.MessageStatus `json:"status"`
	Error             string              `json:"error,omitempty"`
}
