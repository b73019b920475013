package transport

import (
	"context"
	"errors"

	"github.com/storekit/wa-bridge/internal/model"
	tmpl "github.com/storekit/wa-bridge/internal/template"
)

var (
	ErrUnavailable = errors.New("transport unavailable")
	ErrUnsupported = errors.New("message type not supported by transport")
)

// Message is the transport-neutral outbound unit built by the gateway.
// Text always carries the final rendered string, so fallback transports that
// cannot express structured payloads still have something to send.
type Message struct {
	To       string
	Type     model.MessageType
	Text     string
	Template *Template
	Media    *Media
}

type Template struct {
	Name       string
	Language   string
	Components []tmpl.Component
}

type Media struct {
	Kind     string // image | video | audio | document
	Link     string
	Caption  string
	Filename string
}

type Result struct {
	// ProviderMessageID is set only by confirmable transports.
	ProviderMessageID string
	// Detail carries transport-specific output, e.g. the generated deeplink.
	Detail string
}

// Transport is one strategy in the gateway's ordered fallback chain.
// Confirmable distinguishes transports whose success means "accepted by the
// provider" from ones where it only means "send artifact produced" — the
// deeplink fallback can never confirm delivery.
type Transport interface {
	Name() string
	Confirmable() bool
	Send(ctx context.Context, msg Message) (Result, error)
}
