package transport

import (
	"context"
	"fmt"
	"net/url"

	"github.com/storekit/wa-bridge/internal/model"
)

// Deeplink is the secondary transport: it builds a wa.me click-to-chat URL
// instead of calling the provider. Its "success" means the URL was generated,
// never that a message was delivered — Confirmable is false and no provider
// message id is ever produced.
type Deeplink struct {
	base string
}

func NewDeeplink() *Deeplink {
	return &Deeplink{base: "https://wa.me/"}
}

func (t *Deeplink) Name() string      { return "deeplink" }
func (t *Deeplink) Confirmable() bool { return false }

func (t *Deeplink) Send(_ context.Context, msg Message) (Result, error) {
	if msg.Type == model.TypeMedia {
		return Result{}, fmt.Errorf("deeplink: %w: media", ErrUnsupported)
	}
	if msg.Text == "" {
		return Result{}, fmt.Errorf("deeplink: empty text")
	}
	link := t.base + msg.To + "?text=" + url.QueryEscape(msg.Text)
	return Result{Detail: link}, nil
}
