package worker

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/storekit/wa-bridge/internal/events"
	"github.com/storekit/wa-bridge/internal/repository"
)

// EventsConsumer applies published domain events to the contact manager:
// today that means keeping last-contacted fresh on inbound traffic so
// external automation sees accurate recency without touching the core
// tables.
type EventsConsumer struct {
	Consumer *events.Consumer
	Contacts repository.ContactsRepository
	Log      *zap.Logger
}

// Run fetches until ctx is cancelled. Poison messages are committed and
// skipped; processing is at-least-once and every side effect is idempotent.
func (w *EventsConsumer) Run(ctx context.Context) error {
	if w.Log == nil {
		w.Log = zap.NewNop()
	}
	for {
		m, err := w.Consumer.Fetch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			w.Log.Warn("kafka fetch failed", zap.Error(err))
			time.Sleep(200 * time.Millisecond)
			continue
		}

		w.processOne(ctx, m.Value)

		if err := w.Consumer.Commit(ctx, m); err != nil {
			w.Log.Warn("kafka commit failed", zap.Error(err))
		}
	}
}

func (w *EventsConsumer) processOne(ctx context.Context, raw []byte) {
	var env events.Envelope
	if err := json.Unmarshal(raw, &env); err != nil || env.ID == "" {
		w.Log.Warn("bad event envelope", zap.Error(err))
		return
	}

	switch env.Kind {
	case "message.received":
		var p events.MessageReceived
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			w.Log.Warn("bad message.received payload", zap.Error(err))
			return
		}
		if w.Contacts != nil && p.From != "" {
			if err := w.Contacts.TouchLastContacted(ctx, p.From); err != nil {
				w.Log.Warn("touch last contacted failed", zap.String("phone", p.From), zap.Error(err))
			}
		}
	default:
		// Other kinds are for external collaborators.
	}
}
