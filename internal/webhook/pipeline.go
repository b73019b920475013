package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/storekit/wa-bridge/internal/events"
	"github.com/storekit/wa-bridge/internal/metrics"
	"github.com/storekit/wa-bridge/internal/model"
	"github.com/storekit/wa-bridge/internal/repository"
	"github.com/storekit/wa-bridge/internal/session"
	"github.com/storekit/wa-bridge/internal/util"
)

var (
	ErrMalformedPayload = errors.New("malformed webhook payload")
	ErrSignatureInvalid = errors.New("webhook signature mismatch")
)

// Pipeline handles inbound provider callbacks: verification, authenticity,
// durable capture, classification and the per-kind handlers.
type Pipeline struct {
	verifyToken string
	appSecret   string
	eventsRepo  repository.WebhookEventsRepository
	messages    repository.MessagesRepository
	templates   repository.TemplatesRepository
	contacts    repository.ContactsRepository // optional
	sessions    *session.Store
	publisher   events.Publisher
	log         *zap.Logger
}

func NewPipeline(
	verifyToken, appSecret string,
	eventsRepo repository.WebhookEventsRepository,
	messagesRepo repository.MessagesRepository,
	templatesRepo repository.TemplatesRepository,
	contactsRepo repository.ContactsRepository,
	sessions *session.Store,
	publisher events.Publisher,
	log *zap.Logger,
) *Pipeline {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{
		verifyToken: verifyToken,
		appSecret:   appSecret,
		eventsRepo:  eventsRepo,
		messages:    messagesRepo,
		templates:   templatesRepo,
		contacts:    contactsRepo,
		sessions:    sessions,
		publisher:   publisher,
		log:         log,
	}
}

// VerifyChallenge implements the subscription handshake: the challenge is
// echoed back only for mode "subscribe" with the configured token. No state
// is touched.
func (p *Pipeline) VerifyChallenge(mode, token, challenge string) (string, bool) {
	if mode == "subscribe" && token != "" && token == p.verifyToken {
		return challenge, true
	}
	return "", false
}

// CheckSignature recomputes the HMAC-SHA256 of the raw body and compares it
// in constant time against the supplied "sha256=<hex>" header. With no
// app secret configured the check is disabled.
func (p *Pipeline) CheckSignature(body []byte, header string) bool {
	if p.appSecret == "" {
		return true
	}
	supplied, ok := strings.CutPrefix(header, "sha256=")
	if !ok {
		return false
	}
	mac := hmac.New(sha256.New, []byte(p.appSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(supplied))
}

// Ingest runs the event path: parse, durably persist, then process. A parse
// failure stores nothing and surfaces ErrMalformedPayload; once the raw event
// row is written, handler failures are absorbed (logged, row left
// unprocessed with its error) because the provider only needs the HTTP
// acknowledgment.
func (p *Pipeline) Ingest(ctx context.Context, body []byte) error {
	if len(body) == 0 {
		return ErrMalformedPayload
	}
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil || len(env.Entry) == 0 {
		return ErrMalformedPayload
	}

	kind := classify(&env)
	ev := model.WebhookEvent{
		ID:      util.NewID(),
		Kind:    kind,
		Payload: body,
	}
	if err := p.eventsRepo.Insert(ctx, ev); err != nil {
		return fmt.Errorf("persist webhook event: %w", err)
	}

	p.process(ctx, ev.ID, kind, &env)
	return nil
}

// Reprocess replays a stored event whose handlers failed earlier.
func (p *Pipeline) Reprocess(ctx context.Context, ev model.WebhookEvent) error {
	var env Envelope
	if err := json.Unmarshal(ev.Payload, &env); err != nil {
		return fmt.Errorf("stored event %s unparseable: %w", ev.ID, err)
	}
	p.process(ctx, ev.ID, classify(&env), &env)
	return nil
}

func (p *Pipeline) process(ctx context.Context, eventID string, kind model.WebhookEventKind, env *Envelope) {
	var err error
	switch kind {
	case model.EventKindStatus:
		err = p.handleStatuses(ctx, env)
	case model.EventKindInboundMessage:
		err = p.handleInbound(ctx, env)
	case model.EventKindTemplateStatus:
		err = p.handleTemplateStatus(ctx, env)
	default:
		p.log.Info("unknown webhook event kind ignored", zap.String("event_id", eventID))
	}

	if err != nil {
		metrics.WebhookEventsTotal.WithLabelValues(string(kind), "error").Inc()
		p.log.Error("webhook handler failed",
			zap.String("event_id", eventID),
			zap.String("kind", string(kind)),
			zap.Error(err),
		)
		_ = p.eventsRepo.MarkFailed(ctx, eventID, err.Error())
		return
	}

	metrics.WebhookEventsTotal.WithLabelValues(string(kind), "ok").Inc()
	_ = p.eventsRepo.MarkProcessed(ctx, eventID)
}

// classify maps the decoded envelope onto the closed set of event kinds.
func classify(env *Envelope) model.WebhookEventKind {
	for _, e := range env.Entry {
		for _, ch := range e.Changes {
			switch {
			case len(ch.Value.Statuses) > 0:
				return model.EventKindStatus
			case len(ch.Value.Messages) > 0:
				return model.EventKindInboundMessage
			case ch.Field == "message_template_status_update":
				return model.EventKindTemplateStatus
			}
		}
	}
	return model.EventKindUnknown
}

// handleStatuses advances the delivery state machine. The conditional update
// in the repository makes redelivered and out-of-order events no-ops; rows
// with unrecognized provider ids simply match nothing and are dropped.
func (p *Pipeline) handleStatuses(ctx context.Context, env *Envelope) error {
	var firstErr error
	for _, e := range env.Entry {
		for _, ch := range e.Changes {
			for _, st := range ch.Value.Statuses {
				status, ok := model.ParseMessageStatus(st.Status)
				if !ok {
					p.log.Info("unrecognized delivery status", zap.String("status", st.Status))
					continue
				}
				var errDetail string
				if len(st.Errors) > 0 {
					errDetail = st.Errors[0].Message
					if errDetail == "" {
						errDetail = st.Errors[0].Title
					}
				}
				applied, err := p.messages.AdvanceStatus(ctx, st.ID, status, errDetail)
				if err != nil {
					if firstErr == nil {
						firstErr = err
					}
					continue
				}
				if !applied {
					// Unknown id, or a stale/duplicate event already behind
					// the stored state. Both are dropped.
					p.log.Debug("status transition not applied",
						zap.String("provider_message_id", st.ID),
						zap.String("status", string(status)),
					)
					continue
				}
				metrics.MessagesTotal.WithLabelValues("outbound", string(status)).Inc()
				_ = p.publisher.Publish(ctx, events.TopicMessageStatus, "message.status", events.StatusChanged{
					ProviderMessageID: st.ID,
					Status:            status,
					Error:             errDetail,
				})
			}
		}
	}
	return firstErr
}

// handleInbound persists newly seen inbound messages, touches the contact and
// session, and publishes message-received events. Redelivered webhooks are
// absorbed by the provider-id uniqueness constraint.
func (p *Pipeline) handleInbound(ctx context.Context, env *Envelope) error {
	var firstErr error
	for _, e := range env.Entry {
		for _, ch := range e.Changes {
			names := make(map[string]string, len(ch.Value.Contacts))
			for _, c := range ch.Value.Contacts {
				names[c.WaID] = c.Profile.Name
			}
			for _, wm := range ch.Value.Messages {
				if err := p.storeInbound(ctx, wm, names[wm.From]); err != nil {
					if firstErr == nil {
						firstErr = err
					}
				}
			}
		}
	}
	return firstErr
}

func (p *Pipeline) storeInbound(ctx context.Context, wm WAMessage, profileName string) error {
	phone := util.NormalizePhone(wm.From)
	received := extractContent(wm)

	raw, _ := json.Marshal(wm)
	row := model.Message{
		ID:                util.NewID(),
		ProviderMessageID: sql.NullString{String: wm.ID, Valid: wm.ID != ""},
		Phone:             phone,
		Type:              received.Type,
		Payload:           string(raw),
		Status:            model.StatusReceived,
	}
	inserted, err := p.messages.InsertInbound(ctx, row)
	if err != nil {
		return fmt.Errorf("insert inbound: %w", err)
	}
	if !inserted {
		// Duplicate delivery; silently absorbed.
		metrics.WebhookEventsTotal.WithLabelValues(string(model.EventKindInboundMessage), "duplicate").Inc()
		return nil
	}
	metrics.MessagesTotal.WithLabelValues("inbound", string(model.StatusReceived)).Inc()

	if p.contacts != nil {
		name := profileName
		if name == "" {
			name = phone
		}
		if err := p.contacts.UpsertInbound(ctx, phone, name); err != nil {
			p.log.Warn("contact upsert failed", zap.String("phone", phone), zap.Error(err))
		}
	}
	if p.sessions != nil {
		if err := p.sessions.RecordInteraction(ctx, phone, "message_received", map[string]any{
			"provider_message_id": wm.ID,
			"type":                string(received.Type),
		}); err != nil {
			p.log.Warn("session touch failed", zap.String("phone", phone), zap.Error(err))
		}
	}

	received.MessageID = row.ID
	return p.publisher.Publish(ctx, events.TopicMessageReceived, "message.received", received)
}

// extractContent pulls the collaborator-facing content out of the provider
// message shape: text body, media reference, or interactive selection.
func extractContent(wm WAMessage) events.MessageReceived {
	out := events.MessageReceived{
		ProviderMessageID: wm.ID,
		From:              util.NormalizePhone(wm.From),
		Type:              model.TypeText,
	}
	switch wm.Type {
	case "text":
		if wm.Text != nil {
			out.Text = wm.Text.Body
		}
	case "image", "video", "audio", "document":
		out.Type = model.TypeMedia
		for _, m := range []*WAMedia{wm.Image, wm.Video, wm.Audio, wm.Document} {
			if m != nil {
				out.MediaID = m.ID
				out.Text = m.Caption
				break
			}
		}
	case "interactive":
		if wm.Interactive != nil {
			if br := wm.Interactive.ButtonReply; br != nil {
				out.Selection = br.ID
				out.Text = br.Title
			} else if lr := wm.Interactive.ListReply; lr != nil {
				out.Selection = lr.ID
				out.Text = lr.Title
			}
		}
	}
	return out
}

// handleTemplateStatus applies provider template review decisions.
func (p *Pipeline) handleTemplateStatus(ctx context.Context, env *Envelope) error {
	var firstErr error
	for _, e := range env.Entry {
		for _, ch := range e.Changes {
			if ch.Field != "message_template_status_update" {
				continue
			}
			approval, ok := model.ParseTemplateApproval(ch.Value.Event)
			if !ok {
				continue
			}
			err := p.templates.UpdateApproval(ctx, ch.Value.TemplateName, ch.Value.TemplateLanguage, approval)
			if err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
