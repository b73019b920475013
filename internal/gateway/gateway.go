package gateway

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/storekit/wa-bridge/internal/metrics"
	"github.com/storekit/wa-bridge/internal/model"
	"github.com/storekit/wa-bridge/internal/ratelimit"
	"github.com/storekit/wa-bridge/internal/repository"
	tmpl "github.com/storekit/wa-bridge/internal/template"
	"github.com/storekit/wa-bridge/internal/transport"
	"github.com/storekit/wa-bridge/internal/util"
)

// Reason is the closed set of send-failure codes returned to callers.
type Reason string

const (
	ReasonNone             Reason = ""
	ReasonInvalidRecipient Reason = "invalid_recipient"
	ReasonRateLimited      Reason = "rate_limited"
	ReasonNotConfigured    Reason = "not_configured"
	ReasonTransportFailure Reason = "transport_failure"
	ReasonTemplateNotFound Reason = "template_not_found"
	ReasonInvalidMedia     Reason = "invalid_media"
	ReasonInternal         Reason = "internal"
)

// TemplateRef selects a stored template and binds its variables.
type TemplateRef struct {
	Name       string            `json:"name"`
	Language   string            `json:"language"`
	Positional []string          `json:"positional,omitempty"`
	Named      map[string]string `json:"named,omitempty"`
}

type Request struct {
	Phone      string
	Type       model.MessageType
	Text       string
	Template   *TemplateRef
	Media      *MediaRef
	CampaignID string
}

// Result is the structured outcome of one send. Errors never cross the
// gateway boundary as Go errors so bulk sends and automation hooks can
// continue past individual failures.
type Result struct {
	Success           bool   `json:"success"`
	MessageID         string `json:"message_id,omitempty"`
	ProviderMessageID string `json:"provider_message_id,omitempty"`
	Transport         string `json:"transport,omitempty"`
	// Deeplink is set when the fallback transport produced a URL; its
	// presence means "URL generated", not "message delivered".
	Deeplink    string `json:"deeplink,omitempty"`
	Reason      Reason `json:"reason,omitempty"`
	LimitWindow string `json:"limit_window,omitempty"`
	Error       string `json:"error,omitempty"`
}

// Admitter is the rate-limiter surface the gateway needs.
type Admitter interface {
	Admit(ctx context.Context, scope string) (ratelimit.Decision, error)
	Release(ctx context.Context, scope string)
}

type Config struct {
	// RecipientScoped switches rate limiting from one global budget to
	// per-recipient budgets.
	RecipientScoped bool
	BulkEnabled     bool
	BulkDelay       time.Duration
}

// Gateway turns a send request into a provider call: rate limiting, template
// resolution, the ordered transport chain, and the message audit trail.
type Gateway struct {
	transports []transport.Transport
	limiter    Admitter
	messages   repository.MessagesRepository
	templates  repository.TemplatesRepository
	contacts   repository.ContactsRepository // optional; nil degrades to no-op
	cfg        Config
	log        *zap.Logger
	sleep      func(time.Duration)
}

func New(
	transports []transport.Transport,
	limiter Admitter,
	messagesRepo repository.MessagesRepository,
	templatesRepo repository.TemplatesRepository,
	contactsRepo repository.ContactsRepository,
	cfg Config,
	log *zap.Logger,
) *Gateway {
	if cfg.BulkDelay <= 0 {
		cfg.BulkDelay = time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Gateway{
		transports: transports,
		limiter:    limiter,
		messages:   messagesRepo,
		templates:  templatesRepo,
		contacts:   contactsRepo,
		cfg:        cfg,
		log:        log,
		sleep:      time.Sleep,
	}
}

func (g *Gateway) scope(phone string) string {
	if g.cfg.RecipientScoped {
		return phone
	}
	return "global"
}

// Send runs the dispatch algorithm. The pending row is persisted before any
// transport attempt so a crash mid-send still leaves an auditable record.
func (g *Gateway) Send(ctx context.Context, req Request) Result {
	phone := util.NormalizePhone(req.Phone)
	if !util.ValidPhone(phone) {
		return Result{Reason: ReasonInvalidRecipient, Error: "phone failed normalization"}
	}

	if len(g.transports) == 0 {
		return Result{Reason: ReasonNotConfigured, Error: "no transport configured"}
	}

	scope := g.scope(phone)
	dec, err := g.limiter.Admit(ctx, scope)
	if err != nil {
		g.log.Warn("rate limiter unavailable, failing open", zap.Error(err))
	}
	if !dec.Allowed {
		window := "hourly"
		if dec.Reason == ratelimit.ReasonDaily {
			window = "daily"
		}
		metrics.RateLimitDenialsTotal.WithLabelValues(window).Inc()
		return Result{Reason: ReasonRateLimited, LimitWindow: window, Error: string(dec.Reason)}
	}

	msgID := util.NewID()
	snapshot, _ := json.Marshal(map[string]any{
		"type": req.Type, "text": req.Text, "template": req.Template, "media": req.Media,
	})
	row := model.Message{
		ID:      msgID,
		Phone:   phone,
		Type:    req.Type,
		Payload: string(snapshot),
	}
	if req.CampaignID != "" {
		row.CampaignID = sql.NullString{String: req.CampaignID, Valid: true}
	}
	if err := g.messages.InsertPending(ctx, row); err != nil {
		g.limiter.Release(ctx, scope)
		g.log.Error("insert pending message", zap.Error(err))
		return Result{Reason: ReasonInternal, Error: "persist failed"}
	}

	msg, reason, err := g.buildMessage(ctx, phone, req)
	if err != nil {
		_ = g.messages.MarkFailed(ctx, msgID, err.Error())
		g.limiter.Release(ctx, scope)
		return Result{MessageID: msgID, Reason: reason, Error: err.Error()}
	}

	var errs []string
	for _, tr := range g.transports {
		res, err := tr.Send(ctx, msg)
		if err != nil {
			metrics.TransportAttemptsTotal.WithLabelValues(tr.Name(), "error").Inc()
			g.log.Warn("transport attempt failed",
				zap.String("message_id", msgID),
				zap.String("transport", tr.Name()),
				zap.Error(err),
			)
			errs = append(errs, tr.Name()+": "+err.Error())
			continue
		}

		metrics.TransportAttemptsTotal.WithLabelValues(tr.Name(), "ok").Inc()
		metrics.MessagesTotal.WithLabelValues("outbound", "sent").Inc()
		if err := g.messages.MarkSent(ctx, msgID, res.ProviderMessageID, tr.Name()); err != nil {
			g.log.Error("mark sent", zap.String("message_id", msgID), zap.Error(err))
		}
		g.markContactReached(ctx, phone)
		g.log.Info("message sent",
			zap.String("message_id", msgID),
			zap.String("transport", tr.Name()),
			zap.Bool("confirmable", tr.Confirmable()),
		)
		return Result{
			Success:           true,
			MessageID:         msgID,
			ProviderMessageID: res.ProviderMessageID,
			Transport:         tr.Name(),
			Deeplink:          res.Detail,
		}
	}

	errMsg := strings.Join(errs, "; ")
	_ = g.messages.MarkFailed(ctx, msgID, errMsg)
	g.limiter.Release(ctx, scope)
	metrics.MessagesTotal.WithLabelValues("outbound", "failed").Inc()
	g.log.Warn("all transports exhausted", zap.String("message_id", msgID), zap.String("errors", errMsg))
	return Result{MessageID: msgID, Reason: ReasonTransportFailure, Error: errMsg}
}

// buildMessage resolves templates and validates media, producing the
// transport-neutral unit.
func (g *Gateway) buildMessage(ctx context.Context, phone string, req Request) (transport.Message, Reason, error) {
	msg := transport.Message{To: phone, Type: req.Type, Text: req.Text}

	switch req.Type {
	case model.TypeTemplate:
		if req.Template == nil {
			return msg, ReasonTemplateNotFound, errors.New("template reference missing")
		}
		stored, err := g.templates.GetByNameLang(ctx, req.Template.Name, req.Template.Language)
		if err != nil {
			return msg, ReasonInternal, err
		}
		if stored == nil {
			return msg, ReasonTemplateNotFound, errors.New("template " + req.Template.Name + "/" + req.Template.Language + " not found")
		}
		vars := tmpl.Variables{Positional: req.Template.Positional, Named: req.Template.Named}
		msg.Text = tmpl.Render(stored.Body, vars)
		msg.Template = &transport.Template{
			Name:       stored.Name,
			Language:   stored.Language,
			Components: tmpl.Components(vars),
		}
	case model.TypeMedia:
		if req.Media == nil {
			return msg, ReasonInvalidMedia, errors.New("media reference missing")
		}
		if err := validateMedia(*req.Media); err != nil {
			return msg, ReasonInvalidMedia, err
		}
		msg.Media = &transport.Media{
			Kind:     req.Media.Kind,
			Link:     req.Media.Link,
			Caption:  req.Media.Caption,
			Filename: req.Media.Filename,
		}
	}
	return msg, ReasonNone, nil
}

// markContactReached records the outbound side effects on the contact:
// last-contacted always, opt-in promotion on the first outbound touch.
// A missing contact manager degrades to a no-op.
func (g *Gateway) markContactReached(ctx context.Context, phone string) {
	if g.contacts == nil {
		return
	}
	c, err := g.contacts.GetByPhone(ctx, phone)
	if err != nil || c == nil {
		return
	}
	if c.OptIn == model.OptInPending {
		_ = g.contacts.SetOptIn(ctx, phone, model.OptedIn)
	}
	_ = g.contacts.TouchLastContacted(ctx, phone)
}

var ErrBulkDisabled = errors.New("bulk sending disabled by policy")

// SendBulk iterates recipients sequentially with a fixed inter-message delay
// to respect provider burst limits; one recipient's failure never aborts the
// batch.
func (g *Gateway) SendBulk(ctx context.Context, recipients []string, req Request) ([]Result, error) {
	if !g.cfg.BulkEnabled {
		return nil, ErrBulkDisabled
	}
	out := make([]Result, 0, len(recipients))
	for i, to := range recipients {
		if i > 0 {
			g.sleep(g.cfg.BulkDelay)
		}
		r := req
		r.Phone = to
		out = append(out, g.Send(ctx, r))
		if ctx.Err() != nil {
			break
		}
	}
	return out, nil
}
