package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/storekit/wa-bridge/internal/model"
)

// CloudAPI is the primary transport: direct HTTPS POST to the provider
// messaging endpoint with bearer-token auth.
type CloudAPI struct {
	baseURL       string
	apiVersion    string
	phoneNumberID string
	token         string
	client        *http.Client
	br            *breaker
}

type CloudAPIOpts struct {
	BaseURL       string
	APIVersion    string
	PhoneNumberID string
	Token         string
	TimeoutMs     int
	FailThreshold int
	OpenForMs     int
}

func NewCloudAPI(opts CloudAPIOpts) *CloudAPI {
	if opts.TimeoutMs <= 0 {
		opts.TimeoutMs = 5000
	}
	if opts.BaseURL == "" {
		opts.BaseURL = "https://graph.facebook.com"
	}
	if opts.APIVersion == "" {
		opts.APIVersion = "v19.0"
	}
	return &CloudAPI{
		baseURL:       strings.TrimRight(opts.BaseURL, "/"),
		apiVersion:    opts.APIVersion,
		phoneNumberID: opts.PhoneNumberID,
		token:         opts.Token,
		client:        &http.Client{Timeout: time.Duration(opts.TimeoutMs) * time.Millisecond},
		br:            newBreaker(opts.FailThreshold, time.Duration(opts.OpenForMs)*time.Millisecond),
	}
}

func (t *CloudAPI) Name() string      { return "cloud_api" }
func (t *CloudAPI) Confirmable() bool { return true }

// ---- wire payloads (provider shape) ----

type apiMessage struct {
	MessagingProduct string       `json:"messaging_product"`
	To               string       `json:"to"`
	Type             string       `json:"type"`
	Text             *apiText     `json:"text,omitempty"`
	Template         *apiTemplate `json:"template,omitempty"`
	Image            *apiMedia    `json:"image,omitempty"`
	Video            *apiMedia    `json:"video,omitempty"`
	Audio            *apiMedia    `json:"audio,omitempty"`
	Document         *apiMedia    `json:"document,omitempty"`
}

type apiText struct {
	Body string `json:"body"`
}

type apiTemplate struct {
	Name       string      `json:"name"`
	Language   apiLanguage `json:"language"`
	Components any         `json:"components,omitempty"`
}

type apiLanguage struct {
	Code string `json:"code"`
}

type apiMedia struct {
	Link     string `json:"link"`
	Caption  string `json:"caption,omitempty"`
	Filename string `json:"filename,omitempty"`
}

type apiResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
	Error *struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
}

func buildPayload(msg Message) (apiMessage, error) {
	out := apiMessage{
		MessagingProduct: "whatsapp",
		To:               msg.To,
		Type:             msg.Type.String(),
	}
	switch msg.Type {
	case model.TypeText:
		out.Text = &apiText{Body: msg.Text}
	case model.TypeTemplate:
		if msg.Template == nil {
			return out, fmt.Errorf("template payload missing")
		}
		t := &apiTemplate{
			Name:     msg.Template.Name,
			Language: apiLanguage{Code: msg.Template.Language},
		}
		if len(msg.Template.Components) > 0 {
			t.Components = msg.Template.Components
		}
		out.Template = t
	case model.TypeMedia:
		if msg.Media == nil {
			return out, fmt.Errorf("media payload missing")
		}
		m := &apiMedia{Link: msg.Media.Link, Caption: msg.Media.Caption}
		out.Type = msg.Media.Kind
		switch msg.Media.Kind {
		case "image":
			out.Image = m
		case "video":
			out.Video = m
		case "audio":
			m.Caption = ""
			out.Audio = m
		case "document":
			m.Filename = msg.Media.Filename
			out.Document = m
		default:
			return out, fmt.Errorf("unknown media kind %q", msg.Media.Kind)
		}
	default:
		return out, fmt.Errorf("unknown message type %q", msg.Type)
	}
	return out, nil
}

// Send posts one message. Any transport-level failure (breaker open, network
// error, auth error, non-2xx) is returned as an error so the gateway can move
// on to the fallback transport.
func (t *CloudAPI) Send(ctx context.Context, msg Message) (Result, error) {
	if t.token == "" || t.phoneNumberID == "" {
		return Result{}, fmt.Errorf("cloud api: %w: missing credentials", ErrUnavailable)
	}
	if !t.br.tryAcquire() {
		return Result{}, fmt.Errorf("cloud api: %w: circuit open", ErrUnavailable)
	}

	res, err := t.post(ctx, msg)
	if err != nil {
		t.br.onFailure()
		return Result{}, err
	}
	t.br.onSuccess()
	return res, nil
}

func (t *CloudAPI) post(ctx context.Context, msg Message) (Result, error) {
	payload, err := buildPayload(msg)
	if err != nil {
		return Result{}, err
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return Result{}, err
	}

	url := fmt.Sprintf("%s/%s/%s/messages", t.baseURL, t.apiVersion, t.phoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+t.token)

	resp, err := t.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("cloud api post: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	var out apiResponse
	_ = json.Unmarshal(body, &out)

	if resp.StatusCode/100 != 2 {
		detail := ""
		if out.Error != nil {
			detail = out.Error.Message
		}
		return Result{}, fmt.Errorf("cloud api status=%d %s", resp.StatusCode, detail)
	}

	var id string
	if len(out.Messages) > 0 {
		id = out.Messages[0].ID
	}
	return Result{ProviderMessageID: id}, nil
}
