package transport

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/storekit/wa-bridge/internal/model"
	tmpl "github.com/storekit/wa-bridge/internal/template"
)

func TestBuildPayloadText(t *testing.T) {
	p, err := buildPayload(Message{To: "491701234567", Type: model.TypeText, Text: "hi"})
	if err != nil {
		t.Fatal(err)
	}
	if p.MessagingProduct != "whatsapp" || p.Type != "text" || p.Text == nil || p.Text.Body != "hi" {
		t.Fatalf("unexpected payload %+v", p)
	}
}

func TestBuildPayloadTemplate(t *testing.T) {
	p, err := buildPayload(Message{
		To:   "491701234567",
		Type: model.TypeTemplate,
		Template: &Template{
			Name:     "order_confirmation",
			Language: "en",
			Components: []tmpl.Component{
				{Type: "body", Parameters: []tmpl.Parameter{{Type: "text", Text: "Ada"}}},
			},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if p.Template == nil || p.Template.Name != "order_confirmation" || p.Template.Language.Code != "en" {
		t.Fatalf("unexpected payload %+v", p)
	}
	if p.Template.Components == nil {
		t.Fatal("components dropped")
	}
}

func TestBuildPayloadMediaKinds(t *testing.T) {
	p, err := buildPayload(Message{
		To:    "491701234567",
		Type:  model.TypeMedia,
		Media: &Media{Kind: "image", Link: "https://cdn.example.com/p.jpg", Caption: "c"},
	})
	if err != nil {
		t.Fatal(err)
	}
	// The wire type is the media kind, not "media".
	if p.Type != "image" || p.Image == nil || p.Image.Link != "https://cdn.example.com/p.jpg" {
		t.Fatalf("unexpected payload %+v", p)
	}

	p, err = buildPayload(Message{
		To:    "491701234567",
		Type:  model.TypeMedia,
		Media: &Media{Kind: "audio", Link: "https://cdn.example.com/a.mp3", Caption: "dropped"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if p.Audio == nil || p.Audio.Caption != "" {
		t.Fatalf("audio captions are not supported by the provider: %+v", p.Audio)
	}

	p, err = buildPayload(Message{
		To:    "491701234567",
		Type:  model.TypeMedia,
		Media: &Media{Kind: "document", Link: "https://cdn.example.com/d.pdf", Filename: "invoice.pdf"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if p.Document == nil || p.Document.Filename != "invoice.pdf" {
		t.Fatalf("unexpected payload %+v", p)
	}

	if _, err := buildPayload(Message{Type: model.TypeMedia, Media: &Media{Kind: "sticker"}}); err == nil {
		t.Fatal("unknown media kind must error")
	}
}

func TestCloudAPISend(t *testing.T) {
	var gotAuth string
	var gotPath string
	var gotBody apiMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"messages": []map[string]string{{"id": "wamid.abc"}},
		})
	}))
	defer srv.Close()

	c := NewCloudAPI(CloudAPIOpts{
		BaseURL:       srv.URL,
		APIVersion:    "v19.0",
		PhoneNumberID: "1234567890",
		Token:         "tok",
	})

	res, err := c.Send(context.Background(), Message{To: "491701234567", Type: model.TypeText, Text: "hi"})
	if err != nil {
		t.Fatal(err)
	}
	if res.ProviderMessageID != "wamid.abc" {
		t.Fatalf("provider id %q", res.ProviderMessageID)
	}
	if gotAuth != "Bearer tok" {
		t.Fatalf("auth header %q", gotAuth)
	}
	if gotPath != "/v19.0/1234567890/messages" {
		t.Fatalf("path %q", gotPath)
	}
	if gotBody.To != "491701234567" || gotBody.Text == nil {
		t.Fatalf("body %+v", gotBody)
	}
}

func TestCloudAPISendProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "invalid recipient", "code": 131026},
		})
	}))
	defer srv.Close()

	c := NewCloudAPI(CloudAPIOpts{BaseURL: srv.URL, PhoneNumberID: "1", Token: "tok"})
	_, err := c.Send(context.Background(), Message{To: "491701234567", Type: model.TypeText, Text: "hi"})
	if err == nil {
		t.Fatal("expected error on 4xx")
	}
}

func TestCloudAPISendMissingCredentials(t *testing.T) {
	c := NewCloudAPI(CloudAPIOpts{})
	_, err := c.Send(context.Background(), Message{To: "491701234567", Type: model.TypeText, Text: "hi"})
	if err == nil {
		t.Fatal("expected error without credentials")
	}
}

func TestCloudAPIBreakerOpensAfterFailures(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewCloudAPI(CloudAPIOpts{
		BaseURL:       srv.URL,
		PhoneNumberID: "1",
		Token:         "tok",
		FailThreshold: 2,
		OpenForMs:     60_000,
	})
	msg := Message{To: "491701234567", Type: model.TypeText, Text: "hi"}

	for i := 0; i < 5; i++ {
		if _, err := c.Send(context.Background(), msg); err == nil {
			t.Fatal("expected failure")
		}
	}
	if hits != 2 {
		t.Fatalf("breaker should stop calls after threshold, upstream hits = %d", hits)
	}
}

func TestBreakerHalfOpenProbe(t *testing.T) {
	b := newBreaker(1, 10_000_000) // opens on first failure
	if !b.tryAcquire() {
		t.Fatal("closed breaker must admit")
	}
	b.onFailure()
	if b.tryAcquire() {
		t.Fatal("open breaker must reject before the window elapses")
	}

	b.nextTryAt = b.nextTryAt.Add(-20_000_000) // force the window past
	if !b.tryAcquire() {
		t.Fatal("elapsed window must admit one probe")
	}
	if b.tryAcquire() {
		t.Fatal("only one probe at a time")
	}
	b.onSuccess()
	if !b.tryAcquire() {
		t.Fatal("successful probe must close the breaker")
	}
}
