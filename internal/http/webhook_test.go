package http

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	echo "github.com/labstack/echo/v4"

	"github.com/storekit/wa-bridge/internal/gateway"
	"github.com/storekit/wa-bridge/internal/webhook"
)

func newVerifyContext(target string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestVerifyWebhookHandler(t *testing.T) {
	p := webhook.NewPipeline("verify-me", "", nil, nil, nil, nil, nil, nil, nil)
	h := verifyWebhookHandler(p)

	c, rec := newVerifyContext("/webhook?hub.mode=subscribe&hub.verify_token=verify-me&hub.challenge=42")
	if err := h(c); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusOK || rec.Body.String() != "42" {
		t.Fatalf("handshake: code=%d body=%q", rec.Code, rec.Body.String())
	}

	c, rec = newVerifyContext("/webhook?hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=42")
	if err := h(c); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusForbidden {
		t.Fatalf("wrong token: code=%d", rec.Code)
	}
}

func postWebhook(t *testing.T, p *webhook.Pipeline, body, signature string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	if signature != "" {
		req.Header.Set("X-Hub-Signature-256", signature)
	}
	rec := httptest.NewRecorder()
	if err := ingestWebhookHandler(p)(e.NewContext(req, rec)); err != nil {
		t.Fatal(err)
	}
	return rec
}

func TestIngestWebhookHandlerRejectsBadSignature(t *testing.T) {
	p := webhook.NewPipeline("", "app-secret", nil, nil, nil, nil, nil, nil, nil)
	body := `{"object":"whatsapp_business_account","entry":[{"id":"1","changes":[]}]}`

	if rec := postWebhook(t, p, body, "sha256=deadbeef"); rec.Code != http.StatusForbidden {
		t.Fatalf("tampered signature: code=%d", rec.Code)
	}
	if rec := postWebhook(t, p, body, ""); rec.Code != http.StatusForbidden {
		t.Fatalf("missing signature: code=%d", rec.Code)
	}
}

func TestIngestWebhookHandlerMalformedBody(t *testing.T) {
	p := webhook.NewPipeline("", "app-secret", nil, nil, nil, nil, nil, nil, nil)
	body := `{"not":"an envelope"}`

	mac := hmac.New(sha256.New, []byte("app-secret"))
	mac.Write([]byte(body))
	sig := "sha256=" + hex.EncodeToString(mac.Sum(nil))

	if rec := postWebhook(t, p, body, sig); rec.Code != http.StatusBadRequest {
		t.Fatalf("malformed body: code=%d", rec.Code)
	}
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		reason gateway.Reason
		want   int
	}{
		{gateway.ReasonNone, http.StatusOK},
		{gateway.ReasonInvalidRecipient, http.StatusBadRequest},
		{gateway.ReasonTemplateNotFound, http.StatusBadRequest},
		{gateway.ReasonInvalidMedia, http.StatusBadRequest},
		{gateway.ReasonRateLimited, http.StatusTooManyRequests},
		{gateway.ReasonNotConfigured, http.StatusServiceUnavailable},
		{gateway.ReasonTransportFailure, http.StatusBadGateway},
		{gateway.ReasonInternal, http.StatusInternalServerError},
	}
	for _, c := range cases {
		if got := statusFor(gateway.Result{Reason: c.reason}); got != c.want {
			t.Fatalf("statusFor(%q) = %d, want %d", c.reason, got, c.want)
		}
	}
}
