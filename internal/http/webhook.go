package http

import (
	"errors"
	"io"
	"net/http"

	echo "github.com/labstack/echo/v4"

	"github.com/storekit/wa-bridge/internal/webhook"
)

// verifyWebhookHandler answers the provider's subscription handshake.
func verifyWebhookHandler(p *webhook.Pipeline) echo.HandlerFunc {
	return func(c echo.Context) error {
		challenge, ok := p.VerifyChallenge(
			c.QueryParam("hub.mode"),
			c.QueryParam("hub.verify_token"),
			c.QueryParam("hub.challenge"),
		)
		if !ok {
			return c.NoContent(http.StatusForbidden)
		}
		return c.String(http.StatusOK, challenge)
	}
}

// ingestWebhookHandler accepts provider event callbacks. The 200 is sent as
// soon as the raw event is durable; processing failures are not surfaced to
// the provider, which would otherwise retry events we already hold.
func ingestWebhookHandler(p *webhook.Pipeline) echo.HandlerFunc {
	return func(c echo.Context) error {
		body, err := io.ReadAll(io.LimitReader(c.Request().Body, 2<<20))
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "unreadable body"})
		}

		if !p.CheckSignature(body, c.Request().Header.Get("X-Hub-Signature-256")) {
			return c.NoContent(http.StatusForbidden)
		}

		if err := p.Ingest(c.Request().Context(), body); err != nil {
			if errors.Is(err, webhook.ErrMalformedPayload) {
				return c.JSON(http.StatusBadRequest, map[string]string{"error": "malformed payload"})
			}
			c.Logger().Errorf("webhook ingest failed: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "ingest failed"})
		}
		return c.String(http.StatusOK, "OK")
	}
}
