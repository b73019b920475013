package http

import (
	"net/http"

	echo "github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"

	"github.com/storekit/wa-bridge/internal/gateway"
	"github.com/storekit/wa-bridge/internal/model"
)

type sendReq struct {
	Phone      string               `json:"phone"`
	Type       string               `json:"type"` // "text" | "template" | "media"
	Text       string               `json:"text,omitempty"`
	Template   *gateway.TemplateRef `json:"template,omitempty"`
	Media      *gateway.MediaRef    `json:"media,omitempty"`
	CampaignID string               `json:"campaign_id,omitempty"`
}

func (r sendReq) toRequest(typ model.MessageType) gateway.Request {
	return gateway.Request{
		Phone:      r.Phone,
		Type:       typ,
		Text:       r.Text,
		Template:   r.Template,
		Media:      r.Media,
		CampaignID: r.CampaignID,
	}
}

// statusFor maps gateway reasons onto HTTP codes; the result body always
// carries the structured outcome.
func statusFor(res gateway.Result) int {
	switch res.Reason {
	case gateway.ReasonNone:
		return http.StatusOK
	case gateway.ReasonInvalidRecipient, gateway.ReasonTemplateNotFound, gateway.ReasonInvalidMedia:
		return http.StatusBadRequest
	case gateway.ReasonRateLimited:
		return http.StatusTooManyRequests
	case gateway.ReasonNotConfigured:
		return http.StatusServiceUnavailable
	case gateway.ReasonTransportFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func sendHandler(gw *gateway.Gateway) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req sendReq
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad request"})
		}
		typ, ok := model.ParseMessageType(req.Type)
		if !ok {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid type"})
		}

		res := gw.Send(c.Request().Context(), req.toRequest(typ))
		if !res.Success {
			log.Warnf("send failed: reason=%s err=%s", res.Reason, res.Error)
		}
		return c.JSON(statusFor(res), res)
	}
}

type bulkReq struct {
	Recipients []string             `json:"recipients"`
	Type       string               `json:"type"`
	Text       string               `json:"text,omitempty"`
	Template   *gateway.TemplateRef `json:"template,omitempty"`
	Media      *gateway.MediaRef    `json:"media,omitempty"`
	CampaignID string               `json:"campaign_id,omitempty"`
}

func sendBulkHandler(gw *gateway.Gateway) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req bulkReq
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad request"})
		}
		if len(req.Recipients) == 0 {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "no recipients"})
		}
		typ, ok := model.ParseMessageType(req.Type)
		if !ok {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid type"})
		}

		results, err := gw.SendBulk(c.Request().Context(), req.Recipients, gateway.Request{
			Type:       typ,
			Text:       req.Text,
			Template:   req.Template,
			Media:      req.Media,
			CampaignID: req.CampaignID,
		})
		if err != nil {
			return c.JSON(http.StatusForbidden, map[string]string{"error": err.Error()})
		}

		sent := 0
		for _, r := range results {
			if r.Success {
				sent++
			}
		}
		return c.JSON(http.StatusOK, map[string]any{
			"total":   len(results),
			"sent":    sent,
			"results": results,
		})
	}
}
