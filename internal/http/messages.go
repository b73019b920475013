package http

import (
	"net/http"
	"strconv"
	"strings"

	echo "github.com/labstack/echo/v4"

	"github.com/storekit/wa-bridge/internal/model"
	"github.com/storekit/wa-bridge/internal/repository"
	"github.com/storekit/wa-bridge/internal/util"
)

// listMessagesHandler serves the filterable, paginated message history.
func listMessagesHandler(repo repository.MessagesRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		f := repository.MessageFilter{Limit: 50}

		if v := c.QueryParam("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 1000 {
				f.Limit = n
			}
		}
		if v := c.QueryParam("offset"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n >= 0 {
				f.Offset = n
			}
		}
		if raw := strings.TrimSpace(c.QueryParam("status")); raw != "" {
			st := model.MessageStatus(raw)
			if st.Valid() || st == model.StatusReceived {
				f.Status = st
			}
		}
		switch c.QueryParam("direction") {
		case "inbound":
			f.Direction = model.DirectionInbound
		case "outbound":
			f.Direction = model.DirectionOutbound
		}
		if raw := strings.TrimSpace(c.QueryParam("phone")); raw != "" {
			f.Phone = util.NormalizePhone(raw)
		}
		f.CampaignID = strings.TrimSpace(c.QueryParam("campaign_id"))

		msgs, err := repo.List(c.Request().Context(), f)
		if err != nil {
			c.Logger().Errorf("message history query failed: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "query failed"})
		}

		return c.JSON(http.StatusOK, map[string]any{
			"limit":   f.Limit,
			"offset":  f.Offset,
			"count":   len(msgs),
			"results": messageViews(msgs),
		})
	}
}

// messageView flattens nullable columns for JSON output.
type messageView struct {
	ID                string `json:"id"`
	ProviderMessageID string `json:"provider_message_id,omitempty"`
	Phone             string `json:"phone"`
	Direction         string `json:"direction"`
	Type              string `json:"type"`
	Status            string `json:"status"`
	Transport         string `json:"transport,omitempty"`
	CampaignID        string `json:"campaign_id,omitempty"`
	Error             string `json:"error,omitempty"`
	SentAt            string `json:"sent_at,omitempty"`
	DeliveredAt       string `json:"delivered_at,omitempty"`
	ReadAt            string `json:"read_at,omitempty"`
	CreatedAt         string `json:"created_at"`
}

func messageViews(msgs []model.Message) []messageView {
	out := make([]messageView, 0, len(msgs))
	for _, m := range msgs {
		v := messageView{
			ID:        m.ID,
			Phone:     m.Phone,
			Direction: string(m.Direction),
			Type:      string(m.Type),
			Status:    string(m.Status),
			CreatedAt: m.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		}
		if m.ProviderMessageID.Valid {
			v.ProviderMessageID = m.ProviderMessageID.String
		}
		if m.Transport.Valid {
			v.Transport = m.Transport.String
		}
		if m.CampaignID.Valid {
			v.CampaignID = m.CampaignID.String
		}
		if m.Error.Valid {
			v.Error = m.Error.String
		}
		if m.SentAt.Valid {
			v.SentAt = m.SentAt.Time.UTC().Format("2006-01-02T15:04:05Z")
		}
		if m.DeliveredAt.Valid {
			v.DeliveredAt = m.DeliveredAt.Time.UTC().Format("2006-01-02T15:04:05Z")
		}
		if m.ReadAt.Valid {
			v.ReadAt = m.ReadAt.Time.UTC().Format("2006-01-02T15:04:05Z")
		}
		out = append(out, v)
	}
	return out
}
