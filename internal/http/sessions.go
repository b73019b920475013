package http

import (
	"net/http"

	echo "github.com/labstack/echo/v4"

	"github.com/storekit/wa-bridge/internal/session"
	"github.com/storekit/wa-bridge/internal/util"
)

// getSessionHandler exposes a contact's live conversation state to
// collaborators (automation, support tooling). Expired sessions read as 404.
func getSessionHandler(store *session.Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		phone := util.NormalizePhone(c.Param("phone"))
		if !util.ValidPhone(phone) {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid phone"})
		}
		s, err := store.Get(c.Request().Context(), phone)
		if err != nil {
			c.Logger().Errorf("session read failed: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "query failed"})
		}
		if s == nil {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "no session"})
		}
		return c.JSON(http.StatusOK, map[string]any{
			"phone":         s.Phone,
			"context":       s.Context,
			"last_activity": s.LastActivity,
			"expires_at":    s.ExpiresAt,
		})
	}
}
