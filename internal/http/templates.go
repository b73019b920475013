package http

import (
	"net/http"

	echo "github.com/labstack/echo/v4"

	"github.com/storekit/wa-bridge/internal/repository"
)

func listTemplatesHandler(repo repository.TemplatesRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		templates, err := repo.List(c.Request().Context())
		if err != nil {
			c.Logger().Errorf("template list failed: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "query failed"})
		}
		return c.JSON(http.StatusOK, map[string]any{
			"count":   len(templates),
			"results": templates,
		})
	}
}
