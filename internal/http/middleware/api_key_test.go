package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	echo "github.com/labstack/echo/v4"
)

func runWithKey(t *testing.T, keys []string, supplied string) int {
	t.Helper()
	e := echo.New()
	h := APIKeyMiddleware(keys)(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	req := httptest.NewRequest(http.MethodGet, "/v1/messages", nil)
	if supplied != "" {
		req.Header.Set("X-API-Key", supplied)
	}
	rec := httptest.NewRecorder()
	if err := h(e.NewContext(req, rec)); err != nil {
		t.Fatal(err)
	}
	return rec.Code
}

func TestAPIKeyMiddleware(t *testing.T) {
	keys := []string{"key-one", "key-two"}

	if code := runWithKey(t, keys, "key-one"); code != http.StatusOK {
		t.Fatalf("valid key rejected: %d", code)
	}
	if code := runWithKey(t, keys, "key-two"); code != http.StatusOK {
		t.Fatalf("second valid key rejected: %d", code)
	}
	if code := runWithKey(t, keys, "wrong"); code != http.StatusUnauthorized {
		t.Fatalf("invalid key accepted: %d", code)
	}
	if code := runWithKey(t, keys, ""); code != http.StatusUnauthorized {
		t.Fatalf("missing key accepted: %d", code)
	}
}

func TestAPIKeyMiddlewareOpenWithoutKeys(t *testing.T) {
	if code := runWithKey(t, nil, ""); code != http.StatusOK {
		t.Fatalf("no-keys mode should be open: %d", code)
	}
}
