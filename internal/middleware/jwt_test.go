package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/exam-reservation/internal/utils"
)

const testSecret = "unit-test-secret"

func runProtected(t *testing.T, authHeader string, mws ...echo.MiddlewareFunc) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	h := func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"user_id": c.Get("user_id"), "role": c.Get("role")})
	}
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	if err := h(e.NewContext(req, rec)); err != nil {
		t.Fatalf("handler: %v", err)
	}
	return rec
}

func TestJWTAuthMissingToken(t *testing.T) {
	rec := runProtected(t, "", JWTAuth(testSecret))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("want 401, got %d", rec.Code)
	}
}

func TestJWTAuthBadToken(t *testing.T) {
	rec := runProtected(t, "Bearer not.a.jwt", JWTAuth(testSecret))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("want 401, got %d", rec.Code)
	}
}

func TestJWTAuthWrongSecret(t *testing.T) {
	at, err := utils.NewAccessToken("other-secret", 7, "CUSTOMER", time.Minute)
	if err != nil {
		t.Fatalf("NewAccessToken: %v", err)
	}
	rec := runProtected(t, "Bearer "+at.Token, JWTAuth(testSecret))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("want 401, got %d", rec.Code)
	}
}

func TestJWTAuthInjectsClaims(t *testing.T) {
	at, err := utils.NewAccessToken(testSecret, 7, "CUSTOMER", time.Minute)
	if err != nil {
		t.Fatalf("NewAccessToken: %v", err)
	}
	rec := runProtected(t, "Bearer "+at.Token, JWTAuth(testSecret))
	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestRequireRole(t *testing.T) {
	admin, err := utils.NewAccessToken(testSecret, 1, "ADMIN", time.Minute)
	if err != nil {
		t.Fatalf("NewAccessToken: %v", err)
	}
	customer, err := utils.NewAccessToken(testSecret, 2, "CUSTOMER", time.Minute)
	if err != nil {
		t.Fatalf("NewAccessToken: %v", err)
	}

	rec := runProtected(t, "Bearer "+admin.Token, JWTAuth(testSecret), RequireRole("ADMIN"))
	if rec.Code != http.StatusOK {
		t.Errorf("admin on admin route: want 200, got %d", rec.Code)
	}

	rec = runProtected(t, "Bearer "+customer.Token, JWTAuth(testSecret), RequireRole("ADMIN"))
	if rec.Code != http.StatusForbidden {
		t.Errorf("customer on admin route: want 403, got %d", rec.Code)
	}

	rec = runProtected(t, "Bearer "+customer.Token, JWTAuth(testSecret), RequireRole("ADMIN", "CUSTOMER"))
	if rec.Code != http.StatusOK {
		t.Errorf("customer on shared route: want 200, got %d", rec.Code)
	}
}

func TestCurrentUserIDFormats(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())

	if got := currentUserID(c); got != "anon" {
		t.Errorf("unauthenticated: want anon, got %q", got)
	}
	c.Set("user_id", float64(42))
	if got := currentUserID(c); got != "42" {
		t.Errorf("float64 claim: want 42, got %q", got)
	}
	c.Set("user_id", "77")
	if got := currentUserID(c); got != "77" {
		t.Errorf("string claim: want 77, got %q", got)
	}
}
