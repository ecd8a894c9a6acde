package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

func runMiddleware(t *testing.T, cfg JWTConfig, path, header string, handler echo.HandlerFunc) error {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath(path)
	return JWTMiddleware(cfg)(handler)(c)
}

func okHandler(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

func expectStatus(t *testing.T, err error, code int) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected HTTP %d, got nil error", code)
	}
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo.HTTPError, got %T", err)
	}
	if httpErr.Code != code {
		t.Errorf("expected %d, got %d", code, httpErr.Code)
	}
}

func TestJWTMiddleware_MissingHeader(t *testing.T) {
	cfg := JWTConfig{Tokens: newTestManager(t)}
	err := runMiddleware(t, cfg, "/api/patients", "", okHandler)
	expectStatus(t, err, http.StatusUnauthorized)
}

func TestJWTMiddleware_InvalidFormat(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"no bearer prefix", "token-only"},
		{"wrong scheme", "Token abc"},
		{"basic auth", "Basic dXNlcjpwYXNz"},
		{"empty bearer", "Bearer  "},
	}
	cfg := JWTConfig{Tokens: newTestManager(t)}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := runMiddleware(t, cfg, "/api/patients", tt.header, okHandler)
			expectStatus(t, err, http.StatusUnauthorized)
		})
	}
}

func TestJWTMiddleware_ValidToken(t *testing.T) {
	m := newTestManager(t)
	tok, err := m.Issue(Identity{UserID: "user-456", Roles: []string{RolePhysician, RoleMidwife}})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	var called bool
	handler := func(c echo.Context) error {
		called = true
		ctx := c.Request().Context()
		if uid := UserIDFromContext(ctx); uid != "user-456" {
			t.Errorf("expected user_id=user-456, got %s", uid)
		}
		roles := RolesFromContext(ctx)
		if len(roles) != 2 || roles[0] != RolePhysician || roles[1] != RoleMidwife {
			t.Errorf("expected roles=[physician midwife], got %v", roles)
		}
		if jti := TokenIDFromContext(ctx); jti != tok.ID {
			t.Errorf("expected token id %s, got %s", tok.ID, jti)
		}
		if exp := TokenExpiryFromContext(ctx); exp.Unix() != tok.ExpiresAt.Unix() {
			t.Errorf("expected expiry %v, got %v", tok.ExpiresAt, exp)
		}
		return c.String(http.StatusOK, "ok")
	}

	if err := runMiddleware(t, JWTConfig{Tokens: m}, "/api/user", "Bearer "+tok.AccessToken, handler); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called {
		t.Error("handler was not called")
	}
}

func TestJWTMiddleware_LowercaseScheme(t *testing.T) {
	m := newTestManager(t)
	tok, _ := m.Issue(Identity{UserID: "user-1"})
	if err := runMiddleware(t, JWTConfig{Tokens: m}, "/api/user", "bearer "+tok.AccessToken, okHandler); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestJWTMiddleware_QueryTokenOnWebSocketUpgrade(t *testing.T) {
	m := newTestManager(t)
	tok, _ := m.Issue(Identity{UserID: "user-1", Roles: []string{RoleNurse}})

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/queue/stream?access_token="+tok.AccessToken, nil)
	req.Header.Set("Upgrade", "websocket")
	c := e.NewContext(req, httptest.NewRecorder())

	var uid string
	err := JWTMiddleware(JWTConfig{Tokens: m})(func(c echo.Context) error {
		uid = UserIDFromContext(c.Request().Context())
		return nil
	})(c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if uid != "user-1" {
		t.Errorf("expected user-1, got %q", uid)
	}
}

func TestJWTMiddleware_QueryTokenIgnoredWithoutUpgrade(t *testing.T) {
	m := newTestManager(t)
	tok, _ := m.Issue(Identity{UserID: "user-1"})

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/patients?access_token="+tok.AccessToken, nil)
	c := e.NewContext(req, httptest.NewRecorder())

	err := JWTMiddleware(JWTConfig{Tokens: m})(okHandler)(c)
	expectStatus(t, err, http.StatusUnauthorized)
}

func TestJWTMiddleware_ExpiredToken(t *testing.T) {
	m := newTestManager(t)
	past := time.Now().Add(-3 * time.Hour)
	m.now = func() time.Time { return past }
	tok, _ := m.Issue(Identity{UserID: "user-1"})
	m.now = time.Now

	err := runMiddleware(t, JWTConfig{Tokens: m}, "/api/user", "Bearer "+tok.AccessToken, okHandler)
	expectStatus(t, err, http.StatusUnauthorized)
	if msg := err.(*echo.HTTPError).Message; msg != "token expired" {
		t.Errorf("expected 'token expired', got %v", msg)
	}
}

func TestJWTMiddleware_RevokedToken(t *testing.T) {
	m := newTestManager(t)
	tok, _ := m.Issue(Identity{UserID: "user-1"})
	store := NewTokenRevocationStore(nil)
	if err := store.Revoke(context.Background(), tok.ID, "user-1", tok.ExpiresAt); err != nil {
		t.Fatalf("Revoke: %v", err)
	}

	cfg := JWTConfig{Tokens: m, Revocations: store}
	err := runMiddleware(t, cfg, "/api/user", "Bearer "+tok.AccessToken, okHandler)
	expectStatus(t, err, http.StatusUnauthorized)
}

func TestJWTMiddleware_SkipsPublicPaths(t *testing.T) {
	cfg := JWTConfig{Tokens: newTestManager(t), Skipper: AuthSkipper}
	for _, path := range []string{"/health", "/metrics", "/api/login"} {
		t.Run(path, func(t *testing.T) {
			var called bool
			handler := func(c echo.Context) error {
				called = true
				if uid := UserIDFromContext(c.Request().Context()); uid != "" {
					t.Errorf("expected no user on skipped path, got %s", uid)
				}
				return nil
			}
			if err := runMiddleware(t, cfg, path, "", handler); err != nil {
				t.Fatalf("expected no error for skipped path, got: %v", err)
			}
			if !called {
				t.Error("expected handler to be called")
			}
		})
	}
}

func TestJWTMiddleware_DoesNotSkipProtectedPaths(t *testing.T) {
	cfg := JWTConfig{Tokens: newTestManager(t), Skipper: AuthSkipper}
	for _, path := range []string{"/api/patients", "/api/queue", "/api/logout", "/", "/health/extra"} {
		t.Run(path, func(t *testing.T) {
			err := runMiddleware(t, cfg, path, "", okHandler)
			expectStatus(t, err, http.StatusUnauthorized)
		})
	}
}

func TestJWTMiddleware_NilSkipperDoesNotSkip(t *testing.T) {
	err := runMiddleware(t, JWTConfig{Tokens: newTestManager(t)}, "/health", "", okHandler)
	expectStatus(t, err, http.StatusUnauthorized)
}

func TestIsPublicPath(t *testing.T) {
	if !IsPublicPath("/health") {
		t.Error("expected /health to be public")
	}
	if IsPublicPath("/api/patients") {
		t.Error("expected /api/patients to NOT be public")
	}
}
