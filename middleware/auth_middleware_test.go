package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type stubValidator struct {
	claims *Claims
	err    error
}

func (s *stubValidator) ValidateToken(ctx context.Context, token string) (*Claims, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.claims, nil
}

func runAuthed(t *testing.T, m *AuthMiddleware, authHeader string) (*httptest.ResponseRecorder, *Claims) {
	t.Helper()
	var seen *Claims
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetClaimsFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	m.RequireAuth(next).ServeHTTP(rec, req)
	return rec, seen
}

func TestRequireAuth_ValidToken(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	m := NewAuthMiddleware(&stubValidator{claims: &Claims{Sub: "user-1", Groups: []string{"admin"}}}, logger)

	rec, claims := runAuthed(t, m, "Bearer good-token")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-1", claims.Sub)
}

func TestRequireAuth_MissingToken(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	m := NewAuthMiddleware(&stubValidator{}, logger)

	rec, _ := runAuthed(t, m, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuth_MalformedHeader(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	m := NewAuthMiddleware(&stubValidator{claims: &Claims{}}, logger)

	rec, _ := runAuthed(t, m, "Basic abc123")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuth_InvalidToken(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	m := NewAuthMiddleware(&stubValidator{err: errors.New("expired")}, logger)

	rec, _ := runAuthed(t, m, "Bearer bad-token")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireRole(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	m := NewAuthMiddleware(&stubValidator{}, logger)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	t.Run("has role", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(WithClaims(req.Context(), &Claims{Sub: "u", Groups: []string{"admin"}}))
		rec := httptest.NewRecorder()
		m.RequireRole("admin")(next).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("missing role", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(WithClaims(req.Context(), &Claims{Sub: "u", Groups: []string{"viewer"}}))
		rec := httptest.NewRecorder()
		m.RequireRole("admin")(next).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("no claims", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		m.RequireRole("admin")(next).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
