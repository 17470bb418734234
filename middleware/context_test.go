package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
)

func TestGetRequestIDFromContext_RouterAssigned(t *testing.T) {
	var got string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = GetRequestIDFromContext(r.Context())
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	chimiddleware.RequestID(next).ServeHTTP(rec, req)

	assert.NotEmpty(t, got)
}

func TestGetRequestIDFromContext_ExplicitWins(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-42")
	assert.Equal(t, "req-42", GetRequestIDFromContext(ctx))
}

func TestGetRequestIDFromContext_Empty(t *testing.T) {
	assert.Empty(t, GetRequestIDFromContext(context.Background()))
}
