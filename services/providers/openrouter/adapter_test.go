package openrouter

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/llm-orchestrator/models"
	"github.com/upb/llm-orchestrator/services/providers"
)

func newTestAdapter(serverURL string) *Adapter {
	return New(Config{
		APIKey:     "test-key",
		BaseURL:    serverURL,
		Timeout:    5 * time.Second,
		MaxRetries: 1,
		RetryDelay: time.Millisecond,
		ModelNames: map[string]string{"claude-sonnet": "anthropic/claude-sonnet-4"},
	})
}

func TestQuery_Success(t *testing.T) {
	var gotReq chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"id":    "gen-1",
			"model": "anthropic/claude-sonnet-4",
			"choices": []map[string]interface{}{
				{"message": map[string]string{"content": "hello"}, "finish_reason": "stop"},
			},
			"usage": map[string]interface{}{
				"prompt_tokens":     12,
				"completion_tokens": 34,
				"total_cost":        0.0021,
			},
		})
	}))
	defer server.Close()

	adapter := newTestAdapter(server.URL)
	resp, err := adapter.Query(context.Background(), &providers.QueryRequest{
		Model:  "claude-sonnet",
		Prompt: "say hello",
		Options: models.Options{
			Temperature:          0.3,
			MaxOutputTokens:      1000,
			ReasoningEffort:      models.EffortMedium,
			ReasoningTokenBudget: 8192,
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "hello", resp.Content)
	assert.Equal(t, 12, resp.TokensIn)
	assert.Equal(t, 34, resp.TokensOut)
	assert.InDelta(t, 0.0021, resp.Cost, 1e-9)

	// Catalog ID is mapped to the gateway route name
	assert.Equal(t, "anthropic/claude-sonnet-4", gotReq.Model)
	require.NotNil(t, gotReq.Reasoning)
	assert.Equal(t, "medium", gotReq.Reasoning.Effort)
	assert.Equal(t, 8192, gotReq.Reasoning.MaxTokens)
}

func TestQuery_RateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"rate limit exceeded"}`, http.StatusTooManyRequests)
	}))
	defer server.Close()

	adapter := newTestAdapter(server.URL)
	_, err := adapter.Query(context.Background(), &providers.QueryRequest{Model: "claude-sonnet", Prompt: "hi"})
	require.Error(t, err)

	var modelErr *providers.ModelError
	require.True(t, errors.As(err, &modelErr))
	assert.Equal(t, models.FailureRateLimited, modelErr.Kind)
}

func TestQuery_InvalidModel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"model not found"}`, http.StatusNotFound)
	}))
	defer server.Close()

	adapter := newTestAdapter(server.URL)
	_, err := adapter.Query(context.Background(), &providers.QueryRequest{Model: "claude-sonnet", Prompt: "hi"})
	require.Error(t, err)
	assert.Equal(t, models.FailureInvalidModel, providers.FailureKindOf(err))
}

func TestQuery_RetriesServerErrors(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			http.Error(w, "upstream exploded", http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"content": "recovered"}},
			},
			"usage": map[string]interface{}{"prompt_tokens": 1, "completion_tokens": 1},
		})
	}))
	defer server.Close()

	adapter := newTestAdapter(server.URL)
	resp, err := adapter.Query(context.Background(), &providers.QueryRequest{Model: "claude-sonnet", Prompt: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "recovered", resp.Content)
	assert.Equal(t, 2, attempts)
}

func TestQuery_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Drain the body so the server watches the connection and cancels
		// r.Context() when the client disconnects; otherwise this blocks
		// forever and the deferred Close deadlocks.
		_, _ = io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	}))
	defer server.Close()

	adapter := newTestAdapter(server.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := adapter.Query(ctx, &providers.QueryRequest{Model: "claude-sonnet", Prompt: "hi"})
	require.Error(t, err)
	assert.Equal(t, models.FailureTimeout, providers.FailureKindOf(err))
}

func TestQuery_EmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"choices": []interface{}{}})
	}))
	defer server.Close()

	adapter := newTestAdapter(server.URL)
	_, err := adapter.Query(context.Background(), &providers.QueryRequest{Model: "claude-sonnet", Prompt: "hi"})
	require.Error(t, err)
	assert.Equal(t, models.FailureTransport, providers.FailureKindOf(err))
}
