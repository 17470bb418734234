package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/upb/llm-orchestrator/models"
	"github.com/upb/llm-orchestrator/services/providers"
)

const defaultBaseURL = "https://openrouter.ai/api/v1"

// Config holds adapter configuration
type Config struct {
	// APIKey for authentication
	APIKey string

	// BaseURL for the API (optional override)
	BaseURL string

	// Timeout for requests
	Timeout time.Duration

	// MaxRetries for failed requests (5xx and transport errors only)
	MaxRetries int

	// RetryDelay between retries
	RetryDelay time.Duration

	// ModelNames maps catalog model IDs to OpenRouter route names.
	// Unmapped IDs are sent as-is.
	ModelNames map[string]string
}

// Adapter implements providers.ModelClient against the OpenRouter API
type Adapter struct {
	config     Config
	httpClient *http.Client
}

// New creates a new OpenRouter adapter
func New(config Config) *Adapter {
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}
	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}
	if config.RetryDelay == 0 {
		config.RetryDelay = time.Second
	}
	return &Adapter{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
	}
}

// chatRequest is the wire format for a completion request
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
	Reasoning   *reasoning    `json:"reasoning,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type reasoning struct {
	Effort    string `json:"effort,omitempty"`
	MaxTokens int    `json:"max_tokens,omitempty"`
}

// chatResponse is the wire format for a completion response
type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int     `json:"prompt_tokens"`
		CompletionTokens int     `json:"completion_tokens"`
		TotalCost        float64 `json:"total_cost,omitempty"`
	} `json:"usage"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Query sends a prompt to the model and returns the typed outcome
func (a *Adapter) Query(ctx context.Context, req *providers.QueryRequest) (*providers.QueryResponse, error) {
	start := time.Now()

	body, err := json.Marshal(a.buildRequest(req))
	if err != nil {
		return nil, providers.NewModelError(req.Model, models.FailureTransport, "failed to marshal request", err)
	}

	httpResp, err := a.doWithRetry(ctx, req.Model, body)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, providers.NewModelError(req.Model, models.FailureTransport, "failed to read response", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, a.errorFromStatus(req.Model, httpResp.StatusCode, respBody)
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, providers.NewModelError(req.Model, models.FailureTransport, "failed to unmarshal response", err)
	}
	if parsed.Error != nil {
		return nil, a.errorFromStatus(req.Model, parsed.Error.Code, respBody)
	}
	if len(parsed.Choices) == 0 {
		return nil, providers.NewModelError(req.Model, models.FailureTransport, "response contained no choices", nil)
	}

	return &providers.QueryResponse{
		Content:   parsed.Choices[0].Message.Content,
		TokensIn:  parsed.Usage.PromptTokens,
		TokensOut: parsed.Usage.CompletionTokens,
		Cost:      parsed.Usage.TotalCost,
		Latency:   time.Since(start),
	}, nil
}

// buildRequest converts the unified request into the wire format
func (a *Adapter) buildRequest(req *providers.QueryRequest) chatRequest {
	model := req.Model
	if mapped, ok := a.config.ModelNames[model]; ok {
		model = mapped
	}

	out := chatRequest{
		Model:       model,
		Messages:    []chatMessage{{Role: "user", Content: req.Prompt}},
		MaxTokens:   req.Options.MaxOutputTokens,
		Temperature: req.Options.Temperature,
	}
	if req.Options.ReasoningEffort != "" || req.Options.ReasoningTokenBudget > 0 {
		out.Reasoning = &reasoning{
			Effort:    string(req.Options.ReasoningEffort),
			MaxTokens: req.Options.ReasoningTokenBudget,
		}
	}
	return out
}

// doWithRetry executes the HTTP call, retrying transport errors and 5xx
func (a *Adapter) doWithRetry(ctx context.Context, model string, body []byte) (*http.Response, error) {
	var resp *http.Response
	var lastErr error

	for attempt := 0; attempt <= a.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctxError(model, ctx.Err())
			case <-time.After(a.config.RetryDelay * time.Duration(attempt)):
			}
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
			a.config.BaseURL+"/chat/completions", bytes.NewReader(body))
		if err != nil {
			return nil, providers.NewModelError(model, models.FailureTransport, "failed to create request", err)
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("Authorization", "Bearer "+a.config.APIKey)

		resp, lastErr = a.httpClient.Do(httpReq)
		if lastErr == nil && resp.StatusCode < 500 {
			return resp, nil
		}
		if resp != nil {
			resp.Body.Close()
		}
		if ctx.Err() != nil {
			return nil, ctxError(model, ctx.Err())
		}
	}

	if lastErr != nil {
		return nil, providers.NewModelError(model, models.FailureTransport, "http request failed", lastErr)
	}
	return nil, providers.NewModelError(model, models.FailureTransport,
		fmt.Sprintf("server error after %d attempts", a.config.MaxRetries+1), nil)
}

// errorFromStatus maps an HTTP status to a typed model failure
func (a *Adapter) errorFromStatus(model string, status int, body []byte) error {
	msg := string(body)
	if len(msg) > 200 {
		msg = msg[:200]
	}
	switch {
	case status == http.StatusTooManyRequests:
		return providers.NewModelError(model, models.FailureRateLimited, "rate limited: "+msg, nil)
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return providers.NewModelError(model, models.FailureTimeout, "upstream timeout: "+msg, nil)
	case status == http.StatusNotFound || status == http.StatusBadRequest:
		return providers.NewModelError(model, models.FailureInvalidModel,
			fmt.Sprintf("request rejected (%d): %s", status, msg), nil)
	default:
		return providers.NewModelError(model, models.FailureTransport,
			fmt.Sprintf("unexpected status %d: %s", status, msg), nil)
	}
}

func ctxError(model string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return providers.NewModelError(model, models.FailureTimeout, "request timed out", err)
	}
	return providers.NewModelError(model, models.FailureTransport, "request canceled", err)
}
