package providers

import (
	"context"
	"errors"
	"time"

	"github.com/upb/llm-orchestrator/models"
)

// ModelClient is the uniform capability to send a prompt to a named remote
// model. One implementation exists per provider; everything above this
// interface depends only on it, never on concrete provider types.
type ModelClient interface {
	// Query sends a prompt plus options to the model and returns content,
	// token counts, cost and latency, or a typed *ModelError.
	Query(ctx context.Context, req *QueryRequest) (*QueryResponse, error)
}

// QueryRequest is a single model call
type QueryRequest struct {
	// Model identifier (e.g. "claude-sonnet", "gemini-pro")
	Model string `json:"model"`

	// Prompt is the rendered prompt text
	Prompt string `json:"prompt"`

	// Options are the per-call parameters
	Options models.Options `json:"options"`
}

// QueryResponse is a successful model call outcome
type QueryResponse struct {
	Content   string        `json:"content"`
	TokensIn  int           `json:"tokens_in"`
	TokensOut int           `json:"tokens_out"`
	Cost      float64       `json:"cost"`
	Latency   time.Duration `json:"latency"`
}

// ModelInfo contains metadata and pricing for a model
type ModelInfo struct {
	// ID is the model identifier
	ID string `json:"id"`

	// Provider that serves this model
	Provider string `json:"provider"`

	// Tier orders models from cheap/fast (low) to capable (high).
	// The escalation strategy climbs this ordering.
	Tier int `json:"tier"`

	// ContextWindow size in tokens
	ContextWindow int `json:"context_window"`

	// MaxOutputTokens supported by the model
	MaxOutputTokens int `json:"max_output_tokens"`

	// Pricing per token (USD)
	PricingPerPromptToken     float64 `json:"pricing_per_prompt_token"`
	PricingPerCompletionToken float64 `json:"pricing_per_completion_token"`
}

// ModelError is a typed failure from a model call
type ModelError struct {
	// Model that failed
	Model string

	// Kind classifies the failure
	Kind models.FailureKind

	// Message is the failure description
	Message string

	// Cause is the underlying error
	Cause error
}

// Error implements the error interface
func (e *ModelError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap implements error unwrapping
func (e *ModelError) Unwrap() error {
	return e.Cause
}

// NewModelError creates a typed model failure
func NewModelError(model string, kind models.FailureKind, message string, cause error) *ModelError {
	return &ModelError{Model: model, Kind: kind, Message: message, Cause: cause}
}

// FailureKindOf extracts the failure kind from an error, defaulting to
// transport for untyped errors and timeout for context deadline errors.
func FailureKindOf(err error) models.FailureKind {
	if err == nil {
		return ""
	}
	var me *ModelError
	if errors.As(err, &me) {
		return me.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return models.FailureTimeout
	}
	return models.FailureTransport
}
