package models

import "time"

// FailureKind classifies why a model invocation failed
type FailureKind string

const (
	FailureRateLimited  FailureKind = "rate_limited"
	FailureTimeout      FailureKind = "timeout"
	FailureTransport    FailureKind = "transport"
	FailureInvalidModel FailureKind = "invalid_model"
)

// Invocation records a single call to a model. It is created per call,
// owned by the StrategyResult that produced it, and never mutated after
// completion.
type Invocation struct {
	// ID uniquely identifies the invocation
	ID string `json:"id"`

	// Model is the model identifier that was called
	Model string `json:"model"`

	// Prompt is the rendered prompt sent to the model
	Prompt string `json:"prompt"`

	// Options are the per-call parameters
	Options Options `json:"options"`

	// Outcome on success
	Content   string        `json:"content,omitempty"`
	TokensIn  int           `json:"tokens_in,omitempty"`
	TokensOut int           `json:"tokens_out,omitempty"`
	Cost      float64       `json:"cost"`
	Latency   time.Duration `json:"latency,omitempty"`

	// Outcome on failure
	Failure        FailureKind `json:"failure,omitempty"`
	FailureMessage string      `json:"failure_message,omitempty"`
}

// Succeeded reports whether the invocation produced content
func (inv Invocation) Succeeded() bool {
	return inv.Failure == ""
}

// StrategyResult is the outcome of one strategy run
type StrategyResult struct {
	// Strategy names the strategy that produced this result
	Strategy Strategy `json:"strategy"`

	// Invocations lists every attempted call, in order
	Invocations []Invocation `json:"invocations"`

	// Content is the synthesized answer
	Content string `json:"content"`

	// TotalCost is the sum of the succeeded invocations' costs
	TotalCost float64 `json:"total_cost"`
}

// Succeeded returns the invocations that produced content, in order
func (r *StrategyResult) Succeeded() []Invocation {
	out := make([]Invocation, 0, len(r.Invocations))
	for _, inv := range r.Invocations {
		if inv.Succeeded() {
			out = append(out, inv)
		}
	}
	return out
}

// ModelsUsed returns the model identifiers of the succeeded invocations
func (r *StrategyResult) ModelsUsed() []string {
	succeeded := r.Succeeded()
	models := make([]string, 0, len(succeeded))
	for _, inv := range succeeded {
		models = append(models, inv.Model)
	}
	return models
}

// Result is the caller-facing outcome of an orchestration
type Result struct {
	Content    string   `json:"content"`
	Cost       float64  `json:"cost"`
	ModelsUsed []string `json:"models_used"`
	Strategy   Strategy `json:"strategy"`

	// Duration is the wall-clock time from task submission to completion
	Duration time.Duration `json:"duration"`
}
