package models

import "strings"

// ReasoningEffort bounds how much internal reasoning a model may spend
// before answering.
type ReasoningEffort string

const (
	EffortLow     ReasoningEffort = "low"
	EffortMedium  ReasoningEffort = "medium"
	EffortHigh    ReasoningEffort = "high"
	EffortMaximum ReasoningEffort = "maximum"
)

// Options holds the per-call model parameters
type Options struct {
	Temperature          float64         `json:"temperature,omitempty"`
	MaxOutputTokens      int             `json:"max_output_tokens,omitempty"`
	ReasoningEffort      ReasoningEffort `json:"reasoning_effort,omitempty"`
	ReasoningTokenBudget int             `json:"reasoning_token_budget,omitempty"`
}

// ThinkingMode controls reasoning depth and token budget for a task
type ThinkingMode string

const (
	ThinkingMinimal ThinkingMode = "minimal"
	ThinkingLow     ThinkingMode = "low"
	ThinkingMedium  ThinkingMode = "medium"
	ThinkingHigh    ThinkingMode = "high"
	ThinkingMax     ThinkingMode = "max"
)

// thinkingConfig maps each mode to its token budget, temperature and the
// reasoning effort passed to providers.
type thinkingConfig struct {
	tokenBudget int
	temperature float64
	effort      ReasoningEffort
}

var thinkingConfigs = map[ThinkingMode]thinkingConfig{
	ThinkingMinimal: {tokenBudget: 128, temperature: 0.1, effort: EffortLow},
	ThinkingLow:     {tokenBudget: 2048, temperature: 0.2, effort: EffortLow},
	ThinkingMedium:  {tokenBudget: 8192, temperature: 0.3, effort: EffortMedium},
	ThinkingHigh:    {tokenBudget: 16384, temperature: 0.4, effort: EffortHigh},
	ThinkingMax:     {tokenBudget: 32768, temperature: 0.5, effort: EffortMaximum},
}

// Valid reports whether m names a known thinking mode
func (m ThinkingMode) Valid() bool {
	_, ok := thinkingConfigs[m]
	return ok
}

// TokenBudget returns the reasoning token budget for the mode
func (m ThinkingMode) TokenBudget() int {
	return thinkingConfigs[m].tokenBudget
}

// Temperature returns the sampling temperature for the mode
func (m ThinkingMode) Temperature() float64 {
	return thinkingConfigs[m].temperature
}

// Effort returns the provider-facing reasoning effort for the mode
func (m ThinkingMode) Effort() ReasoningEffort {
	return thinkingConfigs[m].effort
}

// Options builds the per-call model options for the mode
func (m ThinkingMode) Options(maxOutputTokens int) Options {
	cfg := thinkingConfigs[m]
	return Options{
		Temperature:          cfg.temperature,
		MaxOutputTokens:      maxOutputTokens,
		ReasoningEffort:      cfg.effort,
		ReasoningTokenBudget: cfg.tokenBudget,
	}
}

// ParseThinkingMode extracts a thinking mode from natural language, e.g.
// "use minimal thinking" or "thinking mode max". Returns ThinkingMedium
// and false when no mode is mentioned.
func ParseThinkingMode(text string) (ThinkingMode, bool) {
	lower := strings.ToLower(text)

	for _, mode := range []ThinkingMode{ThinkingMinimal, ThinkingMax, ThinkingMedium, ThinkingHigh, ThinkingLow} {
		if strings.Contains(lower, string(mode)+" thinking") ||
			strings.Contains(lower, "thinking mode "+string(mode)) ||
			strings.Contains(lower, "thinking: "+string(mode)) {
			return mode, true
		}
	}

	switch {
	case containsAny(lower, "quick check", "trivial"):
		return ThinkingMinimal, true
	case containsAny(lower, "think deeper", "thorough analysis", "comprehensive analysis"):
		return ThinkingHigh, true
	case containsAny(lower, "exhaustive reasoning", "maximum reasoning"):
		return ThinkingMax, true
	}

	return ThinkingMedium, false
}

// ThinkingModeForComplexity maps a complexity score to a default mode
func ThinkingModeForComplexity(complexity float64) ThinkingMode {
	switch {
	case complexity < 0.2:
		return ThinkingMinimal
	case complexity < 0.4:
		return ThinkingLow
	case complexity < 0.6:
		return ThinkingMedium
	case complexity < 0.8:
		return ThinkingHigh
	default:
		return ThinkingMax
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
