package providers

// DefaultCatalog returns the built-in model catalog with per-token pricing.
// Tier orders the escalation ladder: 1 is the cheap/fast entry point.
func DefaultCatalog() []*ModelInfo {
	return []*ModelInfo{
		{
			ID:                        "claude-sonnet",
			Provider:                  "anthropic",
			Tier:                      1,
			ContextWindow:             200000,
			MaxOutputTokens:           8192,
			PricingPerPromptToken:     0.000003, // $3 per 1M tokens
			PricingPerCompletionToken: 0.000015, // $15 per 1M tokens
		},
		{
			ID:                        "gemini-pro",
			Provider:                  "google",
			Tier:                      2,
			ContextWindow:             1000000,
			MaxOutputTokens:           32768,
			PricingPerPromptToken:     0.00000125, // $1.25 per 1M tokens
			PricingPerCompletionToken: 0.00001,    // $10 per 1M tokens
		},
		{
			ID:                        "claude-opus",
			Provider:                  "anthropic",
			Tier:                      3,
			ContextWindow:             200000,
			MaxOutputTokens:           16384,
			PricingPerPromptToken:     0.000015, // $15 per 1M tokens
			PricingPerCompletionToken: 0.000075, // $75 per 1M tokens
		},
		{
			ID:                        "o3",
			Provider:                  "openai",
			Tier:                      4,
			ContextWindow:             200000,
			MaxOutputTokens:           100000,
			PricingPerPromptToken:     0.00001, // $10 per 1M tokens
			PricingPerCompletionToken: 0.00004, // $40 per 1M tokens
		},
	}
}
