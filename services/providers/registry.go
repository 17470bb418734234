package providers

import (
	"errors"
	"sort"
	"sync"
)

var (
	// ErrModelNotFound is returned when no client serves a model
	ErrModelNotFound = errors.New("model not found")

	// ErrModelAlreadyRegistered is returned on duplicate registration
	ErrModelAlreadyRegistered = errors.New("model already registered")
)

// estimatedCompletionTokens is assumed when a request does not bound its
// output; cost estimates must err on the side of reserving too much.
const estimatedCompletionTokens = 500

// Registry maps model identifiers to the client that serves them and to
// their pricing metadata.
type Registry struct {
	mu      sync.RWMutex
	clients map[string]ModelClient
	infos   map[string]*ModelInfo
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		clients: make(map[string]ModelClient),
		infos:   make(map[string]*ModelInfo),
	}
}

// Register binds a model to the client that serves it
func (r *Registry) Register(info *ModelInfo, client ModelClient) error {
	if info == nil || info.ID == "" {
		return errors.New("model info with ID is required")
	}
	if client == nil {
		return errors.New("client cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.infos[info.ID]; exists {
		return ErrModelAlreadyRegistered
	}
	r.infos[info.ID] = info
	r.clients[info.ID] = client
	return nil
}

// ClientFor returns the client serving a model
func (r *Registry) ClientFor(model string) (ModelClient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	client, exists := r.clients[model]
	if !exists {
		return nil, ErrModelNotFound
	}
	return client, nil
}

// Info returns the metadata for a model
func (r *Registry) Info(model string) (*ModelInfo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	info, exists := r.infos[model]
	if !exists {
		return nil, ErrModelNotFound
	}
	return info, nil
}

// Has reports whether a model is registered
func (r *Registry) Has(model string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.infos[model]
	return ok
}

// ListModels returns all registered model identifiers, ordered by tier
// (cheap first) then by ID.
func (r *Registry) ListModels() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.infos))
	for id := range r.infos {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := r.infos[ids[i]], r.infos[ids[j]]
		if a.Tier != b.Tier {
			return a.Tier < b.Tier
		}
		return a.ID < b.ID
	})
	return ids
}

// EstimateCost computes the price estimate for a request from the model's
// per-token rates: prompt size plus the bounded (or assumed) completion.
// Evaluated before any network call is issued.
func (r *Registry) EstimateCost(req *QueryRequest) (float64, error) {
	info, err := r.Info(req.Model)
	if err != nil {
		return 0, err
	}

	promptTokens := EstimateTokens(req.Prompt)
	completionTokens := req.Options.MaxOutputTokens
	if completionTokens == 0 {
		completionTokens = estimatedCompletionTokens
	}

	promptCost := float64(promptTokens) * info.PricingPerPromptToken
	completionCost := float64(completionTokens) * info.PricingPerCompletionToken
	return promptCost + completionCost, nil
}

// EstimateTokens approximates token count from text length
// (4 chars per token average).
func EstimateTokens(text string) int {
	return len(text) / 4
}
