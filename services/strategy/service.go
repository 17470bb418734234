package strategy

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/upb/llm-orchestrator/models"
	"github.com/upb/llm-orchestrator/services"
	"github.com/upb/llm-orchestrator/services/ledger"
	"github.com/upb/llm-orchestrator/services/providers"
	"go.uber.org/zap"
)

// Synthesizer merges successful invocations into one answer
type Synthesizer interface {
	Synthesize(invocations []models.Invocation) string
}

// Config holds the model rosters and tuning knobs for the strategies
type Config struct {
	// CouncilModels are queried concurrently by the council strategy
	CouncilModels []string

	// EscalationLadder lists models cheapest first; the escalation
	// strategy climbs it until a response is sufficient
	EscalationLadder []string

	// CategoryModels picks the single-strategy model per task category
	CategoryModels map[models.Category]string

	// DefaultModel serves single-strategy tasks with no category mapping
	DefaultModel string

	// ParallelTimeout bounds each individual council call
	ParallelTimeout time.Duration

	// SufficiencyMinLength is the minimum content length (in bytes) for
	// an escalation response to count as sufficient
	SufficiencyMinLength int

	// DefaultMaxOutputTokens caps completion size when the model's own
	// limit is higher
	DefaultMaxOutputTokens int
}

// DefaultConfig returns the default strategy configuration
func DefaultConfig() Config {
	return Config{
		CouncilModels:    []string{"claude-opus", "gemini-pro", "o3"},
		EscalationLadder: []string{"claude-sonnet", "gemini-pro", "claude-opus"},
		CategoryModels: map[models.Category]string{
			models.CategoryArchitecture: "claude-opus",
			models.CategoryDebugging:    "claude-sonnet",
			models.CategoryRefactor:     "claude-sonnet",
			models.CategoryReview:       "gemini-pro",
		},
		DefaultModel:           "claude-sonnet",
		ParallelTimeout:        120 * time.Second,
		SufficiencyMinLength:   200,
		DefaultMaxOutputTokens: 8192,
	}
}

// Engine executes orchestration strategies. Every model call goes through
// the same budget-gated path: estimate, reserve, query, then commit the
// actual cost or release the reservation.
type Engine struct {
	registry *providers.Registry
	ledger   *ledger.Service
	synth    Synthesizer
	cfg      Config
	logger   *zap.Logger
}

// NewEngine creates a strategy engine
func NewEngine(registry *providers.Registry, ldg *ledger.Service, synth Synthesizer, cfg Config, logger *zap.Logger) *Engine {
	return &Engine{
		registry: registry,
		ledger:   ldg,
		synth:    synth,
		cfg:      cfg,
		logger:   logger,
	}
}

// Execute runs the named strategy against the task
func (e *Engine) Execute(ctx context.Context, strategy models.Strategy, task models.Task, cls models.Classification) (*models.StrategyResult, error) {
	switch strategy {
	case models.StrategySingle:
		return e.executeSingle(ctx, task, cls)
	case models.StrategyCouncil:
		return e.executeCouncil(ctx, task, cls)
	case models.StrategyEscalation:
		return e.executeEscalation(ctx, task, cls)
	default:
		return nil, services.NewDomainError(services.ErrorTypeInvalidStrategy,
			fmt.Sprintf("unknown strategy %q", strategy), nil)
	}
}

// preparedCall is a model call that has passed the budget gate but has not
// been issued yet. Exactly one of perform or abandon must follow.
type preparedCall struct {
	req         *providers.QueryRequest
	client      providers.ModelClient
	provider    string
	reservation *ledger.Reservation
}

// prepare builds the request for one model, estimates its cost and reserves
// it against the budget. A non-nil error means no reservation was made and
// no call may be issued.
func (e *Engine) prepare(model string, task models.Task, cls models.Classification) (*preparedCall, error) {
	info, err := e.registry.Info(model)
	if err != nil {
		return nil, services.NewDomainError(services.ErrorTypeExternal,
			fmt.Sprintf("model %q is not registered", model), err)
	}
	client, err := e.registry.ClientFor(model)
	if err != nil {
		return nil, services.NewDomainError(services.ErrorTypeExternal,
			fmt.Sprintf("model %q has no client", model), err)
	}

	req := &providers.QueryRequest{
		Model:   model,
		Prompt:  task.PromptText(),
		Options: e.optionsFor(task, cls, info),
	}

	estimate, err := e.registry.EstimateCost(req)
	if err != nil {
		return nil, services.WrapInternal("failed to estimate cost", err)
	}
	reservation, err := e.ledger.Reserve(estimate)
	if err != nil {
		return nil, err
	}

	return &preparedCall{
		req:         req,
		client:      client,
		provider:    info.Provider,
		reservation: reservation,
	}, nil
}

// perform issues a prepared call and settles its reservation: commit with
// the actual billed cost on success, release on failure. Model failures are
// recorded on the invocation, never returned as errors.
func (e *Engine) perform(ctx context.Context, call *preparedCall) models.Invocation {
	inv := models.Invocation{
		ID:      uuid.New().String(),
		Model:   call.req.Model,
		Prompt:  call.req.Prompt,
		Options: call.req.Options,
	}

	resp, err := call.client.Query(ctx, call.req)
	if err != nil {
		call.reservation.Release()
		inv.Failure = providers.FailureKindOf(err)
		inv.FailureMessage = err.Error()
		e.logger.Warn("model invocation failed",
			zap.String("model", inv.Model),
			zap.String("failure", string(inv.Failure)),
			zap.Error(err))
		return inv
	}

	call.reservation.Commit(ctx, ledger.Transaction{
		RequestID: inv.ID,
		Model:     inv.Model,
		Provider:  call.provider,
		Cost:      resp.Cost,
		TokensIn:  resp.TokensIn,
		TokensOut: resp.TokensOut,
	})

	inv.Content = resp.Content
	inv.TokensIn = resp.TokensIn
	inv.TokensOut = resp.TokensOut
	inv.Cost = resp.Cost
	inv.Latency = resp.Latency

	e.logger.Debug("model invocation succeeded",
		zap.String("model", inv.Model),
		zap.Float64("cost", inv.Cost),
		zap.Duration("latency", inv.Latency))
	return inv
}

// abandon releases a reservation for a prepared call that will not be issued
func (call *preparedCall) abandon() {
	call.reservation.Release()
}

// optionsFor derives the per-call parameters. Explicit thinking mode wins,
// then a mode mentioned in the description, then the complexity default.
func (e *Engine) optionsFor(task models.Task, cls models.Classification, info *providers.ModelInfo) models.Options {
	mode := task.ThinkingMode
	if !mode.Valid() {
		if parsed, ok := models.ParseThinkingMode(task.Description); ok {
			mode = parsed
		} else {
			mode = models.ThinkingModeForComplexity(cls.Complexity)
		}
	}

	maxOut := e.cfg.DefaultMaxOutputTokens
	if info.MaxOutputTokens > 0 && info.MaxOutputTokens < maxOut {
		maxOut = info.MaxOutputTokens
	}
	return mode.Options(maxOut)
}

// totalCost sums the costs of the succeeded invocations
func totalCost(invocations []models.Invocation) float64 {
	var total float64
	for _, inv := range invocations {
		if inv.Succeeded() {
			total += inv.Cost
		}
	}
	return total
}

// allFailedError builds the terminal error when no invocation succeeded
func allFailedError(strategy models.Strategy, invocations []models.Invocation) error {
	failures := make(map[string]interface{}, len(invocations))
	for _, inv := range invocations {
		failures[inv.Model] = string(inv.Failure)
	}
	return services.NewDomainError(services.ErrorTypeAllModelsFailed,
		fmt.Sprintf("%s strategy: all %d model(s) failed", strategy, len(invocations)), nil).
		WithDetail("failures", failures)
}
