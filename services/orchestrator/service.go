package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/upb/llm-orchestrator/models"
	"github.com/upb/llm-orchestrator/services"
	"github.com/upb/llm-orchestrator/services/ledger"
	"github.com/upb/llm-orchestrator/services/providers"
	"go.uber.org/zap"
)

// Classifier analyzes a task
type Classifier interface {
	Classify(task models.Task) models.Classification
}

// Executor runs a strategy against a task
type Executor interface {
	Execute(ctx context.Context, strategy models.Strategy, task models.Task, cls models.Classification) (*models.StrategyResult, error)
}

// Service is the single entry point for task orchestration. It validates
// the task, resolves the strategy (override or classifier recommendation),
// executes it and packages the outcome.
type Service struct {
	classifier Classifier
	engine     Executor
	registry   *providers.Registry
	ledger     *ledger.Service
	logger     *zap.Logger
}

// NewService creates the orchestrator facade
func NewService(classifier Classifier, engine Executor, registry *providers.Registry, ldg *ledger.Service, logger *zap.Logger) *Service {
	return &Service{
		classifier: classifier,
		engine:     engine,
		registry:   registry,
		ledger:     ldg,
		logger:     logger,
	}
}

// Orchestrate processes a task end to end
func (s *Service) Orchestrate(ctx context.Context, task models.Task) (*models.Result, error) {
	if err := task.Validate(); err != nil {
		return nil, services.NewDomainError(services.ErrorTypeValidation, err.Error(), err)
	}

	// An override naming an unknown strategy is rejected before any
	// classification work happens.
	var override models.Strategy
	if task.StrategyOverride != "" {
		override = models.Strategy(task.StrategyOverride)
		if !override.Valid() {
			return nil, services.NewDomainError(services.ErrorTypeInvalidStrategy,
				fmt.Sprintf("unknown strategy %q", task.StrategyOverride), nil)
		}
	}

	if task.SubmittedAt.IsZero() {
		task.SubmittedAt = time.Now()
	}

	cls := s.classifier.Classify(task)

	strategy := cls.RecommendedStrategy
	if override != "" {
		strategy = override
	}

	s.logger.Info("orchestrating task",
		zap.String("category", string(cls.Category)),
		zap.Float64("complexity", cls.Complexity),
		zap.String("strategy", string(strategy)),
		zap.Bool("overridden", override != ""))

	result, err := s.engine.Execute(ctx, strategy, task, cls)
	if err != nil {
		s.logger.Error("strategy execution failed",
			zap.String("strategy", string(strategy)),
			zap.Error(err))
		return nil, err
	}

	return &models.Result{
		Content:    result.Content,
		Cost:       result.TotalCost,
		ModelsUsed: result.ModelsUsed(),
		Strategy:   result.Strategy,
		Duration:   time.Since(task.SubmittedAt),
	}, nil
}

// Analyze classifies a task without executing it
func (s *Service) Analyze(task models.Task) (*models.Classification, error) {
	if err := task.Validate(); err != nil {
		return nil, services.NewDomainError(services.ErrorTypeValidation, err.Error(), err)
	}
	cls := s.classifier.Classify(task)
	return &cls, nil
}

// Status reports the orchestrator's operational state
type Status struct {
	Models     []string          `json:"models"`
	Strategies []models.Strategy `json:"strategies"`
	Budget     BudgetStatus      `json:"budget"`
}

// BudgetStatus reports current spend against the configured limits
type BudgetStatus struct {
	SpentToday      float64 `json:"spent_today"`
	DailyLimit      float64 `json:"daily_limit"`
	Remaining       float64 `json:"remaining"`
	PerRequestLimit float64 `json:"per_request_limit"`
}

// Status returns the registered models, known strategies and budget state
func (s *Service) Status() Status {
	cfg := s.ledger.Config()
	return Status{
		Models:     s.registry.ListModels(),
		Strategies: models.Strategies(),
		Budget: BudgetStatus{
			SpentToday:      s.ledger.Total(),
			DailyLimit:      cfg.DailyLimit,
			Remaining:       s.ledger.Remaining(),
			PerRequestLimit: cfg.PerRequestLimit,
		},
	}
}
