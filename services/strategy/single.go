package strategy

import (
	"context"

	"github.com/upb/llm-orchestrator/models"
	"go.uber.org/zap"
)

// executeSingle issues one call to the model matched to the task category
func (e *Engine) executeSingle(ctx context.Context, task models.Task, cls models.Classification) (*models.StrategyResult, error) {
	model := e.cfg.DefaultModel
	if mapped, ok := e.cfg.CategoryModels[cls.Category]; ok {
		model = mapped
	}

	e.logger.Info("executing single strategy",
		zap.String("model", model),
		zap.String("category", string(cls.Category)))

	call, err := e.prepare(model, task, cls)
	if err != nil {
		return nil, err
	}

	inv := e.perform(ctx, call)
	invocations := []models.Invocation{inv}
	if !inv.Succeeded() {
		return nil, allFailedError(models.StrategySingle, invocations)
	}

	return &models.StrategyResult{
		Strategy:    models.StrategySingle,
		Invocations: invocations,
		Content:     e.synth.Synthesize(invocations),
		TotalCost:   totalCost(invocations),
	}, nil
}
