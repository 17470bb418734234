package strategy

import (
	"context"
	"sync"

	"github.com/upb/llm-orchestrator/models"
	"go.uber.org/zap"
)

// executeCouncil queries the council models concurrently and merges their
// outputs. All reservations are taken before any call is issued, so a
// budget refusal means zero network calls. Council members are independent:
// a member's failure never cancels its siblings, and the council succeeds
// as long as at least one member does.
func (e *Engine) executeCouncil(ctx context.Context, task models.Task, cls models.Classification) (*models.StrategyResult, error) {
	roster := e.cfg.CouncilModels

	calls := make([]*preparedCall, 0, len(roster))
	for _, model := range roster {
		call, err := e.prepare(model, task, cls)
		if err != nil {
			for _, made := range calls {
				made.abandon()
			}
			return nil, err
		}
		calls = append(calls, call)
	}

	e.logger.Info("executing council strategy",
		zap.Strings("models", roster),
		zap.Duration("per_call_timeout", e.cfg.ParallelTimeout))

	invocations := make([]models.Invocation, len(calls))
	var wg sync.WaitGroup
	for i, call := range calls {
		wg.Add(1)
		go func(i int, call *preparedCall) {
			defer wg.Done()
			callCtx, cancel := context.WithTimeout(ctx, e.cfg.ParallelTimeout)
			defer cancel()
			invocations[i] = e.perform(callCtx, call)
		}(i, call)
	}
	wg.Wait()

	succeeded := 0
	for _, inv := range invocations {
		if inv.Succeeded() {
			succeeded++
		}
	}
	if succeeded == 0 {
		return nil, allFailedError(models.StrategyCouncil, invocations)
	}

	e.logger.Info("council completed",
		zap.Int("succeeded", succeeded),
		zap.Int("total", len(invocations)))

	return &models.StrategyResult{
		Strategy:    models.StrategyCouncil,
		Invocations: invocations,
		Content:     e.synth.Synthesize(invocations),
		TotalCost:   totalCost(invocations),
	}, nil
}
