package strategy

import (
	"context"
	"regexp"
	"strings"

	"github.com/upb/llm-orchestrator/models"
	"github.com/upb/llm-orchestrator/services"
	"go.uber.org/zap"
)

// hedgingMarkers flag responses that punt on the question. A hedged answer
// from a cheap model is escalated to a more capable one.
var hedgingMarkers = []string{
	"i'm not sure",
	"i am not sure",
	"i cannot determine",
	"it's unclear",
	"it is unclear",
	"without more context",
	"hard to say",
	"i don't have enough information",
}

// implementationTask matches descriptions that ask for code, for which a
// sufficient response must contain a code block.
var implementationTask = regexp.MustCompile(`(?i)\b(implement|write|create|add|fix|refactor)\b.*\b(code|function|method|class|test|script)\b`)

// executeEscalation climbs the ladder cheapest first, stopping at the first
// sufficient response. Failures fall through to the next rung. A budget
// refusal mid-ladder settles for the best response so far if one exists.
func (e *Engine) executeEscalation(ctx context.Context, task models.Task, cls models.Classification) (*models.StrategyResult, error) {
	ladder := e.cfg.EscalationLadder

	e.logger.Info("executing escalation strategy",
		zap.Strings("ladder", ladder))

	invocations := make([]models.Invocation, 0, len(ladder))
	lastSuccess := -1

	for rung, model := range ladder {
		call, err := e.prepare(model, task, cls)
		if err != nil {
			if services.IsBudgetError(err) && lastSuccess >= 0 {
				e.logger.Warn("escalation stopped by budget, settling for earlier response",
					zap.String("blocked_model", model),
					zap.String("chosen_model", invocations[lastSuccess].Model))
				break
			}
			return nil, err
		}

		inv := e.perform(ctx, call)
		invocations = append(invocations, inv)
		if !inv.Succeeded() {
			continue
		}
		lastSuccess = len(invocations) - 1

		if e.isSufficient(task, inv.Content) {
			e.logger.Info("escalation satisfied",
				zap.String("model", inv.Model),
				zap.Int("rung", rung))
			break
		}
		e.logger.Debug("response insufficient, escalating",
			zap.String("model", inv.Model),
			zap.Int("rung", rung))
	}

	if lastSuccess < 0 {
		return nil, allFailedError(models.StrategyEscalation, invocations)
	}

	return &models.StrategyResult{
		Strategy:    models.StrategyEscalation,
		Invocations: invocations,
		Content:     invocations[lastSuccess].Content,
		TotalCost:   totalCost(invocations),
	}, nil
}

// isSufficient decides whether a response settles the task or the ladder
// should climb to a more capable model.
func (e *Engine) isSufficient(task models.Task, content string) bool {
	if len(content) < e.cfg.SufficiencyMinLength {
		return false
	}

	lower := strings.ToLower(content)
	for _, marker := range hedgingMarkers {
		if strings.Contains(lower, marker) {
			return false
		}
	}

	if implementationTask.MatchString(task.Description) && !strings.Contains(content, "```") {
		return false
	}
	return true
}
