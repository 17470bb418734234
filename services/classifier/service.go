package classifier

import (
	"regexp"

	"github.com/upb/llm-orchestrator/models"
	"go.uber.org/zap"
)

// categoryPatterns are the keyword signals for each task category.
// Compiled once; classification must be deterministic for identical input.
var categoryPatterns = map[models.Category][]*regexp.Regexp{
	models.CategoryDebugging: {
		regexp.MustCompile(`(?i)\b(fix|bug|error|issue|problem|broken|crash|fail|debug)\b`),
		regexp.MustCompile(`(?i)\b(not working|doesn't work|exception|traceback|stack trace)\b`),
	},
	models.CategoryRefactor: {
		regexp.MustCompile(`(?i)\b(refactor|restructure|reorganize|clean up|simplify)\b`),
		regexp.MustCompile(`(?i)\b(technical debt|code smell|duplicate|dry)\b`),
	},
	models.CategoryArchitecture: {
		regexp.MustCompile(`(?i)\b(architect|architecture|design|structure|pattern|system)\b`),
		regexp.MustCompile(`(?i)\b(microservice|monolith|layer|component|interface|scalability)\b`),
	},
	models.CategoryReview: {
		regexp.MustCompile(`(?i)\b(review|audit|critique|feedback|assess)\b`),
		regexp.MustCompile(`(?i)\b(code review|pull request|security audit)\b`),
	},
	models.CategoryComparison: {
		regexp.MustCompile(`(?i)\b(compare|versus|vs\.?|comparison|evaluate)\b`),
		regexp.MustCompile(`(?i)\b(trade-?offs?|pros and cons|alternatives|best approach|which is better)\b`),
	},
}

// categoryWeights are the base complexity contributions per category
var categoryWeights = map[models.Category]float64{
	models.CategoryGeneric:      0.40,
	models.CategoryReview:       0.45,
	models.CategoryRefactor:     0.50,
	models.CategoryDebugging:    0.55,
	models.CategoryComparison:   0.60,
	models.CategoryArchitecture: 0.70,
}

// complexityIndicators escalate the score when present in the task text
var complexityIndicators = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bconcurrent|concurrency|race condition\b`),
	regexp.MustCompile(`(?i)\bdistributed\b`),
	regexp.MustCompile(`(?i)\bsecurity\b`),
	regexp.MustCompile(`(?i)\bperformance|latency|throughput\b`),
	regexp.MustCompile(`(?i)\bcomplex|intricate|sophisticated\b`),
	regexp.MustCompile(`(?i)\bmigrat(e|ion)\b`),
}

const (
	// contextSizeNorm is the context length (in bytes) at which the
	// size term saturates
	contextSizeNorm = 8000

	// sizeTermMax bounds the normalized context-size contribution
	sizeTermMax = 0.20

	// indicatorStep is the per-indicator escalation, capped at indicatorMax
	indicatorStep = 0.05
	indicatorMax  = 0.15
)

// Config holds the strategy-selection cutoffs. The values are preserved
// from the source system as configurable parameters.
type Config struct {
	// SingleThreshold is the complexity at or below which a single call
	// suffices
	SingleThreshold float64

	// CouncilThreshold is the complexity at or above which the council
	// is convened
	CouncilThreshold float64
}

// DefaultConfig returns the default strategy cutoffs
func DefaultConfig() Config {
	return Config{
		SingleThreshold:  0.45,
		CouncilThreshold: 0.75,
	}
}

// Service scores a task's complexity and category from its description
// and optional code context.
type Service struct {
	cfg    Config
	logger *zap.Logger
}

// NewService creates a new classifier
func NewService(cfg Config, logger *zap.Logger) *Service {
	return &Service{cfg: cfg, logger: logger}
}

// Classify analyzes a task. Pure function of task content: no side
// effects, no failure modes; defaults to generic/mid-complexity when
// signals are absent.
func (s *Service) Classify(task models.Task) models.Classification {
	text := task.PromptText()

	category := detectCategory(text)
	complexity := s.scoreComplexity(text, category, len(task.FilePaths))

	cls := models.Classification{
		Complexity:          complexity,
		Category:            category,
		RecommendedStrategy: s.recommendStrategy(category, complexity),
	}

	s.logger.Debug("classified task",
		zap.String("category", string(cls.Category)),
		zap.Float64("complexity", cls.Complexity),
		zap.String("recommended_strategy", string(cls.RecommendedStrategy)))

	return cls
}

// detectCategory returns the category with the highest pattern hit count,
// or generic when nothing matches. Ties resolve in the stable order of
// models.Categories.
func detectCategory(text string) models.Category {
	best := models.CategoryGeneric
	bestScore := 0

	for _, category := range models.Categories() {
		patterns, ok := categoryPatterns[category]
		if !ok {
			continue
		}
		score := 0
		for _, p := range patterns {
			if p.MatchString(text) {
				score++
			}
		}
		if score > bestScore {
			best = category
			bestScore = score
		}
	}
	return best
}

// scoreComplexity combines the category weight, a normalized context-size
// term, file-count and keyword escalators, clipped to [0,1].
func (s *Service) scoreComplexity(text string, category models.Category, fileCount int) float64 {
	score := categoryWeights[category]

	sizeTerm := float64(len(text)) / contextSizeNorm * sizeTermMax
	if sizeTerm > sizeTermMax {
		sizeTerm = sizeTermMax
	}
	score += sizeTerm

	indicators := 0.0
	for _, p := range complexityIndicators {
		if p.MatchString(text) {
			indicators += indicatorStep
		}
	}
	if indicators > indicatorMax {
		indicators = indicatorMax
	}
	score += indicators

	if fileCount > 5 {
		score += 0.10
	} else if fileCount > 2 {
		score += 0.05
	}

	return clamp01(score)
}

// recommendStrategy encodes the strategy decision in the classification.
// Comparison tasks always benefit from multiple perspectives.
func (s *Service) recommendStrategy(category models.Category, complexity float64) models.Strategy {
	if category == models.CategoryComparison || complexity >= s.cfg.CouncilThreshold {
		return models.StrategyCouncil
	}
	if complexity <= s.cfg.SingleThreshold {
		return models.StrategySingle
	}
	return models.StrategyEscalation
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
