package models

import "errors"

// ErrEmptyDescription is returned when a task has no description
var ErrEmptyDescription = errors.New("task description cannot be empty")

// Category is the closed set of task categories the classifier can assign
type Category string

const (
	CategoryGeneric      Category = "generic"
	CategoryArchitecture Category = "architecture"
	CategoryDebugging    Category = "debugging"
	CategoryRefactor     Category = "refactor"
	CategoryReview       Category = "review"
	CategoryComparison   Category = "comparison"
)

// Categories lists all known categories in a stable order
func Categories() []Category {
	return []Category{
		CategoryGeneric,
		CategoryArchitecture,
		CategoryDebugging,
		CategoryRefactor,
		CategoryReview,
		CategoryComparison,
	}
}

// Classification is the deterministic analysis of a task. Identical task
// content always yields an identical Classification.
type Classification struct {
	// Complexity is a score in [0,1]
	Complexity float64 `json:"complexity"`

	// Category is the detected task category
	Category Category `json:"category"`

	// RecommendedStrategy encodes the strategy decision. The engine maps
	// it directly and never re-derives thresholds.
	RecommendedStrategy Strategy `json:"recommended_strategy"`
}

// Strategy is the closed set of orchestration strategies
type Strategy string

const (
	// StrategySingle issues one call to the model best matched to the
	// task category. Cheapest; default for low/medium complexity.
	StrategySingle Strategy = "single"

	// StrategyCouncil queries a fixed set of models concurrently and
	// merges their outputs.
	StrategyCouncil Strategy = "council"

	// StrategyEscalation queries models sequentially from cheap to
	// capable, stopping at the first sufficient response.
	StrategyEscalation Strategy = "escalation"
)

// Valid reports whether s names a known strategy
func (s Strategy) Valid() bool {
	switch s {
	case StrategySingle, StrategyCouncil, StrategyEscalation:
		return true
	}
	return false
}

// Strategies lists all known strategies in a stable order
func Strategies() []Strategy {
	return []Strategy{StrategySingle, StrategyCouncil, StrategyEscalation}
}
