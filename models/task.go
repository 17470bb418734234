package models

import (
	"strings"
	"time"
)

// Task represents a coding/reasoning task submitted to the orchestrator.
// A Task is owned by the caller and immutable once submitted.
type Task struct {
	// Description is the natural-language description of the task
	Description string `json:"description"`

	// CodeContext holds relevant code snippets or file contents
	CodeContext string `json:"code_context,omitempty"`

	// FilePaths lists the files involved in the task
	FilePaths []string `json:"file_paths,omitempty"`

	// StrategyOverride forces a specific strategy instead of the
	// classifier's recommendation. Empty means auto-select.
	StrategyOverride string `json:"strategy,omitempty"`

	// ThinkingMode is an optional reasoning-budget hint. Empty means
	// derive from the task description or complexity.
	ThinkingMode ThinkingMode `json:"thinking_mode,omitempty"`

	// SubmittedAt records when the task was created
	SubmittedAt time.Time `json:"submitted_at,omitempty"`
}

// Validate checks that the task is well-formed
func (t Task) Validate() error {
	if strings.TrimSpace(t.Description) == "" {
		return ErrEmptyDescription
	}
	return nil
}

// PromptText returns the combined text used for classification and
// prompt rendering: description plus any code context.
func (t Task) PromptText() string {
	if t.CodeContext == "" {
		return t.Description
	}
	return t.Description + "\n" + t.CodeContext
}
