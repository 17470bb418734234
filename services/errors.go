package services

import (
	"errors"
	"fmt"
)

// ErrorType represents the type/category of error
type ErrorType string

const (
	ErrorTypeValidation      ErrorType = "validation"
	ErrorTypeInvalidStrategy ErrorType = "invalid_strategy"
	ErrorTypeBudget          ErrorType = "budget"
	ErrorTypeAllModelsFailed ErrorType = "all_models_failed"
	ErrorTypeRateLimit       ErrorType = "rate_limit"
	ErrorTypeTimeout         ErrorType = "timeout"
	ErrorTypeExternal        ErrorType = "external"
	ErrorTypeInternal        ErrorType = "internal"
)

// DomainError represents a structured error with additional context
type DomainError struct {
	Type    ErrorType
	Message string
	Err     error
	Details map[string]interface{}
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// WithDetail adds a detail to the error
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// NewDomainError creates a new domain error
func NewDomainError(errType ErrorType, message string, err error) *DomainError {
	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
		Details: make(map[string]interface{}),
	}
}

// Domain error variables

var (
	// Validation errors
	ErrEmptyTask    = NewDomainError(ErrorTypeValidation, "task description cannot be empty", nil)
	ErrInvalidInput = NewDomainError(ErrorTypeValidation, "invalid input", nil)

	// Strategy errors
	ErrInvalidStrategy = NewDomainError(ErrorTypeInvalidStrategy, "unknown strategy", nil)

	// Budget errors
	ErrBudgetExceeded         = NewDomainError(ErrorTypeBudget, "budget exceeded", nil)
	ErrDailyBudgetExceeded    = NewDomainError(ErrorTypeBudget, "daily budget exceeded", nil)
	ErrPerRequestCostExceeded = NewDomainError(ErrorTypeBudget, "cost per request limit exceeded", nil)

	// Execution errors
	ErrAllModelsFailed = NewDomainError(ErrorTypeAllModelsFailed, "all models failed", nil)

	// Per-invocation errors (recovered locally by strategies)
	ErrModelRateLimited = NewDomainError(ErrorTypeRateLimit, "model rate limited", nil)
	ErrModelTimeout     = NewDomainError(ErrorTypeTimeout, "model call timed out", nil)
	ErrModelUnavailable = NewDomainError(ErrorTypeExternal, "model unavailable", nil)
	ErrUnknownModel     = NewDomainError(ErrorTypeExternal, "unknown model", nil)

	// Internal errors
	ErrInternal = NewDomainError(ErrorTypeInternal, "internal error", nil)
)

// Error type checking helper functions

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return hasType(err, ErrorTypeValidation)
}

// IsInvalidStrategyError checks if an error is an invalid strategy error
func IsInvalidStrategyError(err error) bool {
	return hasType(err, ErrorTypeInvalidStrategy)
}

// IsBudgetError checks if an error is a budget error
func IsBudgetError(err error) bool {
	return hasType(err, ErrorTypeBudget)
}

// IsAllModelsFailedError checks if an error is a total exhaustion error
func IsAllModelsFailedError(err error) bool {
	return hasType(err, ErrorTypeAllModelsFailed)
}

// IsRateLimitError checks if an error is a rate limit error
func IsRateLimitError(err error) bool {
	return hasType(err, ErrorTypeRateLimit)
}

// IsTimeoutError checks if an error is a timeout error
func IsTimeoutError(err error) bool {
	return hasType(err, ErrorTypeTimeout)
}

// IsExternalError checks if an error is an external provider error
func IsExternalError(err error) bool {
	return hasType(err, ErrorTypeExternal)
}

func hasType(err error, t ErrorType) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type == t
	}
	return false
}

// GetErrorType returns the ErrorType of a domain error, or empty string
// if not a domain error
func GetErrorType(err error) ErrorType {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type
	}
	return ""
}

// WrapError wraps an error with additional context
func WrapError(errType ErrorType, message string, err error) error {
	return NewDomainError(errType, message, err)
}

// WrapInternal wraps an error as an internal error
func WrapInternal(message string, err error) error {
	return NewDomainError(ErrorTypeInternal, message, err)
}
