package handlers

import (
	"errors"

	"net/http"

	"github.com/upb/llm-orchestrator/services"
	"github.com/upb/llm-orchestrator/utils"
	"go.uber.org/zap"
)

// HandleServiceError maps domain errors to HTTP responses
func HandleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if err == nil {
		return
	}

	var domainErr *services.DomainError
	var details map[string]interface{}
	if errors.As(err, &domainErr) {
		details = domainErr.Details
	}

	switch {
	case services.IsValidationError(err):
		if err := utils.WriteBadRequest(w, err.Error(), details); err != nil {
			logger.Error("failed to write bad request response", zap.Error(err))
		}

	case services.IsInvalidStrategyError(err):
		if err := utils.WriteBadRequest(w, err.Error(), details); err != nil {
			logger.Error("failed to write bad request response", zap.Error(err))
		}

	case services.IsBudgetError(err):
		// Budget refusals are 402 so clients can distinguish them from
		// rate limits.
		if err := utils.WritePaymentRequired(w, err.Error(), details); err != nil {
			logger.Error("failed to write budget error response", zap.Error(err))
		}

	case services.IsRateLimitError(err):
		if err := utils.WriteTooManyRequests(w, err.Error(), details); err != nil {
			logger.Error("failed to write rate limit response", zap.Error(err))
		}

	case services.IsTimeoutError(err):
		if err := utils.WriteGatewayTimeout(w, err.Error()); err != nil {
			logger.Error("failed to write timeout response", zap.Error(err))
		}

	case services.IsAllModelsFailedError(err), services.IsExternalError(err):
		if err := utils.WriteBadGateway(w, err.Error(), details); err != nil {
			logger.Error("failed to write bad gateway response", zap.Error(err))
		}

	default:
		logger.Error("unhandled error type",
			zap.Error(err),
			zap.String("error_type", string(services.GetErrorType(err))))
		if err := utils.WriteInternalServerError(w, "An unexpected error occurred"); err != nil {
			logger.Error("failed to write internal error response", zap.Error(err))
		}
	}
}

// HandleValidationError handles validation errors from request parsing
func HandleValidationError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if utils.IsValidationError(err) {
		fields := utils.GetValidationFields(err)
		details := make(map[string]interface{})
		for k, v := range fields {
			details[k] = v
		}
		if err := utils.WriteBadRequest(w, "Validation failed", details); err != nil {
			logger.Error("failed to write validation error response", zap.Error(err))
		}
		return
	}

	if err := utils.WriteBadRequest(w, err.Error(), nil); err != nil {
		logger.Error("failed to write validation error response", zap.Error(err))
	}
}
