package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/upb/llm-orchestrator/middleware"
	"github.com/upb/llm-orchestrator/models"
	"github.com/upb/llm-orchestrator/services/orchestrator"
	"github.com/upb/llm-orchestrator/utils"
	"go.uber.org/zap"
)

// OrchestrateRequest represents a task submission
type OrchestrateRequest struct {
	Description  string   `json:"description" validate:"required"`
	CodeContext  string   `json:"code_context,omitempty"`
	FilePaths    []string `json:"file_paths,omitempty"`
	Strategy     string   `json:"strategy,omitempty" validate:"omitempty,oneof=single council escalation"`
	ThinkingMode string   `json:"thinking_mode,omitempty" validate:"omitempty,oneof=minimal low medium high max"`
}

// OrchestrateResponse represents the orchestration outcome
type OrchestrateResponse struct {
	Content    string   `json:"content"`
	Cost       float64  `json:"cost"`
	ModelsUsed []string `json:"models_used"`
	Strategy   string   `json:"strategy"`
	DurationMS int64    `json:"duration_ms"`
}

// AnalyzeResponse represents a classification without execution
type AnalyzeResponse struct {
	Complexity          float64 `json:"complexity"`
	Category            string  `json:"category"`
	RecommendedStrategy string  `json:"recommended_strategy"`
}

// OrchestratorService defines the interface for orchestration operations
type OrchestratorService interface {
	Orchestrate(ctx context.Context, task models.Task) (*models.Result, error)
	Analyze(task models.Task) (*models.Classification, error)
	Status() orchestrator.Status
}

// OrchestrateHandler handles orchestration HTTP requests
type OrchestrateHandler struct {
	service OrchestratorService
	logger  *zap.Logger
}

// NewOrchestrateHandler creates a new OrchestrateHandler
func NewOrchestrateHandler(service OrchestratorService, logger *zap.Logger) *OrchestrateHandler {
	return &OrchestrateHandler{
		service: service,
		logger:  logger,
	}
}

// HandleOrchestrate handles POST /api/v1/orchestrate
func (h *OrchestrateHandler) HandleOrchestrate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	task, ok := h.parseTask(w, r, requestID)
	if !ok {
		return
	}

	h.logger.Debug("processing orchestrate request",
		zap.String("request_id", requestID),
		zap.String("strategy_override", task.StrategyOverride))

	result, err := h.service.Orchestrate(ctx, task)
	if err != nil {
		h.logger.Error("orchestration failed",
			zap.String("request_id", requestID),
			zap.Error(err))
		HandleServiceError(w, err, h.logger)
		return
	}

	h.logger.Info("orchestration successful",
		zap.String("request_id", requestID),
		zap.String("strategy", string(result.Strategy)),
		zap.Strings("models_used", result.ModelsUsed),
		zap.Float64("cost", result.Cost),
		zap.Duration("duration", result.Duration))

	_ = utils.WriteOK(w, OrchestrateResponse{
		Content:    result.Content,
		Cost:       result.Cost,
		ModelsUsed: result.ModelsUsed,
		Strategy:   string(result.Strategy),
		DurationMS: result.Duration.Milliseconds(),
	})
}

// HandleAnalyze handles POST /api/v1/analyze
func (h *OrchestrateHandler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestIDFromContext(r.Context())

	task, ok := h.parseTask(w, r, requestID)
	if !ok {
		return
	}

	cls, err := h.service.Analyze(task)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, AnalyzeResponse{
		Complexity:          cls.Complexity,
		Category:            string(cls.Category),
		RecommendedStrategy: string(cls.RecommendedStrategy),
	})
}

// HandleStatus handles GET /api/v1/status
func (h *OrchestrateHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	_ = utils.WriteOK(w, h.service.Status())
}

// parseTask decodes and validates the request body into a task
func (h *OrchestrateHandler) parseTask(w http.ResponseWriter, r *http.Request, requestID string) (models.Task, bool) {
	var req OrchestrateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to parse request body",
			zap.String("request_id", requestID),
			zap.Error(err))
		_ = utils.WriteBadRequest(w, "Invalid request body", nil)
		return models.Task{}, false
	}

	if err := utils.ValidateStruct(&req); err != nil {
		h.logger.Warn("request validation failed",
			zap.String("request_id", requestID),
			zap.Error(err))
		HandleValidationError(w, err, h.logger)
		return models.Task{}, false
	}

	return models.Task{
		Description:      req.Description,
		CodeContext:      req.CodeContext,
		FilePaths:        req.FilePaths,
		StrategyOverride: req.Strategy,
		ThinkingMode:     models.ThinkingMode(req.ThinkingMode),
	}, true
}
