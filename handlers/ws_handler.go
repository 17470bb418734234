package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/upb/llm-orchestrator/models"
	"github.com/upb/llm-orchestrator/services"
	"github.com/upb/llm-orchestrator/utils"
	"go.uber.org/zap"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsMaxMessage   = 1 << 20 // 1 MiB
)

// WSRequest is an inbound websocket message. ID correlates the response.
type WSRequest struct {
	ID      string          `json:"id,omitempty"`
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// WSResponse is an outbound websocket message
type WSResponse struct {
	ID    string      `json:"id,omitempty"`
	OK    bool        `json:"ok"`
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
}

// WSHandler bridges the orchestrator over a websocket connection. Clients
// send one request at a time; requests on a connection are served in order.
type WSHandler struct {
	service  OrchestratorService
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewWSHandler creates a new WSHandler
func NewWSHandler(service OrchestratorService, logger *zap.Logger) *WSHandler {
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

// HandleWS handles GET /ws
func (h *WSHandler) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()
	conn.SetReadLimit(wsMaxMessage)

	h.logger.Info("websocket client connected",
		zap.String("remote", conn.RemoteAddr().String()))

	for {
		var req WSRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("websocket read failed", zap.Error(err))
			}
			return
		}

		resp := h.dispatch(r, req)
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := conn.WriteJSON(resp); err != nil {
			h.logger.Warn("websocket write failed", zap.Error(err))
			return
		}
	}
}

// dispatch routes one websocket request to the service
func (h *WSHandler) dispatch(r *http.Request, req WSRequest) WSResponse {
	switch req.Action {
	case "orchestrate":
		task, err := h.decodeTask(req.Payload)
		if err != nil {
			return wsError(req.ID, err)
		}
		result, err := h.service.Orchestrate(r.Context(), task)
		if err != nil {
			return wsError(req.ID, err)
		}
		return WSResponse{ID: req.ID, OK: true, Data: OrchestrateResponse{
			Content:    result.Content,
			Cost:       result.Cost,
			ModelsUsed: result.ModelsUsed,
			Strategy:   string(result.Strategy),
		}}

	case "analyze":
		task, err := h.decodeTask(req.Payload)
		if err != nil {
			return wsError(req.ID, err)
		}
		cls, err := h.service.Analyze(task)
		if err != nil {
			return wsError(req.ID, err)
		}
		return WSResponse{ID: req.ID, OK: true, Data: AnalyzeResponse{
			Complexity:          cls.Complexity,
			Category:            string(cls.Category),
			RecommendedStrategy: string(cls.RecommendedStrategy),
		}}

	case "status":
		return WSResponse{ID: req.ID, OK: true, Data: h.service.Status()}

	default:
		return WSResponse{ID: req.ID, OK: false, Error: "unknown action: " + req.Action}
	}
}

// decodeTask parses and validates a task payload
func (h *WSHandler) decodeTask(payload json.RawMessage) (models.Task, error) {
	var req OrchestrateRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return models.Task{}, services.NewDomainError(services.ErrorTypeValidation, "invalid payload", err)
	}
	if err := utils.ValidateStruct(&req); err != nil {
		return models.Task{}, services.NewDomainError(services.ErrorTypeValidation, err.Error(), err)
	}
	return models.Task{
		Description:      req.Description,
		CodeContext:      req.CodeContext,
		FilePaths:        req.FilePaths,
		StrategyOverride: req.Strategy,
		ThinkingMode:     models.ThinkingMode(req.ThinkingMode),
	}, nil
}

func wsError(id string, err error) WSResponse {
	return WSResponse{ID: id, OK: false, Error: err.Error()}
}
