package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/lehelkovach/osl-agent-prototype-sub000/application/commands"
	"github.com/lehelkovach/osl-agent-prototype-sub000/application/mediator"
	"github.com/lehelkovach/osl-agent-prototype-sub000/domain/core/valueobjects"
	"github.com/lehelkovach/osl-agent-prototype-sub000/internal/auth"
	"github.com/lehelkovach/osl-agent-prototype-sub000/pkg/api"

	"go.uber.org/zap"
)

// ChatHandler handles the agent's sole write endpoint: POST /chat.
type ChatHandler struct {
	mediator mediator.IMediator
	logger   *zap.Logger
}

// NewChatHandler creates a chat handler.
func NewChatHandler(mediator mediator.IMediator, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{mediator: mediator, logger: logger}
}

type chatRequest struct {
	Text string `json:"text"`
}

type chatResponse struct {
	TraceID string `json:"trace_id"`
	Status  string `json:"status"`
}

// Dispatch handles POST /chat: it mints a trace id, dispatches the request
// to the agent loop through the mediator, and returns immediately with a
// pending status. The caller polls GET /runs/{trace_id} for the outcome.
func (h *ChatHandler) Dispatch(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Text == "" {
		api.Error(w, http.StatusBadRequest, "text is required")
		return
	}

	userID := ""
	if userCtx, err := auth.GetUserFromContext(r.Context()); err == nil {
		userID = userCtx.UserID
	}

	traceID := valueobjects.NewTraceID().String()

	cmd := commands.DispatchAgentRequestCommand{TraceID: traceID, Text: req.Text, UserID: userID}
	if err := h.mediator.Send(r.Context(), cmd); err != nil {
		h.logger.Error("failed to dispatch agent request", zap.String("trace_id", traceID), zap.Error(err))
		api.Error(w, http.StatusInternalServerError, "failed to dispatch request")
		return
	}

	api.Success(w, http.StatusAccepted, chatResponse{TraceID: traceID, Status: "pending"})
}
