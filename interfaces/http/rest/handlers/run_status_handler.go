package handlers

import (
	"net/http"

	"github.com/lehelkovach/osl-agent-prototype-sub000/application/mediator"
	"github.com/lehelkovach/osl-agent-prototype-sub000/application/queries"
	"github.com/lehelkovach/osl-agent-prototype-sub000/internal/auth"
	"github.com/lehelkovach/osl-agent-prototype-sub000/pkg/api"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// RunStatusHandler serves GET /runs/{trace_id} (§6.3), polling the
// operation store through the mediator's query side.
type RunStatusHandler struct {
	mediator mediator.IMediator
	logger   *zap.Logger
}

// NewRunStatusHandler creates a run status handler.
func NewRunStatusHandler(mediator mediator.IMediator, logger *zap.Logger) *RunStatusHandler {
	return &RunStatusHandler{mediator: mediator, logger: logger}
}

// GetRunStatus handles GET /runs/{trace_id}.
func (h *RunStatusHandler) GetRunStatus(w http.ResponseWriter, r *http.Request) {
	traceID := chi.URLParam(r, "trace_id")
	if traceID == "" {
		api.Error(w, http.StatusBadRequest, "trace id is required")
		return
	}

	userID := ""
	if userCtx, err := auth.GetUserFromContext(r.Context()); err == nil {
		userID = userCtx.UserID
	}

	result, err := h.mediator.Query(r.Context(), queries.GetRunStatusQuery{TraceID: traceID, UserID: userID})
	if err != nil {
		h.logger.Debug("failed to get run status", zap.String("trace_id", traceID), zap.Error(err))
		api.Error(w, http.StatusNotFound, "run not found")
		return
	}

	api.Success(w, http.StatusOK, result)
}
