package handlers

import (
	"context"
	"fmt"

	"github.com/lehelkovach/osl-agent-prototype-sub000/application/ports"
	"github.com/lehelkovach/osl-agent-prototype-sub000/application/queries"
	queriesbus "github.com/lehelkovach/osl-agent-prototype-sub000/application/queries/bus"
	"go.uber.org/zap"
)

// GetRunStatusHandler answers GetRunStatusQuery from the operation store
// every agent request is tracked in.
type GetRunStatusHandler struct {
	operationStore ports.OperationStore
	logger         *zap.Logger
}

// NewGetRunStatusHandler wires an operation store and logger.
func NewGetRunStatusHandler(operationStore ports.OperationStore, logger *zap.Logger) *GetRunStatusHandler {
	return &GetRunStatusHandler{operationStore: operationStore, logger: logger}
}

// Handle executes the run status query.
func (h *GetRunStatusHandler) Handle(ctx context.Context, query queriesbus.Query) (interface{}, error) {
	q, ok := query.(queries.GetRunStatusQuery)
	if !ok {
		return nil, fmt.Errorf("invalid query type")
	}

	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("invalid query: %w", err)
	}

	operation, err := h.operationStore.Get(ctx, q.TraceID)
	if err != nil {
		h.logger.Debug("run not found", zap.String("trace_id", q.TraceID), zap.Error(err))
		return nil, fmt.Errorf("run not found: %s", q.TraceID)
	}

	if userID, ok := operation.Metadata["user_id"].(string); ok {
		if userID != q.UserID {
			return nil, fmt.Errorf("run does not belong to user")
		}
	}

	result := &queries.RunStatusResult{
		TraceID:     operation.OperationID,
		Status:      string(operation.Status),
		StartedAt:   operation.StartedAt,
		CompletedAt: operation.CompletedAt,
		Result:      operation.Result,
		Error:       operation.Error,
		Metadata:    operation.Metadata,
	}

	h.logger.Debug("run status retrieved", zap.String("trace_id", q.TraceID), zap.String("status", result.Status))

	return result, nil
}
