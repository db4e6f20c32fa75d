package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/lehelkovach/osl-agent-prototype-sub000/application/commands"
	bus "github.com/lehelkovach/osl-agent-prototype-sub000/application/commands/bus"
	"github.com/lehelkovach/osl-agent-prototype-sub000/application/ports"
	"github.com/lehelkovach/osl-agent-prototype-sub000/domain/core/valueobjects"
	"github.com/lehelkovach/osl-agent-prototype-sub000/domain/events"
	"github.com/lehelkovach/osl-agent-prototype-sub000/internal/agent"

	"go.uber.org/zap"
)

// DispatchAgentRequestHandler runs a dispatched request through the agent
// loop in the background and records its outcome in the operation store,
// so GET /runs/{trace_id} can poll it (§6.3). It also raises a
// ProcedureRunRecorded event once the run settles, for the EventBridge
// publisher and any local subscriber (e.g. the websocket broadcaster).
type DispatchAgentRequestHandler struct {
	loop           *agent.Loop
	operationStore ports.OperationStore
	events         ports.EventPublisher
	logger         *zap.Logger
}

// NewDispatchAgentRequestHandler creates a handler wired to the agent loop.
func NewDispatchAgentRequestHandler(loop *agent.Loop, operationStore ports.OperationStore, eventPublisher ports.EventPublisher, logger *zap.Logger) *DispatchAgentRequestHandler {
	return &DispatchAgentRequestHandler{loop: loop, operationStore: operationStore, events: eventPublisher, logger: logger}
}

// Handle stores a pending operation, then runs the loop asynchronously so
// the HTTP caller is not blocked on the full execution.
func (h *DispatchAgentRequestHandler) Handle(ctx context.Context, cmd bus.Command) error {
	c, ok := cmd.(commands.DispatchAgentRequestCommand)
	if !ok {
		return fmt.Errorf("unexpected command type %T", cmd)
	}

	now := time.Now()
	if err := h.operationStore.Store(ctx, &ports.OperationResult{
		OperationID: c.TraceID,
		Status:      ports.OperationStatusPending,
		StartedAt:   now,
		Metadata:    map[string]interface{}{"user_id": c.UserID},
	}); err != nil {
		return err
	}

	go h.run(c)
	return nil
}

func (h *DispatchAgentRequestHandler) run(c commands.DispatchAgentRequestCommand) {
	ctx := context.Background()
	traceID := valueobjects.TraceID(c.TraceID)

	result, err := h.loop.Run(ctx, agent.Request{Text: c.Text, UserID: c.UserID, TraceID: traceID})
	completedAt := time.Now()

	update := &ports.OperationResult{
		OperationID: c.TraceID,
		StartedAt:   completedAt,
		CompletedAt: &completedAt,
		Metadata:    map[string]interface{}{"user_id": c.UserID},
	}
	if err != nil {
		update.Status = ports.OperationStatusFailed
		update.Error = err.Error()
	} else {
		update.Status = ports.OperationStatusCompleted
		update.Result = result
	}

	if uerr := h.operationStore.Update(ctx, c.TraceID, update); uerr != nil {
		h.logger.Error("failed to record agent run outcome", zap.String("trace_id", c.TraceID), zap.Error(uerr))
	}

	if h.events != nil && result != nil {
		var procedureID valueobjects.NodeID
		if result.ProcedureID != nil {
			procedureID = *result.ProcedureID
		}
		event := events.NewProcedureRunRecorded(result.RunID, procedureID, traceID, err == nil && result.Status == agent.StatusSuccess, completedAt)
		if perr := h.events.Publish(ctx, event); perr != nil {
			h.logger.Warn("failed to publish run recorded event", zap.String("trace_id", c.TraceID), zap.Error(perr))
		}
	}
}
