package queries

import (
	"errors"
	"time"
)

// GetRunStatusQuery retrieves the status of an agent request by trace id
// (§6.3 GET /runs/{trace_id}).
type GetRunStatusQuery struct {
	TraceID string `json:"trace_id"`
	UserID  string `json:"user_id"`
}

// Validate validates the query.
func (q GetRunStatusQuery) Validate() error {
	if q.TraceID == "" {
		return errors.New("trace id is required")
	}
	if q.UserID == "" {
		return errors.New("user id is required")
	}
	return nil
}

// RunStatusResult is the replayable view of an agent request: its
// operation-store bookkeeping plus the ProcedureRun it produced, once the
// Persist step of the agent loop has recorded one.
type RunStatusResult struct {
	TraceID     string                 `json:"trace_id"`
	Status      string                 `json:"status"`
	StartedAt   time.Time              `json:"started_at"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
	Result      interface{}            `json:"result,omitempty"`
	Error       string                 `json:"error,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}
