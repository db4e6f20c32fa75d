package events

import (
	"time"

	"github.com/lehelkovach/osl-agent-prototype-sub000/domain/core/valueobjects"
)

// QueueItemEnqueued is raised when a new item is appended to a Queue.
type QueueItemEnqueued struct {
	BaseEvent
	QueueID valueobjects.NodeID `json:"queue_id"`
	ItemID  valueobjects.NodeID `json:"item_id"`
}

func NewQueueItemEnqueued(queueID, itemID valueobjects.NodeID, timestamp time.Time) QueueItemEnqueued {
	return QueueItemEnqueued{
		BaseEvent: BaseEvent{
			AggregateID: queueID.String(),
			EventType:   TypeQueueItemEnqueued,
			Timestamp:   timestamp,
			Version:     1,
		},
		QueueID: queueID,
		ItemID:  itemID,
	}
}

// QueueItemStatusChanged is raised on every queue item lifecycle transition.
type QueueItemStatusChanged struct {
	BaseEvent
	ItemID    valueobjects.NodeID `json:"item_id"`
	OldStatus string              `json:"old_status"`
	NewStatus string              `json:"new_status"`
}

func NewQueueItemStatusChanged(itemID valueobjects.NodeID, oldStatus, newStatus string, timestamp time.Time) QueueItemStatusChanged {
	return QueueItemStatusChanged{
		BaseEvent: BaseEvent{
			AggregateID: itemID.String(),
			EventType:   TypeQueueItemStatusChanged,
			Timestamp:   timestamp,
			Version:     1,
		},
		ItemID:    itemID,
		OldStatus: oldStatus,
		NewStatus: newStatus,
	}
}

// ProcedureCreated is raised when a plan is validated and persisted as a
// reusable Procedure.
type ProcedureCreated struct {
	BaseEvent
	ProcedureID valueobjects.NodeID `json:"procedure_id"`
}

func NewProcedureCreated(id valueobjects.NodeID, timestamp time.Time) ProcedureCreated {
	return ProcedureCreated{
		BaseEvent: BaseEvent{
			AggregateID: id.String(),
			EventType:   TypeProcedureCreated,
			Timestamp:   timestamp,
			Version:     1,
		},
		ProcedureID: id,
	}
}

// ProcedureRunRecorded is raised once a ProcedureRun's step outcomes are
// finalized, whether or not the run originated from a named Procedure —
// every execution leaves a record (§9 open-question decision, see DESIGN.md).
type ProcedureRunRecorded struct {
	BaseEvent
	RunID       valueobjects.NodeID  `json:"run_id"`
	ProcedureID valueobjects.NodeID  `json:"procedure_id"`
	TraceID     valueobjects.TraceID `json:"trace_id"`
	Success     bool                 `json:"success"`
}

func NewProcedureRunRecorded(runID, procedureID valueobjects.NodeID, traceID valueobjects.TraceID, success bool, timestamp time.Time) ProcedureRunRecorded {
	return ProcedureRunRecorded{
		BaseEvent: BaseEvent{
			AggregateID: runID.String(),
			EventType:   TypeProcedureRunRecorded,
			Timestamp:   timestamp,
			Version:     1,
		},
		RunID:       runID,
		ProcedureID: procedureID,
		TraceID:     traceID,
		Success:     success,
	}
}
