package websocket

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/lehelkovach/osl-agent-prototype-sub000/domain/events"
	"go.uber.org/zap"
)

// EventType represents WebSocket event types.
type EventType string

const (
	EventConnectionEstablished EventType = "CONNECTION_ESTABLISHED"
	EventPing                  EventType = "PING"
	EventPong                  EventType = "PONG"
	EventError                 EventType = "ERROR"

	EventConceptCreated      EventType = "CONCEPT_CREATED"
	EventConceptStatusChange EventType = "CONCEPT_STATUS_CHANGED"
	EventRelationshipCreated EventType = "RELATIONSHIP_CREATED"
	EventQueueItemChanged    EventType = "QUEUE_ITEM_STATUS_CHANGED"
	EventProcedureRunDone    EventType = "PROCEDURE_RUN_RECORDED"
)

// Broadcaster pushes domain events to the WebSocket clients of the user
// whose request raised them. None of the domain events carry a user id
// (unlike the node/edge events this was adapted from), so every method
// takes it as an explicit parameter supplied by the call site.
type Broadcaster struct {
	hub    *Hub
	logger *zap.Logger
}

// NewBroadcaster creates a new event broadcaster.
func NewBroadcaster(hub *Hub, logger *zap.Logger) *Broadcaster {
	return &Broadcaster{
		hub:    hub,
		logger: logger,
	}
}

// BroadcastConceptCreated broadcasts a concept creation event.
func (b *Broadcaster) BroadcastConceptCreated(userID string, event events.ConceptCreated) {
	data := map[string]interface{}{
		"conceptId": event.ConceptID.String(),
		"kind":      event.Kind,
		"traceId":   event.TraceID.String(),
		"createdAt": event.Timestamp.Format(time.RFC3339),
	}

	b.broadcastToUser(userID, EventConceptCreated, data)
}

// BroadcastConceptStatusChanged broadcasts a concept status transition.
func (b *Broadcaster) BroadcastConceptStatusChanged(userID string, event events.ConceptStatusChanged) {
	data := map[string]interface{}{
		"conceptId": event.ConceptID.String(),
		"oldStatus": event.OldStatus,
		"newStatus": event.NewStatus,
		"changedAt": event.Timestamp.Format(time.RFC3339),
	}

	b.broadcastToUser(userID, EventConceptStatusChange, data)
}

// BroadcastRelationshipCreated broadcasts a new edge between two concepts.
func (b *Broadcaster) BroadcastRelationshipCreated(userID string, event events.RelationshipCreated) {
	data := map[string]interface{}{
		"sourceId":  event.SourceID.String(),
		"targetId":  event.TargetID.String(),
		"relation":  event.Relation,
		"createdAt": event.Timestamp.Format(time.RFC3339),
	}

	b.broadcastToUser(userID, EventRelationshipCreated, data)
}

// BroadcastQueueItemStatusChanged broadcasts a queue item lifecycle
// transition.
func (b *Broadcaster) BroadcastQueueItemStatusChanged(userID string, event events.QueueItemStatusChanged) {
	data := map[string]interface{}{
		"itemId":    event.ItemID.String(),
		"oldStatus": event.OldStatus,
		"newStatus": event.NewStatus,
		"changedAt": event.Timestamp.Format(time.RFC3339),
	}

	b.broadcastToUser(userID, EventQueueItemChanged, data)
}

// BroadcastProcedureRunRecorded broadcasts a finished agent run, so a
// connected client can refresh instead of polling GET /runs/{trace_id}.
func (b *Broadcaster) BroadcastProcedureRunRecorded(userID string, event events.ProcedureRunRecorded) {
	data := map[string]interface{}{
		"runId":       event.RunID.String(),
		"procedureId": event.ProcedureID.String(),
		"traceId":     event.TraceID.String(),
		"success":     event.Success,
		"recordedAt":  event.Timestamp.Format(time.RFC3339),
	}

	b.broadcastToUser(userID, EventProcedureRunDone, data)
}

// BroadcastDomainEvent broadcasts any domain event that has a WebSocket
// representation, given the user id to route it to.
func (b *Broadcaster) BroadcastDomainEvent(userID string, event events.DomainEvent) {
	switch e := event.(type) {
	case events.ConceptCreated:
		b.BroadcastConceptCreated(userID, e)
	case events.ConceptStatusChanged:
		b.BroadcastConceptStatusChanged(userID, e)
	case events.RelationshipCreated:
		b.BroadcastRelationshipCreated(userID, e)
	case events.QueueItemStatusChanged:
		b.BroadcastQueueItemStatusChanged(userID, e)
	case events.ProcedureRunRecorded:
		b.BroadcastProcedureRunRecorded(userID, e)
	default:
		b.logger.Debug("Unknown event type, not broadcasting",
			zap.String("eventType", fmt.Sprintf("%T", event)),
		)
	}
}

// broadcastToUser sends a message to all connections of a specific user.
func (b *Broadcaster) broadcastToUser(userID string, eventType EventType, data interface{}) {
	if userID == "" {
		b.logger.Warn("Cannot broadcast to empty user ID",
			zap.String("eventType", string(eventType)),
		)
		return
	}

	err := b.hub.SendToUser(userID, string(eventType), data)
	if err != nil {
		b.logger.Error("Failed to broadcast event",
			zap.String("userID", userID),
			zap.String("eventType", string(eventType)),
			zap.Error(err),
		)
	} else {
		b.logger.Debug("Event broadcasted",
			zap.String("userID", userID),
			zap.String("eventType", string(eventType)),
		)
	}
}

// BroadcastError sends an error message to a user.
func (b *Broadcaster) BroadcastError(userID string, errorMessage string, details map[string]interface{}) {
	data := map[string]interface{}{
		"error":     errorMessage,
		"details":   details,
		"timestamp": time.Now().Unix(),
	}

	b.broadcastToUser(userID, EventError, data)
}

// BroadcastCustom sends a custom event to a user.
func (b *Broadcaster) BroadcastCustom(userID string, eventType string, data interface{}) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		b.logger.Error("Failed to marshal custom event data",
			zap.Error(err),
			zap.String("eventType", eventType),
		)
		return
	}

	var cleanData interface{}
	if err := json.Unmarshal(jsonData, &cleanData); err != nil {
		b.logger.Error("Failed to unmarshal custom event data",
			zap.Error(err),
			zap.String("eventType", eventType),
		)
		return
	}

	b.broadcastToUser(userID, EventType(eventType), cleanData)
}
