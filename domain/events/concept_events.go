package events

import (
	"time"

	"github.com/lehelkovach/osl-agent-prototype-sub000/domain/core/valueobjects"
)

// ConceptCreated is raised when a new Concept or Prototype node is added to
// the knowledge graph.
type ConceptCreated struct {
	BaseEvent
	ConceptID valueobjects.NodeID `json:"concept_id"`
	Kind      string              `json:"kind"`
	TraceID   valueobjects.TraceID `json:"trace_id"`
}

func NewConceptCreated(id valueobjects.NodeID, kind string, traceID valueobjects.TraceID, timestamp time.Time) ConceptCreated {
	return ConceptCreated{
		BaseEvent: BaseEvent{
			AggregateID: id.String(),
			EventType:   TypeConceptCreated,
			Timestamp:   timestamp,
			Version:     1,
		},
		ConceptID: id,
		Kind:      kind,
		TraceID:   traceID,
	}
}

// ConceptPropertiesUpdated is raised when a concept's property bag changes.
type ConceptPropertiesUpdated struct {
	BaseEvent
	ConceptID valueobjects.NodeID `json:"concept_id"`
}

func NewConceptPropertiesUpdated(id valueobjects.NodeID, timestamp time.Time) ConceptPropertiesUpdated {
	return ConceptPropertiesUpdated{
		BaseEvent: BaseEvent{
			AggregateID: id.String(),
			EventType:   TypeConceptPropertiesUpdated,
			Timestamp:   timestamp,
			Version:     1,
		},
		ConceptID: id,
	}
}

// ConceptEmbeddingUpdated is raised when a concept's embedding vector is
// replaced, e.g. by centroid recomputation (replaces the positional
// NodeMoved event from the graph-layout domain this code was adapted from).
type ConceptEmbeddingUpdated struct {
	BaseEvent
	ConceptID valueobjects.NodeID `json:"concept_id"`
}

func NewConceptEmbeddingUpdated(id valueobjects.NodeID, timestamp time.Time) ConceptEmbeddingUpdated {
	return ConceptEmbeddingUpdated{
		BaseEvent: BaseEvent{
			AggregateID: id.String(),
			EventType:   TypeConceptEmbeddingUpdated,
			Timestamp:   timestamp,
			Version:     1,
		},
		ConceptID: id,
	}
}

// ConceptStatusChanged is raised on any status transition (draft, active,
// archived).
type ConceptStatusChanged struct {
	BaseEvent
	ConceptID valueobjects.NodeID `json:"concept_id"`
	OldStatus string              `json:"old_status"`
	NewStatus string              `json:"new_status"`
}

func NewConceptStatusChanged(id valueobjects.NodeID, oldStatus, newStatus string, timestamp time.Time) ConceptStatusChanged {
	return ConceptStatusChanged{
		BaseEvent: BaseEvent{
			AggregateID: id.String(),
			EventType:   TypeConceptStatusChanged,
			Timestamp:   timestamp,
			Version:     1,
		},
		ConceptID: id,
		OldStatus: oldStatus,
		NewStatus: newStatus,
	}
}

// ConceptArchived is raised when a concept is archived and its relationships
// are severed.
type ConceptArchived struct {
	BaseEvent
	ConceptID valueobjects.NodeID `json:"concept_id"`
}

func NewConceptArchived(id valueobjects.NodeID, timestamp time.Time) ConceptArchived {
	return ConceptArchived{
		BaseEvent: BaseEvent{
			AggregateID: id.String(),
			EventType:   TypeConceptArchived,
			Timestamp:   timestamp,
			Version:     1,
		},
		ConceptID: id,
	}
}

// ConceptsGeneralized is raised by the learning engine when a set of
// concepts is folded into a shared parent concept.
type ConceptsGeneralized struct {
	BaseEvent
	ParentConceptID valueobjects.NodeID   `json:"parent_concept_id"`
	MemberIDs       []valueobjects.NodeID `json:"member_ids"`
}

func NewConceptsGeneralized(parentID valueobjects.NodeID, memberIDs []valueobjects.NodeID, timestamp time.Time) ConceptsGeneralized {
	return ConceptsGeneralized{
		BaseEvent: BaseEvent{
			AggregateID: parentID.String(),
			EventType:   TypeConceptsGeneralized,
			Timestamp:   timestamp,
			Version:     1,
		},
		ParentConceptID: parentID,
		MemberIDs:       memberIDs,
	}
}
