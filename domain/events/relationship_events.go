package events

import (
	"time"

	"github.com/lehelkovach/osl-agent-prototype-sub000/domain/core/valueobjects"
)

// RelationshipCreated is raised when an edge connects two nodes in the
// knowledge graph.
type RelationshipCreated struct {
	BaseEvent
	SourceID valueobjects.NodeID `json:"source_id"`
	TargetID valueobjects.NodeID `json:"target_id"`
	Relation string              `json:"relation"`
}

func NewRelationshipCreated(sourceID, targetID valueobjects.NodeID, relation string, timestamp time.Time) RelationshipCreated {
	return RelationshipCreated{
		BaseEvent: BaseEvent{
			AggregateID: sourceID.String(),
			EventType:   TypeRelationshipCreated,
			Timestamp:   timestamp,
			Version:     1,
		},
		SourceID: sourceID,
		TargetID: targetID,
		Relation: relation,
	}
}

// RelationshipRemoved is raised when an edge is deleted.
type RelationshipRemoved struct {
	BaseEvent
	SourceID valueobjects.NodeID `json:"source_id"`
	TargetID valueobjects.NodeID `json:"target_id"`
}

func NewRelationshipRemoved(sourceID, targetID valueobjects.NodeID, timestamp time.Time) RelationshipRemoved {
	return RelationshipRemoved{
		BaseEvent: BaseEvent{
			AggregateID: sourceID.String(),
			EventType:   TypeRelationshipRemoved,
			Timestamp:   timestamp,
			Version:     1,
		},
		SourceID: sourceID,
		TargetID: targetID,
	}
}

// RelationshipBoosted is raised whenever an edge's weight is boosted by an
// access (the `link`/`access`/`boost` algorithm: weight += Delta, clamped to
// WMax, and allowed to decay by Gamma per tick).
type RelationshipBoosted struct {
	BaseEvent
	SourceID  valueobjects.NodeID `json:"source_id"`
	TargetID  valueobjects.NodeID `json:"target_id"`
	NewWeight float64             `json:"new_weight"`
}

func NewRelationshipBoosted(sourceID, targetID valueobjects.NodeID, newWeight float64, timestamp time.Time) RelationshipBoosted {
	return RelationshipBoosted{
		BaseEvent: BaseEvent{
			AggregateID: sourceID.String(),
			EventType:   TypeRelationshipBoosted,
			Timestamp:   timestamp,
			Version:     1,
		},
		SourceID:  sourceID,
		TargetID:  targetID,
		NewWeight: newWeight,
	}
}
