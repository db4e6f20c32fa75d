package valueobjects

import (
	"github.com/google/uuid"

	pkgerrors "github.com/lehelkovach/osl-agent-prototype-sub000/pkg/errors"
)

// NodeID identifies any node in the knowledge graph: a Prototype, a Concept,
// a PropertyDef, a Procedure, a QueueItem — every kind in the data model
// shares the same identifier space so edges can reference across kinds.
type NodeID struct {
	value string
}

// NewNodeID generates a fresh random node identifier.
func NewNodeID() NodeID {
	return NodeID{value: uuid.New().String()}
}

// NewNodeIDFromString validates and wraps an existing UUID string.
func NewNodeIDFromString(s string) (NodeID, error) {
	if s == "" {
		return NodeID{}, pkgerrors.NewValidationError("node id cannot be empty")
	}
	if _, err := uuid.Parse(s); err != nil {
		return NodeID{}, pkgerrors.NewValidationError("node id must be a valid uuid: " + err.Error())
	}
	return NodeID{value: s}, nil
}

func (id NodeID) String() string   { return id.value }
func (id NodeID) IsZero() bool     { return id.value == "" }
func (id NodeID) Equals(o NodeID) bool { return id.value == o.value }

// EdgeID identifies an edge between two nodes.
type EdgeID struct {
	value string
}

func NewEdgeID() EdgeID {
	return EdgeID{value: uuid.New().String()}
}

func NewEdgeIDFromString(s string) (EdgeID, error) {
	if s == "" {
		return EdgeID{}, pkgerrors.NewValidationError("edge id cannot be empty")
	}
	return EdgeID{value: s}, nil
}

func (id EdgeID) String() string    { return id.value }
func (id EdgeID) IsZero() bool      { return id.value == "" }
func (id EdgeID) Equals(o EdgeID) bool { return id.value == o.value }

// TraceID threads a single user request through plan, run and knowledge
// records (§7). It is a plain string rather than a UUID wrapper because
// callers (the HTTP layer, tool adapters) frequently supply their own.
type TraceID string

func NewTraceID() TraceID {
	return TraceID(uuid.New().String())
}

func (t TraceID) String() string { return string(t) }
func (t TraceID) IsZero() bool   { return t == "" }
