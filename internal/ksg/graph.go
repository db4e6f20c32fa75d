// Package ksg implements the knowledge subsystem graph (C2): the
// in-process container of Concept nodes and weighted relationships that
// every other component reads and writes through.
package ksg

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lehelkovach/osl-agent-prototype-sub000/domain/config"
	"github.com/lehelkovach/osl-agent-prototype-sub000/domain/core/entities"
	"github.com/lehelkovach/osl-agent-prototype-sub000/domain/core/valueobjects"
	"github.com/lehelkovach/osl-agent-prototype-sub000/domain/events"
	pkgerrors "github.com/lehelkovach/osl-agent-prototype-sub000/pkg/errors"
)

// Relationship is an edge between two concepts in the graph.
type Relationship struct {
	ID            string
	SourceID      valueobjects.NodeID
	TargetID      valueobjects.NodeID
	Type          entities.RelationType
	Weight        float64
	Bidirectional bool
	CreatedAt     time.Time
}

// Graph is the aggregate root for the knowledge subsystem graph. It
// enforces the consistency boundaries listed in §5: per-UUID serialization
// is the caller's responsibility (internal/ksg.Store stripes a mutex keyed
// by concept id around these methods); Graph itself assumes single-writer
// access.
type Graph struct {
	concepts      map[valueobjects.NodeID]*entities.Concept
	relationships map[string]*Relationship
	config        *config.DomainConfig
	events        []events.DomainEvent
}

// NewGraph creates an empty knowledge graph with the default configuration.
func NewGraph() *Graph {
	return NewGraphWithConfig(config.DefaultDomainConfig())
}

// NewGraphWithConfig creates an empty knowledge graph with an explicit
// configuration.
func NewGraphWithConfig(cfg *config.DomainConfig) *Graph {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	return &Graph{
		concepts:      make(map[valueobjects.NodeID]*entities.Concept),
		relationships: make(map[string]*Relationship),
		config:        cfg,
		events:        []events.DomainEvent{},
	}
}

// AddConcept inserts a newly created concept into the graph.
func (g *Graph) AddConcept(c *entities.Concept) error {
	if c == nil {
		return pkgerrors.NewValidationError("concept cannot be nil")
	}

	id := c.ID()
	if _, exists := g.concepts[id]; exists {
		return pkgerrors.NewConflictError("concept already exists in graph")
	}

	if len(g.concepts) >= g.config.MaxConceptsPerGraph {
		return fmt.Errorf("maximum concepts reached: %d", g.config.MaxConceptsPerGraph)
	}

	g.concepts[id] = c
	return nil
}

// LoadConcept inserts a concept reconstructed from persistence, bypassing
// duplicate and event-emission checks.
func (g *Graph) LoadConcept(c *entities.Concept) error {
	if c == nil {
		return pkgerrors.NewValidationError("concept cannot be nil")
	}
	if len(g.concepts) >= g.config.MaxConceptsPerGraph {
		return fmt.Errorf("maximum concepts reached: %d", g.config.MaxConceptsPerGraph)
	}
	g.concepts[c.ID()] = c
	return nil
}

// GetConcept retrieves a concept by id.
func (g *Graph) GetConcept(id valueobjects.NodeID) (*entities.Concept, error) {
	c, exists := g.concepts[id]
	if !exists {
		return nil, pkgerrors.NewNotFoundError("concept")
	}
	return c, nil
}

// HasConcept reports whether a concept exists without erroring.
func (g *Graph) HasConcept(id valueobjects.NodeID) bool {
	_, exists := g.concepts[id]
	return exists
}

// AllConcepts returns every concept in the graph. Callers filtering by kind
// or label should prefer Store.Search, which avoids building the full list.
func (g *Graph) AllConcepts() []*entities.Concept {
	out := make([]*entities.Concept, 0, len(g.concepts))
	for _, c := range g.concepts {
		out = append(out, c)
	}
	return out
}

// RemoveConcept archives a concept and severs every relationship touching it.
func (g *Graph) RemoveConcept(id valueobjects.NodeID) error {
	c, exists := g.concepts[id]
	if !exists {
		return pkgerrors.NewNotFoundError("concept")
	}

	if err := c.Archive(); err != nil {
		return err
	}

	for key, rel := range g.relationships {
		if rel.SourceID.Equals(id) || rel.TargetID.Equals(id) {
			delete(g.relationships, key)
		}
	}

	delete(g.concepts, id)
	return nil
}

// Connect creates a relationship between two existing concepts.
func (g *Graph) Connect(sourceID, targetID valueobjects.NodeID, relType entities.RelationType, weight float64) (*Relationship, error) {
	source, sourceExists := g.concepts[sourceID]
	_, targetExists := g.concepts[targetID]

	if !sourceExists || !targetExists {
		return nil, pkgerrors.NewValidationError("both concepts must exist in graph")
	}

	if sourceID.Equals(targetID) {
		return nil, pkgerrors.NewValidationError("cannot relate concept to itself")
	}

	key := relationshipKey(sourceID, targetID, relType)
	if _, exists := g.relationships[key]; exists {
		return nil, pkgerrors.NewConflictError("relationship already exists")
	}

	if len(g.relationships) >= g.config.MaxRelationshipsPerGraph {
		return nil, fmt.Errorf("maximum relationships reached: %d", g.config.MaxRelationshipsPerGraph)
	}

	rel := &Relationship{
		ID:        uuid.New().String(),
		SourceID:  sourceID,
		TargetID:  targetID,
		Type:      relType,
		Weight:    weight,
		CreatedAt: time.Now(),
	}

	if err := source.AddRelationshipWithConfig(targetID, relType, weight, g.config); err != nil {
		return nil, err
	}

	g.relationships[key] = rel
	return rel, nil
}

// LoadRelationship loads a relationship reconstructed from persistence.
func (g *Graph) LoadRelationship(rel *Relationship) error {
	if rel == nil {
		return pkgerrors.NewValidationError("relationship cannot be nil")
	}

	source, sourceExists := g.concepts[rel.SourceID]
	_, targetExists := g.concepts[rel.TargetID]
	if !sourceExists {
		return fmt.Errorf("source concept %s not found for relationship %s", rel.SourceID.String(), rel.ID)
	}
	if !targetExists {
		return fmt.Errorf("target concept %s not found for relationship %s", rel.TargetID.String(), rel.ID)
	}

	key := relationshipKey(rel.SourceID, rel.TargetID, rel.Type)
	if _, exists := g.relationships[key]; exists {
		return nil
	}

	if len(g.relationships) >= g.config.MaxRelationshipsPerGraph {
		return fmt.Errorf("cannot load relationship: maximum relationships reached (%d)", g.config.MaxRelationshipsPerGraph)
	}

	g.relationships[key] = rel

	if err := source.AddRelationshipWithConfig(rel.TargetID, rel.Type, rel.Weight, g.config); err != nil {
		delete(g.relationships, key)
		return fmt.Errorf("failed to update concept relationships: %w", err)
	}

	return nil
}

// Relationships returns every relationship in the graph.
func (g *Graph) Relationships() []*Relationship {
	out := make([]*Relationship, 0, len(g.relationships))
	for _, rel := range g.relationships {
		out = append(out, rel)
	}
	return out
}

// FindPath finds the shortest hop-path between two concepts using BFS.
func (g *Graph) FindPath(startID, endID valueobjects.NodeID) ([]valueobjects.NodeID, error) {
	if _, exists := g.concepts[startID]; !exists {
		return nil, pkgerrors.NewNotFoundError("start concept")
	}
	if _, exists := g.concepts[endID]; !exists {
		return nil, pkgerrors.NewNotFoundError("end concept")
	}

	if startID.Equals(endID) {
		return []valueobjects.NodeID{startID}, nil
	}

	visited := make(map[valueobjects.NodeID]bool)
	parent := make(map[valueobjects.NodeID]valueobjects.NodeID)
	queue := []valueobjects.NodeID{startID}
	visited[startID] = true

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, rel := range g.relationships {
			var next valueobjects.NodeID

			if rel.SourceID.Equals(current) {
				next = rel.TargetID
			} else if rel.Bidirectional && rel.TargetID.Equals(current) {
				next = rel.SourceID
			} else {
				continue
			}

			if !visited[next] {
				visited[next] = true
				parent[next] = current
				queue = append(queue, next)

				if next.Equals(endID) {
					path := []valueobjects.NodeID{}
					for n := endID; !n.IsZero(); n = parent[n] {
						path = append([]valueobjects.NodeID{n}, path...)
						if n.Equals(startID) {
							break
						}
					}
					return path, nil
				}
			}
		}
	}

	return nil, pkgerrors.NewNotFoundError("path between concepts")
}

// Validate ensures graph invariants hold: no relationship references a
// concept the graph does not hold.
func (g *Graph) Validate() error {
	for _, rel := range g.relationships {
		if _, exists := g.concepts[rel.SourceID]; !exists {
			return pkgerrors.NewValidationError("relationship references non-existent source concept")
		}
		if _, exists := g.concepts[rel.TargetID]; !exists {
			return pkgerrors.NewValidationError("relationship references non-existent target concept")
		}
	}
	return nil
}

// GetUncommittedEvents collects domain events from the graph and every
// concept it holds.
func (g *Graph) GetUncommittedEvents() []events.DomainEvent {
	all := make([]events.DomainEvent, len(g.events))
	copy(all, g.events)

	for _, c := range g.concepts {
		all = append(all, c.GetUncommittedEvents()...)
	}

	return all
}

// MarkEventsAsCommitted clears all uncommitted events.
func (g *Graph) MarkEventsAsCommitted() {
	g.events = []events.DomainEvent{}
	for _, c := range g.concepts {
		c.MarkEventsAsCommitted()
	}
}

func relationshipKey(sourceID, targetID valueobjects.NodeID, relType entities.RelationType) string {
	return sourceID.String() + "->" + targetID.String() + ":" + string(relType)
}
