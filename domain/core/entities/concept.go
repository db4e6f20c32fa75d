package entities

import (
	"fmt"
	"time"

	"github.com/lehelkovach/osl-agent-prototype-sub000/domain/config"
	"github.com/lehelkovach/osl-agent-prototype-sub000/domain/core/valueobjects"
	"github.com/lehelkovach/osl-agent-prototype-sub000/domain/events"
	pkgerrors "github.com/lehelkovach/osl-agent-prototype-sub000/pkg/errors"
)

// ConceptStatus represents the lifecycle state of a knowledge graph node.
type ConceptStatus string

const (
	StatusDraft     ConceptStatus = "draft"
	StatusActive    ConceptStatus = "active"
	StatusArchived  ConceptStatus = "archived"
)

// RelationshipRef is a lightweight reference to an outgoing relationship,
// carrying the boosted/decayed weight used by recall ranking.
type RelationshipRef struct {
	EdgeID   string
	TargetID valueobjects.NodeID
	Type     RelationType
	Weight   float64
}

// Concept is the central entity of the knowledge-subsystem graph (§3 Concept
// / Prototype). Every Prototype, Concept, PropertyDef, Procedure, and
// QueueItem in the data model is stored as a Concept distinguished by Kind;
// kind-specific behavior lives in the packages that own those semantics
// (internal/procedure, internal/taskqueue, ...), while this entity owns the
// invariants common to every node: identity, labels, properties, embedding,
// status, and relationships.
type Concept struct {
	id         valueobjects.NodeID
	kind       string
	labels     []string
	properties valueobjects.Properties
	embedding  valueobjects.Embedding
	provenance valueobjects.Provenance
	relationships []RelationshipRef
	createdAt  time.Time
	updatedAt  time.Time
	version    int
	status     ConceptStatus

	events []events.DomainEvent
}

// NewConcept creates a new Concept with full business-rule validation.
func NewConcept(kind string, labels []string, properties valueobjects.Properties, provenance valueobjects.Provenance) (*Concept, error) {
	if kind == "" {
		return nil, pkgerrors.NewValidationError("kind cannot be empty")
	}

	now := time.Now()
	c := &Concept{
		id:            valueobjects.NewNodeID(),
		kind:          kind,
		labels:        append([]string{}, labels...),
		properties:    properties,
		provenance:    provenance,
		relationships: []RelationshipRef{},
		createdAt:     now,
		updatedAt:     now,
		version:       1,
		status:        StatusDraft,
		events:        []events.DomainEvent{},
	}

	c.addEvent(events.NewConceptCreated(c.id, kind, provenance.TraceID(), now))

	return c, nil
}

// ReconstructConcept rebuilds a Concept from persisted state with preserved
// timestamps, bypassing event emission.
func ReconstructConcept(
	id valueobjects.NodeID,
	kind string,
	labels []string,
	properties valueobjects.Properties,
	embedding valueobjects.Embedding,
	provenance valueobjects.Provenance,
	status ConceptStatus,
	createdAt, updatedAt time.Time,
	version int,
) (*Concept, error) {
	if kind == "" {
		return nil, pkgerrors.NewValidationError("kind cannot be empty")
	}

	return &Concept{
		id:            id,
		kind:          kind,
		labels:        append([]string{}, labels...),
		properties:    properties,
		embedding:     embedding,
		provenance:    provenance,
		relationships: []RelationshipRef{},
		createdAt:     createdAt,
		updatedAt:     updatedAt,
		version:       version,
		status:        status,
		events:        []events.DomainEvent{},
	}, nil
}

func (c *Concept) ID() valueobjects.NodeID           { return c.id }
func (c *Concept) Kind() string                      { return c.kind }
func (c *Concept) Properties() valueobjects.Properties { return c.properties }
func (c *Concept) Embedding() valueobjects.Embedding { return c.embedding }
func (c *Concept) Provenance() valueobjects.Provenance { return c.provenance }
func (c *Concept) Status() ConceptStatus             { return c.status }
func (c *Concept) Version() int                      { return c.version }
func (c *Concept) CreatedAt() time.Time              { return c.createdAt }
func (c *Concept) UpdatedAt() time.Time              { return c.updatedAt }

// Labels returns a defensive copy of the concept's labels.
func (c *Concept) Labels() []string {
	out := make([]string, len(c.labels))
	copy(out, c.labels)
	return out
}

// UpdateProperties merges newProps into the concept's property bag,
// newProps winning on key collision (explicit merge, §9).
func (c *Concept) UpdateProperties(newProps valueobjects.Properties) error {
	if c.status == StatusArchived {
		return pkgerrors.NewValidationError("cannot update archived concept")
	}

	c.properties = c.properties.Merge(newProps)
	c.updatedAt = time.Now()
	c.version++

	c.addEvent(events.NewConceptPropertiesUpdated(c.id, c.updatedAt))

	return nil
}

// UpdateEmbedding replaces the concept's embedding, e.g. after centroid
// recomputation.
func (c *Concept) UpdateEmbedding(embedding valueobjects.Embedding) error {
	if c.status == StatusArchived {
		return pkgerrors.NewValidationError("cannot update archived concept")
	}

	if embedding.Equals(c.embedding) {
		return nil
	}

	c.embedding = embedding
	c.updatedAt = time.Now()

	c.addEvent(events.NewConceptEmbeddingUpdated(c.id, c.updatedAt))

	return nil
}

// AddRelationship creates a relationship to another node.
func (c *Concept) AddRelationship(targetID valueobjects.NodeID, relType RelationType, weight float64) error {
	return c.AddRelationshipWithConfig(targetID, relType, weight, config.DefaultDomainConfig())
}

// AddRelationshipWithConfig creates a relationship to another node with an
// explicit domain configuration.
func (c *Concept) AddRelationshipWithConfig(targetID valueobjects.NodeID, relType RelationType, weight float64, cfg *config.DomainConfig) error {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}

	if !cfg.AllowSelfRelationships && c.id.Equals(targetID) {
		return pkgerrors.NewValidationError("cannot relate concept to itself")
	}

	if !cfg.AllowDuplicateRelationships {
		for _, rel := range c.relationships {
			if rel.TargetID.Equals(targetID) && rel.Type == relType {
				return pkgerrors.NewConflictError("relationship already exists")
			}
		}
	}

	if len(c.relationships) >= cfg.MaxRelationshipsPerConcept {
		return fmt.Errorf("maximum relationships reached: %d", cfg.MaxRelationshipsPerConcept)
	}

	c.relationships = append(c.relationships, RelationshipRef{
		EdgeID:   valueobjects.NewEdgeID().String(),
		TargetID: targetID,
		Type:     relType,
		Weight:   weight,
	})
	c.updatedAt = time.Now()

	c.addEvent(events.NewRelationshipCreated(c.id, targetID, string(relType), c.updatedAt))

	return nil
}

// RemoveRelationship removes a relationship to another node.
func (c *Concept) RemoveRelationship(targetID valueobjects.NodeID) error {
	found := false
	remaining := make([]RelationshipRef, 0, len(c.relationships))

	for _, rel := range c.relationships {
		if rel.TargetID.Equals(targetID) {
			found = true
			continue
		}
		remaining = append(remaining, rel)
	}

	if !found {
		return pkgerrors.NewNotFoundError("relationship")
	}

	c.relationships = remaining
	c.updatedAt = time.Now()

	c.addEvent(events.NewRelationshipRemoved(c.id, targetID, c.updatedAt))

	return nil
}

// BoostRelationship increases the weight of an existing relationship by
// delta, clamped to max (the `link`/`access`/`boost` algorithm).
func (c *Concept) BoostRelationship(targetID valueobjects.NodeID, delta, max float64) error {
	for i := range c.relationships {
		if c.relationships[i].TargetID.Equals(targetID) {
			newWeight := c.relationships[i].Weight + delta
			if newWeight > max {
				newWeight = max
			}
			c.relationships[i].Weight = newWeight
			c.updatedAt = time.Now()
			c.addEvent(events.NewRelationshipBoosted(c.id, targetID, newWeight, c.updatedAt))
			return nil
		}
	}
	return pkgerrors.NewNotFoundError("relationship")
}

// DecayRelationships subtracts gamma from every relationship weight, not
// below floor. Called once per scheduler tick (C6).
func (c *Concept) DecayRelationships(gamma, floor float64) {
	changed := false
	for i := range c.relationships {
		newWeight := c.relationships[i].Weight - gamma
		if newWeight < floor {
			newWeight = floor
		}
		if newWeight != c.relationships[i].Weight {
			c.relationships[i].Weight = newWeight
			changed = true
		}
	}
	if changed {
		c.updatedAt = time.Now()
	}
}

// Activate moves the concept to active status.
func (c *Concept) Activate() error {
	if c.status == StatusArchived {
		return pkgerrors.NewValidationError("cannot activate archived concept")
	}
	if c.status == StatusActive {
		return nil
	}

	old := c.status
	c.status = StatusActive
	c.updatedAt = time.Now()
	c.version++

	c.addEvent(events.NewConceptStatusChanged(c.id, string(old), string(c.status), c.updatedAt))

	return nil
}

// Archive moves the concept to archived status and severs its relationships.
func (c *Concept) Archive() error {
	if c.status == StatusArchived {
		return nil
	}

	c.status = StatusArchived
	c.relationships = []RelationshipRef{}
	c.updatedAt = time.Now()
	c.version++

	c.addEvent(events.NewConceptArchived(c.id, c.updatedAt))

	return nil
}

// AddLabel attaches a label to the concept.
func (c *Concept) AddLabel(label string) error {
	return c.AddLabelWithConfig(label, config.DefaultDomainConfig())
}

// AddLabelWithConfig attaches a label to the concept with an explicit
// domain configuration.
func (c *Concept) AddLabelWithConfig(label string, cfg *config.DomainConfig) error {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}

	if label == "" {
		return pkgerrors.NewValidationError("label cannot be empty")
	}

	for _, l := range c.labels {
		if l == label {
			return nil
		}
	}

	if len(c.labels) >= cfg.MaxLabelsPerConcept {
		return fmt.Errorf("maximum labels reached: %d", cfg.MaxLabelsPerConcept)
	}

	c.labels = append(c.labels, label)
	c.updatedAt = time.Now()

	return nil
}

// RemoveLabel detaches a label from the concept.
func (c *Concept) RemoveLabel(label string) error {
	found := false
	remaining := make([]string, 0, len(c.labels))

	for _, l := range c.labels {
		if l == label {
			found = true
			continue
		}
		remaining = append(remaining, l)
	}

	if !found {
		return pkgerrors.NewNotFoundError("label")
	}

	c.labels = remaining
	c.updatedAt = time.Now()

	return nil
}

// HasLabel reports whether the concept carries a given label.
func (c *Concept) HasLabel(label string) bool {
	for _, l := range c.labels {
		if l == label {
			return true
		}
	}
	return false
}

// Relationships returns a defensive copy of the concept's outgoing
// relationships.
func (c *Concept) Relationships() []RelationshipRef {
	out := make([]RelationshipRef, len(c.relationships))
	copy(out, c.relationships)
	return out
}

// HasRelationshipTo reports whether the concept has an outgoing relationship
// to the target.
func (c *Concept) HasRelationshipTo(targetID valueobjects.NodeID) bool {
	for _, rel := range c.relationships {
		if rel.TargetID.Equals(targetID) {
			return true
		}
	}
	return false
}

// SimilarityTo computes the cosine similarity between this concept's
// embedding and another's. Returns 0 when either embedding is unset.
func (c *Concept) SimilarityTo(other *Concept) (float64, error) {
	if other == nil {
		return 0, pkgerrors.NewValidationError("cannot compare to nil concept")
	}
	if c.embedding.IsZero() || other.embedding.IsZero() {
		return 0, nil
	}
	return c.embedding.CosineSimilarity(other.embedding)
}

func (c *Concept) IsActive() bool   { return c.status == StatusActive }
func (c *Concept) IsArchived() bool { return c.status == StatusArchived }
func (c *Concept) IsDraft() bool    { return c.status == StatusDraft }

// GetUncommittedEvents returns all uncommitted domain events.
func (c *Concept) GetUncommittedEvents() []events.DomainEvent {
	return c.events
}

// MarkEventsAsCommitted clears the uncommitted events.
func (c *Concept) MarkEventsAsCommitted() {
	c.events = []events.DomainEvent{}
}

func (c *Concept) addEvent(event events.DomainEvent) {
	c.events = append(c.events, event)
}
