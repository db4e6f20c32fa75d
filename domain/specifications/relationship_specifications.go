package specifications

import (
	"github.com/lehelkovach/osl-agent-prototype-sub000/domain/core/entities"
	"github.com/lehelkovach/osl-agent-prototype-sub000/domain/core/valueobjects"
)

// RelationshipSpecification is a specification for a concept's outgoing
// relationship references. It operates on entities.RelationshipRef rather
// than internal/ksg.Relationship so the domain layer stays independent of
// the application-facing KSG package; internal/ksg adapts a Relationship to
// a RelationshipRef (already the shape Concept.Relationships() returns)
// before testing it against these specifications.
type RelationshipSpecification interface {
	Specification[entities.RelationshipRef]
}

// RelationshipWeightSpec validates that a relationship's weight falls
// within the floor/cap the domain config enforces (§4.3's Alpha/W_max).
type RelationshipWeightSpec struct {
	BaseSpecification[entities.RelationshipRef]
	minWeight float64
	maxWeight float64
}

func NewRelationshipWeightSpec(minWeight, maxWeight float64) *RelationshipWeightSpec {
	spec := &RelationshipWeightSpec{minWeight: minWeight, maxWeight: maxWeight}
	spec.BaseSpecification = BaseSpecification[entities.RelationshipRef]{evaluator: spec.evaluate}
	return spec
}

func (s *RelationshipWeightSpec) evaluate(rel entities.RelationshipRef) bool {
	return rel.Weight >= s.minWeight && rel.Weight <= s.maxWeight
}

// RelationshipTypeSpec validates relationship type membership.
type RelationshipTypeSpec struct {
	BaseSpecification[entities.RelationshipRef]
	allowedTypes []entities.RelationType
}

func NewRelationshipTypeSpec(allowedTypes ...entities.RelationType) *RelationshipTypeSpec {
	spec := &RelationshipTypeSpec{allowedTypes: allowedTypes}
	spec.BaseSpecification = BaseSpecification[entities.RelationshipRef]{evaluator: spec.evaluate}
	return spec
}

func (s *RelationshipTypeSpec) evaluate(rel entities.RelationshipRef) bool {
	for _, allowed := range s.allowedTypes {
		if rel.Type == allowed {
			return true
		}
	}
	return false
}

// RelationshipNotTargetingSpec rejects a relationship targeting a given
// concept, used to reject self-references before they reach Concept's own
// self-reference check.
type RelationshipNotTargetingSpec struct {
	BaseSpecification[entities.RelationshipRef]
	forbidden valueobjects.NodeID
}

func NewRelationshipNotTargetingSpec(forbidden valueobjects.NodeID) *RelationshipNotTargetingSpec {
	spec := &RelationshipNotTargetingSpec{forbidden: forbidden}
	spec.BaseSpecification = BaseSpecification[entities.RelationshipRef]{evaluator: spec.evaluate}
	return spec
}

func (s *RelationshipNotTargetingSpec) evaluate(rel entities.RelationshipRef) bool {
	return !rel.TargetID.Equals(s.forbidden)
}

// UniqueRelationshipSpec validates that no existing relationship ref of the
// same type already targets the same concept (§5 uniqueness invariant,
// re-checked here for callers composing candidate batches before they reach
// Concept.AddRelationship/Store.CreateRelationship).
type UniqueRelationshipSpec struct {
	BaseSpecification[entities.RelationshipRef]
	existing []entities.RelationshipRef
}

func NewUniqueRelationshipSpec(existing []entities.RelationshipRef) *UniqueRelationshipSpec {
	spec := &UniqueRelationshipSpec{existing: existing}
	spec.BaseSpecification = BaseSpecification[entities.RelationshipRef]{evaluator: spec.evaluate}
	return spec
}

func (s *UniqueRelationshipSpec) evaluate(rel entities.RelationshipRef) bool {
	for _, other := range s.existing {
		if other.EdgeID == rel.EdgeID {
			continue
		}
		if other.Type == rel.Type && other.TargetID.Equals(rel.TargetID) {
			return false
		}
	}
	return true
}

// Common pre-configured specifications.

// NewValidRelationshipSpec matches any relationship ref within normal bounds.
func NewValidRelationshipSpec() RelationshipSpecification {
	return NewRelationshipWeightSpec(0.0, 100.0).
		And(NewRelationshipTypeSpec(
			entities.RelationAssociation,
			entities.RelationGeneralization,
			entities.RelationPartOf,
			entities.RelationCausal,
			entities.RelationTemporal,
			entities.RelationSimilarity,
		))
}

// NewStrongRelationshipSpec matches high-weight, boosted relationships.
func NewStrongRelationshipSpec() RelationshipSpecification {
	return NewRelationshipWeightSpec(10.0, 100.0)
}
