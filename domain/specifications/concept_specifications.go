package specifications

import (
	"strings"

	"github.com/lehelkovach/osl-agent-prototype-sub000/domain/core/entities"
)

// ConceptSpecification is a specification for Concept entities.
type ConceptSpecification interface {
	Specification[*entities.Concept]
}

// ConceptHasLabelsSpec validates that a concept carries specific labels.
type ConceptHasLabelsSpec struct {
	BaseSpecification[*entities.Concept]
	requiredLabels []string
	matchAll       bool // true: every label required. false: at least one.
}

func NewConceptHasLabelsSpec(requiredLabels []string, matchAll bool) *ConceptHasLabelsSpec {
	spec := &ConceptHasLabelsSpec{requiredLabels: requiredLabels, matchAll: matchAll}
	spec.BaseSpecification = BaseSpecification[*entities.Concept]{evaluator: spec.evaluate}
	return spec
}

func (s *ConceptHasLabelsSpec) evaluate(concept *entities.Concept) bool {
	if concept == nil {
		return false
	}

	labelSet := make(map[string]bool)
	for _, label := range concept.Labels() {
		labelSet[strings.ToLower(label)] = true
	}

	if s.matchAll {
		for _, required := range s.requiredLabels {
			if !labelSet[strings.ToLower(required)] {
				return false
			}
		}
		return true
	}

	for _, required := range s.requiredLabels {
		if labelSet[strings.ToLower(required)] {
			return true
		}
	}
	return false
}

// ConceptStatusSpec validates that a concept's status is one of a set.
type ConceptStatusSpec struct {
	BaseSpecification[*entities.Concept]
	allowedStatuses []entities.ConceptStatus
}

func NewConceptStatusSpec(allowedStatuses ...entities.ConceptStatus) *ConceptStatusSpec {
	spec := &ConceptStatusSpec{allowedStatuses: allowedStatuses}
	spec.BaseSpecification = BaseSpecification[*entities.Concept]{evaluator: spec.evaluate}
	return spec
}

func (s *ConceptStatusSpec) evaluate(concept *entities.Concept) bool {
	if concept == nil {
		return false
	}
	for _, allowed := range s.allowedStatuses {
		if concept.Status() == allowed {
			return true
		}
	}
	return false
}

// ConceptHasEmbeddingSpec validates that a concept has a non-zero embedding,
// used to exclude draft concepts from similarity search (§4.1, §8).
type ConceptHasEmbeddingSpec struct {
	BaseSpecification[*entities.Concept]
}

func NewConceptHasEmbeddingSpec() *ConceptHasEmbeddingSpec {
	spec := &ConceptHasEmbeddingSpec{}
	spec.BaseSpecification = BaseSpecification[*entities.Concept]{evaluator: spec.evaluate}
	return spec
}

func (s *ConceptHasEmbeddingSpec) evaluate(concept *entities.Concept) bool {
	return concept != nil && !concept.Embedding().IsZero()
}

// ConceptLabelCountSpec validates the number of labels on a concept.
type ConceptLabelCountSpec struct {
	BaseSpecification[*entities.Concept]
	minLabels int
	maxLabels int
}

func NewConceptLabelCountSpec(minLabels, maxLabels int) *ConceptLabelCountSpec {
	spec := &ConceptLabelCountSpec{minLabels: minLabels, maxLabels: maxLabels}
	spec.BaseSpecification = BaseSpecification[*entities.Concept]{evaluator: spec.evaluate}
	return spec
}

func (s *ConceptLabelCountSpec) evaluate(concept *entities.Concept) bool {
	if concept == nil {
		return false
	}
	count := len(concept.Labels())
	return count >= s.minLabels && count <= s.maxLabels
}

// ConceptPropertiesSpec validates required property keys and an optional
// custom predicate over a concept's raw property bag.
type ConceptPropertiesSpec struct {
	BaseSpecification[*entities.Concept]
	requiredKeys []string
	validator    func(props map[string]interface{}) bool
}

func NewConceptPropertiesSpec(requiredKeys []string, validator func(map[string]interface{}) bool) *ConceptPropertiesSpec {
	spec := &ConceptPropertiesSpec{requiredKeys: requiredKeys, validator: validator}
	spec.BaseSpecification = BaseSpecification[*entities.Concept]{evaluator: spec.evaluate}
	return spec
}

func (s *ConceptPropertiesSpec) evaluate(concept *entities.Concept) bool {
	if concept == nil {
		return false
	}

	raw := concept.Properties().Raw()
	for _, key := range s.requiredKeys {
		if _, exists := raw[key]; !exists {
			return false
		}
	}

	if s.validator != nil {
		return s.validator(raw)
	}
	return true
}

// Common pre-configured specifications.

// NewActiveConceptSpec selects concepts eligible for use (not archived).
func NewActiveConceptSpec() ConceptSpecification {
	return NewConceptStatusSpec(entities.StatusActive, entities.StatusDraft)
}

// NewArchivedConceptSpec selects archived concepts.
func NewArchivedConceptSpec() ConceptSpecification {
	return NewConceptStatusSpec(entities.StatusArchived)
}

// NewSearchableConceptSpec selects concepts the KSG search surfaces: active
// and carrying an embedding to compare against a query.
func NewSearchableConceptSpec() ConceptSpecification {
	return NewConceptStatusSpec(entities.StatusActive).
		And(NewConceptHasEmbeddingSpec())
}
