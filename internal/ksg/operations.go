package ksg

import (
	"context"

	"github.com/lehelkovach/osl-agent-prototype-sub000/domain/core/entities"
	"github.com/lehelkovach/osl-agent-prototype-sub000/domain/core/valueobjects"
	pkgerrors "github.com/lehelkovach/osl-agent-prototype-sub000/pkg/errors"
)

// defaultGeneralizeThreshold is the successCount a concept must reach
// before RecordPatternSuccess considers triggering autoGeneralize (§4.2).
const defaultGeneralizeThreshold = 2

// successCountKey is the Properties key RecordPatternSuccess increments.
// Stored as a property rather than a dedicated Concept field because
// success tracking is specific to pattern/procedure concepts, not every
// node kind.
const successCountKey = "successCount"

// CreateNode creates a bare Concept of the given kind, labels, and
// properties, without any Prototype validation or relationship wiring —
// the building block other subsystems (internal/procedure,
// internal/taskqueue) use to store their own kind-specific concepts.
func (s *Store) CreateNode(kind string, labels []string, properties valueobjects.Properties, provenance valueobjects.Provenance) (*entities.Concept, error) {
	return s.createNode(kind, labels, properties, provenance)
}

// RelationshipsFrom returns every relationship whose source is id and whose
// type is relType.
func (s *Store) RelationshipsFrom(id valueobjects.NodeID, relType entities.RelationType) ([]*Relationship, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Relationship
	for _, rel := range s.graph.Relationships() {
		if rel.SourceID.Equals(id) && rel.Type == relType {
			out = append(out, rel)
		}
	}
	return out, nil
}

// HydratedConcept pairs a concept with its properties merged down the
// instanceOf/part_of chain: ancestors' own properties first, instance
// values last, so instance values win (§4.2 searchConcepts hydrate=true).
// A Prototype ancestor contributes no values; PropertyDefs carry no defaults.
type HydratedConcept struct {
	Concept    *entities.Concept
	Properties valueobjects.Properties
	Similarity float64
}

// SearchConcepts runs Search and, when hydrate is true, merges each result's
// properties over those of its non-Prototype ancestors, walking the
// instanceOf/part_of chain so a grandparent's properties apply too;
// Prototype ancestors add nothing. prototypeFilter, when non-zero, restricts results to
// concepts related to that prototype.
func (s *Store) SearchConcepts(ctx context.Context, query valueobjects.Embedding, topK int, prototypeFilter valueobjects.NodeID, minSimilarity float64, hydrate bool) ([]HydratedConcept, error) {
	results, err := s.Search(SearchFilters{}, &query, topK*4, minSimilarity)
	if err != nil {
		return nil, err
	}

	out := make([]HydratedConcept, 0, len(results))
	for _, r := range results {
		if !prototypeFilter.IsZero() && !s.relatesTo(r.Concept.ID(), prototypeFilter) {
			continue
		}

		props := r.Concept.Properties()
		if hydrate {
			props = s.hydrateProperties(r.Concept.ID(), props, make(map[valueobjects.NodeID]bool))
		}

		out = append(out, HydratedConcept{Concept: r.Concept, Properties: props, Similarity: r.Similarity})
		if topK > 0 && len(out) >= topK {
			break
		}
	}

	return out, nil
}

// relatesTo reports whether source has any relationship targeting target,
// used to apply searchConcepts' prototypeFilter.
func (s *Store) relatesTo(source, target valueobjects.NodeID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rel := range s.graph.Relationships() {
		if rel.SourceID.Equals(source) && rel.TargetID.Equals(target) {
			return true
		}
	}
	return false
}

// hydrateProperties walks instanceOf/part_of edges from id upward, merging
// each non-Prototype ancestor's own properties underneath props so that
// props (the child's own values) always win. visited guards against a
// malformed cyclic chain.
func (s *Store) hydrateProperties(id valueobjects.NodeID, props valueobjects.Properties, visited map[valueobjects.NodeID]bool) valueobjects.Properties {
	if visited[id] {
		return props
	}
	visited[id] = true

	s.mu.RLock()
	var parentID valueobjects.NodeID
	for _, rel := range s.graph.Relationships() {
		if rel.SourceID.Equals(id) && (rel.Type == entities.RelationInstanceOf || rel.Type == entities.RelationPartOf) {
			parentID = rel.TargetID
			break
		}
	}
	s.mu.RUnlock()

	if parentID.IsZero() {
		return props
	}

	s.mu.RLock()
	parent, err := s.graph.GetConcept(parentID)
	s.mu.RUnlock()
	if err != nil {
		return props
	}

	parentProps := parent.Properties()
	if _, isPrototype := rawToPropDefs(parentProps); isPrototype {
		// Prototypes carry their PropertyDef schema under "propertyDefs",
		// not instance defaults to hydrate children with.
		parentProps = valueobjects.EmptyProperties()
	}

	merged := s.hydrateProperties(parentID, parentProps, visited)
	return merged.Merge(props)
}

// UpdateProperties shallow-merges patch into the concept's existing
// properties and bumps its provenance (§4.1 "mutated by updateProperties").
func (s *Store) UpdateProperties(ctx context.Context, id valueobjects.NodeID, patch valueobjects.Properties) error {
	lock := s.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	s.mu.RLock()
	concept, err := s.graph.GetConcept(id)
	s.mu.RUnlock()
	if err != nil {
		return err
	}

	return concept.UpdateProperties(concept.Properties().Merge(patch))
}

// SearchRelationships returns relationships of the given type (any type
// when relType is empty) whose source or target concept matches query by
// embedding similarity, truncated to topK.
func (s *Store) SearchRelationships(ctx context.Context, query valueobjects.Embedding, relType entities.RelationType, topK int) ([]*Relationship, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type scored struct {
		rel   *Relationship
		score float64
	}

	var candidates []scored
	for _, rel := range s.graph.Relationships() {
		if relType != "" && rel.Type != relType {
			continue
		}

		source, serr := s.graph.GetConcept(rel.SourceID)
		if serr != nil || source.Embedding().IsZero() {
			continue
		}

		sim, simErr := source.Embedding().CosineSimilarity(query)
		if simErr != nil {
			continue
		}

		candidates = append(candidates, scored{rel: rel, score: sim})
	}

	for i := 0; i < len(candidates); i++ {
		for j := i + 1; j < len(candidates); j++ {
			if candidates[j].score > candidates[i].score {
				candidates[i], candidates[j] = candidates[j], candidates[i]
			}
		}
	}

	if topK > 0 && len(candidates) > topK {
		candidates = candidates[:topK]
	}

	out := make([]*Relationship, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, c.rel)
	}
	return out, nil
}

// GeneralizeConcepts creates a new Concept whose embedding is the mean of
// exemplarIDs' embeddings, linked to each exemplar above minSimilarity via
// a hasExemplar edge weighted by that exemplar's similarity to the new
// centroid. Calling it twice with the same unchanged exemplars produces a
// bit-identical embedding (MeanEmbedding is deterministic), satisfying the
// generalization idempotence property.
func (s *Store) GeneralizeConcepts(ctx context.Context, exemplarIDs []valueobjects.NodeID, name, description string, minSimilarity float64, provenance valueobjects.Provenance) (*entities.Concept, error) {
	if len(exemplarIDs) == 0 {
		return nil, pkgerrors.NewValidationError("generalization requires at least one exemplar")
	}

	s.mu.RLock()
	exemplars := make([]*entities.Concept, 0, len(exemplarIDs))
	for _, id := range exemplarIDs {
		c, err := s.graph.GetConcept(id)
		if err != nil {
			s.mu.RUnlock()
			return nil, err
		}
		exemplars = append(exemplars, c)
	}
	s.mu.RUnlock()

	embeddings := make([]valueobjects.Embedding, 0, len(exemplars))
	for _, e := range exemplars {
		if !e.Embedding().IsZero() {
			embeddings = append(embeddings, e.Embedding())
		}
	}

	centroid, err := valueobjects.MeanEmbedding(embeddings)
	if err != nil {
		return nil, err
	}

	props := valueobjects.EmptyProperties().With("name", name).With("description", description)
	generalized, err := s.createNode(KindConcept, []string{name}, props, provenance)
	if err != nil {
		return nil, err
	}
	if err := generalized.UpdateEmbedding(centroid); err != nil {
		return nil, err
	}

	for _, e := range exemplars {
		if e.Embedding().IsZero() {
			continue
		}
		sim, simErr := e.Embedding().CosineSimilarity(centroid)
		if simErr != nil || sim < minSimilarity {
			continue
		}
		if _, lerr := s.CreateRelationship(ctx, generalized.ID(), e.ID(), entities.RelationHasExemplar, sim); lerr != nil {
			return nil, lerr
		}
	}

	return generalized, nil
}

// RecordPatternSuccess increments the concept's successCount, recomputes
// its centroid from its hasExemplar exemplars, and triggers autoGeneralize
// when successCount reaches threshold and at least two other concepts are
// similar above minSimilarity (§4.2).
func (s *Store) RecordPatternSuccess(ctx context.Context, id valueobjects.NodeID, threshold int, minSimilarity float64) (*entities.Concept, error) {
	if threshold <= 0 {
		threshold = defaultGeneralizeThreshold
	}

	lock := s.lockFor(id)
	lock.Lock()
	s.mu.RLock()
	concept, err := s.graph.GetConcept(id)
	s.mu.RUnlock()
	if err != nil {
		lock.Unlock()
		return nil, err
	}

	count := 0
	if raw, ok := concept.Properties().Get(successCountKey); ok {
		if n, ok := raw.(int); ok {
			count = n
		}
	}
	count++

	if uerr := concept.UpdateProperties(concept.Properties().With(successCountKey, count)); uerr != nil {
		lock.Unlock()
		return nil, uerr
	}
	lock.Unlock()

	if err := s.RecomputeCentroid(ctx, id); err != nil {
		return nil, err
	}

	if count < threshold {
		return concept, nil
	}

	similar, err := s.FindSimilarPatterns(concept.Kind(), concept.Embedding(), minSimilarity, 0)
	if err != nil {
		return concept, nil
	}

	others := 0
	exemplarIDs := []valueobjects.NodeID{id}
	for _, r := range similar {
		if r.Concept.ID().Equals(id) {
			continue
		}
		others++
		exemplarIDs = append(exemplarIDs, r.Concept.ID())
	}

	if others >= 2 {
		name := "generalized_" + concept.Kind()
		if _, gerr := s.GeneralizeConcepts(ctx, exemplarIDs, name, "auto-generalized from repeated pattern success", minSimilarity, concept.Provenance()); gerr != nil {
			return concept, gerr
		}
	}

	return concept, nil
}

// TransferPattern adapts a source concept's properties and labels into
// targetContext, recording the transfer as a new concept related back to
// the source via RelationGeneralization so its lineage is traceable. adapt,
// when non-nil, is called to rewrite properties for the new context; when
// nil, the source's properties are merged with targetContext, whose values
// win on shared keys.
func (s *Store) TransferPattern(ctx context.Context, sourceID valueobjects.NodeID, targetContext valueobjects.Properties, provenance valueobjects.Provenance, adapt func(ctx context.Context, source valueobjects.Properties, target valueobjects.Properties) (valueobjects.Properties, error)) (*entities.Concept, error) {
	s.mu.RLock()
	source, err := s.graph.GetConcept(sourceID)
	s.mu.RUnlock()
	if err != nil {
		return nil, err
	}

	props := source.Properties().Merge(targetContext)
	if adapt != nil {
		adapted, aerr := adapt(ctx, source.Properties(), targetContext)
		if aerr != nil {
			return nil, aerr
		}
		props = adapted
	}

	transferred, err := s.createNode(source.Kind(), source.Labels(), props, provenance)
	if err != nil {
		return nil, err
	}
	if !source.Embedding().IsZero() {
		if uerr := transferred.UpdateEmbedding(source.Embedding()); uerr != nil {
			return nil, uerr
		}
	}

	if _, lerr := s.CreateRelationship(ctx, transferred.ID(), sourceID, entities.RelationGeneralization, 1.0); lerr != nil {
		return nil, lerr
	}

	return transferred, nil
}
