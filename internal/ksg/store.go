package ksg

import (
	"context"
	"hash/fnv"
	"sort"
	"sync"

	"github.com/lehelkovach/osl-agent-prototype-sub000/domain/config"
	"github.com/lehelkovach/osl-agent-prototype-sub000/domain/core/entities"
	"github.com/lehelkovach/osl-agent-prototype-sub000/domain/core/valueobjects"
	pkgerrors "github.com/lehelkovach/osl-agent-prototype-sub000/pkg/errors"
)

// Kind names for the node kinds every KSG entity is stored as (§3).
const (
	KindPrototype   = "Prototype"
	KindConcept     = "Concept"
	KindPropertyDef = "PropertyDef"
	KindProcedure   = "Procedure"
	KindQueueItem   = "QueueItem"
)

// SearchFilters narrows a KSG search to concepts matching every non-zero
// field.
type SearchFilters struct {
	Kind   string
	Labels []string
}

// SearchResult pairs a concept with its similarity score against the query
// embedding (1.0 when no query embedding was supplied).
type SearchResult struct {
	Concept    *entities.Concept
	Similarity float64
}

// stripeCount sizes the per-id mutex striping used to serialize writes
// without serializing the whole graph (§5: "per-UUID serialization for KSG
// writes").
const stripeCount = 64

// Store is the concurrency-safe façade over Graph: mu guards the Graph's
// maps, and methods that modify an existing concept or add a relationship
// also take the stripe lock for that concept's (or the source's) id before
// delegating to the single-writer Graph methods.
type Store struct {
	mu     sync.RWMutex // protects the Graph's map structure itself
	graph  *Graph
	stripe [stripeCount]sync.Mutex
}

// NewStore creates an empty, concurrency-safe knowledge graph store.
func NewStore() *Store {
	return NewStoreWithConfig(config.DefaultDomainConfig())
}

// NewStoreWithConfig creates an empty store with an explicit configuration.
func NewStoreWithConfig(cfg *config.DomainConfig) *Store {
	return &Store{graph: NewGraphWithConfig(cfg)}
}

func (s *Store) lockFor(id valueobjects.NodeID) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(id.String()))
	return &s.stripe[h.Sum32()%stripeCount]
}

// CreatePrototype creates a Prototype-kind concept: a schema node that
// defines the labels and PropertyDefs instances of a Concept must satisfy.
func (s *Store) CreatePrototype(ctx context.Context, name string, propDefs []valueobjects.PropertyDef, provenance valueobjects.Provenance) (*entities.Concept, error) {
	props := valueobjects.EmptyProperties().With("name", name).With("propertyDefs", propDefsToRaw(propDefs))
	return s.createNode(KindPrototype, []string{name}, props, provenance)
}

// CreateConcept creates a Concept-kind node validated against its
// Prototype's declared PropertyDefs, if the prototype is known.
func (s *Store) CreateConcept(ctx context.Context, prototypeID valueobjects.NodeID, labels []string, properties valueobjects.Properties, embedding valueobjects.Embedding, provenance valueobjects.Provenance) (*entities.Concept, error) {
	s.mu.Lock()
	prototype, err := s.graph.GetConcept(prototypeID)
	s.mu.Unlock()
	if err == nil {
		if defs, ok := rawToPropDefs(prototype.Properties()); ok {
			if verr := valueobjects.ValidateAgainst(properties, defs); verr != nil {
				return nil, verr
			}
		}
	}

	concept, cerr := s.createNode(KindConcept, labels, properties, provenance)
	if cerr != nil {
		return nil, cerr
	}

	if err == nil {
		if uerr := concept.UpdateEmbedding(embedding); uerr != nil {
			return nil, uerr
		}
		if _, lerr := s.CreateRelationship(ctx, concept.ID(), prototypeID, entities.RelationPartOf, 1.0); lerr != nil {
			return nil, lerr
		}
	}

	return concept, nil
}

func (s *Store) createNode(kind string, labels []string, properties valueobjects.Properties, provenance valueobjects.Provenance) (*entities.Concept, error) {
	concept, err := entities.NewConcept(kind, labels, properties, provenance)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.graph.AddConcept(concept); err != nil {
		return nil, err
	}
	return concept, nil
}

// Upsert inserts a concept if its id is new, or replaces the stored concept
// of the same id otherwise (the generic `upsert(entity)` operation named in
// §4.1).
func (s *Store) Upsert(concept *entities.Concept) error {
	if concept == nil {
		return pkgerrors.NewValidationError("concept cannot be nil")
	}

	lock := s.lockFor(concept.ID())
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.graph.HasConcept(concept.ID()) {
		s.graph.concepts[concept.ID()] = concept
		return nil
	}
	return s.graph.AddConcept(concept)
}

// Get retrieves a concept by id.
func (s *Store) Get(id valueobjects.NodeID) (*entities.Concept, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.graph.GetConcept(id)
}

// Search returns concepts matching filters, ranked by cosine similarity to
// queryEmbedding when supplied (otherwise all matches are returned with
// similarity 1.0), filtered to similarity >= minSimilarity, truncated to
// topK (§4.1 `search(filters, queryEmbedding?, topK, minSimilarity=0)`).
func (s *Store) Search(filters SearchFilters, queryEmbedding *valueobjects.Embedding, topK int, minSimilarity float64) ([]SearchResult, error) {
	s.mu.RLock()
	candidates := s.graph.AllConcepts()
	s.mu.RUnlock()

	results := make([]SearchResult, 0, len(candidates))
	for _, c := range candidates {
		if c.IsArchived() {
			continue
		}
		if filters.Kind != "" && c.Kind() != filters.Kind {
			continue
		}
		if !hasAllLabels(c, filters.Labels) {
			continue
		}

		similarity := 1.0
		if queryEmbedding != nil {
			sim, err := c.Embedding().CosineSimilarity(*queryEmbedding)
			if err != nil {
				continue
			}
			similarity = sim
		}

		if similarity < minSimilarity {
			continue
		}

		results = append(results, SearchResult{Concept: c, Similarity: similarity})
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})

	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}

	return results, nil
}

func hasAllLabels(c *entities.Concept, labels []string) bool {
	for _, l := range labels {
		if !c.HasLabel(l) {
			return false
		}
	}
	return true
}

// CreateRelationship creates a relationship between two existing concepts,
// serialized per the stripe lock of the source id.
func (s *Store) CreateRelationship(ctx context.Context, sourceID, targetID valueobjects.NodeID, relType entities.RelationType, weight float64) (*Relationship, error) {
	lock := s.lockFor(sourceID)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.graph.Connect(sourceID, targetID, relType, weight)
}

// AddAssociation links two concepts with a plain association relationship,
// a convenience used by the learning engine.
func (s *Store) AddAssociation(ctx context.Context, a, b valueobjects.NodeID, weight float64) (*Relationship, error) {
	return s.CreateRelationship(ctx, a, b, entities.RelationAssociation, weight)
}

// AddExemplar attaches an exemplar embedding to a concept's prototype
// lineage by relating the exemplar concept to the prototype it illustrates,
// then triggers centroid recomputation.
func (s *Store) AddExemplar(ctx context.Context, prototypeID, exemplarID valueobjects.NodeID) error {
	if _, err := s.CreateRelationship(ctx, exemplarID, prototypeID, entities.RelationPartOf, 1.0); err != nil {
		return err
	}
	return s.RecomputeCentroid(ctx, prototypeID)
}

// RecomputeCentroid recomputes a prototype's embedding as the mean of every
// concept related to it via RelationPartOf (the centroid = sum/count
// invariant, §8).
func (s *Store) RecomputeCentroid(ctx context.Context, prototypeID valueobjects.NodeID) error {
	s.mu.RLock()
	prototype, err := s.graph.GetConcept(prototypeID)
	if err != nil {
		s.mu.RUnlock()
		return err
	}

	var exemplarEmbeddings []valueobjects.Embedding
	for _, rel := range s.graph.Relationships() {
		if rel.Type != entities.RelationPartOf || !rel.TargetID.Equals(prototypeID) {
			continue
		}
		member, merr := s.graph.GetConcept(rel.SourceID)
		if merr != nil || member.Embedding().IsZero() {
			continue
		}
		exemplarEmbeddings = append(exemplarEmbeddings, member.Embedding())
	}
	s.mu.RUnlock()

	if len(exemplarEmbeddings) == 0 {
		return nil
	}

	centroid, err := valueobjects.MeanEmbedding(exemplarEmbeddings)
	if err != nil {
		return err
	}

	lock := s.lockFor(prototypeID)
	lock.Lock()
	defer lock.Unlock()
	return prototype.UpdateEmbedding(centroid)
}

// FindSimilarPatterns returns concepts of the given kind whose embedding is
// within minSimilarity of the query embedding, used by the learning engine
// to find transferable patterns (§4.10).
func (s *Store) FindSimilarPatterns(kind string, query valueobjects.Embedding, minSimilarity float64, topK int) ([]SearchResult, error) {
	return s.Search(SearchFilters{Kind: kind}, &query, topK, minSimilarity)
}

func propDefsToRaw(defs []valueobjects.PropertyDef) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(defs))
	for _, d := range defs {
		out = append(out, map[string]interface{}{
			"name":        d.Name,
			"type":        string(d.Type),
			"cardinality": string(d.Cardinality),
			"required":    d.Required,
		})
	}
	return out
}

func rawToPropDefs(props valueobjects.Properties) ([]valueobjects.PropertyDef, bool) {
	raw, ok := props.Get("propertyDefs")
	if !ok {
		return nil, false
	}
	list, ok := raw.([]map[string]interface{})
	if !ok {
		return nil, false
	}
	defs := make([]valueobjects.PropertyDef, 0, len(list))
	for _, m := range list {
		name, _ := m["name"].(string)
		typ, _ := m["type"].(string)
		card, _ := m["cardinality"].(string)
		required, _ := m["required"].(bool)
		defs = append(defs, valueobjects.PropertyDef{
			Name:        name,
			Type:        valueobjects.ValueType(typ),
			Cardinality: valueobjects.Cardinality(card),
			Required:    required,
		})
	}
	return defs, true
}
