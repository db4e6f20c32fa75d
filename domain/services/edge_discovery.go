package services

import (
	"sort"

	"github.com/lehelkovach/osl-agent-prototype-sub000/domain/core/entities"
	"github.com/lehelkovach/osl-agent-prototype-sub000/domain/core/valueobjects"
)

// RelationshipCandidate is a potential relationship the discovery service
// proposes between two concepts, not yet created in the graph.
type RelationshipCandidate struct {
	SourceID   valueobjects.NodeID
	TargetID   valueobjects.NodeID
	Type       entities.RelationType
	Similarity float64
	Reason     string
}

// RelationshipDiscoveryConfig configures relationship discovery behavior.
type RelationshipDiscoveryConfig struct {
	MinSimilarity         float64
	StrongRelationThreshold float64
	MaxRelationsPerConcept int
	ConsiderBidirectional bool
}

// DefaultRelationshipDiscoveryConfig returns default configuration.
func DefaultRelationshipDiscoveryConfig() *RelationshipDiscoveryConfig {
	return &RelationshipDiscoveryConfig{
		MinSimilarity:           0.3,
		StrongRelationThreshold: 0.7,
		MaxRelationsPerConcept:  50,
		ConsiderBidirectional:   true,
	}
}

// RelationshipDiscoveryService proposes relationships between a concept and
// the rest of the graph, grounding the learning engine's
// `findSimilarPatterns`/`generalizeConcepts` operations (§4.10) and the KSG's
// `addAssociation` convenience (§4.2).
type RelationshipDiscoveryService interface {
	DiscoverCandidates(concept *entities.Concept, existing []*entities.Concept) []RelationshipCandidate
	RankCandidates(candidates []RelationshipCandidate) []RelationshipCandidate
	FilterCandidates(candidates []RelationshipCandidate, maxPerConcept int, minSimilarity float64) []RelationshipCandidate
}

// DefaultRelationshipDiscoveryService discovers relationship candidates
// using lexical similarity.
type DefaultRelationshipDiscoveryService struct {
	config               *RelationshipDiscoveryConfig
	similarityCalculator SimilarityCalculator
}

func NewDefaultRelationshipDiscoveryService(
	config *RelationshipDiscoveryConfig,
	similarityCalculator SimilarityCalculator,
) *DefaultRelationshipDiscoveryService {
	if config == nil {
		config = DefaultRelationshipDiscoveryConfig()
	}
	if similarityCalculator == nil {
		similarityCalculator = NewDefaultSimilarityCalculator(nil, nil)
	}

	return &DefaultRelationshipDiscoveryService{
		config:               config,
		similarityCalculator: similarityCalculator,
	}
}

// DiscoverCandidates finds all potential relationships for a concept among
// the existing concepts supplied by the caller (typically a KSG search
// result, keeping this domain service free of any direct graph dependency).
func (eds *DefaultRelationshipDiscoveryService) DiscoverCandidates(
	concept *entities.Concept,
	existing []*entities.Concept,
) []RelationshipCandidate {
	if concept == nil || len(existing) == 0 {
		return nil
	}

	candidates := make([]RelationshipCandidate, 0)
	similarities := eds.similarityCalculator.CalculateBatch(concept, existing)

	for _, other := range existing {
		if other == nil || other.ID().Equals(concept.ID()) {
			continue
		}

		similarity, exists := similarities[other.ID().String()]
		if !exists || similarity < eds.config.MinSimilarity {
			continue
		}

		relType := eds.ClassifyRelationType(similarity)

		candidates = append(candidates, RelationshipCandidate{
			SourceID:   concept.ID(),
			TargetID:   other.ID(),
			Type:       relType,
			Similarity: similarity,
			Reason:     eds.generateReason(similarity),
		})

		if eds.config.ConsiderBidirectional && relType == entities.RelationSimilarity {
			candidates = append(candidates, RelationshipCandidate{
				SourceID:   other.ID(),
				TargetID:   concept.ID(),
				Type:       relType,
				Similarity: similarity,
				Reason:     "bidirectional similarity",
			})
		}
	}

	return candidates
}

// RankCandidates sorts candidates by similarity, then relation strength.
func (eds *DefaultRelationshipDiscoveryService) RankCandidates(candidates []RelationshipCandidate) []RelationshipCandidate {
	if len(candidates) <= 1 {
		return candidates
	}

	ranked := make([]RelationshipCandidate, len(candidates))
	copy(ranked, candidates)

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Similarity != ranked[j].Similarity {
			return ranked[i].Similarity > ranked[j].Similarity
		}
		return eds.relationPriority(ranked[i].Type) > eds.relationPriority(ranked[j].Type)
	})

	return ranked
}

// FilterCandidates applies business rules to bound the candidate set.
func (eds *DefaultRelationshipDiscoveryService) FilterCandidates(
	candidates []RelationshipCandidate,
	maxPerConcept int,
	minSimilarity float64,
) []RelationshipCandidate {
	if len(candidates) == 0 {
		return candidates
	}

	if maxPerConcept <= 0 {
		maxPerConcept = eds.config.MaxRelationsPerConcept
	}
	if minSimilarity <= 0 {
		minSimilarity = eds.config.MinSimilarity
	}

	filtered := make([]RelationshipCandidate, 0)
	perSource := make(map[string]int)

	for _, candidate := range candidates {
		if candidate.Similarity < minSimilarity {
			continue
		}

		sourceKey := candidate.SourceID.String()
		if perSource[sourceKey] >= maxPerConcept {
			continue
		}

		filtered = append(filtered, candidate)
		perSource[sourceKey]++
	}

	return filtered
}

// ClassifyRelationType determines the relation type from similarity strength.
func (eds *DefaultRelationshipDiscoveryService) ClassifyRelationType(similarity float64) entities.RelationType {
	if similarity >= eds.config.StrongRelationThreshold {
		return entities.RelationSimilarity
	}
	return entities.RelationAssociation
}

func (eds *DefaultRelationshipDiscoveryService) generateReason(similarity float64) string {
	switch {
	case similarity >= 0.9:
		return "very high property similarity"
	case similarity >= eds.config.StrongRelationThreshold:
		return "strong similarity"
	case similarity >= 0.5:
		return "moderate similarity"
	default:
		return "weak association"
	}
}

func (eds *DefaultRelationshipDiscoveryService) relationPriority(relType entities.RelationType) int {
	switch relType {
	case entities.RelationSimilarity:
		return 3
	case entities.RelationAssociation:
		return 2
	case entities.RelationGeneralization:
		return 1
	default:
		return 0
	}
}
