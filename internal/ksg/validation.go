package ksg

import (
	"fmt"

	"github.com/lehelkovach/osl-agent-prototype-sub000/domain/core/entities"
	"github.com/lehelkovach/osl-agent-prototype-sub000/domain/core/valueobjects"
	pkgerrors "github.com/lehelkovach/osl-agent-prototype-sub000/pkg/errors"
)

// BulkOperation names a bounded batch mutation, used by replicator/generalizer
// workers to pre-flight a batch before applying it.
type BulkOperation string

const (
	BulkAddConcepts      BulkOperation = "add_concepts"
	BulkAddRelationships BulkOperation = "add_relationships"
	BulkRemoveConcepts   BulkOperation = "remove_concepts"
)

// ValidateBulkOperation checks a proposed batch size against the graph's
// configured limits before a worker applies it, so a partially-applied batch
// never leaves the graph over its configured bounds.
func (s *Store) ValidateBulkOperation(op BulkOperation, itemCount int) error {
	s.mu.RLock()
	cfg := s.graph.config
	currentConcepts := len(s.graph.concepts)
	currentRelationships := len(s.graph.relationships)
	s.mu.RUnlock()

	switch op {
	case BulkAddConcepts:
		if currentConcepts+itemCount > cfg.MaxConceptsPerGraph {
			return pkgerrors.NewValidationError(fmt.Sprintf(
				"bulk operation would exceed max concepts: %d + %d > %d",
				currentConcepts, itemCount, cfg.MaxConceptsPerGraph))
		}
	case BulkAddRelationships:
		if currentRelationships+itemCount > cfg.MaxRelationshipsPerGraph {
			return pkgerrors.NewValidationError(fmt.Sprintf(
				"bulk operation would exceed max relationships: %d + %d > %d",
				currentRelationships, itemCount, cfg.MaxRelationshipsPerGraph))
		}
	case BulkRemoveConcepts:
		// removal never pushes the graph over a limit
	default:
		return pkgerrors.NewValidationError(fmt.Sprintf("unknown bulk operation: %s", op))
	}

	return nil
}

// WouldCreateCycle reports whether connecting sourceID -> targetID with a
// RelationGeneralization edge would close a cycle in the generalization
// hierarchy. Prototype/exemplar lineage (§3, §4.10) is meant to stay a DAG;
// only generalization edges are checked since association/causal/temporal
// edges are not hierarchy-forming.
func (s *Store) WouldCreateCycle(sourceID, targetID valueobjects.NodeID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	visited := make(map[valueobjects.NodeID]bool)
	return hasGeneralizationPath(s.graph, targetID, sourceID, visited)
}

func hasGeneralizationPath(g *Graph, current, target valueobjects.NodeID, visited map[valueobjects.NodeID]bool) bool {
	if current.Equals(target) {
		return true
	}
	visited[current] = true

	for _, rel := range g.relationships {
		if rel.Type != entities.RelationGeneralization || !rel.SourceID.Equals(current) {
			continue
		}
		if !visited[rel.TargetID] {
			if hasGeneralizationPath(g, rel.TargetID, target, visited) {
				return true
			}
		}
	}

	return false
}
