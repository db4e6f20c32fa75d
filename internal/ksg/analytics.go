package ksg

import (
	"github.com/lehelkovach/osl-agent-prototype-sub000/domain/core/valueobjects"
	pkgerrors "github.com/lehelkovach/osl-agent-prototype-sub000/pkg/errors"
)

// Analytics computes read-only structural properties of a Graph: clusters,
// degree, reachability, orphans, and betweenness centrality. It is kept
// separate from Graph's mutation methods so Store can take a read lock once
// and run several of these without re-entering the graph's own locking.
type Analytics struct {
	graph *Graph
}

// NewAnalytics wraps a graph for read-only structural analysis.
func NewAnalytics(g *Graph) *Analytics {
	return &Analytics{graph: g}
}

// GetClusters partitions the graph into connected components, treating every
// relationship as undirected, to find islands of concepts worth generalizing
// together (§4.10 `generalizeConcepts`).
func (a *Analytics) GetClusters() [][]valueobjects.NodeID {
	visited := make(map[valueobjects.NodeID]bool)
	var clusters [][]valueobjects.NodeID

	for id := range a.graph.concepts {
		if !visited[id] {
			clusters = append(clusters, a.dfs(id, visited))
		}
	}

	return clusters
}

func (a *Analytics) dfs(id valueobjects.NodeID, visited map[valueobjects.NodeID]bool) []valueobjects.NodeID {
	cluster := []valueobjects.NodeID{id}
	visited[id] = true

	for _, rel := range a.graph.relationships {
		var next valueobjects.NodeID
		switch {
		case rel.SourceID.Equals(id):
			next = rel.TargetID
		case rel.TargetID.Equals(id):
			next = rel.SourceID
		default:
			continue
		}

		if !visited[next] {
			cluster = append(cluster, a.dfs(next, visited)...)
		}
	}

	return cluster
}

// Degree returns the in-degree and out-degree of a concept.
func (a *Analytics) Degree(id valueobjects.NodeID) (inDegree, outDegree int, err error) {
	if !a.graph.HasConcept(id) {
		return 0, 0, pkgerrors.NewNotFoundError("concept")
	}

	for _, rel := range a.graph.relationships {
		if rel.SourceID.Equals(id) {
			outDegree++
		}
		if rel.TargetID.Equals(id) {
			inDegree++
		}
		if rel.Bidirectional {
			if rel.SourceID.Equals(id) {
				inDegree++
			}
			if rel.TargetID.Equals(id) {
				outDegree++
			}
		}
	}

	return inDegree, outDegree, nil
}

// ConnectedWithin returns every concept reachable from id within maxDepth
// hops.
func (a *Analytics) ConnectedWithin(id valueobjects.NodeID, maxDepth int) ([]valueobjects.NodeID, error) {
	if !a.graph.HasConcept(id) {
		return nil, pkgerrors.NewNotFoundError("concept")
	}
	if maxDepth <= 0 {
		return []valueobjects.NodeID{}, nil
	}

	depth := map[valueobjects.NodeID]int{id: 0}
	queue := []valueobjects.NodeID{id}
	var result []valueobjects.NodeID

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		currentDepth := depth[current]
		if currentDepth >= maxDepth {
			continue
		}

		for _, rel := range a.graph.relationships {
			var next valueobjects.NodeID
			switch {
			case rel.SourceID.Equals(current):
				next = rel.TargetID
			case rel.Bidirectional && rel.TargetID.Equals(current):
				next = rel.SourceID
			default:
				continue
			}

			if _, seen := depth[next]; !seen {
				depth[next] = currentDepth + 1
				queue = append(queue, next)
				result = append(result, next)
			}
		}
	}

	return result, nil
}

// Orphans returns concepts with no relationships at all.
func (a *Analytics) Orphans() []valueobjects.NodeID {
	connected := make(map[valueobjects.NodeID]bool)
	for _, rel := range a.graph.relationships {
		connected[rel.SourceID] = true
		connected[rel.TargetID] = true
	}

	var orphaned []valueobjects.NodeID
	for id := range a.graph.concepts {
		if !connected[id] {
			orphaned = append(orphaned, id)
		}
	}
	return orphaned
}

// Centrality computes a normalized betweenness centrality over every pair of
// concepts in the graph, identifying the bridge concepts the generalization
// pass should prioritize. O(n^2) shortest-path pairs; intended for the
// bounded batch windows the generalization worker runs on, not interactive
// request paths.
func (a *Analytics) Centrality() map[valueobjects.NodeID]float64 {
	centrality := make(map[valueobjects.NodeID]float64, len(a.graph.concepts))
	ids := make([]valueobjects.NodeID, 0, len(a.graph.concepts))
	for id := range a.graph.concepts {
		centrality[id] = 0.0
		ids = append(ids, id)
	}

	for i, source := range ids {
		for j, target := range ids {
			if i >= j {
				continue
			}
			path, err := a.graph.FindPath(source, target)
			if err != nil {
				continue
			}
			for k := 1; k < len(path)-1; k++ {
				centrality[path[k]] += 1.0
			}
		}
	}

	max := 0.0
	for _, v := range centrality {
		if v > max {
			max = v
		}
	}
	if max > 0 {
		for id := range centrality {
			centrality[id] /= max
		}
	}

	return centrality
}
