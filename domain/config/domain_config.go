// Package config holds pure domain-level tunables: the constants entities
// and domain services consult directly, as opposed to internal/config's
// environment-driven application configuration.
package config

// DomainConfig bounds the knowledge-graph entity invariants.
type DomainConfig struct {
	AllowSelfRelationships      bool
	AllowDuplicateRelationships bool
	MaxRelationshipsPerConcept  int
	MaxLabelsPerConcept         int

	// RelationshipBoostDelta (Delta) is added to an edge weight on each
	// access/boost.
	RelationshipBoostDelta float64
	// RelationshipWeightMax (W_max) caps an edge weight after boosting.
	RelationshipWeightMax float64
	// RelationshipDecayGamma (Gamma) is subtracted from every edge weight per
	// scheduler tick.
	RelationshipDecayGamma float64
	// RelationshipDecayFloor (Alpha) is the minimum weight decay stops at.
	RelationshipDecayFloor float64

	// MaxConceptsPerGraph bounds the in-memory store's node count.
	MaxConceptsPerGraph int
	// MaxRelationshipsPerGraph bounds the in-memory store's edge count.
	MaxRelationshipsPerGraph int
}

// DefaultDomainConfig returns the configuration used when no override is
// supplied, matching the constants named in the relationship-weight model.
func DefaultDomainConfig() *DomainConfig {
	return &DomainConfig{
		AllowSelfRelationships:      false,
		AllowDuplicateRelationships: false,
		MaxRelationshipsPerConcept:  1000,
		MaxLabelsPerConcept:         50,
		RelationshipBoostDelta:      1.0,
		RelationshipWeightMax:       100.0,
		RelationshipDecayGamma:      0.001,
		RelationshipDecayFloor:      0.1,
		MaxConceptsPerGraph:         1_000_000,
		MaxRelationshipsPerGraph:    5_000_000,
	}
}
