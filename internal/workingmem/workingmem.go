// Package workingmem implements working memory (C7): a session-scoped
// directed weighted graph keyed by concept UUID that boosts recall ranking
// toward recently or frequently accessed concepts without persisting by
// default.
package workingmem

import (
	"sync"

	"github.com/lehelkovach/osl-agent-prototype-sub000/domain/core/valueobjects"
)

// Defaults for the §4.7 reinforcement constants.
const (
	DefaultDelta = 1.0
	DefaultWMax  = 100.0
	DefaultGamma = 0.001
	DefaultAlpha = 0.1
)

// AsyncReplicator receives periodic activation snapshots for long-term
// persistence when enabled. The module ships no implementation; the caller
// supplies one.
type AsyncReplicator interface {
	Replicate(snapshot map[valueobjects.NodeID]float64)
}

// Memory is one session's activation graph.
type Memory struct {
	mu     sync.Mutex
	weight map[valueobjects.NodeID]float64

	delta float64
	wMax  float64
	gamma float64
	alpha float64

	replicator AsyncReplicator
}

// New builds an empty working memory with the §4.7 default constants.
func New() *Memory {
	return &Memory{
		weight: make(map[valueobjects.NodeID]float64),
		delta:  DefaultDelta,
		wMax:   DefaultWMax,
		gamma:  DefaultGamma,
		alpha:  DefaultAlpha,
	}
}

// WithReplicator attaches an AsyncReplicator, returning m for chaining.
func (m *Memory) WithReplicator(r AsyncReplicator) *Memory {
	m.replicator = r
	return m
}

// Link ensures a node exists with weight at least the minimum starting
// weight (one reinforcement's worth), without reinforcing an existing node.
func (m *Memory) Link(id valueobjects.NodeID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.weight[id]; !exists {
		m.weight[id] = m.delta
	}
}

// Access reinforces id's weight toward wMax and decays every other node by
// (1-gamma), keeping the overall activation distribution bounded (§4.7).
func (m *Memory) Access(id valueobjects.NodeID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for other := range m.weight {
		if !other.Equals(id) {
			m.weight[other] *= 1 - m.gamma
		}
	}

	w := m.weight[id]
	m.weight[id] = min(w+m.delta, m.wMax)
}

// Boost returns score nudged by alpha * normalized activation weight of id,
// so activation influences ranking without dominating similarity (§4.7).
func (m *Memory) Boost(score float64, id valueobjects.NodeID) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	w, ok := m.weight[id]
	if !ok || m.wMax == 0 {
		return score
	}
	return score + m.alpha*(w/m.wMax)
}

// Snapshot returns a defensive copy of the current activation weights, used
// to hand off to an AsyncReplicator on a timer.
func (m *Memory) Snapshot() map[valueobjects.NodeID]float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := make(map[valueobjects.NodeID]float64, len(m.weight))
	for k, v := range m.weight {
		cp[k] = v
	}
	return cp
}

// Replicate hands the current snapshot to the attached AsyncReplicator, if
// any; a no-op otherwise. Intended to be called from a timer goroutine.
func (m *Memory) Replicate() {
	if m.replicator == nil {
		return
	}
	m.replicator.Replicate(m.Snapshot())
}

func min(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
