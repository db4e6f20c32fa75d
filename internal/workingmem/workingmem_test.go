package workingmem_test

import (
	"testing"

	"github.com/lehelkovach/osl-agent-prototype-sub000/domain/core/valueobjects"
	"github.com/lehelkovach/osl-agent-prototype-sub000/internal/workingmem"

	"github.com/stretchr/testify/assert"
)

func TestMemory_LinkDoesNotReinforceExisting(t *testing.T) {
	m := workingmem.New()
	id := valueobjects.NewNodeID()

	m.Link(id)
	before := m.Snapshot()[id]

	m.Link(id)
	after := m.Snapshot()[id]

	assert.Equal(t, before, after)
}

func TestMemory_AccessReinforcesTargetAndDecaysOthers(t *testing.T) {
	m := workingmem.New()
	a := valueobjects.NewNodeID()
	b := valueobjects.NewNodeID()

	m.Link(a)
	m.Link(b)

	m.Access(a)

	snap := m.Snapshot()
	assert.Greater(t, snap[a], workingmem.DefaultDelta)
	assert.Less(t, snap[b], workingmem.DefaultDelta)
}

func TestMemory_AccessClampsAtWMax(t *testing.T) {
	m := workingmem.New()
	id := valueobjects.NewNodeID()
	m.Link(id)

	for i := 0; i < 1000; i++ {
		m.Access(id)
	}

	assert.LessOrEqual(t, m.Snapshot()[id], workingmem.DefaultWMax)
}

func TestMemory_BoostNudgesScoreByNormalizedWeight(t *testing.T) {
	m := workingmem.New()
	id := valueobjects.NewNodeID()
	m.Link(id)

	boosted := m.Boost(0.5, id)
	assert.Greater(t, boosted, 0.5)
}

func TestMemory_BoostUnknownNodeReturnsScoreUnchanged(t *testing.T) {
	m := workingmem.New()
	unknown := valueobjects.NewNodeID()

	assert.Equal(t, 0.5, m.Boost(0.5, unknown))
}

type recordingReplicator struct {
	snapshot map[valueobjects.NodeID]float64
}

func (r *recordingReplicator) Replicate(snapshot map[valueobjects.NodeID]float64) {
	r.snapshot = snapshot
}

func TestMemory_ReplicateHandsSnapshotToReplicator(t *testing.T) {
	rec := &recordingReplicator{}
	m := workingmem.New().WithReplicator(rec)
	id := valueobjects.NewNodeID()
	m.Link(id)

	m.Replicate()

	assert.Contains(t, rec.snapshot, id)
}
