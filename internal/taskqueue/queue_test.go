package taskqueue_test

import (
	"testing"
	"time"

	"github.com/lehelkovach/osl-agent-prototype-sub000/domain/core/valueobjects"
	agenterrors "github.com/lehelkovach/osl-agent-prototype-sub000/internal/errors"
	"github.com/lehelkovach/osl-agent-prototype-sub000/internal/ksg"
	"github.com/lehelkovach/osl-agent-prototype-sub000/internal/taskqueue"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testProvenance() valueobjects.Provenance {
	return valueobjects.NewProvenance(valueobjects.SourceTool, "", 1.0, time.Now())
}

func TestQueue_DequeueOrdersByPriority(t *testing.T) {
	q := taskqueue.NewQueue(nil)

	low, err := q.Enqueue(valueobjects.NodeID{}, valueobjects.NodeID{}, valueobjects.NodeID{}, 1, time.Time{}, testProvenance())
	require.NoError(t, err)
	high, err := q.Enqueue(valueobjects.NodeID{}, valueobjects.NodeID{}, valueobjects.NodeID{}, 5, time.Time{}, testProvenance())
	require.NoError(t, err)

	item, err := q.Dequeue()
	require.NoError(t, err)
	assert.Equal(t, high.ID, item.ID)
	assert.Equal(t, taskqueue.StateRunning, item.State)

	_ = low
}

func TestQueue_DequeueSkipsNotYetDueItems(t *testing.T) {
	q := taskqueue.NewQueue(nil)

	_, err := q.Enqueue(valueobjects.NodeID{}, valueobjects.NodeID{}, valueobjects.NodeID{}, 10, time.Now().Add(time.Hour), testProvenance())
	require.NoError(t, err)

	_, err = q.Dequeue()
	require.Error(t, err)
	assert.True(t, agenterrors.Is(err, agenterrors.KindNotFound))
}

func TestQueue_UpdateStatusEnforcesMonotonicLifecycle(t *testing.T) {
	q := taskqueue.NewQueue(nil)
	item, err := q.Enqueue(valueobjects.NodeID{}, valueobjects.NodeID{}, valueobjects.NodeID{}, 0, time.Time{}, testProvenance())
	require.NoError(t, err)

	err = q.UpdateStatus(item.ID, taskqueue.StateDone)
	require.Error(t, err)
	assert.True(t, agenterrors.Is(err, agenterrors.KindInvariantViolation))

	_, err = q.Dequeue()
	require.NoError(t, err)

	err = q.UpdateStatus(item.ID, taskqueue.StateDone)
	require.NoError(t, err)

	err = q.UpdateStatus(item.ID, taskqueue.StateRunning)
	require.Error(t, err)
	assert.True(t, agenterrors.Is(err, agenterrors.KindInvariantViolation))
}

func TestQueue_UpdateStatusUnknownItemReturnsNotFound(t *testing.T) {
	q := taskqueue.NewQueue(nil)
	err := q.UpdateStatus(valueobjects.NewNodeID(), taskqueue.StateRunning)
	require.Error(t, err)
	assert.True(t, agenterrors.Is(err, agenterrors.KindNotFound))
}

func TestQueue_ListItemsExcludesNotYetDueAndNonQueuedItems(t *testing.T) {
	q := taskqueue.NewQueue(nil)

	ready, err := q.Enqueue(valueobjects.NodeID{}, valueobjects.NodeID{}, valueobjects.NodeID{}, 0, time.Time{}, testProvenance())
	require.NoError(t, err)
	_, err = q.Enqueue(valueobjects.NodeID{}, valueobjects.NodeID{}, valueobjects.NodeID{}, 0, time.Now().Add(time.Hour), testProvenance())
	require.NoError(t, err)

	items := q.ListItems(taskqueue.Filter{})
	require.Len(t, items, 1)
	assert.Equal(t, ready.ID, items[0].ID)
}

func TestQueue_EnqueuePersistsQueueItemConceptWhenKSGAttached(t *testing.T) {
	store := ksg.NewStore()
	q := taskqueue.NewQueue(store)

	queueConcept, err := store.CreateNode("Queue", nil, valueobjects.EmptyProperties(), testProvenance())
	require.NoError(t, err)

	item, err := q.Enqueue(queueConcept.ID(), valueobjects.NodeID{}, valueobjects.NodeID{}, 3, time.Time{}, testProvenance())
	require.NoError(t, err)

	concept, err := store.Get(item.ID)
	require.NoError(t, err)
	state, _ := concept.Properties().GetString("state")
	assert.Equal(t, string(taskqueue.StateQueued), state)
}
