// Package taskqueue implements the task queue (C5): QueueItem concepts
// enqueued against a Queue, dequeued in priority/notBefore/enqueuedAt/uuid
// order, with a monotonic state lifecycle enforced on every transition.
package taskqueue

import (
	"container/heap"
	"context"
	"sync"
	"time"

	"github.com/lehelkovach/osl-agent-prototype-sub000/domain/core/entities"
	"github.com/lehelkovach/osl-agent-prototype-sub000/domain/core/valueobjects"
	agenterrors "github.com/lehelkovach/osl-agent-prototype-sub000/internal/errors"
	"github.com/lehelkovach/osl-agent-prototype-sub000/internal/ksg"
)

// State is a QueueItem's lifecycle state. Transitions are monotonic:
// queued → running → {done | failed}; any other transition is rejected.
type State string

const (
	StateQueued  State = "queued"
	StateRunning State = "running"
	StateDone    State = "done"
	StateFailed  State = "failed"
)

var validTransitions = map[State][]State{
	StateQueued:  {StateRunning},
	StateRunning: {StateDone, StateFailed},
}

// KindQueueItem is the Concept kind a queued item is stored as.
const KindQueueItem = "QueueItem"

// Item is an enqueued unit of work.
type Item struct {
	ID          valueobjects.NodeID
	State       State
	Priority    int
	NotBefore   time.Time
	EnqueuedAt  time.Time
	TaskRef     valueobjects.NodeID
	ProcedureID valueobjects.NodeID
}

// heapItem orders queued items per §4.5: priority desc, notBefore asc,
// enqueuedAt asc, uuid asc.
type itemHeap []*Item

func (h itemHeap) Len() int { return len(h) }
func (h itemHeap) Less(i, j int) bool {
	a, b := h[i], h[j]
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	if !a.NotBefore.Equal(b.NotBefore) {
		return a.NotBefore.Before(b.NotBefore)
	}
	if !a.EnqueuedAt.Equal(b.EnqueuedAt) {
		return a.EnqueuedAt.Before(b.EnqueuedAt)
	}
	return a.ID.String() < b.ID.String()
}
func (h itemHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *itemHeap) Push(x interface{}) { *h = append(*h, x.(*Item)) }
func (h *itemHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// Queue is a single-process, mutex-serialized task queue. Every operation
// takes the same lock, so concurrent enqueue/dequeue calls observe a total
// order consistent with the priority/notBefore/enqueuedAt/uuid ranking.
type Queue struct {
	mu    sync.Mutex
	heap  itemHeap
	byID  map[valueobjects.NodeID]*Item
	ksg   *ksg.Store
}

// NewQueue builds an empty queue, optionally persisting QueueItem concepts
// into ksgStore (nil disables persistence, keeping the queue purely
// in-memory).
func NewQueue(ksgStore *ksg.Store) *Queue {
	return &Queue{byID: make(map[valueobjects.NodeID]*Item), ksg: ksgStore}
}

// Enqueue creates a QueueItem, defaulting notBefore to now and priority to
// 0, and links it `contains` from queueID, `references` taskRef, and
// `runsProcedure` procedureID when those are non-zero.
func (q *Queue) Enqueue(queueID, taskRef, procedureID valueobjects.NodeID, priority int, notBefore time.Time, provenance valueobjects.Provenance) (*Item, error) {
	if notBefore.IsZero() {
		notBefore = time.Now()
	}

	item := &Item{
		ID:          valueobjects.NewNodeID(),
		State:       StateQueued,
		Priority:    priority,
		NotBefore:   notBefore,
		EnqueuedAt:  time.Now(),
		TaskRef:     taskRef,
		ProcedureID: procedureID,
	}

	if q.ksg != nil {
		props := valueobjects.EmptyProperties().
			With("state", string(StateQueued)).
			With("priority", priority).
			With("notBefore", notBefore).
			With("enqueuedAt", item.EnqueuedAt)
		concept, err := q.ksg.CreateNode(KindQueueItem, nil, props, provenance)
		if err != nil {
			return nil, err
		}
		item.ID = concept.ID()

		if !queueID.IsZero() {
			if _, lerr := q.ksg.CreateRelationship(context.TODO(), queueID, item.ID, entities.RelationContains, 1.0); lerr != nil {
				return nil, lerr
			}
		}
		if !taskRef.IsZero() {
			if _, lerr := q.ksg.CreateRelationship(context.TODO(), item.ID, taskRef, entities.RelationReferences, 1.0); lerr != nil {
				return nil, lerr
			}
		}
		if !procedureID.IsZero() {
			if _, lerr := q.ksg.CreateRelationship(context.TODO(), item.ID, procedureID, entities.RelationRunsProcedure, 1.0); lerr != nil {
				return nil, lerr
			}
		}
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	heap.Push(&q.heap, item)
	q.byID[item.ID] = item

	return item, nil
}

// Filter narrows ListItems to items matching every non-zero field.
type Filter struct {
	State State
}

// ListItems returns queued, ready (notBefore <= now) items in dequeue order,
// without removing them.
func (q *Queue) ListItems(filter Filter) []*Item {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := time.Now()
	out := make([]*Item, 0, len(q.heap))
	for _, item := range q.heap {
		if item.State != StateQueued || item.NotBefore.After(now) {
			continue
		}
		if filter.State != "" && filter.State != item.State {
			continue
		}
		out = append(out, item)
	}

	sortItems(out)
	return out
}

func sortItems(items []*Item) {
	for i := 1; i < len(items); i++ {
		for j := i; j > 0 && lessItems(items[j], items[j-1]); j-- {
			items[j], items[j-1] = items[j-1], items[j]
		}
	}
}

func lessItems(a, b *Item) bool {
	h := itemHeap{a, b}
	return h.Less(0, 1)
}

// Dequeue atomically pops the head of the ready queue and transitions it to
// running. Returns agenterrors.NotFound if nothing is ready.
func (q *Queue) Dequeue() (*Item, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := time.Now()
	var ready []*Item
	for _, item := range q.heap {
		if item.State == StateQueued && !item.NotBefore.After(now) {
			ready = append(ready, item)
		}
	}
	if len(ready) == 0 {
		return nil, agenterrors.NotFound("no ready queue items")
	}

	sortItems(ready)
	head := ready[0]
	head.State = StateRunning

	if q.ksg != nil {
		patch := valueobjects.EmptyProperties().With("state", string(StateRunning))
		_ = q.ksg.UpdateProperties(context.TODO(), head.ID, patch)
	}

	return head, nil
}

// UpdateStatus enforces the monotonic lifecycle: queued→running→{done,failed}.
// Any other transition, including a regression, returns InvariantViolation.
func (q *Queue) UpdateStatus(id valueobjects.NodeID, next State) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	item, ok := q.byID[id]
	if !ok {
		return agenterrors.NotFound("queue item not found")
	}

	allowed := validTransitions[item.State]
	permitted := false
	for _, s := range allowed {
		if s == next {
			permitted = true
			break
		}
	}
	if !permitted {
		return agenterrors.InvariantViolation("invalid queue state transition: " + string(item.State) + " -> " + string(next))
	}

	item.State = next
	if item.State == StateDone || item.State == StateFailed {
		q.removeFromHeap(id)
	}

	if q.ksg != nil {
		patch := valueobjects.EmptyProperties().With("state", string(next))
		_ = q.ksg.UpdateProperties(context.TODO(), id, patch)
	}

	return nil
}

func (q *Queue) removeFromHeap(id valueobjects.NodeID) {
	for i, item := range q.heap {
		if item.ID.Equals(id) {
			heap.Remove(&q.heap, i)
			return
		}
	}
}
