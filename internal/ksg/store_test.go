package ksg_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/lehelkovach/osl-agent-prototype-sub000/domain/core/entities"
	"github.com/lehelkovach/osl-agent-prototype-sub000/domain/core/valueobjects"
	"github.com/lehelkovach/osl-agent-prototype-sub000/internal/ksg"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProvenance() valueobjects.Provenance {
	return valueobjects.NewProvenance(valueobjects.SourceUser, valueobjects.NewTraceID(), 1.0, time.Now())
}

func newConceptWithEmbedding(t *testing.T, store *ksg.Store, values []float64) *entities.Concept {
	t.Helper()
	embedding, err := valueobjects.NewEmbedding(values)
	require.NoError(t, err)
	c, err := entities.NewConcept(ksg.KindConcept, nil, valueobjects.EmptyProperties(), newProvenance())
	require.NoError(t, err)
	require.NoError(t, c.UpdateEmbedding(embedding))
	require.NoError(t, store.Upsert(c))
	return c
}

func TestStore_RecomputeCentroidEqualsMeanOfExemplars(t *testing.T) {
	store := ksg.NewStore()
	ctx := context.Background()

	prototype, err := store.CreatePrototype(ctx, "LoginForm", nil, newProvenance())
	require.NoError(t, err)

	exemplarA := newConceptWithEmbedding(t, store, []float64{1, 0, 0})
	exemplarB := newConceptWithEmbedding(t, store, []float64{0, 1, 0})

	require.NoError(t, store.AddExemplar(ctx, prototype.ID(), exemplarA.ID()))
	require.NoError(t, store.AddExemplar(ctx, prototype.ID(), exemplarB.ID()))

	updated, err := store.Get(prototype.ID())
	require.NoError(t, err)

	got := updated.Embedding().Values()
	tolerance := 1e-9 * float64(updated.Embedding().Dim())
	assert.InDelta(t, 0.5, got[0], tolerance)
	assert.InDelta(t, 0.5, got[1], tolerance)
	assert.InDelta(t, 0.0, got[2], tolerance)
}

func TestStore_RecomputeCentroidIsIdempotent(t *testing.T) {
	store := ksg.NewStore()
	ctx := context.Background()

	prototype, err := store.CreatePrototype(ctx, "LoginForm", nil, newProvenance())
	require.NoError(t, err)

	exemplar := newConceptWithEmbedding(t, store, []float64{3, 4, 0})
	require.NoError(t, store.AddExemplar(ctx, prototype.ID(), exemplar.ID()))

	first, err := store.Get(prototype.ID())
	require.NoError(t, err)
	firstEmbedding := first.Embedding()

	require.NoError(t, store.RecomputeCentroid(ctx, prototype.ID()))

	second, err := store.Get(prototype.ID())
	require.NoError(t, err)

	assert.True(t, firstEmbedding.Equals(second.Embedding()))
}

func TestStore_SearchOrdersBySimilarityDescending(t *testing.T) {
	store := ksg.NewStore()

	near := newConceptWithEmbedding(t, store, []float64{1, 0})
	far := newConceptWithEmbedding(t, store, []float64{0, 1})
	query, err := valueobjects.NewEmbedding([]float64{0.9, 0.1})
	require.NoError(t, err)

	results, err := store.Search(ksg.SearchFilters{}, &query, 0, -1)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.True(t, results[0].Concept.ID().Equals(near.ID()))
	assert.True(t, results[1].Concept.ID().Equals(far.ID()))
}

func TestStore_SearchStableUnderInsertionOrderPermutation(t *testing.T) {
	query, err := valueobjects.NewEmbedding([]float64{1, 0})
	require.NoError(t, err)

	firstOrder := ksg.NewStore()
	a := newConceptWithEmbedding(t, firstOrder, []float64{1, 0})
	b := newConceptWithEmbedding(t, firstOrder, []float64{0.5, 0.5})
	resultsA, err := firstOrder.Search(ksg.SearchFilters{}, &query, 0, -1)
	require.NoError(t, err)

	secondOrder := ksg.NewStore()
	_ = newConceptWithEmbedding(t, secondOrder, []float64{0.5, 0.5})
	_ = newConceptWithEmbedding(t, secondOrder, []float64{1, 0})
	resultsB, err := secondOrder.Search(ksg.SearchFilters{}, &query, 0, -1)
	require.NoError(t, err)

	require.Len(t, resultsA, 2)
	require.Len(t, resultsB, 2)
	assert.Equal(t, resultsA[0].Similarity, resultsB[0].Similarity)
	assert.Equal(t, resultsA[1].Similarity, resultsB[1].Similarity)
	assert.True(t, a.ID().Equals(resultsA[0].Concept.ID()))
	assert.True(t, b.ID().Equals(resultsA[1].Concept.ID()))
}

func TestStore_SearchExcludesArchivedConcepts(t *testing.T) {
	store := ksg.NewStore()
	c := newConceptWithEmbedding(t, store, []float64{1, 0})
	require.NoError(t, c.Archive())
	require.NoError(t, store.Upsert(c))

	results, err := store.Search(ksg.SearchFilters{}, nil, 0, -1)
	require.NoError(t, err)
	assert.Empty(t, results)
}

// TestStore_ConcurrentUpsertsAreRaceFree exercises the per-UUID stripe lock
// (§5): many goroutines hammering distinct and overlapping ids must never
// corrupt the graph or trip the race detector.
func TestStore_ConcurrentUpsertsAreRaceFree(t *testing.T) {
	store := ksg.NewStore()
	ids := make([]valueobjects.NodeID, 8)
	for i := range ids {
		c, err := entities.NewConcept(ksg.KindConcept, nil, valueobjects.EmptyProperties(), newProvenance())
		require.NoError(t, err)
		require.NoError(t, store.Upsert(c))
		ids[i] = c.ID()
	}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		for _, id := range ids {
			wg.Add(1)
			go func(id valueobjects.NodeID) {
				defer wg.Done()
				c, err := store.Get(id)
				if err != nil {
					return
				}
				_ = store.Upsert(c)
			}(id)
		}
	}
	wg.Wait()

	for _, id := range ids {
		_, err := store.Get(id)
		assert.NoError(t, err)
	}
}

func TestStore_AddExemplarLinksAndRecomputesCentroid(t *testing.T) {
	store := ksg.NewStore()
	ctx := context.Background()

	prototype, err := store.CreatePrototype(ctx, "LoginForm", nil, newProvenance())
	require.NoError(t, err)
	exemplar := newConceptWithEmbedding(t, store, []float64{1, 1})

	require.NoError(t, store.AddExemplar(ctx, prototype.ID(), exemplar.ID()))

	reloaded, err := store.Get(exemplar.ID())
	require.NoError(t, err)
	assert.True(t, reloaded.HasRelationshipTo(prototype.ID()))
}

func TestStore_CreateConceptValidatesAgainstPrototypeSchema(t *testing.T) {
	store := ksg.NewStore()
	ctx := context.Background()

	prototype, err := store.CreatePrototype(ctx, "Credential", []valueobjects.PropertyDef{
		{Name: "domain", Type: valueobjects.ValueTypeString, Required: true},
	}, newProvenance())
	require.NoError(t, err)

	_, err = store.CreateConcept(ctx, prototype.ID(), nil, valueobjects.EmptyProperties(), valueobjects.Embedding{}, newProvenance())
	assert.Error(t, err)

	_, err = store.CreateConcept(ctx, prototype.ID(), nil, valueobjects.NewProperties(map[string]interface{}{"domain": "example.com"}), valueobjects.Embedding{}, newProvenance())
	assert.NoError(t, err)
}
