package valueobjects_test

import (
	"math"
	"testing"

	"github.com/lehelkovach/osl-agent-prototype-sub000/domain/core/valueobjects"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMeanEmbedding_EqualsSumOverCountWithinTolerance(t *testing.T) {
	vectors := [][]float64{
		{1, 0, 0},
		{0, 1, 0},
		{0, 0, 1},
	}
	embeddings := make([]valueobjects.Embedding, len(vectors))
	for i, v := range vectors {
		e, err := valueobjects.NewEmbedding(v)
		require.NoError(t, err)
		embeddings[i] = e
	}

	centroid, err := valueobjects.MeanEmbedding(embeddings)
	require.NoError(t, err)

	want := []float64{1.0 / 3, 1.0 / 3, 1.0 / 3}
	got := centroid.Values()
	tolerance := 1e-9 * float64(centroid.Dim())
	for i := range want {
		assert.InDelta(t, want[i], got[i], tolerance)
	}
}

func TestMeanEmbedding_RejectsDimensionMismatch(t *testing.T) {
	a, _ := valueobjects.NewEmbedding([]float64{1, 2})
	b, _ := valueobjects.NewEmbedding([]float64{1, 2, 3})

	_, err := valueobjects.MeanEmbedding([]valueobjects.Embedding{a, b})
	assert.Error(t, err)
}

func TestMeanEmbedding_RejectsEmptyInput(t *testing.T) {
	_, err := valueobjects.MeanEmbedding(nil)
	assert.Error(t, err)
}

func TestCosineSimilarity_IsSymmetric(t *testing.T) {
	a, _ := valueobjects.NewEmbedding([]float64{1, 2, 3})
	b, _ := valueobjects.NewEmbedding([]float64{4, -5, 6})

	ab, err := a.CosineSimilarity(b)
	require.NoError(t, err)
	ba, err := b.CosineSimilarity(a)
	require.NoError(t, err)

	assert.InDelta(t, ab, ba, 1e-12)
}

func TestCosineSimilarity_ParallelVectorsScoreOne(t *testing.T) {
	a, _ := valueobjects.NewEmbedding([]float64{2, 0, 0})
	b, _ := valueobjects.NewEmbedding([]float64{5, 0, 0})

	sim, err := a.CosineSimilarity(b)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, sim, 1e-12)
}

func TestCosineSimilarity_ZeroNormVectorScoresZero(t *testing.T) {
	zero, _ := valueobjects.NewEmbedding([]float64{0, 0, 0})
	other, _ := valueobjects.NewEmbedding([]float64{1, 1, 1})

	sim, err := zero.CosineSimilarity(other)
	require.NoError(t, err)
	assert.Equal(t, 0.0, sim)
}

func TestCosineSimilarity_RejectsDimensionMismatch(t *testing.T) {
	a, _ := valueobjects.NewEmbedding([]float64{1, 2})
	b, _ := valueobjects.NewEmbedding([]float64{1, 2, 3})

	_, err := a.CosineSimilarity(b)
	assert.Error(t, err)
}

func TestNewEmbedding_RejectsNonFiniteValues(t *testing.T) {
	_, err := valueobjects.NewEmbedding([]float64{1, math.NaN()})
	assert.Error(t, err)

	_, err = valueobjects.NewEmbedding([]float64{1, math.Inf(1)})
	assert.Error(t, err)
}

func TestEmbedding_ValuesReturnsDefensiveCopy(t *testing.T) {
	e, err := valueobjects.NewEmbedding([]float64{1, 2, 3})
	require.NoError(t, err)

	got := e.Values()
	got[0] = 999

	assert.Equal(t, []float64{1, 2, 3}, e.Values())
}
