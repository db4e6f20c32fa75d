package dynamodb

import (
	"testing"
	"time"

	"github.com/lehelkovach/osl-agent-prototype-sub000/domain/core/entities"
	"github.com/lehelkovach/osl-agent-prototype-sub000/domain/core/valueobjects"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConceptEntityConfig_ToItemThenParseItemRoundTrips(t *testing.T) {
	embedding, err := valueobjects.NewEmbedding([]float64{0.1, 0.2, 0.3})
	require.NoError(t, err)
	provenance := valueobjects.NewProvenance(valueobjects.SourceLLM, valueobjects.NewTraceID(), 0.8, time.Now().Truncate(time.Second))

	concept, err := entities.NewConcept("Credential", []string{"secret", "example.com"}, valueobjects.NewProperties(map[string]interface{}{
		"domain": "example.com",
	}), provenance)
	require.NoError(t, err)
	require.NoError(t, concept.UpdateEmbedding(embedding))
	require.NoError(t, concept.Activate())

	cfg := &conceptEntityConfig{}
	item, err := cfg.ToItem(&conceptEntity{concept: concept})
	require.NoError(t, err)

	pk, ok := item["PK"].(*types.AttributeValueMemberS)
	require.True(t, ok)
	assert.Equal(t, "CONCEPT#"+concept.ID().String(), pk.Value)

	parsed, err := parseConceptItem(item)
	require.NoError(t, err)

	assert.True(t, concept.ID().Equals(parsed.ID()))
	assert.Equal(t, concept.Kind(), parsed.Kind())
	assert.ElementsMatch(t, concept.Labels(), parsed.Labels())
	assert.Equal(t, concept.Status(), parsed.Status())
	assert.Equal(t, concept.Version(), parsed.Version())

	domain, ok := parsed.Properties().GetString("domain")
	assert.True(t, ok)
	assert.Equal(t, "example.com", domain)

	assert.True(t, embedding.Equals(parsed.Embedding()))

	assert.Equal(t, provenance.Source(), parsed.Provenance().Source())
	assert.Equal(t, provenance.TraceID(), parsed.Provenance().TraceID())
	assert.InDelta(t, provenance.Confidence(), parsed.Provenance().Confidence(), 1e-9)
	assert.True(t, provenance.RecordedAt().Equal(parsed.Provenance().RecordedAt()))
}

func TestConceptEntityConfig_ToItemOmitsEmbeddingWhenUnset(t *testing.T) {
	concept, err := entities.NewConcept("Credential", nil, valueobjects.EmptyProperties(), valueobjects.NewProvenance(valueobjects.SourceUser, valueobjects.NewTraceID(), 1.0, time.Now()))
	require.NoError(t, err)

	cfg := &conceptEntityConfig{}
	item, err := cfg.ToItem(&conceptEntity{concept: concept})
	require.NoError(t, err)

	_, hasEmbedding := item["Embedding"]
	assert.False(t, hasEmbedding)

	parsed, err := parseConceptItem(item)
	require.NoError(t, err)
	assert.True(t, parsed.Embedding().IsZero())
}

func TestConceptEntityConfig_BuildKeyUsesConceptPrefix(t *testing.T) {
	cfg := &conceptEntityConfig{}
	key := cfg.BuildKey("abc-123")

	pk, ok := key["PK"].(*types.AttributeValueMemberS)
	require.True(t, ok)
	assert.Equal(t, "CONCEPT#abc-123", pk.Value)

	sk, ok := key["SK"].(*types.AttributeValueMemberS)
	require.True(t, ok)
	assert.Equal(t, "CONCEPT#abc-123", sk.Value)
}
