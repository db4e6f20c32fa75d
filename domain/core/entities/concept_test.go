package entities_test

import (
	"testing"
	"time"

	"github.com/lehelkovach/osl-agent-prototype-sub000/domain/config"
	"github.com/lehelkovach/osl-agent-prototype-sub000/domain/core/entities"
	"github.com/lehelkovach/osl-agent-prototype-sub000/domain/core/valueobjects"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProvenance() valueobjects.Provenance {
	return valueobjects.NewProvenance(valueobjects.SourceUser, valueobjects.NewTraceID(), 1.0, time.Now())
}

func TestNewConcept_RejectsEmptyKind(t *testing.T) {
	_, err := entities.NewConcept("", nil, valueobjects.EmptyProperties(), newProvenance())
	assert.Error(t, err)
}

func TestNewConcept_StartsInDraftWithVersionOne(t *testing.T) {
	c, err := entities.NewConcept("Credential", nil, valueobjects.EmptyProperties(), newProvenance())
	require.NoError(t, err)

	assert.True(t, c.IsDraft())
	assert.Equal(t, 1, c.Version())
	assert.Len(t, c.GetUncommittedEvents(), 1)
}

func TestConcept_UpdatePropertiesMergesAndBumpsVersion(t *testing.T) {
	c, err := entities.NewConcept("Credential", nil, valueobjects.NewProperties(map[string]interface{}{"domain": "example.com"}), newProvenance())
	require.NoError(t, err)

	err = c.UpdateProperties(valueobjects.NewProperties(map[string]interface{}{"recallCount": 1.0}))
	require.NoError(t, err)

	domain, _ := c.Properties().GetString("domain")
	assert.Equal(t, "example.com", domain)
	recallCount, _ := c.Properties().GetFloat("recallCount")
	assert.Equal(t, 1.0, recallCount)
	assert.Equal(t, 2, c.Version())
}

func TestConcept_UpdatePropertiesRejectedOnceArchived(t *testing.T) {
	c, err := entities.NewConcept("Credential", nil, valueobjects.EmptyProperties(), newProvenance())
	require.NoError(t, err)
	require.NoError(t, c.Archive())

	err = c.UpdateProperties(valueobjects.NewProperties(map[string]interface{}{"x": 1}))
	assert.Error(t, err)
}

func TestConcept_AddRelationshipRejectsSelfReference(t *testing.T) {
	c, err := entities.NewConcept("Procedure", nil, valueobjects.EmptyProperties(), newProvenance())
	require.NoError(t, err)

	err = c.AddRelationship(c.ID(), entities.RelationAssociation, 1.0)
	assert.Error(t, err)
}

func TestConcept_AddRelationshipRejectsDuplicate(t *testing.T) {
	c, err := entities.NewConcept("Procedure", nil, valueobjects.EmptyProperties(), newProvenance())
	require.NoError(t, err)
	target := valueobjects.NewNodeID()

	require.NoError(t, c.AddRelationship(target, entities.RelationAssociation, 1.0))
	err = c.AddRelationship(target, entities.RelationAssociation, 1.0)
	assert.Error(t, err)
}

func TestConcept_AddRelationshipEnforcesMaxRelationships(t *testing.T) {
	c, err := entities.NewConcept("Procedure", nil, valueobjects.EmptyProperties(), newProvenance())
	require.NoError(t, err)

	cfg := &config.DomainConfig{
		AllowSelfRelationships:      false,
		AllowDuplicateRelationships: true,
		MaxRelationshipsPerConcept:  1,
		MaxLabelsPerConcept:         50,
	}

	require.NoError(t, c.AddRelationshipWithConfig(valueobjects.NewNodeID(), entities.RelationAssociation, 1.0, cfg))
	err = c.AddRelationshipWithConfig(valueobjects.NewNodeID(), entities.RelationAssociation, 1.0, cfg)
	assert.Error(t, err)
}

func TestConcept_BoostRelationshipClampsToMax(t *testing.T) {
	c, err := entities.NewConcept("Procedure", nil, valueobjects.EmptyProperties(), newProvenance())
	require.NoError(t, err)
	target := valueobjects.NewNodeID()
	require.NoError(t, c.AddRelationship(target, entities.RelationAssociation, 0.9))

	require.NoError(t, c.BoostRelationship(target, 0.5, 1.0))

	rels := c.Relationships()
	require.Len(t, rels, 1)
	assert.Equal(t, 1.0, rels[0].Weight)
}

func TestConcept_DecayRelationshipsNeverDropsBelowFloor(t *testing.T) {
	c, err := entities.NewConcept("Procedure", nil, valueobjects.EmptyProperties(), newProvenance())
	require.NoError(t, err)
	target := valueobjects.NewNodeID()
	require.NoError(t, c.AddRelationship(target, entities.RelationAssociation, 0.1))

	c.DecayRelationships(0.5, 0.05)

	rels := c.Relationships()
	require.Len(t, rels, 1)
	assert.Equal(t, 0.05, rels[0].Weight)
}

func TestConcept_ArchiveSeversRelationships(t *testing.T) {
	c, err := entities.NewConcept("Procedure", nil, valueobjects.EmptyProperties(), newProvenance())
	require.NoError(t, err)
	require.NoError(t, c.AddRelationship(valueobjects.NewNodeID(), entities.RelationAssociation, 1.0))

	require.NoError(t, c.Archive())

	assert.True(t, c.IsArchived())
	assert.Empty(t, c.Relationships())
}

func TestConcept_ActivateRejectedFromArchived(t *testing.T) {
	c, err := entities.NewConcept("Procedure", nil, valueobjects.EmptyProperties(), newProvenance())
	require.NoError(t, err)
	require.NoError(t, c.Archive())

	assert.Error(t, c.Activate())
}

func TestConcept_SimilarityToIsSymmetricViaEmbedding(t *testing.T) {
	a, err := entities.NewConcept("Procedure", nil, valueobjects.EmptyProperties(), newProvenance())
	require.NoError(t, err)
	b, err := entities.NewConcept("Procedure", nil, valueobjects.EmptyProperties(), newProvenance())
	require.NoError(t, err)

	embA, _ := valueobjects.NewEmbedding([]float64{1, 0})
	embB, _ := valueobjects.NewEmbedding([]float64{0, 1})
	require.NoError(t, a.UpdateEmbedding(embA))
	require.NoError(t, b.UpdateEmbedding(embB))

	sim, err := a.SimilarityTo(b)
	require.NoError(t, err)
	assert.Equal(t, 0.0, sim)
}

func TestReconstructConcept_RejectsEmptyKind(t *testing.T) {
	_, err := entities.ReconstructConcept(valueobjects.NewNodeID(), "", nil, valueobjects.EmptyProperties(), valueobjects.Embedding{}, newProvenance(), entities.StatusActive, time.Now(), time.Now(), 1)
	assert.Error(t, err)
}

func TestReconstructConcept_PreservesVersionAndTimestamps(t *testing.T) {
	id := valueobjects.NewNodeID()
	created := time.Now().Add(-time.Hour)
	updated := time.Now()

	c, err := entities.ReconstructConcept(id, "Credential", []string{"secret"}, valueobjects.EmptyProperties(), valueobjects.Embedding{}, newProvenance(), entities.StatusActive, created, updated, 7)
	require.NoError(t, err)

	assert.True(t, c.ID().Equals(id))
	assert.Equal(t, 7, c.Version())
	assert.Equal(t, created, c.CreatedAt())
	assert.Equal(t, updated, c.UpdatedAt())
	assert.Empty(t, c.GetUncommittedEvents())
}
