package dynamodb

import (
	"testing"

	"github.com/lehelkovach/osl-agent-prototype-sub000/domain/core/entities"
	"github.com/lehelkovach/osl-agent-prototype-sub000/domain/core/valueobjects"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRelationshipKey_UsesSourcePartitionAndEdgeSort(t *testing.T) {
	sourceID := valueobjects.NewNodeID()
	key := relationshipKey(sourceID, "edge-1")

	pk, ok := key["PK"].(*types.AttributeValueMemberS)
	require.True(t, ok)
	assert.Equal(t, "CONCEPT#"+sourceID.String(), pk.Value)

	sk, ok := key["SK"].(*types.AttributeValueMemberS)
	require.True(t, ok)
	assert.Equal(t, "REL#edge-1", sk.Value)
}

func TestParseRelationshipItem_RoundTripsWeightAndType(t *testing.T) {
	targetID := valueobjects.NewNodeID()
	item := map[string]types.AttributeValue{
		"EdgeID":   &types.AttributeValueMemberS{Value: "edge-9"},
		"TargetID": &types.AttributeValueMemberS{Value: targetID.String()},
		"Type":     &types.AttributeValueMemberS{Value: string(entities.RelationGeneralization)},
		"Weight":   &types.AttributeValueMemberN{Value: "0.75"},
	}

	ref, err := parseRelationshipItem(item)
	require.NoError(t, err)

	assert.Equal(t, "edge-9", ref.EdgeID)
	assert.True(t, targetID.Equals(ref.TargetID))
	assert.Equal(t, entities.RelationGeneralization, ref.Type)
	assert.InDelta(t, 0.75, ref.Weight, 1e-9)
}

func TestParseRelationshipItem_RejectsInvalidTargetID(t *testing.T) {
	item := map[string]types.AttributeValue{
		"EdgeID":   &types.AttributeValueMemberS{Value: "edge-9"},
		"TargetID": &types.AttributeValueMemberS{Value: "not-a-uuid"},
		"Type":     &types.AttributeValueMemberS{Value: string(entities.RelationAssociation)},
		"Weight":   &types.AttributeValueMemberN{Value: "1"},
	}

	_, err := parseRelationshipItem(item)
	assert.Error(t, err)
}
