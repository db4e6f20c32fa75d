package dynamodb

import (
	"context"
	"fmt"

	"github.com/lehelkovach/osl-agent-prototype-sub000/application/ports"
	"github.com/lehelkovach/osl-agent-prototype-sub000/domain/core/entities"
	"github.com/lehelkovach/osl-agent-prototype-sub000/domain/core/valueobjects"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

// RelationshipRepository implements ports.RelationshipRepository. Each
// relationship is stored as its own item with PK=CONCEPT#<sourceID>,
// SK=REL#<edgeID>, in the same item collection as its source concept, so
// GetBySource and the concept's own GetItem can both be served by the
// source's partition without a secondary lookup.
type RelationshipRepository struct {
	client          *dynamodb.Client
	tableName       string
	relationIndex   string // GSI2: relation type -> edge
	logger          *zap.Logger
}

var _ ports.RelationshipRepository = (*RelationshipRepository)(nil)

func NewRelationshipRepository(client *dynamodb.Client, tableName, relationIndexName string, logger *zap.Logger) *RelationshipRepository {
	return &RelationshipRepository{
		client:        client,
		tableName:     tableName,
		relationIndex: relationIndexName,
		logger:        logger,
	}
}

func relationshipKey(sourceID valueobjects.NodeID, edgeID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: fmt.Sprintf("CONCEPT#%s", sourceID.String())},
		"SK": &types.AttributeValueMemberS{Value: fmt.Sprintf("REL#%s", edgeID)},
	}
}

func (r *RelationshipRepository) Save(ctx context.Context, sourceID valueobjects.NodeID, rel entities.RelationshipRef) error {
	item := map[string]types.AttributeValue{
		"PK":         &types.AttributeValueMemberS{Value: fmt.Sprintf("CONCEPT#%s", sourceID.String())},
		"SK":         &types.AttributeValueMemberS{Value: fmt.Sprintf("REL#%s", rel.EdgeID)},
		"EntityType": &types.AttributeValueMemberS{Value: "RELATIONSHIP"},
		"EdgeID":     &types.AttributeValueMemberS{Value: rel.EdgeID},
		"SourceID":   &types.AttributeValueMemberS{Value: sourceID.String()},
		"TargetID":   &types.AttributeValueMemberS{Value: rel.TargetID.String()},
		"Type":       &types.AttributeValueMemberS{Value: string(rel.Type)},
		"Weight":     &types.AttributeValueMemberN{Value: fmt.Sprintf("%g", rel.Weight)},

		"GSI2PK": &types.AttributeValueMemberS{Value: fmt.Sprintf("RELTYPE#%s", rel.Type)},
		"GSI2SK": &types.AttributeValueMemberS{Value: fmt.Sprintf("REL#%s", rel.EdgeID)},
	}

	_, err := r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("failed to save relationship: %w", err)
	}
	return nil
}

func (r *RelationshipRepository) GetBySource(ctx context.Context, sourceID valueobjects.NodeID) ([]entities.RelationshipRef, error) {
	keyExpr := expression.Key("PK").Equal(expression.Value(fmt.Sprintf("CONCEPT#%s", sourceID.String()))).
		And(expression.Key("SK").BeginsWith("REL#"))

	expr, err := expression.NewBuilder().WithKeyCondition(keyExpr).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build expression: %w", err)
	}

	result, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query relationships: %w", err)
	}

	return r.parseAll(result.Items), nil
}

func (r *RelationshipRepository) Delete(ctx context.Context, sourceID valueobjects.NodeID, edgeID string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       relationshipKey(sourceID, edgeID),
	})
	if err != nil {
		return fmt.Errorf("failed to delete relationship: %w", err)
	}
	return nil
}

func (r *RelationshipRepository) DeleteBySource(ctx context.Context, sourceID valueobjects.NodeID) error {
	refs, err := r.GetBySource(ctx, sourceID)
	if err != nil {
		return err
	}
	if len(refs) == 0 {
		return nil
	}

	requests := make([]types.WriteRequest, len(refs))
	for i, ref := range refs {
		requests[i] = types.WriteRequest{DeleteRequest: &types.DeleteRequest{Key: relationshipKey(sourceID, ref.EdgeID)}}
	}

	_, err = r.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
		RequestItems: map[string][]types.WriteRequest{r.tableName: requests},
	})
	if err != nil {
		return fmt.Errorf("failed to delete relationships: %w", err)
	}
	return nil
}

func (r *RelationshipRepository) FindByType(ctx context.Context, relType entities.RelationType) ([]entities.RelationshipRef, error) {
	keyExpr := expression.Key("GSI2PK").Equal(expression.Value(fmt.Sprintf("RELTYPE#%s", relType)))

	expr, err := expression.NewBuilder().WithKeyCondition(keyExpr).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build expression: %w", err)
	}

	result, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String(r.relationIndex),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query relationships by type: %w", err)
	}

	return r.parseAll(result.Items), nil
}

// FindStrongRelationships scans the table for relationships at or above
// minWeight. There is no GSI over Weight since it changes continuously as
// boost/decay runs (§4.6); a scan keeps the write path free of a
// high-cardinality index to maintain.
func (r *RelationshipRepository) FindStrongRelationships(ctx context.Context, minWeight float64) ([]entities.RelationshipRef, error) {
	filter := expression.Name("EntityType").Equal(expression.Value("RELATIONSHIP")).
		And(expression.Name("Weight").GreaterThanEqual(expression.Value(minWeight)))

	expr, err := expression.NewBuilder().WithFilter(filter).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build expression: %w", err)
	}

	result, err := r.client.Scan(ctx, &dynamodb.ScanInput{
		TableName:                 aws.String(r.tableName),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan relationships: %w", err)
	}

	return r.parseAll(result.Items), nil
}

func (r *RelationshipRepository) CountByType(ctx context.Context) (map[entities.RelationType]int, error) {
	filter := expression.Name("EntityType").Equal(expression.Value("RELATIONSHIP"))

	expr, err := expression.NewBuilder().WithFilter(filter).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build expression: %w", err)
	}

	result, err := r.client.Scan(ctx, &dynamodb.ScanInput{
		TableName:                 aws.String(r.tableName),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan relationships: %w", err)
	}

	counts := map[entities.RelationType]int{}
	for _, ref := range r.parseAll(result.Items) {
		counts[ref.Type]++
	}
	return counts, nil
}

func (r *RelationshipRepository) parseAll(items []map[string]types.AttributeValue) []entities.RelationshipRef {
	refs := make([]entities.RelationshipRef, 0, len(items))
	for _, item := range items {
		ref, err := parseRelationshipItem(item)
		if err != nil {
			r.logger.Warn("failed to parse relationship item", zap.Error(err))
			continue
		}
		refs = append(refs, ref)
	}
	return refs
}

func parseRelationshipItem(item map[string]types.AttributeValue) (entities.RelationshipRef, error) {
	edgeID := ""
	if v, ok := item["EdgeID"].(*types.AttributeValueMemberS); ok {
		edgeID = v.Value
	}

	targetIDStr := ""
	if v, ok := item["TargetID"].(*types.AttributeValueMemberS); ok {
		targetIDStr = v.Value
	}
	targetID, err := valueobjects.NewNodeIDFromString(targetIDStr)
	if err != nil {
		return entities.RelationshipRef{}, fmt.Errorf("invalid target id in relationship item: %w", err)
	}

	relType := ""
	if v, ok := item["Type"].(*types.AttributeValueMemberS); ok {
		relType = v.Value
	}

	var weight float64
	if v, ok := item["Weight"].(*types.AttributeValueMemberN); ok {
		fmt.Sscanf(v.Value, "%g", &weight)
	}

	return entities.RelationshipRef{
		EdgeID:   edgeID,
		TargetID: targetID,
		Type:     entities.RelationType(relType),
		Weight:   weight,
	}, nil
}
