// Package dynamodb persists the knowledge-subsystem graph (§4.1 Memory
// Store contract) behind a single DynamoDB table, the durable counterpart
// to internal/ksg.Store's in-memory map.
package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

// Entity represents a domain entity that can be stored in DynamoDB. Unlike
// the per-user note graph this table layout is adapted from, concepts
// belong to one shared knowledge graph rather than to a user's partition,
// so the entity contract only needs an id and an optimistic-lock version.
type Entity interface {
	GetID() string
	GetVersion() int
}

// EntityConfig defines entity-specific behavior for the generic repository.
type EntityConfig[T Entity] interface {
	// ParseItem converts a DynamoDB item to the entity type.
	ParseItem(item map[string]types.AttributeValue) (T, error)
	// ToItem converts an entity to a DynamoDB item.
	ToItem(entity T) (map[string]types.AttributeValue, error)
	// BuildKey creates the primary key for the entity.
	BuildKey(entityID string) map[string]types.AttributeValue
	// GetEntityType returns the entity type name for filtering.
	GetEntityType() string
}

// GenericRepository provides common CRUD operations shared by every entity
// type stored in the table, so ConceptRepository and RelationshipRepository
// only need to supply marshaling and key-building logic.
type GenericRepository[T Entity] struct {
	client    *dynamodb.Client
	tableName string
	config    EntityConfig[T]
	logger    *zap.Logger
}

// NewGenericRepository creates a new generic repository instance.
func NewGenericRepository[T Entity](
	client *dynamodb.Client,
	tableName string,
	config EntityConfig[T],
	logger *zap.Logger,
) *GenericRepository[T] {
	return &GenericRepository[T]{
		client:    client,
		tableName: tableName,
		config:    config,
		logger:    logger,
	}
}

// Save creates or updates an entity with optimistic locking.
func (r *GenericRepository[T]) Save(ctx context.Context, entity T) error {
	item, err := r.config.ToItem(entity)
	if err != nil {
		return fmt.Errorf("failed to convert entity to item: %w", err)
	}

	item["UpdatedAt"] = &types.AttributeValueMemberS{Value: time.Now().Format(time.RFC3339)}

	var condition expression.ConditionBuilder
	if entity.GetVersion() > 1 {
		condition = expression.Name("Version").Equal(expression.Value(entity.GetVersion() - 1))
	} else {
		condition = expression.Name("PK").AttributeNotExists()
	}

	expr, err := expression.NewBuilder().WithCondition(condition).Build()
	if err != nil {
		return fmt.Errorf("failed to build expression: %w", err)
	}

	input := &dynamodb.PutItemInput{
		TableName:                 aws.String(r.tableName),
		Item:                      item,
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	}

	_, err = r.client.PutItem(ctx, input)
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return fmt.Errorf("optimistic lock failed: %w", err)
		}
		return fmt.Errorf("failed to save entity: %w", err)
	}

	r.logger.Debug("entity saved",
		zap.String("entityType", r.config.GetEntityType()),
		zap.String("entityID", entity.GetID()),
	)

	return nil
}

// GetByID retrieves an entity by its ID.
func (r *GenericRepository[T]) GetByID(ctx context.Context, entityID string) (T, error) {
	var zero T

	key := r.config.BuildKey(entityID)

	input := &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       key,
	}

	result, err := r.client.GetItem(ctx, input)
	if err != nil {
		return zero, fmt.Errorf("failed to get item: %w", err)
	}

	if result.Item == nil {
		return zero, fmt.Errorf("entity not found")
	}

	entity, err := r.config.ParseItem(result.Item)
	if err != nil {
		return zero, fmt.Errorf("failed to parse item: %w", err)
	}

	return entity, nil
}

// Delete removes an entity.
func (r *GenericRepository[T]) Delete(ctx context.Context, entityID string) error {
	key := r.config.BuildKey(entityID)

	input := &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       key,
	}

	_, err := r.client.DeleteItem(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to delete entity: %w", err)
	}

	r.logger.Debug("entity deleted",
		zap.String("entityType", r.config.GetEntityType()),
		zap.String("entityID", entityID),
	)

	return nil
}

// Query runs a Query against the table or one of its GSIs and parses every
// matching item, used by the kind/type lookups each concrete repository
// exposes.
func (r *GenericRepository[T]) Query(ctx context.Context, indexName string, keyExpr expression.KeyConditionBuilder, filterExpr *expression.ConditionBuilder) ([]T, error) {
	builder := expression.NewBuilder().WithKeyCondition(keyExpr)
	if filterExpr != nil {
		builder = builder.WithFilter(*filterExpr)
	}

	expr, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build expression: %w", err)
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		KeyConditionExpression:    expr.KeyCondition(),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	}
	if indexName != "" {
		input.IndexName = aws.String(indexName)
	}

	result, err := r.client.Query(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}

	return r.parseAll(result.Items), nil
}

// Scan runs a full table scan with an optional filter, used for queries
// this table's key design has no index for (recency, status counts). It
// costs a full read of the table; callers should prefer Query wherever a
// GSI covers the access pattern.
func (r *GenericRepository[T]) Scan(ctx context.Context, filterExpr *expression.ConditionBuilder) ([]T, error) {
	builder := expression.NewBuilder()
	if filterExpr != nil {
		builder = builder.WithFilter(*filterExpr)
	}

	expr, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build expression: %w", err)
	}

	input := &dynamodb.ScanInput{
		TableName:                 aws.String(r.tableName),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	}

	result, err := r.client.Scan(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to scan items: %w", err)
	}

	return r.parseAll(result.Items), nil
}

func (r *GenericRepository[T]) parseAll(items []map[string]types.AttributeValue) []T {
	entities := make([]T, 0, len(items))
	for _, item := range items {
		entity, err := r.config.ParseItem(item)
		if err != nil {
			r.logger.Warn("failed to parse item", zap.Error(err))
			continue
		}
		entities = append(entities, entity)
	}
	return entities
}

// BatchSave saves multiple entities, retrying unprocessed items with
// exponential backoff.
func (r *GenericRepository[T]) BatchSave(ctx context.Context, entities []T) error {
	if len(entities) == 0 {
		return nil
	}

	const batchSize = 25
	const maxRetries = 3

	for i := 0; i < len(entities); i += batchSize {
		end := i + batchSize
		if end > len(entities) {
			end = len(entities)
		}

		batch := entities[i:end]
		requests := make([]types.WriteRequest, 0, len(batch))
		for _, entity := range batch {
			item, err := r.config.ToItem(entity)
			if err != nil {
				return fmt.Errorf("failed to convert entity to item: %w", err)
			}
			requests = append(requests, types.WriteRequest{PutRequest: &types.PutRequest{Item: item}})
		}

		if err := r.batchWrite(ctx, requests, maxRetries); err != nil {
			return err
		}
	}

	r.logger.Debug("batch saved entities",
		zap.String("entityType", r.config.GetEntityType()),
		zap.Int("count", len(entities)),
	)

	return nil
}

// BatchDelete deletes multiple entities by their keys.
func (r *GenericRepository[T]) BatchDelete(ctx context.Context, entityIDs []string) error {
	if len(entityIDs) == 0 {
		return nil
	}

	const batchSize = 25
	const maxRetries = 3

	for i := 0; i < len(entityIDs); i += batchSize {
		end := i + batchSize
		if end > len(entityIDs) {
			end = len(entityIDs)
		}

		batch := entityIDs[i:end]
		requests := make([]types.WriteRequest, 0, len(batch))
		for _, id := range batch {
			requests = append(requests, types.WriteRequest{DeleteRequest: &types.DeleteRequest{Key: r.config.BuildKey(id)}})
		}

		if err := r.batchWrite(ctx, requests, maxRetries); err != nil {
			return err
		}
	}

	r.logger.Debug("batch deleted entities",
		zap.String("entityType", r.config.GetEntityType()),
		zap.Int("count", len(entityIDs)),
	)

	return nil
}

func (r *GenericRepository[T]) batchWrite(ctx context.Context, requests []types.WriteRequest, maxRetries int) error {
	unprocessed := requests
	for retry := 0; retry < maxRetries && len(unprocessed) > 0; retry++ {
		input := &dynamodb.BatchWriteItemInput{RequestItems: map[string][]types.WriteRequest{r.tableName: unprocessed}}

		result, err := r.client.BatchWriteItem(ctx, input)
		if err != nil {
			backoff := time.Duration(retry*retry+1) * 100 * time.Millisecond
			r.logger.Warn("batch write failed, retrying", zap.Error(err), zap.Int("retry", retry+1))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			continue
		}

		if items, ok := result.UnprocessedItems[r.tableName]; ok && len(items) > 0 {
			unprocessed = items
			backoff := time.Duration(retry*retry+1) * 100 * time.Millisecond
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			continue
		}

		unprocessed = nil
	}

	if len(unprocessed) > 0 {
		return fmt.Errorf("failed to process %d items after %d retries", len(unprocessed), maxRetries)
	}
	return nil
}

// Exists checks if an entity exists.
func (r *GenericRepository[T]) Exists(ctx context.Context, entityID string) (bool, error) {
	key := r.config.BuildKey(entityID)

	input := &dynamodb.GetItemInput{
		TableName:            aws.String(r.tableName),
		Key:                  key,
		ProjectionExpression: aws.String("PK"),
	}

	result, err := r.client.GetItem(ctx, input)
	if err != nil {
		return false, fmt.Errorf("failed to check existence: %w", err)
	}

	return result.Item != nil, nil
}
