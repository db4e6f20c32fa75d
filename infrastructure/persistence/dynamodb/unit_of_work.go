package dynamodb

import (
	"context"
	"fmt"

	"github.com/lehelkovach/osl-agent-prototype-sub000/application/ports"
	"github.com/lehelkovach/osl-agent-prototype-sub000/domain/events"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

// DynamoDBUnitOfWork implements ports.UnitOfWork, giving sagas (§5 saga
// engine) a transaction boundary around concept/relationship mutations.
type DynamoDBUnitOfWork struct {
	client          *dynamodb.Client
	conceptRepo     ports.ConceptRepository
	relationshipRepo ports.RelationshipRepository
	eventStore      ports.EventStore
	eventPublisher  ports.EventPublisher
	logger          *zap.Logger

	transactItems   []types.TransactWriteItem
	pendingEvents   []events.DomainEvent
	rollbackActions []func() error
	inTransaction   bool
}

var _ ports.UnitOfWork = (*DynamoDBUnitOfWork)(nil)

// NewDynamoDBUnitOfWork creates a unit of work instance. eventStore and
// eventPublisher may be nil: a caller not interested in the outbox pattern
// below can still use Begin/RegisterSave/RegisterDelete/Commit.
func NewDynamoDBUnitOfWork(
	client *dynamodb.Client,
	conceptRepo ports.ConceptRepository,
	relationshipRepo ports.RelationshipRepository,
	eventStore ports.EventStore,
	eventPublisher ports.EventPublisher,
	logger *zap.Logger,
) *DynamoDBUnitOfWork {
	return &DynamoDBUnitOfWork{
		client:           client,
		conceptRepo:      conceptRepo,
		relationshipRepo: relationshipRepo,
		eventStore:       eventStore,
		eventPublisher:   eventPublisher,
		logger:           logger,
		transactItems:    make([]types.TransactWriteItem, 0),
		pendingEvents:    make([]events.DomainEvent, 0),
	}
}

// Begin starts a new transaction.
func (uow *DynamoDBUnitOfWork) Begin(ctx context.Context) error {
	if uow.inTransaction {
		return fmt.Errorf("transaction already in progress")
	}
	uow.inTransaction = true
	uow.Clear()
	return nil
}

// RegisterSave registers an entity save operation in the transaction.
func (uow *DynamoDBUnitOfWork) RegisterSave(item types.TransactWriteItem) error {
	if !uow.inTransaction {
		return fmt.Errorf("no transaction in progress")
	}
	uow.transactItems = append(uow.transactItems, item)
	return nil
}

// RegisterDelete registers an entity delete operation in the transaction.
func (uow *DynamoDBUnitOfWork) RegisterDelete(tableName, pk, sk string) error {
	if !uow.inTransaction {
		return fmt.Errorf("no transaction in progress")
	}

	uow.transactItems = append(uow.transactItems, types.TransactWriteItem{
		Delete: &types.Delete{
			TableName: aws.String(tableName),
			Key: map[string]types.AttributeValue{
				"PK": &types.AttributeValueMemberS{Value: pk},
				"SK": &types.AttributeValueMemberS{Value: sk},
			},
		},
	})
	return nil
}

// RegisterEvent registers a domain event to be published after commit.
func (uow *DynamoDBUnitOfWork) RegisterEvent(event events.DomainEvent) error {
	if !uow.inTransaction {
		return fmt.Errorf("no transaction in progress")
	}
	uow.pendingEvents = append(uow.pendingEvents, event)
	return nil
}

// RegisterRollback registers a rollback action, run in reverse order if the
// transaction fails.
func (uow *DynamoDBUnitOfWork) RegisterRollback(action func() error) error {
	if !uow.inTransaction {
		return fmt.Errorf("no transaction in progress")
	}
	uow.rollbackActions = append(uow.rollbackActions, action)
	return nil
}

// Commit executes every registered operation atomically. Events are not
// published inline: if the event store supports transactional writes they
// are persisted alongside the data change with a pending status, and a
// separate outbox processor publishes them once the transaction has
// durably committed, so a crash between commit and publish never loses an
// event.
func (uow *DynamoDBUnitOfWork) Commit(ctx context.Context) error {
	if !uow.inTransaction {
		return fmt.Errorf("no transaction in progress")
	}

	defer func() { uow.inTransaction = false }()

	// DynamoDB's TransactWriteItems limit is 100; keep well under it to
	// leave room for the event-store items appended below.
	if len(uow.transactItems) > 25 {
		return fmt.Errorf("transaction exceeds safe limit of 25 items: %d items", len(uow.transactItems))
	}

	if uow.eventStore != nil {
		for _, event := range uow.pendingEvents {
			if transactional, ok := uow.eventStore.(interface {
				PrepareEventItem(events.DomainEvent) (types.TransactWriteItem, error)
			}); ok {
				eventItem, err := transactional.PrepareEventItem(event)
				if err != nil {
					uow.executeRollback()
					return fmt.Errorf("failed to prepare event item: %w", err)
				}
				uow.transactItems = append(uow.transactItems, eventItem)
			}
		}
	}

	if len(uow.transactItems) > 0 {
		_, err := uow.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
			TransactItems: uow.transactItems,
		})
		if err != nil {
			uow.executeRollback()
			return fmt.Errorf("transaction failed: %w", err)
		}
	}

	uow.Clear()
	return nil
}

// Rollback cancels the current transaction.
func (uow *DynamoDBUnitOfWork) Rollback() error {
	if !uow.inTransaction {
		return fmt.Errorf("no transaction in progress")
	}

	defer func() { uow.inTransaction = false }()

	uow.executeRollback()
	uow.Clear()
	return nil
}

func (uow *DynamoDBUnitOfWork) executeRollback() {
	for i := len(uow.rollbackActions) - 1; i >= 0; i-- {
		if err := uow.rollbackActions[i](); err != nil {
			uow.logger.Warn("rollback action failed", zap.Error(err))
		}
	}
}

// Clear resets the unit of work state.
func (uow *DynamoDBUnitOfWork) Clear() {
	uow.transactItems = make([]types.TransactWriteItem, 0)
	uow.pendingEvents = make([]events.DomainEvent, 0)
	uow.rollbackActions = make([]func() error, 0)
}

// ConceptRepository returns the concept repository.
func (uow *DynamoDBUnitOfWork) ConceptRepository() ports.ConceptRepository {
	return uow.conceptRepo
}

// RelationshipRepository returns the relationship repository.
func (uow *DynamoDBUnitOfWork) RelationshipRepository() ports.RelationshipRepository {
	return uow.relationshipRepo
}

// IsInTransaction returns whether a transaction is currently active.
func (uow *DynamoDBUnitOfWork) IsInTransaction() bool {
	return uow.inTransaction
}
