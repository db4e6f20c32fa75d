package ports

import (
	"context"

	"github.com/lehelkovach/osl-agent-prototype-sub000/domain/core/entities"
	"github.com/lehelkovach/osl-agent-prototype-sub000/domain/core/valueobjects"
	"github.com/lehelkovach/osl-agent-prototype-sub000/domain/events"
)

// ConceptRepository is the persistence port behind the knowledge-subsystem
// graph (§4.1 Memory Store contract, §4.2 KSG). internal/ksg.Store holds the
// authoritative in-process graph; a ConceptRepository lets that graph be
// backed by durable storage (infrastructure/persistence/dynamodb) instead of, or in
// addition to, the in-memory map.
type ConceptRepository interface {
	// Save persists a concept (create or update).
	Save(ctx context.Context, concept *entities.Concept) error

	// GetByID retrieves a concept by its id.
	GetByID(ctx context.Context, id valueobjects.NodeID) (*entities.Concept, error)

	// GetByKind retrieves every concept of a given kind (Prototype, Concept,
	// PropertyDef, Procedure, QueueItem).
	GetByKind(ctx context.Context, kind string) ([]*entities.Concept, error)

	// Delete removes a concept.
	Delete(ctx context.Context, id valueobjects.NodeID) error

	// Search finds concepts matching the given criteria.
	Search(ctx context.Context, criteria SearchCriteria) ([]*entities.Concept, error)

	// BulkSave saves multiple concepts as one batch.
	BulkSave(ctx context.Context, concepts []*entities.Concept) error

	// DeleteBatch removes multiple concepts in one batch.
	DeleteBatch(ctx context.Context, ids []valueobjects.NodeID) error

	// FindByLabels finds concepts carrying any of the given labels.
	FindByLabels(ctx context.Context, labels []string) ([]*entities.Concept, error)

	// FindRecentlyUpdated finds concepts updated within the retention window.
	FindRecentlyUpdated(ctx context.Context, limit int) ([]*entities.Concept, error)

	// CountByStatus counts concepts by lifecycle status.
	CountByStatus(ctx context.Context) (map[entities.ConceptStatus]int, error)
}

// RelationshipRepository is the persistence port for relationships between
// concepts, kept separate from ConceptRepository since a relationship has no
// identity of its own outside the source concept it was created from.
type RelationshipRepository interface {
	// Save persists a relationship from sourceID.
	Save(ctx context.Context, sourceID valueobjects.NodeID, rel entities.RelationshipRef) error

	// GetBySource retrieves every outgoing relationship of a concept.
	GetBySource(ctx context.Context, sourceID valueobjects.NodeID) ([]entities.RelationshipRef, error)

	// Delete removes a relationship by its edge id.
	Delete(ctx context.Context, sourceID valueobjects.NodeID, edgeID string) error

	// DeleteBySource removes every outgoing relationship of a concept.
	DeleteBySource(ctx context.Context, sourceID valueobjects.NodeID) error

	// FindByType finds relationships of a specific type across the graph.
	FindByType(ctx context.Context, relType entities.RelationType) ([]entities.RelationshipRef, error)

	// FindStrongRelationships finds relationships with weight above a
	// threshold, used by the scheduler's decay/generalization passes.
	FindStrongRelationships(ctx context.Context, minWeight float64) ([]entities.RelationshipRef, error)

	// CountByType counts relationships by type.
	CountByType(ctx context.Context) (map[entities.RelationType]int, error)
}

// SearchCriteria narrows a concept search, mirroring the KSG's search
// filters plus pagination for backends that can't hold the whole graph in
// memory.
type SearchCriteria struct {
	Kind      string
	Labels    []string
	Status    string
	Limit     int
	Offset    int
	OrderBy   string
	OrderDesc bool
}

// EventStore persists domain events for replay and audit (§4.9 Persist
// step, §6.3 run replay endpoint).
type EventStore interface {
	// SaveEvents persists domain events.
	SaveEvents(ctx context.Context, events []events.DomainEvent) error

	// GetEvents retrieves events for an aggregate (a concept or a trace).
	GetEvents(ctx context.Context, aggregateID string) ([]events.DomainEvent, error)

	// GetEventsByType retrieves the most recent events of a specific type.
	GetEventsByType(ctx context.Context, eventType string, limit int) ([]events.DomainEvent, error)

	// GetEventsAfter retrieves events for an aggregate after a version.
	GetEventsAfter(ctx context.Context, aggregateID string, version int) ([]events.DomainEvent, error)

	// DeleteEvents removes all events for an aggregate.
	DeleteEvents(ctx context.Context, aggregateID string) error
}

// UnitOfWork defines a transaction boundary around concept/relationship
// mutations, used by sagas that must roll back a partially applied batch.
type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit(ctx context.Context) error
	Rollback() error

	ConceptRepository() ConceptRepository
	RelationshipRepository() RelationshipRepository
}

// EventPublisher publishes domain events to downstream listeners
// (infrastructure/messaging, interfaces/websocket).
type EventPublisher interface {
	Publish(ctx context.Context, event events.DomainEvent) error
	PublishBatch(ctx context.Context, events []events.DomainEvent) error
}

// EventBus extends EventPublisher with handler subscription.
type EventBus interface {
	EventPublisher

	Subscribe(eventType string, handler EventHandler) error
	Unsubscribe(eventType string, handler EventHandler) error
}

// EventHandler processes domain events dispatched through an EventBus.
type EventHandler interface {
	Handle(ctx context.Context, event events.DomainEvent) error
	CanHandle(eventType string) bool
}

// Cache is a generic TTL key-value cache port, used by working memory's
// recency boost and by query-bus caching middleware.
type Cache interface {
	Get(ctx context.Context, key string) (interface{}, bool)
	Set(ctx context.Context, key string, value interface{}, ttl int) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}
