package dynamodb

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/lehelkovach/osl-agent-prototype-sub000/application/ports"
	"github.com/lehelkovach/osl-agent-prototype-sub000/domain/core/entities"
	"github.com/lehelkovach/osl-agent-prototype-sub000/domain/core/valueobjects"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

// ConceptRepository implements ports.ConceptRepository over a single
// DynamoDB table. Every Prototype, Concept, PropertyDef, Procedure, and
// QueueItem is stored as one item keyed by PK=CONCEPT#<id>, SK=CONCEPT#<id>,
// so its relationship items (see RelationshipRepository) share the same
// item collection and can be fetched with it in one Query.
type ConceptRepository struct {
	*GenericRepository[*conceptEntity]
	client        *dynamodb.Client
	tableName     string
	kindIndexName string
	logger        *zap.Logger
}

var _ ports.ConceptRepository = (*ConceptRepository)(nil)

// NewConceptRepository creates a ConceptRepository backed by client/tableName,
// querying kindIndexName (GSI1, "KindIndex" by default) for kind lookups.
func NewConceptRepository(client *dynamodb.Client, tableName, kindIndexName string, logger *zap.Logger) *ConceptRepository {
	return &ConceptRepository{
		GenericRepository: NewGenericRepository[*conceptEntity](client, tableName, &conceptEntityConfig{}, logger),
		client:            client,
		tableName:         tableName,
		kindIndexName:     kindIndexName,
		logger:            logger,
	}
}

// conceptEntity wraps entities.Concept to satisfy the generic Entity contract.
type conceptEntity struct {
	concept *entities.Concept
}

func (e *conceptEntity) GetID() string   { return e.concept.ID().String() }
func (e *conceptEntity) GetVersion() int { return e.concept.Version() }

type conceptEntityConfig struct{}

func (c *conceptEntityConfig) GetEntityType() string { return "CONCEPT" }

func (c *conceptEntityConfig) BuildKey(entityID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: fmt.Sprintf("CONCEPT#%s", entityID)},
		"SK": &types.AttributeValueMemberS{Value: fmt.Sprintf("CONCEPT#%s", entityID)},
	}
}

func (c *conceptEntityConfig) ToItem(e *conceptEntity) (map[string]types.AttributeValue, error) {
	concept := e.concept
	id := concept.ID().String()

	props, err := attributevalue.MarshalMap(concept.Properties().Raw())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal properties: %w", err)
	}

	labels := make([]types.AttributeValue, 0, len(concept.Labels()))
	for _, l := range concept.Labels() {
		labels = append(labels, &types.AttributeValueMemberS{Value: l})
	}

	item := map[string]types.AttributeValue{
		"PK":         &types.AttributeValueMemberS{Value: fmt.Sprintf("CONCEPT#%s", id)},
		"SK":         &types.AttributeValueMemberS{Value: fmt.Sprintf("CONCEPT#%s", id)},
		"EntityType": &types.AttributeValueMemberS{Value: "CONCEPT"},
		"NodeID":     &types.AttributeValueMemberS{Value: id},
		"Kind":       &types.AttributeValueMemberS{Value: concept.Kind()},
		"Labels":     &types.AttributeValueMemberL{Value: labels},
		"Properties": &types.AttributeValueMemberM{Value: props},
		"Status":     &types.AttributeValueMemberS{Value: string(concept.Status())},
		"Version":    &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", concept.Version())},
		"CreatedAt":  &types.AttributeValueMemberS{Value: concept.CreatedAt().Format(time.RFC3339)},
		"UpdatedAt":  &types.AttributeValueMemberS{Value: concept.UpdatedAt().Format(time.RFC3339)},

		"GSI1PK": &types.AttributeValueMemberS{Value: fmt.Sprintf("KIND#%s", concept.Kind())},
		"GSI1SK": &types.AttributeValueMemberS{Value: fmt.Sprintf("CONCEPT#%s", id)},
	}

	if values := concept.Embedding().Values(); len(values) > 0 {
		nums := make([]types.AttributeValue, len(values))
		for i, v := range values {
			nums[i] = &types.AttributeValueMemberN{Value: fmt.Sprintf("%g", v)}
		}
		item["Embedding"] = &types.AttributeValueMemberL{Value: nums}
	}

	prov := concept.Provenance()
	item["Provenance"] = &types.AttributeValueMemberM{Value: map[string]types.AttributeValue{
		"Source":     &types.AttributeValueMemberS{Value: string(prov.Source())},
		"TraceID":    &types.AttributeValueMemberS{Value: prov.TraceID().String()},
		"Confidence": &types.AttributeValueMemberN{Value: fmt.Sprintf("%g", prov.Confidence())},
		"RecordedAt": &types.AttributeValueMemberS{Value: prov.RecordedAt().Format(time.RFC3339)},
	}}

	return item, nil
}

func (c *conceptEntityConfig) ParseItem(item map[string]types.AttributeValue) (*conceptEntity, error) {
	concept, err := parseConceptItem(item)
	if err != nil {
		return nil, err
	}
	return &conceptEntity{concept: concept}, nil
}

func parseConceptItem(item map[string]types.AttributeValue) (*entities.Concept, error) {
	idStr := ""
	if v, ok := item["NodeID"].(*types.AttributeValueMemberS); ok {
		idStr = v.Value
	}
	id, err := valueobjects.NewNodeIDFromString(idStr)
	if err != nil {
		return nil, fmt.Errorf("invalid node id in item: %w", err)
	}

	kind := ""
	if v, ok := item["Kind"].(*types.AttributeValueMemberS); ok {
		kind = v.Value
	}

	var labels []string
	if v, ok := item["Labels"].(*types.AttributeValueMemberL); ok {
		for _, l := range v.Value {
			if s, ok := l.(*types.AttributeValueMemberS); ok {
				labels = append(labels, s.Value)
			}
		}
	}

	rawProps := map[string]interface{}{}
	if v, ok := item["Properties"].(*types.AttributeValueMemberM); ok {
		if err := attributevalue.UnmarshalMap(v.Value, &rawProps); err != nil {
			return nil, fmt.Errorf("failed to unmarshal properties: %w", err)
		}
	}
	properties := valueobjects.NewProperties(rawProps)

	var embedding valueobjects.Embedding
	if v, ok := item["Embedding"].(*types.AttributeValueMemberL); ok {
		values := make([]float64, 0, len(v.Value))
		for _, n := range v.Value {
			if num, ok := n.(*types.AttributeValueMemberN); ok {
				var f float64
				fmt.Sscanf(num.Value, "%g", &f)
				values = append(values, f)
			}
		}
		if embedding, err = valueobjects.NewEmbedding(values); err != nil {
			return nil, fmt.Errorf("invalid embedding in item: %w", err)
		}
	}

	var traceID valueobjects.TraceID
	var source valueobjects.Source
	var confidence float64
	var recordedAt time.Time
	if v, ok := item["Provenance"].(*types.AttributeValueMemberM); ok {
		if s, ok := v.Value["Source"].(*types.AttributeValueMemberS); ok {
			source = valueobjects.Source(s.Value)
		}
		if t, ok := v.Value["TraceID"].(*types.AttributeValueMemberS); ok {
			traceID = valueobjects.TraceID(t.Value)
		}
		if c, ok := v.Value["Confidence"].(*types.AttributeValueMemberN); ok {
			fmt.Sscanf(c.Value, "%g", &confidence)
		}
		if r, ok := v.Value["RecordedAt"].(*types.AttributeValueMemberS); ok {
			recordedAt, _ = time.Parse(time.RFC3339, r.Value)
		}
	}
	provenance := valueobjects.NewProvenance(source, traceID, confidence, recordedAt)

	status := entities.StatusDraft
	if v, ok := item["Status"].(*types.AttributeValueMemberS); ok {
		status = entities.ConceptStatus(v.Value)
	}

	var createdAt, updatedAt time.Time
	if v, ok := item["CreatedAt"].(*types.AttributeValueMemberS); ok {
		createdAt, _ = time.Parse(time.RFC3339, v.Value)
	}
	if v, ok := item["UpdatedAt"].(*types.AttributeValueMemberS); ok {
		updatedAt, _ = time.Parse(time.RFC3339, v.Value)
	}

	version := 1
	if v, ok := item["Version"].(*types.AttributeValueMemberN); ok {
		fmt.Sscanf(v.Value, "%d", &version)
	}

	return entities.ReconstructConcept(id, kind, labels, properties, embedding, provenance, status, createdAt, updatedAt, version)
}

func (r *ConceptRepository) Save(ctx context.Context, concept *entities.Concept) error {
	return r.GenericRepository.Save(ctx, &conceptEntity{concept: concept})
}

func (r *ConceptRepository) GetByID(ctx context.Context, id valueobjects.NodeID) (*entities.Concept, error) {
	e, err := r.GenericRepository.GetByID(ctx, id.String())
	if err != nil {
		return nil, err
	}
	return e.concept, nil
}

func (r *ConceptRepository) Delete(ctx context.Context, id valueobjects.NodeID) error {
	return r.GenericRepository.Delete(ctx, id.String())
}

func (r *ConceptRepository) BulkSave(ctx context.Context, concepts []*entities.Concept) error {
	wrapped := make([]*conceptEntity, len(concepts))
	for i, c := range concepts {
		wrapped[i] = &conceptEntity{concept: c}
	}
	return r.GenericRepository.BatchSave(ctx, wrapped)
}

func (r *ConceptRepository) DeleteBatch(ctx context.Context, ids []valueobjects.NodeID) error {
	strIDs := make([]string, len(ids))
	for i, id := range ids {
		strIDs[i] = id.String()
	}
	return r.GenericRepository.BatchDelete(ctx, strIDs)
}

func (r *ConceptRepository) GetByKind(ctx context.Context, kind string) ([]*entities.Concept, error) {
	keyExpr := expression.Key("GSI1PK").Equal(expression.Value(fmt.Sprintf("KIND#%s", kind)))
	entitiesOut, err := r.GenericRepository.Query(ctx, r.kindIndexName, keyExpr, nil)
	if err != nil {
		return nil, err
	}
	return unwrapConcepts(entitiesOut), nil
}

// Search filters on Kind, Status, and Labels with a table scan: the access
// pattern is ad-hoc enough that a fixed GSI can't cover every combination,
// and the graph is small enough (agent working memory, not a multi-tenant
// store) for a scan to be acceptable.
func (r *ConceptRepository) Search(ctx context.Context, criteria ports.SearchCriteria) ([]*entities.Concept, error) {
	filter := expression.Name("EntityType").Equal(expression.Value("CONCEPT"))
	if criteria.Kind != "" {
		filter = filter.And(expression.Name("Kind").Equal(expression.Value(criteria.Kind)))
	}
	if criteria.Status != "" {
		filter = filter.And(expression.Name("Status").Equal(expression.Value(criteria.Status)))
	}
	for _, label := range criteria.Labels {
		filter = filter.And(expression.Name("Labels").Contains(label))
	}

	results, err := r.GenericRepository.Scan(ctx, &filter)
	if err != nil {
		return nil, err
	}
	concepts := unwrapConcepts(results)

	sortConcepts(concepts, criteria.OrderBy, criteria.OrderDesc)
	return paginate(concepts, criteria.Offset, criteria.Limit), nil
}

func (r *ConceptRepository) FindByLabels(ctx context.Context, labels []string) ([]*entities.Concept, error) {
	if len(labels) == 0 {
		return nil, nil
	}
	filter := expression.Name("EntityType").Equal(expression.Value("CONCEPT"))
	labelFilter := expression.Name("Labels").Contains(labels[0])
	for _, label := range labels[1:] {
		labelFilter = labelFilter.Or(expression.Name("Labels").Contains(label))
	}
	filter = filter.And(labelFilter)

	results, err := r.GenericRepository.Scan(ctx, &filter)
	if err != nil {
		return nil, err
	}
	return unwrapConcepts(results), nil
}

func (r *ConceptRepository) FindRecentlyUpdated(ctx context.Context, limit int) ([]*entities.Concept, error) {
	filter := expression.Name("EntityType").Equal(expression.Value("CONCEPT"))
	results, err := r.GenericRepository.Scan(ctx, &filter)
	if err != nil {
		return nil, err
	}
	concepts := unwrapConcepts(results)
	sort.Slice(concepts, func(i, j int) bool { return concepts[i].UpdatedAt().After(concepts[j].UpdatedAt()) })
	if limit > 0 && limit < len(concepts) {
		concepts = concepts[:limit]
	}
	return concepts, nil
}

func (r *ConceptRepository) CountByStatus(ctx context.Context) (map[entities.ConceptStatus]int, error) {
	filter := expression.Name("EntityType").Equal(expression.Value("CONCEPT"))
	results, err := r.GenericRepository.Scan(ctx, &filter)
	if err != nil {
		return nil, err
	}

	counts := map[entities.ConceptStatus]int{}
	for _, e := range results {
		counts[e.concept.Status()]++
	}
	return counts, nil
}

func unwrapConcepts(wrapped []*conceptEntity) []*entities.Concept {
	out := make([]*entities.Concept, len(wrapped))
	for i, e := range wrapped {
		out[i] = e.concept
	}
	return out
}

func sortConcepts(concepts []*entities.Concept, orderBy string, desc bool) {
	if orderBy == "" {
		return
	}
	less := func(i, j int) bool {
		switch strings.ToLower(orderBy) {
		case "createdat":
			return concepts[i].CreatedAt().Before(concepts[j].CreatedAt())
		case "updatedat":
			return concepts[i].UpdatedAt().Before(concepts[j].UpdatedAt())
		default:
			return concepts[i].ID().String() < concepts[j].ID().String()
		}
	}
	if desc {
		orig := less
		less = func(i, j int) bool { return orig(j, i) }
	}
	sort.Slice(concepts, less)
}

func paginate(concepts []*entities.Concept, offset, limit int) []*entities.Concept {
	if offset > 0 {
		if offset >= len(concepts) {
			return nil
		}
		concepts = concepts[offset:]
	}
	if limit > 0 && limit < len(concepts) {
		concepts = concepts[:limit]
	}
	return concepts
}
