package acl

import (
	"context"
	"fmt"
	"time"

	"github.com/lehelkovach/osl-agent-prototype-sub000/domain/core/entities"
	"github.com/lehelkovach/osl-agent-prototype-sub000/domain/core/valueobjects"
)

// KindObservation is the Concept kind external adapters translate into:
// a durable note of something the agent saw, not something it decided.
const KindObservation = "Observation"

// ExternalAPIAdapter is an Anti-Corruption Layer that translates between
// external sources a tool call touches (a fetched page, an LLM response, an
// imported record) and our Concept graph.
type ExternalAPIAdapter interface {
	TranslateToConcept(externalData interface{}) (*entities.Concept, error)
	TranslateFromConcept(concept *entities.Concept) (interface{}, error)
	ValidateExternalData(data interface{}) error
}

// WebContentAdapter adapts pages fetched by the web.get_dom tool into
// Observation concepts the agent can later retrieve or reuse.
type WebContentAdapter struct {
	source valueobjects.Source
}

// NewWebContentAdapter creates a web content adapter.
func NewWebContentAdapter() *WebContentAdapter {
	return &WebContentAdapter{source: valueobjects.SourceTool}
}

// WebContent represents a page the web.get_dom tool retrieved.
type WebContent struct {
	URL         string                 `json:"url"`
	Title       string                 `json:"title"`
	Content     string                 `json:"content"`
	Metadata    map[string]interface{} `json:"metadata"`
	ExtractedAt time.Time              `json:"extracted_at"`
}

func (w *WebContentAdapter) TranslateToConcept(externalData interface{}) (*entities.Concept, error) {
	webContent, ok := externalData.(*WebContent)
	if !ok {
		return nil, fmt.Errorf("invalid data type: expected WebContent")
	}
	if err := w.ValidateExternalData(webContent); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	values := map[string]interface{}{
		"title":        webContent.Title,
		"body":         webContent.Content,
		"url":          webContent.URL,
		"extracted_at": webContent.ExtractedAt.Format(time.RFC3339),
	}
	for k, v := range webContent.Metadata {
		values["meta_"+k] = v
	}

	provenance := valueobjects.NewProvenance(w.source, valueobjects.NewTraceID(), 1.0, time.Now())
	labels := []string{"web"}
	if tags, ok := webContent.Metadata["tags"].([]string); ok {
		labels = append(labels, tags...)
	}

	return entities.NewConcept(KindObservation, labels, valueobjects.NewProperties(values), provenance)
}

func (w *WebContentAdapter) TranslateFromConcept(concept *entities.Concept) (interface{}, error) {
	if concept == nil {
		return nil, fmt.Errorf("concept cannot be nil")
	}
	props := concept.Properties()
	url, _ := props.GetString("url")
	title, _ := props.GetString("title")
	body, _ := props.GetString("body")

	return &WebContent{
		URL:         url,
		Title:       title,
		Content:     body,
		Metadata:    map[string]interface{}{},
		ExtractedAt: concept.UpdatedAt(),
	}, nil
}

func (w *WebContentAdapter) ValidateExternalData(data interface{}) error {
	webContent, ok := data.(*WebContent)
	if !ok {
		return fmt.Errorf("invalid data type")
	}
	if webContent.Title == "" {
		return fmt.Errorf("title is required")
	}
	if len(webContent.Title) > 500 {
		return fmt.Errorf("title too long (max 500 characters)")
	}
	if len(webContent.Content) > 50000 {
		return fmt.Errorf("content too long (max 50000 characters)")
	}
	return nil
}

// AIServiceAdapter adapts raw LLM completions (outside the internal/llm.Client
// path, e.g. a one-off classification call) into Observation concepts.
type AIServiceAdapter struct {
	maxTokens int
}

// NewAIServiceAdapter creates an AI service adapter bounding stored token counts.
func NewAIServiceAdapter(maxTokens int) *AIServiceAdapter {
	return &AIServiceAdapter{maxTokens: maxTokens}
}

// AIResponse represents an external AI service response.
type AIResponse struct {
	Prompt      string    `json:"prompt"`
	Response    string    `json:"response"`
	Model       string    `json:"model"`
	Tokens      int       `json:"tokens"`
	Temperature float64   `json:"temperature"`
	GeneratedAt time.Time `json:"generated_at"`
	Keywords    []string  `json:"keywords,omitempty"`
	Sentiment   string    `json:"sentiment,omitempty"`
}

func (a *AIServiceAdapter) TranslateToConcept(externalData interface{}) (*entities.Concept, error) {
	aiResponse, ok := externalData.(*AIResponse)
	if !ok {
		return nil, fmt.Errorf("invalid data type: expected AIResponse")
	}
	if err := a.ValidateExternalData(aiResponse); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	values := map[string]interface{}{
		"prompt":       aiResponse.Prompt,
		"body":         aiResponse.Response,
		"model":        aiResponse.Model,
		"temperature":  aiResponse.Temperature,
		"tokens":       aiResponse.Tokens,
		"generated_at": aiResponse.GeneratedAt.Format(time.RFC3339),
	}
	if aiResponse.Sentiment != "" {
		values["sentiment"] = aiResponse.Sentiment
	}

	provenance := valueobjects.NewProvenance(valueobjects.SourceLLM, valueobjects.NewTraceID(), 1.0, time.Now())
	labels := append([]string{"ai-response"}, aiResponse.Keywords...)

	return entities.NewConcept(KindObservation, labels, valueobjects.NewProperties(values), provenance)
}

func (a *AIServiceAdapter) TranslateFromConcept(concept *entities.Concept) (interface{}, error) {
	if concept == nil {
		return nil, fmt.Errorf("concept cannot be nil")
	}
	props := concept.Properties()
	prompt, _ := props.GetString("prompt")
	body, _ := props.GetString("body")
	model, _ := props.GetString("model")
	temperature, _ := props.GetFloat("temperature")
	tokens, _ := props.GetFloat("tokens")
	sentiment, _ := props.GetString("sentiment")

	return &AIResponse{
		Prompt:      prompt,
		Response:    body,
		Model:       model,
		Tokens:      int(tokens),
		Temperature: temperature,
		GeneratedAt: concept.UpdatedAt(),
		Keywords:    concept.Labels(),
		Sentiment:   sentiment,
	}, nil
}

func (a *AIServiceAdapter) ValidateExternalData(data interface{}) error {
	aiResponse, ok := data.(*AIResponse)
	if !ok {
		return fmt.Errorf("invalid data type")
	}
	if aiResponse.Response == "" {
		return fmt.Errorf("response is required")
	}
	if aiResponse.Tokens > a.maxTokens {
		return fmt.Errorf("response exceeds maximum tokens (%d > %d)", aiResponse.Tokens, a.maxTokens)
	}
	if aiResponse.Temperature < 0 || aiResponse.Temperature > 2 {
		return fmt.Errorf("invalid temperature value")
	}
	return nil
}

// DatabaseImportAdapter adapts records from an external database into
// Observation concepts, keyed by configurable field mappings.
type DatabaseImportAdapter struct {
	fieldMappings map[string]string
}

// NewDatabaseImportAdapter creates a database import adapter.
func NewDatabaseImportAdapter(fieldMappings map[string]string) *DatabaseImportAdapter {
	return &DatabaseImportAdapter{fieldMappings: fieldMappings}
}

// ExternalRecord represents a record from an external database.
type ExternalRecord struct {
	ID         string                 `json:"id"`
	Fields     map[string]interface{} `json:"fields"`
	ImportedAt time.Time              `json:"imported_at"`
	Source     string                 `json:"source"`
}

func (d *DatabaseImportAdapter) TranslateToConcept(externalData interface{}) (*entities.Concept, error) {
	record, ok := externalData.(*ExternalRecord)
	if !ok {
		return nil, fmt.Errorf("invalid data type: expected ExternalRecord")
	}
	if err := d.ValidateExternalData(record); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	title := d.mapField(record.Fields, "title")
	if title == "" {
		title = fmt.Sprintf("imported record %s", record.ID)
	}
	body := d.mapField(record.Fields, "content")

	values := map[string]interface{}{
		"title":       title,
		"body":        body,
		"source":      record.Source,
		"external_id": record.ID,
		"imported_at": record.ImportedAt.Format(time.RFC3339),
	}
	for key, value := range record.Fields {
		if key != "title" && key != "content" {
			values["import_"+key] = value
		}
	}

	provenance := valueobjects.NewProvenance(valueobjects.SourceSystem, valueobjects.NewTraceID(), 1.0, time.Now())
	return entities.NewConcept(KindObservation, []string{"import"}, valueobjects.NewProperties(values), provenance)
}

func (d *DatabaseImportAdapter) TranslateFromConcept(concept *entities.Concept) (interface{}, error) {
	if concept == nil {
		return nil, fmt.Errorf("concept cannot be nil")
	}
	props := concept.Properties()
	title, _ := props.GetString("title")
	body, _ := props.GetString("body")
	externalID, _ := props.GetString("external_id")
	if externalID == "" {
		externalID = concept.ID().String()
	}
	source, _ := props.GetString("source")

	fields := map[string]interface{}{"title": title, "content": body}
	for key, value := range props.Raw() {
		if len(key) > 7 && key[:7] == "import_" {
			fields[key[7:]] = value
		}
	}

	return &ExternalRecord{ID: externalID, Fields: fields, ImportedAt: concept.UpdatedAt(), Source: source}, nil
}

func (d *DatabaseImportAdapter) ValidateExternalData(data interface{}) error {
	record, ok := data.(*ExternalRecord)
	if !ok {
		return fmt.Errorf("invalid data type")
	}
	if record.ID == "" {
		return fmt.Errorf("record ID is required")
	}
	if len(record.Fields) == 0 {
		return fmt.Errorf("record must have fields")
	}
	return nil
}

func (d *DatabaseImportAdapter) mapField(fields map[string]interface{}, internalName string) string {
	if externalName, exists := d.fieldMappings[internalName]; exists {
		if value, ok := fields[externalName]; ok {
			return fmt.Sprintf("%v", value)
		}
	}
	if value, ok := fields[internalName]; ok {
		return fmt.Sprintf("%v", value)
	}
	return ""
}

// ExternalSystemFacade provides a unified interface for all external system
// interactions a tool invocation might need to record as a Concept.
type ExternalSystemFacade struct {
	adapters map[string]ExternalAPIAdapter
}

// NewExternalSystemFacade creates an empty facade.
func NewExternalSystemFacade() *ExternalSystemFacade {
	return &ExternalSystemFacade{adapters: make(map[string]ExternalAPIAdapter)}
}

// RegisterAdapter registers an adapter for a named external system.
func (f *ExternalSystemFacade) RegisterAdapter(systemName string, adapter ExternalAPIAdapter) {
	f.adapters[systemName] = adapter
}

// ImportFromExternalSystem translates external data into a Concept via the
// adapter registered for systemName.
func (f *ExternalSystemFacade) ImportFromExternalSystem(ctx context.Context, systemName string, externalData interface{}) (*entities.Concept, error) {
	adapter, exists := f.adapters[systemName]
	if !exists {
		return nil, fmt.Errorf("no adapter registered for system: %s", systemName)
	}
	if err := adapter.ValidateExternalData(externalData); err != nil {
		return nil, fmt.Errorf("external data validation failed: %w", err)
	}
	return adapter.TranslateToConcept(externalData)
}

// ExportToExternalSystem translates a Concept to systemName's external shape.
func (f *ExternalSystemFacade) ExportToExternalSystem(ctx context.Context, systemName string, concept *entities.Concept) (interface{}, error) {
	adapter, exists := f.adapters[systemName]
	if !exists {
		return nil, fmt.Errorf("no adapter registered for system: %s", systemName)
	}
	return adapter.TranslateFromConcept(concept)
}
