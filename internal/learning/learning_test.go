package learning_test

import (
	"context"
	"testing"
	"time"

	"github.com/lehelkovach/osl-agent-prototype-sub000/domain/core/valueobjects"
	"github.com/lehelkovach/osl-agent-prototype-sub000/internal/ksg"
	"github.com/lehelkovach/osl-agent-prototype-sub000/internal/learning"
	"github.com/lehelkovach/osl-agent-prototype-sub000/internal/llm"
	"github.com/lehelkovach/osl-agent-prototype-sub000/internal/procedure"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLLM struct {
	chatResponse string
	embedding    []float64
}

func (f *fakeLLM) Chat(ctx context.Context, messages []llm.Message, opts llm.ChatOptions) (string, error) {
	return f.chatResponse, nil
}

func (f *fakeLLM) Embed(ctx context.Context, text string) ([]float64, error) {
	return f.embedding, nil
}

func testProvenance() valueobjects.Provenance {
	return valueobjects.NewProvenance(valueobjects.SourceLearning, "", 1.0, time.Now())
}

func TestEngine_AnalyzeFailurePersistsKnowledge(t *testing.T) {
	store := ksg.NewStore()
	fake := &fakeLLM{
		chatResponse: "ROOT_CAUSE: selector stale\nLESSON: retry with fallback selector\nFIX: use #user instead of #email",
		embedding:    []float64{0.1, 0.2, 0.3},
	}
	engine := learning.NewEngine(store, fake)

	step := procedure.Step{ID: "fill-email", Tool: "web.fill", Params: map[string]interface{}{"selector": "#email"}}
	concept, err := engine.AnalyzeFailure(context.Background(), step, assertError("selector not found"), nil, testProvenance())
	require.NoError(t, err)
	assert.Equal(t, learning.KindKnowledge, concept.Kind())

	rootCause, _ := concept.Properties().GetString("rootCause")
	assert.Equal(t, "selector stale", rootCause)
}

func TestEngine_LearnFromSuccessPersistsKnowledge(t *testing.T) {
	store := ksg.NewStore()
	fake := &fakeLLM{embedding: []float64{0.4, 0.5, 0.6}}
	engine := learning.NewEngine(store, fake)

	plan := procedure.Plan{Name: "login-flow", Steps: []procedure.Step{{ID: "s1", Tool: "web.fill"}}}
	results := []procedure.StepResult{{StepID: "s1", Success: true}}

	concept, err := engine.LearnFromSuccess(context.Background(), plan, results, testProvenance())
	require.NoError(t, err)
	assert.False(t, concept.Embedding().IsZero())
}

func TestEngine_LearnFromUserFeedbackLinksToRun(t *testing.T) {
	store := ksg.NewStore()
	fake := &fakeLLM{embedding: []float64{0.1, 0.1, 0.1}}
	engine := learning.NewEngine(store, fake)

	runConcept, err := store.CreateNode("ProcedureRun", nil, valueobjects.EmptyProperties(), testProvenance())
	require.NoError(t, err)

	traceID := valueobjects.NewTraceID()
	concept, err := engine.LearnFromUserFeedback(context.Background(), "that selector guess was wrong", runConcept.ID(), traceID, testProvenance())
	require.NoError(t, err)

	rels, err := store.RelationshipsFrom(concept.ID(), "correctionOf")
	require.NoError(t, err)
	require.Len(t, rels, 1)
	assert.True(t, rels[0].TargetID.Equals(runConcept.ID()))
}

func TestEngine_LearnFromUserFeedbackRejectsEmptyText(t *testing.T) {
	store := ksg.NewStore()
	fake := &fakeLLM{embedding: []float64{0.1}}
	engine := learning.NewEngine(store, fake)

	_, err := engine.LearnFromUserFeedback(context.Background(), "   ", valueobjects.NodeID{}, "", testProvenance())
	assert.Error(t, err)
}

func TestEngine_FindSimilarKnowledgeReturnsAboveThreshold(t *testing.T) {
	store := ksg.NewStore()
	fake := &fakeLLM{embedding: []float64{1, 0, 0}}
	engine := learning.NewEngine(store, fake)

	plan := procedure.Plan{Name: "login-flow"}
	_, err := engine.LearnFromSuccess(context.Background(), plan, nil, testProvenance())
	require.NoError(t, err)

	results, err := engine.FindSimilarKnowledge(context.Background(), "login flow", 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
}

type stringError string

func (e stringError) Error() string { return string(e) }

func assertError(msg string) error { return stringError(msg) }
