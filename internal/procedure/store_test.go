package procedure_test

import (
	"context"
	"testing"
	"time"

	"github.com/lehelkovach/osl-agent-prototype-sub000/domain/core/valueobjects"
	"github.com/lehelkovach/osl-agent-prototype-sub000/internal/ksg"
	"github.com/lehelkovach/osl-agent-prototype-sub000/internal/procedure"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testProvenance() valueobjects.Provenance {
	return valueobjects.NewProvenance(valueobjects.SourceTool, "", 1.0, time.Now())
}

func simplePlan() procedure.Plan {
	return procedure.Plan{
		Name: "login-flow",
		Steps: []procedure.Step{
			{ID: "fill-email", Tool: "web.fill", Params: map[string]interface{}{"selector": "#email", "value": "a@b.com"}},
			{ID: "submit", Tool: "web.click_selector", Params: map[string]interface{}{"selector": "#submit"}, DependsOn: []string{"fill-email"}},
		},
	}
}

func toolLookup() procedure.ToolSchemaLookup {
	return func(tool string) (procedure.ToolSchema, bool) {
		switch tool {
		case "web.fill":
			return procedure.ToolSchema{Name: tool, RequiredParams: []string{"selector", "value"}}, true
		case "web.click_selector":
			return procedure.ToolSchema{Name: tool, RequiredParams: []string{"selector"}}, true
		default:
			return procedure.ToolSchema{}, false
		}
	}
}

func TestStore_CreateFromJSONAndHydrate(t *testing.T) {
	ksgStore := ksg.NewStore()
	store := procedure.NewStore(ksgStore)

	id, err := store.CreateFromJSON(context.Background(), simplePlan(), nil, toolLookup(), testProvenance())
	require.NoError(t, err)

	hydrated, err := store.Hydrate(context.Background(), id)
	require.NoError(t, err)

	assert.Equal(t, "login-flow", hydrated.Name)
	require.Len(t, hydrated.Steps, 2)

	var submit procedure.Step
	for _, s := range hydrated.Steps {
		if s.ID == "submit" {
			submit = s
		}
	}
	assert.Equal(t, []string{"fill-email"}, submit.DependsOn)
}

func TestStore_CreateFromJSONRejectsInvalidPlan(t *testing.T) {
	ksgStore := ksg.NewStore()
	store := procedure.NewStore(ksgStore)

	plan := simplePlan()
	plan.Steps[1].DependsOn = []string{"nonexistent"}

	_, err := store.CreateFromJSON(context.Background(), plan, nil, toolLookup(), testProvenance())
	assert.Error(t, err)
}

func TestStore_PersistWinningSelectorReflectedInHydrate(t *testing.T) {
	ksgStore := ksg.NewStore()
	store := procedure.NewStore(ksgStore)

	id, err := store.CreateFromJSON(context.Background(), simplePlan(), nil, toolLookup(), testProvenance())
	require.NoError(t, err)

	err = store.PersistWinningSelector(context.Background(), id, "fill-email", "input[type=email]")
	require.NoError(t, err)

	hydrated, err := store.Hydrate(context.Background(), id)
	require.NoError(t, err)

	var fillEmail procedure.Step
	for _, s := range hydrated.Steps {
		if s.ID == "fill-email" {
			fillEmail = s
		}
	}
	assert.Equal(t, "input[type=email]", fillEmail.Params["selector"])
}

func TestStore_PersistWinningSelectorUnknownStepReturnsNotFound(t *testing.T) {
	ksgStore := ksg.NewStore()
	store := procedure.NewStore(ksgStore)

	id, err := store.CreateFromJSON(context.Background(), simplePlan(), nil, toolLookup(), testProvenance())
	require.NoError(t, err)

	err = store.PersistWinningSelector(context.Background(), id, "no-such-step", "x")
	assert.Error(t, err)
}

func TestStore_RecordRunUpdatesCounters(t *testing.T) {
	ksgStore := ksg.NewStore()
	store := procedure.NewStore(ksgStore)

	id, err := store.CreateFromJSON(context.Background(), simplePlan(), nil, toolLookup(), testProvenance())
	require.NoError(t, err)

	traceID := valueobjects.NewTraceID()
	_, err = store.RecordRun(context.Background(), &id, true, []procedure.StepResult{
		{StepID: "fill-email", Success: true},
		{StepID: "submit", Success: true},
	}, traceID, testProvenance())
	require.NoError(t, err)

	procedureConcept, err := ksgStore.Get(id)
	require.NoError(t, err)
	tested, _ := procedureConcept.Properties().GetFloat("tested")
	successes, _ := procedureConcept.Properties().GetFloat("success")
	assert.Equal(t, 1.0, tested)
	assert.Equal(t, 1.0, successes)

	matches, err := store.FindReusable(mustEmbedding(t, []float64{1, 0, 0}), 0, 10)
	require.NoError(t, err)
	_ = matches // embedding-less procedure won't score against a query embedding; exercised for no-panic behavior
}

func TestStore_RecordRunWithoutProcedureLinkage(t *testing.T) {
	ksgStore := ksg.NewStore()
	store := procedure.NewStore(ksgStore)

	traceID := valueobjects.NewTraceID()
	runID, err := store.RecordRun(context.Background(), nil, true, []procedure.StepResult{
		{StepID: "only", Success: true},
	}, traceID, testProvenance())
	require.NoError(t, err)
	assert.False(t, runID.IsZero())
}

func TestStore_FindReusableFlagsSingleStepProcedures(t *testing.T) {
	ksgStore := ksg.NewStore()
	store := procedure.NewStore(ksgStore)

	singleStep := procedure.Plan{
		Name: "one-step",
		Steps: []procedure.Step{
			{ID: "only", Tool: "web.fill", Params: map[string]interface{}{"selector": "#x", "value": "v"}},
		},
	}
	embedding := mustEmbedding(t, []float64{1, 0, 0})
	_, err := store.CreateFromJSON(context.Background(), singleStep, &embedding, toolLookup(), testProvenance())
	require.NoError(t, err)

	matches, err := store.FindReusable(embedding, 0, 10)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.True(t, matches[0].SingleStep)
}

func mustEmbedding(t *testing.T, values []float64) valueobjects.Embedding {
	t.Helper()
	e, err := valueobjects.NewEmbedding(values)
	require.NoError(t, err)
	return e
}
