package llm_test

import (
	"testing"

	agenterrors "github.com/lehelkovach/osl-agent-prototype-sub000/internal/errors"
	"github.com/lehelkovach/osl-agent-prototype-sub000/internal/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePlan_StrictShape(t *testing.T) {
	raw := `{"name":"login","confidence":0.92,"steps":[{"id":"s1","tool":"web.fill","params":{"selector":"#e"}}]}`

	plan, err := llm.ParsePlan(raw)
	require.NoError(t, err)
	assert.Equal(t, "login", plan.Name)
	assert.Equal(t, 0.92, plan.Confidence)
	require.Len(t, plan.Steps, 1)
	assert.Equal(t, "web.fill", plan.Steps[0].Tool)
}

func TestParsePlan_LegacyShapeDefaultsConfidence(t *testing.T) {
	raw := `{"intent":"task_create","steps":[{"id":"s1","tool":"procedure.run","params":{}}]}`

	plan, err := llm.ParsePlan(raw)
	require.NoError(t, err)
	assert.Equal(t, "task_create", plan.Name)
	assert.Equal(t, 1.0, plan.Confidence)
}

func TestParsePlan_UnparsableReturnsInvalidInput(t *testing.T) {
	_, err := llm.ParsePlan("not json at all")
	require.Error(t, err)
	assert.True(t, agenterrors.Is(err, agenterrors.KindInvalidInput))
}

func TestPlan_ToProcedurePlanConvertsSteps(t *testing.T) {
	plan := llm.Plan{
		Name: "login",
		Steps: []llm.PlannedStep{
			{ID: "s1", Tool: "web.fill", Params: map[string]interface{}{"selector": "#e"}, OnFail: "retry"},
		},
	}

	converted := plan.ToProcedurePlan()
	assert.Equal(t, "login", converted.Name)
	require.Len(t, converted.Steps, 1)
	assert.Equal(t, "web.fill", converted.Steps[0].Tool)
}
