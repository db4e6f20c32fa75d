package procedure_test

import (
	"testing"

	agenterrors "github.com/lehelkovach/osl-agent-prototype-sub000/internal/errors"
	"github.com/lehelkovach/osl-agent-prototype-sub000/internal/procedure"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeTools(known map[string][]string) procedure.ToolSchemaLookup {
	return func(tool string) (procedure.ToolSchema, bool) {
		params, ok := known[tool]
		if !ok {
			return procedure.ToolSchema{}, false
		}
		return procedure.ToolSchema{Name: tool, RequiredParams: params}, true
	}
}

func validPlan() procedure.Plan {
	return procedure.Plan{
		Name: "login-flow",
		Steps: []procedure.Step{
			{ID: "fill-email", Tool: "web.fill", Params: map[string]interface{}{"selector": "#email", "value": "a@b.com"}},
			{ID: "click-submit", Tool: "web.click_selector", Params: map[string]interface{}{"selector": "#submit"}, DependsOn: []string{"fill-email"}},
		},
	}
}

func TestValidate_AcceptsWellFormedPlan(t *testing.T) {
	tools := fakeTools(map[string][]string{
		"web.fill":          {"selector", "value"},
		"web.click_selector": {"selector"},
	})
	assert.NoError(t, procedure.Validate(validPlan(), tools))
}

func TestValidate_RejectsMissingName(t *testing.T) {
	plan := validPlan()
	plan.Name = ""
	err := procedure.Validate(plan, fakeTools(nil))
	require.Error(t, err)
	assert.True(t, agenterrors.Is(err, agenterrors.KindInvalidInput))
}

func TestValidate_RejectsDuplicateStepID(t *testing.T) {
	plan := validPlan()
	plan.Steps = append(plan.Steps, plan.Steps[0])
	tools := fakeTools(map[string][]string{"web.fill": {"selector", "value"}, "web.click_selector": {"selector"}})

	err := procedure.Validate(plan, tools)
	require.Error(t, err)
	assert.True(t, agenterrors.Is(err, agenterrors.KindInvalidInput))
}

func TestValidate_RejectsUnknownTool(t *testing.T) {
	plan := validPlan()
	err := procedure.Validate(plan, fakeTools(nil))
	require.Error(t, err)
	assert.True(t, agenterrors.Is(err, agenterrors.KindInvalidInput))
}

func TestValidate_RejectsMissingRequiredParam(t *testing.T) {
	plan := procedure.Plan{
		Name: "p",
		Steps: []procedure.Step{
			{ID: "s1", Tool: "web.fill", Params: map[string]interface{}{"selector": "#x"}},
		},
	}
	tools := fakeTools(map[string][]string{"web.fill": {"selector", "value"}})

	err := procedure.Validate(plan, tools)
	require.Error(t, err)
	assert.True(t, agenterrors.Is(err, agenterrors.KindInvalidInput))
}

func TestValidate_RejectsDependencyOnUnknownStep(t *testing.T) {
	plan := procedure.Plan{
		Name: "p",
		Steps: []procedure.Step{
			{ID: "s1", Tool: "web.fill", Params: map[string]interface{}{"selector": "#x", "value": "v"}, DependsOn: []string{"missing"}},
		},
	}
	tools := fakeTools(map[string][]string{"web.fill": {"selector", "value"}})

	err := procedure.Validate(plan, tools)
	require.Error(t, err)
	assert.True(t, agenterrors.Is(err, agenterrors.KindInvalidInput))
}

func TestValidate_RejectsDependencyCycle(t *testing.T) {
	plan := procedure.Plan{
		Name: "p",
		Steps: []procedure.Step{
			{ID: "a", Tool: "noop", DependsOn: []string{"b"}},
			{ID: "b", Tool: "noop", DependsOn: []string{"a"}},
		},
	}
	tools := fakeTools(map[string][]string{"noop": nil})

	err := procedure.Validate(plan, tools)
	require.Error(t, err)
	assert.True(t, agenterrors.Is(err, agenterrors.KindInvariantViolation))
}
