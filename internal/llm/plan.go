package llm

import (
	"encoding/json"

	agenterrors "github.com/lehelkovach/osl-agent-prototype-sub000/internal/errors"
	"github.com/lehelkovach/osl-agent-prototype-sub000/internal/procedure"
)

// PlannedStep is one step of the LLM's plan response; its fields mirror
// procedure.Step.
type PlannedStep struct {
	ID        string                 `json:"id"`
	Name      string                 `json:"name,omitempty"`
	Tool      string                 `json:"tool"`
	Params    map[string]interface{} `json:"params"`
	DependsOn []string               `json:"depends_on,omitempty"`
	OnFail    string                 `json:"on_fail,omitempty"`
}

// Plan is the §6.1 strict-JSON plan shape the LLM is instructed to emit.
type Plan struct {
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Confidence  float64       `json:"confidence"`
	Steps       []PlannedStep `json:"steps"`
}

// legacyPlan is the `{intent, steps}` compatibility fallback shape §6.1
// requires the parser to still accept.
type legacyPlan struct {
	Intent string        `json:"intent"`
	Steps  []PlannedStep `json:"steps"`
}

// ParsePlan parses an LLM chat response into a Plan. It tries the current
// strict shape first; if that produces no steps, it falls back to the
// legacy {intent, steps} shape, defaulting confidence to 1.0 since legacy
// responses never declared one. A parse failure returns InvalidInput
// rather than panicking, so the caller can fall back to ask_user with the
// original error context (§6.1).
func ParsePlan(raw string) (Plan, error) {
	var plan Plan
	if err := json.Unmarshal([]byte(raw), &plan); err == nil && len(plan.Steps) > 0 {
		return plan, nil
	}

	var legacy legacyPlan
	if err := json.Unmarshal([]byte(raw), &legacy); err == nil && len(legacy.Steps) > 0 {
		return Plan{
			Name:       legacy.Intent,
			Confidence: 1.0,
			Steps:      legacy.Steps,
		}, nil
	}

	return Plan{}, agenterrors.InvalidInput("could not parse LLM plan response as either the current or legacy shape")
}

// ToProcedurePlan converts the LLM-shaped plan into the procedure
// package's plan type for validation and persistence.
func (p Plan) ToProcedurePlan() procedure.Plan {
	steps := make([]procedure.Step, 0, len(p.Steps))
	for _, s := range p.Steps {
		steps = append(steps, procedure.Step{
			ID:        s.ID,
			Name:      s.Name,
			Tool:      s.Tool,
			Params:    s.Params,
			DependsOn: s.DependsOn,
			OnFail:    procedure.OnFail(s.OnFail),
		})
	}
	return procedure.Plan{Name: p.Name, Description: p.Description, Steps: steps}
}
