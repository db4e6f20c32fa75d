// Package procedure implements the procedure subsystem (C3): validating
// LLM-authored plans, materializing them as Procedure/ProcedureStep
// concepts in the knowledge graph, hydrating them back into an executable
// plan, and recording run outcomes that feed the generalization trigger.
package procedure

import (
	"fmt"

	agenterrors "github.com/lehelkovach/osl-agent-prototype-sub000/internal/errors"
)

// OnFail is the recovery policy a step declares for its own failure.
type OnFail string

const (
	OnFailStop     OnFail = "stop"
	OnFailContinue OnFail = "continue"
	OnFailRetry    OnFail = "retry"
)

// Step is a single tool invocation in a plan.
type Step struct {
	ID        string                 `json:"id"`
	Name      string                 `json:"name,omitempty"`
	Tool      string                 `json:"tool"`
	Params    map[string]interface{} `json:"params"`
	DependsOn []string               `json:"depends_on,omitempty"`
	OnFail    OnFail                 `json:"on_fail,omitempty"`
}

// Plan is the LLM JSON plan schema for a procedure (§4.3 Input schema).
type Plan struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Steps       []Step `json:"steps"`
}

// ToolSchema describes the params a tool requires, used by Validate to
// check for missing required params at plan time.
type ToolSchema struct {
	Name           string
	RequiredParams []string
}

// ToolSchemaLookup resolves a tool name to its schema, or ok=false if the
// tool is unknown.
type ToolSchemaLookup func(tool string) (ToolSchema, bool)

// Validate checks plan against the §4.3 InvalidPlan conditions: duplicate
// step ids, an unknown tool, a dependency on an unknown step id, a cycle in
// depends_on, or a missing required param for a declared tool.
func Validate(plan Plan, tools ToolSchemaLookup) error {
	if plan.Name == "" {
		return agenterrors.InvalidInput("plan name is required")
	}
	if len(plan.Steps) == 0 {
		return agenterrors.InvalidInput("plan must have at least one step")
	}

	seen := make(map[string]Step, len(plan.Steps))
	for _, step := range plan.Steps {
		if step.ID == "" {
			return agenterrors.InvalidInput("step id cannot be empty")
		}
		if _, dup := seen[step.ID]; dup {
			return agenterrors.InvalidInput(fmt.Sprintf("duplicate step id %q", step.ID))
		}
		seen[step.ID] = step

		schema, ok := tools(step.Tool)
		if !ok {
			return agenterrors.InvalidInput(fmt.Sprintf("unknown tool %q in step %q", step.Tool, step.ID))
		}
		for _, required := range schema.RequiredParams {
			if _, present := step.Params[required]; !present {
				return agenterrors.InvalidInput(fmt.Sprintf("step %q missing required param %q for tool %q", step.ID, required, step.Tool))
			}
		}
	}

	for _, step := range plan.Steps {
		for _, dep := range step.DependsOn {
			if _, ok := seen[dep]; !ok {
				return agenterrors.InvalidInput(fmt.Sprintf("step %q depends on unknown step %q", step.ID, dep))
			}
		}
	}

	if cycle := findCycle(plan.Steps); cycle != "" {
		return agenterrors.InvariantViolation(fmt.Sprintf("dependency cycle detected at step %q", cycle))
	}

	return nil
}

// findCycle runs a DFS over the depends_on graph, returning the id of a
// step involved in a cycle, or "" if the graph is acyclic.
func findCycle(steps []Step) string {
	deps := make(map[string][]string, len(steps))
	for _, s := range steps {
		deps[s.ID] = s.DependsOn
	}

	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(steps))

	var visit func(id string) string
	visit = func(id string) string {
		color[id] = gray
		for _, dep := range deps[id] {
			switch color[dep] {
			case gray:
				return id
			case white:
				if cyc := visit(dep); cyc != "" {
					return cyc
				}
			}
		}
		color[id] = black
		return ""
	}

	for _, s := range steps {
		if color[s.ID] == white {
			if cyc := visit(s.ID); cyc != "" {
				return cyc
			}
		}
	}
	return ""
}
