package agent

import (
	"context"
	"fmt"

	"github.com/lehelkovach/osl-agent-prototype-sub000/domain/core/valueobjects"
	agenterrors "github.com/lehelkovach/osl-agent-prototype-sub000/internal/errors"
	"github.com/lehelkovach/osl-agent-prototype-sub000/internal/procedure"
	"github.com/lehelkovach/osl-agent-prototype-sub000/internal/tools"
)

// askUserSignal carries the step and question that suspended execution
// after MAX_ADAPT_ATTEMPTS was exhausted (§4.9 FAILURE -> ASK_USER).
type askUserSignal struct {
	Step     procedure.Step
	Question string
}

// stepExecResult is the outcome of running one step to either a terminal
// state or a suspension.
type stepExecResult struct {
	Result    procedure.StepResult
	NeedsUser bool
	Question  string
	Fatal     bool
}

// execute runs plan's steps in dependency order, skipping any already in
// completed (resumption) and short-circuiting dependents of a step that
// failed terminally with on_fail=stop. It returns as soon as a step asks
// for user input or a fatal invariant violation occurs.
func (l *Loop) execute(
	ctx context.Context,
	plan procedure.Plan,
	completed map[string]procedure.StepResult,
	adaptAttempts map[string]int,
	provenance valueobjects.Provenance,
	procedureID *valueobjects.NodeID,
) ([]procedure.StepResult, *askUserSignal, error) {
	already := make(map[string]bool, len(completed))
	for id := range completed {
		already[id] = true
	}

	order := topoOrder(plan.Steps, already)

	resultsByID := make(map[string]procedure.StepResult, len(completed)+len(order))
	for id, r := range completed {
		resultsByID[id] = r
	}
	blocked := make(map[string]bool)

	for _, step := range order {
		if dependencyBlocked(step, blocked) {
			resultsByID[step.ID] = procedure.StepResult{StepID: step.ID, Success: false, Error: "skipped: a dependency failed"}
			blocked[step.ID] = true
			continue
		}

		res := l.executeStep(ctx, step, adaptAttempts, provenance, procedureID)
		if res.Fatal {
			return orderedResults(plan, resultsByID), nil, agenterrors.InvariantViolation(res.Result.Error)
		}
		if res.NeedsUser {
			return orderedResults(plan, resultsByID), &askUserSignal{Step: step, Question: res.Question}, nil
		}

		resultsByID[step.ID] = res.Result
		if !res.Result.Success && step.OnFail != procedure.OnFailContinue {
			blocked[step.ID] = true
		}
	}

	return orderedResults(plan, resultsByID), nil, nil
}

// executeStep runs one step to a terminal outcome, adapting on ToolError up
// to MAX_ADAPT_ATTEMPTS and never retrying InvalidInput, SchemaViolation, or
// AdapterUnavailable (§7).
func (l *Loop) executeStep(
	ctx context.Context,
	step procedure.Step,
	adaptAttempts map[string]int,
	provenance valueobjects.Provenance,
	procedureID *valueobjects.NodeID,
) stepExecResult {
	var winningSelector string

	for {
		_, err := l.invokeTool(ctx, step)
		if err == nil {
			if winningSelector != "" && procedureID != nil {
				_ = l.procedures.PersistWinningSelector(ctx, *procedureID, step.ID, winningSelector)
			}
			if l.metrics != nil {
				l.metrics.StepOutcomesTotal.WithLabelValues("success").Inc()
			}
			return stepExecResult{Result: procedure.StepResult{StepID: step.ID, Success: true}}
		}

		switch {
		case agenterrors.Is(err, agenterrors.KindInvariantViolation):
			return stepExecResult{Result: procedure.StepResult{StepID: step.ID, Success: false, Error: err.Error()}, Fatal: true}

		case agenterrors.Is(err, agenterrors.KindAdapterUnavailable):
			// §7: never counts toward MAX_ADAPT_ATTEMPTS, step is simply FAILURE.
			l.recordStepOutcome("adapter_unavailable")
			return stepExecResult{Result: procedure.StepResult{StepID: step.ID, Success: false, Error: err.Error()}}

		case agenterrors.Is(err, agenterrors.KindTimeout):
			if step.OnFail == procedure.OnFailRetry && adaptAttempts[step.ID] < l.cfg.MaxAdaptAttempts {
				adaptAttempts[step.ID]++
				continue
			}
			l.recordStepOutcome("timeout")
			return stepExecResult{Result: procedure.StepResult{StepID: step.ID, Success: false, Error: err.Error()}}

		case agenterrors.Is(err, agenterrors.KindToolError):
			if adaptAttempts[step.ID] >= l.cfg.MaxAdaptAttempts {
				return stepExecResult{
					NeedsUser: true,
					Question:  adaptCeilingQuestion(step, adaptAttempts[step.ID], err),
				}
			}
			adaptAttempts[step.ID]++

			adapted, aerr := l.adapt(ctx, step, err, provenance)
			if aerr == nil {
				if sel, ok := adapted.Params["selector"]; ok {
					if selStr, ok2 := sel.(string); ok2 && selStr != selectorOf(step) {
						winningSelector = selStr
					}
				}
				step = adapted
			}
			l.recordStepOutcome("tool_error_retry")
			continue

		default:
			l.recordStepOutcome("terminal_failure")
			return stepExecResult{Result: procedure.StepResult{StepID: step.ID, Success: false, Error: err.Error()}}
		}
	}
}

func (l *Loop) recordStepOutcome(outcome string) {
	if l.metrics != nil {
		l.metrics.StepOutcomesTotal.WithLabelValues(outcome).Inc()
	}
}

func (l *Loop) invokeTool(ctx context.Context, step procedure.Step) (tools.Params, error) {
	callCtx, cancel := context.WithTimeout(ctx, l.cfg.Defaults.ToolCallTimeout)
	defer cancel()

	result, err := l.breaker.Call(callCtx, func(ctx context.Context) (interface{}, error) {
		return l.tools.Invoke(ctx, step.Tool, tools.Params(step.Params))
	})
	if err != nil {
		return nil, err
	}
	params, _ := result.(tools.Params)
	return params, nil
}

func selectorOf(step procedure.Step) string {
	if v, ok := step.Params["selector"]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func adaptCeilingQuestion(step procedure.Step, attempts int, err error) string {
	return fmt.Sprintf("step %q (tool %q, params %v) failed after %d adaptation attempts: %s", step.ID, step.Tool, step.Params, attempts, err.Error())
}

func dependencyBlocked(step procedure.Step, blocked map[string]bool) bool {
	for _, dep := range step.DependsOn {
		if blocked[dep] {
			return true
		}
	}
	return false
}

// topoOrder returns plan's not-yet-completed steps ordered so every step
// follows its dependencies, using Kahn's algorithm and preserving
// declaration order among steps that become runnable simultaneously.
func topoOrder(steps []procedure.Step, completed map[string]bool) []procedure.Step {
	remaining := make([]procedure.Step, 0, len(steps))
	for _, s := range steps {
		if !completed[s.ID] {
			remaining = append(remaining, s)
		}
	}

	done := make(map[string]bool, len(completed))
	for id := range completed {
		done[id] = true
	}

	var ordered []procedure.Step
	for len(remaining) > 0 {
		progressed := false
		next := remaining[:0]
		for _, s := range remaining {
			if allSatisfied(s.DependsOn, done) {
				ordered = append(ordered, s)
				done[s.ID] = true
				progressed = true
			} else {
				next = append(next, s)
			}
		}
		if !progressed {
			// Remaining steps depend on something that will never complete
			// (e.g. Validate let through a dependency on a skipped branch);
			// stop rather than loop forever.
			break
		}
		remaining = next
	}
	return ordered
}

func allSatisfied(deps []string, done map[string]bool) bool {
	for _, d := range deps {
		if !done[d] {
			return false
		}
	}
	return true
}

func orderedResults(plan procedure.Plan, resultsByID map[string]procedure.StepResult) []procedure.StepResult {
	out := make([]procedure.StepResult, 0, len(resultsByID))
	for _, s := range plan.Steps {
		if r, ok := resultsByID[s.ID]; ok {
			out = append(out, r)
		}
	}
	return out
}
