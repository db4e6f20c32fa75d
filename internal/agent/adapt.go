package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/lehelkovach/osl-agent-prototype-sub000/domain/core/valueobjects"
	agenterrors "github.com/lehelkovach/osl-agent-prototype-sub000/internal/errors"
	"github.com/lehelkovach/osl-agent-prototype-sub000/internal/llm"
	"github.com/lehelkovach/osl-agent-prototype-sub000/internal/procedure"
)

// adaptationSystemPrompt instructs the LLM to repair a single failing step.
const adaptationSystemPrompt = `You repair one failing tool-call step. Respond with strict JSON only: {"params": {...}} containing only the params that should change.`

// stepPatch is the strict-JSON shape an adaptation response must take.
type stepPatch struct {
	Params map[string]interface{} `json:"params"`
}

// adapt repairs a failing step. A step carrying unused fallback_selectors
// consumes the next one without consulting the LLM (§8 S3); otherwise the
// LLM is asked for a targeted params patch, informed by similar past
// failures the learning engine has on file.
func (l *Loop) adapt(ctx context.Context, step procedure.Step, failure error, provenance valueobjects.Provenance) (procedure.Step, error) {
	if patched, ok := nextFallbackSelector(step); ok {
		return patched, nil
	}
	return l.adaptViaLLM(ctx, step, failure, provenance)
}

func nextFallbackSelector(step procedure.Step) (procedure.Step, bool) {
	raw, ok := step.Params["fallback_selectors"]
	if !ok {
		return step, false
	}

	list := toStringSlice(raw)
	if len(list) == 0 {
		return step, false
	}

	patched := step
	patched.Params = cloneParams(step.Params)
	patched.Params["selector"] = list[0]
	patched.Params["fallback_selectors"] = list[1:]
	return patched, true
}

func toStringSlice(raw interface{}) []string {
	switch v := raw.(type) {
	case []string:
		return v
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func cloneParams(params map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(params))
	for k, v := range params {
		out[k] = v
	}
	return out
}

func (l *Loop) adaptViaLLM(ctx context.Context, step procedure.Step, failure error, provenance valueobjects.Provenance) (procedure.Step, error) {
	var lessons string
	if l.learning != nil {
		if similar, err := l.learning.FindSimilarKnowledge(ctx, step.Tool+" "+failure.Error(), 3); err == nil {
			for _, r := range similar {
				if summary, ok := r.Concept.Properties().GetString("summary"); ok {
					lessons += "- " + summary + "\n"
				}
			}
		}
	}

	prompt := fmt.Sprintf(
		"Step %q calling tool %q with params %v failed: %s\n%sReturn the minimal params patch to fix this.",
		step.ID, step.Tool, step.Params, failure.Error(), lessons,
	)

	raw, err := l.llm.Chat(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: adaptationSystemPrompt},
		{Role: llm.RoleUser, Content: prompt},
	}, llm.ChatOptions{ResponseFormat: llm.ResponseFormatJSON, Temperature: 0.1})
	if err != nil {
		return step, err
	}

	var patch stepPatch
	if jerr := json.Unmarshal([]byte(raw), &patch); jerr != nil || len(patch.Params) == 0 {
		return step, agenterrors.InvalidInput("adaptation response was not a valid params patch")
	}

	patched := step
	patched.Params = cloneParams(step.Params)
	for k, v := range patch.Params {
		patched.Params[k] = v
	}
	return patched, nil
}
