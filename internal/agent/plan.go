package agent

import (
	"context"
	"strings"

	"github.com/lehelkovach/osl-agent-prototype-sub000/internal/intentparser"
	"github.com/lehelkovach/osl-agent-prototype-sub000/internal/llm"
	"github.com/lehelkovach/osl-agent-prototype-sub000/internal/procedure"
	"github.com/lehelkovach/osl-agent-prototype-sub000/internal/tools"
)

// planningSystemPrompt is the §6.1 strict-JSON planning contract: every
// field the LLM must emit, and the closed set of tools it may reference.
const planningSystemPrompt = `You are a planning assistant. Respond with strict JSON only, no prose:
{"name": "...", "description": "...", "confidence": 0.0-1.0, "steps": [{"id": "...", "tool": "...", "params": {...}, "depends_on": [...], "on_fail": "stop|continue|retry"}]}
confidence reflects how certain you are this plan will succeed unmodified.
Only reference these tools: web.get_dom, web.screenshot, web.fill, web.click_selector, web.wait_for, form.autofill, memory.remember, memory.recall, procedure.create, procedure.search, procedure.run, dag.execute, queue.enqueue, queue.update.`

func (l *Loop) planWithLLM(ctx context.Context, text string) (llm.Plan, error) {
	raw, err := l.llm.Chat(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: planningSystemPrompt},
		{Role: llm.RoleUser, Content: text},
	}, llm.ChatOptions{ResponseFormat: llm.ResponseFormatJSON, Temperature: 0.2})
	if err != nil {
		return llm.Plan{}, err
	}
	return llm.ParsePlan(raw)
}

func (l *Loop) toolSchemaLookup(tool string) (procedure.ToolSchema, bool) {
	d, ok := l.tools.Lookup(tool)
	if !ok {
		return procedure.ToolSchema{}, false
	}
	return procedure.ToolSchema{Name: d.Name, RequiredParams: d.RequiredParams}, true
}

// cannedPlan returns a deterministic single-step plan for an intent the
// classifier is confident enough about to skip LLM planning entirely
// (§4.8, §6.4 SKIP_LLM_FOR_OBVIOUS_INTENTS). Intents with no deterministic
// shortcut return a zero-value Plan.
func cannedPlan(intent intentparser.Intent) procedure.Plan {
	switch intent {
	case intentparser.IntentTaskCreate:
		return procedure.Plan{Name: "task_create", Steps: []procedure.Step{
			{ID: "enqueue", Tool: tools.QueueEnqueue, Params: tools.Params{"kind": "task"}},
		}}
	case intentparser.IntentReminder:
		return procedure.Plan{Name: "reminder", Steps: []procedure.Step{
			{ID: "enqueue", Tool: tools.QueueEnqueue, Params: tools.Params{"kind": "reminder"}},
		}}
	case intentparser.IntentCalendarCreate:
		return procedure.Plan{Name: "calendar_create", Steps: []procedure.Step{
			{ID: "enqueue", Tool: tools.QueueEnqueue, Params: tools.Params{"kind": "calendar_event"}},
		}}
	default:
		return procedure.Plan{}
	}
}

// recallKeywords are the terms whose presence forces the full
// classify-retrieve-plan pipeline even when the deterministic classifier
// would otherwise short-circuit (§9 open question: a query that merely
// mentions recall machinery should not be swallowed by a canned plan).
var recallKeywords = []string{"recall", "steps", "procedure", "note", "concept"}

func mentionsRecallKeyword(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range recallKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
