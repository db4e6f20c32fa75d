package agent_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/lehelkovach/osl-agent-prototype-sub000/internal/agent"
	"github.com/lehelkovach/osl-agent-prototype-sub000/internal/config"
	agenterrors "github.com/lehelkovach/osl-agent-prototype-sub000/internal/errors"
	"github.com/lehelkovach/osl-agent-prototype-sub000/internal/ksg"
	"github.com/lehelkovach/osl-agent-prototype-sub000/internal/learning"
	"github.com/lehelkovach/osl-agent-prototype-sub000/internal/llm"
	"github.com/lehelkovach/osl-agent-prototype-sub000/internal/procedure"
	"github.com/lehelkovach/osl-agent-prototype-sub000/internal/resilience"
	"github.com/lehelkovach/osl-agent-prototype-sub000/internal/tools"
	"github.com/lehelkovach/osl-agent-prototype-sub000/internal/workingmem"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeLLM returns planJSON on its first Chat call and patchJSON on every
// call after, so one fake drives both the planning step and any subsequent
// adaptation requests.
type fakeLLM struct {
	mu        sync.Mutex
	chatCalls int
	planJSON  string
	patchJSON string
	embedding []float64
}

func (f *fakeLLM) Chat(ctx context.Context, messages []llm.Message, opts llm.ChatOptions) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chatCalls++
	if f.chatCalls == 1 {
		return f.planJSON, nil
	}
	return f.patchJSON, nil
}

func (f *fakeLLM) Embed(ctx context.Context, text string) ([]float64, error) {
	return f.embedding, nil
}

func (f *fakeLLM) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.chatCalls
}

// permissiveBreakerConfig never trips within a single test's call volume, so
// every tool failure surfaces as a ToolError rather than an AdapterUnavailable
// from an open breaker.
func permissiveBreakerConfig() resilience.BreakerConfig {
	return resilience.BreakerConfig{
		Name:             "test-tool",
		MaxRequests:      1000,
		Interval:         time.Minute,
		Timeout:          time.Minute,
		FailureThreshold: 0.99,
		MinRequests:      1000,
	}
}

func testConfig() *config.Config {
	return &config.Config{
		SkipLLMForObviousIntents: true,
		PlanMinConfidence:        0.5,
		MaxAdaptAttempts:         3,
		ReuseThreshold:           0.8,
		Defaults: config.Defaults{
			LLMChatTimeout:  5 * time.Second,
			ToolCallTimeout: 5 * time.Second,
			RequestTimeout:  time.Minute,
			SchedulerTick:   time.Second,
		},
	}
}

type testHarness struct {
	loop     *agent.Loop
	ksg      *ksg.Store
	procs    *procedure.Store
	registry *tools.Registry
	llm      *fakeLLM
}

func newHarness(t *testing.T, fake *fakeLLM) *testHarness {
	t.Helper()

	ksgStore := ksg.NewStore()
	procStore := procedure.NewStore(ksgStore)
	registry := tools.NewRegistry()
	wm := workingmem.New()
	learningEngine := learning.NewEngine(ksgStore, fake)
	breaker := resilience.NewBreaker(permissiveBreakerConfig(), zap.NewNop())

	loop := agent.NewLoop(testConfig(), ksgStore, procStore, registry, fake, wm, learningEngine, breaker, zap.NewNop(), nil)

	return &testHarness{loop: loop, ksg: ksgStore, procs: procStore, registry: registry, llm: fake}
}

func (h *testHarness) registerTool(name string, requiredParams []string, invoke func(ctx context.Context, params tools.Params) (tools.Params, error)) {
	h.registry.Register(tools.Descriptor{Name: name, RequiredParams: requiredParams, Invoke: invoke})
}

// --- S1: first-time learning ---

func TestLoop_FirstTimeLoginIsPlannedAndCredentialStored(t *testing.T) {
	fake := &fakeLLM{
		planJSON: `{"name":"login","confidence":0.95,"steps":[
			{"id":"fill-email","tool":"web.fill","params":{"selector":"#email","value":"ada@example.com"},"on_fail":"stop"},
			{"id":"submit","tool":"web.click_selector","params":{"selector":"#submit"},"depends_on":["fill-email"],"on_fail":"stop"}
		]}`,
		embedding: []float64{1, 0, 0},
	}
	h := newHarness(t, fake)
	h.registerTool("web.fill", []string{"selector", "value"}, func(ctx context.Context, p tools.Params) (tools.Params, error) {
		return tools.Params{}, nil
	})
	h.registerTool("web.click_selector", []string{"selector"}, func(ctx context.Context, p tools.Params) (tools.Params, error) {
		return tools.Params{}, nil
	})

	result, err := h.loop.Run(context.Background(), agent.Request{
		Text: "Log into example.com with email ada@example.com and password hunter2",
	})
	require.NoError(t, err)
	require.Equal(t, agent.StatusSuccess, result.Status)
	require.NotNil(t, result.ProcedureID)

	procedures, err := h.ksg.Search(ksg.SearchFilters{Kind: procedure.KindProcedure}, nil, 0, 0)
	require.NoError(t, err)
	assert.Len(t, procedures, 1)

	runs, err := h.ksg.Search(ksg.SearchFilters{Kind: procedure.KindProcedureRun}, nil, 0, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	success, hasSuccess := runs[0].Concept.Properties().Get("success")
	require.True(t, hasSuccess)
	_, isBool := success.(bool)
	assert.True(t, isBool) // stored as bool property, presence is what matters here

	credentials, err := h.ksg.Search(ksg.SearchFilters{Kind: agent.KindCredential, Labels: []string{"example.com"}}, nil, 0, 0)
	require.NoError(t, err)
	require.Len(t, credentials, 1)
	email, _ := credentials[0].Concept.Properties().GetString("email")
	assert.Equal(t, "ada@example.com", email)
}

// --- S2: pattern reuse ---

func TestLoop_SecondLoginReusesProcedureAndBumpsRecallCount(t *testing.T) {
	fake := &fakeLLM{
		planJSON: `{"name":"login","confidence":0.95,"steps":[
			{"id":"fill-email","tool":"web.fill","params":{"selector":"#email","value":"ada@example.com"},"on_fail":"stop"},
			{"id":"submit","tool":"web.click_selector","params":{"selector":"#submit"},"depends_on":["fill-email"],"on_fail":"stop"}
		]}`,
		embedding: []float64{1, 0, 0},
	}
	h := newHarness(t, fake)
	h.registerTool("web.fill", []string{"selector", "value"}, func(ctx context.Context, p tools.Params) (tools.Params, error) {
		return tools.Params{}, nil
	})
	h.registerTool("web.click_selector", []string{"selector"}, func(ctx context.Context, p tools.Params) (tools.Params, error) {
		return tools.Params{}, nil
	})

	first, err := h.loop.Run(context.Background(), agent.Request{
		Text: "Log into example.com with email ada@example.com and password hunter2",
	})
	require.NoError(t, err)
	require.Equal(t, agent.StatusSuccess, first.Status)
	require.Equal(t, 1, fake.calls())

	second, err := h.loop.Run(context.Background(), agent.Request{Text: "Log into example.com again"})
	require.NoError(t, err)
	require.Equal(t, agent.StatusSuccess, second.Status)

	assert.Equal(t, 1, fake.calls(), "reuse path must not call the LLM to re-plan")
	assert.True(t, first.ProcedureID.Equals(*second.ProcedureID))

	procedures, err := h.ksg.Search(ksg.SearchFilters{Kind: procedure.KindProcedure}, nil, 0, 0)
	require.NoError(t, err)
	assert.Len(t, procedures, 1, "reuse must not create a second procedure")

	credentials, err := h.ksg.Search(ksg.SearchFilters{Kind: agent.KindCredential, Labels: []string{"example.com"}}, nil, 0, 0)
	require.NoError(t, err)
	require.Len(t, credentials, 1)
	recallCount, _ := credentials[0].Concept.Properties().GetFloat("recallCount")
	assert.Equal(t, float64(1), recallCount)
}

// --- S3: selector adaptation ---

func TestLoop_AdaptsToFallbackSelectorAndPersistsIt(t *testing.T) {
	fake := &fakeLLM{
		planJSON: `{"name":"login","confidence":0.95,"steps":[
			{"id":"fill-email","tool":"web.fill","params":{"selector":"#email","value":"a@b.com","fallback_selectors":["#user"]},"on_fail":"stop"}
		]}`,
		embedding: []float64{1, 0, 0},
	}
	h := newHarness(t, fake)

	attempts := 0
	h.registerTool("web.fill", []string{"selector", "value"}, func(ctx context.Context, p tools.Params) (tools.Params, error) {
		attempts++
		selector, _ := p["selector"].(string)
		if selector == "#email" {
			return nil, agenterrors.ToolErr("web.fill", errors.New("selector not found"))
		}
		return tools.Params{}, nil
	})

	result, err := h.loop.Run(context.Background(), agent.Request{Text: "please sign in to the dashboard"})
	require.NoError(t, err)
	require.Equal(t, agent.StatusSuccess, result.Status)
	assert.Equal(t, 2, attempts, "first attempt with #email fails, second with the fallback selector succeeds")

	hydrated, err := h.procs.Hydrate(context.Background(), *result.ProcedureID)
	require.NoError(t, err)
	var fillStep procedure.Step
	for _, s := range hydrated.Steps {
		if s.ID == "fill-email" {
			fillStep = s
		}
	}
	assert.Equal(t, "#user", fillStep.Params["selector"])
}

// --- S6: adaptation ceiling ---

func TestLoop_AdaptationCeilingAsksUserAfterMaxAttempts(t *testing.T) {
	fake := &fakeLLM{
		planJSON:  `{"name":"login","confidence":0.95,"steps":[{"id":"fill-email","tool":"web.fill","params":{"selector":"#email"},"on_fail":"stop"}]}`,
		patchJSON: `{"params":{"selector":"#still-wrong"}}`,
		embedding: []float64{1, 0, 0},
	}
	h := newHarness(t, fake)

	invocations := 0
	h.registerTool("web.fill", []string{"selector"}, func(ctx context.Context, p tools.Params) (tools.Params, error) {
		invocations++
		return nil, agenterrors.ToolErr("web.fill", errors.New("persistent failure"))
	})

	result, err := h.loop.Run(context.Background(), agent.Request{Text: "please sign in to the dashboard"})
	require.NoError(t, err)
	require.Equal(t, agent.StatusAskUser, result.Status)
	require.NotNil(t, result.Pending)
	assert.Equal(t, agent.PendingReasonAdaptCeiling, result.Pending.Reason)
	assert.Contains(t, result.Question, "web.fill")

	// one initial attempt plus MaxAdaptAttempts retries
	assert.Equal(t, 1+testConfig().MaxAdaptAttempts, invocations)
}

// --- confidence gate ---

func TestLoop_LowConfidencePlanAsksUserBeforeExecuting(t *testing.T) {
	fake := &fakeLLM{
		planJSON:  `{"name":"uncertain","confidence":0.1,"steps":[{"id":"fill","tool":"web.fill","params":{"selector":"#x","value":"y"},"on_fail":"stop"}]}`,
		embedding: []float64{1, 0, 0},
	}
	h := newHarness(t, fake)
	invoked := false
	h.registerTool("web.fill", []string{"selector", "value"}, func(ctx context.Context, p tools.Params) (tools.Params, error) {
		invoked = true
		return tools.Params{}, nil
	})

	result, err := h.loop.Run(context.Background(), agent.Request{Text: "do something unusual"})
	require.NoError(t, err)
	assert.Equal(t, agent.StatusAskUser, result.Status)
	require.NotNil(t, result.Pending)
	assert.Equal(t, agent.PendingReasonConfidence, result.Pending.Reason)
	assert.False(t, invoked, "a below-threshold plan must not execute before approval")

	resumed, err := h.loop.Run(context.Background(), agent.Request{Pending: result.Pending, Approved: true})
	require.NoError(t, err)
	assert.Equal(t, agent.StatusSuccess, resumed.Status)
	assert.True(t, invoked)
}
