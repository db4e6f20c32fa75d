// Package agent implements the agent control loop (C9, §4.9): classify,
// retrieve, check for a reusable procedure, plan when none is reused, gate on confidence,
// execute step-by-step with adaptation, then persist the run and feed
// outcomes to the learning engine. It is the component every other
// subsystem in this module ultimately serves.
package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/lehelkovach/osl-agent-prototype-sub000/domain/core/entities"
	"github.com/lehelkovach/osl-agent-prototype-sub000/domain/core/valueobjects"
	"github.com/lehelkovach/osl-agent-prototype-sub000/internal/config"
	agenterrors "github.com/lehelkovach/osl-agent-prototype-sub000/internal/errors"
	"github.com/lehelkovach/osl-agent-prototype-sub000/internal/intentparser"
	"github.com/lehelkovach/osl-agent-prototype-sub000/internal/ksg"
	"github.com/lehelkovach/osl-agent-prototype-sub000/internal/learning"
	"github.com/lehelkovach/osl-agent-prototype-sub000/internal/llm"
	"github.com/lehelkovach/osl-agent-prototype-sub000/internal/observability"
	"github.com/lehelkovach/osl-agent-prototype-sub000/internal/procedure"
	"github.com/lehelkovach/osl-agent-prototype-sub000/internal/resilience"
	"github.com/lehelkovach/osl-agent-prototype-sub000/internal/tools"
	"github.com/lehelkovach/osl-agent-prototype-sub000/internal/workingmem"

	"go.uber.org/zap"
)

// Status is the terminal (or suspended) status of one Run call.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
	StatusAskUser Status = "ask_user"
)

// PendingReason explains why a run suspended waiting on the user (§4.9
// execution state machine: FAILURE -> ASK_USER -> {RESUME | ABORT}, and the
// separate confidence gate before execution ever starts).
type PendingReason string

const (
	PendingReasonConfidence   PendingReason = "confidence_gate"
	PendingReasonAdaptCeiling PendingReason = "adapt_ceiling"
)

// PendingState carries everything Run needs to resume a suspended request:
// the plan, what has already executed, and per-step adaptation budgets
// already spent.
type PendingState struct {
	Plan          procedure.Plan
	ProcedureID   *valueobjects.NodeID
	Embedding     valueobjects.Embedding
	Completed     []procedure.StepResult
	AdaptAttempts map[string]int
	Reason        PendingReason
}

// Request is one call into the agent loop: a fresh utterance, or a
// resumption of a previously suspended one (Pending set).
type Request struct {
	Text     string
	UserID   string
	TraceID  valueobjects.TraceID
	Pending  *PendingState
	Approved bool
}

// Result is what the agent loop produced: either a terminal outcome or a
// suspension asking the caller to approve/resume/abort.
type Result struct {
	TraceID     valueobjects.TraceID
	Status      Status
	PlanName    string
	StepResults []procedure.StepResult
	ProcedureID *valueobjects.NodeID
	RunID       valueobjects.NodeID
	Pending     *PendingState
	Question    string
}

// Loop wires every collaborator the control loop drives: the knowledge
// graph, the procedure subsystem, the tool registry, the LLM, working
// memory, the learning engine, and a circuit breaker guarding tool calls.
type Loop struct {
	cfg        *config.Config
	ksgStore   *ksg.Store
	procedures *procedure.Store
	tools      *tools.Registry
	llm        llm.Client
	workingMem *workingmem.Memory
	learning   *learning.Engine
	breaker    *resilience.Breaker
	logger     *zap.Logger
	metrics    *observability.AgentMetrics
}

// NewLoop builds the agent control loop from its collaborators. metrics may
// be nil; logger must not be.
func NewLoop(
	cfg *config.Config,
	ksgStore *ksg.Store,
	procedures *procedure.Store,
	toolRegistry *tools.Registry,
	llmClient llm.Client,
	workingMem *workingmem.Memory,
	learningEngine *learning.Engine,
	breaker *resilience.Breaker,
	logger *zap.Logger,
	metrics *observability.AgentMetrics,
) *Loop {
	return &Loop{
		cfg:        cfg,
		ksgStore:   ksgStore,
		procedures: procedures,
		tools:      toolRegistry,
		llm:        llmClient,
		workingMem: workingMem,
		learning:   learningEngine,
		breaker:    breaker,
		logger:     logger,
		metrics:    metrics,
	}
}

// Run drives one request through the full §4.9 loop, returning either a
// terminal Result or one suspended awaiting user input.
func (l *Loop) Run(ctx context.Context, req Request) (*Result, error) {
	traceID := req.TraceID
	if traceID.IsZero() {
		traceID = valueobjects.NewTraceID()
	}
	provenance := valueobjects.NewProvenance(valueobjects.SourceUser, traceID, 1.0, time.Now())
	logger := observability.WithTraceID(l.logger, traceID.String())

	start := time.Now()
	result, err := l.run(ctx, req, traceID, provenance, logger)
	if err == nil && result != nil && l.metrics != nil && result.Status != StatusAskUser {
		l.metrics.RecordRequest(string(result.Status), time.Since(start))
	}
	return result, err
}

func (l *Loop) run(ctx context.Context, req Request, traceID valueobjects.TraceID, provenance valueobjects.Provenance, logger *zap.Logger) (*Result, error) {
	if req.Pending != nil {
		return l.resume(ctx, req, traceID, provenance, logger)
	}

	// Step 1: classify (C8), short-circuiting obvious intents unless the
	// query names something the deterministic shortcuts must not swallow
	// (§9 open question: recall keywords force the full pipeline).
	classification := intentparser.Classify(req.Text)
	eligibleForShortCircuit := classification.ShortCircuits() && classification.Intent != intentparser.IntentRecall && !mentionsRecallKeyword(req.Text)
	if l.cfg.SkipLLMForObviousIntents && eligibleForShortCircuit {
		return l.runCanned(ctx, req.Text, classification, traceID, provenance, logger)
	}

	// Step 2: retrieve, boosted by working memory (C7).
	embedding, err := l.embedText(ctx, req.Text)
	if err != nil {
		return l.adapterFailureResult(traceID, err), nil
	}

	matches, err := l.retrieve(embedding)
	if err != nil {
		return nil, err
	}

	if reused, ok := l.tryReuse(ctx, matches); ok {
		if l.metrics != nil {
			l.metrics.ReuseHitsTotal.Inc()
		}
		logger.Info("reusing stored procedure", zap.String("procedure_id", reused.procedureID.String()), zap.Float64("score", reused.score))
		return l.runPlan(ctx, traceID, provenance, reused.plan, &reused.procedureID, embedding, nil, nil, req.Text, logger)
	}

	// Step 3: plan via the LLM's strict-JSON contract.
	llmPlan, err := l.planWithLLM(ctx, req.Text)
	if err != nil {
		return &Result{TraceID: traceID, Status: StatusAskUser, Question: "could not produce a plan: " + err.Error()}, nil
	}

	plan := llmPlan.ToProcedurePlan()
	if verr := procedure.Validate(plan, l.toolSchemaLookup); verr != nil {
		return &Result{TraceID: traceID, Status: StatusAskUser, Question: "plan failed validation: " + verr.Error()}, nil
	}

	// Step 5: confidence gate.
	if llmPlan.Confidence < l.cfg.PlanMinConfidence && !req.Approved {
		pending := &PendingState{Plan: plan, Embedding: embedding, Reason: PendingReasonConfidence}
		return &Result{
			TraceID:  traceID,
			Status:   StatusAskUser,
			Pending:  pending,
			Question: fmt.Sprintf("plan confidence %.2f is below the minimum %.2f: proceed anyway?", llmPlan.Confidence, l.cfg.PlanMinConfidence),
		}, nil
	}

	procedureID, err := l.procedures.CreateFromJSON(ctx, plan, &embedding, l.toolSchemaLookup, provenance)
	if err != nil {
		return nil, err
	}

	return l.runPlan(ctx, traceID, provenance, plan, &procedureID, embedding, nil, nil, req.Text, logger)
}

func (l *Loop) resume(ctx context.Context, req Request, traceID valueobjects.TraceID, provenance valueobjects.Provenance, logger *zap.Logger) (*Result, error) {
	pending := req.Pending

	switch pending.Reason {
	case PendingReasonConfidence:
		if !req.Approved {
			return &Result{TraceID: traceID, Status: StatusFailure, Question: "user declined a low-confidence plan"}, nil
		}
		procedureID, err := l.procedures.CreateFromJSON(ctx, pending.Plan, &pending.Embedding, l.toolSchemaLookup, provenance)
		if err != nil {
			return nil, err
		}
		return l.runPlan(ctx, traceID, provenance, pending.Plan, &procedureID, pending.Embedding, nil, nil, req.Text, logger)

	case PendingReasonAdaptCeiling:
		if !req.Approved {
			runID, _ := l.procedures.RecordRun(ctx, pending.ProcedureID, false, pending.Completed, traceID, provenance)
			return &Result{TraceID: traceID, Status: StatusFailure, StepResults: pending.Completed, ProcedureID: pending.ProcedureID, RunID: runID}, nil
		}
		attempts := pending.AdaptAttempts
		if attempts == nil {
			attempts = map[string]int{}
		}
		completedByID := make(map[string]procedure.StepResult, len(pending.Completed))
		for _, r := range pending.Completed {
			completedByID[r.StepID] = r
		}
		for _, s := range pending.Plan.Steps {
			if _, done := completedByID[s.ID]; !done {
				attempts[s.ID] = 0 // the step that blocked gets a fresh adaptation budget
			}
		}
		return l.runPlan(ctx, traceID, provenance, pending.Plan, pending.ProcedureID, pending.Embedding, completedByID, attempts, req.Text, logger)

	default:
		return nil, agenterrors.InvalidInput(fmt.Sprintf("unknown pending reason %q", pending.Reason))
	}
}

// runCanned executes a deterministic, LLM-free plan for an obvious intent.
// No Procedure is created: the plan is too trivial to be worth reusing, but
// the run is still always recorded (§9 open question 1).
func (l *Loop) runCanned(ctx context.Context, text string, classification intentparser.Classification, traceID valueobjects.TraceID, provenance valueobjects.Provenance, logger *zap.Logger) (*Result, error) {
	plan := cannedPlan(classification.Intent)
	if len(plan.Steps) == 0 {
		return &Result{TraceID: traceID, Status: StatusAskUser, Question: "no deterministic plan for intent " + string(classification.Intent)}, nil
	}
	return l.runPlan(ctx, traceID, provenance, plan, nil, valueobjects.Embedding{}, nil, nil, text, logger)
}

// runPlan executes plan to completion (or suspension), then persists the
// run and feeds the outcome to the learning engine (§4.9 steps 6-7).
func (l *Loop) runPlan(
	ctx context.Context,
	traceID valueobjects.TraceID,
	provenance valueobjects.Provenance,
	plan procedure.Plan,
	procedureID *valueobjects.NodeID,
	embedding valueobjects.Embedding,
	completed map[string]procedure.StepResult,
	adaptAttempts map[string]int,
	sourceText string,
	logger *zap.Logger,
) (*Result, error) {
	if adaptAttempts == nil {
		adaptAttempts = map[string]int{}
	}

	results, ask, fatal := l.execute(ctx, plan, completed, adaptAttempts, provenance, procedureID)
	if fatal != nil {
		logger.Error("agent loop invariant violation", zap.Error(fatal))
		return nil, fatal
	}

	if ask != nil {
		pending := &PendingState{
			Plan:          plan,
			ProcedureID:   procedureID,
			Embedding:     embedding,
			Completed:     results,
			AdaptAttempts: adaptAttempts,
			Reason:        PendingReasonAdaptCeiling,
		}
		if l.metrics != nil {
			l.metrics.AdaptAttemptsTotal.WithLabelValues("exhausted").Inc()
		}
		return &Result{TraceID: traceID, Status: StatusAskUser, Pending: pending, Question: ask.Question, StepResults: results, ProcedureID: procedureID}, nil
	}

	success := allSucceeded(results)

	runID, err := l.procedures.RecordRun(ctx, procedureID, success, results, traceID, provenance)
	if err != nil {
		return nil, err
	}

	if procedureID != nil {
		l.workingMem.Link(*procedureID)
		l.workingMem.Access(*procedureID)
	}

	l.learnFromOutcome(ctx, plan, results, success, provenance, logger)
	if success {
		l.handleCredentials(ctx, sourceText+" "+credentialSourceText(plan), provenance)
	}

	status := StatusSuccess
	if !success {
		status = StatusFailure
	}

	return &Result{TraceID: traceID, Status: status, PlanName: plan.Name, StepResults: results, ProcedureID: procedureID, RunID: runID}, nil
}

func (l *Loop) learnFromOutcome(ctx context.Context, plan procedure.Plan, results []procedure.StepResult, success bool, provenance valueobjects.Provenance, logger *zap.Logger) {
	if l.learning == nil {
		return
	}

	if success {
		if _, err := l.learning.LearnFromSuccess(ctx, plan, results, provenance); err != nil {
			logger.Warn("learning.LearnFromSuccess failed", zap.Error(err))
		}
		return
	}

	step, result, found := firstFailedStep(plan, results)
	if !found {
		return
	}

	var similarConcepts []*entities.Concept
	if similar, err := l.learning.FindSimilarKnowledge(ctx, step.Tool+" "+result.Error, 3); err == nil {
		for _, r := range similar {
			similarConcepts = append(similarConcepts, r.Concept)
		}
	}

	if _, err := l.learning.AnalyzeFailure(ctx, step, fmt.Errorf("%s", result.Error), similarConcepts, provenance); err != nil {
		logger.Warn("learning.AnalyzeFailure failed", zap.Error(err))
	}
}

func (l *Loop) adapterFailureResult(traceID valueobjects.TraceID, err error) *Result {
	return &Result{TraceID: traceID, Status: StatusAskUser, Question: "a required collaborator is unavailable: " + err.Error()}
}

func allSucceeded(results []procedure.StepResult) bool {
	for _, r := range results {
		if !r.Success {
			return false
		}
	}
	return true
}

func firstFailedStep(plan procedure.Plan, results []procedure.StepResult) (procedure.Step, procedure.StepResult, bool) {
	failed := make(map[string]procedure.StepResult, len(results))
	for _, r := range results {
		if !r.Success {
			failed[r.StepID] = r
		}
	}
	for _, s := range plan.Steps {
		if r, ok := failed[s.ID]; ok {
			return s, r, true
		}
	}
	return procedure.Step{}, procedure.StepResult{}, false
}

func credentialSourceText(plan procedure.Plan) string {
	var text string
	for _, step := range plan.Steps {
		for _, key := range []string{"value", "domain", "url", "selector"} {
			if v, ok := step.Params[key]; ok {
				if s, ok := v.(string); ok {
					text += " " + s
				}
			}
		}
	}
	return text
}
