// Package learning implements the learning engine (C10, §4.10): it turns
// agent-loop outcomes into Knowledge concepts the retrieval step can surface
// into future planning contexts, so a mistake made once is not repeated and
// a pattern that works is reinforced.
package learning

import (
	"context"
	"fmt"
	"strings"

	"github.com/lehelkovach/osl-agent-prototype-sub000/domain/core/entities"
	"github.com/lehelkovach/osl-agent-prototype-sub000/domain/core/valueobjects"
	agenterrors "github.com/lehelkovach/osl-agent-prototype-sub000/internal/errors"
	"github.com/lehelkovach/osl-agent-prototype-sub000/internal/ksg"
	"github.com/lehelkovach/osl-agent-prototype-sub000/internal/llm"
	"github.com/lehelkovach/osl-agent-prototype-sub000/internal/procedure"
)

// KindKnowledge is the Concept kind every lesson this package produces is
// stored as.
const KindKnowledge = "Knowledge"

// defaultRetrievalMinSimilarity is the §4.10 threshold above which a stored
// lesson is considered relevant enough to inject into a new planning
// context.
const defaultRetrievalMinSimilarity = 0.75

// Engine materializes lessons as Knowledge concepts over a KSG store,
// reasoning about them with an LLM collaborator where the operation calls
// for judgment rather than bookkeeping.
type Engine struct {
	ksg *ksg.Store
	llm llm.Client
}

// NewEngine builds a learning engine backed by ksgStore, consulting
// llmClient to reason about failures and extract transferable patterns.
func NewEngine(ksgStore *ksg.Store, llmClient llm.Client) *Engine {
	return &Engine{ksg: ksgStore, llm: llmClient}
}

// knowledgeProps is the common property shape every Knowledge concept
// carries, regardless of which operation produced it.
func knowledgeProps(kind, summary, detail string) valueobjects.Properties {
	return valueobjects.EmptyProperties().
		With("knowledgeKind", kind).
		With("summary", summary).
		With("detail", detail)
}

func (e *Engine) embedText(ctx context.Context, text string) (valueobjects.Embedding, error) {
	raw, err := e.llm.Embed(ctx, text)
	if err != nil {
		return valueobjects.Embedding{}, err
	}
	return valueobjects.NewEmbedding(raw)
}

// AnalyzeFailure asks the LLM to reason over a failed step and its error,
// optionally informed by similar past failures, and persists the resulting
// root-cause/lesson/suggested-fix as a Knowledge concept (§4.10
// analyzeFailure).
func (e *Engine) AnalyzeFailure(ctx context.Context, step procedure.Step, failure error, similarCases []*entities.Concept, provenance valueobjects.Provenance) (*entities.Concept, error) {
	prompt := buildFailurePrompt(step, failure, similarCases)

	reasoning, err := e.llm.Chat(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: "You analyze a failed tool call and report its root cause, the lesson to remember, and a suggested fix as plain text, one per line prefixed ROOT_CAUSE:, LESSON:, FIX:."},
		{Role: llm.RoleUser, Content: prompt},
	}, llm.ChatOptions{Temperature: 0.2})
	if err != nil {
		return nil, err
	}

	rootCause, lesson, fix := parseAnalysis(reasoning)

	embedding, err := e.embedText(ctx, lesson)
	if err != nil {
		return nil, err
	}

	props := knowledgeProps("failure_analysis", lesson, reasoning).
		With("stepId", step.ID).
		With("tool", step.Tool).
		With("error", failure.Error()).
		With("rootCause", rootCause).
		With("suggestedFix", fix)

	concept, err := e.ksg.CreateNode(KindKnowledge, []string{"failure", step.Tool}, props, provenance)
	if err != nil {
		return nil, err
	}
	if uerr := concept.UpdateEmbedding(embedding); uerr != nil {
		return nil, uerr
	}
	return concept, nil
}

// ExtractTransferable looks across a set of similar successful runs for the
// pattern they share and persists it as a Knowledge concept, so future
// planning for a related task can reuse the pattern rather than rediscover
// it (§4.10 extractTransferable).
func (e *Engine) ExtractTransferable(ctx context.Context, similarSuccesses []*entities.Concept, provenance valueobjects.Provenance) (*entities.Concept, error) {
	if len(similarSuccesses) == 0 {
		return nil, agenterrors.InvalidInput("extractTransferable requires at least one prior success")
	}

	prompt := buildTransferablePrompt(similarSuccesses)
	reasoning, err := e.llm.Chat(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: "You identify the common, transferable pattern across several successful runs and summarize it in one paragraph."},
		{Role: llm.RoleUser, Content: prompt},
	}, llm.ChatOptions{Temperature: 0.2})
	if err != nil {
		return nil, err
	}

	embedding, err := e.embedText(ctx, reasoning)
	if err != nil {
		return nil, err
	}

	props := knowledgeProps("transferable_pattern", reasoning, reasoning).
		With("sourceCount", len(similarSuccesses))

	concept, err := e.ksg.CreateNode(KindKnowledge, []string{"pattern"}, props, provenance)
	if err != nil {
		return nil, err
	}
	if uerr := concept.UpdateEmbedding(embedding); uerr != nil {
		return nil, uerr
	}

	for _, source := range similarSuccesses {
		if _, lerr := e.ksg.AddAssociation(ctx, concept.ID(), source.ID(), 1.0); lerr != nil {
			return nil, lerr
		}
	}

	return concept, nil
}

// LearnFromSuccess records that a plan executed cleanly, distilling what
// made it work into a Knowledge concept the retrieval step can surface for
// similar future requests (§4.10 learnFromSuccess).
func (e *Engine) LearnFromSuccess(ctx context.Context, plan procedure.Plan, stepResults []procedure.StepResult, provenance valueobjects.Provenance) (*entities.Concept, error) {
	summary := fmt.Sprintf("plan %q succeeded in %d steps", plan.Name, len(stepResults))
	detail := summarizeSteps(plan, stepResults)

	embedding, err := e.embedText(ctx, summary+" "+detail)
	if err != nil {
		return nil, err
	}

	props := knowledgeProps("success", summary, detail).With("planName", plan.Name)
	concept, err := e.ksg.CreateNode(KindKnowledge, []string{"success", plan.Name}, props, provenance)
	if err != nil {
		return nil, err
	}
	if uerr := concept.UpdateEmbedding(embedding); uerr != nil {
		return nil, uerr
	}
	return concept, nil
}

// LearnFromUserFeedback persists free-text user feedback about a specific
// run as a Knowledge concept linked back to that run via correctionOf
// (§4.10 learnFromUserFeedback).
func (e *Engine) LearnFromUserFeedback(ctx context.Context, feedbackText string, runID valueobjects.NodeID, traceID valueobjects.TraceID, provenance valueobjects.Provenance) (*entities.Concept, error) {
	if strings.TrimSpace(feedbackText) == "" {
		return nil, agenterrors.InvalidInput("feedback text cannot be empty")
	}

	embedding, err := e.embedText(ctx, feedbackText)
	if err != nil {
		return nil, err
	}

	props := knowledgeProps("user_feedback", feedbackText, feedbackText).
		With("traceId", string(traceID))

	concept, err := e.ksg.CreateNode(KindKnowledge, []string{"feedback"}, props, provenance)
	if err != nil {
		return nil, err
	}
	if uerr := concept.UpdateEmbedding(embedding); uerr != nil {
		return nil, uerr
	}

	if !runID.IsZero() {
		if _, lerr := e.ksg.CreateRelationship(ctx, concept.ID(), runID, entities.RelationCorrectionOf, 1.0); lerr != nil {
			return nil, lerr
		}
	}

	return concept, nil
}

// FindSimilarKnowledge embeds query and returns Knowledge concepts above the
// §4.10 retrieval threshold, ranked by similarity, for injection into a new
// planning context.
func (e *Engine) FindSimilarKnowledge(ctx context.Context, query string, topK int) ([]ksg.SearchResult, error) {
	embedding, err := e.embedText(ctx, query)
	if err != nil {
		return nil, err
	}
	return e.ksg.FindSimilarPatterns(KindKnowledge, embedding, defaultRetrievalMinSimilarity, topK)
}

func buildFailurePrompt(step procedure.Step, failure error, similarCases []*entities.Concept) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Step %q invoked tool %q with params %v and failed: %s\n", step.ID, step.Tool, step.Params, failure.Error())
	if len(similarCases) > 0 {
		b.WriteString("Similar past failures:\n")
		for _, c := range similarCases {
			if lesson, ok := c.Properties().GetString("summary"); ok {
				fmt.Fprintf(&b, "- %s\n", lesson)
			}
		}
	}
	return b.String()
}

func buildTransferablePrompt(successes []*entities.Concept) string {
	var b strings.Builder
	b.WriteString("Successful runs:\n")
	for _, c := range successes {
		if summary, ok := c.Properties().GetString("summary"); ok {
			fmt.Fprintf(&b, "- %s\n", summary)
		}
	}
	return b.String()
}

func summarizeSteps(plan procedure.Plan, results []procedure.StepResult) string {
	var b strings.Builder
	for _, r := range results {
		status := "ok"
		if !r.Success {
			status = "failed: " + r.Error
		}
		fmt.Fprintf(&b, "%s (%s); ", r.StepID, status)
	}
	return strings.TrimSuffix(b.String(), "; ")
}

// parseAnalysis extracts the ROOT_CAUSE/LESSON/FIX lines the failure-prompt
// asks the LLM to emit, tolerating a response that dropped the prefixes by
// falling back to the whole text as the lesson.
func parseAnalysis(reasoning string) (rootCause, lesson, fix string) {
	for _, line := range strings.Split(reasoning, "\n") {
		switch {
		case strings.HasPrefix(line, "ROOT_CAUSE:"):
			rootCause = strings.TrimSpace(strings.TrimPrefix(line, "ROOT_CAUSE:"))
		case strings.HasPrefix(line, "LESSON:"):
			lesson = strings.TrimSpace(strings.TrimPrefix(line, "LESSON:"))
		case strings.HasPrefix(line, "FIX:"):
			fix = strings.TrimSpace(strings.TrimPrefix(line, "FIX:"))
		}
	}
	if lesson == "" {
		lesson = reasoning
	}
	return rootCause, lesson, fix
}
