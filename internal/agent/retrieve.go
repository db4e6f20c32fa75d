package agent

import (
	"context"
	"sort"

	"github.com/lehelkovach/osl-agent-prototype-sub000/domain/core/valueobjects"
	"github.com/lehelkovach/osl-agent-prototype-sub000/internal/procedure"
)

func (l *Loop) embedText(ctx context.Context, text string) (valueobjects.Embedding, error) {
	raw, err := l.llm.Embed(ctx, text)
	if err != nil {
		return valueobjects.Embedding{}, err
	}
	return valueobjects.NewEmbedding(raw)
}

// retrieve finds candidate procedures by embedding similarity and reorders
// them by working-memory activation (C7 boost, §4.7).
func (l *Loop) retrieve(embedding valueobjects.Embedding) ([]procedure.ReusableMatch, error) {
	matches, err := l.procedures.FindReusable(embedding, 0, 10)
	if err != nil {
		return nil, err
	}

	for i := range matches {
		matches[i].Score = l.workingMem.Boost(matches[i].Score, matches[i].ProcedureID)
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	return matches, nil
}

// reusedPlan is a hydrated procedure that cleared the §4.9 reuse check.
type reusedPlan struct {
	plan        procedure.Plan
	procedureID valueobjects.NodeID
	score       float64
}

// tryReuse hydrates the best candidate if it meets REUSE_THRESHOLD and is
// not a single-step procedure (§4.3: a single-step match is surfaced as a
// hint, never auto-executed, per §9 open question 3).
func (l *Loop) tryReuse(ctx context.Context, matches []procedure.ReusableMatch) (reusedPlan, bool) {
	if len(matches) == 0 {
		return reusedPlan{}, false
	}

	best := matches[0]
	if best.SingleStep || best.Score < l.cfg.ReuseThreshold {
		return reusedPlan{}, false
	}

	plan, err := l.procedures.Hydrate(ctx, best.ProcedureID)
	if err != nil {
		return reusedPlan{}, false
	}

	return reusedPlan{plan: plan, procedureID: best.ProcedureID, score: best.Score}, true
}
