package procedure

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/lehelkovach/osl-agent-prototype-sub000/domain/core/entities"
	"github.com/lehelkovach/osl-agent-prototype-sub000/domain/core/valueobjects"
	agenterrors "github.com/lehelkovach/osl-agent-prototype-sub000/internal/errors"
	"github.com/lehelkovach/osl-agent-prototype-sub000/internal/ksg"
)

// KindProcedure and KindProcedureStep are the Concept kinds procedures are
// stored as (§3: every node in the data model is a Concept distinguished by
// Kind).
const (
	KindProcedure     = "Procedure"
	KindProcedureStep = "ProcedureStep"
	KindProcedureRun  = "ProcedureRun"
)

// generalizeMinSimilarity and generalizeMinPairwise gate the §4.3
// generalization trigger run after every successful recordRun.
const (
	generalizeMinSimilarity = 0.8
	generalizeMinPairwise   = 0.75
	generalizeMinCount      = 2
)

// Store materializes plans as Procedure/ProcedureStep concepts over a KSG
// store and tracks their run history.
type Store struct {
	ksg *ksg.Store
}

// NewStore builds a procedure store backed by ksgStore.
func NewStore(ksgStore *ksg.Store) *Store {
	return &Store{ksg: ksgStore}
}

// CreateFromJSON materializes plan as a Procedure concept with a hasStep
// edge to each ProcedureStep concept and a dependsOn edge per declared
// dependency. The full plan JSON is also stored as a property; Hydrate does
// not read it and always reconstructs from the graph structure, so later
// selector edits are reflected (§4.3 hydrate).
func (s *Store) CreateFromJSON(ctx context.Context, plan Plan, embedding *valueobjects.Embedding, tools ToolSchemaLookup, provenance valueobjects.Provenance) (valueobjects.NodeID, error) {
	if err := Validate(plan, tools); err != nil {
		return valueobjects.NodeID{}, err
	}

	raw, err := json.Marshal(plan)
	if err != nil {
		return valueobjects.NodeID{}, agenterrors.InvalidInput("plan is not serializable: " + err.Error())
	}

	props := valueobjects.EmptyProperties().
		With("name", plan.Name).
		With("description", plan.Description).
		With("planJson", string(raw)).
		With("tested", 0).
		With("success", 0).
		With("failure", 0)

	procedure, err := s.ksg.CreateNode(KindProcedure, []string{plan.Name}, props, provenance)
	if err != nil {
		return valueobjects.NodeID{}, err
	}

	if embedding != nil {
		if uerr := procedure.UpdateEmbedding(*embedding); uerr != nil {
			return valueobjects.NodeID{}, uerr
		}
	}

	stepIDs := make(map[string]valueobjects.NodeID, len(plan.Steps))
	for _, step := range plan.Steps {
		stepProps := valueobjects.EmptyProperties().
			With("stepId", step.ID).
			With("tool", step.Tool).
			With("params", step.Params).
			With("onFail", string(step.OnFail))

		stepConcept, serr := s.ksg.CreateNode(KindProcedureStep, []string{step.Tool}, stepProps, provenance)
		if serr != nil {
			return valueobjects.NodeID{}, serr
		}
		stepIDs[step.ID] = stepConcept.ID()

		if _, lerr := s.ksg.CreateRelationship(ctx, procedure.ID(), stepConcept.ID(), entities.RelationHasStep, 1.0); lerr != nil {
			return valueobjects.NodeID{}, lerr
		}
	}

	for _, step := range plan.Steps {
		for _, dep := range step.DependsOn {
			if _, lerr := s.ksg.CreateRelationship(ctx, stepIDs[step.ID], stepIDs[dep], entities.RelationDependsOn, 1.0); lerr != nil {
				return valueobjects.NodeID{}, lerr
			}
		}
	}

	return procedure.ID(), nil
}

// Hydrate reconstructs an executable plan from the graph structure rather
// than the stored planJson blob, so that prior PersistWinningSelector calls
// are reflected (§4.3 hydrate).
func (s *Store) Hydrate(ctx context.Context, procedureID valueobjects.NodeID) (Plan, error) {
	procedure, err := s.ksg.Get(procedureID)
	if err != nil {
		return Plan{}, err
	}

	name, _ := procedure.Properties().GetString("name")
	description, _ := procedure.Properties().GetString("description")
	plan := Plan{Name: name, Description: description}

	stepRels, err := s.ksg.RelationshipsFrom(procedureID, entities.RelationHasStep)
	if err != nil {
		return Plan{}, err
	}

	idByConcept := make(map[valueobjects.NodeID]string, len(stepRels))
	for _, rel := range stepRels {
		stepConcept, serr := s.ksg.Get(rel.TargetID)
		if serr != nil {
			continue
		}
		stepID, _ := stepConcept.Properties().GetString("stepId")
		idByConcept[rel.TargetID] = stepID

		tool, _ := stepConcept.Properties().GetString("tool")
		onFail, _ := stepConcept.Properties().GetString("onFail")
		params, _ := stepConcept.Properties().Get("params")
		paramsMap, _ := params.(map[string]interface{})

		plan.Steps = append(plan.Steps, Step{
			ID:     stepID,
			Tool:   tool,
			Params: paramsMap,
			OnFail: OnFail(onFail),
		})
	}

	for i := range plan.Steps {
		stepConceptID := findConceptIDForStep(idByConcept, plan.Steps[i].ID)
		if stepConceptID.IsZero() {
			continue
		}
		depRels, derr := s.ksg.RelationshipsFrom(stepConceptID, entities.RelationDependsOn)
		if derr != nil {
			continue
		}
		for _, dep := range depRels {
			plan.Steps[i].DependsOn = append(plan.Steps[i].DependsOn, idByConcept[dep.TargetID])
		}
	}

	return plan, nil
}

func findConceptIDForStep(idByConcept map[valueobjects.NodeID]string, stepID string) valueobjects.NodeID {
	for conceptID, sid := range idByConcept {
		if sid == stepID {
			return conceptID
		}
	}
	return valueobjects.NodeID{}
}

// ReusableMatch pairs a candidate procedure with its reuse score.
type ReusableMatch struct {
	ProcedureID valueobjects.NodeID
	Score       float64
	SingleStep  bool
}

// FindReusable searches Procedure-kind concepts by embedding similarity,
// tie-breaking by success/failure ratio. Single-step procedures are flagged
// SingleStep rather than treated as directly reusable: §4.3 requires the
// caller to explicitly request reuse of a trivial one-step procedure
// instead of auto-executing it.
func (s *Store) FindReusable(embedding valueobjects.Embedding, minScore float64, topK int) ([]ReusableMatch, error) {
	results, err := s.ksg.Search(ksg.SearchFilters{Kind: KindProcedure}, &embedding, 0, minScore)
	if err != nil {
		return nil, err
	}

	matches := make([]ReusableMatch, 0, len(results))
	for _, r := range results {
		success, _ := r.Concept.Properties().GetFloat("success")
		failure, _ := r.Concept.Properties().GetFloat("failure")
		ratio := 1.0
		if success+failure > 0 {
			ratio = success / (success + failure)
		}

		single := isSingleStep(r.Concept)
		matches = append(matches, ReusableMatch{
			ProcedureID: r.Concept.ID(),
			Score:       r.Similarity * (0.5 + 0.5*ratio),
			SingleStep:  single,
		})
	}

	if topK > 0 && len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

func isSingleStep(procedure *entities.Concept) bool {
	count := 0
	for _, ref := range procedure.Relationships() {
		if ref.Type == entities.RelationHasStep {
			count++
		}
	}
	return count <= 1
}

// StepResult is the outcome of one executed step, recorded on the run.
type StepResult struct {
	StepID  string `json:"step_id"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// RecordRun creates a ProcedureRun concept, linked to procedureID via runOf
// when one is given, and then runs the §4.3 generalization trigger when the
// run succeeded against a named procedure. procedureID is a nullable
// pointer (§9 open question: a run is always recorded even when the agent
// loop executed a canned plan it never materialized as a Procedure).
func (s *Store) RecordRun(ctx context.Context, procedureID *valueobjects.NodeID, success bool, stepResults []StepResult, traceID valueobjects.TraceID, provenance valueobjects.Provenance) (valueobjects.NodeID, error) {
	runProps := valueobjects.EmptyProperties().
		With("traceId", string(traceID)).
		With("success", success).
		With("stepResults", stepResults)

	run, err := s.ksg.CreateNode(KindProcedureRun, nil, runProps, provenance)
	if err != nil {
		return valueobjects.NodeID{}, err
	}

	if procedureID == nil || procedureID.IsZero() {
		return run.ID(), nil
	}

	procedure, err := s.ksg.Get(*procedureID)
	if err != nil {
		return valueobjects.NodeID{}, err
	}

	if _, lerr := s.ksg.CreateRelationship(ctx, run.ID(), *procedureID, entities.RelationRunOf, 1.0); lerr != nil {
		return valueobjects.NodeID{}, lerr
	}

	tested, _ := procedure.Properties().GetFloat("tested")
	successCount, _ := procedure.Properties().GetFloat("success")
	failureCount, _ := procedure.Properties().GetFloat("failure")

	tested++
	if success {
		successCount++
	} else {
		failureCount++
	}

	patch := valueobjects.EmptyProperties().
		With("tested", int(tested)).
		With("success", int(successCount)).
		With("failure", int(failureCount))
	if uerr := s.ksg.UpdateProperties(ctx, *procedureID, patch); uerr != nil {
		return valueobjects.NodeID{}, uerr
	}

	if success {
		if gerr := s.tryGeneralize(ctx, procedure, provenance); gerr != nil {
			return run.ID(), gerr
		}
	}

	return run.ID(), nil
}

// tryGeneralize implements §4.3's generalization trigger: after a
// successful run, look for similar procedures above generalizeMinSimilarity;
// if at least generalizeMinCount exist with mean pairwise similarity above
// generalizeMinPairwise, fold them into a generalized concept.
func (s *Store) tryGeneralize(ctx context.Context, procedure *entities.Concept, provenance valueobjects.Provenance) error {
	if procedure.Embedding().IsZero() {
		return nil
	}

	similar, err := s.ksg.FindSimilarPatterns(KindProcedure, procedure.Embedding(), generalizeMinSimilarity, 0)
	if err != nil {
		return err
	}

	others := make([]*entities.Concept, 0, len(similar))
	for _, r := range similar {
		if !r.Concept.ID().Equals(procedure.ID()) {
			others = append(others, r.Concept)
		}
	}
	if len(others) < generalizeMinCount {
		return nil
	}

	if meanPairwiseSimilarity(others) < generalizeMinPairwise {
		return nil
	}

	exemplarIDs := []valueobjects.NodeID{procedure.ID()}
	for _, o := range others {
		exemplarIDs = append(exemplarIDs, o.ID())
	}

	name, _ := procedure.Properties().GetString("name")
	_, gerr := s.ksg.GeneralizeConcepts(ctx, exemplarIDs, "generalized_"+name, "auto-generalized from repeated procedure success", generalizeMinSimilarity, provenance)
	return gerr
}

func meanPairwiseSimilarity(concepts []*entities.Concept) float64 {
	if len(concepts) < 2 {
		return 1.0
	}
	var sum float64
	var n int
	for i := 0; i < len(concepts); i++ {
		for j := i + 1; j < len(concepts); j++ {
			sim, err := concepts[i].Embedding().CosineSimilarity(concepts[j].Embedding())
			if err != nil {
				continue
			}
			sum += sim
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// PersistWinningSelector locates stepID within procedureID's steps and
// rewrites its params.selector, so future Hydrate and FindReusable calls
// pick up the corrected selector (§4.3).
func (s *Store) PersistWinningSelector(ctx context.Context, procedureID valueobjects.NodeID, stepID, selector string) error {
	stepRels, err := s.ksg.RelationshipsFrom(procedureID, entities.RelationHasStep)
	if err != nil {
		return err
	}

	for _, rel := range stepRels {
		stepConcept, serr := s.ksg.Get(rel.TargetID)
		if serr != nil {
			continue
		}
		sid, _ := stepConcept.Properties().GetString("stepId")
		if sid != stepID {
			continue
		}

		params, _ := stepConcept.Properties().Get("params")
		paramsMap, ok := params.(map[string]interface{})
		if !ok {
			paramsMap = make(map[string]interface{})
		}
		paramsMap["selector"] = selector

		patch := valueobjects.EmptyProperties().With("params", paramsMap)
		return s.ksg.UpdateProperties(ctx, rel.TargetID, patch)
	}

	return agenterrors.NotFound(fmt.Sprintf("step %q not found on procedure %s", stepID, procedureID.String()))
}
