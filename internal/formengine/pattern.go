package formengine

import (
	"context"
	"strings"
	"time"

	"github.com/lehelkovach/osl-agent-prototype-sub000/domain/core/entities"
	"github.com/lehelkovach/osl-agent-prototype-sub000/domain/core/valueobjects"
	"github.com/lehelkovach/osl-agent-prototype-sub000/internal/ksg"
)

// KindFormPattern is the Concept kind a stored fill pattern is kept as.
const KindFormPattern = "FormPattern"

// Pattern is a stored fill pattern: a fingerprint plus the field→selector
// mapping that filled it successfully before.
type Pattern struct {
	ID          valueobjects.NodeID
	Fingerprint string
	Domain      string
	FormType    string
	Selectors   map[string]string // field name -> CSS selector
}

// Detector is the external form-detection collaborator (§6, fallback step
// 3): given a page it was not able to match by fingerprint or score, it
// infers selectors directly from the live DOM.
type Detector interface {
	Detect(page Page) (map[string]string, error)
}

// Store looks up and persists fill patterns over a KSG store.
type Store struct {
	ksg      *ksg.Store
	minScore float64
	detector Detector
}

// NewStore builds a pattern store. minScore is the §4.4 step-2 threshold
// (default 2.0, configurable via KSG_PATTERN_REUSE_MIN_SCORE). detector may
// be nil when USE_CPMS_FOR_FORMS is disabled.
func NewStore(ksgStore *ksg.Store, minScore float64, detector Detector) *Store {
	return &Store{ksg: ksgStore, minScore: minScore, detector: detector}
}

// Lookup implements the §4.4 pattern lookup order: exact fingerprint match,
// then same-domain best score match above minScore, then the external
// detector as a last resort (persisting its result as a new pattern on
// success).
func (s *Store) Lookup(page Page) (Pattern, error) {
	fp := Fingerprint(page)

	if exact, ok := s.findByFingerprint(fp); ok {
		return exact, nil
	}

	if best, ok := s.findBestDomainMatch(page); ok {
		return best, nil
	}

	if s.detector != nil {
		selectors, err := s.detector.Detect(page)
		if err == nil && len(selectors) > 0 {
			pattern := Pattern{
				Fingerprint: fp,
				Domain:      page.Domain,
				FormType:    inferFormType(page),
				Selectors:   selectors,
			}
			s.persist(page, pattern)
			return pattern, nil
		}
	}

	return Pattern{}, errPatternNotFound
}

func (s *Store) findByFingerprint(fp string) (Pattern, bool) {
	results, err := s.ksg.Search(ksg.SearchFilters{Kind: KindFormPattern}, nil, 0, 0)
	if err != nil {
		return Pattern{}, false
	}
	for _, r := range results {
		storedFP, _ := r.Concept.Properties().GetString("fingerprint")
		if storedFP == fp {
			return patternFromConcept(r.Concept), true
		}
	}
	return Pattern{}, false
}

// findBestDomainMatch scores same-domain patterns by
// 3*domain_match + 2*form_type_match + token_overlap(labels), per §4.4.
func (s *Store) findBestDomainMatch(page Page) (Pattern, bool) {
	results, err := s.ksg.Search(ksg.SearchFilters{Kind: KindFormPattern}, nil, 0, 0)
	if err != nil {
		return Pattern{}, false
	}

	labelTokens := labelTokenSet(page)
	wantFormType := inferFormType(page)

	var best Pattern
	bestScore := -1.0
	for _, r := range results {
		domain, _ := r.Concept.Properties().GetString("domain")
		if domain != page.Domain {
			continue // §4.4 "same-domain best match"
		}

		formType, _ := r.Concept.Properties().GetString("formType")
		formTypeMatch := 0.0
		if formType != "" && strings.EqualFold(formType, wantFormType) {
			formTypeMatch = 1.0
		}

		storedLabels, _ := r.Concept.Properties().Get("labelTokens")
		overlap := tokenOverlap(labelTokens, storedLabels)

		score := 3*1.0 + 2*formTypeMatch + overlap
		if score > bestScore {
			bestScore = score
			best = patternFromConcept(r.Concept)
		}
	}

	if bestScore >= s.minScore {
		return best, true
	}
	return Pattern{}, false
}

// persist stores a detector-sourced pattern as a new FormPattern concept
// so future lookups for the same page hit the fingerprint match first.
func (s *Store) persist(page Page, pattern Pattern) {
	labels := make([]string, 0, len(page.Fields))
	for _, f := range page.Fields {
		labels = append(labels, strings.ToLower(f.Label))
	}

	props := valueobjects.EmptyProperties().
		With("fingerprint", pattern.Fingerprint).
		With("domain", pattern.Domain).
		With("formType", pattern.FormType).
		With("selectors", pattern.Selectors).
		With("labelTokens", labels)

	provenance := valueobjects.NewProvenance(valueobjects.SourceTool, "", 1.0, time.Now())
	_, _ = s.ksg.CreateNode(KindFormPattern, []string{pattern.Domain}, props, provenance)
}

// PersistSelectorWinner rewrites a stored pattern's selector for field after
// an autofill run discovers a working fallback, so the next lookup for the
// same fingerprint uses it directly (§4.4 step 5).
func (s *Store) PersistSelectorWinner(ctx context.Context, patternID valueobjects.NodeID, field, selector string) error {
	concept, err := s.ksg.Get(patternID)
	if err != nil {
		return err
	}

	selectors := make(map[string]string)
	if raw, ok := concept.Properties().Get("selectors"); ok {
		if m, ok := raw.(map[string]string); ok {
			for k, v := range m {
				selectors[k] = v
			}
		}
	}
	selectors[field] = selector

	patch := valueobjects.EmptyProperties().With("selectors", selectors)
	return s.ksg.UpdateProperties(ctx, patternID, patch)
}

func patternFromConcept(c *entities.Concept) Pattern {
	fp, _ := c.Properties().GetString("fingerprint")
	domain, _ := c.Properties().GetString("domain")
	formType, _ := c.Properties().GetString("formType")

	selectors := make(map[string]string)
	if raw, ok := c.Properties().Get("selectors"); ok {
		if m, ok := raw.(map[string]string); ok {
			selectors = m
		}
	}

	return Pattern{
		ID:          c.ID(),
		Fingerprint: fp,
		Domain:      domain,
		FormType:    formType,
		Selectors:   selectors,
	}
}

func labelTokenSet(page Page) map[string]bool {
	set := make(map[string]bool)
	for _, f := range page.Fields {
		for _, tok := range strings.Fields(strings.ToLower(f.Label)) {
			set[tok] = true
		}
	}
	return set
}

func tokenOverlap(labelTokens map[string]bool, stored interface{}) float64 {
	storedSlice, ok := stored.([]string)
	if !ok {
		return 0
	}
	overlap := 0.0
	for _, tok := range storedSlice {
		if labelTokens[strings.ToLower(tok)] {
			overlap++
		}
	}
	return overlap
}

func inferFormType(page Page) string {
	for _, f := range page.Fields {
		lower := strings.ToLower(f.Label + f.InputType + f.Placeholder)
		if strings.Contains(lower, "card") || strings.Contains(lower, "cvv") {
			return "payment"
		}
		if strings.Contains(lower, "password") {
			return "login"
		}
	}
	return "generic"
}

var errPatternNotFound = patternNotFoundError{}

type patternNotFoundError struct{}

func (patternNotFoundError) Error() string { return "form pattern not found" }
