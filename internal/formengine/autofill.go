package formengine

import (
	"context"
	"strings"

	agenterrors "github.com/lehelkovach/osl-agent-prototype-sub000/internal/errors"
	"github.com/lehelkovach/osl-agent-prototype-sub000/internal/tools"
)

// fieldSynonyms recognizes alternate names for the same logical field
// (§4.4 step 6), checked both directions when matching a pattern's field
// name against a value set's stored keys.
var fieldSynonyms = map[string]string{
	"email":      "username",
	"username":   "email",
	"password":   "pass",
	"pass":       "password",
	"cardNumber": "cc-number",
	"cc-number":  "cardNumber",
	"expiry":     "cc-exp",
	"cc-exp":     "expiry",
	"cvv":        "cc-csc",
	"cc-csc":     "cvv",
}

// fallbackSelectors lists the ordered fallback CSS selectors tried, keyed
// by field type, when the stored selector for a field fails (§4.4 step 4).
var fallbackSelectors = map[string][]string{
	"email": {
		"input[type=email]",
		"input[name*=email i]",
		"input[name*=user i]",
		"input[id*=email i]",
		"input[id*=user i]",
	},
	"password": {
		"input[type=password]",
		"input[name*=pass i]",
		"input[id*=pass i]",
	},
	"card": {
		"input[autocomplete=cc-number]",
		"input[name*=card i]",
		"input[id*=card i]",
	},
}

// FieldFill is the outcome of attempting to fill one field.
type FieldFill struct {
	Field    string
	Selector string
	Filled   bool
}

// AllSelectorsFailedError reports the fields the autofill loop could not
// fill with either the stored selector or any fallback.
type AllSelectorsFailedError struct {
	Fields []string
}

func (e *AllSelectorsFailedError) Error() string {
	return "all selectors failed for fields: " + strings.Join(e.Fields, ", ")
}

// Autofiller runs the §4.4 autofill algorithm against a page.
type Autofiller struct {
	patterns *Store
	vault    *Vault
	toolsReg *tools.Registry
}

// NewAutofiller builds an autofiller over the given pattern store, vault,
// and tool registry.
func NewAutofiller(patterns *Store, vault *Vault, toolsReg *tools.Registry) *Autofiller {
	return &Autofiller{patterns: patterns, vault: vault, toolsReg: toolsReg}
}

// AskUser is implemented by the caller to request a value for a field the
// vault has no value for (§4.4 step 3).
type AskUser func(ctx context.Context, field string) (string, error)

// Fill runs the 6-step autofill algorithm against domain/path. kind selects
// which vault value set to pull values from (KindCredential, KindIdentity,
// KindPaymentMethod, or KindFormData).
func (a *Autofiller) Fill(ctx context.Context, domain, kind string, page Page, ask AskUser) ([]FieldFill, error) {
	// Step 1: fetch DOM via the external web tool. The caller already
	// built page from whatever it fetched with web.get_dom; Fill re-fetches
	// only when page.Fields is empty, to support callers that pass a page
	// they already have in hand.
	if len(page.Fields) == 0 {
		dom, err := a.toolsReg.Invoke(ctx, tools.WebGetDOM, tools.Params{"domain": domain})
		if err != nil {
			return nil, err
		}
		page = pageFromDOMResult(domain, dom)
	}

	pattern, err := a.patterns.Lookup(page)
	if err != nil {
		return nil, err // PatternNotFound: caller proceeds to the detector path inside Lookup itself
	}

	// Step 2: select a value set, preferring same domain then most recent use.
	values, found, err := a.vault.MostRecentlyUsed(kind, domain)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, agenterrors.NotFound("no " + kind + " value set available for " + domain)
	}

	// Step 3: enumerate required fields from the pattern; ask only for
	// values truly missing from the selected set.
	resolved := make(map[string]string, len(pattern.Selectors))
	for field := range pattern.Selectors {
		if v, ok := lookupValue(values.Values, field); ok {
			resolved[field] = v
			continue
		}
		if ask == nil {
			return nil, agenterrors.InvalidInput("missing value for field " + field + " and no ask_user callback provided")
		}
		v, err := ask(ctx, field)
		if err != nil {
			return nil, err
		}
		values.Values[field] = v
		resolved[field] = v
	}

	results := make([]FieldFill, 0, len(resolved))
	var failed []string

	for field, value := range resolved {
		selector := pattern.Selectors[field]
		if a.attemptFill(ctx, selector, value) {
			results = append(results, FieldFill{Field: field, Selector: selector, Filled: true})
			continue
		}

		// Step 4: stored selector failed, try ordered fallbacks keyed by
		// field type.
		winner, ok := a.tryFallbacks(ctx, field, value)
		if !ok {
			failed = append(failed, field)
			continue
		}

		results = append(results, FieldFill{Field: field, Selector: winner, Filled: true})

		// Step 5: persist the first successful fallback back into the pattern.
		_ = a.patterns.PersistSelectorWinner(ctx, pattern.ID, field, winner)
	}

	if len(failed) > 0 {
		return results, &AllSelectorsFailedError{Fields: failed}
	}

	_ = a.vault.MarkUsed(values.ID)
	return results, nil
}

func (a *Autofiller) attemptFill(ctx context.Context, selector, value string) bool {
	if selector == "" {
		return false
	}
	_, err := a.toolsReg.Invoke(ctx, tools.WebFill, tools.Params{"selector": selector, "value": value})
	return err == nil
}

func (a *Autofiller) tryFallbacks(ctx context.Context, field, value string) (string, bool) {
	for _, selector := range fallbackSelectors[fieldType(field)] {
		if a.attemptFill(ctx, selector, value) {
			return selector, true
		}
	}
	return "", false
}

// fieldType maps a field name to the fallback-selector bucket it belongs
// to (§4.4 step 4 only gives explicit lists for email/password/card).
func fieldType(field string) string {
	lower := strings.ToLower(field)
	switch {
	case strings.Contains(lower, "email") || strings.Contains(lower, "user"):
		return "email"
	case strings.Contains(lower, "pass"):
		return "password"
	case strings.Contains(lower, "card") || strings.Contains(lower, "cc-"):
		return "card"
	default:
		return ""
	}
}

// lookupValue resolves field against values, trying the field's recognized
// synonym when there is no direct match (§4.4 step 6).
func lookupValue(values map[string]string, field string) (string, bool) {
	if v, ok := values[field]; ok {
		return v, true
	}
	if syn, ok := fieldSynonyms[field]; ok {
		if v, ok := values[syn]; ok {
			return v, true
		}
	}
	return "", false
}

func pageFromDOMResult(domain string, dom tools.Params) Page {
	page := Page{Domain: domain}
	raw, ok := dom["fields"]
	if !ok {
		return page
	}
	entries, ok := raw.([]map[string]string)
	if !ok {
		return page
	}
	for _, e := range entries {
		page.Fields = append(page.Fields, Field{
			Label:       e["label"],
			InputType:   e["inputType"],
			Placeholder: e["placeholder"],
		})
	}
	return page
}
