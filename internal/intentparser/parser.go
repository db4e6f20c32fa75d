// Package intentparser implements the deterministic parser (C8): a
// rule-based classifier mapping raw user text to one of a fixed set of
// intents, so obvious requests can short-circuit the LLM planning call.
package intentparser

import (
	"regexp"
	"strings"
)

// Intent is one of the fixed classification outcomes (§4.8).
type Intent string

const (
	IntentTaskCreate     Intent = "task_create"
	IntentReminder       Intent = "reminder"
	IntentCalendarCreate Intent = "calendar_create"
	IntentRecall         Intent = "recall"
	IntentAmbiguous      Intent = "ambiguous"
)

// ShortCircuitConfidence is the minimum confidence at which a
// classification bypasses the LLM planning call entirely (§4.8, §6.4
// SKIP_LLM_FOR_OBVIOUS_INTENTS).
const ShortCircuitConfidence = 0.9

// Classification is the parser's verdict on one utterance.
type Classification struct {
	Intent     Intent
	Confidence float64
}

// ShortCircuits reports whether this classification is confident enough to
// skip full LLM planning.
func (c Classification) ShortCircuits() bool {
	return c.Intent != IntentAmbiguous && c.Confidence >= ShortCircuitConfidence
}

// rule is one priority-ordered classification rule: the first rule whose
// pattern or keywords match wins.
type rule struct {
	intent     Intent
	confidence float64
	pattern    *regexp.Regexp
	keywords   []string
}

// rules are evaluated in order; the first match wins, highest-priority
// (most specific pattern) rules come first.
var rules = []rule{
	{
		intent:     IntentReminder,
		confidence: 0.95,
		pattern:    regexp.MustCompile(`(?i)\bremind me\b`),
	},
	{
		intent:     IntentReminder,
		confidence: 0.9,
		keywords:   []string{"reminder", "remind"},
	},
	{
		intent:     IntentCalendarCreate,
		confidence: 0.95,
		pattern:    regexp.MustCompile(`(?i)\b(schedule|book)\s+(a\s+)?(meeting|appointment|call|event)\b`),
	},
	{
		intent:     IntentCalendarCreate,
		confidence: 0.9,
		keywords:   []string{"calendar", "appointment"},
	},
	{
		intent:     IntentRecall,
		confidence: 0.95,
		pattern:    regexp.MustCompile(`(?i)\b(what (did|was|is)|recall|remember when|do you remember)\b`),
	},
	{
		intent:     IntentTaskCreate,
		confidence: 0.92,
		pattern:    regexp.MustCompile(`(?i)\b(add|create)\s+(a\s+)?(task|todo|to-do)\b`),
	},
	{
		intent:     IntentTaskCreate,
		confidence: 0.9,
		keywords:   []string{"todo", "to-do", "task"},
	},
}

// Classify runs text through the priority-ordered rule set. The first
// confident match wins; if none matches, the result is IntentAmbiguous with
// confidence 0 so the caller falls through to full LLM planning (§4.8).
func Classify(text string) Classification {
	lower := strings.ToLower(text)

	for _, r := range rules {
		if r.pattern != nil && r.pattern.MatchString(text) {
			return Classification{Intent: r.intent, Confidence: r.confidence}
		}
		if matchesAnyKeyword(lower, r.keywords) {
			return Classification{Intent: r.intent, Confidence: r.confidence}
		}
	}

	return Classification{Intent: IntentAmbiguous, Confidence: 0}
}

func matchesAnyKeyword(lower string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
