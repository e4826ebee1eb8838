// Package bot implements the conversation routing and handoff-state engine:
// intent classification, the quick-reply step machine, the handoff gate,
// per-sender conversation state and the response dispatcher.
package bot

import (
	"strings"

	"golang.org/x/text/width"
)

// Intent is the classifier's output category for free text.
type Intent string

// The closed intent enumeration. Order of declaration mirrors matching priority.
const (
	IntentMSCInterest  Intent = "MSC_INTEREST"
	IntentHowToApply   Intent = "HOW_TO_APPLY"
	IntentJobListings  Intent = "JOB_LISTINGS"
	IntentHelp         Intent = "HELP"
	IntentPreScreening Intent = "PRE_SCREENING"
	IntentNone         Intent = "NONE"
)

// intentKeywords maps each intent to its bilingual keyword set.
// Matching is case-insensitive substring containment after width folding,
// evaluated in intentPriority order; the first matching intent wins.
var intentKeywords = map[Intent][]string{
	IntentMSCInterest:  {"msc"},
	IntentHowToApply:   {"apply", "応募", "申し込み"},
	IntentJobListings:  {"job", "求人", "仕事"},
	IntentHelp:         {"help", "ヘルプ", "助けて"},
	IntentPreScreening: {"pre-screening", "prescreening", "事前面談", "面談"},
}

// intentPriority is the fixed evaluation order.
var intentPriority = []Intent{
	IntentMSCInterest,
	IntentHowToApply,
	IntentJobListings,
	IntentHelp,
	IntentPreScreening,
}

// Classify maps free text to an intent tag. Pure: no I/O, no state
// mutation, deterministic for a given input.
func Classify(text string) Intent {
	normalized := NormalizeText(text)
	if normalized == "" {
		return IntentNone
	}

	for _, intent := range intentPriority {
		for _, keyword := range intentKeywords[intent] {
			if strings.Contains(normalized, keyword) {
				return intent
			}
		}
	}
	return IntentNone
}

// NormalizeText lower-cases the input and folds full-width characters to
// their canonical form. Japanese users routinely type full-width Latin
// ("ＭＳＣ"), which must match the half-width keyword sets.
func NormalizeText(text string) string {
	return strings.ToLower(strings.TrimSpace(width.Fold.String(text)))
}
