// Package interrupt classifies user interruptions and reorders role queues in
// response.
//
// Classification is a closed-set keyword match: each intent owns a fixed
// family of patterns, and the intent's confidence is the fraction of its
// patterns the message matches. Reallocation is a pure function of the queue,
// the winning intent, role usage, and hysteresis state; it never mutates
// session state itself.
package interrupt

import (
	"regexp"
	"strings"

	"github.com/antzucaro/matchr"
)

// Intent is the classified purpose of a user interruption.
type Intent string

const (
	IntentClarification  Intent = "clarification"
	IntentObjection      Intent = "objection"
	IntentExampleRequest Intent = "example_request"
	IntentDepthRequest   Intent = "depth_request"
	IntentSummaryRequest Intent = "summary_request"
	IntentTopicPivot     Intent = "topic_pivot"
	IntentOther          Intent = "other"
)

// ConfidenceThreshold is the minimum classification confidence for an intent
// to trigger reallocation.
const ConfidenceThreshold = 0.7

// fuzzyMatchThreshold is the Jaro-Winkler similarity above which a message
// word counts as a single-keyword pattern match, absorbing minor typos such
// as "sumarize" or "clarfy".
const fuzzyMatchThreshold = 0.92

// intentPatterns maps each intent to its signal patterns, in fixed priority
// order for tie-breaking. Patterns match against the lowercased message.
var intentPatterns = []struct {
	intent   Intent
	patterns []*regexp.Regexp
}{
	{IntentClarification, compileAll(
		`explain.*more`, `don'?t understand`, `clarify`, `what.*mean`, `simpler`, `confused`,
	)},
	{IntentObjection, compileAll(
		`disagree`, `doesn'?t (sound|seem) right`, `but.*what if`, `wrong`, `incorrect`,
	)},
	{IntentExampleRequest, compileAll(
		`example`, `concrete`, `real.*world`, `illustrate`, `instance`, `demonstrate`,
	)},
	{IntentDepthRequest, compileAll(
		`deeper`, `tell.*more`, `elaborate`, `more.*detail`, `expand on`,
	)},
	{IntentSummaryRequest, compileAll(
		`summarize`, `recap`, `key.*point`, `main.*idea`, `in.*short`,
	)},
	{IntentTopicPivot, compileAll(
		`let'?s.*talk.*about`, `skip.*to`, `next.*topic`, `change.*subject`, `move on`,
	)},
}

func compileAll(patterns ...string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		compiled[i] = regexp.MustCompile(`(?s)` + p)
	}
	return compiled
}

// Classification is the outcome of classifying one interruption message.
type Classification struct {
	// Intent is the winning intent.
	Intent Intent

	// Confidence is the fraction of the winning intent's patterns the
	// message matched, in [0, 1].
	Confidence float64

	// Actionable reports whether the confidence clears the reallocation
	// threshold.
	Actionable bool
}

// Classify determines the intent of a user interruption message. The message
// is lowercased and whitespace-trimmed first, so classification is stable
// under case and padding changes. Ties between equal-confidence intents break
// by the fixed priority order Clarification > Objection > Example Request >
// Depth Request > Summary Request > Topic Pivot.
func Classify(message string) Classification {
	text := strings.ToLower(strings.TrimSpace(message))
	if text == "" {
		return Classification{Intent: IntentOther}
	}
	words := strings.Fields(text)

	best := Classification{Intent: IntentOther}
	for _, family := range intentPatterns {
		matches := 0
		for _, p := range family.patterns {
			if p.MatchString(text) || fuzzyMatches(p, words) {
				matches++
			}
		}
		confidence := float64(matches) / float64(len(family.patterns))
		// Strictly greater keeps the priority order on ties.
		if confidence > best.Confidence {
			best = Classification{Intent: family.intent, Confidence: confidence}
		}
	}

	best.Actionable = best.Confidence >= ConfidenceThreshold
	return best
}

// fuzzyMatches reports whether any message word is a near-miss of a
// single-keyword pattern. Patterns with regex metacharacters are skipped;
// fuzziness only applies to plain keywords like "clarify" or "summarize".
func fuzzyMatches(p *regexp.Regexp, words []string) bool {
	keyword := strings.TrimPrefix(p.String(), `(?s)`)
	if strings.ContainsAny(keyword, `.*?()|[]\`) || strings.Contains(keyword, " ") {
		return false
	}
	for _, w := range words {
		w = strings.Trim(w, ".,!?;:'\"")
		if matchr.JaroWinkler(w, keyword, false) >= fuzzyMatchThreshold {
			return true
		}
	}
	return false
}
