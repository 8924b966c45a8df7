package ranking

import (
	"strings"

	"github.com/cloudflare/ahocorasick"
)

// Intent phrase groups, strongest first. A text is scored by the
// strongest group that matches it, with a small bonus for each extra
// matching group.
var (
	strongIntentPhrases = []string{
		"looking for",
		"need a",
		"need an",
		"needed urgently",
		"where can i buy",
		"where can i get",
		"anyone selling",
		"who sells",
		"recommend a supplier",
		"in the market for",
		"ready to buy",
		"want to purchase",
	}

	moderateIntentPhrases = []string{
		"how much is",
		"how much for",
		"what does it cost",
		"price of",
		"quote for",
		"best place to get",
		"any recommendations",
		"shopping around",
		"comparing prices",
	}

	weakIntentPhrases = []string{
		"thinking about",
		"considering",
		"might need",
		"in future",
		"someday",
	}
)

// Group base scores.
const (
	strongIntentScore   = 0.9
	moderateIntentScore = 0.6
	weakIntentScore     = 0.3
	intentGroupBonus    = 0.05
)

// IntentScorer detects purchase-intent phrases with precompiled
// Aho-Corasick matchers, so a batch scan stays linear in text length.
type IntentScorer struct {
	strong   *ahocorasick.Matcher
	moderate *ahocorasick.Matcher
	weak     *ahocorasick.Matcher
}

// NewIntentScorer compiles the phrase matchers.
func NewIntentScorer() *IntentScorer {
	return &IntentScorer{
		strong:   ahocorasick.NewStringMatcher(strongIntentPhrases),
		moderate: ahocorasick.NewStringMatcher(moderateIntentPhrases),
		weak:     ahocorasick.NewStringMatcher(weakIntentPhrases),
	}
}

// Score rates how strongly the text expresses buying intent, on [0,1].
func (s *IntentScorer) Score(text string) float64 {
	lower := []byte(strings.ToLower(text))

	groups := 0
	base := 0.0

	if len(s.strong.Match(lower)) > 0 {
		base = strongIntentScore
		groups++
	}
	if len(s.moderate.Match(lower)) > 0 {
		if base < moderateIntentScore {
			base = moderateIntentScore
		}
		groups++
	}
	if len(s.weak.Match(lower)) > 0 {
		if base < weakIntentScore {
			base = weakIntentScore
		}
		groups++
	}

	if groups == 0 {
		return 0
	}

	return clamp01(base + float64(groups-1)*intentGroupBonus)
}
