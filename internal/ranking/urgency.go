package ranking

import (
	"strings"

	"github.com/cloudflare/ahocorasick"
)

var (
	highUrgencyPhrases = []string{
		"urgent",
		"urgently",
		"asap",
		"immediately",
		"right now",
		"today",
		"emergency",
		"by tomorrow",
	}

	mediumUrgencyPhrases = []string{
		"this week",
		"soon",
		"within days",
		"by friday",
		"by monday",
		"quick",
	}

	lowUrgencyPhrases = []string{
		"this month",
		"next month",
		"eventually",
		"when possible",
		"no rush",
	}
)

// Urgency band scores. Text with no temporal cue scores zero rather
// than a guessed middle value.
const (
	highUrgencyScore   = 1.0
	mediumUrgencyScore = 0.6
	lowUrgencyScore    = 0.2
)

// UrgencyScorer detects temporal pressure cues in signal text.
type UrgencyScorer struct {
	high   *ahocorasick.Matcher
	medium *ahocorasick.Matcher
	low    *ahocorasick.Matcher
}

// NewUrgencyScorer compiles the cue matchers.
func NewUrgencyScorer() *UrgencyScorer {
	return &UrgencyScorer{
		high:   ahocorasick.NewStringMatcher(highUrgencyPhrases),
		medium: ahocorasick.NewStringMatcher(mediumUrgencyPhrases),
		low:    ahocorasick.NewStringMatcher(lowUrgencyPhrases),
	}
}

// Score returns the strongest urgency band the text matches, on [0,1].
func (s *UrgencyScorer) Score(text string) float64 {
	lower := []byte(strings.ToLower(text))

	switch {
	case len(s.high.Match(lower)) > 0:
		return highUrgencyScore
	case len(s.medium.Match(lower)) > 0:
		return mediumUrgencyScore
	case len(s.low.Match(lower)) > 0:
		return lowUrgencyScore
	default:
		return 0
	}
}
