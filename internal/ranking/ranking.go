// Package ranking scores deduplicated signals and classifies them into
// priority tiers.
package ranking

import (
	"github.com/jonesrussell/leadscout/internal/domain"
	"github.com/jonesrussell/leadscout/internal/logger"
)

// Composite weights. They sum to 1 so the ranked score stays on [0,1].
const (
	WeightIntent  = 0.4
	WeightGeo     = 0.3
	WeightUrgency = 0.2
	WeightSource  = 0.1
)

// Tier thresholds on the ranked score.
const (
	HighThreshold   = 0.75
	MediumThreshold = 0.50
)

// geoWeakStrength marks a location match too fuzzy to trust on its own.
const geoWeakStrength = 0.5

const annotationLowConfidence = "low_confidence"

// Classifier turns raw signals into scored, tiered signals.
type Classifier struct {
	logger  logger.Interface
	intent  *IntentScorer
	geo     *GeoScorer
	urgency *UrgencyScorer
	trust   TrustTable
}

// NewClassifier builds a classifier with the default scorers.
func NewClassifier(log logger.Interface) *Classifier {
	return &Classifier{
		logger:  log,
		intent:  NewIntentScorer(),
		geo:     NewGeoScorer(),
		urgency: NewUrgencyScorer(),
		trust:   DefaultTrustTable(),
	}
}

// Score computes the four components and the composite for one signal.
// Every component is clamped to [0,1] before weighting, so a scorer bug
// can never push the composite outside the scale.
func (c *Classifier) Score(sig domain.Signal, targetLocation string) domain.ScoredSignal {
	intent := clamp01(c.intent.Score(sig.Text))
	geo, strength := c.geo.Score(sig, targetLocation)
	geo = clamp01(geo)
	urgency := clamp01(c.urgency.Score(sig.Text))
	trust := clamp01(c.trust.Trust(sig.Source))

	scored := domain.ScoredSignal{
		Signal:       sig,
		IntentScore:  intent,
		GeoScore:     geo,
		UrgencyScore: urgency,
		SourceTrust:  trust,
		RankedScore: WeightIntent*intent +
			WeightGeo*geo +
			WeightUrgency*urgency +
			WeightSource*trust,
	}
	scored.Tier = Classify(scored.RankedScore)

	if geo > 0 && strength < geoWeakStrength {
		scored.Annotations = append(scored.Annotations, annotationLowConfidence)
	}

	return scored
}

// ScoreAll scores a batch against one target location.
func (c *Classifier) ScoreAll(signals []domain.Signal, targetLocation string) []domain.ScoredSignal {
	scored := make([]domain.ScoredSignal, 0, len(signals))
	for _, sig := range signals {
		scored = append(scored, c.Score(sig, targetLocation))
	}
	return scored
}

// Classify maps a ranked score to its priority tier. Boundaries are
// inclusive on the lower edge.
func Classify(score float64) domain.PriorityTier {
	switch {
	case score >= HighThreshold:
		return domain.TierHigh
	case score >= MediumThreshold:
		return domain.TierMedium
	default:
		return domain.TierLow
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
