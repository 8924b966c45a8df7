package ranking

import (
	"strings"

	"github.com/jonesrussell/leadscout/internal/domain"
)

// Geo match strengths. Strength feeds the low-confidence annotation;
// score feeds the composite.
const (
	geoExactScore    = 1.0
	geoExactStrength = 1.0

	geoTextScore    = 0.8
	geoTextStrength = 0.7

	geoPartialScore    = 0.5
	geoPartialStrength = 0.4

	// geoUnknownScore applies when neither the signal nor its text names
	// a location: plausible but unverified.
	geoUnknownScore    = 0.3
	geoUnknownStrength = 0.2
)

// GeoScorer rates how well a signal matches the agent's target
// location. Purely lexical; no geocoding round-trips on the hot path.
type GeoScorer struct{}

// NewGeoScorer creates a geo scorer.
func NewGeoScorer() *GeoScorer {
	return &GeoScorer{}
}

// Score returns (score, strength) for the signal against the target
// location. A signal explicitly tagged with a different location scores
// zero; an untagged signal gets partial credit from its text.
func (g *GeoScorer) Score(sig domain.Signal, targetLocation string) (float64, float64) {
	target := normalizeLocation(targetLocation)
	if target == "" {
		// Agent has no geographic constraint.
		return geoExactScore, geoExactStrength
	}

	sigLoc := normalizeLocation(sig.Location)
	text := strings.ToLower(sig.Text)

	switch {
	case sigLoc == target:
		return geoExactScore, geoExactStrength
	case sigLoc != "" && strings.Contains(sigLoc, target):
		return geoTextScore, geoTextStrength
	case sigLoc != "" && strings.Contains(target, sigLoc):
		return geoPartialScore, geoPartialStrength
	case sigLoc != "":
		// Tagged with somewhere else entirely.
		return 0, geoExactStrength
	case strings.Contains(text, target):
		return geoTextScore, geoTextStrength
	default:
		return geoUnknownScore, geoUnknownStrength
	}
}

func normalizeLocation(loc string) string {
	return strings.ToLower(strings.TrimSpace(loc))
}
