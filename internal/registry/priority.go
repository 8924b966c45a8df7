package registry

import (
	"github.com/jonesrussell/leadscout/internal/domain"
)

// Priority score blend weights. Success rate dominates so flaky plugins
// sink even when they produce volume.
const (
	priorityWeightSuccess = 0.5
	priorityWeightYield   = 0.3
	priorityWeightVolume  = 0.2

	// yieldSaturation is the leads-per-run level treated as a full
	// yield score.
	yieldSaturation = 5.0

	// volumeSaturation is the run count treated as a full volume score.
	volumeSaturation = 50.0
)

// priorityScore recomputes the sort key the orchestrator uses to
// front-load reliable plugins. Result is on [0,1].
func priorityScore(m *domain.ScraperMetrics) float64 {
	if m.Runs == 0 {
		return 0
	}

	yield := m.AvgLeadsPerRun() / yieldSaturation
	if yield > 1 {
		yield = 1
	}

	volume := float64(m.Runs) / volumeSaturation
	if volume > 1 {
		volume = 1
	}

	return priorityWeightSuccess*m.SuccessRate() +
		priorityWeightYield*yield +
		priorityWeightVolume*volume
}
