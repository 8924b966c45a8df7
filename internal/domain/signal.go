// Package domain provides domain models used across the application.
package domain

import (
	"time"
)

// Signal is a raw buyer-intent text signal produced by a scraper plugin.
// It is immutable once produced and lives in memory until the ranking
// stage decides its fate.
type Signal struct {
	Source       string    `json:"source"`
	Text         string    `json:"text"`
	URL          string    `json:"url"`
	ContactPhone string    `json:"contact_phone,omitempty"`
	ContactEmail string    `json:"contact_email,omitempty"`
	Location     string    `json:"location,omitempty"`
	CapturedAt   time.Time `json:"captured_at"`
	ScraperName  string    `json:"scraper_name"`
}

// PriorityTier classifies a scored signal by ranked score.
type PriorityTier string

const (
	TierHigh   PriorityTier = "high"
	TierMedium PriorityTier = "medium"
	TierLow    PriorityTier = "low"
)

// ScoredSignal is a Signal with computed ranking components attached.
// All component scores are on [0,1]; RankedScore is a weighted blend
// of the components, also on [0,1].
type ScoredSignal struct {
	Signal

	IntentScore  float64      `json:"intent_score"`
	GeoScore     float64      `json:"geo_score"`
	UrgencyScore float64      `json:"urgency_score"`
	SourceTrust  float64      `json:"source_trust"`
	RankedScore  float64      `json:"ranked_score"`
	Tier         PriorityTier `json:"tier"`

	// Annotations carries soft flags such as "low_confidence" so
	// downstream consumers can still surface weak signals instead of
	// silently dropping them.
	Annotations []string `json:"annotations,omitempty"`
}

// RejectedSignal is a Signal removed by deduplication, retained with
// its rejection reason for observability.
type RejectedSignal struct {
	Signal

	Reason string `json:"reason"`
}
