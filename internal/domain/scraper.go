package domain

import (
	"time"
)

// ScraperMode distinguishes production plugins from sandbox canaries.
type ScraperMode string

const (
	ModeProduction ScraperMode = "production"
	ModeSandbox    ScraperMode = "sandbox"
)

// ScraperCost marks whether a plugin consumes a paid quota.
type ScraperCost string

const (
	CostFree ScraperCost = "free"
	CostPaid ScraperCost = "paid"
)

// ScraperDescriptor describes a registered scraper plugin. It is
// mutated only through the registry's toggle operations.
type ScraperDescriptor struct {
	Name    string      `json:"name"`
	IsCore  bool        `json:"is_core"`
	Enabled bool        `json:"enabled"`
	Mode    ScraperMode `json:"mode"`
	Cost    ScraperCost `json:"cost"`

	// Tier 1 plugins are fast, API-only sources safe for interactive
	// search; tier 2 adds the slower browser-backed ones.
	Tier int `json:"tier"`

	// Categories the plugin is mapped to. Empty means all categories.
	Categories []string `json:"categories,omitempty"`

	// MaxWindowHours bounds the time windows the plugin's freshness
	// model makes sense for. Zero means unbounded.
	MaxWindowHours int `json:"max_window_hours,omitempty"`

	// EnabledUntil implements a TTL-bound temporary enable. Once
	// passed, the registry reverts the plugin to disabled. Core
	// plugins ignore it.
	EnabledUntil *time.Time `json:"enabled_until,omitempty"`

	// DisableReason records why a plugin was disabled ("unstable",
	// "manual", ...). Informational only.
	DisableReason string `json:"disable_reason,omitempty"`
}

// InCategory reports whether the plugin serves the given category.
func (d *ScraperDescriptor) InCategory(category string) bool {
	if category == "" || len(d.Categories) == 0 {
		return true
	}
	for _, c := range d.Categories {
		if c == category {
			return true
		}
	}
	return false
}

// ScraperMetrics holds rolling performance metrics for one plugin.
// Updated once per plugin invocation.
type ScraperMetrics struct {
	Runs                int64         `json:"runs"`
	LeadsFound          int64         `json:"leads_found"`
	Failures            int64         `json:"failures"`
	ConsecutiveFailures int           `json:"consecutive_failures"`
	LastSuccess         time.Time     `json:"last_success"`
	TotalLatency        time.Duration `json:"total_latency"`
	PriorityScore       float64       `json:"priority_score"`
	AutoDisabled        bool          `json:"auto_disabled"`
}

// SuccessRate returns the fraction of runs that succeeded.
func (m *ScraperMetrics) SuccessRate() float64 {
	if m.Runs == 0 {
		return 0
	}
	return float64(m.Runs-m.Failures) / float64(m.Runs)
}

// AvgLeadsPerRun returns the mean number of leads per invocation.
func (m *ScraperMetrics) AvgLeadsPerRun() float64 {
	if m.Runs == 0 {
		return 0
	}
	return float64(m.LeadsFound) / float64(m.Runs)
}
