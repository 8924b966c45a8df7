package domain

import (
	"time"
)

// Agent is a saved search profile that the scheduler runs on an interval.
// NextRunAt and IsRunning form the scheduling state machine and are
// mutated only by the scheduler under the atomic-claim protocol.
type Agent struct {
	ID            string     `db:"id" json:"id"`
	Query         string     `db:"query" json:"query"`
	Location      string     `db:"location" json:"location"`
	Category      string     `db:"category" json:"category"`
	IntervalHours int        `db:"interval_hours" json:"interval_hours"`
	NextRunAt     *time.Time `db:"next_run_at" json:"next_run_at"`
	Active        bool       `db:"active" json:"active"`
	IsRunning     bool       `db:"is_running" json:"is_running"`
	LastHeartbeat *time.Time `db:"last_heartbeat" json:"last_heartbeat,omitempty"`
	EndTime       *time.Time `db:"end_time" json:"end_time,omitempty"`
	DurationDays  int        `db:"duration_days" json:"duration_days"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// Expired reports whether the agent has reached its end of life.
// Legacy agents without an explicit end time expire DurationDays after
// creation.
func (a *Agent) Expired(now time.Time) bool {
	if a.EndTime != nil {
		return !now.Before(*a.EndTime)
	}
	if a.DurationDays > 0 {
		return now.After(a.CreatedAt.AddDate(0, 0, a.DurationDays))
	}
	return false
}
