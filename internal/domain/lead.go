package domain

import (
	"time"
)

// Lead is a persisted unique signal, keyed by its source URL.
type Lead struct {
	ID           string      `db:"id" json:"id"`
	SourceURL    string      `db:"source_url" json:"source_url"`
	Text         string      `db:"text" json:"text"`
	ContactPhone string      `db:"contact_phone" json:"contact_phone,omitempty"`
	ContactEmail string      `db:"contact_email" json:"contact_email,omitempty"`
	Location     string      `db:"location" json:"location,omitempty"`
	Source       string      `db:"source" json:"source"`
	ScraperName  string      `db:"scraper_name" json:"scraper_name"`
	RankedScore  float64     `db:"ranked_score" json:"ranked_score"`
	Tier         string      `db:"tier" json:"tier"`
	Annotations  Annotations `db:"annotations" json:"annotations,omitempty"`
	CapturedAt   time.Time   `db:"captured_at" json:"captured_at"`
	CreatedAt    time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at" json:"updated_at"`
}

// Notification summarizes the high and medium priority leads found in
// one scheduler run for one agent. At most one notification is created
// per run.
type Notification struct {
	ID          string    `db:"id" json:"id"`
	AgentID     string    `db:"agent_id" json:"agent_id"`
	Title       string    `db:"title" json:"title"`
	Body        string    `db:"body" json:"body"`
	HighCount   int       `db:"high_count" json:"high_count"`
	MediumCount int       `db:"medium_count" json:"medium_count"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
