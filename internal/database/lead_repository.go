package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/leadscout/internal/domain"
)

// LeadRepository handles database operations for leads and agent-lead
// links.
type LeadRepository struct {
	db *sqlx.DB
}

// NewLeadRepository creates a new lead repository.
func NewLeadRepository(db *sqlx.DB) *LeadRepository {
	return &LeadRepository{db: db}
}

var _ LeadRepositoryInterface = (*LeadRepository)(nil)

// Upsert inserts a lead keyed by source URL, or refreshes the existing
// row. Safe under concurrent callers with identical URLs: the unique
// constraint plus ON CONFLICT resolves the race inside the database.
// Returns whether a new row was created.
func (r *LeadRepository) Upsert(ctx context.Context, lead *domain.Lead) (bool, error) {
	if lead.ID == "" {
		lead.ID = uuid.NewString()
	}

	query := `
		INSERT INTO leads (id, source_url, text, contact_phone, contact_email,
		                   location, source, scraper_name, ranked_score, tier,
		                   annotations, captured_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (source_url) DO UPDATE
		SET ranked_score = EXCLUDED.ranked_score,
		    tier = EXCLUDED.tier,
		    annotations = EXCLUDED.annotations,
		    updated_at = NOW()
		RETURNING id, (xmax = 0) AS created
	`

	var created bool
	err := r.db.QueryRowContext(
		ctx,
		query,
		lead.ID,
		lead.SourceURL,
		lead.Text,
		lead.ContactPhone,
		lead.ContactEmail,
		lead.Location,
		lead.Source,
		lead.ScraperName,
		lead.RankedScore,
		lead.Tier,
		lead.Annotations,
		lead.CapturedAt,
	).Scan(&lead.ID, &created)

	if err != nil {
		return false, fmt.Errorf("failed to upsert lead: %w", err)
	}

	return created, nil
}

// LinkAgent records that an agent discovered a lead. Idempotent.
func (r *LeadRepository) LinkAgent(ctx context.Context, agentID, leadID string) error {
	query := `
		INSERT INTO agent_leads (agent_id, lead_id)
		VALUES ($1, $2)
		ON CONFLICT (agent_id, lead_id) DO NOTHING
	`

	if _, err := r.db.ExecContext(ctx, query, agentID, leadID); err != nil {
		return fmt.Errorf("failed to link agent to lead: %w", err)
	}

	return nil
}

// AgentHasPhone reports whether the agent is already linked to a lead
// with the given normalized contact phone. Used to avoid surfacing the
// same buyer twice to one agent.
func (r *LeadRepository) AgentHasPhone(ctx context.Context, agentID, phone string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1
			FROM agent_leads al
			JOIN leads l ON l.id = al.lead_id
			WHERE al.agent_id = $1 AND l.contact_phone = $2
		)
	`

	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, agentID, phone); err != nil {
		return false, fmt.Errorf("failed to check agent phone link: %w", err)
	}

	return exists, nil
}
