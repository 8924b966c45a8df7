package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/leadscout/internal/domain"
)

// AgentRepository handles database operations for agents.
type AgentRepository struct {
	db *sqlx.DB
}

// NewAgentRepository creates a new agent repository.
func NewAgentRepository(db *sqlx.DB) *AgentRepository {
	return &AgentRepository{db: db}
}

var _ AgentRepositoryInterface = (*AgentRepository)(nil)

// Create inserts a new agent.
func (r *AgentRepository) Create(ctx context.Context, agent *domain.Agent) error {
	if agent.ID == "" {
		agent.ID = uuid.NewString()
	}

	query := `
		INSERT INTO agents (id, query, location, category, interval_hours,
		                    next_run_at, active, is_running, end_time, duration_days)
		VALUES ($1, $2, $3, $4, $5, $6, $7, false, $8, $9)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRowContext(
		ctx,
		query,
		agent.ID,
		agent.Query,
		agent.Location,
		agent.Category,
		agent.IntervalHours,
		agent.NextRunAt,
		agent.Active,
		agent.EndTime,
		agent.DurationDays,
	).Scan(&agent.CreatedAt, &agent.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create agent: %w", err)
	}

	return nil
}

// GetByID retrieves an agent by its ID.
func (r *AgentRepository) GetByID(ctx context.Context, id string) (*domain.Agent, error) {
	var agent domain.Agent
	query := `
		SELECT id, query, location, category, interval_hours, next_run_at,
		       active, is_running, last_heartbeat, end_time, duration_days,
		       created_at, updated_at
		FROM agents
		WHERE id = $1
	`

	err := r.db.GetContext(ctx, &agent, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("agent not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get agent: %w", err)
	}

	return &agent, nil
}

// GetDue lists active, unclaimed agents whose next run time has passed.
func (r *AgentRepository) GetDue(ctx context.Context, now time.Time, limit int) ([]*domain.Agent, error) {
	var agents []*domain.Agent
	query := `
		SELECT id, query, location, category, interval_hours, next_run_at,
		       active, is_running, last_heartbeat, end_time, duration_days,
		       created_at, updated_at
		FROM agents
		WHERE active = true AND is_running = false AND next_run_at <= $1
		ORDER BY next_run_at ASC
		LIMIT $2
	`

	err := r.db.SelectContext(ctx, &agents, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list due agents: %w", err)
	}

	if agents == nil {
		agents = []*domain.Agent{}
	}

	return agents, nil
}

// Claim attempts the atomic claim that guards against double execution.
// The conditional update is the mutual-exclusion primitive: exactly one
// caller sees a single affected row, no separate lock service needed.
func (r *AgentRepository) Claim(ctx context.Context, id string) (bool, error) {
	query := `
		UPDATE agents
		SET is_running = true, last_heartbeat = NOW(), updated_at = NOW()
		WHERE id = $1 AND is_running = false AND active = true
	`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("failed to claim agent: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected == 1, nil
}

// Release unlocks the agent. A non-nil nextRunAt also advances the
// schedule; the force-unlock path after a timeout passes nil so the
// agent stays eligible on the next tick.
func (r *AgentRepository) Release(ctx context.Context, id string, nextRunAt *time.Time) error {
	var result sql.Result
	var err error

	if nextRunAt != nil {
		query := `
			UPDATE agents
			SET is_running = false, next_run_at = $2, updated_at = NOW()
			WHERE id = $1
		`
		result, err = r.db.ExecContext(ctx, query, id, *nextRunAt)
	} else {
		query := `
			UPDATE agents
			SET is_running = false, updated_at = NOW()
			WHERE id = $1
		`
		result, err = r.db.ExecContext(ctx, query, id)
	}

	if err != nil {
		return fmt.Errorf("failed to release agent: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("agent not found: %s", id)
	}

	return nil
}

// ResetRunning clears the is_running flag on every agent. Called once at
// process startup: a fresh process cannot have any in-memory execution,
// so a set flag is a stale lock from a crash.
func (r *AgentRepository) ResetRunning(ctx context.Context) (int, error) {
	query := `
		UPDATE agents
		SET is_running = false, updated_at = NOW()
		WHERE is_running = true
	`

	result, err := r.db.ExecContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to reset running agents: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return int(rowsAffected), nil
}

// Deactivate marks an agent inactive and clears its schedule. Agents are
// deactivated, never deleted.
func (r *AgentRepository) Deactivate(ctx context.Context, id string) error {
	query := `
		UPDATE agents
		SET active = false, is_running = false, next_run_at = NULL, updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to deactivate agent: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("agent not found: %s", id)
	}

	return nil
}

// Heartbeat updates the agent's last heartbeat timestamp.
func (r *AgentRepository) Heartbeat(ctx context.Context, id string, at time.Time) error {
	query := `
		UPDATE agents
		SET last_heartbeat = $2
		WHERE id = $1
	`

	if _, err := r.db.ExecContext(ctx, query, id, at); err != nil {
		return fmt.Errorf("failed to update heartbeat: %w", err)
	}

	return nil
}
