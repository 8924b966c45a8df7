package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/leadscout/internal/domain"
)

// NotificationRepository handles database operations for notifications.
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository creates a new notification repository.
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

var _ NotificationRepositoryInterface = (*NotificationRepository)(nil)

// Save inserts a notification record.
func (r *NotificationRepository) Save(ctx context.Context, n *domain.Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}

	query := `
		INSERT INTO notifications (id, agent_id, title, body, high_count, medium_count)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`

	err := r.db.QueryRowContext(
		ctx,
		query,
		n.ID,
		n.AgentID,
		n.Title,
		n.Body,
		n.HighCount,
		n.MediumCount,
	).Scan(&n.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to save notification: %w", err)
	}

	return nil
}
