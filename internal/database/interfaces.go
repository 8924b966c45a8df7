package database

import (
	"context"
	"time"

	"github.com/jonesrussell/leadscout/internal/domain"
)

// AgentRepositoryInterface defines the contract for agent data access.
type AgentRepositoryInterface interface {
	Create(ctx context.Context, agent *domain.Agent) error
	GetByID(ctx context.Context, id string) (*domain.Agent, error)

	// Scheduler operations
	GetDue(ctx context.Context, now time.Time, limit int) ([]*domain.Agent, error)
	Claim(ctx context.Context, id string) (bool, error)
	Release(ctx context.Context, id string, nextRunAt *time.Time) error
	ResetRunning(ctx context.Context) (int, error)
	Deactivate(ctx context.Context, id string) error
	Heartbeat(ctx context.Context, id string, at time.Time) error
}

// LeadRepositoryInterface defines the contract for lead data access.
// Upsert must be safe under concurrent callers with identical URLs.
type LeadRepositoryInterface interface {
	Upsert(ctx context.Context, lead *domain.Lead) (created bool, err error)
	LinkAgent(ctx context.Context, agentID, leadID string) error
	AgentHasPhone(ctx context.Context, agentID, phone string) (bool, error)
}

// NotificationRepositoryInterface defines the contract for notification
// persistence.
type NotificationRepositoryInterface interface {
	Save(ctx context.Context, n *domain.Notification) error
}
