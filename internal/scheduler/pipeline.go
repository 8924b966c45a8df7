package scheduler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jonesrussell/leadscout/internal/database"
	"github.com/jonesrussell/leadscout/internal/dedup"
	"github.com/jonesrussell/leadscout/internal/domain"
	"github.com/jonesrussell/leadscout/internal/logger"
	"github.com/jonesrussell/leadscout/internal/metrics"
	"github.com/jonesrussell/leadscout/internal/orchestrator"
	"github.com/jonesrussell/leadscout/internal/ranking"
)

// Discoverer is the slice of the orchestrator the pipeline needs.
type Discoverer interface {
	DiscoverEscalating(ctx context.Context, req orchestrator.Request) (orchestrator.Outcome, error)
}

// RunSummary reports what one agent run produced.
type RunSummary struct {
	AgentID     string
	WindowHours int
	Raw         int
	Unique      int
	Rejected    int
	High        int
	Medium      int
	Low         int
	NewLeads    int
	Notified    bool
}

// Pipeline executes the full discover → dedupe → rank → persist →
// notify sequence for one agent.
type Pipeline struct {
	logger        logger.Interface
	discoverer    Discoverer
	dedup         *dedup.Engine
	classifier    *ranking.Classifier
	leads         database.LeadRepositoryInterface
	notifications database.NotificationRepositoryInterface
	metrics       *metrics.Metrics
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithPipelineMetrics enables metrics export for pipeline runs.
func WithPipelineMetrics(m *metrics.Metrics) PipelineOption {
	return func(p *Pipeline) { p.metrics = m }
}

// NewPipeline wires the pipeline stages together.
func NewPipeline(
	log logger.Interface,
	discoverer Discoverer,
	engine *dedup.Engine,
	classifier *ranking.Classifier,
	leads database.LeadRepositoryInterface,
	notifications database.NotificationRepositoryInterface,
	opts ...PipelineOption,
) *Pipeline {
	p := &Pipeline{
		logger:        log,
		discoverer:    discoverer,
		dedup:         engine,
		classifier:    classifier,
		leads:         leads,
		notifications: notifications,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes one scheduled pass for the agent.
func (p *Pipeline) Run(ctx context.Context, agent *domain.Agent) (RunSummary, error) {
	summary := RunSummary{AgentID: agent.ID}

	window := agent.IntervalHours
	if window < 1 {
		window = 1
	}

	outcome, err := p.discoverer.DiscoverEscalating(ctx, orchestrator.Request{
		Query:       agent.Query,
		Location:    agent.Location,
		Category:    agent.Category,
		WindowHours: window,
	})
	if err != nil {
		return summary, fmt.Errorf("discovery failed for agent %s: %w", agent.ID, err)
	}
	summary.Raw = len(outcome.Signals)
	summary.WindowHours = outcome.WindowHours

	result := p.dedup.Dedupe(outcome.Signals)
	summary.Unique = len(result.Unique)
	summary.Rejected = len(result.Rejected)
	if p.metrics != nil {
		for _, rej := range result.Rejected {
			p.metrics.DedupRejections.WithLabelValues(rejectionPhase(rej.Reason)).Inc()
		}
	}

	scored := p.classifier.ScoreAll(result.Unique, agent.Location)

	newHigh, newMedium, err := p.persist(ctx, agent, scored, &summary)
	if err != nil {
		return summary, err
	}

	if newHigh > 0 {
		if err := p.notify(ctx, agent, newHigh, newMedium); err != nil {
			return summary, err
		}
		summary.Notified = true
	}

	// A run that burned its deadline collecting nothing must not look
	// like a clean pass, or the schedule advances over a dead interval.
	if ctxErr := ctx.Err(); ctxErr != nil {
		return summary, fmt.Errorf("agent run %s interrupted: %w", agent.ID, ctxErr)
	}

	p.logger.Info("Agent run complete",
		logger.String("agent_id", agent.ID),
		logger.Int("raw", summary.Raw),
		logger.Int("unique", summary.Unique),
		logger.Int("new_leads", summary.NewLeads),
		logger.Int("high", summary.High),
		logger.Int("medium", summary.Medium),
		logger.Bool("notified", summary.Notified),
	)

	return summary, nil
}

// persist upserts scored signals as leads and links them to the agent,
// suppressing contacts the agent has already been shown. Returns the
// new high and medium counts that feed the notification.
func (p *Pipeline) persist(ctx context.Context, agent *domain.Agent, scored []domain.ScoredSignal, summary *RunSummary) (int, int, error) {
	var newHigh, newMedium int

	for _, sig := range scored {
		switch sig.Tier {
		case domain.TierHigh:
			summary.High++
		case domain.TierMedium:
			summary.Medium++
		default:
			summary.Low++
		}

		lead := &domain.Lead{
			SourceURL:    sig.URL,
			Text:         sig.Text,
			ContactPhone: dedup.NormalizePhone(sig.ContactPhone),
			ContactEmail: sig.ContactEmail,
			Location:     sig.Location,
			Source:       sig.Source,
			ScraperName:  sig.ScraperName,
			RankedScore:  sig.RankedScore,
			Tier:         string(sig.Tier),
			Annotations:  domain.Annotations(sig.Annotations),
			CapturedAt:   sig.CapturedAt,
		}

		created, err := p.leads.Upsert(ctx, lead)
		if err != nil {
			return 0, 0, fmt.Errorf("lead upsert failed: %w", err)
		}
		if created {
			summary.NewLeads++
			if p.metrics != nil {
				p.metrics.LeadsCreated.WithLabelValues(string(sig.Tier)).Inc()
			}
		}

		// A contact the agent already surfaced under another URL is
		// not new to the agent, even if the lead row is.
		if lead.ContactPhone != "" {
			known, err := p.leads.AgentHasPhone(ctx, agent.ID, lead.ContactPhone)
			if err != nil {
				return 0, 0, fmt.Errorf("phone suppression check failed: %w", err)
			}
			if known {
				continue
			}
		}

		if err := p.leads.LinkAgent(ctx, agent.ID, lead.ID); err != nil {
			return 0, 0, fmt.Errorf("agent link failed: %w", err)
		}

		if created {
			switch sig.Tier {
			case domain.TierHigh:
				newHigh++
			case domain.TierMedium:
				newMedium++
			}
		}
	}

	return newHigh, newMedium, nil
}

// notify writes the single batched notification for this run.
func (p *Pipeline) notify(ctx context.Context, agent *domain.Agent, high, medium int) error {
	n := &domain.Notification{
		AgentID:     agent.ID,
		Title:       notificationTitle(high),
		Body:        notificationBody(agent.Query, high, medium),
		HighCount:   high,
		MediumCount: medium,
		CreatedAt:   time.Now().UTC(),
	}

	if err := p.notifications.Save(ctx, n); err != nil {
		return fmt.Errorf("notification save failed: %w", err)
	}
	if p.metrics != nil {
		p.metrics.NotificationsSent.Inc()
	}
	return nil
}

// rejectionPhase maps a rejection reason to its dedup phase label.
func rejectionPhase(reason string) string {
	switch {
	case strings.HasPrefix(reason, "exact URL"):
		return "url"
	case strings.HasPrefix(reason, "duplicate contact"):
		return "phone"
	default:
		return "semantic"
	}
}

func notificationTitle(high int) string {
	if high == 1 {
		return "1 New High-Intent Lead"
	}
	return fmt.Sprintf("%d New High-Intent Leads", high)
}

func notificationBody(query string, high, medium int) string {
	if medium > 0 {
		return fmt.Sprintf("Found %d high and %d medium priority leads for %q.", high, medium, query)
	}
	return fmt.Sprintf("Found %d high priority leads for %q.", high, query)
}
