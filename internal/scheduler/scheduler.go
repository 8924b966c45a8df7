// Package scheduler runs saved agents on their intervals: claiming due
// agents atomically, executing the discovery pipeline under a deadline,
// and retiring agents that reach end of life.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jonesrussell/leadscout/internal/config"
	"github.com/jonesrussell/leadscout/internal/database"
	"github.com/jonesrussell/leadscout/internal/domain"
	"github.com/jonesrussell/leadscout/internal/logger"
	"github.com/jonesrussell/leadscout/internal/metrics"
)

// dueBatchLimit caps how many agents one tick picks up. A burst of
// overdue agents drains over a few ticks instead of one thundering one.
const dueBatchLimit = 50

// heartbeatInterval is how often an in-flight run refreshes the agent's
// liveness stamp.
const heartbeatInterval = 30 * time.Second

// Runner executes the discovery pipeline for one agent.
type Runner interface {
	Run(ctx context.Context, agent *domain.Agent) (RunSummary, error)
}

// Scheduler owns the tick loop. Multiple instances may run against the
// same database; the conditional-update claim keeps each agent on one
// instance at a time.
type Scheduler struct {
	logger logger.Interface
	agents database.AgentRepositoryInterface
	runner Runner
	cfg    config.SchedulerConfig

	metrics        *metrics.Metrics
	heartbeatEvery time.Duration
	now            func() time.Time
	cancel         context.CancelFunc
	wg             sync.WaitGroup
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithSchedulerMetrics enables metrics export for agent runs.
func WithSchedulerMetrics(m *metrics.Metrics) SchedulerOption {
	return func(s *Scheduler) { s.metrics = m }
}

// New creates a scheduler.
func New(log logger.Interface, agents database.AgentRepositoryInterface, runner Runner, cfg config.SchedulerConfig, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		logger:         log,
		agents:         agents,
		runner:         runner,
		cfg:            cfg,
		heartbeatEvery: heartbeatInterval,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start resets stale locks left by a previous crash, then begins
// ticking. It returns once the loop goroutine is running.
func (s *Scheduler) Start(ctx context.Context) error {
	reset, err := s.agents.ResetRunning(ctx)
	if err != nil {
		return err
	}
	if reset > 0 {
		s.logger.Warn("Reset stale running flags from previous process",
			logger.Int("count", reset),
		)
	}

	ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go s.loop(ctx)

	s.logger.Info("Scheduler started",
		logger.Duration("tick_interval", s.cfg.TickInterval),
		logger.Duration("agent_deadline", s.cfg.AgentDeadline),
	)
	return nil
}

// Stop cancels the loop and waits for in-flight agent runs to release
// their locks.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	s.logger.Info("Scheduler stopped")
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	// First pass immediately; overdue agents should not wait a full
	// tick after startup.
	s.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick claims every due agent it can and runs each on its own
// goroutine. A claim that loses the race is another instance's win,
// not an error.
func (s *Scheduler) tick(ctx context.Context) {
	now := s.now()

	due, err := s.agents.GetDue(ctx, now, dueBatchLimit)
	if err != nil {
		s.logger.Error("Failed to load due agents", logger.Error(err))
		return
	}

	for _, agent := range due {
		if agent.Expired(now) {
			if err := s.agents.Deactivate(ctx, agent.ID); err != nil {
				s.logger.Error("Failed to deactivate expired agent",
					logger.String("agent_id", agent.ID),
					logger.Error(err),
				)
				continue
			}
			s.logger.Info("Agent reached end of life, deactivated",
				logger.String("agent_id", agent.ID),
			)
			continue
		}

		claimed, err := s.agents.Claim(ctx, agent.ID)
		if err != nil {
			s.logger.Error("Agent claim failed",
				logger.String("agent_id", agent.ID),
				logger.Error(err),
			)
			continue
		}
		if !claimed {
			continue
		}

		s.wg.Add(1)
		go func(agent *domain.Agent) {
			defer s.wg.Done()
			s.runAgent(ctx, agent)
		}(agent)
	}
}

// runAgent executes the pipeline under the agent deadline and always
// releases the lock, advancing the schedule only on a completed run.
// The run context is detached from the loop context: shutdown stops
// claiming new agents but a claimed run finishes on its own or hits
// the deadline.
func (s *Scheduler) runAgent(ctx context.Context, agent *domain.Agent) {
	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.AgentDeadline)
	defer cancel()

	hbCtx, hbCancel := context.WithCancel(runCtx)
	hbDone := make(chan struct{})
	go func() {
		defer close(hbDone)
		s.heartbeat(hbCtx, agent.ID)
	}()

	started := s.now()
	summary, err := s.runner.Run(runCtx, agent)
	hbCancel()
	<-hbDone

	if s.metrics != nil {
		s.metrics.AgentRunDuration.Observe(time.Since(started).Seconds())
		result := "ok"
		if err != nil {
			result = "error"
		}
		s.metrics.AgentRuns.WithLabelValues(result).Inc()
	}

	if err != nil && (errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)) {
		// Interrupted run: force-unlock without advancing the schedule
		// so the next tick retries promptly.
		s.logger.Error("Agent run interrupted, force-unlocking",
			logger.String("agent_id", agent.ID),
			logger.Duration("deadline", s.cfg.AgentDeadline),
			logger.Error(err),
		)
		s.release(agent.ID, nil)
		return
	}

	if err != nil {
		s.logger.Error("Agent run failed",
			logger.String("agent_id", agent.ID),
			logger.Error(err),
		)
	} else {
		s.logger.Debug("Agent run summary",
			logger.String("agent_id", agent.ID),
			logger.Int("new_leads", summary.NewLeads),
			logger.Int("high", summary.High),
		)
	}

	next := s.nextRun(agent)
	s.release(agent.ID, &next)
}

// heartbeat refreshes the agent's liveness stamp while a run is in
// flight so operators can tell a working claim from a stuck one.
func (s *Scheduler) heartbeat(ctx context.Context, agentID string) {
	ticker := time.NewTicker(s.heartbeatEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.agents.Heartbeat(ctx, agentID, s.now()); err != nil {
				s.logger.Warn("Heartbeat update failed",
					logger.String("agent_id", agentID),
					logger.Error(err),
				)
			}
		}
	}
}

// nextRun computes the next schedule slot. A computed slot in the past
// (an agent that fell behind) is floored so runs do not stampede.
func (s *Scheduler) nextRun(agent *domain.Agent) time.Time {
	now := s.now()

	var next time.Time
	if agent.NextRunAt != nil {
		next = agent.NextRunAt.Add(time.Duration(agent.IntervalHours) * time.Hour)
	} else {
		next = now.Add(time.Duration(agent.IntervalHours) * time.Hour)
	}

	if floor := now.Add(s.cfg.RescheduleFloor); next.Before(floor) {
		next = floor
	}
	return next
}

// release drops the lock using a background context so shutdown or a
// blown deadline cannot strand an agent in the running state.
func (s *Scheduler) release(agentID string, nextRunAt *time.Time) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.agents.Release(ctx, agentID, nextRunAt); err != nil {
		s.logger.Error("Failed to release agent lock",
			logger.String("agent_id", agentID),
			logger.Error(err),
		)
	}
}
