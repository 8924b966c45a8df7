package registry

import (
	"github.com/robfig/cron/v3"

	"github.com/jonesrussell/leadscout/internal/logger"
)

// Sweep schedules.
const (
	refreshSchedule = "@every 1m"
	revivalSchedule = "@every 30m"
)

// Sweeper runs the registry's periodic maintenance: TTL expiry and the
// revival sweep.
type Sweeper struct {
	logger   logger.Interface
	registry *Registry
	cron     *cron.Cron
}

// NewSweeper creates a sweeper for the registry.
func NewSweeper(log logger.Interface, reg *Registry) *Sweeper {
	return &Sweeper{
		logger:   log,
		registry: reg,
		cron:     cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger))),
	}
}

// Start registers the sweep jobs and starts the cron runner.
func (s *Sweeper) Start() error {
	if _, err := s.cron.AddFunc(refreshSchedule, s.registry.RefreshStates); err != nil {
		return err
	}

	if _, err := s.cron.AddFunc(revivalSchedule, func() {
		if revived := s.registry.ReviveEligible(); len(revived) > 0 {
			s.logger.Info("Revival sweep re-enabled scrapers",
				logger.Strings("scrapers", revived),
			)
		}
	}); err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("Registry sweeper started")
	return nil
}

// Stop stops the cron runner and waits for running sweeps.
func (s *Sweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Registry sweeper stopped")
}
