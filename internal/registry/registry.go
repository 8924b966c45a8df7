// Package registry tracks scraper plugin health and decides, per
// discovery request, which plugins may run. It is self-healing: plugins
// that fail repeatedly are disabled automatically and earn their way
// back through the revival sweep.
package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jonesrussell/leadscout/internal/domain"
	"github.com/jonesrussell/leadscout/internal/logger"
	"github.com/jonesrussell/leadscout/internal/scraper"
)

const (
	// autoDisableThreshold is the consecutive-failure count at which a
	// plugin is disabled with reason "unstable".
	autoDisableThreshold = 3

	// reasonUnstable marks an automatic disable.
	reasonUnstable = "unstable"

	// reasonTTLExpired marks a temporary enable that ran out.
	reasonTTLExpired = "ttl expired"

	// Revival criteria: a disabled plugin earns trust back when its
	// historical failure rate is low and it has produced enough leads.
	revivalMaxFailureRate = 0.3
	revivalMinLeads       = 10

	// defaultEmergencyTTL bounds the adaptive emergency expansion.
	defaultEmergencyTTL = 30 * time.Minute
)

// Selection is a request for the set of plugins allowed to run.
type Selection struct {
	Category    string
	WindowHours int
	Tier        int
}

// Registry owns the descriptors, metrics and plugin implementations.
// All state is injected and instance-owned so multiple pipelines can
// run in tests without cross-contamination.
type Registry struct {
	logger logger.Interface
	quota  QuotaCounter

	mu          sync.RWMutex
	scrapers    map[string]scraper.Scraper
	descriptors map[string]*domain.ScraperDescriptor
	metrics     map[string]*domain.ScraperMetrics

	paidDailyQuota map[string]int
	emergencyTTL   time.Duration
	runObserver    RunObserver
}

// RunObserver receives every recorded run, for metrics export.
type RunObserver func(name string, leadsFound int, latency time.Duration, failed bool)

// Option configures a Registry.
type Option func(*Registry)

// WithEmergencyTTL overrides the emergency expansion TTL.
func WithEmergencyTTL(ttl time.Duration) Option {
	return func(r *Registry) { r.emergencyTTL = ttl }
}

// WithPaidQuota sets the daily quota limits for paid plugins.
func WithPaidQuota(limits map[string]int) Option {
	return func(r *Registry) { r.paidDailyQuota = limits }
}

// WithRunObserver installs a callback invoked on every RecordRun.
func WithRunObserver(obs RunObserver) Option {
	return func(r *Registry) { r.runObserver = obs }
}

// New creates an empty registry.
func New(log logger.Interface, quota QuotaCounter, opts ...Option) *Registry {
	r := &Registry{
		logger:         log,
		quota:          quota,
		scrapers:       make(map[string]scraper.Scraper),
		descriptors:    make(map[string]*domain.ScraperDescriptor),
		metrics:        make(map[string]*domain.ScraperMetrics),
		paidDailyQuota: make(map[string]int),
		emergencyTTL:   defaultEmergencyTTL,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Register adds a plugin with its descriptor. Core plugins are forced
// enabled regardless of the descriptor's Enabled flag.
func (r *Registry) Register(s scraper.Scraper, desc domain.ScraperDescriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()

	desc.Name = s.Name()
	if desc.IsCore {
		desc.Enabled = true
		desc.EnabledUntil = nil
	}

	r.scrapers[desc.Name] = s
	r.descriptors[desc.Name] = &desc
	r.metrics[desc.Name] = &domain.ScraperMetrics{}

	r.logger.Info("Scraper registered",
		logger.String("scraper", desc.Name),
		logger.Bool("core", desc.IsCore),
		logger.String("mode", string(desc.Mode)),
	)
}

// ScraperFor returns the plugin implementation for a name.
func (r *Registry) ScraperFor(name string) (scraper.Scraper, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.scrapers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownScraper, name)
	}
	return s, nil
}

// ActivePlugins returns descriptor copies for the plugins allowed to
// run for the selection, sorted descending by priority score so callers
// front-load the reliable ones.
func (r *Registry) ActivePlugins(sel Selection) []domain.ScraperDescriptor {
	r.mu.Lock()
	r.refreshStatesLocked(time.Now())

	var active []domain.ScraperDescriptor
	scores := make(map[string]float64)
	for name, desc := range r.descriptors {
		if !r.selectableLocked(desc, sel) {
			continue
		}
		active = append(active, *desc)
		if m := r.metrics[name]; m != nil {
			scores[name] = m.PriorityScore
		}
	}
	r.mu.Unlock()

	sort.SliceStable(active, func(i, j int) bool {
		return scores[active[i].Name] > scores[active[j].Name]
	})

	return active
}

// selectableLocked applies the selection rules in order. Callers hold
// the write lock (refresh may have just mutated state).
func (r *Registry) selectableLocked(desc *domain.ScraperDescriptor, sel Selection) bool {
	// Sandbox canaries run whenever enabled.
	if desc.Mode == domain.ModeSandbox {
		return desc.Enabled
	}

	// Core plugins are always included.
	if desc.IsCore {
		return r.tierAllows(desc, sel.Tier)
	}

	if !desc.Enabled {
		return false
	}

	if !desc.InCategory(sel.Category) {
		return false
	}

	if desc.MaxWindowHours > 0 && sel.WindowHours > desc.MaxWindowHours {
		return false
	}

	return r.tierAllows(desc, sel.Tier)
}

// tierAllows applies the tier cap. Zero means no restriction.
func (r *Registry) tierAllows(desc *domain.ScraperDescriptor, tier int) bool {
	if tier <= 0 {
		return true
	}
	return desc.Tier <= tier
}

// Toggle enables or disables a plugin. A positive ttl makes an enable
// temporary; RefreshStates reverts it once the TTL passes. Disabling a
// core plugin is rejected with ErrCoreScraperProtected. Enabling a paid
// plugin past its quota fails with ErrQuotaExceeded.
func (r *Registry) Toggle(ctx context.Context, name string, enabled bool, ttl time.Duration, caller string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	desc, ok := r.descriptors[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownScraper, name)
	}

	if desc.IsCore && !enabled {
		r.logger.Warn("Rejected attempt to disable core scraper",
			logger.String("scraper", name),
			logger.String("caller", caller),
		)
		return fmt.Errorf("%w: %s", ErrCoreScraperProtected, name)
	}

	if enabled && desc.Cost == domain.CostPaid {
		limit, hasLimit := r.paidDailyQuota[name]
		if hasLimit {
			exceeded, err := r.quota.Exceeded(ctx, name, limit)
			if err != nil {
				return fmt.Errorf("quota check for %s: %w", name, err)
			}
			if exceeded {
				return fmt.Errorf("%w: %s", ErrQuotaExceeded, name)
			}
		}
	}

	desc.Enabled = enabled
	desc.EnabledUntil = nil
	desc.DisableReason = ""
	if !enabled {
		desc.DisableReason = "manual"
	}
	if enabled && ttl > 0 && !desc.IsCore {
		until := time.Now().Add(ttl)
		desc.EnabledUntil = &until
	}

	if m := r.metrics[name]; m != nil && enabled {
		m.AutoDisabled = false
		m.ConsecutiveFailures = 0
	}

	r.logger.Info("Scraper toggled",
		logger.String("scraper", name),
		logger.Bool("enabled", enabled),
		logger.Duration("ttl", ttl),
		logger.String("caller", caller),
	)

	return nil
}

// ConsumeQuota records one paid use of the plugin and fails with
// ErrQuotaExceeded when the daily limit is spent. Free plugins always
// pass.
func (r *Registry) ConsumeQuota(ctx context.Context, name string) error {
	r.mu.RLock()
	desc, ok := r.descriptors[name]
	var limit int
	var hasLimit bool
	if ok && desc.Cost == domain.CostPaid {
		limit, hasLimit = r.paidDailyQuota[name]
	}
	r.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownScraper, name)
	}
	if !hasLimit {
		return nil
	}

	allowed, err := r.quota.Consume(ctx, name, limit)
	if err != nil {
		return fmt.Errorf("quota consume for %s: %w", name, err)
	}
	if !allowed {
		return fmt.Errorf("%w: %s", ErrQuotaExceeded, name)
	}

	return nil
}

// RecordRun updates a plugin's rolling metrics after one invocation and
// applies the auto-disable rule.
func (r *Registry) RecordRun(name string, leadsFound int, latency time.Duration, failed bool) {
	if r.runObserver != nil {
		r.runObserver(name, leadsFound, latency, failed)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.metrics[name]
	if !ok {
		return
	}

	m.Runs++
	m.TotalLatency += latency

	if failed {
		m.Failures++
		m.ConsecutiveFailures++
	} else {
		m.LeadsFound += int64(leadsFound)
		m.ConsecutiveFailures = 0
		m.LastSuccess = time.Now()
	}

	m.PriorityScore = priorityScore(m)

	desc := r.descriptors[name]
	if failed && !desc.IsCore && desc.Enabled && m.ConsecutiveFailures >= autoDisableThreshold {
		desc.Enabled = false
		desc.EnabledUntil = nil
		desc.DisableReason = reasonUnstable
		m.AutoDisabled = true

		r.logger.Warn("Scraper auto-disabled",
			logger.String("scraper", name),
			logger.Int("consecutive_failures", m.ConsecutiveFailures),
		)
	}
}

// CheckHealth returns a snapshot of a plugin's metrics.
func (r *Registry) CheckHealth(name string) (domain.ScraperMetrics, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.metrics[name]
	if !ok {
		return domain.ScraperMetrics{}, fmt.Errorf("%w: %s", ErrUnknownScraper, name)
	}
	return *m, nil
}

// RefreshStates reverts expired TTL enables and re-enables any core
// plugin that external state shows disabled.
func (r *Registry) RefreshStates() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refreshStatesLocked(time.Now())
}

func (r *Registry) refreshStatesLocked(now time.Time) {
	for name, desc := range r.descriptors {
		if desc.IsCore && !desc.Enabled {
			// Core plugins can never end up disabled; auto-correct.
			desc.Enabled = true
			desc.EnabledUntil = nil
			desc.DisableReason = ""
			r.logger.Warn("Corrected disabled core scraper", logger.String("scraper", name))
			continue
		}

		if desc.Enabled && desc.EnabledUntil != nil && now.After(*desc.EnabledUntil) {
			desc.Enabled = false
			desc.EnabledUntil = nil
			desc.DisableReason = reasonTTLExpired
			r.logger.Info("Temporary enable expired", logger.String("scraper", name))
		}
	}
}

// ReviveEligible re-enables non-core disabled plugins whose history
// shows trust earned back: low failure rate, enough verified leads.
// Returns the revived names.
func (r *Registry) ReviveEligible() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var revived []string
	for name, desc := range r.descriptors {
		if desc.IsCore || desc.Enabled {
			continue
		}

		m := r.metrics[name]
		if m == nil || m.Runs == 0 {
			continue
		}

		failureRate := float64(m.Failures) / float64(m.Runs)
		if failureRate > revivalMaxFailureRate || m.LeadsFound < revivalMinLeads {
			continue
		}

		desc.Enabled = true
		desc.DisableReason = ""
		m.AutoDisabled = false
		m.ConsecutiveFailures = 0
		revived = append(revived, name)

		r.logger.Info("Scraper revived",
			logger.String("scraper", name),
			logger.Float64("failure_rate", failureRate),
			logger.Int64("leads_found", m.LeadsFound),
		)
	}

	return revived
}

// EmergencyExpand temporarily enables the disabled plugins with the
// best lead discovery history for the category, widening recall after a
// zero-result strict discovery. The enables expire on their own.
func (r *Registry) EmergencyExpand(category string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	until := time.Now().Add(r.emergencyTTL)
	var expanded []string

	for name, desc := range r.descriptors {
		if desc.IsCore || desc.Enabled || desc.Mode == domain.ModeSandbox {
			continue
		}
		if !desc.InCategory(category) {
			continue
		}

		m := r.metrics[name]
		if m == nil || m.AvgLeadsPerRun() <= 0 {
			continue
		}

		u := until
		desc.Enabled = true
		desc.EnabledUntil = &u
		desc.DisableReason = ""
		expanded = append(expanded, name)
	}

	if len(expanded) > 0 {
		r.logger.Info("Emergency expansion enabled fallback scrapers",
			logger.Strings("scrapers", expanded),
			logger.Duration("ttl", r.emergencyTTL),
		)
	}

	return expanded
}

// Names returns every registered plugin name.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.descriptors))
	for name := range r.descriptors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
