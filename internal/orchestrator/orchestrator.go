// Package orchestrator fans a discovery request out across the active
// scraper plugins, aggregates their signals, and shields the run from
// slow or failing sources.
package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/jonesrussell/leadscout/internal/config"
	"github.com/jonesrussell/leadscout/internal/domain"
	"github.com/jonesrussell/leadscout/internal/logger"
	"github.com/jonesrussell/leadscout/internal/metrics"
	"github.com/jonesrussell/leadscout/internal/ranking"
	"github.com/jonesrussell/leadscout/internal/registry"
	"github.com/jonesrussell/leadscout/internal/worker"
)

var (
	// ErrOffline means the connectivity probe failed and strict mode
	// refused to start a run that would burn quota on dead sockets.
	ErrOffline = errors.New("orchestrator: no network connectivity")

	// ErrNoScrapers means selection produced nothing even after
	// emergency expansion.
	ErrNoScrapers = errors.New("orchestrator: no eligible scrapers")

	// ErrEmptyQuery rejects a request with a blank query.
	ErrEmptyQuery = errors.New("orchestrator: empty query")
)

// graceFactor stretches the batch timeout into the detached deadline
// abandoned units run under while filling the cache.
const graceFactor = 3

// Request describes one discovery run.
type Request struct {
	Query       string
	Location    string
	Category    string
	WindowHours int
	Tier        int
	Strict      bool

	// Interactive runs return early on fewer strong hits than
	// aggregate (scheduled) runs.
	Interactive bool
}

// Outcome summarizes a run: the aggregated signals plus counters the
// caller logs and exports.
type Outcome struct {
	Signals     []domain.Signal
	WindowHours int
	Attempted   int
	FromCache   int
	Failures    int
	EarlyReturn bool
}

// Orchestrator coordinates plugin selection, fan-out, caching, and
// early return for discovery runs.
type Orchestrator struct {
	logger   logger.Interface
	registry *registry.Registry
	pool     *worker.Pool
	cache    *resultCache
	prober   Prober
	intent   *ranking.IntentScorer
	metrics  *metrics.Metrics
	cfg      config.DiscoveryConfig
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithProber overrides the connectivity prober.
func WithProber(p Prober) Option {
	return func(o *Orchestrator) { o.prober = p }
}

// WithMetrics enables metrics export for cache hits.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// New creates an orchestrator backed by the given registry and pool.
func New(log logger.Interface, reg *registry.Registry, pool *worker.Pool, cfg config.DiscoveryConfig, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		logger:   log,
		registry: reg,
		pool:     pool,
		cache:    newResultCache(cfg.CacheTTL),
		prober:   NewDialProber(),
		intent:   ranking.NewIntentScorer(),
		cfg:      cfg,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Discover runs one discovery pass: tier 1 plugins first under the
// short timeout, then tier 2 under the long one, returning early once
// enough strong-intent signals have arrived.
func (o *Orchestrator) Discover(ctx context.Context, req Request) (Outcome, error) {
	passes := ExpandQuery(req.Query)
	if len(passes) == 0 {
		return Outcome{}, ErrEmptyQuery
	}

	o.cache.prune()

	strict := req.Strict || o.cfg.Strict
	if !o.prober.Online(ctx) {
		if strict {
			return Outcome{}, ErrOffline
		}
		o.logger.Warn("Connectivity probe failed, proceeding anyway",
			logger.String("query", req.Query),
		)
	}

	plugins, err := o.selectPlugins(req)
	if err != nil {
		return Outcome{}, err
	}

	var tier1, tier2 []domain.ScraperDescriptor
	for _, desc := range plugins {
		if desc.Tier <= 1 {
			tier1 = append(tier1, desc)
		} else {
			tier2 = append(tier2, desc)
		}
	}

	earlyTarget := o.cfg.AggregateEarlyHit
	if req.Interactive {
		earlyTarget = o.cfg.InteractiveEarlyHit
	}

	run := &runState{
		outcome:     Outcome{WindowHours: req.WindowHours},
		earlyTarget: earlyTarget,
		seen:        make(map[string]struct{}),
	}

	o.runBatch(ctx, run, tier1, passes, req.WindowHours, o.cfg.Tier1Timeout)
	if !run.outcome.EarlyReturn {
		o.runBatch(ctx, run, tier2, passes, req.WindowHours, o.cfg.Tier2Timeout)
	}

	if strict && len(run.outcome.Signals) == 0 {
		// Zero results under strict mode widens recall for the retries
		// that follow (escalated windows, the next scheduled run). The
		// enables carry a TTL and expire on their own.
		if expanded := o.registry.EmergencyExpand(req.Category); len(expanded) > 0 {
			o.logger.Warn("Strict run found nothing, emergency expansion applied",
				logger.String("query", req.Query),
				logger.Strings("scrapers", expanded),
			)
		}
	}

	o.logger.Info("Discovery run complete",
		logger.String("query", req.Query),
		logger.Int("signals", len(run.outcome.Signals)),
		logger.Int("attempted", run.outcome.Attempted),
		logger.Int("from_cache", run.outcome.FromCache),
		logger.Int("failures", run.outcome.Failures),
		logger.Bool("early_return", run.outcome.EarlyReturn),
	)

	return run.outcome, nil
}

// DiscoverEscalating widens the time window step by step until a pass
// yields signals. The returned outcome carries the window that
// produced it.
func (o *Orchestrator) DiscoverEscalating(ctx context.Context, req Request) (Outcome, error) {
	windows := []int{req.WindowHours}
	for _, w := range o.cfg.EscalationWindows {
		if w > req.WindowHours {
			windows = append(windows, w)
		}
	}

	var last Outcome
	for i, window := range windows {
		req.WindowHours = window
		outcome, err := o.Discover(ctx, req)
		if err != nil {
			return outcome, err
		}
		if len(outcome.Signals) > 0 {
			if i > 0 {
				o.logger.Info("Escalated window produced signals",
					logger.String("query", req.Query),
					logger.Int("window_hours", window),
				)
			}
			return outcome, nil
		}
		last = outcome
	}

	return last, nil
}

// selectPlugins asks the registry for the active set and falls back to
// emergency expansion when selection comes back empty.
func (o *Orchestrator) selectPlugins(req Request) ([]domain.ScraperDescriptor, error) {
	sel := registry.Selection{
		Category:    req.Category,
		WindowHours: req.WindowHours,
		Tier:        req.Tier,
	}

	plugins := o.registry.ActivePlugins(sel)
	if len(plugins) == 0 {
		if expanded := o.registry.EmergencyExpand(req.Category); len(expanded) > 0 {
			o.logger.Warn("Active set empty, emergency expansion applied",
				logger.Strings("scrapers", expanded),
			)
			plugins = o.registry.ActivePlugins(sel)
		}
	}
	if len(plugins) == 0 {
		return nil, ErrNoScrapers
	}

	return plugins, nil
}

// unitResult is one (plugin, query) execution's output.
type unitResult struct {
	scraper string
	signals []domain.Signal
	err     error
}

// runState accumulates a run across both tier batches.
type runState struct {
	outcome     Outcome
	earlyTarget int
	strongHits  int

	// seen guards against re-counting a URL the cache and a live run
	// both returned within the same pass.
	seen map[string]struct{}
}

// satisfied reports whether the early-return target has been met.
func (r *runState) satisfied() bool {
	return r.earlyTarget > 0 && r.strongHits >= r.earlyTarget
}

// runBatch executes one tier's passes in order under the batch timeout,
// fanning each pass's (plugin, query) units out on the pool and
// collecting them before the next pass dispatches. Units that outlive
// the timeout keep running detached and write to the cache; the batch
// just stops waiting for them.
func (o *Orchestrator) runBatch(ctx context.Context, run *runState, batch []domain.ScraperDescriptor, passes []QueryPass, windowHours int, timeout time.Duration) {
	if len(batch) == 0 {
		return
	}

	batchCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// Detached units get a longer leash than the batch, but not an
	// unbounded one.
	graceCtx, graceCancel := context.WithTimeout(context.WithoutCancel(ctx), graceFactor*timeout)

	variants := 0
	for _, pass := range passes {
		variants += len(pass.Variants)
	}
	results := make(chan unitResult, len(batch)*variants)

	for _, pass := range passes {
		pending := 0

		for _, desc := range batch {
			sc, err := o.registry.ScraperFor(desc.Name)
			if err != nil {
				o.logger.Error("Selected scraper missing from registry", logger.Error(err))
				continue
			}

			for _, query := range pass.Variants {
				run.outcome.Attempted++

				key := cacheKey(desc.Name, query, windowHours)
				if cached, ok := o.cache.get(key); ok {
					run.outcome.FromCache++
					if o.metrics != nil {
						o.metrics.CacheHits.Inc()
					}
					o.absorb(run, cached)
					if run.satisfied() {
						run.outcome.EarlyReturn = true
						graceCancel()
						return
					}
					continue
				}

				if err := o.registry.ConsumeQuota(ctx, desc.Name); err != nil {
					if errors.Is(err, registry.ErrQuotaExceeded) {
						o.logger.Warn("Daily quota exhausted, skipping scraper",
							logger.String("scraper", desc.Name),
						)
						continue
					}
					o.logger.Error("Quota check failed", logger.Error(err))
					continue
				}

				name, q := desc.Name, query
				err := o.pool.Detach(batchCtx, graceCtx, func(unitCtx context.Context) {
					started := time.Now()
					signals, scrapeErr := sc.Scrape(unitCtx, q, windowHours)
					latency := time.Since(started)

					o.registry.RecordRun(name, len(signals), latency, scrapeErr != nil)
					if scrapeErr == nil {
						// Late finishers still land here for the next run.
						o.cache.put(cacheKey(name, q, windowHours), signals)
					}

					// Buffered to capacity; never blocks a late unit.
					results <- unitResult{scraper: name, signals: signals, err: scrapeErr}
				})
				if err != nil {
					// Batch deadline hit while waiting for a pool slot.
					break
				}
				pending++
			}
		}

		// One failed plugin never sinks the pass; its error is recorded
		// against it alone.
		for pending > 0 {
			select {
			case res := <-results:
				pending--
				if res.err != nil {
					run.outcome.Failures++
					o.logger.Warn("Scraper run failed",
						logger.String("scraper", res.scraper),
						logger.Error(res.err),
					)
					continue
				}
				o.absorb(run, res.signals)
				if run.satisfied() {
					run.outcome.EarlyReturn = true
					graceCancel()
					return
				}
			case <-batchCtx.Done():
				o.logger.Warn("Batch timeout, abandoning slow units",
					logger.Int("abandoned", pending),
					logger.Duration("timeout", timeout),
				)
				// graceCancel deliberately not called: abandoned units run
				// on under graceCtx to fill the cache, then it expires.
				return
			}
		}
	}

	graceCancel()
}

// absorb merges a unit's signals into the run, counting strong-intent
// hits for early return.
func (o *Orchestrator) absorb(run *runState, signals []domain.Signal) {
	for _, sig := range signals {
		if sig.URL != "" {
			if _, dup := run.seen[sig.URL]; dup {
				continue
			}
			run.seen[sig.URL] = struct{}{}
		}
		run.outcome.Signals = append(run.outcome.Signals, sig)
		if o.intent.Score(sig.Text) >= o.cfg.MinIntentThreshold {
			run.strongHits++
		}
	}
}
