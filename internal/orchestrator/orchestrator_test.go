package orchestrator_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/leadscout/internal/config"
	"github.com/jonesrussell/leadscout/internal/domain"
	"github.com/jonesrussell/leadscout/internal/logger"
	"github.com/jonesrussell/leadscout/internal/orchestrator"
	"github.com/jonesrussell/leadscout/internal/registry"
	"github.com/jonesrussell/leadscout/internal/worker"
)

type stubProber bool

func (p stubProber) Online(context.Context) bool { return bool(p) }

// fakeScraper is configurable per test: fixed signals, an error, a
// delay, or window-dependent results.
type fakeScraper struct {
	name      string
	signals   []domain.Signal
	err       error
	delay     time.Duration
	minWindow int
	calls     atomic.Int64

	mu      sync.Mutex
	queries []string
}

func (f *fakeScraper) Name() string { return f.name }

func (f *fakeScraper) Scrape(ctx context.Context, query string, windowHours int) ([]domain.Signal, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.queries = append(f.queries, query)
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	if f.minWindow > 0 && windowHours < f.minWindow {
		return nil, nil
	}
	return f.signals, nil
}

func (f *fakeScraper) seenQueries() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.queries...)
}

func testConfig() config.DiscoveryConfig {
	return config.DiscoveryConfig{
		WorkerPoolSize:      4,
		CacheTTL:            time.Minute,
		Tier1Timeout:        200 * time.Millisecond,
		Tier2Timeout:        400 * time.Millisecond,
		MinIntentThreshold:  0.8,
		InteractiveEarlyHit: 2,
		AggregateEarlyHit:   5,
		EscalationWindows:   []int{6, 24},
	}
}

func newOrchestrator(t *testing.T, cfg config.DiscoveryConfig, scrapers ...*fakeScraper) *orchestrator.Orchestrator {
	t.Helper()

	reg := registry.New(logger.NewNop(), registry.NopQuotaCounter{})
	for _, s := range scrapers {
		reg.Register(s, domain.ScraperDescriptor{
			Enabled: true,
			Mode:    domain.ModeProduction,
			Tier:    1,
		})
	}

	pool := worker.NewPool(logger.NewNop(), cfg.WorkerPoolSize)
	return orchestrator.New(logger.NewNop(), reg, pool, cfg,
		orchestrator.WithProber(stubProber(true)),
	)
}

func sig(url, text string) domain.Signal {
	return domain.Signal{URL: url, Text: text, Source: "marketplace"}
}

func TestDiscoverAggregatesAcrossPlugins(t *testing.T) {
	a := &fakeScraper{name: "a", signals: []domain.Signal{sig("https://a/1", "selling bricks")}}
	b := &fakeScraper{name: "b", signals: []domain.Signal{sig("https://b/1", "old sofa for sale")}}

	o := newOrchestrator(t, testConfig(), a, b)

	outcome, err := o.Discover(context.Background(), orchestrator.Request{Query: "bricks", WindowHours: 2})
	require.NoError(t, err)

	assert.Len(t, outcome.Signals, 2)
	assert.Zero(t, outcome.Failures)
	assert.False(t, outcome.EarlyReturn)
}

func TestDiscoverEmptyQuery(t *testing.T) {
	o := newOrchestrator(t, testConfig(), &fakeScraper{name: "a"})

	_, err := o.Discover(context.Background(), orchestrator.Request{Query: "   "})
	assert.ErrorIs(t, err, orchestrator.ErrEmptyQuery)
}

func TestDiscoverNoScrapers(t *testing.T) {
	o := newOrchestrator(t, testConfig())

	_, err := o.Discover(context.Background(), orchestrator.Request{Query: "bricks", WindowHours: 2})
	assert.ErrorIs(t, err, orchestrator.ErrNoScrapers)
}

func TestDiscoverOfflineStrictFails(t *testing.T) {
	cfg := testConfig()
	reg := registry.New(logger.NewNop(), registry.NopQuotaCounter{})
	reg.Register(&fakeScraper{name: "a"}, domain.ScraperDescriptor{
		Enabled: true, Mode: domain.ModeProduction, Tier: 1,
	})
	pool := worker.NewPool(logger.NewNop(), 2)
	o := orchestrator.New(logger.NewNop(), reg, pool, cfg,
		orchestrator.WithProber(stubProber(false)),
	)

	_, err := o.Discover(context.Background(), orchestrator.Request{
		Query: "bricks", WindowHours: 2, Strict: true,
	})
	assert.ErrorIs(t, err, orchestrator.ErrOffline)

	// Without strict the run proceeds and lets the plugins fail on
	// their own terms.
	outcome, err := o.Discover(context.Background(), orchestrator.Request{
		Query: "bricks", WindowHours: 2,
	})
	require.NoError(t, err)
	assert.NotNil(t, outcome)
}

func TestDiscoverFailureIsolation(t *testing.T) {
	good := &fakeScraper{name: "good", signals: []domain.Signal{sig("https://g/1", "selling bricks")}}
	bad := &fakeScraper{name: "bad", err: errors.New("selector drift")}

	o := newOrchestrator(t, testConfig(), good, bad)

	outcome, err := o.Discover(context.Background(), orchestrator.Request{Query: "bricks", WindowHours: 2})
	require.NoError(t, err, "one failing plugin must not sink the run")

	assert.Len(t, outcome.Signals, 1)
	assert.Positive(t, outcome.Failures)
}

func TestDiscoverEarlyReturnInteractive(t *testing.T) {
	strong := &fakeScraper{name: "strong", signals: []domain.Signal{
		sig("https://s/1", "looking for bricks in bulk"),
		sig("https://s/2", "looking for a brick supplier"),
	}}

	o := newOrchestrator(t, testConfig(), strong)

	outcome, err := o.Discover(context.Background(), orchestrator.Request{
		Query: "bricks", WindowHours: 2, Interactive: true,
	})
	require.NoError(t, err)

	assert.True(t, outcome.EarlyReturn, "two strong-intent hits satisfy the interactive target")
	assert.Len(t, outcome.Signals, 2)
}

func TestDiscoverNoEarlyReturnOnWeakSignals(t *testing.T) {
	weak := &fakeScraper{name: "weak", signals: []domain.Signal{
		sig("https://w/1", "thinking about bricks eventually"),
		sig("https://w/2", "nice brick wall photos"),
	}}

	o := newOrchestrator(t, testConfig(), weak)

	outcome, err := o.Discover(context.Background(), orchestrator.Request{
		Query: "bricks", WindowHours: 2, Interactive: true,
	})
	require.NoError(t, err)
	assert.False(t, outcome.EarlyReturn)
}

func TestDiscoverTimeoutAbandonsSlowPlugin(t *testing.T) {
	cfg := testConfig()
	cfg.Tier1Timeout = 80 * time.Millisecond
	// Enough slots that no unit queues behind a slow one.
	cfg.WorkerPoolSize = 8

	fast := &fakeScraper{name: "fast", signals: []domain.Signal{sig("https://f/1", "selling bricks")}}
	slow := &fakeScraper{name: "slow", delay: 2 * time.Second, signals: []domain.Signal{sig("https://s/1", "x")}}

	o := newOrchestrator(t, cfg, fast, slow)

	started := time.Now()
	outcome, err := o.Discover(context.Background(), orchestrator.Request{Query: "bricks", WindowHours: 2})
	require.NoError(t, err)

	assert.Less(t, time.Since(started), time.Second, "run must not wait out the slow plugin")
	assert.Len(t, outcome.Signals, 1)
}

func TestDiscoverCachesResults(t *testing.T) {
	s := &fakeScraper{name: "a", signals: []domain.Signal{sig("https://a/1", "selling bricks")}}
	o := newOrchestrator(t, testConfig(), s)

	req := orchestrator.Request{Query: "bricks", WindowHours: 2}

	first, err := o.Discover(context.Background(), req)
	require.NoError(t, err)
	assert.Zero(t, first.FromCache)
	callsAfterFirst := s.calls.Load()

	second, err := o.Discover(context.Background(), req)
	require.NoError(t, err)
	assert.Positive(t, second.FromCache)
	assert.Equal(t, callsAfterFirst, s.calls.Load(), "cached units must not re-scrape")
	assert.Len(t, second.Signals, 1)
}

func TestDiscoverCacheScopedByWindow(t *testing.T) {
	s := &fakeScraper{name: "a", signals: []domain.Signal{sig("https://a/1", "selling bricks")}}
	o := newOrchestrator(t, testConfig(), s)

	_, err := o.Discover(context.Background(), orchestrator.Request{Query: "bricks", WindowHours: 2})
	require.NoError(t, err)
	calls := s.calls.Load()

	outcome, err := o.Discover(context.Background(), orchestrator.Request{Query: "bricks", WindowHours: 24})
	require.NoError(t, err)
	assert.Zero(t, outcome.FromCache, "a wider window must not be served from a narrower one")
	assert.Greater(t, s.calls.Load(), calls)
}

func TestDiscoverEscalating(t *testing.T) {
	// Yields nothing inside short windows; the day-wide pass finds it.
	s := &fakeScraper{
		name:      "archive",
		minWindow: 24,
		signals:   []domain.Signal{sig("https://a/1", "looking for bricks")},
	}
	o := newOrchestrator(t, testConfig(), s)

	outcome, err := o.DiscoverEscalating(context.Background(), orchestrator.Request{
		Query: "bricks", WindowHours: 2,
	})
	require.NoError(t, err)

	assert.Equal(t, 24, outcome.WindowHours)
	assert.Len(t, outcome.Signals, 1)
}

func TestDiscoverEscalatingStopsAtFirstYield(t *testing.T) {
	s := &fakeScraper{name: "a", signals: []domain.Signal{sig("https://a/1", "selling bricks")}}
	o := newOrchestrator(t, testConfig(), s)

	outcome, err := o.DiscoverEscalating(context.Background(), orchestrator.Request{
		Query: "bricks", WindowHours: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, outcome.WindowHours, "no escalation when the first window yields")
}

func TestExpandQuery(t *testing.T) {
	passes := orchestrator.ExpandQuery("car tires")

	require.Len(t, passes, 3)
	assert.Equal(t, "direct", passes[0].Name)
	assert.Equal(t, "car tires", passes[0].Variants[0], "base query leads the first pass")
	assert.Contains(t, passes[0].Variants, "looking for car tires")
	assert.Equal(t, []string{"where can I buy car tires"}, passes[1].Variants)
	assert.Equal(t, []string{"car tires supplier"}, passes[2].Variants)

	// Queries already phrased with intent do not produce duplicates.
	seen := map[string]int{}
	for _, p := range orchestrator.ExpandQuery("looking for car tires") {
		for _, v := range p.Variants {
			seen[v]++
			assert.Equal(t, 1, seen[v], "variant %q duplicated", v)
		}
	}

	assert.Empty(t, orchestrator.ExpandQuery("  "))
}

func TestDiscoverPassOrderGatesLaterPhrasings(t *testing.T) {
	strong := &fakeScraper{name: "strong", signals: []domain.Signal{
		sig("https://s/1", "looking for bricks in bulk"),
		sig("https://s/2", "looking for a brick supplier"),
	}}

	o := newOrchestrator(t, testConfig(), strong)

	outcome, err := o.Discover(context.Background(), orchestrator.Request{
		Query: "bricks", WindowHours: 2, Interactive: true,
	})
	require.NoError(t, err)
	require.True(t, outcome.EarlyReturn)

	for _, q := range strong.seenQueries() {
		lower := strings.ToLower(q)
		assert.NotContains(t, lower, "supplier",
			"sourcing pass must not dispatch after the target is met")
		assert.NotContains(t, lower, "where can i buy",
			"conversational pass must not dispatch after the target is met")
	}
}

func TestDiscoverEarlyReturnFromCachedResults(t *testing.T) {
	strong := &fakeScraper{name: "strong", signals: []domain.Signal{
		sig("https://s/1", "looking for bricks in bulk"),
		sig("https://s/2", "looking for a brick supplier"),
	}}
	second := &fakeScraper{name: "second", signals: []domain.Signal{sig("https://t/1", "selling bricks")}}

	cfg := testConfig()
	reg := registry.New(logger.NewNop(), registry.NopQuotaCounter{})
	reg.Register(strong, domain.ScraperDescriptor{Enabled: true, Mode: domain.ModeProduction, Tier: 1})
	reg.Register(second, domain.ScraperDescriptor{Enabled: true, Mode: domain.ModeProduction, Tier: 2})
	pool := worker.NewPool(logger.NewNop(), cfg.WorkerPoolSize)
	o := orchestrator.New(logger.NewNop(), reg, pool, cfg,
		orchestrator.WithProber(stubProber(true)),
	)

	// Warm the tier-1 cache with an aggregate pass that cannot hit its
	// early target.
	_, err := o.Discover(context.Background(), orchestrator.Request{
		Query: "bricks", WindowHours: 2, Tier: 1,
	})
	require.NoError(t, err)

	outcome, err := o.Discover(context.Background(), orchestrator.Request{
		Query: "bricks", WindowHours: 2, Interactive: true,
	})
	require.NoError(t, err)

	assert.Positive(t, outcome.FromCache)
	assert.True(t, outcome.EarlyReturn, "cached strong hits satisfy the target")
	assert.Zero(t, second.calls.Load(), "tier 2 must not run after a cached early return")
}

func TestDiscoverStrictZeroResultsTriggersExpansion(t *testing.T) {
	barren := &fakeScraper{name: "barren"}
	fallback := &fakeScraper{name: "fallback", signals: []domain.Signal{
		sig("https://f/1", "looking for bricks"),
	}}

	cfg := testConfig()
	reg := registry.New(logger.NewNop(), registry.NopQuotaCounter{})
	reg.Register(barren, domain.ScraperDescriptor{Enabled: true, Mode: domain.ModeProduction, Tier: 1})
	reg.Register(fallback, domain.ScraperDescriptor{Enabled: false, Mode: domain.ModeProduction, Tier: 1})
	// Lead history qualifies the disabled plugin for emergency recall.
	reg.RecordRun("fallback", 6, time.Second, false)

	pool := worker.NewPool(logger.NewNop(), cfg.WorkerPoolSize)
	o := orchestrator.New(logger.NewNop(), reg, pool, cfg,
		orchestrator.WithProber(stubProber(true)),
	)

	outcome, err := o.DiscoverEscalating(context.Background(), orchestrator.Request{
		Query: "bricks", WindowHours: 2, Strict: true,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, outcome.Signals, "widened recall must reach the fallback plugin")
	assert.Positive(t, fallback.calls.Load())
	assert.Greater(t, outcome.WindowHours, 2)
}
