package registry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/leadscout/internal/domain"
	"github.com/jonesrussell/leadscout/internal/logger"
	"github.com/jonesrussell/leadscout/internal/registry"
)

type stubScraper struct {
	name string
}

func (s stubScraper) Name() string { return s.name }

func (s stubScraper) Scrape(context.Context, string, int) ([]domain.Signal, error) {
	return nil, nil
}

func newTestRegistry(opts ...registry.Option) *registry.Registry {
	return registry.New(logger.NewNop(), registry.NopQuotaCounter{}, opts...)
}

func register(r *registry.Registry, name string, desc domain.ScraperDescriptor) {
	r.Register(stubScraper{name: name}, desc)
}

func TestCoreScraperCannotBeDisabled(t *testing.T) {
	r := newTestRegistry()
	register(r, "core-a", domain.ScraperDescriptor{IsCore: true, Mode: domain.ModeProduction})

	err := r.Toggle(context.Background(), "core-a", false, 0, "test")
	require.ErrorIs(t, err, registry.ErrCoreScraperProtected)

	active := r.ActivePlugins(registry.Selection{})
	require.Len(t, active, 1)
	assert.True(t, active[0].Enabled)
}

func TestCoreRegisteredEnabledEvenWhenFlaggedOff(t *testing.T) {
	r := newTestRegistry()
	register(r, "core-a", domain.ScraperDescriptor{IsCore: true, Enabled: false, Mode: domain.ModeProduction})

	active := r.ActivePlugins(registry.Selection{})
	require.Len(t, active, 1)
}

func TestAutoDisableAfterConsecutiveFailures(t *testing.T) {
	r := newTestRegistry()
	register(r, "flaky", domain.ScraperDescriptor{Enabled: true, Mode: domain.ModeProduction, Tier: 1})

	r.RecordRun("flaky", 0, time.Second, true)
	r.RecordRun("flaky", 0, time.Second, true)
	assert.Len(t, r.ActivePlugins(registry.Selection{}), 1, "two failures must not disable")

	r.RecordRun("flaky", 0, time.Second, true)
	assert.Empty(t, r.ActivePlugins(registry.Selection{}), "third consecutive failure disables")

	m, err := r.CheckHealth("flaky")
	require.NoError(t, err)
	assert.True(t, m.AutoDisabled)
	assert.Equal(t, 3, m.ConsecutiveFailures)
}

func TestSuccessResetsFailureStreak(t *testing.T) {
	r := newTestRegistry()
	register(r, "flaky", domain.ScraperDescriptor{Enabled: true, Mode: domain.ModeProduction, Tier: 1})

	r.RecordRun("flaky", 0, time.Second, true)
	r.RecordRun("flaky", 0, time.Second, true)
	r.RecordRun("flaky", 3, time.Second, false)
	r.RecordRun("flaky", 0, time.Second, true)
	r.RecordRun("flaky", 0, time.Second, true)

	assert.Len(t, r.ActivePlugins(registry.Selection{}), 1,
		"streak must reset on success, not accumulate across it")
}

func TestOneSuccessDoesNotReviveAutoDisabled(t *testing.T) {
	r := newTestRegistry()
	register(r, "flaky", domain.ScraperDescriptor{Enabled: true, Mode: domain.ModeProduction, Tier: 1})

	for range 3 {
		r.RecordRun("flaky", 0, time.Second, true)
	}
	require.Empty(t, r.ActivePlugins(registry.Selection{}))

	// A run that somehow still happened (e.g. was in flight) succeeds;
	// the plugin stays disabled until revival criteria are met.
	r.RecordRun("flaky", 2, time.Second, false)
	assert.Empty(t, r.ActivePlugins(registry.Selection{}))
}

func TestTTLEnableExpires(t *testing.T) {
	r := newTestRegistry()
	register(r, "temp", domain.ScraperDescriptor{Enabled: false, Mode: domain.ModeProduction, Tier: 1})

	require.NoError(t, r.Toggle(context.Background(), "temp", true, 10*time.Millisecond, "test"))
	assert.Len(t, r.ActivePlugins(registry.Selection{}), 1)

	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, r.ActivePlugins(registry.Selection{}),
		"TTL enable must revert without external intervention")
}

func TestPermanentEnableDoesNotExpire(t *testing.T) {
	r := newTestRegistry()
	register(r, "perm", domain.ScraperDescriptor{Enabled: false, Mode: domain.ModeProduction, Tier: 1})

	require.NoError(t, r.Toggle(context.Background(), "perm", true, 0, "test"))
	r.RefreshStates()
	assert.Len(t, r.ActivePlugins(registry.Selection{}), 1)
}

func TestReviveEligible(t *testing.T) {
	r := newTestRegistry()
	register(r, "earned", domain.ScraperDescriptor{Enabled: true, Mode: domain.ModeProduction, Tier: 1})
	register(r, "hopeless", domain.ScraperDescriptor{Enabled: true, Mode: domain.ModeProduction, Tier: 1})

	// "earned" builds history: 10 good runs with leads, then a bad
	// streak disables it. Failure rate 3/13 stays under the bar.
	for range 10 {
		r.RecordRun("earned", 2, time.Second, false)
	}
	for range 3 {
		r.RecordRun("earned", 0, time.Second, true)
	}

	// "hopeless" fails every run.
	for range 3 {
		r.RecordRun("hopeless", 0, time.Second, true)
	}

	require.Empty(t, r.ActivePlugins(registry.Selection{}))

	revived := r.ReviveEligible()
	assert.Equal(t, []string{"earned"}, revived)
	assert.Len(t, r.ActivePlugins(registry.Selection{}), 1)
}

func TestEmergencyExpand(t *testing.T) {
	r := newTestRegistry(registry.WithEmergencyTTL(time.Hour))
	register(r, "proven", domain.ScraperDescriptor{Enabled: true, Mode: domain.ModeProduction, Tier: 1})
	register(r, "barren", domain.ScraperDescriptor{Enabled: true, Mode: domain.ModeProduction, Tier: 1})

	// Both get disabled, but only "proven" ever produced leads.
	r.RecordRun("proven", 8, time.Second, false)
	for range 3 {
		r.RecordRun("proven", 0, time.Second, true)
	}
	for range 3 {
		r.RecordRun("barren", 0, time.Second, true)
	}
	require.Empty(t, r.ActivePlugins(registry.Selection{}))

	expanded := r.EmergencyExpand("")
	assert.Equal(t, []string{"proven"}, expanded)

	active := r.ActivePlugins(registry.Selection{})
	require.Len(t, active, 1)
	require.NotNil(t, active[0].EnabledUntil, "emergency enables must carry a TTL")
}

func TestSelectionFilters(t *testing.T) {
	r := newTestRegistry()
	register(r, "fast", domain.ScraperDescriptor{Enabled: true, Mode: domain.ModeProduction, Tier: 1})
	register(r, "slow", domain.ScraperDescriptor{Enabled: true, Mode: domain.ModeProduction, Tier: 2})
	register(r, "autos-only", domain.ScraperDescriptor{
		Enabled: true, Mode: domain.ModeProduction, Tier: 1,
		Categories: []string{"automotive"},
	})
	register(r, "fresh-only", domain.ScraperDescriptor{
		Enabled: true, Mode: domain.ModeProduction, Tier: 1,
		MaxWindowHours: 24,
	})

	names := func(sel registry.Selection) []string {
		var out []string
		for _, d := range r.ActivePlugins(sel) {
			out = append(out, d.Name)
		}
		return out
	}

	assert.ElementsMatch(t, []string{"fast", "autos-only", "fresh-only"},
		names(registry.Selection{Tier: 1}))
	assert.ElementsMatch(t, []string{"fast", "slow", "autos-only", "fresh-only"},
		names(registry.Selection{}))
	assert.ElementsMatch(t, []string{"fast", "fresh-only"},
		names(registry.Selection{Tier: 1, Category: "electronics"}))
	assert.ElementsMatch(t, []string{"fast", "autos-only"},
		names(registry.Selection{Tier: 1, WindowHours: 48}))
}

func TestActivePluginsSortedByPriority(t *testing.T) {
	r := newTestRegistry()
	register(r, "reliable", domain.ScraperDescriptor{Enabled: true, Mode: domain.ModeProduction, Tier: 1})
	register(r, "mediocre", domain.ScraperDescriptor{Enabled: true, Mode: domain.ModeProduction, Tier: 1})

	for range 10 {
		r.RecordRun("reliable", 5, time.Second, false)
	}
	for i := range 10 {
		r.RecordRun("mediocre", 1, time.Second, i%2 == 0)
	}

	active := r.ActivePlugins(registry.Selection{})
	require.Len(t, active, 2)
	assert.Equal(t, "reliable", active[0].Name)
}

func TestSandboxSelectableOnlyWhenEnabled(t *testing.T) {
	r := newTestRegistry()
	register(r, "canary", domain.ScraperDescriptor{Enabled: false, Mode: domain.ModeSandbox, Tier: 1})

	assert.Empty(t, r.ActivePlugins(registry.Selection{}))

	require.NoError(t, r.Toggle(context.Background(), "canary", true, 0, "test"))
	assert.Len(t, r.ActivePlugins(registry.Selection{}), 1)
}

type denyingQuota struct{}

func (denyingQuota) Consume(context.Context, string, int) (bool, error)  { return false, nil }
func (denyingQuota) Exceeded(context.Context, string, int) (bool, error) { return true, nil }

func TestPaidQuota(t *testing.T) {
	r := registry.New(logger.NewNop(), denyingQuota{},
		registry.WithPaidQuota(map[string]int{"paid": 5}),
	)
	register(r, "paid", domain.ScraperDescriptor{
		Enabled: false, Mode: domain.ModeProduction, Tier: 1, Cost: domain.CostPaid,
	})

	err := r.Toggle(context.Background(), "paid", true, 0, "test")
	assert.ErrorIs(t, err, registry.ErrQuotaExceeded)

	err = r.ConsumeQuota(context.Background(), "paid")
	assert.ErrorIs(t, err, registry.ErrQuotaExceeded)
}

func TestConsumeQuotaFreePluginAlwaysPasses(t *testing.T) {
	r := registry.New(logger.NewNop(), denyingQuota{})
	register(r, "free", domain.ScraperDescriptor{Enabled: true, Mode: domain.ModeProduction, Tier: 1})

	assert.NoError(t, r.ConsumeQuota(context.Background(), "free"))
}

func TestUnknownScraper(t *testing.T) {
	r := newTestRegistry()

	_, err := r.ScraperFor("ghost")
	assert.ErrorIs(t, err, registry.ErrUnknownScraper)

	err = r.Toggle(context.Background(), "ghost", true, 0, "test")
	assert.True(t, errors.Is(err, registry.ErrUnknownScraper))
}
