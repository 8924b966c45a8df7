package scraper

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/jonesrussell/leadscout/internal/domain"
)

// RateLimited wraps a scraper with a token-bucket limiter so one plugin
// cannot hammer its upstream regardless of how many agent runs are in
// flight.
type RateLimited struct {
	inner   Scraper
	limiter *rate.Limiter
}

// NewRateLimited wraps s with a limiter allowing one call per
// minInterval, with a burst of one.
func NewRateLimited(s Scraper, minInterval time.Duration) *RateLimited {
	return &RateLimited{
		inner:   s,
		limiter: rate.NewLimiter(rate.Every(minInterval), 1),
	}
}

// Name returns the wrapped plugin's name.
func (r *RateLimited) Name() string {
	return r.inner.Name()
}

// Scrape waits for the limiter before delegating. The wait respects ctx
// cancellation.
func (r *RateLimited) Scrape(ctx context.Context, query string, windowHours int) ([]domain.Signal, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, NewPluginError(r.inner.Name(), err)
	}
	return r.inner.Scrape(ctx, query, windowHours)
}
