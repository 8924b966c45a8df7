// Package scraper defines the scraper plugin interface and the built-in
// plugin implementations.
package scraper

import (
	"context"
	"fmt"

	"github.com/jonesrussell/leadscout/internal/domain"
)

// Scraper is the plugin contract. Given a query and a time window it
// returns raw buyer-intent signals or fails. Implementations are
// otherwise opaque to the pipeline.
type Scraper interface {
	// Name returns the plugin's registered name.
	Name() string

	// Scrape fetches signals for the query within the last windowHours.
	Scrape(ctx context.Context, query string, windowHours int) ([]domain.Signal, error)
}

// PluginError wraps a single plugin call failure. It is isolated and
// recorded; it never aborts a discovery batch.
type PluginError struct {
	Scraper string
	Err     error
}

func (e *PluginError) Error() string {
	return fmt.Sprintf("scraper %s: %v", e.Scraper, e.Err)
}

func (e *PluginError) Unwrap() error {
	return e.Err
}

// NewPluginError wraps err as a failure of the named plugin.
func NewPluginError(name string, err error) *PluginError {
	return &PluginError{Scraper: name, Err: err}
}
