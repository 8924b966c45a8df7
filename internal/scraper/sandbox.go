package scraper

import (
	"context"
	"fmt"
	"time"

	"github.com/jonesrussell/leadscout/internal/domain"
)

// Sandbox is a canary plugin that returns deterministic signals without
// touching the network. Registered in sandbox mode so it is always
// selected, which keeps the pipeline observable end to end even when
// every production plugin is down.
type Sandbox struct {
	name string
}

// NewSandbox creates a sandbox canary plugin.
func NewSandbox(name string) *Sandbox {
	return &Sandbox{name: name}
}

// Name returns the plugin name.
func (s *Sandbox) Name() string {
	return s.name
}

// Scrape returns one synthetic signal echoing the query.
func (s *Sandbox) Scrape(_ context.Context, query string, _ int) ([]domain.Signal, error) {
	return []domain.Signal{
		{
			Source:      "sandbox",
			Text:        fmt.Sprintf("canary: looking to buy %s", query),
			URL:         fmt.Sprintf("https://sandbox.invalid/%s", query),
			CapturedAt:  time.Now(),
			ScraperName: s.name,
		},
	}, nil
}
