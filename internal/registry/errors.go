package registry

import "errors"

var (
	// ErrCoreScraperProtected is returned when a caller attempts to
	// disable a core plugin. The attempt is rejected, never applied.
	ErrCoreScraperProtected = errors.New("core scraper cannot be disabled")

	// ErrQuotaExceeded is returned when a paid plugin cannot run
	// because its quota is exhausted. The caller must proceed without
	// it.
	ErrQuotaExceeded = errors.New("paid scraper quota exceeded")

	// ErrUnknownScraper is returned for operations on a name that was
	// never registered.
	ErrUnknownScraper = errors.New("unknown scraper")
)
