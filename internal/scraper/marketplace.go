package scraper

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonesrussell/leadscout/internal/domain"
)

const (
	defaultRequestTimeout = 10 * time.Second
	marketplaceUserAgent  = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// Marketplace scrapes a classifieds-style marketplace search page. It is
// an API/HTML tier 1 plugin: a single HTTP GET per query variant, parsed
// with goquery selectors.
type Marketplace struct {
	name     string
	baseURL  string
	source   string
	client   *http.Client
	selector MarketplaceSelectors
}

// MarketplaceSelectors holds the CSS selectors for one marketplace
// layout.
type MarketplaceSelectors struct {
	Item     string
	Text     string
	Link     string
	Location string
	Phone    string
}

// DefaultMarketplaceSelectors matches the common listing-card layout.
func DefaultMarketplaceSelectors() MarketplaceSelectors {
	return MarketplaceSelectors{
		Item:     "div.listing-card",
		Text:     ".listing-title, .listing-description",
		Link:     "a.listing-link",
		Location: ".listing-location",
		Phone:    ".listing-phone",
	}
}

// NewMarketplace creates a marketplace plugin for the given site.
func NewMarketplace(name, baseURL, source string, selectors MarketplaceSelectors) *Marketplace {
	return &Marketplace{
		name:     name,
		baseURL:  baseURL,
		source:   source,
		client:   &http.Client{Timeout: defaultRequestTimeout},
		selector: selectors,
	}
}

// Name returns the plugin name.
func (m *Marketplace) Name() string {
	return m.name
}

// Scrape fetches and parses the marketplace search results page.
func (m *Marketplace) Scrape(ctx context.Context, query string, windowHours int) ([]domain.Signal, error) {
	searchURL := fmt.Sprintf("%s?q=%s&since=%dh", m.baseURL, url.QueryEscape(query), windowHours)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, http.NoBody)
	if err != nil {
		return nil, NewPluginError(m.name, fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("User-Agent", marketplaceUserAgent)

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, NewPluginError(m.name, fmt.Errorf("fetch search page: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, NewPluginError(m.name, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, NewPluginError(m.name, fmt.Errorf("parse search page: %w", err))
	}

	now := time.Now()
	var signals []domain.Signal

	doc.Find(m.selector.Item).Each(func(_ int, sel *goquery.Selection) {
		text := strings.TrimSpace(sel.Find(m.selector.Text).Text())
		if text == "" {
			return
		}

		href, _ := sel.Find(m.selector.Link).Attr("href")
		signals = append(signals, domain.Signal{
			Source:       m.source,
			Text:         text,
			URL:          m.absoluteURL(href),
			ContactPhone: strings.TrimSpace(sel.Find(m.selector.Phone).Text()),
			Location:     strings.TrimSpace(sel.Find(m.selector.Location).Text()),
			CapturedAt:   now,
			ScraperName:  m.name,
		})
	})

	return signals, nil
}

// absoluteURL resolves a possibly relative listing link against the base
// URL.
func (m *Marketplace) absoluteURL(href string) string {
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	base, err := url.Parse(m.baseURL)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}
