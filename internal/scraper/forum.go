package scraper

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	colly "github.com/gocolly/colly/v2"

	"github.com/jonesrussell/leadscout/internal/domain"
)

const (
	forumMaxDepth    = 2
	forumParallelism = 2
	forumRandomDelay = 500 * time.Millisecond
)

// Forum crawls a discussion-board search and collects posts that look
// like buyer requests. Browser-weight tier 2 plugin built on colly.
type Forum struct {
	name           string
	searchURL      string
	source         string
	allowedDomains []string
	postSelector   string
	linkSelector   string
}

// NewForum creates a forum plugin crawling the given search endpoint.
func NewForum(name, searchURL, source string, allowedDomains []string) *Forum {
	return &Forum{
		name:           name,
		searchURL:      searchURL,
		source:         source,
		allowedDomains: allowedDomains,
		postSelector:   "div.post-content",
		linkSelector:   "a.thread-link",
	}
}

// Name returns the plugin name.
func (f *Forum) Name() string {
	return f.name
}

// Scrape runs a shallow crawl from the search results page, following
// thread links one level deep and extracting post bodies.
func (f *Forum) Scrape(ctx context.Context, query string, windowHours int) ([]domain.Signal, error) {
	opts := []colly.CollectorOption{
		colly.StdlibContext(ctx),
		colly.MaxDepth(forumMaxDepth),
		colly.Async(true),
	}
	if len(f.allowedDomains) > 0 {
		opts = append(opts, colly.AllowedDomains(f.allowedDomains...))
	}

	c := colly.NewCollector(opts...)
	if err := c.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: forumParallelism,
		RandomDelay: forumRandomDelay,
	}); err != nil {
		return nil, NewPluginError(f.name, fmt.Errorf("set limit rule: %w", err))
	}

	now := time.Now()
	var mu sync.Mutex
	var signals []domain.Signal
	var crawlErr error

	c.OnHTML(f.linkSelector, func(e *colly.HTMLElement) {
		link := e.Request.AbsoluteURL(e.Attr("href"))
		if link != "" {
			_ = e.Request.Visit(link)
		}
	})

	c.OnHTML(f.postSelector, func(e *colly.HTMLElement) {
		text := strings.TrimSpace(e.Text)
		if text == "" {
			return
		}

		mu.Lock()
		signals = append(signals, domain.Signal{
			Source:      f.source,
			Text:        text,
			URL:         e.Request.URL.String(),
			CapturedAt:  now,
			ScraperName: f.name,
		})
		mu.Unlock()
	})

	c.OnError(func(_ *colly.Response, err error) {
		mu.Lock()
		if crawlErr == nil {
			crawlErr = err
		}
		mu.Unlock()
	})

	start := fmt.Sprintf("%s?q=%s&within=%dh", f.searchURL, url.QueryEscape(query), windowHours)
	if err := c.Visit(start); err != nil {
		return nil, NewPluginError(f.name, fmt.Errorf("visit search page: %w", err))
	}

	c.Wait()

	if len(signals) == 0 && crawlErr != nil {
		return nil, NewPluginError(f.name, crawlErr)
	}

	return signals, nil
}
