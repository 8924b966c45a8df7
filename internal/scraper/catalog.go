package scraper

import (
	"time"

	"github.com/jonesrussell/leadscout/internal/config"
	"github.com/jonesrussell/leadscout/internal/domain"
)

// Plugin pairs a scraper implementation with its registry descriptor.
type Plugin struct {
	Scraper    Scraper
	Descriptor domain.ScraperDescriptor
}

// Catalog returns the built-in plugin set, rate-limited per config.
// Core plugins are the broad free sources a run can always fall back
// on; the paid API and the browser-heavy forums are optional.
func Catalog(cfg config.ScrapersConfig) []Plugin {
	plugins := []Plugin{
		{
			Scraper: NewMarketplace("jiji", "https://jiji.co.ke/search", "marketplace", MarketplaceSelectors{
				Item:     "div.b-list-advert__item-wrapper",
				Text:     "div.b-advert-title-inner",
				Link:     "a.b-list-advert-base",
				Location: "span.b-list-advert__region__text",
				Phone:    "span.b-list-advert__phone",
			}),
			Descriptor: domain.ScraperDescriptor{
				Name:    "jiji",
				IsCore:  true,
				Enabled: true,
				Mode:    domain.ModeProduction,
				Cost:    domain.CostFree,
				Tier:    1,
			},
		},
		{
			Scraper: NewMarketplace("pigiame", "https://www.pigiame.co.ke/search", "classifieds", MarketplaceSelectors{
				Item:     "div.listing-card",
				Text:     "div.listing-card__header__title",
				Link:     "a.listing-card__inner",
				Location: "div.listing-card__header__location",
				Phone:    "div.listing-card__phone",
			}),
			Descriptor: domain.ScraperDescriptor{
				Name:    "pigiame",
				IsCore:  true,
				Enabled: true,
				Mode:    domain.ModeProduction,
				Cost:    domain.CostFree,
				Tier:    1,
			},
		},
		{
			Scraper: NewForum("kenyatalk", "https://www.kenyatalk.com/search", "forum",
				[]string{"www.kenyatalk.com"}),
			Descriptor: domain.ScraperDescriptor{
				Name:           "kenyatalk",
				Enabled:        true,
				Mode:           domain.ModeProduction,
				Cost:           domain.CostFree,
				Tier:           2,
				Categories:     []string{"automotive", "electronics", "services"},
				MaxWindowHours: 168,
			},
		},
		{
			Scraper: NewForum("wazua", "https://wazua.co.ke/forum/search", "forum",
				[]string{"wazua.co.ke"}),
			Descriptor: domain.ScraperDescriptor{
				Name:           "wazua",
				Enabled:        true,
				Mode:           domain.ModeProduction,
				Cost:           domain.CostFree,
				Tier:           2,
				Categories:     []string{"services", "property"},
				MaxWindowHours: 168,
			},
		},
		{
			Scraper: NewMarketplace("intent-api", "https://api.intentstream.example.com/v1/search", "aggregator", MarketplaceSelectors{
				Item: "div.result",
				Text: "p.snippet",
				Link: "a.result-link",
			}),
			Descriptor: domain.ScraperDescriptor{
				Name:           "intent-api",
				Enabled:        true,
				Mode:           domain.ModeProduction,
				Cost:           domain.CostPaid,
				Tier:           1,
				MaxWindowHours: 24,
			},
		},
		{
			Scraper: NewSandbox("canary"),
			Descriptor: domain.ScraperDescriptor{
				Name:    "canary",
				Enabled: false,
				Mode:    domain.ModeSandbox,
				Cost:    domain.CostFree,
				Tier:    1,
			},
		},
	}

	for i, p := range plugins {
		if secs, ok := cfg.RateLimitSeconds[p.Descriptor.Name]; ok && secs > 0 {
			plugins[i].Scraper = NewRateLimited(p.Scraper, time.Duration(secs)*time.Second)
		}
	}

	return plugins
}
