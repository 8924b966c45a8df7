// Package metrics exposes Prometheus collectors for the discovery
// pipeline and the agent scheduler.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all collectors. The registerer is injected so tests
// can use a private registry.
type Metrics struct {
	ScraperRuns       *prometheus.CounterVec
	ScraperFailures   *prometheus.CounterVec
	ScraperLatency    *prometheus.HistogramVec
	SignalsFound      *prometheus.CounterVec
	CacheHits         prometheus.Counter
	DedupRejections   *prometheus.CounterVec
	LeadsCreated      *prometheus.CounterVec
	AgentRuns         *prometheus.CounterVec
	AgentRunDuration  prometheus.Histogram
	NotificationsSent prometheus.Counter
}

// New creates and registers the collectors.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ScraperRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leadscout",
			Name:      "scraper_runs_total",
			Help:      "Scraper executions by plugin.",
		}, []string{"scraper"}),
		ScraperFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leadscout",
			Name:      "scraper_failures_total",
			Help:      "Failed scraper executions by plugin.",
		}, []string{"scraper"}),
		ScraperLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "leadscout",
			Name:      "scraper_latency_seconds",
			Help:      "Scraper execution latency by plugin.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
		}, []string{"scraper"}),
		SignalsFound: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leadscout",
			Name:      "signals_found_total",
			Help:      "Raw signals produced by plugin.",
		}, []string{"scraper"}),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "leadscout",
			Name:      "cache_hits_total",
			Help:      "Discovery units served from the result cache.",
		}),
		DedupRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leadscout",
			Name:      "dedup_rejections_total",
			Help:      "Signals rejected by deduplication, by phase.",
		}, []string{"phase"}),
		LeadsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leadscout",
			Name:      "leads_created_total",
			Help:      "Newly persisted leads by priority tier.",
		}, []string{"tier"}),
		AgentRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leadscout",
			Name:      "agent_runs_total",
			Help:      "Agent pipeline runs by result.",
		}, []string{"result"}),
		AgentRunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "leadscout",
			Name:      "agent_run_duration_seconds",
			Help:      "Wall time of agent pipeline runs.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}),
		NotificationsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "leadscout",
			Name:      "notifications_sent_total",
			Help:      "Batched run notifications persisted.",
		}),
	}

	reg.MustRegister(
		m.ScraperRuns,
		m.ScraperFailures,
		m.ScraperLatency,
		m.SignalsFound,
		m.CacheHits,
		m.DedupRejections,
		m.LeadsCreated,
		m.AgentRuns,
		m.AgentRunDuration,
		m.NotificationsSent,
	)

	return m
}

// ObserveScraperRun records one scraper execution.
func (m *Metrics) ObserveScraperRun(scraper string, signals int, latency time.Duration, failed bool) {
	m.ScraperRuns.WithLabelValues(scraper).Inc()
	m.ScraperLatency.WithLabelValues(scraper).Observe(latency.Seconds())
	m.SignalsFound.WithLabelValues(scraper).Add(float64(signals))
	if failed {
		m.ScraperFailures.WithLabelValues(scraper).Inc()
	}
}
