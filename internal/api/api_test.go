package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jonesrussell/leadscout/internal/api"
	"github.com/jonesrussell/leadscout/internal/config"
	"github.com/jonesrussell/leadscout/internal/dedup"
	"github.com/jonesrussell/leadscout/internal/domain"
	"github.com/jonesrussell/leadscout/internal/logger"
	"github.com/jonesrussell/leadscout/internal/orchestrator"
	"github.com/jonesrussell/leadscout/internal/ranking"
	"github.com/jonesrussell/leadscout/internal/registry"
	"github.com/jonesrussell/leadscout/internal/worker"
)

type fixedScraper struct {
	name    string
	signals []domain.Signal
}

func (f fixedScraper) Name() string { return f.name }

func (f fixedScraper) Scrape(context.Context, string, int) ([]domain.Signal, error) {
	return f.signals, nil
}

type onlineProber struct{}

func (onlineProber) Online(context.Context) bool { return true }

func newTestServer(t *testing.T) (*api.Server, *registry.Registry) {
	t.Helper()

	log := logger.NewNop()
	reg := registry.New(log, registry.NopQuotaCounter{})
	reg.Register(fixedScraper{
		name: "core-market",
		signals: []domain.Signal{
			{
				URL:      "https://m.example.com/1",
				Text:     "looking for tires, need them today",
				Location: "Nairobi",
				Source:   "marketplace",
			},
		},
	}, domain.ScraperDescriptor{IsCore: true, Mode: domain.ModeProduction, Tier: 1})

	cfg := config.DiscoveryConfig{
		WorkerPoolSize:      4,
		CacheTTL:            time.Minute,
		Tier1Timeout:        time.Second,
		Tier2Timeout:        time.Second,
		MinIntentThreshold:  0.8,
		InteractiveEarlyHit: 2,
		AggregateEarlyHit:   5,
	}

	orch := orchestrator.New(log, reg, worker.NewPool(log, 4), cfg,
		orchestrator.WithProber(onlineProber{}),
	)

	srv := api.NewServer(
		log,
		orch,
		dedup.NewEngine(log, nil, 0.87),
		ranking.NewClassifier(log),
		reg,
		nil,
		nil,
		prometheus.NewRegistry(),
	)
	return srv, reg
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t)
	router := srv.Router()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestDiscoverEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	router := srv.Router()

	body := strings.NewReader(`{"query":"tires","location":"Nairobi"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/discover", body)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Signals []domain.ScoredSignal `json:"signals"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Signals, 1)
	assert.Equal(t, domain.TierHigh, resp.Signals[0].Tier)
	assert.Positive(t, resp.Signals[0].RankedScore)
}

func TestDiscoverEndpointRejectsMissingQuery(t *testing.T) {
	srv, _ := newTestServer(t)
	router := srv.Router()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/discover", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestScrapersEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	router := srv.Router()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/scrapers", http.NoBody))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "core-market")
}

func TestToggleCoreScraperRejected(t *testing.T) {
	srv, _ := newTestServer(t)
	router := srv.Router()

	body := strings.NewReader(`{"enabled":false}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/scrapers/core-market/toggle", body)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	router := srv.Router()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))

	assert.Equal(t, http.StatusOK, w.Code)
}
