// Package api exposes the HTTP surface: on-demand discovery, health,
// registry inspection, and metrics.
package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jonesrussell/leadscout/internal/database"
	"github.com/jonesrussell/leadscout/internal/dedup"
	"github.com/jonesrussell/leadscout/internal/domain"
	"github.com/jonesrussell/leadscout/internal/logger"
	"github.com/jonesrussell/leadscout/internal/orchestrator"
	"github.com/jonesrussell/leadscout/internal/ranking"
	"github.com/jonesrussell/leadscout/internal/registry"
)

// Pinger is the health-check slice of the database pool.
type Pinger interface {
	Ping() error
}

// Server wires the handlers to the discovery stack.
type Server struct {
	logger       logger.Interface
	orchestrator *orchestrator.Orchestrator
	dedup        *dedup.Engine
	classifier   *ranking.Classifier
	registry     *registry.Registry
	agents       database.AgentRepositoryInterface
	db           Pinger
	promReg      *prometheus.Registry
}

// NewServer creates the API server. db may be nil when running without
// persistence.
func NewServer(
	log logger.Interface,
	orch *orchestrator.Orchestrator,
	engine *dedup.Engine,
	classifier *ranking.Classifier,
	reg *registry.Registry,
	agents database.AgentRepositoryInterface,
	db Pinger,
	promReg *prometheus.Registry,
) *Server {
	return &Server{
		logger:       log,
		orchestrator: orch,
		dedup:        engine,
		classifier:   classifier,
		registry:     reg,
		agents:       agents,
		db:           db,
		promReg:      promReg,
	}
}

// Router builds the gin engine with all routes attached.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", s.handleHealthz)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.promReg, promhttp.HandlerOpts{})))

	v1 := r.Group("/api/v1")
	{
		v1.POST("/discover", s.handleDiscover)
		v1.GET("/scrapers", s.handleScrapers)
		v1.POST("/scrapers/:name/toggle", s.handleToggle)
		if s.agents != nil {
			v1.POST("/agents", s.handleCreateAgent)
			v1.GET("/agents/:id", s.handleGetAgent)
		}
	}

	return r
}

type discoverRequest struct {
	Query       string `json:"query" binding:"required"`
	Location    string `json:"location"`
	Category    string `json:"category"`
	WindowHours int    `json:"window_hours"`
	Tier        int    `json:"tier"`
	Strict      bool   `json:"strict"`
}

type discoverResponse struct {
	Signals     []domain.ScoredSignal   `json:"signals"`
	Rejected    []domain.RejectedSignal `json:"rejected,omitempty"`
	WindowHours int                     `json:"window_hours"`
	Attempted   int                     `json:"attempted"`
	FromCache   int                     `json:"from_cache"`
	Failures    int                     `json:"failures"`
	EarlyReturn bool                    `json:"early_return"`
}

// handleDiscover runs an interactive discovery pass and returns scored
// signals sorted the way they came out of ranking.
func (s *Server) handleDiscover(c *gin.Context) {
	var req discoverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.WindowHours <= 0 {
		req.WindowHours = 2
	}

	outcome, err := s.orchestrator.Discover(c.Request.Context(), orchestrator.Request{
		Query:       req.Query,
		Location:    req.Location,
		Category:    req.Category,
		WindowHours: req.WindowHours,
		Tier:        req.Tier,
		Strict:      req.Strict,
		Interactive: true,
	})
	if err != nil {
		s.logger.Error("Discovery request failed", logger.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	result := s.dedup.Dedupe(outcome.Signals)
	scored := s.classifier.ScoreAll(result.Unique, req.Location)

	c.JSON(http.StatusOK, discoverResponse{
		Signals:     scored,
		Rejected:    result.Rejected,
		WindowHours: outcome.WindowHours,
		Attempted:   outcome.Attempted,
		FromCache:   outcome.FromCache,
		Failures:    outcome.Failures,
		EarlyReturn: outcome.EarlyReturn,
	})
}

// handleScrapers returns each plugin's health snapshot.
func (s *Server) handleScrapers(c *gin.Context) {
	type entry struct {
		Name    string               `json:"name"`
		Metrics domain.ScraperMetrics `json:"metrics"`
	}

	var out []entry
	for _, name := range s.registry.Names() {
		m, err := s.registry.CheckHealth(name)
		if err != nil {
			continue
		}
		out = append(out, entry{Name: name, Metrics: m})
	}

	c.JSON(http.StatusOK, gin.H{"scrapers": out})
}

type toggleRequest struct {
	Enabled    bool `json:"enabled"`
	TTLMinutes int  `json:"ttl_minutes"`
}

// handleToggle enables or disables a plugin, optionally for a TTL.
func (s *Server) handleToggle(c *gin.Context) {
	var req toggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	name := c.Param("name")
	ttl := time.Duration(req.TTLMinutes) * time.Minute

	if err := s.registry.Toggle(c.Request.Context(), name, req.Enabled, ttl, c.ClientIP()); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"name": name, "enabled": req.Enabled})
}

type createAgentRequest struct {
	Query         string `json:"query" binding:"required"`
	Location      string `json:"location"`
	Category      string `json:"category"`
	IntervalHours int    `json:"interval_hours" binding:"required,min=1"`
	DurationDays  int    `json:"duration_days" binding:"required,min=1"`
}

// handleCreateAgent saves a search agent. It becomes due immediately;
// the scheduler picks it up on its next tick.
func (s *Server) handleCreateAgent(c *gin.Context) {
	var req createAgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	now := time.Now().UTC()
	end := now.AddDate(0, 0, req.DurationDays)
	agent := &domain.Agent{
		Query:         req.Query,
		Location:      req.Location,
		Category:      req.Category,
		IntervalHours: req.IntervalHours,
		NextRunAt:     &now,
		Active:        true,
		EndTime:       &end,
		DurationDays:  req.DurationDays,
	}

	if err := s.agents.Create(c.Request.Context(), agent); err != nil {
		s.logger.Error("Agent creation failed", logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create agent"})
		return
	}

	c.JSON(http.StatusCreated, agent)
}

func (s *Server) handleGetAgent(c *gin.Context) {
	agent, err := s.agents.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "agent not found"})
		return
	}
	c.JSON(http.StatusOK, agent)
}

// handleHealthz reports liveness, including database reachability when
// a pool is attached.
func (s *Server) handleHealthz(c *gin.Context) {
	status := gin.H{"status": "ok"}

	if s.db != nil {
		if err := s.db.Ping(); err != nil {
			status["status"] = "degraded"
			status["database"] = err.Error()
			c.JSON(http.StatusServiceUnavailable, status)
			return
		}
		status["database"] = "ok"
	}

	c.JSON(http.StatusOK, status)
}
