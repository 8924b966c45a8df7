// Package common builds the dependency graph shared by the CLI
// commands.
package common

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/jonesrussell/leadscout/internal/config"
	"github.com/jonesrussell/leadscout/internal/database"
	"github.com/jonesrussell/leadscout/internal/dedup"
	"github.com/jonesrussell/leadscout/internal/logger"
	"github.com/jonesrussell/leadscout/internal/metrics"
	"github.com/jonesrussell/leadscout/internal/orchestrator"
	"github.com/jonesrussell/leadscout/internal/ranking"
	"github.com/jonesrussell/leadscout/internal/registry"
	"github.com/jonesrussell/leadscout/internal/scraper"
	"github.com/jonesrussell/leadscout/internal/worker"
)

// Deps holds the components every command starts from. Database-backed
// pieces are attached separately because the discover command runs
// without one.
type Deps struct {
	Config       *config.Config
	Logger       logger.Interface
	Metrics      *metrics.Metrics
	PromRegistry *prometheus.Registry
	Registry     *registry.Registry
	Sweeper      *registry.Sweeper
	Orchestrator *orchestrator.Orchestrator
	Dedup        *dedup.Engine
	Classifier   *ranking.Classifier

	DB          *sqlx.DB
	RedisClient *redis.Client
}

// Build loads config and wires the discovery stack.
func Build(cfgFile string, debug bool) (*Deps, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logCfg := logger.Config{
		Level:       cfg.Logger.Level,
		Development: cfg.Logger.Development,
		Encoding:    cfg.Logger.Encoding,
		OutputPaths: cfg.Logger.OutputPaths,
	}
	if debug {
		logCfg.Level = "debug"
	}
	log, err := logger.New(logCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	promReg := prometheus.NewRegistry()
	m := metrics.New(promReg)

	d := &Deps{
		Config:       cfg,
		Logger:       log,
		Metrics:      m,
		PromRegistry: promReg,
	}

	quota := registry.QuotaCounter(registry.NopQuotaCounter{})
	if cfg.Redis.Address != "" {
		d.RedisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		quota = registry.NewRedisQuotaCounter(d.RedisClient)
	}

	d.Registry = registry.New(log, quota,
		registry.WithPaidQuota(cfg.Scrapers.PaidDailyQuota),
		registry.WithRunObserver(m.ObserveScraperRun),
	)
	for _, p := range scraper.Catalog(cfg.Scrapers) {
		d.Registry.Register(p.Scraper, p.Descriptor)
	}
	d.Sweeper = registry.NewSweeper(log, d.Registry)

	pool := worker.NewPool(log, cfg.Discovery.WorkerPoolSize)
	d.Orchestrator = orchestrator.New(log, d.Registry, pool, cfg.Discovery,
		orchestrator.WithMetrics(m),
	)

	d.Dedup = dedup.NewEngine(log, nil, cfg.Discovery.SemanticThreshold)
	d.Classifier = ranking.NewClassifier(log)

	return d, nil
}

// ConnectDatabase attaches the PostgreSQL pool.
func (d *Deps) ConnectDatabase() error {
	db, err := database.NewPostgresConnection(d.Config.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	d.DB = db
	return nil
}

// Close releases held connections. Safe on a partially built Deps.
func (d *Deps) Close() {
	if d.DB != nil {
		if err := d.DB.Close(); err != nil {
			d.Logger.Error("Failed to close database", logger.Error(err))
		}
	}
	if d.RedisClient != nil {
		if err := d.RedisClient.Close(); err != nil {
			d.Logger.Error("Failed to close redis client", logger.Error(err))
		}
	}
	_ = d.Logger.Sync()
}
