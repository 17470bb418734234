package app

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/upb/llm-orchestrator/auth"
	"github.com/upb/llm-orchestrator/config"
	"github.com/upb/llm-orchestrator/middleware"
	"github.com/upb/llm-orchestrator/models"
	"github.com/upb/llm-orchestrator/services/classifier"
	"github.com/upb/llm-orchestrator/services/ledger"
	"github.com/upb/llm-orchestrator/services/orchestrator"
	"github.com/upb/llm-orchestrator/services/providers"
	"github.com/upb/llm-orchestrator/services/providers/openrouter"
	"github.com/upb/llm-orchestrator/services/strategy"
	"github.com/upb/llm-orchestrator/services/synthesis"
	"go.uber.org/zap"
)

// Dependencies holds all application dependencies. This is the central
// wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	DB     *sql.DB // nil when the spend journal is disabled
	Logger *zap.Logger

	// Domain services
	Registry     *providers.Registry
	Journal      *ledger.PostgresJournal // nil when the spend journal is disabled
	Ledger       *ledger.Service
	Classifier   *classifier.Service
	Synthesizer  *synthesis.Service
	Engine       *strategy.Engine
	Orchestrator *orchestrator.Service

	// Auth
	AuthEnabled    bool
	AuthMiddleware *middleware.AuthMiddleware
}

// NewDependencies creates and wires up all application dependencies
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if err := deps.initDatabase(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := deps.initProviders(cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize providers: %w", err)
	}

	deps.initServices(cfg)
	deps.initAuth(cfg)

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

// initDatabase opens the optional PostgreSQL spend journal connection
func (d *Dependencies) initDatabase(ctx context.Context, cfg *config.Config) error {
	if !cfg.Database.JournalEnabled() {
		d.Logger.Info("spend journal disabled, cost tracking is in-memory only")
		return nil
	}

	db, err := sql.Open("postgres", cfg.Database.ConnectionString)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	d.DB = db
	d.Logger.Info("database connection established",
		zap.String("connection", cfg.Database.LogString()))
	return nil
}

// initProviders builds the model registry backed by the OpenRouter gateway
func (d *Dependencies) initProviders(cfg *config.Config) error {
	if cfg.Provider.APIKey == "" {
		d.Logger.Warn("no provider API key configured, model calls will fail")
	}

	adapter := openrouter.New(openrouter.Config{
		APIKey:     cfg.Provider.APIKey,
		BaseURL:    cfg.Provider.BaseURL,
		Timeout:    cfg.Provider.Timeout,
		MaxRetries: cfg.Provider.MaxRetries,
		RetryDelay: cfg.Provider.RetryDelay,
		ModelNames: map[string]string{
			"claude-sonnet": "anthropic/claude-sonnet-4",
			"claude-opus":   "anthropic/claude-opus-4",
			"gemini-pro":    "google/gemini-2.5-pro",
			"o3":            "openai/o3",
		},
	})

	registry := providers.NewRegistry()
	for _, info := range providers.DefaultCatalog() {
		if err := registry.Register(info, adapter); err != nil {
			return fmt.Errorf("failed to register model %s: %w", info.ID, err)
		}
		d.Logger.Info("registered model",
			zap.String("model", info.ID),
			zap.String("provider", info.Provider),
			zap.Int("tier", info.Tier))
	}

	d.Registry = registry
	return nil
}

// initServices wires the classification, budget, strategy and orchestration
// services.
func (d *Dependencies) initServices(cfg *config.Config) {
	var journal ledger.Journal
	if d.DB != nil {
		d.Journal = ledger.NewPostgresJournal(d.DB, d.Logger)
		journal = d.Journal
	}

	d.Ledger = ledger.NewService(models.BudgetConfig{
		PerRequestLimit:  cfg.Budget.PerRequestLimit,
		DailyLimit:       cfg.Budget.DailyLimit,
		WarningThreshold: cfg.Budget.WarningThreshold,
	}, journal, d.Logger)

	d.Classifier = classifier.NewService(classifier.Config{
		SingleThreshold:  cfg.Classifier.SingleThreshold,
		CouncilThreshold: cfg.Classifier.CouncilThreshold,
	}, d.Logger)

	d.Synthesizer = synthesis.NewService(d.Logger)

	strategyCfg := strategy.DefaultConfig()
	strategyCfg.CouncilModels = cfg.Strategy.CouncilModels
	strategyCfg.EscalationLadder = cfg.Strategy.EscalationLadder
	strategyCfg.DefaultModel = cfg.Strategy.DefaultModel
	strategyCfg.ParallelTimeout = cfg.Strategy.ParallelTimeout
	strategyCfg.SufficiencyMinLength = cfg.Strategy.SufficiencyMinLength
	strategyCfg.DefaultMaxOutputTokens = cfg.Strategy.DefaultMaxOutputTokens
	d.Engine = strategy.NewEngine(d.Registry, d.Ledger, d.Synthesizer, strategyCfg, d.Logger)

	d.Orchestrator = orchestrator.NewService(d.Classifier, d.Engine, d.Registry, d.Ledger, d.Logger)
}

// initAuth configures JWT authentication. Routes are left open when no
// secret is configured outside production.
func (d *Dependencies) initAuth(cfg *config.Config) {
	if cfg.Auth.JWTSecret == "" {
		d.Logger.Warn("JWT secret not configured, API routes are unauthenticated")
		d.AuthEnabled = false
		return
	}
	validator := auth.NewHMACValidator(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	d.AuthMiddleware = middleware.NewAuthMiddleware(validator, d.Logger)
	d.AuthEnabled = true
	d.Logger.Info("JWT authentication enabled",
		zap.String("issuer", cfg.Auth.Issuer))
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error

	if d.DB != nil {
		if err := d.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		} else {
			d.Logger.Info("database connection closed")
		}
	}

	if d.Logger != nil {
		_ = d.Logger.Sync()
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during shutdown: %v", errs)
	}
	return nil
}
