package config

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config represents the complete application configuration
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Auth          AuthConfig
	Provider      ProviderConfig
	Budget        BudgetConfig
	Classifier    ClassifierConfig
	Strategy      StrategyConfig
	Observability ObservabilityConfig
	Environment   string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds the optional PostgreSQL spend journal configuration.
// When ConnectionString is empty the journal is disabled and spend tracking
// is in-memory only.
type DatabaseConfig struct {
	ConnectionString string
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxLifetime  time.Duration
	CleanupInterval  time.Duration
	RetentionPeriod  time.Duration
}

// AuthConfig holds JWT authentication configuration. An empty secret
// disables authentication on the API routes.
type AuthConfig struct {
	JWTSecret string
	Issuer    string
}

// ProviderConfig holds the model gateway configuration
type ProviderConfig struct {
	APIKey     string
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
}

// BudgetConfig holds the cost limits. Zero means unlimited.
type BudgetConfig struct {
	PerRequestLimit  float64
	DailyLimit       float64
	WarningThreshold float64
}

// ClassifierConfig holds the strategy-selection cutoffs
type ClassifierConfig struct {
	SingleThreshold  float64
	CouncilThreshold float64
}

// StrategyConfig holds the model rosters and strategy tuning
type StrategyConfig struct {
	CouncilModels          []string
	EscalationLadder       []string
	DefaultModel           string
	ParallelTimeout        time.Duration
	SufficiencyMinLength   int
	DefaultMaxOutputTokens int
}

// ObservabilityConfig holds logging configuration
type ObservabilityConfig struct {
	LogLevel  string
	LogFormat string // json or console
}

// New creates a new Config instance by loading environment variables
func New(ctx context.Context) (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load(".env")

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getPort(),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 300*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Database: DatabaseConfig{
			ConnectionString: getEnv("DATABASE_URL", ""),
			MaxOpenConns:     getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:     getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime:  getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
			CleanupInterval:  getEnvAsDuration("DB_CLEANUP_INTERVAL", 24*time.Hour),
			RetentionPeriod:  getEnvAsDuration("DB_RETENTION_PERIOD", 90*24*time.Hour),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
			Issuer:    getEnv("JWT_ISSUER", "llm-orchestrator"),
		},
		Provider: ProviderConfig{
			APIKey:     getEnv("OPENROUTER_API_KEY", ""),
			BaseURL:    getEnv("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1"),
			Timeout:    getEnvAsDuration("OPENROUTER_TIMEOUT", 120*time.Second),
			MaxRetries: getEnvAsInt("OPENROUTER_MAX_RETRIES", 2),
			RetryDelay: getEnvAsDuration("OPENROUTER_RETRY_DELAY", time.Second),
		},
		Budget: BudgetConfig{
			PerRequestLimit:  getEnvAsFloat("BUDGET_PER_REQUEST_LIMIT", 1.0),
			DailyLimit:       getEnvAsFloat("BUDGET_DAILY_LIMIT", 10.0),
			WarningThreshold: getEnvAsFloat("BUDGET_WARNING_THRESHOLD", 0.8),
		},
		Classifier: ClassifierConfig{
			SingleThreshold:  getEnvAsFloat("CLASSIFIER_SINGLE_THRESHOLD", 0.45),
			CouncilThreshold: getEnvAsFloat("CLASSIFIER_COUNCIL_THRESHOLD", 0.75),
		},
		Strategy: StrategyConfig{
			CouncilModels:          getEnvAsSlice("STRATEGY_COUNCIL_MODELS", []string{"claude-opus", "gemini-pro", "o3"}),
			EscalationLadder:       getEnvAsSlice("STRATEGY_ESCALATION_LADDER", []string{"claude-sonnet", "gemini-pro", "claude-opus"}),
			DefaultModel:           getEnv("STRATEGY_DEFAULT_MODEL", "claude-sonnet"),
			ParallelTimeout:        getEnvAsDuration("STRATEGY_PARALLEL_TIMEOUT", 120*time.Second),
			SufficiencyMinLength:   getEnvAsInt("STRATEGY_SUFFICIENCY_MIN_LENGTH", 200),
			DefaultMaxOutputTokens: getEnvAsInt("STRATEGY_MAX_OUTPUT_TOKENS", 8192),
		},
		Observability: ObservabilityConfig{
			LogLevel:  getEnv("LOG_LEVEL", "info"),
			LogFormat: getEnv("LOG_FORMAT", "json"),
		},
	}

	// Validate the configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if all required configuration fields are set
func (c *Config) Validate() error {
	if c.IsProduction() {
		if c.Provider.APIKey == "" {
			return fmt.Errorf("provider API key is required in production")
		}
		if c.Auth.JWTSecret == "" {
			return fmt.Errorf("JWT secret is required in production")
		}
	}

	if c.Budget.WarningThreshold < 0 || c.Budget.WarningThreshold > 1 {
		return fmt.Errorf("budget warning threshold must be in [0,1]")
	}
	if c.Classifier.SingleThreshold >= c.Classifier.CouncilThreshold {
		return fmt.Errorf("classifier single threshold must be below council threshold")
	}
	if len(c.Strategy.CouncilModels) == 0 {
		return fmt.Errorf("at least one council model is required")
	}
	if len(c.Strategy.EscalationLadder) == 0 {
		return fmt.Errorf("at least one escalation ladder model is required")
	}

	if c.Observability.LogLevel == "" {
		return fmt.Errorf("log level is required")
	}

	return nil
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev"
}

// JournalEnabled reports whether the PostgreSQL spend journal is configured
func (c *DatabaseConfig) JournalEnabled() bool {
	return c.ConnectionString != ""
}

// LogString returns a safe string for logging (no password)
func (c *DatabaseConfig) LogString() string {
	if c.ConnectionString == "" {
		return "journal disabled"
	}
	u, err := url.Parse(c.ConnectionString)
	if err != nil {
		return "host=<from DATABASE_URL>"
	}
	host := u.Hostname()
	port := u.Port()
	if port == "" {
		port = "5432"
	}
	db := strings.TrimPrefix(u.Path, "/")
	return fmt.Sprintf("host=%s port=%s database=%s", host, port, db)
}

// Address returns the HTTP server address
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Helper functions

// getPort returns the server port from PORT or SERVER_PORT env vars (default: 8080)
func getPort() int {
	if value := os.Getenv("PORT"); value != "" {
		if p, err := strconv.Atoi(value); err == nil {
			return p
		}
	}
	if value := os.Getenv("SERVER_PORT"); value != "" {
		if p, err := strconv.Atoi(value); err == nil {
			return p
		}
	}
	return 8080
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
