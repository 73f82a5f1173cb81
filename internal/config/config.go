// Package config provides unified configuration loading for Phone Advisor.
// Supports YAML files, environment variables, and programmatic overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for Phone Advisor.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Catalog       CatalogConfig       `yaml:"catalog"`
	Database      DatabaseConfig      `yaml:"database"`
	Index         IndexConfig         `yaml:"index"`
	Cache         CacheConfig         `yaml:"cache"`
	Embedding     EmbeddingConfig     `yaml:"embedding"`
	Generation    GenerationConfig    `yaml:"generation"`
	Retrieval     RetrievalConfig     `yaml:"retrieval"`
	Chat          ChatConfig          `yaml:"chat"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host             string        `yaml:"host"`
	Port             int           `yaml:"port"`
	ReadTimeout      time.Duration `yaml:"read_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	IdleTimeout      time.Duration `yaml:"idle_timeout"`
	RequestTimeout   time.Duration `yaml:"request_timeout"`
	GracefulShutdown time.Duration `yaml:"graceful_shutdown"`
	CORSOrigins      []string      `yaml:"cors_origins"`
	ChatRateLimit    int           `yaml:"chat_rate_limit"` // requests per minute per IP, 0 disables
}

// CatalogConfig points at the source-of-truth records.
type CatalogConfig struct {
	Path string `yaml:"path"`
}

// DatabaseConfig holds the semantic index persistence settings.
type DatabaseConfig struct {
	Driver   string         `yaml:"driver"` // sqlite or postgres
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// SQLiteConfig holds SQLite-specific settings.
type SQLiteConfig struct {
	Path         string `yaml:"path"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	JournalMode  string `yaml:"journal_mode"`
}

// PostgresConfig holds Postgres-specific settings.
type PostgresConfig struct {
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// IndexConfig controls the semantic index lifecycle.
type IndexConfig struct {
	RebuildOnStart bool `yaml:"rebuild_on_start"`
	BatchSize      int  `yaml:"batch_size"`
}

// CacheConfig holds retriever result cache settings.
type CacheConfig struct {
	Driver     string        `yaml:"driver"` // memory or redis
	TTL        time.Duration `yaml:"ttl"`
	MaxEntries int           `yaml:"max_entries"`
	Redis      RedisConfig   `yaml:"redis"`
}

// RedisConfig holds Redis-specific settings.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

// EmbeddingConfig holds embedding model settings. An empty BaseURL disables
// vector search and the keyword retriever is used instead.
type EmbeddingConfig struct {
	BaseURL   string        `yaml:"base_url"`
	APIKey    string        `yaml:"api_key"`
	Model     string        `yaml:"model"`
	Dimension int           `yaml:"dimension"`
	Timeout   time.Duration `yaml:"timeout"`
}

// GenerationConfig holds text completion settings.
type GenerationConfig struct {
	Provider    string        `yaml:"provider"` // openai or anthropic
	BaseURL     string        `yaml:"base_url"`
	APIKey      string        `yaml:"api_key"`
	Model       string        `yaml:"model"`
	Temperature float64       `yaml:"temperature"`
	MaxTokens   int64         `yaml:"max_tokens"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxRetries  int           `yaml:"max_retries"`
	Breaker     BreakerConfig `yaml:"breaker"`
}

// BreakerConfig configures the circuit breaker around the completion service.
type BreakerConfig struct {
	FailureThreshold uint32        `yaml:"failure_threshold"`
	OpenTimeout      time.Duration `yaml:"open_timeout"`
	Interval         time.Duration `yaml:"interval"`
}

// RetrievalConfig holds semantic retrieval settings.
type RetrievalConfig struct {
	K            int     `yaml:"k"`
	MinRelevance float64 `yaml:"min_relevance"`
	CacheResults bool    `yaml:"cache_results"`
}

// ChatConfig holds chat router settings.
type ChatConfig struct {
	MaxRecommendations int `yaml:"max_recommendations"`
}

// ObservabilityConfig holds logging settings.
type ObservabilityConfig struct {
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"`
	ServiceName string `yaml:"service_name"`
}

// Load reads configuration from a YAML file and applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}

		if cfg.Catalog.Path != "" {
			cfg.Catalog.Path = ResolveRelativePath(path, cfg.Catalog.Path)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

const (
	defaultLLMBaseURL = "http://localhost:11434/v1"
	defaultLLMModel   = "qwen2.5"
)

// DefaultConfig returns a configuration with sensible defaults for development.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:             "0.0.0.0",
			Port:             8000,
			ReadTimeout:      30 * time.Second,
			WriteTimeout:     90 * time.Second,
			IdleTimeout:      120 * time.Second,
			RequestTimeout:   75 * time.Second,
			GracefulShutdown: 10 * time.Second,
			CORSOrigins:      []string{"*"},
			ChatRateLimit:    60,
		},
		Catalog: CatalogConfig{
			Path: filepath.Join("data", "phones.csv"),
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			SQLite: SQLiteConfig{
				Path:         filepath.Join("data", "phone-index.db"),
				MaxOpenConns: 1,
				JournalMode:  "WAL",
			},
			Postgres: PostgresConfig{
				MaxOpenConns:    10,
				MaxIdleConns:    2,
				ConnMaxLifetime: 5 * time.Minute,
			},
		},
		Index: IndexConfig{
			RebuildOnStart: false,
			BatchSize:      64,
		},
		Cache: CacheConfig{
			Driver:     "memory",
			TTL:        10 * time.Minute,
			MaxEntries: 5000,
			Redis: RedisConfig{
				Addr:     "localhost:6379",
				PoolSize: 10,
			},
		},
		Embedding: EmbeddingConfig{
			BaseURL:   "http://localhost:11434/v1",
			Model:     "nomic-embed-text",
			Dimension: 768,
			Timeout:   30 * time.Second,
		},
		Generation: GenerationConfig{
			Provider:    "openai",
			BaseURL:     defaultLLMBaseURL,
			Model:       defaultLLMModel,
			Temperature: 0.2,
			MaxTokens:   1024,
			Timeout:     60 * time.Second,
			MaxRetries:  2,
			Breaker: BreakerConfig{
				FailureThreshold: 5,
				OpenTimeout:      30 * time.Second,
				Interval:         time.Minute,
			},
		},
		Retrieval: RetrievalConfig{
			K:            5,
			MinRelevance: 0.35,
			CacheResults: true,
		},
		Chat: ChatConfig{
			MaxRecommendations: 8,
		},
		Observability: ObservabilityConfig{
			LogLevel:    "info",
			LogFormat:   "json",
			ServiceName: "phone-advisor",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Catalog.Path == "" {
		return fmt.Errorf("catalog path is required")
	}

	if c.Database.Driver != "sqlite" && c.Database.Driver != "postgres" {
		return fmt.Errorf("invalid database driver: %s", c.Database.Driver)
	}

	if c.Database.Driver == "postgres" && c.Database.Postgres.DSN == "" {
		return fmt.Errorf("postgres dsn is required when database driver is postgres")
	}

	if c.Cache.Driver != "memory" && c.Cache.Driver != "redis" {
		return fmt.Errorf("invalid cache driver: %s", c.Cache.Driver)
	}

	if c.Generation.Provider != "openai" && c.Generation.Provider != "anthropic" {
		return fmt.Errorf("invalid generation provider: %s", c.Generation.Provider)
	}

	if c.Retrieval.K < 1 || c.Retrieval.K > 50 {
		return fmt.Errorf("retrieval k must be between 1 and 50")
	}

	if c.Retrieval.MinRelevance < 0 || c.Retrieval.MinRelevance > 1 {
		return fmt.Errorf("retrieval min_relevance must be within [0, 1]")
	}

	if c.Chat.MaxRecommendations < 1 {
		return fmt.Errorf("chat max_recommendations must be positive")
	}

	return nil
}

// DatabaseDSN returns the appropriate database connection string.
func (c *Config) DatabaseDSN() string {
	if c.Database.Driver == "sqlite" {
		dsn := c.Database.SQLite.Path
		if mode := c.Database.SQLite.JournalMode; mode != "" {
			sep := "?"
			if strings.Contains(dsn, "?") {
				sep = "&"
			}
			dsn += sep + "_journal_mode=" + mode
		}
		return dsn
	}
	return c.Database.Postgres.DSN
}

// VectorSearchEnabled reports whether an embedding endpoint is configured.
func (c *Config) VectorSearchEnabled() bool {
	return c.Embedding.BaseURL != ""
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}

	if v := os.Getenv("SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}

	if v := os.Getenv("CATALOG_PATH"); v != "" {
		cfg.Catalog.Path = v
	}

	if v := os.Getenv("DATABASE_URL"); v != "" {
		if strings.HasPrefix(v, "sqlite:") {
			cfg.Database.Driver = "sqlite"
			cfg.Database.SQLite.Path = strings.TrimPrefix(v, "sqlite:")
		} else if strings.HasPrefix(v, "postgres") {
			cfg.Database.Driver = "postgres"
			cfg.Database.Postgres.DSN = v
		}
	}

	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Cache.Driver = "redis"
		cfg.Cache.Redis.Addr = strings.TrimPrefix(v, "redis://")
	}

	if v, ok := os.LookupEnv("EMBEDDING_BASE_URL"); ok {
		cfg.Embedding.BaseURL = v
	}

	if v := os.Getenv("EMBEDDING_MODEL"); v != "" {
		cfg.Embedding.Model = v
	}

	if v := os.Getenv("EMBEDDING_API_KEY"); v != "" {
		cfg.Embedding.APIKey = v
	}

	if v := os.Getenv("LLM_PROVIDER"); v != "" {
		cfg.Generation.Provider = v
	}

	if v := os.Getenv("LLM_BASE_URL"); v != "" {
		cfg.Generation.BaseURL = v
	}

	if v := os.Getenv("LLM_MODEL"); v != "" {
		cfg.Generation.Model = v
	}

	if v := os.Getenv("LLM_API_KEY"); v != "" {
		cfg.Generation.APIKey = v
	}

	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" && cfg.Generation.Provider == "anthropic" && cfg.Generation.APIKey == "" {
		cfg.Generation.APIKey = v
	}

	if v := os.Getenv("RETRIEVAL_MIN_RELEVANCE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Retrieval.MinRelevance = f
		}
	}

	if v := os.Getenv("INDEX_REBUILD_ON_START"); v != "" {
		cfg.Index.RebuildOnStart = v == "true" || v == "1"
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Observability.LogLevel = v
	}

	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Observability.LogFormat = v
	}

	// The local default endpoint only speaks the OpenAI protocol.
	if cfg.Generation.Provider == "anthropic" && cfg.Generation.BaseURL == defaultLLMBaseURL {
		cfg.Generation.BaseURL = ""
		if cfg.Generation.Model == defaultLLMModel {
			cfg.Generation.Model = "claude-sonnet-4-5"
		}
	}
}

// ResolveRelativePath resolves a path relative to the config file location.
func ResolveRelativePath(configPath, targetPath string) string {
	if filepath.IsAbs(targetPath) {
		return targetPath
	}
	configDir := filepath.Dir(configPath)
	return filepath.Join(configDir, targetPath)
}
