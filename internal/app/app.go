// Package app wires configuration into the running service graph shared by
// the API server and the CLI.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spherical-ai/phone-advisor/internal/cache"
	"github.com/spherical-ai/phone-advisor/internal/catalog"
	"github.com/spherical-ai/phone-advisor/internal/chat"
	"github.com/spherical-ai/phone-advisor/internal/config"
	"github.com/spherical-ai/phone-advisor/internal/embedding"
	"github.com/spherical-ai/phone-advisor/internal/generation"
	"github.com/spherical-ai/phone-advisor/internal/observability"
	"github.com/spherical-ai/phone-advisor/internal/retrieval"
	"github.com/spherical-ai/phone-advisor/internal/storage"
)

// ErrVectorSearchDisabled is returned by index operations when no embedding
// endpoint is configured.
var ErrVectorSearchDisabled = errors.New("vector search disabled")

// App holds the constructed services.
type App struct {
	Config    *config.Config
	Logger    *observability.Logger
	Catalog   *catalog.Provider
	Index     *retrieval.Index // nil when vector search is disabled
	Retriever retrieval.Retriever
	Completer *generation.Breaker
	Chat      *chat.Router

	closers []func() error
}

// New builds every service. The catalog is loaded eagerly so a bad source
// fails startup. A persisted index is restored when one matches the
// configured embedding model; see Warm for building a fresh one.
func New(ctx context.Context, cfg *config.Config, logger *observability.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: logger}

	a.Catalog = catalog.NewFileProvider(cfg.Catalog.Path, catalog.WithLogger(logger))
	cat, err := a.Catalog.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	if cfg.VectorSearchEnabled() {
		if err := a.initIndex(ctx); err != nil {
			a.Close()
			return nil, err
		}
		a.Retriever = a.Index
	} else {
		logger.Info().Msg("No embedding endpoint configured, using keyword retrieval")
		a.Retriever = retrieval.NewKeywordRetriever(retrieval.BuildDocuments(cat.Phones()))
	}

	a.Completer, err = generation.New(cfg.Generation, logger)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("create completer: %w", err)
	}

	a.Chat = chat.NewRouter(a.Catalog, a.Retriever, a.Completer, logger, chat.RouterConfig{
		K:                  cfg.Retrieval.K,
		MinRelevance:       cfg.Retrieval.MinRelevance,
		MaxRecommendations: cfg.Chat.MaxRecommendations,
	})

	logger.Info().
		Int("phones", cat.Len()).
		Bool("vector_search", a.Index != nil).
		Str("generation", a.Completer.Provider()).
		Msg("Services initialized")

	return a, nil
}

func (a *App) initIndex(ctx context.Context) error {
	cfg := a.Config

	if cfg.Database.Driver == storage.DriverSQLite {
		if dir := filepath.Dir(cfg.Database.SQLite.Path); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create database directory: %w", err)
			}
		}
	}

	db, err := storage.Open(ctx, cfg.Database.Driver, cfg.DatabaseDSN(), storage.Options{
		MaxOpenConns:    maxOpenConns(cfg),
		MaxIdleConns:    cfg.Database.Postgres.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.Postgres.ConnMaxLifetime,
	})
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	a.closers = append(a.closers, db.Close)

	repo := storage.NewIndexRepository(db)
	if err := repo.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	embedder, err := embedding.NewClient(embedding.Config{
		BaseURL:   cfg.Embedding.BaseURL,
		APIKey:    cfg.Embedding.APIKey,
		Model:     cfg.Embedding.Model,
		Dimension: cfg.Embedding.Dimension,
		Timeout:   cfg.Embedding.Timeout,
	})
	if err != nil {
		return fmt.Errorf("create embedding client: %w", err)
	}

	opts := []retrieval.IndexOption{
		retrieval.WithStore(repo),
		retrieval.WithBatchSize(cfg.Index.BatchSize),
	}
	if cfg.Retrieval.CacheResults {
		client, err := newCache(ctx, cfg.Cache)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, client.Close)
		opts = append(opts, retrieval.WithResultCache(retrieval.NewResultCache(client, cfg.Cache.TTL, a.Logger)))
	}

	a.Index = retrieval.NewIndex(embedder, a.Logger, opts...)

	if _, err := a.Index.LoadPersisted(ctx); err != nil {
		a.Logger.Warn().Err(err).Msg("Failed to restore persisted index")
	}
	return nil
}

func newCache(ctx context.Context, cfg config.CacheConfig) (cache.Client, error) {
	if cfg.Driver == "redis" {
		client, err := cache.NewRedisClient(ctx, cache.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		return client, nil
	}
	return cache.NewMemoryClient(cfg.MaxEntries), nil
}

func maxOpenConns(cfg *config.Config) int {
	if cfg.Database.Driver == storage.DriverSQLite {
		return cfg.Database.SQLite.MaxOpenConns
	}
	return cfg.Database.Postgres.MaxOpenConns
}

// Warm builds the semantic index when none is live or when the configuration
// asks for a rebuild on start. It is a no-op with vector search disabled.
func (a *App) Warm(ctx context.Context, progress func(done, total int)) error {
	if a.Index == nil {
		return nil
	}
	if a.Index.Ready() && !a.Config.Index.RebuildOnStart {
		return nil
	}
	_, err := a.RebuildIndex(ctx, progress)
	return err
}

// RebuildIndex re-embeds the current catalog and swaps the result in.
func (a *App) RebuildIndex(ctx context.Context, progress func(done, total int)) (*retrieval.RebuildResult, error) {
	if a.Index == nil {
		return nil, ErrVectorSearchDisabled
	}
	cat, err := a.Catalog.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	return a.Index.Rebuild(ctx, cat.Phones(), progress)
}

// RebuildCatalog rebuilds the index without progress reporting.
func (a *App) RebuildCatalog(ctx context.Context) (*retrieval.RebuildResult, error) {
	return a.RebuildIndex(ctx, nil)
}

// Close releases database and cache connections.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
