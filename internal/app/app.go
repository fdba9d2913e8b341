// Package app wires configuration into the storage backend, the LLM clients
// and the pipelines shared by the CLI and the MCP server.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/redis/go-redis/v9"

	"github.com/harinath-reddy-b/ally-legal-assistant-dev/internal/compliance"
	"github.com/harinath-reddy-b/ally-legal-assistant-dev/internal/config"
	"github.com/harinath-reddy-b/ally-legal-assistant-dev/internal/embedding"
	"github.com/harinath-reddy-b/ally-legal-assistant-dev/internal/indexer"
	"github.com/harinath-reddy-b/ally-legal-assistant-dev/internal/legal"
	"github.com/harinath-reddy-b/ally-legal-assistant-dev/internal/metadata"
	"github.com/harinath-reddy-b/ally-legal-assistant-dev/internal/retrieval"
	"github.com/harinath-reddy-b/ally-legal-assistant-dev/internal/storage"
)

// HealthChecker reports whether a backing service is reachable.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// App holds every long-lived component built from one Config.
type App struct {
	Config *config.Config
	Logger *slog.Logger

	Index  storage.Index
	Search HealthChecker
	// Cache is nil when no Redis address is configured or Redis is unreachable.
	Cache *embedding.RedisCache

	Embedder  *embedding.Embedder
	Extractor *metadata.Extractor

	Documents  *indexer.DocumentPipeline
	Policies   *indexer.PolicyPipeline
	Job        *indexer.Job
	Retrieval  *retrieval.Service
	Intents    *retrieval.IntentEmbedder
	Compliance *compliance.Aggregator

	closers []func() error
}

// LoadConfig reads the YAML file at path, applies environment overrides and
// validates the result.
func LoadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv(os.LookupEnv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// New connects to the configured services and builds the pipelines.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{Config: cfg, Logger: logger}

	if err := a.openIndex(); err != nil {
		return nil, err
	}

	client, err := embedding.NewClient(cfg.LLM)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to create llm client: %w", err)
	}

	a.openCache(ctx)
	var cache embedding.VectorCache
	if a.Cache != nil {
		cache = a.Cache
	}
	a.Embedder = embedding.NewEmbedder(client, cfg.LLM.EmbeddingModel, cache, logger)

	chat := metadata.NewOpenAIChat(client.Client(), cfg.LLM.ChatModel, logger)
	a.Extractor = metadata.NewExtractor(chat, logger,
		metadata.WithMaxTokens(cfg.LLM.MaxTokens),
		metadata.WithTemperature(cfg.LLM.Temperature),
	)

	a.Documents = indexer.NewDocumentPipeline(a.Extractor, a.Embedder, a.Index,
		cfg.Search.DocumentIndex, cfg.Indexing.EmbedConcurrency, logger)
	a.Policies = indexer.NewPolicyPipeline(a.Extractor, a.Embedder, a.Index, cfg.Search.PolicyIndex, logger)
	a.Job = indexer.NewJob(a.Documents, a.Policies, cfg.Indexing, logger)

	a.Retrieval = retrieval.NewService(a.Index, cfg.Search, cfg.Retrieval, a.Extractor, logger)
	a.Intents = retrieval.NewIntentEmbedder(a.Extractor, a.Embedder, logger)
	a.Compliance = compliance.NewAggregator(a.Index, cfg.Search, logger)

	return a, nil
}

func (a *App) openIndex() error {
	switch a.Config.Search.Backend {
	case config.BackendMemory:
		store := storage.NewMemoryStorage()
		a.Index, a.Search = store, store
		a.Logger.Warn("Using in-memory search backend, records are lost on exit")
	case config.BackendQdrant, "":
		store, err := storage.NewQdrantStorage(storage.QdrantConfig{
			Host:   a.Config.Search.Host,
			Port:   a.Config.Search.Port,
			APIKey: a.Config.Search.APIKey,
			UseTLS: a.Config.Search.UseTLS,
		})
		if err != nil {
			return fmt.Errorf("failed to connect to Qdrant: %w", err)
		}
		a.Index, a.Search = store, store
		a.closers = append(a.closers, store.Close)
	default:
		return fmt.Errorf("%w: unknown search backend %q", config.ErrInvalidConfig, a.Config.Search.Backend)
	}
	return nil
}

// openCache enables the Redis embedding cache. An unreachable Redis is
// logged and the cache stays off.
func (a *App) openCache(ctx context.Context) {
	c := a.Config.Cache
	if c.RedisAddr == "" {
		return
	}
	cache := embedding.NewRedisCache(redis.NewClient(&redis.Options{
		Addr:     c.RedisAddr,
		Password: c.Password,
		DB:       c.DB,
	}), c.TTL)
	if err := cache.Health(ctx); err != nil {
		a.Logger.Warn("Embedding cache unavailable, continuing without it", "addr", c.RedisAddr, "error", err)
		cache.Close()
		return
	}
	a.Cache = cache
	a.closers = append(a.closers, cache.Close)
}

// EnsureIndexes creates the Document and Policy indexes when missing.
func (a *App) EnsureIndexes(ctx context.Context) error {
	for _, schema := range []storage.Schema{
		legal.DocumentSchema(a.Config.Search.DocumentIndex),
		legal.PolicySchema(a.Config.Search.PolicyIndex),
	} {
		res, err := a.Index.EnsureIndex(ctx, schema)
		if err != nil {
			return fmt.Errorf("ensure index %s: %w", schema.Name, err)
		}
		a.Logger.Info("Index ready", "index", schema.Name, "result", res.String())
	}
	return nil
}

// Close releases connections in reverse order of opening.
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
