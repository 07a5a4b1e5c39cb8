// Package app builds the stores and the retrieval engine from configuration. Both binaries
// share it so the server and the admin CLI always agree on the backend layout.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/knoguchi/campusrag/internal/cache"
	"github.com/knoguchi/campusrag/internal/config"
	"github.com/knoguchi/campusrag/internal/embedder"
	"github.com/knoguchi/campusrag/internal/ingestion"
	"github.com/knoguchi/campusrag/internal/llm"
	"github.com/knoguchi/campusrag/internal/repository"
	"github.com/knoguchi/campusrag/internal/repository/postgres"
	"github.com/knoguchi/campusrag/internal/repository/sqlite"
	"github.com/knoguchi/campusrag/internal/retrieval"
	"github.com/knoguchi/campusrag/internal/vectorstore"
)

// Stores bundles the repositories of the configured backend
type Stores struct {
	Schools   repository.SchoolStore
	Documents repository.DocumentStore
	Chunks    repository.ChunkStore
	Vectors   repository.VectorSearcher
	Contacts  repository.ContactStore

	// Qdrant is set when VECTOR_BACKEND=qdrant; imports mirror chunks into it
	Qdrant *vectorstore.QdrantStore

	pingers []func(context.Context) error
	closers []func() error
}

// OpenStores connects to the relational store (migrating its schema) and the vector backend
func OpenStores(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Stores, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Stores{}

	switch cfg.StoreDriver {
	case config.StoreSQLite:
		db, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		chunks := sqlite.NewChunkRepo(db)
		s.Schools = sqlite.NewSchoolRepo(db)
		s.Documents = sqlite.NewDocumentRepo(db)
		s.Chunks = chunks
		s.Vectors = chunks
		s.Contacts = sqlite.NewContactRepo(db)
		s.pingers = append(s.pingers, db.Ping)
		s.closers = append(s.closers, db.Close)
		logger.Info("opened SQLite store", "path", cfg.SQLitePath)

	default:
		if err := postgres.Migrate(ctx, cfg.DatabaseURL, cfg.EmbeddingDimension); err != nil {
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
		db, err := postgres.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		chunks := postgres.NewChunkRepo(db)
		s.Schools = postgres.NewSchoolRepo(db)
		s.Documents = postgres.NewDocumentRepo(db)
		s.Chunks = chunks
		s.Vectors = chunks
		s.Contacts = postgres.NewContactRepo(db)
		s.pingers = append(s.pingers, db.Ping)
		s.closers = append(s.closers, func() error { db.Close(); return nil })
		logger.Info("connected to PostgreSQL")
	}

	if cfg.UseQdrant() {
		qs, err := vectorstore.NewQdrantStore(cfg.QdrantGRPCURL)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to connect to Qdrant: %w", err)
		}
		s.Qdrant = qs
		s.Vectors = qs
		s.pingers = append(s.pingers, qs.Ping)
		s.closers = append(s.closers, qs.Close)
		logger.Info("using Qdrant for vector search", "url", cfg.QdrantGRPCURL)
	}

	return s, nil
}

// Ping checks every backend; it serves the readiness probes
func (s *Stores) Ping(ctx context.Context) error {
	for _, ping := range s.pingers {
		if err := ping(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Close closes every backend, in reverse order of opening
func (s *Stores) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}

func newLLMClient(cfg *config.Config) *llm.OllamaClient {
	return llm.NewOllamaClient(
		llm.WithBaseURL(cfg.OllamaURL),
		llm.WithModel(cfg.OllamaLLMModel),
		llm.WithKeepAlive(cfg.OllamaKeepAlive),
	)
}

func newAnswerGenerator(cfg *config.Config, client llm.LLM) *llm.AnswerGenerator {
	return llm.NewAnswerGenerator(client,
		llm.WithGeneratorModel(cfg.OllamaLLMModel),
		llm.WithMaxTokens(cfg.AnswerMaxTokens),
	)
}

// NewEmbedder returns the Ollama embedder behind an LRU memo
func NewEmbedder(cfg *config.Config) (*embedder.CachedEmbedder, error) {
	base := embedder.NewOllamaEmbedder(embedder.OllamaConfig{
		BaseURL:   cfg.OllamaURL,
		Model:     cfg.OllamaEmbeddingModel,
		Dimension: cfg.EmbeddingDimension,
	})
	cached, err := embedder.NewCachedEmbedder(base, cfg.EmbedCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding cache: %w", err)
	}
	return cached, nil
}

// NewEngine wires the retrieval engine on top of stores
func NewEngine(cfg *config.Config, stores *Stores, logger *slog.Logger) (*retrieval.Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}

	embed, err := NewEmbedder(cfg)
	if err != nil {
		return nil, err
	}

	client := newLLMClient(cfg)
	generator := newAnswerGenerator(cfg, client)

	var classifier retrieval.CategoryClassifier = llm.KeywordClassifier{}
	if cfg.Classifier == config.ClassifierLLM {
		classifier = llm.NewLLMClassifier(client, cfg.OllamaLLMModel, logger)
	}

	queryCache := cache.New[retrieval.Response](
		cache.WithTTL(cfg.CacheTTL),
		cache.WithMaxEntries(cfg.CacheMaxEntries),
	)

	logger.Info("initialized retrieval engine",
		"embedding_model", embed.ModelName(),
		"llm_model", cfg.OllamaLLMModel,
		"answer_max_tokens", cfg.AnswerMaxTokens,
		"classifier", cfg.Classifier,
		"cache_ttl", cfg.CacheTTL,
	)

	return retrieval.NewEngine(
		stores.Chunks,
		stores.Vectors,
		stores.Contacts,
		generator,
		classifier,
		retrieval.WithEmbedder(embed),
		retrieval.WithCache(queryCache),
		retrieval.WithLogger(logger),
	), nil
}

// NewPipeline returns the ingestion pipeline for stores, mirroring into Qdrant when configured.
// extra options are applied last.
func NewPipeline(cfg *config.Config, stores *Stores, logger *slog.Logger, extra ...ingestion.PipelineOption) (*ingestion.Pipeline, error) {
	embed, err := NewEmbedder(cfg)
	if err != nil {
		return nil, err
	}
	opts := []ingestion.PipelineOption{ingestion.WithPipelineLogger(logger)}
	if stores.Qdrant != nil {
		opts = append(opts, ingestion.WithVectorIndex(stores.Qdrant))
	}
	opts = append(opts, extra...)
	return ingestion.NewPipeline(stores.Documents, embed, opts...), nil
}
