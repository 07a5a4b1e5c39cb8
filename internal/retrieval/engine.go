package retrieval

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/knoguchi/campusrag/internal/cache"
	"github.com/knoguchi/campusrag/internal/repository"
)

// Engine runs the hybrid retrieval pipeline. It is safe for concurrent use.
type Engine struct {
	chunks    repository.ChunkStore
	vectors   repository.VectorSearcher
	generator AnswerGenerator
	fallback  *FallbackResolver
	embedder  EmbeddingProvider // Optional: embeds reference text lacking a stored embedding
	cache     *cache.Cache[Response]
	logger    *slog.Logger
	now       func() time.Time
}

// Option is a functional option for configuring Engine.
type Option func(*engineOptions)

type engineOptions struct {
	embedder EmbeddingProvider
	cache    *cache.Cache[Response]
	logger   *slog.Logger
	now      func() time.Time
}

// WithEmbedder sets the embedding provider used when a reference chunk has no stored embedding.
func WithEmbedder(e EmbeddingProvider) Option {
	return func(o *engineOptions) {
		o.embedder = e
	}
}

// WithCache replaces the engine's private query cache.
func WithCache(c *cache.Cache[Response]) Option {
	return func(o *engineOptions) {
		o.cache = c
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *engineOptions) {
		o.logger = l
	}
}

// WithClock replaces time.Now for recency scoring and the default cache.
func WithClock(now func() time.Time) Option {
	return func(o *engineOptions) {
		o.now = now
	}
}

// NewEngine creates an engine over the given stores and collaborators
func NewEngine(
	chunks repository.ChunkStore,
	vectors repository.VectorSearcher,
	contacts repository.ContactStore,
	generator AnswerGenerator,
	classifier CategoryClassifier,
	opts ...Option,
) *Engine {
	o := engineOptions{
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.now == nil {
		o.now = time.Now
	}
	if o.cache == nil {
		o.cache = cache.New[Response](cache.WithClock(o.now))
	}

	return &Engine{
		chunks:    chunks,
		vectors:   vectors,
		generator: generator,
		fallback:  NewFallbackResolver(classifier, contacts, o.logger),
		embedder:  o.embedder,
		cache:     o.cache,
		logger:    o.logger,
		now:       o.now,
	}
}

// PurgeCache drops every memoized answer and returns how many were dropped
func (e *Engine) PurgeCache() int {
	return e.cache.Purge()
}

// PurgeSchoolCache drops the memoized answers of one school
func (e *Engine) PurgeSchoolCache(tenantID uuid.UUID) int {
	return e.cache.PurgeTenant(tenantID)
}

// Answer answers question for the school tenantID. Degraded paths still produce a
// Response; the only error is ErrInvalidTenant.
func (e *Engine) Answer(ctx context.Context, question string, tenantID uuid.UUID) (Response, error) {
	if tenantID == uuid.Nil {
		return Response{}, ErrInvalidTenant
	}

	if cached, ok := e.cache.Get(question, tenantID); ok {
		resp := cached.clone()
		resp.CacheHit = true
		e.logger.Debug("answer served from cache", "tenant_id", tenantID)
		return resp, nil
	}

	resp, degraded := e.run(ctx, question, tenantID)
	if !degraded {
		e.cache.Put(question, tenantID, resp.clone())
	}
	return resp, nil
}

// run executes the pipeline once. degraded reports that a backend failed along the way,
// in which case the response must not be memoized.
func (e *Engine) run(ctx context.Context, question string, tenantID uuid.UUID) (resp Response, degraded bool) {
	logger := e.logger.With("tenant_id", tenantID)

	fallback := func(reason string) (Response, bool) {
		logger.Debug("using fallback", "reason", reason)
		resp, fbDegraded := e.fallback.Resolve(ctx, question, tenantID)
		return resp, degraded || fbDegraded
	}

	// Step 1: Classify strategy and extract keywords
	strategy := ClassifyStrategy(question)
	keywords := ExtractKeywords(question)
	logger.Debug("query analyzed", "strategy", strategy, "keywords", keywords)
	if len(keywords) == 0 {
		return fallback("no keywords")
	}

	// Step 2: Find keyword candidates
	candidates, err := FindCandidates(ctx, e.chunks, keywords, tenantID)
	if err != nil {
		logger.Warn("candidate search failed", "error", err)
		degraded = true
	}
	if len(candidates) == 0 {
		return fallback("no candidates")
	}

	// Step 3: Pick the reference candidate
	ref := SelectReference(candidates, keywords, e.now())
	logger.Debug("reference selected", "chunk_id", ref.Chunk.ID, "score", ref.Score)

	keywordOnly := func(reason string) (Response, bool) {
		if strings.TrimSpace(ref.Chunk.Text) == "" {
			return fallback(reason)
		}
		logger.Debug("answering from reference text", "reason", reason)
		resp, err := AssembleKeywordOnly(ctx, e.generator, question, ref)
		if err != nil {
			logger.Warn("answer generation failed", "error", err)
			degraded = true
			return fallback("generation failed")
		}
		return resp, degraded
	}

	// Step 4: Resolve the reference embedding
	embedding := e.referenceEmbedding(ctx, logger, tenantID, ref, &degraded)
	if len(embedding) == 0 {
		return keywordOnly("no reference embedding")
	}

	// Step 5: Vector search anchored on the reference
	results, err := VectorSearch(ctx, e.vectors, embedding, tenantID, strategy.Limit())
	if err != nil {
		logger.Warn("vector search failed", "error", err)
		degraded = true
	}
	if len(results) == 0 {
		return keywordOnly("no vector results")
	}

	// Step 6: Quality gate
	if !IsAcceptable(results, strategy) {
		logger.Debug("top result rejected", "strategy", strategy,
			"distance", results[0].Distance, "similarity", results[0].Similarity)
		return keywordOnly("quality rejected")
	}

	// Step 7: Rerank and generate
	ranked := Rerank(results, keywords, question)
	resp, err = Assemble(ctx, e.generator, question, ranked, strategy)
	if err != nil {
		logger.Warn("answer generation failed", "error", err)
		degraded = true
		return fallback("generation failed")
	}
	return resp, degraded
}

func (e *Engine) referenceEmbedding(ctx context.Context, logger *slog.Logger, tenantID uuid.UUID, ref Candidate, degraded *bool) []float32 {
	if len(ref.Chunk.Embedding) > 0 {
		return ref.Chunk.Embedding
	}

	embedding, err := e.chunks.ChunkEmbedding(ctx, tenantID, ref.Chunk.ID)
	switch {
	case err == nil && len(embedding) > 0:
		return embedding
	case err != nil && !errors.Is(err, repository.ErrNotFound):
		logger.Warn("failed to load reference embedding", "chunk_id", ref.Chunk.ID, "error", err)
		*degraded = true
	}

	if e.embedder == nil {
		return nil
	}
	embedding, err = e.embedder.Embed(ctx, ref.Chunk.Text)
	if err != nil {
		logger.Warn("failed to embed reference text", "chunk_id", ref.Chunk.ID, "error", err)
		*degraded = true
		return nil
	}
	return embedding
}
