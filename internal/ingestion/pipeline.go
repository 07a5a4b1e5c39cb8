package ingestion

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/knoguchi/campusrag/internal/repository"
)

// ErrEmptyDocument is returned when a document has neither text nor chunks
var ErrEmptyDocument = errors.New("document has no content")

// Embedder produces one vector per text
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// VectorIndex mirrors chunks into an external nearest-neighbour backend
type VectorIndex interface {
	EnsureCollection(ctx context.Context, schoolID uuid.UUID, dimension int) error
	Upsert(ctx context.Context, schoolID uuid.UUID, chunks []*repository.Chunk) error
	DeleteDocument(ctx context.Context, schoolID, documentID uuid.UUID) error
}

// DocumentInput is one source document. Chunks, when given, are stored as-is; otherwise Text
// is split by the chunker.
type DocumentInput struct {
	SourceURL  string
	FileName   string
	Category   string
	Department string
	Text       string
	Chunks     []string
	CreatedAt  time.Time // zero means now
}

// PipelineResult describes one ingested document
type PipelineResult struct {
	DocumentID  uuid.UUID
	ContentHash string // SHA-256 of the chunk texts
	Stats       PipelineStats
}

// PipelineStats contains statistics about one ingestion
type PipelineStats struct {
	ChunkCount     int
	EmbeddedCount  int
	AvgChunkRunes  int
	ProcessingTime time.Duration
}

// Pipeline chunks, embeds and persists documents for one store
type Pipeline struct {
	documents repository.DocumentStore
	embedder  Embedder
	index     VectorIndex
	chunker   *Chunker
	logger    *slog.Logger
	now       func() time.Time
}

// PipelineOption configures a Pipeline
type PipelineOption func(*Pipeline)

// WithVectorIndex also writes embedded chunks to idx
func WithVectorIndex(idx VectorIndex) PipelineOption {
	return func(p *Pipeline) {
		p.index = idx
	}
}

// WithChunker overrides the chunk sizes
func WithChunker(cfg ChunkerConfig) PipelineOption {
	return func(p *Pipeline) {
		p.chunker = NewChunker(cfg)
	}
}

// WithPipelineLogger sets the logger
func WithPipelineLogger(l *slog.Logger) PipelineOption {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithPipelineClock sets the clock used for CreatedAt defaults
func WithPipelineClock(now func() time.Time) PipelineOption {
	return func(p *Pipeline) {
		p.now = now
	}
}

// NewPipeline creates a pipeline. A nil embedder stores chunks without embeddings; such chunks
// are never retrieved until they are re-ingested with one.
func NewPipeline(documents repository.DocumentStore, embedder Embedder, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		documents: documents,
		embedder:  embedder,
		chunker:   NewChunker(DefaultChunkerConfig()),
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Ingest stores one document of schoolID with its chunks
func (p *Pipeline) Ingest(ctx context.Context, schoolID uuid.UUID, in DocumentInput) (*PipelineResult, error) {
	start := p.now()
	if schoolID == uuid.Nil {
		return nil, fmt.Errorf("school id is required")
	}

	texts := cleanChunks(in.Chunks)
	if len(texts) == 0 {
		texts = p.chunker.Chunk(in.Text)
	}
	if len(texts) == 0 {
		return nil, ErrEmptyDocument
	}

	createdAt := in.CreatedAt
	if createdAt.IsZero() {
		createdAt = start
	}
	doc := &repository.Document{
		ID:         uuid.New(),
		SchoolID:   schoolID,
		SourceURL:  in.SourceURL,
		FileName:   in.FileName,
		Category:   in.Category,
		Department: in.Department,
		CreatedAt:  createdAt,
	}

	var vectors [][]float32
	if p.embedder != nil {
		var err error
		vectors, err = p.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("failed to embed chunks: %w", err)
		}
		if len(vectors) != len(texts) {
			return nil, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(texts))
		}
	}

	chunks := make([]*repository.Chunk, len(texts))
	hash := sha256.New()
	totalRunes, embedded := 0, 0
	for i, text := range texts {
		chunk := &repository.Chunk{
			ID:         uuid.New(),
			DocumentID: doc.ID,
			TenantID:   schoolID,
			ChunkIndex: i,
			Text:       text,
			Source:     repository.SourceName(doc.FileName, doc.SourceURL),
			Department: doc.Department,
			Category:   doc.Category,
			CreatedAt:  createdAt,
		}
		if vectors != nil && len(vectors[i]) > 0 {
			chunk.Embedding = vectors[i]
			embedded++
		}
		chunks[i] = chunk
		hash.Write([]byte(text))
		hash.Write([]byte{0})
		totalRunes += utf8.RuneCountInString(text)
	}

	if err := p.documents.CreateDocument(ctx, doc, chunks); err != nil {
		return nil, fmt.Errorf("failed to store document: %w", err)
	}

	if p.index != nil && embedded > 0 {
		if err := p.index.EnsureCollection(ctx, schoolID, p.embedder.Dimension()); err != nil {
			return nil, fmt.Errorf("failed to prepare vector index: %w", err)
		}
		if err := p.index.Upsert(ctx, schoolID, chunks); err != nil {
			return nil, fmt.Errorf("failed to index chunks: %w", err)
		}
	}

	result := &PipelineResult{
		DocumentID:  doc.ID,
		ContentHash: hex.EncodeToString(hash.Sum(nil)),
		Stats: PipelineStats{
			ChunkCount:     len(chunks),
			EmbeddedCount:  embedded,
			AvgChunkRunes:  totalRunes / len(chunks),
			ProcessingTime: p.now().Sub(start),
		},
	}
	p.logger.Info("ingested document",
		"school_id", schoolID,
		"document_id", doc.ID,
		"source", repository.SourceName(doc.FileName, doc.SourceURL),
		"chunks", result.Stats.ChunkCount,
		"embedded", result.Stats.EmbeddedCount,
	)
	return result, nil
}

// Delete removes a document of schoolID with its chunks. Index points go first, so a failed
// store delete can be retried and still finds the document.
func (p *Pipeline) Delete(ctx context.Context, schoolID, documentID uuid.UUID) error {
	if p.index != nil {
		if err := p.index.DeleteDocument(ctx, schoolID, documentID); err != nil {
			return fmt.Errorf("failed to remove indexed chunks: %w", err)
		}
	}
	if err := p.documents.DeleteDocument(ctx, schoolID, documentID); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	p.logger.Info("deleted document", "school_id", schoolID, "document_id", documentID)
	return nil
}

func cleanChunks(in []string) []string {
	var out []string
	for _, c := range in {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return out
}
