package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/knoguchi/campusrag/internal/repository"
	"github.com/pgvector/pgvector-go"
)

// ChunkRepo implements repository.ChunkStore and repository.VectorSearcher with pgvector
type ChunkRepo struct {
	db *DB
}

// NewChunkRepo creates a new chunk repository
func NewChunkRepo(db *DB) *ChunkRepo {
	return &ChunkRepo{db: db}
}

// SearchKeywords selects tenant chunks containing any keyword (ILIKE ANY over escaped patterns)
func (r *ChunkRepo) SearchKeywords(ctx context.Context, q repository.KeywordQuery) ([]repository.Chunk, error) {
	q = q.WithDefaults()
	if len(q.Keywords) == 0 {
		return nil, nil
	}

	patterns := make([]string, len(q.Keywords))
	for i, kw := range q.Keywords {
		patterns[i] = repository.LikePattern(kw)
	}

	query := `
		SELECT c.id, c.document_id, d.school_id, c.chunk_index, c.chunk_text,
		       d.file_name, d.source_url, d.department, d.category, d.created_at
		FROM document_chunks c
		JOIN documents d ON c.document_id = d.id
		WHERE d.school_id = $1
		  AND c.embedding IS NOT NULL
		  AND char_length(c.chunk_text) > $2
		  AND c.chunk_text ILIKE ANY($3)
		ORDER BY char_length(c.chunk_text) DESC, d.created_at DESC
		LIMIT $4
	`
	rows, err := r.db.Pool.Query(ctx, query, q.TenantID, q.MinTextLength, patterns, q.Limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search chunks by keyword: %w", err)
	}
	defer rows.Close()

	var chunks []repository.Chunk
	for rows.Next() {
		var (
			chunk               repository.Chunk
			fileName, sourceURL string
		)
		if err := rows.Scan(&chunk.ID, &chunk.DocumentID, &chunk.TenantID, &chunk.ChunkIndex, &chunk.Text,
			&fileName, &sourceURL, &chunk.Department, &chunk.Category, &chunk.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		chunk.Source = repository.SourceName(fileName, sourceURL)
		chunks = append(chunks, chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate chunks: %w", err)
	}

	return chunks, nil
}

// ChunkEmbedding loads the stored embedding of one tenant chunk
func (r *ChunkRepo) ChunkEmbedding(ctx context.Context, tenantID, chunkID uuid.UUID) ([]float32, error) {
	query := `
		SELECT c.embedding
		FROM document_chunks c
		JOIN documents d ON c.document_id = d.id
		WHERE c.id = $1 AND d.school_id = $2 AND c.embedding IS NOT NULL
	`
	var vec pgvector.Vector
	if err := r.db.Pool.QueryRow(ctx, query, chunkID, tenantID).Scan(&vec); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get chunk embedding: %w", err)
	}
	return vec.Slice(), nil
}

// NearestChunks orders tenant chunks by L2 distance (<->) and derives similarity from cosine distance (<=>)
func (r *ChunkRepo) NearestChunks(ctx context.Context, tenantID uuid.UUID, vector []float32, limit int) ([]repository.VectorMatch, error) {
	if len(vector) == 0 || limit <= 0 {
		return nil, nil
	}

	query := `
		SELECT c.id, c.document_id, d.school_id, c.chunk_index, c.chunk_text,
		       d.file_name, d.source_url, d.department, d.category, d.created_at,
		       c.embedding <-> $1 AS distance,
		       1 - (c.embedding <=> $1) AS similarity
		FROM document_chunks c
		JOIN documents d ON c.document_id = d.id
		WHERE d.school_id = $2 AND c.embedding IS NOT NULL
		ORDER BY c.embedding <-> $1
		LIMIT $3
	`
	rows, err := r.db.Pool.Query(ctx, query, pgvector.NewVector(vector), tenantID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search nearest chunks: %w", err)
	}
	defer rows.Close()

	var matches []repository.VectorMatch
	for rows.Next() {
		var (
			m                   repository.VectorMatch
			fileName, sourceURL string
		)
		if err := rows.Scan(&m.Chunk.ID, &m.Chunk.DocumentID, &m.Chunk.TenantID, &m.Chunk.ChunkIndex, &m.Chunk.Text,
			&fileName, &sourceURL, &m.Chunk.Department, &m.Chunk.Category, &m.Chunk.CreatedAt,
			&m.Distance, &m.Similarity); err != nil {
			return nil, fmt.Errorf("failed to scan nearest chunk: %w", err)
		}
		m.Chunk.Source = repository.SourceName(fileName, sourceURL)
		m.Similarity = clampUnit(m.Similarity)
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate nearest chunks: %w", err)
	}

	return matches, nil
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Ensure ChunkRepo implements the interfaces
var (
	_ repository.ChunkStore     = (*ChunkRepo)(nil)
	_ repository.VectorSearcher = (*ChunkRepo)(nil)
)
