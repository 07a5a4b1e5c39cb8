package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/knoguchi/campusrag/internal/repository"
	"github.com/knoguchi/campusrag/internal/vectorstore"
)

// ChunkRepo implements repository.ChunkStore and repository.VectorSearcher
type ChunkRepo struct {
	db *DB
}

// NewChunkRepo creates a new chunk repository
func NewChunkRepo(db *DB) *ChunkRepo {
	return &ChunkRepo{db: db}
}

const chunkColumns = `c.id, c.document_id, d.school_id, c.chunk_index, c.chunk_text,
	d.file_name, d.source_url, d.department, d.category, d.created_at`

// SearchKeywords selects tenant chunks containing any keyword. SQLite LIKE folds ASCII case only,
// which is enough for the Hangul and lower-cased Latin keywords the extractor produces.
func (r *ChunkRepo) SearchKeywords(ctx context.Context, q repository.KeywordQuery) ([]repository.Chunk, error) {
	q = q.WithDefaults()
	if len(q.Keywords) == 0 {
		return nil, nil
	}

	conds := make([]string, len(q.Keywords))
	args := []any{q.TenantID.String(), q.MinTextLength}
	for i, kw := range q.Keywords {
		conds[i] = `c.chunk_text LIKE ? ESCAPE '\'`
		args = append(args, repository.LikePattern(kw))
	}
	args = append(args, q.Limit)

	query := `SELECT ` + chunkColumns + `
		FROM document_chunks c
		JOIN documents d ON c.document_id = d.id
		WHERE d.school_id = ?
		  AND c.embedding IS NOT NULL
		  AND length(c.chunk_text) > ?
		  AND (` + strings.Join(conds, " OR ") + `)
		ORDER BY length(c.chunk_text) DESC, d.created_at DESC
		LIMIT ?`

	rows, err := r.db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search chunks by keyword: %w", err)
	}
	defer rows.Close()

	var chunks []repository.Chunk
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate chunks: %w", err)
	}
	return chunks, nil
}

// ChunkEmbedding loads the stored embedding of one tenant chunk
func (r *ChunkRepo) ChunkEmbedding(ctx context.Context, tenantID, chunkID uuid.UUID) ([]float32, error) {
	var blob []byte
	err := r.db.conn.QueryRowContext(ctx, `
		SELECT c.embedding
		FROM document_chunks c
		JOIN documents d ON c.document_id = d.id
		WHERE c.id = ? AND d.school_id = ? AND c.embedding IS NOT NULL
	`, chunkID.String(), tenantID.String()).Scan(&blob)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get chunk embedding: %w", err)
	}
	return decodeVector(blob)
}

// NearestChunks scans every embedded chunk of the tenant and keeps the closest ones
func (r *ChunkRepo) NearestChunks(ctx context.Context, tenantID uuid.UUID, vector []float32, limit int) ([]repository.VectorMatch, error) {
	if len(vector) == 0 || limit <= 0 {
		return nil, nil
	}

	rows, err := r.db.conn.QueryContext(ctx, `SELECT `+chunkColumns+`, c.embedding
		FROM document_chunks c
		JOIN documents d ON c.document_id = d.id
		WHERE d.school_id = ? AND c.embedding IS NOT NULL
	`, tenantID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to search nearest chunks: %w", err)
	}
	defer rows.Close()

	var matches []repository.VectorMatch
	for rows.Next() {
		var blob []byte
		chunk, err := scanChunk(rows, &blob)
		if err != nil {
			return nil, err
		}
		emb, err := decodeVector(blob)
		if err != nil {
			return nil, err
		}
		matches = append(matches, repository.VectorMatch{
			Chunk:      chunk,
			Distance:   vectorstore.L2Distance(vector, emb),
			Similarity: vectorstore.CosineSimilarity(vector, emb),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate nearest chunks: %w", err)
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Distance < matches[j].Distance
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanChunk(row scanner, extra ...any) (repository.Chunk, error) {
	var (
		chunk                                  repository.Chunk
		id, documentID, schoolID               string
		fileName, sourceURL, department, categ string
		createdAt                              int64
	)
	dest := []any{&id, &documentID, &schoolID, &chunk.ChunkIndex, &chunk.Text,
		&fileName, &sourceURL, &department, &categ, &createdAt}
	dest = append(dest, extra...)
	if err := row.Scan(dest...); err != nil {
		return chunk, fmt.Errorf("failed to scan chunk: %w", err)
	}

	var err error
	if chunk.ID, err = uuid.Parse(id); err != nil {
		return chunk, fmt.Errorf("invalid chunk id %q: %w", id, err)
	}
	if chunk.DocumentID, err = uuid.Parse(documentID); err != nil {
		return chunk, fmt.Errorf("invalid document id %q: %w", documentID, err)
	}
	if chunk.TenantID, err = uuid.Parse(schoolID); err != nil {
		return chunk, fmt.Errorf("invalid school id %q: %w", schoolID, err)
	}
	chunk.Source = repository.SourceName(fileName, sourceURL)
	chunk.Department = department
	chunk.Category = categ
	chunk.CreatedAt = time.Unix(0, createdAt).UTC()
	return chunk, nil
}

// Ensure ChunkRepo implements the interfaces
var (
	_ repository.ChunkStore     = (*ChunkRepo)(nil)
	_ repository.VectorSearcher = (*ChunkRepo)(nil)
)
