package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/knoguchi/campusrag/internal/repository"
	"github.com/pgvector/pgvector-go"
)

// DocumentRepo implements repository.DocumentStore
type DocumentRepo struct {
	db *DB
}

// NewDocumentRepo creates a new document repository
func NewDocumentRepo(db *DB) *DocumentRepo {
	return &DocumentRepo{db: db}
}

// CreateDocument inserts a document and its chunks in one transaction
func (r *DocumentRepo) CreateDocument(ctx context.Context, doc *repository.Document, chunks []*repository.Chunk) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	_, err = tx.Exec(ctx, `
		INSERT INTO documents (id, school_id, source_url, file_name, category, department, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, doc.ID, doc.SchoolID, doc.SourceURL, doc.FileName, doc.Category, doc.Department, doc.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create document: %w", err)
	}

	if len(chunks) > 0 {
		batch := &pgx.Batch{}
		for _, chunk := range chunks {
			// A nil *pgvector.Vector is written as NULL
			var embedding *pgvector.Vector
			if len(chunk.Embedding) > 0 {
				v := pgvector.NewVector(chunk.Embedding)
				embedding = &v
			}
			batch.Queue(`
				INSERT INTO document_chunks (id, document_id, chunk_index, chunk_text, embedding)
				VALUES ($1, $2, $3, $4, $5)
			`, chunk.ID, doc.ID, chunk.ChunkIndex, chunk.Text, embedding)
		}

		results := tx.SendBatch(ctx, batch)
		for range chunks {
			if _, err := results.Exec(); err != nil {
				results.Close()
				return fmt.Errorf("failed to create chunk: %w", err)
			}
		}
		if err := results.Close(); err != nil {
			return fmt.Errorf("failed to close chunk batch: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit document: %w", err)
	}
	return nil
}

// ListDocuments retrieves a school's documents with pagination
func (r *DocumentRepo) ListDocuments(ctx context.Context, schoolID uuid.UUID, limit, offset int) ([]*repository.Document, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT d.id, d.school_id, d.source_url, d.file_name, d.category, d.department, d.created_at,
			(SELECT COUNT(*) FROM document_chunks c WHERE c.document_id = d.id)
		FROM documents d
		WHERE d.school_id = $1
		ORDER BY d.created_at DESC, d.id
		LIMIT $2 OFFSET $3
	`, schoolID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var docs []*repository.Document
	for rows.Next() {
		var doc repository.Document
		if err := rows.Scan(&doc.ID, &doc.SchoolID, &doc.SourceURL, &doc.FileName, &doc.Category,
			&doc.Department, &doc.CreatedAt, &doc.ChunkCount); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, &doc)
	}
	return docs, rows.Err()
}

// DeleteDocument deletes a school's document; chunks are removed by the cascade
func (r *DocumentRepo) DeleteDocument(ctx context.Context, schoolID, id uuid.UUID) error {
	result, err := r.db.Pool.Exec(ctx, `DELETE FROM documents WHERE id = $1 AND school_id = $2`, id, schoolID)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	if result.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Ensure DocumentRepo implements the interface
var _ repository.DocumentStore = (*DocumentRepo)(nil)
