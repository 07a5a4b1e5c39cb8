package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/knoguchi/campusrag/internal/repository"
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
	tx, err := r.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx, `
		INSERT INTO documents (id, school_id, source_url, file_name, category, department, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, doc.ID.String(), doc.SchoolID.String(), doc.SourceURL, doc.FileName, doc.Category, doc.Department,
		doc.CreatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to create document: %w", err)
	}

	for _, chunk := range chunks {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO document_chunks (id, document_id, chunk_index, chunk_text, embedding)
			VALUES (?, ?, ?, ?, ?)
		`, chunk.ID.String(), doc.ID.String(), chunk.ChunkIndex, chunk.Text, encodeVector(chunk.Embedding))
		if err != nil {
			return fmt.Errorf("failed to create chunk: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit document: %w", err)
	}
	return nil
}

// ListDocuments retrieves a school's documents with pagination
func (r *DocumentRepo) ListDocuments(ctx context.Context, schoolID uuid.UUID, limit, offset int) ([]*repository.Document, error) {
	rows, err := r.db.conn.QueryContext(ctx, `
		SELECT d.id, d.source_url, d.file_name, d.category, d.department, d.created_at,
			(SELECT COUNT(*) FROM document_chunks c WHERE c.document_id = d.id)
		FROM documents d
		WHERE d.school_id = ?
		ORDER BY d.created_at DESC, d.id
		LIMIT ? OFFSET ?
	`, schoolID.String(), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var docs []*repository.Document
	for rows.Next() {
		var (
			doc       = repository.Document{SchoolID: schoolID}
			id        string
			createdAt int64
		)
		if err := rows.Scan(&id, &doc.SourceURL, &doc.FileName, &doc.Category, &doc.Department,
			&createdAt, &doc.ChunkCount); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		if doc.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("invalid document id %q: %w", id, err)
		}
		doc.CreatedAt = time.Unix(0, createdAt).UTC()
		docs = append(docs, &doc)
	}
	return docs, rows.Err()
}

// DeleteDocument deletes a school's document; chunks are removed by the cascade
func (r *DocumentRepo) DeleteDocument(ctx context.Context, schoolID, id uuid.UUID) error {
	result, err := r.db.conn.ExecContext(ctx, `DELETE FROM documents WHERE id = ? AND school_id = ?`,
		id.String(), schoolID.String())
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Ensure DocumentRepo implements the interface
var _ repository.DocumentStore = (*DocumentRepo)(nil)
