package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// DefaultEmbeddingDimension matches the embedding model the chunks were produced with.
const DefaultEmbeddingDimension = 1536

// Migrate creates the pgvector extension and the schema. It opens its own connection because
// pgvector types can only be registered on a pool once the extension exists.
func Migrate(ctx context.Context, databaseURL string, dimension int) error {
	if dimension <= 0 {
		dimension = DefaultEmbeddingDimension
	}

	conn, err := pgx.Connect(ctx, databaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect for migration: %w", err)
	}
	defer conn.Close(ctx)

	statements := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		`CREATE TABLE IF NOT EXISTS schools (
			id UUID PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS documents (
			id UUID PRIMARY KEY,
			school_id UUID NOT NULL REFERENCES schools(id) ON DELETE CASCADE,
			source_url TEXT NOT NULL DEFAULT '',
			file_name TEXT NOT NULL DEFAULT '',
			category TEXT NOT NULL DEFAULT '',
			department TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_documents_school ON documents(school_id)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS document_chunks (
			id UUID PRIMARY KEY,
			document_id UUID NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
			chunk_index INT NOT NULL,
			chunk_text TEXT NOT NULL CHECK (chunk_text <> ''),
			embedding vector(%d)
		)`, dimension),
		`CREATE INDEX IF NOT EXISTS idx_document_chunks_document ON document_chunks(document_id)`,
		`CREATE TABLE IF NOT EXISTS default_contacts (
			id BIGSERIAL PRIMARY KEY,
			school_id UUID NOT NULL REFERENCES schools(id) ON DELETE CASCADE,
			category TEXT NOT NULL,
			department TEXT NOT NULL,
			contact_info TEXT NOT NULL DEFAULT '',
			UNIQUE (school_id, category)
		)`,
	}

	for _, stmt := range statements {
		if _, err := conn.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply migration: %w", err)
		}
	}
	return nil
}
