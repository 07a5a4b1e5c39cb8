// Package sqlite implements the repository interfaces on an embedded SQLite database.
//
// It backs STORE_DRIVER=sqlite deployments (a single campus on one machine) and the
// store-level tests. Embeddings are kept as little-endian float32 BLOBs and nearest-neighbour
// search is a linear scan over the tenant's chunks.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"

	_ "modernc.org/sqlite"
)

// DB wraps the SQLite handle shared by every repository in this package
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) a database at path and applies the schema.
// ":memory:" yields a private in-memory database.
func Open(ctx context.Context, path string) (*DB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", path)
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	// One connection keeps in-memory databases alive and serializes writers
	conn.SetMaxOpenConns(1)

	db := &DB{conn: conn}
	if err := db.migrate(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

// Ping checks that the database is reachable
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Close closes the database
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS schools (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			created_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS documents (
			id TEXT PRIMARY KEY,
			school_id TEXT NOT NULL,
			source_url TEXT NOT NULL DEFAULT '',
			file_name TEXT NOT NULL DEFAULT '',
			category TEXT NOT NULL DEFAULT '',
			department TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_documents_school ON documents(school_id)`,
		`CREATE TABLE IF NOT EXISTS document_chunks (
			id TEXT PRIMARY KEY,
			document_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
			chunk_index INTEGER NOT NULL,
			chunk_text TEXT NOT NULL CHECK (chunk_text <> ''),
			embedding BLOB
		)`,
		`CREATE INDEX IF NOT EXISTS idx_document_chunks_document ON document_chunks(document_id)`,
		`CREATE TABLE IF NOT EXISTS default_contacts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			school_id TEXT NOT NULL,
			category TEXT NOT NULL,
			department TEXT NOT NULL,
			contact_info TEXT NOT NULL DEFAULT '',
			UNIQUE (school_id, category)
		)`,
	}
	for _, stmt := range statements {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply sqlite schema: %w", err)
		}
	}
	return nil
}

// encodeVector packs a vector as little-endian float32; nil for an absent embedding
func encodeVector(v []float32) []byte {
	if len(v) == 0 {
		return nil
	}
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(buf []byte) ([]float32, error) {
	if len(buf) == 0 {
		return nil, nil
	}
	if len(buf)%4 != 0 {
		return nil, fmt.Errorf("corrupt embedding blob of %d bytes", len(buf))
	}
	v := make([]float32, len(buf)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:]))
	}
	return v, nil
}
