// Package repository defines domain models and data access interfaces for schools, documents, chunks, and default contacts.
package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

const (
	// DefaultMinTextLength is the minimum chunk length (in characters) considered by keyword search.
	DefaultMinTextLength = 50

	// DefaultKeywordLimit caps the number of rows returned by keyword search.
	DefaultKeywordLimit = 15
)

// School is the tenant: every document and chunk belongs to exactly one school.
type School struct {
	ID        uuid.UUID
	Name      string
	CreatedAt time.Time
}

// Document represents an ingested source (PDF, RSS item, web page)
type Document struct {
	ID         uuid.UUID
	SchoolID   uuid.UUID
	SourceURL  string
	FileName   string
	Category   string
	Department string
	CreatedAt  time.Time

	ChunkCount int // filled by ListDocuments
}

// Chunk is the unit of retrieval. Source metadata is denormalized from the owning document.
type Chunk struct {
	ID         uuid.UUID
	DocumentID uuid.UUID
	TenantID   uuid.UUID
	ChunkIndex int
	Text       string
	Embedding  []float32 // nil when embedding generation was skipped

	Source     string // file name, falling back to source URL
	Department string
	Category   string
	CreatedAt  time.Time
}

// VectorMatch is one row of a nearest-neighbour query.
type VectorMatch struct {
	Chunk      Chunk
	Distance   float64 // L2 distance to the query vector
	Similarity float64 // cosine similarity clamped to [0,1]
}

// DefaultContact is the department a school routes a question category to.
type DefaultContact struct {
	SchoolID    uuid.UUID
	Category    string
	Department  string
	ContactInfo string
}

// KeywordQuery selects chunks of one tenant whose text contains any of the keywords.
type KeywordQuery struct {
	TenantID      uuid.UUID
	Keywords      []string
	MinTextLength int
	Limit         int
}

// WithDefaults returns a copy with zero limits replaced by the package defaults.
func (q KeywordQuery) WithDefaults() KeywordQuery {
	if q.MinTextLength <= 0 {
		q.MinTextLength = DefaultMinTextLength
	}
	if q.Limit <= 0 {
		q.Limit = DefaultKeywordLimit
	}
	return q
}

// ChunkStore answers the lexical side of hybrid retrieval.
type ChunkStore interface {
	// SearchKeywords returns chunks of q.TenantID that have an embedding, are longer than
	// q.MinTextLength characters and contain at least one keyword (case-insensitive),
	// ordered by text length descending, then document creation time descending.
	SearchKeywords(ctx context.Context, q KeywordQuery) ([]Chunk, error)

	// ChunkEmbedding returns the stored embedding of a chunk, or ErrNotFound when the chunk
	// does not exist for the tenant or has no embedding.
	ChunkEmbedding(ctx context.Context, tenantID, chunkID uuid.UUID) ([]float32, error)
}

// VectorSearcher answers the nearest-neighbour side of hybrid retrieval.
type VectorSearcher interface {
	// NearestChunks returns up to limit chunks of the tenant ordered by ascending L2 distance.
	NearestChunks(ctx context.Context, tenantID uuid.UUID, vector []float32, limit int) ([]VectorMatch, error)
}

// ContactStore holds the per-category default contacts used by the fallback path.
type ContactStore interface {
	GetDefaultContact(ctx context.Context, schoolID uuid.UUID, category string) (*DefaultContact, error)
	UpsertDefaultContact(ctx context.Context, contact *DefaultContact) error
}

// DocumentStore persists documents with their chunks.
type DocumentStore interface {
	CreateDocument(ctx context.Context, doc *Document, chunks []*Chunk) error

	// ListDocuments returns a school's documents, newest first, with their chunk counts.
	ListDocuments(ctx context.Context, schoolID uuid.UUID, limit, offset int) ([]*Document, error)

	// DeleteDocument removes a document of the school together with its chunks. A document
	// that does not exist or belongs to another school is ErrNotFound.
	DeleteDocument(ctx context.Context, schoolID, id uuid.UUID) error
}

// SchoolStore persists tenants.
type SchoolStore interface {
	CreateSchool(ctx context.Context, school *School) error
	GetSchool(ctx context.Context, id uuid.UUID) (*School, error)
	ListSchools(ctx context.Context, limit, offset int) ([]*School, error)
}

// SourceName picks the display name for a document's source.
func SourceName(fileName, sourceURL string) string {
	if fileName != "" {
		return fileName
	}
	if sourceURL != "" {
		return sourceURL
	}
	return "unknown"
}

// LikePattern turns a keyword into a `%keyword%` pattern with LIKE wildcards escaped by backslash.
func LikePattern(keyword string) string {
	var b strings.Builder
	b.Grow(len(keyword) + 2)
	b.WriteByte('%')
	for _, r := range keyword {
		if r == '\\' || r == '%' || r == '_' {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	b.WriteByte('%')
	return b.String()
}
