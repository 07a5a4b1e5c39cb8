// Package retrieval answers a question against one school's corpus with hybrid retrieval.
//
// Keywords pick lexical candidates, the best candidate's embedding anchors a nearest-neighbour
// search, a per-strategy quality gate decides whether the neighbours are usable, and the
// answer is generated from the reranked neighbours. When no evidence survives, the question
// is classified and routed to the school's default contact for that category.
package retrieval

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/knoguchi/campusrag/internal/llm"
	"github.com/knoguchi/campusrag/internal/repository"
)

// ErrInvalidTenant is returned for the nil school id
var ErrInvalidTenant = errors.New("invalid tenant id")

// Search strategies reported for answers that did not come from vector search
const (
	StrategyKeywordOnly = "keyword_only"
	StrategyFallback    = "fallback"
)

// EmbeddingProvider embeds text when a chunk has no stored embedding.
// A nil or empty vector means no vector signal is available.
type EmbeddingProvider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// AnswerGenerator phrases an answer from retrieved context
type AnswerGenerator interface {
	Generate(ctx context.Context, contextText, question string) (string, error)
}

// CategoryClassifier maps a question to a contact category
type CategoryClassifier interface {
	Classify(ctx context.Context, question string) (llm.Category, error)
}

// Candidate is a keyword-matched chunk with its lexical scores
type Candidate struct {
	Chunk      repository.Chunk
	MatchCount int     // input keywords found in the text
	Relevance  float64 // length-normalized keyword density in [0,1]
	Score      float64 // reference selection score in [0,1]
}

// ScoredResult is one nearest-neighbour row; Score is set by Rerank
type ScoredResult struct {
	Chunk      repository.Chunk
	Distance   float64
	Similarity float64
	Score      float64
}

// Source is a citation attached to a response
type Source struct {
	ChunkID    uuid.UUID `json:"chunk_id"`
	Text       string    `json:"text"`
	Source     string    `json:"source"`
	Department string    `json:"department,omitempty"`
	Category   string    `json:"category,omitempty"`
	Similarity float64   `json:"similarity"`
	Distance   float64   `json:"distance"`
	Rank       int       `json:"rank"`
}

// Response is the result of Engine.Answer
type Response struct {
	Answer          string   `json:"answer"`
	Sources         []Source `json:"sources"`
	ConfidenceScore float64  `json:"confidence_score"`
	SearchStrategy  string   `json:"search_strategy"`
	FallbackUsed    bool     `json:"fallback_used"`
	Category        *string  `json:"category,omitempty"`
	CacheHit        bool     `json:"cache_hit"`
}

// clone copies the response so cached values are never shared with callers
func (r Response) clone() Response {
	if r.Sources != nil {
		r.Sources = append([]Source(nil), r.Sources...)
	}
	if r.Category != nil {
		c := *r.Category
		r.Category = &c
	}
	return r
}
