package retrieval

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/knoguchi/campusrag/internal/repository"
)

// FindCandidates loads keyword-matched chunks of the tenant and scores their lexical fit.
// No keywords or no matching rows yields an empty result, not an error.
func FindCandidates(ctx context.Context, store repository.ChunkStore, keywords []string, tenantID uuid.UUID) ([]Candidate, error) {
	if len(keywords) == 0 {
		return nil, nil
	}

	chunks, err := store.SearchKeywords(ctx, repository.KeywordQuery{
		TenantID:      tenantID,
		Keywords:      keywords,
		MinTextLength: repository.DefaultMinTextLength,
		Limit:         repository.DefaultKeywordLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to find candidates: %w", err)
	}

	candidates := make([]Candidate, 0, len(chunks))
	for _, chunk := range chunks {
		// The store is trusted for filtering, but a row of another tenant is never scored
		if chunk.TenantID != tenantID {
			continue
		}
		matches, relevance := lexicalScore(chunk.Text, keywords)
		candidates = append(candidates, Candidate{
			Chunk:      chunk,
			MatchCount: matches,
			Relevance:  relevance,
		})
	}
	return candidates, nil
}

// lexicalScore counts matched keywords and computes
// sum(runes(kw)/10 * occurrences) / (runes(text)/1000), clamped to [0,1]
func lexicalScore(text string, keywords []string) (int, float64) {
	lower := strings.ToLower(text)
	textLen := utf8.RuneCountInString(text)

	var matches int
	var weighted float64
	for _, kw := range keywords {
		kw = strings.ToLower(kw)
		if kw == "" {
			continue
		}
		n := strings.Count(lower, kw)
		if n == 0 {
			continue
		}
		matches++
		weighted += float64(utf8.RuneCountInString(kw)) / 10 * float64(n)
	}
	if textLen == 0 {
		return matches, 0
	}
	return matches, clamp01(weighted / (float64(textLen) / 1000))
}

// Reference selection weights
const (
	weightMatchRatio = 0.4
	weightRelevance  = 0.3
	weightLength     = 0.2
	weightRecency    = 0.1
)

// recencyHorizon is the age at which a chunk stops earning recency credit
const recencyHorizon = 365 * 24 * time.Hour

// SelectReference scores every candidate and returns the best one.
// The first candidate with the maximum score wins. candidates must be non-empty.
func SelectReference(candidates []Candidate, keywords []string, now time.Time) Candidate {
	best := -1
	for i := range candidates {
		c := &candidates[i]
		var ratio float64
		if len(keywords) > 0 {
			ratio = float64(c.MatchCount) / float64(len(keywords))
		}
		c.Score = clamp01(ratio)*weightMatchRatio +
			clamp01(c.Relevance)*weightRelevance +
			lengthQuality(c.Chunk.Text)*weightLength +
			recency(c.Chunk.CreatedAt, now)*weightRecency

		if best < 0 || c.Score > candidates[best].Score {
			best = i
		}
	}
	return candidates[best]
}

func lengthQuality(text string) float64 {
	return clamp01(float64(utf8.RuneCountInString(text)) / 1000)
}

func recency(created, now time.Time) float64 {
	if created.IsZero() {
		return 0
	}
	age := now.Sub(created)
	if age < 0 {
		return 1
	}
	return clamp01(1 - float64(age)/float64(recencyHorizon))
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
