package retrieval

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/knoguchi/campusrag/internal/repository"
)

// VectorSearch returns the tenant's nearest chunks to the reference embedding in ascending
// distance order. An empty embedding returns no results without touching the backend.
func VectorSearch(ctx context.Context, searcher repository.VectorSearcher, embedding []float32, tenantID uuid.UUID, limit int) ([]ScoredResult, error) {
	if len(embedding) == 0 || limit <= 0 {
		return nil, nil
	}

	matches, err := searcher.NearestChunks(ctx, tenantID, embedding, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search vectors: %w", err)
	}

	results := make([]ScoredResult, 0, len(matches))
	for _, m := range matches {
		if m.Chunk.TenantID != tenantID {
			continue
		}
		results = append(results, ScoredResult{
			Chunk:      m.Chunk,
			Distance:   m.Distance,
			Similarity: clamp01(m.Similarity),
		})
		if len(results) == limit {
			break
		}
	}
	return results, nil
}
