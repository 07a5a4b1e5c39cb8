package retrieval

import (
	"sort"
	"strings"
	"unicode/utf8"
)

// Rerank bonuses added on top of the base similarity
const (
	keywordBonus      = 0.1
	maxKeywordBonuses = 3
	departmentBonus   = 0.05
	longTextBonus     = 0.02
	longTextRunes     = 100
	affinityBonus     = 0.02
	maxAffinityBonus  = 0.1
)

// Rerank orders results by similarity plus lexical and metadata bonuses.
// Equal scores keep their distance order. Fewer than two results are returned untouched.
func Rerank(results []ScoredResult, keywords []string, question string) []ScoredResult {
	if len(results) < 2 {
		return results
	}

	q := strings.ToLower(question)
	ranked := make([]ScoredResult, len(results))
	copy(ranked, results)
	for i := range ranked {
		ranked[i].Score = compositeScore(ranked[i], keywords, q)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked
}

func compositeScore(r ScoredResult, keywords []string, lowerQuestion string) float64 {
	text := strings.ToLower(r.Chunk.Text)
	score := clamp01(r.Similarity)

	var matched int
	for _, kw := range keywords {
		if kw != "" && strings.Contains(text, strings.ToLower(kw)) {
			matched++
		}
	}
	score += keywordBonus * float64(min(matched, maxKeywordBonuses))

	if r.Chunk.Department != "" {
		score += departmentBonus
	}
	if utf8.RuneCountInString(r.Chunk.Text) > longTextRunes {
		score += longTextBonus
	}

	category := strings.ToLower(r.Chunk.Category)
	var affinity float64
	for _, term := range priorityTerms {
		if !strings.Contains(lowerQuestion, term) {
			continue
		}
		if strings.Contains(text, term) || strings.Contains(category, term) {
			affinity += affinityBonus
		}
	}
	return score + min(affinity, maxAffinityBonus)
}
