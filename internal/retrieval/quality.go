package retrieval

type qualityTier struct {
	maxDistance   float64
	minSimilarity float64
}

var (
	lowTier    = qualityTier{maxDistance: 1.2, minSimilarity: 0.1}
	mediumTier = qualityTier{maxDistance: 0.8, minSimilarity: 0.3}
)

// IsAcceptable judges the closest result against the strategy's tier.
// Either a small enough distance or a large enough similarity is sufficient.
func IsAcceptable(results []ScoredResult, strategy Strategy) bool {
	if len(results) == 0 {
		return false
	}
	top := results[0]
	tier := strategy.qualityTier()
	return top.Distance < tier.maxDistance || top.Similarity > tier.minSimilarity
}
