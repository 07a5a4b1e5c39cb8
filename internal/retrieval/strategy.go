package retrieval

import (
	"strings"
	"unicode"
)

// Strategy is a coarse reading of question intent
type Strategy string

const (
	StrategyTemporal   Strategy = "temporal"
	StrategySpatial    Strategy = "spatial"
	StrategyNumerical  Strategy = "numerical"
	StrategyProcedural Strategy = "procedural"
	StrategyKeyword    Strategy = "keyword"
	StrategySemantic   Strategy = "semantic"
)

// maxKeywordQuestionTokens is the longest question still treated as a bare keyword query
const maxKeywordQuestionTokens = 3

// Checked in order; the first vocabulary with a hit wins. terms match as substrings,
// words only as whole words so "how" does not fire on "show".
var strategyVocabularies = []struct {
	strategy Strategy
	terms    []string
	words    []string
}{
	{StrategyTemporal, []string{
		"언제", "마감", "기간", "일정", "날짜", "기한", "몇 시", "몇시", "며칠",
		"when", "deadline", "date", "schedule", "until",
	}, nil},
	{StrategySpatial, []string{
		"어디", "위치", "장소", "건물", "호관", "찾아가",
		"where", "location", "building", "room", "office",
	}, nil},
	{StrategyNumerical, []string{
		"얼마", "금액", "비용", "요금", "수수료", "몇 명", "몇명", "몇 학점",
		"how much", "how many", "cost", "fee", "price", "amount",
	}, nil},
	{StrategyProcedural, []string{
		"어떻게", "방법", "절차", "신청", "서류", "준비물",
		"how to", "how do", "how can", "procedure", "apply", "process", "steps",
	}, []string{"how"}},
}

// ClassifyStrategy picks the search strategy for a question
func ClassifyStrategy(question string) Strategy {
	q := strings.ToLower(question)
	words := make(map[string]bool)
	for _, w := range strings.FieldsFunc(q, func(r rune) bool { return !unicode.IsLetter(r) }) {
		words[w] = true
	}
	for _, v := range strategyVocabularies {
		for _, term := range v.terms {
			if strings.Contains(q, term) {
				return v.strategy
			}
		}
		for _, w := range v.words {
			if words[w] {
				return v.strategy
			}
		}
	}
	if len(strings.Fields(q)) <= maxKeywordQuestionTokens {
		return StrategyKeyword
	}
	return StrategySemantic
}

// Limit is the number of neighbours fetched by vector search
func (s Strategy) Limit() int {
	switch s {
	case StrategyKeyword:
		return 3
	case StrategyTemporal, StrategySpatial, StrategyNumerical:
		return 4
	case StrategyProcedural:
		return 5
	default:
		return 6
	}
}

// qualityTier returns the thresholds the top neighbour is held to
func (s Strategy) qualityTier() qualityTier {
	switch s {
	case StrategyTemporal, StrategyNumerical:
		return mediumTier
	default:
		return lowTier
	}
}
