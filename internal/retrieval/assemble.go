package retrieval

import (
	"context"
	"fmt"
	"strings"
)

const (
	maxSourceRunes  = 300
	confidenceBoost = 0.2
	// keywordOnlyWeight scales the reference score into a keyword-only confidence
	keywordOnlyWeight = 0.5
)

// Assemble generates the answer from ranked results and attaches their citations
func Assemble(ctx context.Context, gen AnswerGenerator, question string, ranked []ScoredResult, strategy Strategy) (Response, error) {
	var contextText strings.Builder
	var topSimilarity float64
	for i, r := range ranked {
		writeContextEntry(&contextText, i+1, r.Chunk.Source, r.Chunk.Department, r.Chunk.Text)
		topSimilarity = max(topSimilarity, r.Similarity)
	}

	answer, err := gen.Generate(ctx, contextText.String(), question)
	if err != nil {
		return Response{}, fmt.Errorf("failed to generate answer: %w", err)
	}
	if strings.TrimSpace(answer) == "" {
		return Response{}, fmt.Errorf("failed to generate answer: empty output")
	}

	sources := make([]Source, len(ranked))
	for i, r := range ranked {
		sources[i] = Source{
			ChunkID:    r.Chunk.ID,
			Text:       truncateRunes(r.Chunk.Text, maxSourceRunes),
			Source:     r.Chunk.Source,
			Department: r.Chunk.Department,
			Category:   r.Chunk.Category,
			Similarity: r.Similarity,
			Distance:   r.Distance,
			Rank:       i + 1,
		}
	}

	return Response{
		Answer:          answer,
		Sources:         sources,
		ConfidenceScore: min(topSimilarity+confidenceBoost, 1.0),
		SearchStrategy:  string(strategy),
	}, nil
}

// AssembleKeywordOnly answers from the reference candidate's text alone
func AssembleKeywordOnly(ctx context.Context, gen AnswerGenerator, question string, ref Candidate) (Response, error) {
	var contextText strings.Builder
	writeContextEntry(&contextText, 1, ref.Chunk.Source, ref.Chunk.Department, ref.Chunk.Text)

	answer, err := gen.Generate(ctx, contextText.String(), question)
	if err != nil {
		return Response{}, fmt.Errorf("failed to generate answer: %w", err)
	}
	if strings.TrimSpace(answer) == "" {
		return Response{}, fmt.Errorf("failed to generate answer: empty output")
	}

	return Response{
		Answer: answer,
		Sources: []Source{{
			ChunkID:    ref.Chunk.ID,
			Text:       truncateRunes(ref.Chunk.Text, maxSourceRunes),
			Source:     ref.Chunk.Source,
			Department: ref.Chunk.Department,
			Category:   ref.Chunk.Category,
			Rank:       1,
		}},
		ConfidenceScore: clamp01(ref.Score * keywordOnlyWeight),
		SearchStrategy:  StrategyKeywordOnly,
	}, nil
}

func writeContextEntry(b *strings.Builder, n int, source, department, text string) {
	if b.Len() > 0 {
		b.WriteString("\n\n")
	}
	fmt.Fprintf(b, "[문서 %d] 출처: %s", n, source)
	if department != "" {
		fmt.Fprintf(b, " | 담당 부서: %s", department)
	}
	b.WriteByte('\n')
	b.WriteString(text)
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
