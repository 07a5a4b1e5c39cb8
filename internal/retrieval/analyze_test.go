package retrieval

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyStrategy(t *testing.T) {
	tests := []struct {
		question string
		want     Strategy
	}{
		{"장학금 신청 마감일이 언제인가요", StrategyTemporal},
		{"When is the tuition deadline?", StrategyTemporal},
		{"학생지원팀 사무실 위치가 궁금합니다", StrategySpatial},
		{"where is the library", StrategySpatial},
		{"기숙사비는 얼마인가요", StrategyNumerical},
		{"How much is the dorm fee", StrategyNumerical},
		{"휴학 신청 방법", StrategyProcedural},
		{"how to apply for housing", StrategyProcedural},
		{"How is the dormitory application reviewed each semester", StrategyProcedural},
		{"show me the cafeteria menu for today", StrategySemantic},
		{"장학금", StrategyKeyword},
		{"컴퓨터공학과 졸업 요건", StrategyKeyword},
		{"컴퓨터공학과 졸업 요건 중 전공 필수 과목 알려주세요", StrategySemantic},
	}
	for _, tt := range tests {
		t.Run(tt.question, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyStrategy(tt.question))
		})
	}
}

func TestStrategyLimit(t *testing.T) {
	assert.Equal(t, 3, StrategyKeyword.Limit())
	assert.Equal(t, 4, StrategyTemporal.Limit())
	assert.Equal(t, 4, StrategySpatial.Limit())
	assert.Equal(t, 4, StrategyNumerical.Limit())
	assert.Equal(t, 5, StrategyProcedural.Limit())
	assert.Equal(t, 6, StrategySemantic.Limit())
}

func TestExtractKeywords(t *testing.T) {
	tests := []struct {
		name     string
		question string
		want     []string
	}{
		{"particles trimmed and question words dropped", "장학금 신청 마감일이 언제인가요", []string{"장학금", "신청", "마감일"}},
		{"priority terms first", "신청 방법 기숙사", []string{"기숙사", "신청", "방법"}},
		{"punctuation stripped", "기숙사는?!", []string{"기숙사"}},
		{"lower-cased", "Tuition FEE refund", []string{"tuition", "fee", "refund"}},
		{"short stems keep their particle", "학과 과목", []string{"학과", "과목"}},
		{"stop word under a particle dropped", "것은 기숙사", []string{"기숙사"}},
		{"stop word stem with subject particle dropped", "수는 학점", []string{"학점"}},
		{"deduplicated and capped", "a1 b2 c3 a1 d4 e5 f6", []string{"a1", "b2", "c3", "d4", "e5"}},
		{"single runes dropped", "a b c 장", nil},
		{"stop words only", "언제 어디서 무엇 알려주세요", nil},
		{"empty", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractKeywords(tt.question)
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractKeywords_NeverExceedsMax(t *testing.T) {
	q := strings.Repeat("장학금 입학 기숙사 학적 성적 수강 등록금 졸업 ", 3)
	got := ExtractKeywords(q)
	assert.Len(t, got, MaxKeywords)
	assert.Equal(t, []string{"장학금", "입학", "기숙사", "학적", "성적"}, got)
}
