package llm

import (
	"context"
	"log/slog"
	"strings"
)

// Category is the routing label of a question. Each school keeps one default contact per category.
type Category string

const (
	CategoryAcademic    Category = "academic"
	CategoryScholarship Category = "scholarship"
	CategoryFacilities  Category = "facilities"
	CategoryCareer      Category = "career"
	CategoryEvent       Category = "event"
	CategoryOther       Category = "other"
)

// Categories lists every category in classification order
var Categories = []Category{
	CategoryAcademic,
	CategoryScholarship,
	CategoryFacilities,
	CategoryCareer,
	CategoryEvent,
	CategoryOther,
}

// Korean labels a model may answer with instead of the English ones
var koreanLabels = map[string]Category{
	"학사": CategoryAcademic,
	"장학": CategoryScholarship,
	"시설": CategoryFacilities,
	"취업": CategoryCareer,
	"진로": CategoryCareer,
	"행사": CategoryEvent,
	"기타": CategoryOther,
}

// ParseCategory maps a label (English or Korean, any case) to a Category
func ParseCategory(s string) (Category, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, c := range Categories {
		if s == string(c) {
			return c, true
		}
	}
	if c, ok := koreanLabels[s]; ok {
		return c, true
	}
	return "", false
}

// KeywordClassifier classifies by fixed vocabularies; the first category with a hit wins
type KeywordClassifier struct{}

var categoryVocabularies = []struct {
	category Category
	terms    []string
}{
	{CategoryAcademic, []string{
		"휴학", "복학", "수강", "학점", "전공", "졸업", "학적", "성적", "수업", "시험", "재입학", "편입",
		"course", "credit", "major", "graduat", "grade", "transcript", "enroll", "leave of absence",
	}},
	{CategoryScholarship, []string{
		"장학", "학자금", "등록금", "대출", "scholarship", "tuition", "loan", "financial aid",
	}},
	{CategoryFacilities, []string{
		"도서관", "기숙사", "식당", "주차", "열람실", "체육관", "셔틀",
		"library", "dorm", "housing", "cafeteria", "parking", "shuttle",
	}},
	{CategoryCareer, []string{
		"취업", "채용", "인턴", "진로", "자격증", "career", "job", "intern", "recruit",
	}},
	{CategoryEvent, []string{
		"축제", "행사", "세미나", "동아리", "박람회", "festival", "event", "seminar", "club",
	}},
}

// Classify never fails
func (KeywordClassifier) Classify(_ context.Context, question string) (Category, error) {
	q := strings.ToLower(question)
	for _, v := range categoryVocabularies {
		for _, term := range v.terms {
			if strings.Contains(q, term) {
				return v.category, nil
			}
		}
	}
	return CategoryOther, nil
}

const classifySystemPrompt = `당신은 대학생 질문을 분류하는 전문가입니다.
질문을 다음 카테고리 중 하나로 분류하세요:
- academic: 학사 (휴학, 복학, 수강신청, 학점, 졸업 등)
- scholarship: 장학 (장학금, 학자금 대출, 등록금 등)
- facilities: 시설 (도서관, 기숙사, 식당, 주차 등)
- career: 취업 (채용, 인턴십, 진로 상담 등)
- event: 행사 (축제, 세미나, 동아리 등)
- other: 기타

카테고리 이름 하나만 영어 소문자로 답하세요.`

// LLMClassifier asks the model for a label and falls back to keyword rules when the
// model fails or answers with something unparseable.
type LLMClassifier struct {
	client   LLM
	model    string
	fallback KeywordClassifier
	logger   *slog.Logger
}

// NewLLMClassifier creates a classifier on top of client; model may be empty.
func NewLLMClassifier(client LLM, model string, logger *slog.Logger) *LLMClassifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LLMClassifier{client: client, model: model, logger: logger}
}

// Classify returns the model's category, or the keyword category when the model
// could not be used.
func (c *LLMClassifier) Classify(ctx context.Context, question string) (Category, error) {
	out, err := c.client.Generate(ctx, question, LabelOptions(c.model, classifySystemPrompt))
	if err != nil {
		c.logger.Warn("llm classification failed, using keyword rules", "error", err)
		return c.fallback.Classify(ctx, question)
	}

	// Models sometimes wrap the label in punctuation or a sentence
	for _, field := range strings.FieldsFunc(out, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '가' && r <= '힣')
	}) {
		if category, ok := ParseCategory(field); ok {
			return category, nil
		}
	}
	return c.fallback.Classify(ctx, question)
}
