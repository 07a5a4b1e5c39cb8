package retrieval

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxKeywords caps the extractor output
const MaxKeywords = 5

var stopwords = toSet(
	// particles and filler
	"에", "대해", "대한", "에서", "으로", "로", "이", "가", "을", "를", "은", "는",
	"중에서", "관련해서", "관련하여", "관련", "것", "수", "있", "없", "좀",
	// question words and request phrases
	"궁금합니다", "궁금해요", "알고싶어요", "알려주세요", "알려줘", "문의", "질문",
	"어떻게", "언제", "어디", "어디서", "무엇", "뭐", "왜", "어떤", "입니다", "해주세요",
	"the", "a", "an", "is", "are", "do", "does", "i", "me", "my", "to", "of", "for",
	"about", "please", "tell", "what", "when", "where", "how", "which", "can",
)

// Tokens containing one of these go ahead of everything else
var priorityTerms = []string{
	"장학", "입학", "기숙사", "학적", "성적", "수강", "등록금", "졸업", "휴학", "복학",
	"scholarship", "admission", "dorm", "housing", "transcript", "tuition", "enroll",
}

// Trailing particles removed from a token when at least two runes remain. Longer first.
var particleSuffixes = []string{
	"인가요", "입니다", "에서", "으로", "이나",
	"은", "는", "이", "가", "을", "를", "에", "의", "로", "도", "와", "과",
}

// ExtractKeywords returns up to MaxKeywords salient terms of the question,
// priority-vocabulary terms first, otherwise in order of appearance
func ExtractKeywords(question string) []string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}, question)

	seen := make(map[string]struct{})
	var priority, normal []string
	for _, token := range strings.Fields(cleaned) {
		token, stem := trimParticle(token)
		if utf8.RuneCountInString(token) <= 1 {
			continue
		}
		if isStopword(token) || isStopword(stem) {
			continue
		}
		if _, ok := seen[token]; ok {
			continue
		}
		seen[token] = struct{}{}

		if containsAny(token, priorityTerms) {
			priority = append(priority, token)
		} else {
			normal = append(normal, token)
		}
	}

	keywords := append(priority, normal...)
	if len(keywords) > MaxKeywords {
		keywords = keywords[:MaxKeywords]
	}
	return keywords
}

// trimParticle strips one trailing particle. A stem shorter than two runes is not kept as
// the keyword, but it is still returned so "것은" can be dropped as the stopword "것".
func trimParticle(token string) (string, string) {
	for _, suffix := range particleSuffixes {
		if !strings.HasSuffix(token, suffix) {
			continue
		}
		stem := strings.TrimSuffix(token, suffix)
		if utf8.RuneCountInString(stem) >= 2 {
			return stem, stem
		}
		return token, stem
	}
	return token, token
}

func isStopword(w string) bool {
	_, ok := stopwords[w]
	return ok
}

func containsAny(s string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(s, term) {
			return true
		}
	}
	return false
}

func toSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}
