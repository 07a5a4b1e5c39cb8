package ingestion

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewChunker_Defaults(t *testing.T) {
	c := NewChunker(ChunkerConfig{})
	assert.Equal(t, DefaultChunkerConfig(), c.config)

	c = NewChunker(ChunkerConfig{TargetSize: 100, MaxSize: 50, Overlap: 200})
	assert.Equal(t, 200, c.config.MaxSize)
	assert.Equal(t, 0, c.config.Overlap)

	c = NewChunker(ChunkerConfig{TargetSize: 300})
	assert.Equal(t, ChunkerConfig{TargetSize: 300, MaxSize: 600, Overlap: 80}, c.config)

	c = NewChunker(ChunkerConfig{TargetSize: 300, Overlap: -1})
	assert.Equal(t, 0, c.config.Overlap)
}

func TestChunker_EmptyContent(t *testing.T) {
	c := NewChunker(ChunkerConfig{})
	assert.Nil(t, c.Chunk(""))
	assert.Nil(t, c.Chunk(" \n\t "))
}

func TestChunker_ShortContentIsOneChunk(t *testing.T) {
	c := NewChunker(ChunkerConfig{})
	chunks := c.Chunk("2025학년도 1학기 수강신청은 2월 10일부터 시작됩니다.\n자세한 일정은 학사공지를 참고하세요.")
	require.Len(t, chunks, 1)
	assert.Equal(t, "2025학년도 1학기 수강신청은 2월 10일부터 시작됩니다. 자세한 일정은 학사공지를 참고하세요.", chunks[0])
}

func TestChunker_GroupsSentencesUpToTarget(t *testing.T) {
	c := NewChunker(ChunkerConfig{TargetSize: 40, MaxSize: 60})
	sentence := "장학금 신청 기간을 반드시 확인하세요." // 21 runes
	content := strings.Repeat(sentence+" ", 6)

	chunks := c.Chunk(content)
	require.Len(t, chunks, 3)
	for _, chunk := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(chunk), 60)
		assert.Equal(t, sentence+" "+sentence, chunk)
	}
}

func TestChunker_Overlap(t *testing.T) {
	c := NewChunker(ChunkerConfig{TargetSize: 30, MaxSize: 60, Overlap: 15})
	content := "첫째 문장은 여기에 있습니다. 둘째 문장도 있어요. 셋째 문장입니다. 넷째 문장입니다."

	chunks := c.Chunk(content)
	require.GreaterOrEqual(t, len(chunks), 2)
	// The second chunk starts with the tail sentence of the first
	first := splitSentences(chunks[0])
	assert.True(t, strings.HasPrefix(chunks[1], first[len(first)-1]))
}

func TestChunker_OverlongSentenceIsCut(t *testing.T) {
	c := NewChunker(ChunkerConfig{TargetSize: 10, MaxSize: 20})
	long := strings.Repeat("가", 45)

	chunks := c.Chunk(long)
	require.Len(t, chunks, 3)
	assert.Equal(t, 20, utf8.RuneCountInString(chunks[0]))
	assert.Equal(t, 5, utf8.RuneCountInString(chunks[2]))
}

func TestSplitSentences(t *testing.T) {
	got := splitSentences("버전 1.5 배포! 문의는 학생처로?  네.\n\n다음 줄")
	assert.Equal(t, []string{"버전 1.5 배포!", "문의는 학생처로?", "네.", "다음 줄"}, got)
}
