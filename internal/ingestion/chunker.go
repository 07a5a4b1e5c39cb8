// Package ingestion splits campus documents into chunks, embeds them and writes them to the stores.
package ingestion

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// ChunkerConfig sizes are measured in runes
type ChunkerConfig struct {
	TargetSize int // flush once a chunk reaches this size
	MaxSize    int // never grow a chunk past this size
	Overlap    int // trailing runes of sentences repeated at the start of the next chunk
}

// DefaultChunkerConfig fits notices and regulation pages into a few hundred characters per chunk
func DefaultChunkerConfig() ChunkerConfig {
	return ChunkerConfig{TargetSize: 500, MaxSize: 1000, Overlap: 80}
}

// Chunker groups sentences into chunks
type Chunker struct {
	config ChunkerConfig
}

// NewChunker creates a Chunker, filling zero fields from DefaultChunkerConfig. A negative
// Overlap turns overlap off.
func NewChunker(config ChunkerConfig) *Chunker {
	def := DefaultChunkerConfig()
	if config.TargetSize <= 0 {
		config.TargetSize = def.TargetSize
	}
	if config.MaxSize < config.TargetSize {
		config.MaxSize = 2 * config.TargetSize
	}
	if config.Overlap == 0 {
		config.Overlap = def.Overlap
	}
	if config.Overlap < 0 || config.Overlap >= config.TargetSize {
		config.Overlap = 0
	}
	return &Chunker{config: config}
}

// Chunk splits content at sentence boundaries. Paragraph breaks are sentence boundaries too.
func (c *Chunker) Chunk(content string) []string {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil
	}

	var (
		chunks  []string
		current []string
		size    int
		fresh   bool // current holds more than carried-over overlap
	)

	flush := func() {
		if fresh {
			chunks = append(chunks, strings.Join(current, " "))
		}
		current, size = c.overlap(current)
		fresh = false
	}

	for _, sentence := range splitSentences(content) {
		n := utf8.RuneCountInString(sentence)

		if n > c.config.MaxSize {
			flush()
			current, size = nil, 0
			chunks = append(chunks, splitRunes(sentence, c.config.MaxSize)...)
			continue
		}

		if size > 0 && size+1+n > c.config.MaxSize {
			flush()
			if size+1+n > c.config.MaxSize {
				current, size = nil, 0
			}
		}

		if size > 0 {
			size++ // joining space
		}
		current = append(current, sentence)
		size += n
		fresh = true

		if size >= c.config.TargetSize {
			flush()
		}
	}
	if fresh {
		chunks = append(chunks, strings.Join(current, " "))
	}
	return chunks
}

// overlap keeps the trailing sentences of a flushed chunk that fit in the overlap budget
func (c *Chunker) overlap(sentences []string) ([]string, int) {
	if c.config.Overlap <= 0 {
		return nil, 0
	}
	var (
		kept []string
		size int
	)
	for i := len(sentences) - 1; i >= 0; i-- {
		n := utf8.RuneCountInString(sentences[i])
		if size+n > c.config.Overlap {
			break
		}
		kept = append([]string{sentences[i]}, kept...)
		size += n
	}
	if len(kept) > 1 {
		size += len(kept) - 1
	}
	return kept, size
}

// splitSentences breaks text after '.', '!', '?' or '。' followed by whitespace, and at line breaks
func splitSentences(text string) []string {
	var (
		sentences []string
		current   strings.Builder
	)
	emit := func() {
		if s := strings.Join(strings.Fields(current.String()), " "); s != "" {
			sentences = append(sentences, s)
		}
		current.Reset()
	}

	runes := []rune(text)
	for i, r := range runes {
		if r == '\n' {
			emit()
			continue
		}
		current.WriteRune(r)
		switch r {
		case '.', '!', '?', '。':
			if i+1 >= len(runes) || unicode.IsSpace(runes[i+1]) {
				emit()
			}
		}
	}
	emit()
	return sentences
}

// splitRunes cuts an overlong sentence into pieces of at most size runes
func splitRunes(s string, size int) []string {
	runes := []rune(s)
	var out []string
	for len(runes) > 0 {
		end := min(size, len(runes))
		if piece := strings.TrimSpace(string(runes[:end])); piece != "" {
			out = append(out, piece)
		}
		runes = runes[end:]
	}
	return out
}
