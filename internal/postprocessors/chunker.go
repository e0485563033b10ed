package postprocessors

import (
	"fmt"

	"github.com/custodia-labs/sercha-edu/internal/core/domain"
	"github.com/custodia-labs/sercha-edu/internal/core/ports/driven"
)

// DefaultSeparators are tried in order: paragraphs, lines, sentences,
// words, then single characters.
var DefaultSeparators = []string{"\n\n", "\n", ". ", " ", ""}

// ChunkConfig configures the chunker behavior. Sizes count runes.
type ChunkConfig struct {
	// ChunkSize is the maximum characters per chunk
	ChunkSize int

	// ChunkOverlap is the most characters a chunk shares with its predecessor
	ChunkOverlap int

	// Separators overrides DefaultSeparators when non-empty.
	// The last separator should be "" so any text can be split.
	Separators []string
}

// DefaultChunkConfig returns sensible defaults.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		ChunkSize:    2000,
		ChunkOverlap: 500,
	}
}

// Validate checks the sizes can produce chunks.
func (c ChunkConfig) Validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk size %d must be positive", domain.ErrInvalidInput, c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%w: chunk overlap %d must be in [0, %d)", domain.ErrInvalidInput, c.ChunkOverlap, c.ChunkSize)
	}
	return nil
}

// Chunker splits content recursively on a priority list of separators and
// merges the pieces into overlapping windows.
// Separators stay attached to the piece before them, so the spans between
// consecutive chunk starts tile the input exactly.
type Chunker struct {
	config ChunkConfig
}

// Verify interface compliance
var _ driven.PostProcessor = (*Chunker)(nil)

// NewChunker creates a new chunker with the given config.
func NewChunker(config ChunkConfig) *Chunker {
	if len(config.Separators) == 0 {
		config.Separators = DefaultSeparators
	}
	return &Chunker{config: config}
}

// SplitText chunks text with the given sizes.
// Empty text returns an empty slice.
func SplitText(text string, chunkSize, chunkOverlap int) ([]domain.Chunk, error) {
	config := ChunkConfig{ChunkSize: chunkSize, ChunkOverlap: chunkOverlap}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return NewPipelineWithConfig(config).Process(text), nil
}

// Process splits each input chunk, keeping offsets relative to the document.
func (c *Chunker) Process(chunks []domain.Chunk) []domain.Chunk {
	var result []domain.Chunk
	for _, chunk := range chunks {
		result = append(result, c.splitContent(chunk.Content, chunk.StartOffset)...)
	}
	return result
}

// Name returns the processor name.
func (c *Chunker) Name() string {
	return "chunker"
}

// Order returns 0 - chunker should be first.
func (c *Chunker) Order() int {
	return 0
}

type span struct {
	start, end int
}

func (s span) len() int { return s.end - s.start }

func (c *Chunker) splitContent(content string, baseOffset int) []domain.Chunk {
	text := []rune(content)
	if len(text) == 0 {
		return nil
	}
	pieces := c.atomize(text, span{0, len(text)}, c.config.Separators)
	return c.merge(text, pieces, baseOffset)
}

// atomize cuts s into contiguous pieces no longer than ChunkSize, using the
// first separator present in s and recursing with the remaining separators
// on parts that are still too long.
func (c *Chunker) atomize(text []rune, s span, separators []string) []span {
	if s.len() <= c.config.ChunkSize {
		return []span{s}
	}

	sepIdx := len(separators) - 1
	for i, sep := range separators {
		if sep == "" || indexRunes(text[s.start:s.end], []rune(sep)) >= 0 {
			sepIdx = i
			break
		}
	}
	if sepIdx < 0 || separators[sepIdx] == "" {
		return splitRunes(s)
	}

	var pieces []span
	for _, part := range splitAfter(text, s, []rune(separators[sepIdx])) {
		if part.len() <= c.config.ChunkSize {
			pieces = append(pieces, part)
			continue
		}
		pieces = append(pieces, c.atomize(text, part, separators[sepIdx+1:])...)
	}
	return pieces
}

// merge packs pieces into windows of at most ChunkSize. After a window is
// emitted, pieces are dropped from its front until the kept tail is at most
// ChunkOverlap and the next piece fits.
func (c *Chunker) merge(text []rune, pieces []span, baseOffset int) []domain.Chunk {
	var chunks []domain.Chunk
	var window []span
	total := 0

	emit := func() {
		start, end := window[0].start, window[len(window)-1].end
		chunks = append(chunks, domain.Chunk{
			Content:     string(text[start:end]),
			StartOffset: baseOffset + start,
			EndOffset:   baseOffset + end,
		})
	}

	for _, p := range pieces {
		if total+p.len() > c.config.ChunkSize && len(window) > 0 {
			emit()
			for len(window) > 0 && (total > c.config.ChunkOverlap || total+p.len() > c.config.ChunkSize) {
				total -= window[0].len()
				window = window[1:]
			}
		}
		window = append(window, p)
		total += p.len()
	}
	if len(window) > 0 {
		emit()
	}
	return chunks
}

// splitAfter cuts s after every occurrence of sep.
func splitAfter(text []rune, s span, sep []rune) []span {
	var parts []span
	pieceStart := s.start
	for i := s.start; i+len(sep) <= s.end; {
		if runesEqual(text[i:i+len(sep)], sep) {
			parts = append(parts, span{pieceStart, i + len(sep)})
			i += len(sep)
			pieceStart = i
			continue
		}
		i++
	}
	if pieceStart < s.end {
		parts = append(parts, span{pieceStart, s.end})
	}
	return parts
}

func splitRunes(s span) []span {
	parts := make([]span, 0, s.len())
	for i := s.start; i < s.end; i++ {
		parts = append(parts, span{i, i + 1})
	}
	return parts
}

func indexRunes(haystack, needle []rune) int {
	if len(needle) == 0 {
		return 0
	}
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if runesEqual(haystack[i:i+len(needle)], needle) {
			return i
		}
	}
	return -1
}

func runesEqual(a, b []rune) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
