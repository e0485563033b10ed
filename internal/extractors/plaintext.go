package extractors

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/sercha-edu/internal/core/domain"
	"github.com/custodia-labs/sercha-edu/internal/core/ports/driven"
)

var _ driven.TextExtractor = (*PlaintextExtractor)(nil)

// MaxPlaintextSize bounds the files the plain text extractor reads.
const MaxPlaintextSize = 32 << 20

// PlaintextExtractor reads UTF-8 text files. Markdown files whose first
// line is a "# " heading report it as the title.
type PlaintextExtractor struct{}

// NewPlaintextExtractor creates a plain text extractor.
func NewPlaintextExtractor() *PlaintextExtractor {
	return &PlaintextExtractor{}
}

func (e *PlaintextExtractor) Formats() []string {
	return []string{"txt", "text", "md", "markdown", "html", "htm"}
}

func (e *PlaintextExtractor) Extract(ctx context.Context, path string) (*domain.ExtractedDocument, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrExtraction, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", domain.ErrExtraction, path)
	}
	if info.Size() > MaxPlaintextSize {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", domain.ErrExtraction, path, MaxPlaintextSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrExtraction, err)
	}
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("%w: %s is not valid UTF-8", domain.ErrExtraction, path)
	}

	text := string(data)
	format := domain.FormatFromPath(path)
	metadata := map[string]string{}
	if format == "md" || format == "markdown" {
		if title := markdownTitle(text); title != "" {
			metadata["title"] = title
		}
	}

	return &domain.ExtractedDocument{
		Text:     text,
		Metadata: metadata,
		Format:   format,
	}, nil
}

func markdownTitle(text string) string {
	scanner := bufio.NewScanner(strings.NewReader(text))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "# "))
		}
		return ""
	}
	return ""
}
