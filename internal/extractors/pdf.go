package extractors

import (
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/custodia-labs/sercha-edu/internal/core/domain"
	"github.com/custodia-labs/sercha-edu/internal/core/ports/driven"
)

var _ driven.TextExtractor = (*PDFExtractor)(nil)

// PDFExtractor reads the text layer of PDF files, one form feed between
// pages, and the Title/Author/Subject entries of the document info.
type PDFExtractor struct{}

// NewPDFExtractor creates a PDF extractor.
func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{}
}

func (e *PDFExtractor) Formats() []string {
	return []string{"pdf"}
}

func (e *PDFExtractor) Extract(ctx context.Context, path string) (doc *domain.ExtractedDocument, err error) {
	// the parser panics on some malformed files
	defer func() {
		if r := recover(); r != nil {
			doc = nil
			err = fmt.Errorf("%w: parse %s: %v", domain.ErrExtraction, path, r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", domain.ErrExtraction, path, err)
	}
	defer f.Close()

	pages := r.NumPage()
	var b strings.Builder
	for i := 1; i <= pages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("%w: page %d of %s: %v", domain.ErrExtraction, i, path, err)
		}
		if i > 1 {
			b.WriteString("\f")
		}
		b.WriteString(text)
	}

	metadata := map[string]string{}
	info := r.Trailer().Key("Info")
	for _, key := range []string{"Title", "Author", "Subject"} {
		if v := strings.TrimSpace(info.Key(key).Text()); v != "" {
			metadata[strings.ToLower(key)] = v
		}
	}

	return &domain.ExtractedDocument{
		Text:      b.String(),
		Metadata:  metadata,
		Format:    "pdf",
		PageCount: pages,
	}, nil
}
