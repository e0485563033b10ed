package domain

import (
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

// DifficultyUnknown is stored when a document carries no difficulty rating
const DifficultyUnknown = "unknown"

// UnknownTitle is reported for index records that carry no title
const UnknownTitle = "Unknown Title"

// Document identifies a source artifact inside a subject namespace
type Document struct {
	Title      string `json:"title"`
	Subject    string `json:"subject"`
	Format     string `json:"format"`
	Difficulty string `json:"difficulty"`
	SourcePath string `json:"source_path,omitempty"`
}

// ExtractedDocument is the raw output of a text extractor
type ExtractedDocument struct {
	Text      string            `json:"text"`
	Metadata  map[string]string `json:"metadata"`
	Format    string            `json:"format"`
	PageCount int               `json:"page_count,omitempty"`
}

// Title returns the metadata title, or "" when absent
func (e *ExtractedDocument) Title() string {
	if e == nil || e.Metadata == nil {
		return ""
	}
	return strings.TrimSpace(e.Metadata["title"])
}

// TitleFromPath derives a document title from a file name.
func TitleFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// FormatFromPath returns the lower-cased file extension without its dot.
func FormatFromPath(path string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
}

// Chunk is an ordered, possibly overlapping span of a document's text.
// Offsets are rune offsets into the extracted text, end exclusive.
type Chunk struct {
	Index       int    `json:"index"`
	Content     string `json:"content"`
	StartOffset int    `json:"start_offset"`
	EndOffset   int    `json:"end_offset"`
}

// RecordID builds the natural key of a chunk's vector record
func RecordID(title string, index int) string {
	return fmt.Sprintf("%s_%d", title, index)
}

// RecordMetadata is the metadata stored alongside every vector.
// Text always holds the exact chunk content that was embedded.
type RecordMetadata struct {
	Title       string `json:"title"`
	Subject     string `json:"subject"`
	Format      string `json:"format"`
	Difficulty  string `json:"difficulty"`
	Text        string `json:"text"`
	ChunkIndex  int    `json:"chunk_index"`
	StartOffset int    `json:"start_offset"`
	EndOffset   int    `json:"end_offset"`
}

// Map flattens the metadata into the key/value shape accepted by index services.
// "type" and "extension" mirror the format for older readers.
func (m RecordMetadata) Map() map[string]any {
	return map[string]any{
		"title":        m.Title,
		"subject":      m.Subject,
		"format":       m.Format,
		"type":         m.Format,
		"extension":    m.Format,
		"difficulty":   m.Difficulty,
		"text":         m.Text,
		"chunk_index":  m.ChunkIndex,
		"start_offset": m.StartOffset,
		"end_offset":   m.EndOffset,
	}
}

// MetadataFromMap reads record metadata back from an index response.
// Numbers may arrive as float64 (JSON) or int; missing keys read as zero values.
func MetadataFromMap(raw map[string]any) RecordMetadata {
	m := RecordMetadata{
		Title:       stringField(raw, "title"),
		Subject:     stringField(raw, "subject"),
		Format:      stringField(raw, "format"),
		Difficulty:  stringField(raw, "difficulty"),
		Text:        stringField(raw, "text"),
		ChunkIndex:  intField(raw, "chunk_index"),
		StartOffset: intField(raw, "start_offset"),
		EndOffset:   intField(raw, "end_offset"),
	}
	if m.Format == "" {
		m.Format = stringField(raw, "type")
	}
	return m
}

func stringField(raw map[string]any, key string) string {
	if v, ok := raw[key].(string); ok {
		return v
	}
	return ""
}

func intField(raw map[string]any, key string) int {
	switch v := raw[key].(type) {
	case float64:
		return int(v)
	case float32:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	case string:
		n, _ := strconv.Atoi(v)
		return n
	}
	return 0
}

// VectorRecord is the persisted unit in the vector index
type VectorRecord struct {
	ID       string         `json:"id"`
	Values   []float32      `json:"values"`
	Metadata RecordMetadata `json:"metadata"`
}

// IngestResult summarises a completed ingestion
type IngestResult struct {
	Title        string        `json:"title"`
	Subject      string        `json:"subject"`
	Format       string        `json:"format"`
	ChunkCount   int           `json:"chunk_count"`
	RecordIDs    []string      `json:"record_ids"`
	StaleRemoved int           `json:"stale_removed"`
	Duration     time.Duration `json:"duration" swaggertype:"integer" example:"1500000"`
}

// IngestionRecord is the ledger entry kept for each ingested document
type IngestionRecord struct {
	Subject    string    `json:"subject"`
	Title      string    `json:"title"`
	Format     string    `json:"format"`
	SourcePath string    `json:"source_path"`
	ChunkCount int       `json:"chunk_count"`
	IngestedAt time.Time `json:"ingested_at"`
}

// Passage is one stored chunk returned by an exact-filter fetch
type Passage struct {
	Title       string `json:"title"`
	Text        string `json:"text"`
	ChunkIndex  int    `json:"chunk_index"`
	StartOffset int    `json:"start_offset"`
	EndOffset   int    `json:"end_offset"`
}

// SortPassages orders passages by chunk index.
func SortPassages(passages []Passage) {
	sort.SliceStable(passages, func(i, j int) bool {
		return passages[i].ChunkIndex < passages[j].ChunkIndex
	})
}

// ReconstructText rebuilds a document's text from its passages by dropping
// the span each passage shares with its predecessor. Passages without usable
// offsets are joined with a newline.
func ReconstructText(passages []Passage) string {
	if len(passages) == 0 {
		return ""
	}
	sorted := make([]Passage, len(passages))
	copy(sorted, passages)
	SortPassages(sorted)

	var b strings.Builder
	b.WriteString(sorted[0].Text)
	prevEnd := sorted[0].EndOffset
	for _, p := range sorted[1:] {
		runes := []rune(p.Text)
		if p.EndOffset <= p.StartOffset || prevEnd == 0 {
			b.WriteString("\n")
			b.WriteString(p.Text)
			prevEnd = p.EndOffset
			continue
		}
		shared := prevEnd - p.StartOffset
		if shared < 0 {
			shared = 0
		}
		if shared > len(runes) {
			shared = len(runes)
		}
		b.WriteString(string(runes[shared:]))
		prevEnd = p.EndOffset
	}
	return b.String()
}
