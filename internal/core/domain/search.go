package domain

import "time"

const (
	// DefaultSearchTopK is the number of candidates requested for a semantic search
	DefaultSearchTopK = 5
	// DefaultSearchThreshold is the minimum score a search match must reach
	DefaultSearchThreshold = 0.45
	// DefaultFetchTopK is large enough to capture every chunk of one document
	DefaultFetchTopK = 100
	// DefaultListTopK bounds the records scanned when listing titles
	DefaultListTopK = 1000
)

// SearchOptions configures a semantic search. A nil Threshold means the
// configured default; zero keeps every match.
type SearchOptions struct {
	TopK      int      `json:"top_k"`
	Threshold *float64 `json:"threshold,omitempty"`
}

// DefaultSearchOptions returns sensible defaults
func DefaultSearchOptions() SearchOptions {
	return SearchOptions{
		TopK:      DefaultSearchTopK,
		Threshold: ScoreThreshold(DefaultSearchThreshold),
	}
}

// ScoreThreshold returns v as an explicit SearchOptions threshold
func ScoreThreshold(v float64) *float64 {
	return &v
}

// Match is one semantic search hit. Higher scores are more similar.
type Match struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Score      float64 `json:"score"`
	Text       string  `json:"text"`
	ChunkIndex int     `json:"chunk_index"`
}

// SearchResult represents the result of a search query
type SearchResult struct {
	Query     string        `json:"query"`
	Subject   string        `json:"subject"`
	Threshold float64       `json:"threshold"`
	Matches   []Match       `json:"matches"`
	Took      time.Duration `json:"took" swaggertype:"integer" example:"1500000"`
}

// Empty reports whether no match cleared the threshold
func (r *SearchResult) Empty() bool {
	return r == nil || len(r.Matches) == 0
}

// VectorQuery is a similarity query scoped to one namespace.
// Filter holds equality constraints on metadata fields.
type VectorQuery struct {
	Namespace       string            `json:"namespace"`
	Vector          []float32         `json:"vector"`
	TopK            int               `json:"top_k"`
	Filter          map[string]string `json:"filter,omitempty"`
	IncludeMetadata bool              `json:"include_metadata"`
}

// VectorMatch is a raw match returned by the vector index
type VectorMatch struct {
	ID       string         `json:"id"`
	Score    float64        `json:"score"`
	Metadata RecordMetadata `json:"metadata"`
}

// NamespaceStats describes one namespace of the index
type NamespaceStats struct {
	VectorCount int64 `json:"vector_count"`
}

// IndexStats is the index-wide statistics snapshot
type IndexStats struct {
	Dimension        int                       `json:"dimension"`
	TotalVectorCount int64                     `json:"total_vector_count"`
	Namespaces       map[string]NamespaceStats `json:"namespaces"`
}

// IndexSpec describes the index to create at startup
type IndexSpec struct {
	Name      string `json:"name"`
	Dimension int    `json:"dimension"`
	Metric    string `json:"metric"`
	Cloud     string `json:"cloud"`
	Region    string `json:"region"`
}

// ZeroVector returns a neutral query vector of the given dimension
func ZeroVector(dimension int) []float32 {
	return make([]float32, dimension)
}
