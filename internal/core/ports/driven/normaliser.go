package driven

import "github.com/custodia-labs/sercha-edu/internal/core/domain"

// Normaliser cleans extracted text before chunking.
type Normaliser interface {
	// Normalise transforms raw extracted text into clean text.
	// The format helps determine the appropriate processing.
	Normalise(content string, format string) string

	// SupportedFormats returns formats this normaliser handles.
	// "*" matches any format.
	SupportedFormats() []string

	// Priority returns the normaliser priority (higher = more specific).
	//   50-89:  Format-specific (PDF, Markdown, HTML)
	//   1-9:    Fallback
	Priority() int
}

// NormaliserRegistry manages content normalisers.
// When multiple normalisers match a format, the highest priority one is used.
type NormaliserRegistry interface {
	// Get retrieves the best-matching normaliser for a format.
	// Returns nil if no normaliser is registered for the format.
	Get(format string) Normaliser

	// GetAll retrieves all normalisers that match a format, highest priority first.
	GetAll(format string) []Normaliser

	// Register registers a normaliser.
	Register(normaliser Normaliser)

	// List returns all registered formats.
	List() []string
}

// PostProcessor transforms document text or chunks.
// Processors form a pipeline that starts with the chunker.
type PostProcessor interface {
	// Process applies post-processing to content chunks.
	// The first processor (Chunker) receives a single chunk with the full content.
	Process(chunks []domain.Chunk) []domain.Chunk

	// Name returns the processor name for logging/debugging.
	Name() string

	// Order returns the processor order in the pipeline (lower = earlier).
	Order() int
}

// PostProcessorPipeline chains multiple post-processors in order.
type PostProcessorPipeline interface {
	// Process applies all processors in order to the raw document text.
	// Output chunks carry consecutive indexes starting at 0.
	Process(content string) []domain.Chunk

	// Add adds a processor to the pipeline.
	Add(processor PostProcessor)

	// List returns processor names in order.
	List() []string
}
