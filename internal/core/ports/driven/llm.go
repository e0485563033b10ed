package driven

import (
	"context"
)

// CompletionRequest is a single structured completion call
type CompletionRequest struct {
	// System is the system instruction; may be empty
	System string

	// Prompt is the user message
	Prompt string

	// SchemaName names the structured output for the provider
	SchemaName string
}

// LLMService provides structured completions from a hosted language model
type LLMService interface {
	// Complete sends the request and decodes the model's JSON answer into out.
	// out must be a pointer to a struct; its JSON schema constrains the answer.
	Complete(ctx context.Context, req CompletionRequest, out any) error

	// Model returns the model name being used
	Model() string

	// Ping verifies the LLM service is available
	Ping(ctx context.Context) error

	// Close releases resources held by the LLM service
	Close() error
}
