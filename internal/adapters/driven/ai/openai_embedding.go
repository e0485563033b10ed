package ai

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/custodia-labs/sercha-edu/internal/adapters/driven/restclient"
	"github.com/custodia-labs/sercha-edu/internal/core/domain"
	"github.com/custodia-labs/sercha-edu/internal/core/ports/driven"
)

// Ensure OpenAIEmbedding implements EmbeddingService
var _ driven.EmbeddingService = (*OpenAIEmbedding)(nil)

const (
	defaultOpenAIBaseURL   = "https://api.openai.com/v1"
	defaultEmbeddingModel  = "text-embedding-3-small"
	defaultEmbeddingDimens = 1536
)

// OpenAIEmbedding implements EmbeddingService using OpenAI's embedding API
type OpenAIEmbedding struct {
	model      string
	baseURL    string
	dimensions int

	// sendDimensions requests shortened vectors from models that support it
	sendDimensions bool

	client *restclient.Client
	http   *http.Client
}

// Model dimensions for OpenAI embedding models
var openAIModelDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// NewOpenAIEmbedding creates a new OpenAI embedding service.
// A dimensions value of 0 uses the model's native size.
func NewOpenAIEmbedding(apiKey, model, baseURL string, dimensions int, opts restclient.Options) (*OpenAIEmbedding, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: OpenAI API key is required", domain.ErrInvalidInput)
	}
	if model == "" {
		model = defaultEmbeddingModel
	}
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}

	native, known := openAIModelDimensions[model]
	if !known {
		native = defaultEmbeddingDimens
	}

	send := false
	switch {
	case dimensions <= 0:
		dimensions = native
	case dimensions != native:
		// only the v3 models accept a dimensions parameter
		if !strings.HasPrefix(model, "text-embedding-3") {
			return nil, fmt.Errorf("%w: model %s produces %d dimensions, %d requested",
				domain.ErrDimensionMismatch, model, native, dimensions)
		}
		send = true
	}

	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}

	return &OpenAIEmbedding{
		model:          model,
		baseURL:        strings.TrimRight(baseURL, "/"),
		dimensions:     dimensions,
		sendDimensions: send,
		client:         restclient.New(baseURL, map[string]string{"Authorization": "Bearer " + apiKey}, opts),
		http:           opts.HTTPClient,
	}, nil
}

// embeddingRequest is the request body for OpenAI embedding API
type embeddingRequest struct {
	Input          []string `json:"input"`
	Model          string   `json:"model"`
	EncodingFormat string   `json:"encoding_format,omitempty"`
	Dimensions     int      `json:"dimensions,omitempty"`
}

// embeddingResponse is the response from OpenAI embedding API
type embeddingResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Model string `json:"model"`
	Usage struct {
		PromptTokens int `json:"prompt_tokens"`
		TotalTokens  int `json:"total_tokens"`
	} `json:"usage"`
}

// Embed generates embeddings for multiple texts, one per input in input order.
func (e *OpenAIEmbedding) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	for i, t := range texts {
		if t == "" {
			return nil, fmt.Errorf("%w: input %d is empty", domain.ErrInvalidInput, i)
		}
	}

	reqBody := embeddingRequest{
		Input:          texts,
		Model:          e.model,
		EncodingFormat: "float",
	}
	if e.sendDimensions {
		reqBody.Dimensions = e.dimensions
	}

	var resp embeddingResponse
	if err := e.client.Do(ctx, http.MethodPost, "/embeddings", reqBody, &resp); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingFailure, err)
	}

	// Results are matched back by index, not by response order
	embeddings := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(embeddings) {
			return nil, fmt.Errorf("%w: response index %d out of range", domain.ErrEmbeddingFailure, d.Index)
		}
		embeddings[d.Index] = d.Embedding
	}
	for i, emb := range embeddings {
		if len(emb) == 0 {
			return nil, fmt.Errorf("%w: no vector returned for input %d", domain.ErrEmbeddingFailure, i)
		}
		if len(emb) != e.dimensions {
			return nil, fmt.Errorf("%w: got %d dimensions, expected %d",
				domain.ErrDimensionMismatch, len(emb), e.dimensions)
		}
	}

	return embeddings, nil
}

// EmbedQuery generates an embedding for a search query
func (e *OpenAIEmbedding) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	embeddings, err := e.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

// Dimensions returns the embedding dimension size
func (e *OpenAIEmbedding) Dimensions() int {
	return e.dimensions
}

// Model returns the model name being used
func (e *OpenAIEmbedding) Model() string {
	return e.model
}

// HealthCheck verifies the embedding service is available
func (e *OpenAIEmbedding) HealthCheck(ctx context.Context) error {
	_, err := e.EmbedQuery(ctx, "health check")
	return err
}

// Close releases resources held by the embedding service
func (e *OpenAIEmbedding) Close() error {
	e.http.CloseIdleConnections()
	return nil
}
