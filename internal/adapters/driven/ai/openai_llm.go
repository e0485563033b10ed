package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/custodia-labs/sercha-edu/internal/adapters/driven/restclient"
	"github.com/custodia-labs/sercha-edu/internal/core/domain"
	"github.com/custodia-labs/sercha-edu/internal/core/ports/driven"
)

// Ensure OpenAILLM implements LLMService
var _ driven.LLMService = (*OpenAILLM)(nil)

const defaultLLMModel = "gpt-4o-2024-08-06"

// ErrRefusal is returned when the model declines to answer
var ErrRefusal = errors.New("model refused the request")

// OpenAILLM implements LLMService with chat completions and structured outputs.
type OpenAILLM struct {
	model  string
	client *restclient.Client
	http   *http.Client

	// schemas caches generated JSON schemas by Go type
	schemas sync.Map
}

// NewOpenAILLM creates a new OpenAI chat client
func NewOpenAILLM(apiKey, model, baseURL string, opts restclient.Options) (*OpenAILLM, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: OpenAI API key is required", domain.ErrInvalidInput)
	}
	if model == "" {
		model = defaultLLMModel
	}
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}

	return &OpenAILLM{
		model:  model,
		client: restclient.New(baseURL, map[string]string{"Authorization": "Bearer " + apiKey}, opts),
		http:   opts.HTTPClient,
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type jsonSchemaFormat struct {
	Name   string             `json:"name"`
	Schema *jsonschema.Schema `json:"schema"`
	Strict bool               `json:"strict"`
}

type responseFormat struct {
	Type       string            `json:"type"`
	JSONSchema *jsonSchemaFormat `json:"json_schema,omitempty"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content *string `json:"content"`
			Refusal *string `json:"refusal"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// Complete sends one chat completion whose answer must match out's JSON schema.
func (l *OpenAILLM) Complete(ctx context.Context, req driven.CompletionRequest, out any) error {
	rv := reflect.ValueOf(out)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("%w: out must be a non-nil pointer", domain.ErrInvalidInput)
	}

	schema, err := l.schemaFor(rv.Type().Elem())
	if err != nil {
		return err
	}

	name := req.SchemaName
	if name == "" {
		name = strings.ToLower(rv.Type().Elem().Name())
	}

	messages := make([]chatMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

	body := chatRequest{
		Model:       l.model,
		Messages:    messages,
		Temperature: 0,
		ResponseFormat: &responseFormat{
			Type: "json_schema",
			JSONSchema: &jsonSchemaFormat{
				Name:   name,
				Schema: schema,
			},
		},
	}

	var resp chatResponse
	if err := l.client.Do(ctx, http.MethodPost, "/chat/completions", body, &resp); err != nil {
		return fmt.Errorf("%w: chat completion: %w", domain.ErrServiceUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return fmt.Errorf("%w: no choices returned", domain.ErrServiceUnavailable)
	}

	msg := resp.Choices[0].Message
	if msg.Refusal != nil && *msg.Refusal != "" {
		return fmt.Errorf("%w: %s", ErrRefusal, *msg.Refusal)
	}
	if msg.Content == nil || *msg.Content == "" {
		return fmt.Errorf("%w: empty completion", domain.ErrServiceUnavailable)
	}
	if err := json.Unmarshal([]byte(*msg.Content), out); err != nil {
		return fmt.Errorf("failed to decode structured output: %w", err)
	}
	return nil
}

func (l *OpenAILLM) schemaFor(t reflect.Type) (*jsonschema.Schema, error) {
	if cached, ok := l.schemas.Load(t); ok {
		return cached.(*jsonschema.Schema), nil
	}
	schema, err := jsonschema.ForType(t, &jsonschema.ForOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to build schema for %s: %w", t, err)
	}
	l.schemas.Store(t, schema)
	return schema, nil
}

// Model returns the model name being used
func (l *OpenAILLM) Model() string {
	return l.model
}

// Ping verifies the API key and model are accepted
func (l *OpenAILLM) Ping(ctx context.Context) error {
	var out struct{}
	return l.client.Do(ctx, http.MethodGet, "/models/"+l.model, nil, &out)
}

// Close releases idle connections
func (l *OpenAILLM) Close() error {
	l.http.CloseIdleConnections()
	return nil
}
