package mocks

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/custodia-labs/sercha-edu/internal/core/ports/driven"
)

var _ driven.LLMService = (*MockLLMService)(nil)

// MockLLMService returns canned JSON answers keyed by schema name.
type MockLLMService struct {
	mu       sync.Mutex
	requests []driven.CompletionRequest

	// Responses maps a schema name to the value decoded into out
	Responses map[string]any

	// CompleteFn overrides Responses when set
	CompleteFn func(req driven.CompletionRequest, out any) error
}

// NewMockLLMService creates a mock with no canned responses
func NewMockLLMService() *MockLLMService {
	return &MockLLMService{Responses: make(map[string]any)}
}

func (m *MockLLMService) Complete(ctx context.Context, req driven.CompletionRequest, out any) error {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	if m.CompleteFn != nil {
		return m.CompleteFn(req, out)
	}

	resp, ok := m.Responses[req.SchemaName]
	if !ok {
		return fmt.Errorf("mock llm: no response for schema %q", req.SchemaName)
	}
	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

func (m *MockLLMService) Model() string {
	return "mock-llm"
}

func (m *MockLLMService) Ping(ctx context.Context) error {
	return nil
}

func (m *MockLLMService) Close() error {
	return nil
}

// Requests returns a copy of the requests received so far
func (m *MockLLMService) Requests() []driven.CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]driven.CompletionRequest, len(m.requests))
	copy(out, m.requests)
	return out
}
