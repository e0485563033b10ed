package runtime

import (
	"context"
	"errors"
	"testing"

	"github.com/custodia-labs/sercha-edu/internal/core/domain"
	"github.com/custodia-labs/sercha-edu/internal/core/ports/driven"
)

// mockEmbeddingService is a mock implementation for testing
type mockEmbeddingService struct {
	dimensions     int
	healthCheckErr error
	closed         bool
}

func (m *mockEmbeddingService) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, nil
}

func (m *mockEmbeddingService) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	return nil, nil
}

func (m *mockEmbeddingService) Dimensions() int {
	if m.dimensions == 0 {
		return 1536
	}
	return m.dimensions
}

func (m *mockEmbeddingService) Model() string {
	return "test-model"
}

func (m *mockEmbeddingService) HealthCheck(ctx context.Context) error {
	return m.healthCheckErr
}

func (m *mockEmbeddingService) Close() error {
	m.closed = true
	return nil
}

// mockLLMService is a mock implementation for testing
type mockLLMService struct {
	pingErr error
	closed  bool
}

func (m *mockLLMService) Complete(ctx context.Context, req driven.CompletionRequest, out any) error {
	return nil
}

func (m *mockLLMService) Model() string {
	return "test-llm"
}

func (m *mockLLMService) Ping(ctx context.Context) error {
	return m.pingErr
}

func (m *mockLLMService) Close() error {
	m.closed = true
	return nil
}

// mockIndex only answers health checks
type mockIndex struct {
	driven.VectorIndex
	healthErr error
}

func (m *mockIndex) HealthCheck(ctx context.Context) error {
	return m.healthErr
}

func TestNewServices(t *testing.T) {
	services := NewServices()

	if services == nil {
		t.Fatal("expected non-nil services")
	}
	if caps := services.Capabilities(); caps.Embedding || caps.LLM || caps.Index {
		t.Errorf("expected no capabilities, got %+v", caps)
	}
}

func TestServices_EmbeddingService(t *testing.T) {
	services := NewServices()

	if services.EmbeddingService() != nil {
		t.Error("expected nil embedding service initially")
	}

	mock := &mockEmbeddingService{}
	services.SetEmbeddingService(mock)

	if services.EmbeddingService() == nil {
		t.Error("expected non-nil embedding service after set")
	}
	if !services.Capabilities().Embedding {
		t.Error("expected embedding to be available")
	}

	services.SetEmbeddingService(nil)
	if services.EmbeddingService() != nil {
		t.Error("expected nil embedding service after clearing")
	}
	if services.Capabilities().Embedding {
		t.Error("expected embedding to be unavailable")
	}
	if !mock.closed {
		t.Error("expected old service to be closed")
	}
}

func TestServices_LLMService(t *testing.T) {
	services := NewServices()

	if services.LLMService() != nil {
		t.Error("expected nil LLM service initially")
	}

	mock := &mockLLMService{}
	services.SetLLMService(mock)

	if !services.Capabilities().LLM {
		t.Error("expected LLM to be available")
	}

	services.SetLLMService(nil)
	if services.LLMService() != nil {
		t.Error("expected nil LLM service after clearing")
	}
	if !mock.closed {
		t.Error("expected old service to be closed")
	}
}

func TestServices_ValidateAndSetEmbedding(t *testing.T) {
	services := NewServices()
	ctx := context.Background()

	t.Run("successful validation", func(t *testing.T) {
		mock := &mockEmbeddingService{}
		if err := services.ValidateAndSetEmbedding(ctx, mock, 1536); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if services.EmbeddingService() == nil {
			t.Error("expected embedding service to be set")
		}
	})

	t.Run("failed validation", func(t *testing.T) {
		mock := &mockEmbeddingService{healthCheckErr: errors.New("connection failed")}
		if err := services.ValidateAndSetEmbedding(ctx, mock, 1536); err == nil {
			t.Error("expected error")
		}
		if !mock.closed {
			t.Error("expected failed service to be closed")
		}
	})

	t.Run("dimension mismatch", func(t *testing.T) {
		mock := &mockEmbeddingService{dimensions: 768}
		err := services.ValidateAndSetEmbedding(ctx, mock, 1536)
		if !errors.Is(err, domain.ErrDimensionMismatch) {
			t.Errorf("expected ErrDimensionMismatch, got %v", err)
		}
		if !mock.closed {
			t.Error("expected rejected service to be closed")
		}
	})

	t.Run("nil service", func(t *testing.T) {
		if err := services.ValidateAndSetEmbedding(ctx, nil, 1536); err != nil {
			t.Errorf("unexpected error for nil service: %v", err)
		}
	})
}

func TestServices_ValidateAndSetLLM(t *testing.T) {
	services := NewServices()
	ctx := context.Background()

	t.Run("successful validation", func(t *testing.T) {
		mock := &mockLLMService{}
		if err := services.ValidateAndSetLLM(ctx, mock); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if services.LLMService() == nil {
			t.Error("expected LLM service to be set")
		}
	})

	t.Run("failed validation", func(t *testing.T) {
		mock := &mockLLMService{pingErr: errors.New("connection failed")}
		if err := services.ValidateAndSetLLM(ctx, mock); err == nil {
			t.Error("expected error")
		}
		if !mock.closed {
			t.Error("expected failed service to be closed")
		}
	})

	t.Run("nil service", func(t *testing.T) {
		if err := services.ValidateAndSetLLM(ctx, nil); err != nil {
			t.Errorf("unexpected error for nil service: %v", err)
		}
	})
}

func TestServices_Close(t *testing.T) {
	services := NewServices()

	embMock := &mockEmbeddingService{}
	llmMock := &mockLLMService{}

	services.SetEmbeddingService(embMock)
	services.SetLLMService(llmMock)
	services.SetIndex(&mockIndex{})

	if err := services.Close(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	if !embMock.closed {
		t.Error("expected embedding service to be closed")
	}
	if !llmMock.closed {
		t.Error("expected LLM service to be closed")
	}
	if services.Index() != nil {
		t.Error("expected index to be cleared")
	}
}

func TestServices_ReplaceService_ClosesOld(t *testing.T) {
	services := NewServices()

	old := &mockEmbeddingService{}
	replacement := &mockEmbeddingService{}

	services.SetEmbeddingService(old)
	services.SetEmbeddingService(replacement)

	if !old.closed {
		t.Error("expected old service to be closed when replaced")
	}
	if replacement.closed {
		t.Error("expected new service to remain open")
	}
}

func TestServices_Ready(t *testing.T) {
	ctx := context.Background()

	t.Run("all healthy", func(t *testing.T) {
		services := NewServices()
		services.SetEmbeddingService(&mockEmbeddingService{})
		services.SetLLMService(&mockLLMService{})
		services.SetIndex(&mockIndex{})

		status, ok := services.Ready(ctx)
		if !ok {
			t.Errorf("expected ready, got %v", status)
		}
		for _, name := range []string{"embedding", "index", "llm"} {
			if status[name] != "ok" {
				t.Errorf("expected %s ok, got %q", name, status[name])
			}
		}
	})

	t.Run("llm is optional", func(t *testing.T) {
		services := NewServices()
		services.SetEmbeddingService(&mockEmbeddingService{})
		services.SetIndex(&mockIndex{})

		status, ok := services.Ready(ctx)
		if !ok {
			t.Errorf("expected ready without llm, got %v", status)
		}
		if status["llm"] != "not configured" {
			t.Errorf("expected llm not configured, got %q", status["llm"])
		}
	})

	t.Run("index down", func(t *testing.T) {
		services := NewServices()
		services.SetEmbeddingService(&mockEmbeddingService{})
		services.SetIndex(&mockIndex{healthErr: errors.New("index unreachable")})

		status, ok := services.Ready(ctx)
		if ok {
			t.Error("expected not ready")
		}
		if status["index"] != "index unreachable" {
			t.Errorf("unexpected index status %q", status["index"])
		}
	})

	t.Run("embedding missing", func(t *testing.T) {
		services := NewServices()
		services.SetIndex(&mockIndex{})

		if _, ok := services.Ready(ctx); ok {
			t.Error("expected not ready without embedding service")
		}
	})
}
