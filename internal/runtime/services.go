package runtime

import (
	"context"
	"fmt"
	"sync"

	"github.com/custodia-labs/sercha-edu/internal/core/domain"
	"github.com/custodia-labs/sercha-edu/internal/core/ports/driven"
)

// Capabilities reports which backing services are usable
type Capabilities struct {
	Embedding bool `json:"embedding"`
	LLM       bool `json:"llm"`
	Index     bool `json:"index"`
}

// Services holds the external clients built once at startup.
// The LLM is optional; learning endpoints report it missing.
// Thread-safe for concurrent access.
type Services struct {
	mu sync.RWMutex

	embeddingService driven.EmbeddingService
	llmService       driven.LLMService
	index            driven.VectorIndex
}

// NewServices creates an empty registry
func NewServices() *Services {
	return &Services{}
}

// EmbeddingService returns the current embedding service (may be nil)
func (s *Services) EmbeddingService() driven.EmbeddingService {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.embeddingService
}

// LLMService returns the current LLM service (may be nil)
func (s *Services) LLMService() driven.LLMService {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.llmService
}

// Index returns the vector index client (may be nil)
func (s *Services) Index() driven.VectorIndex {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index
}

// SetEmbeddingService updates the embedding service.
// Closes the old service if present.
func (s *Services) SetEmbeddingService(svc driven.EmbeddingService) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.embeddingService != nil {
		_ = s.embeddingService.Close()
	}
	s.embeddingService = svc
}

// SetLLMService updates the LLM service.
// Closes the old service if present.
func (s *Services) SetLLMService(svc driven.LLMService) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.llmService != nil {
		_ = s.llmService.Close()
	}
	s.llmService = svc
}

// SetIndex updates the vector index client
func (s *Services) SetIndex(index driven.VectorIndex) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.index = index
}

// Capabilities returns which services are configured
func (s *Services) Capabilities() Capabilities {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Capabilities{
		Embedding: s.embeddingService != nil,
		LLM:       s.llmService != nil,
		Index:     s.index != nil,
	}
}

// Close shuts down all services
func (s *Services) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.embeddingService != nil {
		_ = s.embeddingService.Close()
		s.embeddingService = nil
	}
	if s.llmService != nil {
		_ = s.llmService.Close()
		s.llmService = nil
	}
	s.index = nil
	return nil
}

// ValidateAndSetEmbedding checks connectivity and the vector size before
// setting the embedding service
func (s *Services) ValidateAndSetEmbedding(ctx context.Context, svc driven.EmbeddingService, dimension int) error {
	if svc == nil {
		s.SetEmbeddingService(nil)
		return nil
	}

	if svc.Dimensions() != dimension {
		_ = svc.Close()
		return fmt.Errorf("%w: model %s produces %d values, index expects %d",
			domain.ErrDimensionMismatch, svc.Model(), svc.Dimensions(), dimension)
	}
	if err := svc.HealthCheck(ctx); err != nil {
		_ = svc.Close()
		return err
	}

	s.SetEmbeddingService(svc)
	return nil
}

// ValidateAndSetLLM validates connectivity before setting LLM service
func (s *Services) ValidateAndSetLLM(ctx context.Context, svc driven.LLMService) error {
	if svc == nil {
		s.SetLLMService(nil)
		return nil
	}

	if err := svc.Ping(ctx); err != nil {
		_ = svc.Close()
		return err
	}

	s.SetLLMService(svc)
	return nil
}

// Ready checks every configured service and returns a status per name
func (s *Services) Ready(ctx context.Context) (map[string]string, bool) {
	embedding, llm, index := s.EmbeddingService(), s.LLMService(), s.Index()

	status := make(map[string]string, 3)
	ok := true
	check := func(name string, configured bool, err error) {
		switch {
		case !configured:
			status[name] = "not configured"
		case err != nil:
			status[name] = err.Error()
			ok = false
		default:
			status[name] = "ok"
		}
	}

	var err error
	if embedding != nil {
		err = embedding.HealthCheck(ctx)
	}
	check("embedding", embedding != nil, err)
	if embedding == nil {
		ok = false
	}

	err = nil
	if index != nil {
		err = index.HealthCheck(ctx)
	}
	check("index", index != nil, err)
	if index == nil {
		ok = false
	}

	err = nil
	if llm != nil {
		err = llm.Ping(ctx)
	}
	check("llm", llm != nil, err)

	return status, ok
}
