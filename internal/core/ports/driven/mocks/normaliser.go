package mocks

import (
	"github.com/custodia-labs/sercha-edu/internal/core/ports/driven"
)

// MockNormaliser is a mock implementation of Normaliser for testing.
// Without NormaliseFn it returns content unchanged.
type MockNormaliser struct {
	SupportedFormatsFn func() []string
	PriorityFn         func() int
	NormaliseFn        func(content string, format string) string
}

func NewMockNormaliser() *MockNormaliser {
	return &MockNormaliser{}
}

func (m *MockNormaliser) Normalise(content string, format string) string {
	if m.NormaliseFn != nil {
		return m.NormaliseFn(content, format)
	}
	return content
}

func (m *MockNormaliser) SupportedFormats() []string {
	if m.SupportedFormatsFn != nil {
		return m.SupportedFormatsFn()
	}
	return []string{"*"}
}

func (m *MockNormaliser) Priority() int {
	if m.PriorityFn != nil {
		return m.PriorityFn()
	}
	return 100
}

// MockNormaliserRegistry is a mock implementation of NormaliserRegistry for testing
type MockNormaliserRegistry struct {
	GetFn      func(format string) driven.Normaliser
	normaliser driven.Normaliser
}

func NewMockNormaliserRegistry() *MockNormaliserRegistry {
	return &MockNormaliserRegistry{
		normaliser: NewMockNormaliser(),
	}
}

func (m *MockNormaliserRegistry) Get(format string) driven.Normaliser {
	if m.GetFn != nil {
		return m.GetFn(format)
	}
	return m.normaliser
}

func (m *MockNormaliserRegistry) GetAll(format string) []driven.Normaliser {
	if n := m.Get(format); n != nil {
		return []driven.Normaliser{n}
	}
	return nil
}

func (m *MockNormaliserRegistry) Register(normaliser driven.Normaliser) {
	m.normaliser = normaliser
}

func (m *MockNormaliserRegistry) List() []string {
	if m.normaliser != nil {
		return m.normaliser.SupportedFormats()
	}
	return nil
}

var (
	_ driven.Normaliser         = (*MockNormaliser)(nil)
	_ driven.NormaliserRegistry = (*MockNormaliserRegistry)(nil)
)
