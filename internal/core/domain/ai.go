package domain

// AIProvider names a hosted model vendor
type AIProvider string

const (
	// AIProviderOpenAI covers OpenAI and OpenAI-compatible endpoints
	AIProviderOpenAI AIProvider = "openai"
)

// EmbeddingSettings configures the embedding client
type EmbeddingSettings struct {
	Provider   AIProvider `json:"provider"`
	Model      string     `json:"model"`
	APIKey     string     `json:"-"`
	BaseURL    string     `json:"base_url,omitempty"`
	Dimensions int        `json:"dimensions"`
}

// IsConfigured reports whether enough settings exist to build a client
func (s *EmbeddingSettings) IsConfigured() bool {
	return s != nil && s.Provider != "" && s.APIKey != ""
}

// LLMSettings configures the language-model client
type LLMSettings struct {
	Provider AIProvider `json:"provider"`
	Model    string     `json:"model"`
	APIKey   string     `json:"-"`
	BaseURL  string     `json:"base_url,omitempty"`
}

// IsConfigured reports whether enough settings exist to build a client
func (s *LLMSettings) IsConfigured() bool {
	return s != nil && s.Provider != "" && s.APIKey != ""
}
