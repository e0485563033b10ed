package driven

import "github.com/custodia-labs/sercha-edu/internal/core/domain"

// AuthAdapter handles bearer token cryptography.
type AuthAdapter interface {
	// GenerateToken signs the claims into a token string
	GenerateToken(claims *domain.TokenClaims) (string, error)

	// ParseToken validates a token and returns its claims
	ParseToken(token string) (*domain.TokenClaims, error)
}
