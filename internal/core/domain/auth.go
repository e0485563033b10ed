package domain

// Role defines caller permission level
type Role string

const (
	RoleAdmin  Role = "admin"  // Ingest documents, inspect tasks
	RoleMember Role = "member" // Search, fetch, learning endpoints
)

// Valid reports whether the role is known
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleMember
}

// AuthContext contains authenticated caller info for request context
type AuthContext struct {
	Subject string `json:"sub"`
	Role    Role   `json:"role"`
}

// IsAdmin checks if the authenticated caller is an admin
func (a *AuthContext) IsAdmin() bool {
	return a != nil && a.Role == RoleAdmin
}

// TokenClaims represents the JWT token payload
type TokenClaims struct {
	Subject   string `json:"sub"`
	Role      Role   `json:"role"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
}
