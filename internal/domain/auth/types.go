// Package auth holds the domain types for authentication and sessions.
// Nothing here depends on a transport or an identity provider.
package auth

import "time"

// Role is the application-level authorization role carried on a session.
// Stored as a string so it round-trips through cookies and Redis cleanly.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
	RoleGuest Role = "guest"
)

// Identity is the authenticated principal as reported by an identity
// provider. Adapters translate provider-specific claims into this shape.
type Identity struct {
	UserID    string // stable identifier from the provider (sub or account name)
	FirstName string
	LastName  string
	Email     string
	Groups    []string
	ExpiresAt time.Time // token expiry from the provider
}

// Session is the server-side record kept for a logged-in user.
// ID is an opaque random identifier handed to the browser.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IsGuest reports whether the session carries the guest role.
func (s Session) IsGuest() bool { return s.Role == RoleGuest }
