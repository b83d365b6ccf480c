package ports

// Package ports declares the interfaces for auth behavior. Concrete
// implementations live under internal/adapters and are wired at startup.

import (
	"context"

	domainauth "github.com/caretrack/licensure/internal/domain/auth"
)

// BeginInput carries the inputs for starting an auth flow.
type BeginInput struct {
	RedirectURL string
}

// ExchangeInput groups the parameters for the code/token exchange.
type ExchangeInput struct {
	Code  string
	State string
	Nonce string
}

// AuthProvider starts and completes a login flow against an identity provider.
type AuthProvider interface {
	// Begin starts the login flow and returns the provider auth URL plus an
	// opaque state and nonce to verify on callback.
	Begin(ctx context.Context, in BeginInput) (authURL, state, nonce string, err error)

	// Exchange completes the flow, validating state and nonce, and returns
	// the authenticated identity.
	Exchange(ctx context.Context, in ExchangeInput) (domainauth.Identity, error)
}

// SessionStore persists and retrieves sessions.
type SessionStore interface {
	Save(ctx context.Context, sess domainauth.Session) error
	Get(ctx context.Context, id string) (domainauth.Session, error)
	Delete(ctx context.Context, id string) error
}

// RoleMapper turns provider group membership into an application role.
type RoleMapper interface {
	Map(groups []string) domainauth.Role
}
