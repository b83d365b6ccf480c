package httpx

import (
	"context"

	domainauth "github.com/caretrack/licensure/internal/domain/auth"
)

// sessionKey is an unexported context key type to avoid collisions across
// packages.
type sessionKey struct{}

// SetSessionInContext returns a child context carrying the given session.
// A nil session returns ctx unchanged.
func SetSessionInContext(ctx context.Context, session *domainauth.Session) context.Context {
	if session == nil {
		return ctx
	}
	return context.WithValue(ctx, sessionKey{}, session)
}

// GetUserSessionFromContext returns the session from context and whether one
// is present.
func GetUserSessionFromContext(ctx context.Context) (*domainauth.Session, bool) {
	if session, ok := ctx.Value(sessionKey{}).(*domainauth.Session); ok && session != nil {
		return session, true
	}
	return nil, false
}

// SessionOrGuest returns the session from context, or a guest session when
// the request is unauthenticated. Services treat guests as denied for every
// role-gated action, so handlers can pass the result straight through.
func SessionOrGuest(ctx context.Context) domainauth.Session {
	if s, ok := GetUserSessionFromContext(ctx); ok {
		return *s
	}
	return domainauth.Session{Role: domainauth.RoleGuest}
}
