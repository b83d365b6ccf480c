package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/caretrack/licensure/internal/domain/auth"
	mocksauth "github.com/caretrack/licensure/internal/mocks/auth"
	"github.com/caretrack/licensure/internal/ports"
)

func newTestAuthService() (*AuthService, *mocksauth.MockAuthProvider, *mocksauth.MemorySessionStore) {
	provider := mocksauth.NewMockAuthProvider()
	sessions := mocksauth.NewMemorySessionStore()
	svc := NewAuthService(AuthServiceOptions{
		Provider: provider,
		Sessions: sessions,
		Roles:    mocksauth.StaticRoleMapper{AdminGroup: "admins", UserGroup: "users"},
	})
	return svc, provider, sessions
}

func TestAuthService_BeginLogin(t *testing.T) {
	svc, _, _ := newTestAuthService()

	t.Run("returns auth URL with state and nonce", func(t *testing.T) {
		res, err := svc.BeginLogin(context.Background(), "https://app/callback")
		require.NoError(t, err)
		assert.Equal(t, "https://mock-idp/auth", res.AuthURL)
		assert.NotEmpty(t, res.State)
		assert.NotEmpty(t, res.Nonce)
	})

	t.Run("requires redirect URL", func(t *testing.T) {
		_, err := svc.BeginLogin(context.Background(), "")
		require.Error(t, err)
	})
}

func TestAuthService_CompleteLogin(t *testing.T) {
	t.Run("creates session with mapped role", func(t *testing.T) {
		svc, provider, sessions := newTestAuthService()
		provider.DefaultUser.Groups = []string{"admins"}

		res, err := svc.CompleteLogin(context.Background(), CompleteLoginInput{
			Code: "code", State: "state-1", Nonce: "nonce-1",
		})
		require.NoError(t, err)

		assert.NotEmpty(t, res.Session.ID)
		assert.Equal(t, "mock-user-1", res.Session.UserID)
		assert.Equal(t, domainauth.RoleAdmin, res.Session.Role)

		stored, err := sessions.Get(context.Background(), res.Session.ID)
		require.NoError(t, err)
		assert.Equal(t, res.Session, stored)
	})

	t.Run("unmapped groups get guest role", func(t *testing.T) {
		svc, provider, _ := newTestAuthService()
		provider.DefaultUser.Groups = []string{"something-else"}

		res, err := svc.CompleteLogin(context.Background(), CompleteLoginInput{
			Code: "code", State: "s", Nonce: "n",
		})
		require.NoError(t, err)
		assert.Equal(t, domainauth.RoleGuest, res.Session.Role)
	})

	t.Run("requires code state and nonce", func(t *testing.T) {
		svc, _, _ := newTestAuthService()
		for _, in := range []CompleteLoginInput{
			{State: "s", Nonce: "n"},
			{Code: "c", Nonce: "n"},
			{Code: "c", State: "s"},
		} {
			_, err := svc.CompleteLogin(context.Background(), in)
			assert.Error(t, err)
		}
	})

	t.Run("provider exchange failure propagates", func(t *testing.T) {
		svc, provider, _ := newTestAuthService()
		provider.ExchangeFunc = func(context.Context, ports.ExchangeInput) (domainauth.Identity, error) {
			return domainauth.Identity{}, errors.New("idp unavailable")
		}

		_, err := svc.CompleteLogin(context.Background(), CompleteLoginInput{Code: "c", State: "s", Nonce: "n"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "idp unavailable")
	})
}

func TestAuthService_GetSession(t *testing.T) {
	t.Run("returns live session", func(t *testing.T) {
		svc, _, sessions := newTestAuthService()
		sess := domainauth.Session{
			ID: "s1", UserID: "u1", Role: domainauth.RoleUser,
			ExpiresAt: time.Now().Add(time.Hour),
		}
		require.NoError(t, sessions.Save(context.Background(), sess))

		got, err := svc.GetSession(context.Background(), "s1")
		require.NoError(t, err)
		assert.Equal(t, sess, *got)
	})

	t.Run("expired session is removed", func(t *testing.T) {
		svc, _, sessions := newTestAuthService()
		require.NoError(t, sessions.Save(context.Background(), domainauth.Session{
			ID: "s2", ExpiresAt: time.Now().Add(-time.Minute),
		}))

		_, err := svc.GetSession(context.Background(), "s2")
		require.ErrorIs(t, err, errSessionExpired)

		_, err = sessions.Get(context.Background(), "s2")
		assert.Equal(t, mocksauth.ErrNotFound, err)
	})

	t.Run("unknown session", func(t *testing.T) {
		svc, _, _ := newTestAuthService()
		_, err := svc.GetSession(context.Background(), "missing")
		require.Error(t, err)
	})
}

func TestAuthService_Logout(t *testing.T) {
	svc, _, sessions := newTestAuthService()
	require.NoError(t, sessions.Save(context.Background(), domainauth.Session{
		ID: "s1", ExpiresAt: time.Now().Add(time.Hour),
	}))

	require.NoError(t, svc.Logout(context.Background(), "s1"))
	_, err := sessions.Get(context.Background(), "s1")
	assert.Equal(t, mocksauth.ErrNotFound, err)

	// Empty ID is a no-op.
	assert.NoError(t, svc.Logout(context.Background(), ""))
}
