package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/caretrack/licensure/internal/domain/auth"
	"github.com/caretrack/licensure/internal/ports"
)

func TestMockAuthProvider_DeterministicStateNonce(t *testing.T) {
	p := NewMockAuthProvider()
	ctx := context.Background()

	_, state1, nonce1, err := p.Begin(ctx, ports.BeginInput{RedirectURL: "/"})
	require.NoError(t, err)
	_, state2, nonce2, err := p.Begin(ctx, ports.BeginInput{RedirectURL: "/"})
	require.NoError(t, err)

	assert.Equal(t, "state-1", state1)
	assert.Equal(t, "nonce-1", nonce1)
	assert.Equal(t, "state-2", state2)
	assert.Equal(t, "nonce-2", nonce2)
}

func TestMemorySessionStore_RoundTrip(t *testing.T) {
	store := NewMemorySessionStore()
	ctx := context.Background()

	sess := domainauth.Session{ID: "s1", UserID: "u1", Role: domainauth.RoleUser}
	require.NoError(t, store.Save(ctx, sess))

	got, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, sess, got)

	require.NoError(t, store.Delete(ctx, "s1"))
	_, err = store.Get(ctx, "s1")
	assert.Equal(t, ErrNotFound, err)
}

func TestStaticRoleMapper(t *testing.T) {
	mapper := StaticRoleMapper{AdminGroup: "admins", UserGroup: "users"}

	tests := []struct {
		name   string
		groups []string
		want   domainauth.Role
	}{
		{name: "admin wins", groups: []string{"users", "admins"}, want: domainauth.RoleAdmin},
		{name: "user", groups: []string{"users"}, want: domainauth.RoleUser},
		{name: "no match", groups: []string{"other"}, want: domainauth.RoleGuest},
		{name: "empty", groups: nil, want: domainauth.RoleGuest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, mapper.Map(tt.groups))
		})
	}
}
