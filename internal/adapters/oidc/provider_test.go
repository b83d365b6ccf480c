package oidc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestIssuerFromDiscoveryURL(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "full discovery URL",
			in:   "https://idp.example.com/.well-known/openid-configuration",
			want: "https://idp.example.com",
		},
		{
			name: "issuer with trailing slash",
			in:   "https://idp.example.com/",
			want: "https://idp.example.com",
		},
		{
			name: "bare issuer",
			in:   "https://idp.example.com",
			want: "https://idp.example.com",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, issuerFromDiscoveryURL(tt.in))
		})
	}
}

func TestMergeClaims(t *testing.T) {
	dst := identityClaims{Subject: "jdoe", Email: ""}
	mergeClaims(&dst, identityClaims{
		Subject:    "other",
		Email:      "jdoe@example.com",
		GivenName:  "Jane",
		FamilyName: "Doe",
		Groups:     []string{"licensure-users"},
	})

	assert.Equal(t, "jdoe", dst.Subject, "existing subject is kept")
	assert.Equal(t, "jdoe@example.com", dst.Email)
	assert.Equal(t, "Jane", dst.GivenName)
	assert.Equal(t, "Doe", dst.FamilyName)
	assert.Equal(t, []string{"licensure-users"}, dst.Groups)
}

func TestIDTokenFromToken(t *testing.T) {
	t.Run("nil token", func(t *testing.T) {
		_, err := idTokenFromToken(nil)
		require.Error(t, err)
	})

	t.Run("missing id_token", func(t *testing.T) {
		_, err := idTokenFromToken(&oauth2.Token{AccessToken: "x"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "missing id_token")
	})

	t.Run("present", func(t *testing.T) {
		tok := (&oauth2.Token{AccessToken: "x"}).WithExtra(map[string]any{"id_token": "raw"})
		raw, err := idTokenFromToken(tok)
		require.NoError(t, err)
		assert.Equal(t, "raw", raw)
	})
}

func TestRandomString(t *testing.T) {
	for _, n := range []int{0, 1, 24, 32} {
		s, err := randomString(n)
		require.NoError(t, err)
		assert.Len(t, s, n)
	}

	a, err := randomString(32)
	require.NoError(t, err)
	b, err := randomString(32)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestNewProvider_Validation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     ProviderConfig
		wantErr string
	}{
		{name: "missing client id", cfg: ProviderConfig{}, wantErr: "client ID"},
		{
			name:    "missing client secret",
			cfg:     ProviderConfig{ClientID: "id"},
			wantErr: "client secret",
		},
		{
			name:    "missing redirect URL",
			cfg:     ProviderConfig{ClientID: "id", ClientSecret: "sec"},
			wantErr: "redirect URL",
		},
		{
			name:    "missing discovery URL",
			cfg:     ProviderConfig{ClientID: "id", ClientSecret: "sec", RedirectURL: "https://x/cb"},
			wantErr: "discovery URL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewProvider(tt.cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
