package httpx

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/caretrack/licensure/internal/domain/auth"
	"github.com/caretrack/licensure/internal/service"
)

// scriptedAuthService drives the login flow handlers with canned results.
type scriptedAuthService struct {
	begin     *service.BeginLoginResult
	complete  *service.CompleteLoginResult
	err       error
	loggedOut []string
}

func (s *scriptedAuthService) BeginLogin(context.Context, string) (*service.BeginLoginResult, error) {
	return s.begin, s.err
}

func (s *scriptedAuthService) CompleteLogin(context.Context, service.CompleteLoginInput) (*service.CompleteLoginResult, error) {
	return s.complete, s.err
}

func (s *scriptedAuthService) GetSession(_ context.Context, sessionID string) (*domainauth.Session, error) {
	if sessionID == "valid-session" {
		return &domainauth.Session{
			ID:        sessionID,
			UserID:    "user-1",
			Email:     "pat@caretrack.io",
			Role:      domainauth.RoleUser,
			ExpiresAt: time.Now().Add(time.Hour),
		}, nil
	}
	return nil, errors.New("session not found")
}

func (s *scriptedAuthService) Logout(_ context.Context, sessionID string) error {
	s.loggedOut = append(s.loggedOut, sessionID)
	return nil
}

func TestAuthHandlers_Login_RedirectsToProvider(t *testing.T) {
	h := &AuthHandlers{Svc: &scriptedAuthService{
		begin: &service.BeginLoginResult{
			AuthURL: "https://idp.example.com/authorize?x=1",
			State:   "state-1",
			Nonce:   "nonce-1",
		},
	}}

	r := httptest.NewRequest(http.MethodGet, "/auth/login?redirect_uri=/tasks", nil)
	w := httptest.NewRecorder()
	h.Login(w, r)

	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "https://idp.example.com/authorize?x=1", w.Header().Get("Location"))

	cookies := map[string]string{}
	for _, c := range w.Result().Cookies() {
		cookies[c.Name] = c.Value
	}
	assert.Equal(t, "state-1", cookies["oauth_state"])
	assert.Equal(t, "nonce-1", cookies["oauth_nonce"])
	assert.Equal(t, "/tasks", cookies["post_login_redirect"])
}

func TestAuthHandlers_Login_RejectsAbsoluteRedirect(t *testing.T) {
	h := &AuthHandlers{Svc: &scriptedAuthService{
		begin: &service.BeginLoginResult{AuthURL: "https://idp.example.com/authorize"},
	}}

	r := httptest.NewRequest(http.MethodGet, "/auth/login?redirect_uri=https://evil.example.com/", nil)
	w := httptest.NewRecorder()
	h.Login(w, r)

	require.Equal(t, http.StatusFound, w.Code)
	for _, c := range w.Result().Cookies() {
		if c.Name == "post_login_redirect" {
			assert.Equal(t, "/", c.Value, "absolute redirects collapse to root")
		}
	}
}

func TestAuthHandlers_Callback_StateMismatch(t *testing.T) {
	h := &AuthHandlers{Svc: &scriptedAuthService{}}

	r := httptest.NewRequest(http.MethodGet, "/auth/callback?code=abc&state=state-1", nil)
	r.AddCookie(&http.Cookie{Name: "oauth_state", Value: "different-state"})
	w := httptest.NewRecorder()
	h.Callback(w, r)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid_state")
}

func TestAuthHandlers_Callback_Success(t *testing.T) {
	h := &AuthHandlers{Svc: &scriptedAuthService{
		complete: &service.CompleteLoginResult{
			Session: domainauth.Session{
				ID:        "sess-1",
				UserID:    "user-1",
				Email:     "pat@caretrack.io",
				Role:      domainauth.RoleUser,
				ExpiresAt: time.Now().Add(time.Hour),
			},
		},
	}}

	r := httptest.NewRequest(http.MethodGet, "/auth/callback?code=abc&state=state-1", nil)
	r.AddCookie(&http.Cookie{Name: "oauth_state", Value: "state-1"})
	r.AddCookie(&http.Cookie{Name: "oauth_nonce", Value: "nonce-1"})
	r.AddCookie(&http.Cookie{Name: "post_login_redirect", Value: "/tasks"})
	w := httptest.NewRecorder()
	h.Callback(w, r)

	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/tasks", w.Header().Get("Location"))

	var sessionCookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == "session_id" && c.Value != "" {
			sessionCookie = c
		}
	}
	require.NotNil(t, sessionCookie)
	assert.Equal(t, "sess-1", sessionCookie.Value)
	assert.True(t, sessionCookie.HttpOnly)
}

func TestAuthHandlers_Logout_InvalidatesSession(t *testing.T) {
	svc := &scriptedAuthService{}
	h := &AuthHandlers{Svc: svc}

	r := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	r.AddCookie(&http.Cookie{Name: "session_id", Value: "valid-session"})
	w := httptest.NewRecorder()
	h.Logout(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"valid-session"}, svc.loggedOut)

	var cleared bool
	for _, c := range w.Result().Cookies() {
		if c.Name == "session_id" && c.MaxAge < 0 {
			cleared = true
		}
	}
	assert.True(t, cleared, "session cookie is expired on logout")
}

func TestAuthHandlers_Status(t *testing.T) {
	h := &AuthHandlers{Svc: &scriptedAuthService{}}

	t.Run("unauthenticated", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/auth/status", nil)
		w := httptest.NewRecorder()
		h.Status(w, r)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"authenticated":false`)
	})

	t.Run("authenticated", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/auth/status", nil)
		r.AddCookie(&http.Cookie{Name: "session_id", Value: "valid-session"})
		w := httptest.NewRecorder()
		h.Status(w, r)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"authenticated":true`)
		assert.Contains(t, w.Body.String(), "pat@caretrack.io")
	})
}
