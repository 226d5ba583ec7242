package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vivekk0712/Polaris-MCP/internal/auth/models"
)

// mockProvider implements providers.Provider; only session verification
// matters for middleware tests.
type mockProvider struct {
	assertion    *models.Assertion
	err          error
	checkRevoked *bool
}

func (m *mockProvider) VerifyIDToken(_ context.Context, _ string) (*models.Assertion, error) {
	return nil, errors.New("not used")
}

func (m *mockProvider) IssueSessionCookie(_ context.Context, _ string, _ time.Duration) (string, error) {
	return "", errors.New("not used")
}

func (m *mockProvider) VerifySessionCookie(_ context.Context, _ string, checkRevoked bool) (*models.Assertion, error) {
	m.checkRevoked = &checkRevoked
	if m.err != nil {
		return nil, m.err
	}
	return m.assertion, nil
}

func (m *mockProvider) RevokeRefreshTokens(_ context.Context, _ string) error {
	return nil
}

func TestAuthenticateMissingCookie(t *testing.T) {
	guard := Authenticate(&mockProvider{}, "session")
	called := false
	h := guard(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/api/me", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, called)
}

func TestAuthenticateRejectedCookie(t *testing.T) {
	provider := &mockProvider{err: errors.New("revoked")}
	guard := Authenticate(provider, "session")
	h := guard(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/me", nil)
	req.AddCookie(&http.Cookie{Name: "session", Value: "stale"})
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	require.NotNil(t, provider.checkRevoked)
	assert.True(t, *provider.checkRevoked, "guard must check revocation")
}

func TestAuthenticateInjectsClaims(t *testing.T) {
	provider := &mockProvider{assertion: &models.Assertion{
		UID:   "u1",
		Email: "u1@example.com",
		Name:  "User One",
	}}
	guard := Authenticate(provider, "session")

	var got *AuthInfo
	h := guard(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		info, ok := FromContext(r.Context())
		require.True(t, ok)
		got = info
	}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/me", nil)
	req.AddCookie(&http.Cookie{Name: "session", Value: "live"})
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, got)
	assert.Equal(t, "u1", got.UID)
	assert.Equal(t, "u1@example.com", got.Email)
	assert.Equal(t, "User One", got.Name)
}

func TestCookieValueMissing(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	assert.Equal(t, "", CookieValue(req, "session"))
}

func TestCORSAllowsConfiguredOrigin(t *testing.T) {
	wrap := CORSWithOrigins([]string{"https://app.example.com"})
	h := wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/me", nil)
	req.Header.Set("Origin", "https://app.example.com")
	h.ServeHTTP(rec, req)

	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}

func TestCORSIgnoresUnknownOrigin(t *testing.T) {
	wrap := CORSWithOrigins([]string{"https://app.example.com"})
	h := wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/me", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	h.ServeHTTP(rec, req)

	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSPreflightShortCircuits(t *testing.T) {
	wrap := CORSWithOrigins([]string{"https://app.example.com"})
	h := wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("preflight must not reach the handler")
	}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("OPTIONS", "/api/chat", nil)
	req.Header.Set("Origin", "https://app.example.com")
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
