package middleware

import (
	"context"
	"net/http"

	"github.com/Vivekk0712/Polaris-MCP/internal/auth/constants"
	"github.com/Vivekk0712/Polaris-MCP/internal/auth/providers"
	"github.com/Vivekk0712/Polaris-MCP/internal/logger"
	"github.com/Vivekk0712/Polaris-MCP/internal/utils"
	"go.uber.org/zap"
)

// AuthContext is the key type for the context
type authContextKey string

const (
	// AuthContextKey is used to store auth info in the request context
	AuthContextKey authContextKey = "auth"
)

// AuthInfo represents the authenticated identity stored in context
type AuthInfo struct {
	UID         string
	Email       string
	Name        string
	PhoneNumber string
	Picture     string
}

// Authenticate validates the session cookie on every request, with
// revocation checking, and injects the decoded claims. The check is
// stateless; nothing is shared between requests.
func Authenticate(provider providers.Provider, cookieName string) func(http.Handler) http.Handler {
	if cookieName == "" {
		cookieName = constants.DefaultCookieName
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			value := CookieValue(r, cookieName)
			if value == "" {
				utils.WriteError(w, constants.CodeUnauthorized, "Unauthorized", http.StatusUnauthorized)
				return
			}

			assertion, err := provider.VerifySessionCookie(r.Context(), value, true)
			if err != nil {
				logger.Debug("session cookie rejected", zap.Error(err))
				utils.WriteError(w, constants.CodeUnauthorized, "Unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), AuthContextKey, &AuthInfo{
				UID:         assertion.UID,
				Email:       assertion.Email,
				Name:        assertion.Name,
				PhoneNumber: assertion.PhoneNumber,
				Picture:     assertion.Picture,
			})

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// FromContext returns the auth info injected by Authenticate, if any
func FromContext(ctx context.Context) (*AuthInfo, bool) {
	info, ok := ctx.Value(AuthContextKey).(*AuthInfo)
	return info, ok
}

// CookieValue reads a cookie from the request; a missing cookie yields the
// empty string rather than an error.
func CookieValue(r *http.Request, name string) string {
	cookie, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// CORSWithOrigins allows credentialed browser requests from the configured
// frontend origins.
func CORSWithOrigins(origins []string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[o] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if _, ok := allowed[origin]; ok {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Credentials", "true")
				w.Header().Set("Vary", "Origin")
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
