package providers

import (
	"context"
	"time"

	"github.com/Vivekk0712/Polaris-MCP/internal/auth/models"
)

// Provider defines the identity-provider operations the session layer depends on
type Provider interface {
	// VerifyIDToken verifies a short-lived ID token and returns its claims
	VerifyIDToken(ctx context.Context, idToken string) (*models.Assertion, error)

	// IssueSessionCookie exchanges a verified ID token for a session cookie
	// with the given lifetime
	IssueSessionCookie(ctx context.Context, idToken string, expiresIn time.Duration) (string, error)

	// VerifySessionCookie verifies a session cookie and returns its claims.
	// With checkRevoked set, a cookie whose underlying refresh tokens were
	// revoked is rejected even if the cookie itself has not expired.
	VerifySessionCookie(ctx context.Context, cookie string, checkRevoked bool) (*models.Assertion, error)

	// RevokeRefreshTokens revokes all refresh tokens for the subject,
	// invalidating every session cookie derived from them
	RevokeRefreshTokens(ctx context.Context, uid string) error
}
