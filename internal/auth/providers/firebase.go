package providers

import (
	"context"
	"fmt"
	"sort"
	"time"

	firebase "firebase.google.com/go/v4"
	fbauth "firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"

	"github.com/Vivekk0712/Polaris-MCP/internal/auth/models"
	"github.com/Vivekk0712/Polaris-MCP/internal/config"
)

// NewFirebaseApp initializes the process-wide Firebase app. It is created
// exactly once at startup and injected into everything that talks to
// Firebase; a bad project id or credentials file fails the boot.
func NewFirebaseApp(cfg *config.Config) (*firebase.App, error) {
	var opts []option.ClientOption
	if cfg.Firebase.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.Firebase.CredentialsFile))
	}

	app, err := firebase.NewApp(context.Background(), &firebase.Config{
		ProjectID: cfg.Firebase.ProjectID,
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firebase app: %w", err)
	}
	return app, nil
}

// FirebaseProvider implements Provider on top of the Firebase Admin SDK
type FirebaseProvider struct {
	client *fbauth.Client
}

// NewFirebaseProvider creates the Firebase-backed identity provider
func NewFirebaseProvider(app *firebase.App) (*FirebaseProvider, error) {
	client, err := app.Auth(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to create Firebase auth client: %w", err)
	}
	return &FirebaseProvider{client: client}, nil
}

func (p *FirebaseProvider) VerifyIDToken(ctx context.Context, idToken string) (*models.Assertion, error) {
	token, err := p.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, fmt.Errorf("failed to verify ID token: %w", err)
	}
	return assertionFromToken(token), nil
}

func (p *FirebaseProvider) IssueSessionCookie(ctx context.Context, idToken string, expiresIn time.Duration) (string, error) {
	cookie, err := p.client.SessionCookie(ctx, idToken, expiresIn)
	if err != nil {
		return "", fmt.Errorf("failed to mint session cookie: %w", err)
	}
	return cookie, nil
}

func (p *FirebaseProvider) VerifySessionCookie(ctx context.Context, cookie string, checkRevoked bool) (*models.Assertion, error) {
	var token *fbauth.Token
	var err error
	if checkRevoked {
		token, err = p.client.VerifySessionCookieAndCheckRevoked(ctx, cookie)
	} else {
		token, err = p.client.VerifySessionCookie(ctx, cookie)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to verify session cookie: %w", err)
	}
	return assertionFromToken(token), nil
}

func (p *FirebaseProvider) RevokeRefreshTokens(ctx context.Context, uid string) error {
	return p.client.RevokeRefreshTokens(ctx, uid)
}

// assertionFromToken maps the decoded Firebase token onto the neutral
// assertion model used by the session layer.
func assertionFromToken(token *fbauth.Token) *models.Assertion {
	assertion := &models.Assertion{
		UID:         token.UID,
		Email:       stringClaim(token.Claims, "email"),
		PhoneNumber: stringClaim(token.Claims, "phone_number"),
		Name:        stringClaim(token.Claims, "name"),
		Picture:     stringClaim(token.Claims, "picture"),
	}

	if len(token.Firebase.Identities) > 0 {
		providers := make([]string, 0, len(token.Firebase.Identities))
		for key := range token.Firebase.Identities {
			providers = append(providers, key)
		}
		sort.Strings(providers)
		assertion.Providers = providers
	}

	return assertion
}

func stringClaim(claims map[string]interface{}, key string) string {
	if v, ok := claims[key].(string); ok {
		return v
	}
	return ""
}
