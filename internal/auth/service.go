// Package auth wires the session gateway: login/logout/me endpoints, the
// auth guard middleware and the CORS policy for credentialed requests.
package auth

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/fx"

	"github.com/Vivekk0712/Polaris-MCP/internal/auth/handlers"
	"github.com/Vivekk0712/Polaris-MCP/internal/auth/middleware"
	"github.com/Vivekk0712/Polaris-MCP/internal/auth/providers"
	"github.com/Vivekk0712/Polaris-MCP/internal/config"
	"github.com/Vivekk0712/Polaris-MCP/internal/metrics"
	"github.com/Vivekk0712/Polaris-MCP/internal/store"
	"github.com/Vivekk0712/Polaris-MCP/internal/user"
)

// Service represents the session gateway service
type Service struct {
	config   *config.Config
	provider providers.Provider
	handler  *handlers.Handler
	limiter  *middleware.RateLimiter
}

// NewService creates a new session gateway service
func NewService(cfg *config.Config, provider providers.Provider, users *user.Service, st store.Store, collector *metrics.Collector) (*Service, error) {
	handler := handlers.NewHandler(&cfg.Session, provider, users, st, collector)
	limiter := middleware.NewRateLimiter(cfg.RateLimit.LoginPerMinute, cfg.RateLimit.LoginBurst)

	return &Service{
		config:   cfg,
		provider: provider,
		handler:  handler,
		limiter:  limiter,
	}, nil
}

// RegisterRoutes registers the session endpoints on the given router.
// Login is rate limited per client IP; /me sits behind the auth guard.
func (s *Service) RegisterRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(s.limiter.Middleware())
		r.Post("/sessionLogin", s.handler.HandleSessionLogin)
	})
	r.Post("/sessionLogout", s.handler.HandleSessionLogout)
	r.Group(func(r chi.Router) {
		r.Use(s.Authenticate())
		r.Get("/me", s.handler.HandleMe)
	})
}

// Authenticate returns the auth guard middleware
func (s *Service) Authenticate() func(http.Handler) http.Handler {
	return middleware.Authenticate(s.provider, s.config.Session.CookieName)
}

// WrapWithCors wraps the handler with the configured CORS policy
func (s *Service) WrapWithCors(h http.Handler) http.Handler {
	return middleware.CORSWithOrigins(s.config.Server.AllowOrigins)(h)
}

// GetProvider returns the configured identity provider
func (s *Service) GetProvider() providers.Provider {
	return s.provider
}

// Module provides the session gateway dependencies
var Module = fx.Module("auth",
	fx.Provide(
		providers.NewFirebaseApp,
		fx.Annotate(
			providers.NewFirebaseProvider,
			fx.As(new(providers.Provider)),
		),
		NewService,
	),
)
