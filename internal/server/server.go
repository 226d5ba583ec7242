// Package server assembles the HTTP gateway: session endpoints, the
// authenticated MCP proxy routes and the operational endpoints.
package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Vivekk0712/Polaris-MCP/internal/auth"
	"github.com/Vivekk0712/Polaris-MCP/internal/config"
	"github.com/Vivekk0712/Polaris-MCP/internal/logger"
	"github.com/Vivekk0712/Polaris-MCP/internal/metrics"
	"github.com/Vivekk0712/Polaris-MCP/internal/proxy"
)

const defaultShutdownTimeout = 5 * time.Second

// Server represents the gateway HTTP server
type Server struct {
	config    *config.Config
	auth      *auth.Service
	proxy     *proxy.Handler
	collector *metrics.Collector
	http      *http.Server
}

// NewServer creates a new gateway server instance
func NewServer(cfg *config.Config, authService *auth.Service, proxyHandler *proxy.Handler, collector *metrics.Collector) *Server {
	if cfg == nil {
		logger.Fatal("Config cannot be nil")
	}

	srv := &Server{
		config:    cfg,
		auth:      authService,
		proxy:     proxyHandler,
		collector: collector,
	}
	srv.http = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: srv.buildHandler(),
	}
	return srv
}

func (s *Server) buildHandler() http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(logRequests)
	r.Use(s.collector.Middleware())

	r.Route("/api", func(r chi.Router) {
		s.auth.RegisterRoutes(r)

		r.Group(func(r chi.Router) {
			r.Use(s.auth.Authenticate())
			s.proxy.RegisterRoutes(r)
		})
	})

	r.Get("/healthz", s.handleHealthz)
	r.Method(http.MethodGet, "/metrics", s.collector.Handler())

	return s.auth.WrapWithCors(r)
}

// logRequests emits one structured line per request
func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", chimw.GetReqID(r.Context())),
		)
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// Start binds the listen address and begins serving. Binding happens
// synchronously so a bad address fails startup instead of surfacing later.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.http.Addr, err)
	}

	logger.Info("Starting server",
		zap.String("address", s.http.Addr),
		zap.String("version", config.GetVersionInfo()),
	)

	go func() {
		if err := s.http.Serve(ln); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", zap.Error(err))
		}
	}()

	return nil
}

// Shutdown drains in-flight requests and stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	timeout := s.config.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	logger.Info("Shutting down server", zap.Duration("timeout", timeout))

	shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}
	return nil
}

// Module provides the gateway server dependencies
var Module = fx.Module("server",
	fx.Provide(
		NewServer,
	),
)
