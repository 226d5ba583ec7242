package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/Vivekk0712/Polaris-MCP/internal/auth/constants"
	"github.com/Vivekk0712/Polaris-MCP/internal/auth/middleware"
	"github.com/Vivekk0712/Polaris-MCP/internal/auth/providers"
	"github.com/Vivekk0712/Polaris-MCP/internal/config"
	"github.com/Vivekk0712/Polaris-MCP/internal/logger"
	"github.com/Vivekk0712/Polaris-MCP/internal/metrics"
	"github.com/Vivekk0712/Polaris-MCP/internal/store"
	"github.com/Vivekk0712/Polaris-MCP/internal/user"
	"github.com/Vivekk0712/Polaris-MCP/internal/utils"
	"go.uber.org/zap"
)

// Handler handles the session HTTP endpoints
type Handler struct {
	cfg       *config.SessionConfig
	provider  providers.Provider
	users     *user.Service
	store     store.Store
	collector *metrics.Collector
}

// NewHandler creates a new Handler instance
func NewHandler(cfg *config.SessionConfig, provider providers.Provider, users *user.Service, st store.Store, collector *metrics.Collector) *Handler {
	return &Handler{
		cfg:       cfg,
		provider:  provider,
		users:     users,
		store:     st,
		collector: collector,
	}
}

func (h *Handler) cookieName() string {
	if h.cfg.CookieName != "" {
		return h.cfg.CookieName
	}
	return constants.DefaultCookieName
}

func (h *Handler) expiresIn() time.Duration {
	if h.cfg.ExpiresIn > 0 {
		return h.cfg.ExpiresIn
	}
	return 5 * 24 * time.Hour
}

// HandleSessionLogin verifies the posted ID token, reconciles the user
// record and mints the session cookie. Nothing is persisted and no cookie
// is set unless verification succeeds.
func (h *Handler) HandleSessionLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDToken string `json:"idToken"`
	}
	// An unreadable body is treated the same as a missing token.
	_ = json.NewDecoder(r.Body).Decode(&req)
	if req.IDToken == "" {
		h.collector.RecordLoginFailure("missing_token")
		utils.WriteError(w, constants.CodeBadRequest, "idToken is required", http.StatusBadRequest)
		return
	}

	assertion, err := h.provider.VerifyIDToken(r.Context(), req.IDToken)
	if err != nil {
		logger.Info("login rejected", zap.Error(err))
		h.collector.RecordLoginFailure("invalid_token")
		utils.WriteError(w, constants.CodeUnauthorized, "Invalid idToken", http.StatusUnauthorized)
		return
	}

	if _, err := h.users.Upsert(r.Context(), assertion); err != nil {
		logger.Error("failed to reconcile user record", zap.String("uid", assertion.UID), zap.Error(err))
		h.collector.RecordLoginFailure("store_error")
		utils.WriteError(w, constants.CodeInternal, "Failed to persist user", http.StatusInternalServerError)
		return
	}

	expiresIn := h.expiresIn()
	cookie, err := h.provider.IssueSessionCookie(r.Context(), req.IDToken, expiresIn)
	if err != nil {
		logger.Info("failed to mint session cookie", zap.String("uid", assertion.UID), zap.Error(err))
		h.collector.RecordLoginFailure("cookie_error")
		utils.WriteError(w, constants.CodeUnauthorized, "Invalid idToken", http.StatusUnauthorized)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName(),
		Value:    cookie,
		Path:     constants.CookiePath,
		MaxAge:   int(expiresIn.Seconds()),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	})

	h.collector.RecordLogin()
	utils.WriteJSON(w, map[string]string{"status": "ok", "uid": assertion.UID})
}

// HandleSessionLogout clears the cookie and best-effort revokes the
// session server-side. The clear instruction always goes out and the call
// always reports success; revoke failures are only surfaced to telemetry.
func (h *Handler) HandleSessionLogout(w http.ResponseWriter, r *http.Request) {
	value := middleware.CookieValue(r, h.cookieName())

	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName(),
		Value:    "",
		Path:     constants.CookiePath,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	})

	if value != "" {
		// Revocation does not need its own revocation check.
		if assertion, err := h.provider.VerifySessionCookie(r.Context(), value, false); err != nil {
			logger.Warn("failed to verify session cookie on logout", zap.Error(err))
			h.collector.RecordRevokeFailure()
		} else if err := h.provider.RevokeRefreshTokens(r.Context(), assertion.UID); err != nil {
			logger.Warn("failed to revoke refresh tokens", zap.String("uid", assertion.UID), zap.Error(err))
			h.collector.RecordRevokeFailure()
		}
	}

	utils.WriteJSON(w, map[string]string{"status": "ok"})
}

// HandleMe returns the stored user record for the authenticated uid.
func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	info, ok := middleware.FromContext(r.Context())
	if !ok {
		utils.WriteError(w, constants.CodeUnauthorized, "Unauthorized", http.StatusUnauthorized)
		return
	}

	record, err := h.store.Get(r.Context(), info.UID)
	if errors.Is(err, store.ErrNotFound) {
		utils.WriteError(w, constants.CodeNotFound, "User not found", http.StatusNotFound)
		return
	}
	if err != nil {
		logger.Error("failed to read user record", zap.String("uid", info.UID), zap.Error(err))
		utils.WriteError(w, constants.CodeInternal, "Failed to read user", http.StatusInternalServerError)
		return
	}

	utils.WriteJSON(w, record)
}
