package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Vivekk0712/Polaris-MCP/internal/auth/constants"
	"github.com/Vivekk0712/Polaris-MCP/internal/auth/middleware"
	"github.com/Vivekk0712/Polaris-MCP/internal/logger"
	"github.com/Vivekk0712/Polaris-MCP/internal/metrics"
	"github.com/Vivekk0712/Polaris-MCP/internal/store"
	"github.com/Vivekk0712/Polaris-MCP/internal/utils"
)

// maxUploadBytes caps in-memory buffering of test images
const maxUploadBytes = 32 << 20

// Handler proxies authenticated requests to the MCP service
type Handler struct {
	client    *Client
	store     store.Store
	collector *metrics.Collector
}

// NewHandler creates a new proxy Handler
func NewHandler(client *Client, st store.Store, collector *metrics.Collector) *Handler {
	return &Handler{
		client:    client,
		store:     st,
		collector: collector,
	}
}

// RegisterRoutes mounts the proxy routes on an already-authenticated router
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/chat", h.HandleChat)
	r.Get("/history", h.HandleHistory)
	r.Delete("/clear-chat", h.HandleClearChat)

	r.Route("/ml", func(r chi.Router) {
		r.Post("/chat", h.HandleMLChat)
		r.Get("/projects", h.HandleListProjects)
		r.Get("/projects/{projectID}", h.HandleGetProject)
		r.Get("/projects/{projectID}/logs", h.HandleProjectLogs)
		r.Get("/projects/{projectID}/download", h.HandleDownloadModel)
		r.Post("/projects/{projectID}/test", h.HandleTestModel)
	})
}

// HandleChat forwards a chat message to the MCP query endpoint
func (h *Handler) HandleChat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message  string          `json:"message"`
		Metadata json.RawMessage `json:"metadata"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)

	uid, name, email := h.resolveIdentity(r.Context())
	payload := map[string]interface{}{
		"user_id":    uid,
		"message":    req.Message,
		"user_name":  optionalString(name),
		"user_email": optionalString(email),
	}
	if len(req.Metadata) > 0 {
		payload["metadata"] = req.Metadata
	}

	resp, err := h.client.PostJSON(r.Context(), "/mcp/query", payload)
	if !h.chatSucceeded(w, resp, err, "chat", "Error forwarding chat to MCP server") {
		return
	}
	h.relay(w, resp)
}

// HandleHistory fetches the caller's chat history from the MCP service
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	uid, _, _ := h.resolveIdentity(r.Context())
	resp, err := h.client.Get(r.Context(), "/mcp/history", url.Values{"user_id": {uid}})
	if !h.chatSucceeded(w, resp, err, "history", "Error fetching chat history") {
		return
	}
	h.relay(w, resp)
}

// HandleClearChat clears the caller's chat history on the MCP service
func (h *Handler) HandleClearChat(w http.ResponseWriter, r *http.Request) {
	uid, _, _ := h.resolveIdentity(r.Context())
	resp, err := h.client.Delete(r.Context(), "/mcp/clear-chat", url.Values{"user_id": {uid}})
	if !h.chatSucceeded(w, resp, err, "clear-chat", "Error clearing chat history") {
		return
	}
	h.relay(w, resp)
}

// HandleMLChat forwards a message to the ML planner
func (h *Handler) HandleMLChat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message string `json:"message"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)

	uid, name, email := h.resolveIdentity(r.Context())
	userName := name
	if userName == "" {
		userName = email
	}
	payload := map[string]interface{}{
		"user_id":    uid,
		"message":    req.Message,
		"user_name":  optionalString(userName),
		"user_email": optionalString(email),
	}

	resp, err := h.client.PostJSON(r.Context(), "/api/ml/planner", payload)
	if !h.mlSucceeded(w, resp, err, "ml-chat", "Failed to process ML chat request") {
		return
	}
	h.relay(w, resp)
}

// HandleListProjects lists the caller's ML projects
func (h *Handler) HandleListProjects(w http.ResponseWriter, r *http.Request) {
	uid, _, _ := h.resolveIdentity(r.Context())
	resp, err := h.client.Get(r.Context(), "/api/ml/projects", url.Values{"user_id": {uid}})
	if !h.mlSucceeded(w, resp, err, "ml-projects", "Failed to fetch projects") {
		return
	}
	h.relay(w, resp)
}

// HandleGetProject fetches a single ML project
func (h *Handler) HandleGetProject(w http.ResponseWriter, r *http.Request) {
	uid, _, _ := h.resolveIdentity(r.Context())
	projectID := chi.URLParam(r, "projectID")
	resp, err := h.client.Get(r.Context(), "/api/ml/projects/"+url.PathEscape(projectID), url.Values{"user_id": {uid}})
	if !h.mlSucceeded(w, resp, err, "ml-project", "Failed to fetch project") {
		return
	}
	h.relay(w, resp)
}

// HandleProjectLogs fetches the training logs of an ML project
func (h *Handler) HandleProjectLogs(w http.ResponseWriter, r *http.Request) {
	uid, _, _ := h.resolveIdentity(r.Context())
	projectID := chi.URLParam(r, "projectID")
	resp, err := h.client.Get(r.Context(), "/api/ml/projects/"+url.PathEscape(projectID)+"/logs", url.Values{"user_id": {uid}})
	if !h.mlSucceeded(w, resp, err, "ml-logs", "Failed to fetch logs") {
		return
	}
	h.relay(w, resp)
}

// HandleDownloadModel streams a trained model archive to the caller
func (h *Handler) HandleDownloadModel(w http.ResponseWriter, r *http.Request) {
	uid, _, _ := h.resolveIdentity(r.Context())
	projectID := chi.URLParam(r, "projectID")

	resp, err := h.client.Stream(r.Context(), "/api/ml/projects/"+url.PathEscape(projectID)+"/download", url.Values{"user_id": {uid}})
	if err != nil {
		h.collector.RecordUpstreamError("ml-download")
		logger.Error("model download failed", zap.String("project_id", projectID), zap.Error(err))
		writeMLError(w, "Failed to download model", err.Error())
		return
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			logger.Warn("failed to close download stream", zap.Error(closeErr))
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		h.collector.RecordUpstreamError("ml-download")
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		writeMLError(w, "Failed to download model", parseDetails(body))
		return
	}

	copyHeader(w, resp.Header, "Content-Type")
	copyHeader(w, resp.Header, "Content-Disposition")
	copyHeader(w, resp.Header, "Content-Length")
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, resp.Body); err != nil {
		// Downstream disconnects land here; the context cancellation has
		// already aborted the upstream read.
		logger.Debug("model stream interrupted", zap.String("project_id", projectID), zap.Error(err))
	}
}

// HandleTestModel forwards a test image to a trained model
func (h *Handler) HandleTestModel(w http.ResponseWriter, r *http.Request) {
	uid, _, _ := h.resolveIdentity(r.Context())
	projectID := chi.URLParam(r, "projectID")

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		utils.WriteError(w, constants.CodeBadRequest, "Invalid multipart form", http.StatusBadRequest)
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		utils.WriteError(w, constants.CodeBadRequest, "Image file is required", http.StatusBadRequest)
		return
	}
	defer func() {
		_ = file.Close()
	}()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("image", header.Filename)
	if err == nil {
		_, err = io.Copy(part, file)
	}
	if err == nil {
		err = writer.WriteField("user_id", uid)
	}
	if err == nil {
		err = writer.Close()
	}
	if err != nil {
		logger.Error("failed to rebuild multipart body", zap.Error(err))
		writeMLError(w, "Failed to test model", err.Error())
		return
	}

	resp, err := h.client.Exchange(r.Context(), http.MethodPost, "/api/ml/projects/"+url.PathEscape(projectID)+"/test", nil, &buf, writer.FormDataContentType())
	if !h.mlSucceeded(w, resp, err, "ml-test", "Failed to test model") {
		return
	}
	h.relay(w, resp)
}

// resolveIdentity returns the caller's uid plus display name and email,
// falling back to the stored user record for fields the session lacks.
func (h *Handler) resolveIdentity(ctx context.Context) (uid, name, email string) {
	info, ok := middleware.FromContext(ctx)
	if !ok {
		return "", "", ""
	}
	uid, name, email = info.UID, info.Name, info.Email
	if name == "" || email == "" {
		record, err := h.store.Get(ctx, uid)
		if err == nil {
			if name == "" {
				name = record.DisplayName
			}
			if email == "" {
				email = record.Email
			}
		} else if err != store.ErrNotFound {
			logger.Warn("failed to load user record for proxy request", zap.String("uid", uid), zap.Error(err))
		}
	}
	return uid, name, email
}

func (h *Handler) chatSucceeded(w http.ResponseWriter, resp *Response, err error, route, message string) bool {
	if err != nil {
		h.collector.RecordUpstreamError(route)
		logger.Error("mcp request failed", zap.String("route", route), zap.Error(err))
		utils.WriteError(w, constants.CodeMCPError, message, http.StatusInternalServerError)
		return false
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		h.collector.RecordUpstreamError(route)
		logger.Error("mcp returned error status", zap.String("route", route), zap.Int("status", resp.StatusCode))
		utils.WriteError(w, constants.CodeMCPError, message, http.StatusInternalServerError)
		return false
	}
	return true
}

func (h *Handler) mlSucceeded(w http.ResponseWriter, resp *Response, err error, route, message string) bool {
	if err != nil {
		h.collector.RecordUpstreamError(route)
		logger.Error("ml request failed", zap.String("route", route), zap.Error(err))
		writeMLError(w, message, err.Error())
		return false
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		h.collector.RecordUpstreamError(route)
		logger.Error("ml service returned error status", zap.String("route", route), zap.Int("status", resp.StatusCode))
		writeMLError(w, message, parseDetails(resp.Body))
		return false
	}
	return true
}

// relay writes a successful upstream response through unchanged
func (h *Handler) relay(w http.ResponseWriter, resp *Response) {
	contentType := resp.Headers.Get("Content-Type")
	if contentType == "" {
		contentType = "application/json"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(resp.Body); err != nil {
		logger.Warn("failed to write proxied response", zap.Error(err))
	}
}

// writeMLError writes the flat error shape the ML routes use
func writeMLError(w http.ResponseWriter, message string, details interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	if err := json.NewEncoder(w).Encode(map[string]interface{}{
		"error":   message,
		"details": details,
	}); err != nil {
		logger.Warn("failed to encode error response", zap.Error(err))
	}
}

// parseDetails keeps structured upstream error payloads structured
func parseDetails(body []byte) interface{} {
	var parsed interface{}
	if err := json.Unmarshal(body, &parsed); err == nil {
		return parsed
	}
	return string(body)
}

func copyHeader(w http.ResponseWriter, src http.Header, key string) {
	if value := src.Get(key); value != "" {
		w.Header().Set(key, value)
	}
}

func optionalString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
