package utils

import (
	"encoding/json"
	"net/http"

	"github.com/Vivekk0712/Polaris-MCP/internal/logger"
	"go.uber.org/zap"
)

// ErrorBody is the error envelope returned by the gateway's own endpoints.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("Failed to encode JSON response", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// WriteError writes a JSON error response of the form {"error": {"code", "message"}}
func WriteError(w http.ResponseWriter, code, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]ErrorBody{
		"error": {Code: code, Message: message},
	}); err != nil {
		logger.Error("Failed to encode error response", zap.Error(err))
	}
}
