// Package proxy forwards chat and ML-project requests to the external MCP
// orchestration service and relays its responses.
package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Vivekk0712/Polaris-MCP/internal/config"
	"github.com/Vivekk0712/Polaris-MCP/internal/logger"
	"go.uber.org/zap"
)

// Response represents a fully read upstream response
type Response struct {
	StatusCode int
	Body       []byte
	Headers    http.Header
}

// Client executes requests against the MCP service
type Client struct {
	baseURL string
	client  *http.Client
	timeout time.Duration
}

// NewClient creates a new Client for the configured MCP endpoint
func NewClient(cfg *config.Config) *Client {
	timeout := cfg.MCP.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.MCP.BaseURL, "/"),
		client:  &http.Client{},
		timeout: timeout,
	}
}

// Exchange executes a request and reads the whole response body. The
// configured timeout bounds the full round trip.
func (c *Client) Exchange(ctx context.Context, method, path string, query url.Values, body io.Reader, contentType string) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.do(ctx, method, path, query, body, contentType)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			logger.Warn("failed to close upstream body", zap.Error(closeErr))
		}
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read upstream response: %w", err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Body:       data,
		Headers:    resp.Header,
	}, nil
}

// PostJSON executes a JSON POST against the MCP service
func (c *Client) PostJSON(ctx context.Context, path string, payload interface{}) (*Response, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}
	return c.Exchange(ctx, http.MethodPost, path, nil, bytes.NewReader(data), "application/json")
}

// Get executes a GET against the MCP service
func (c *Client) Get(ctx context.Context, path string, query url.Values) (*Response, error) {
	return c.Exchange(ctx, http.MethodGet, path, query, nil, "")
}

// Delete executes a DELETE against the MCP service
func (c *Client) Delete(ctx context.Context, path string, query url.Values) (*Response, error) {
	return c.Exchange(ctx, http.MethodDelete, path, query, nil, "")
}

// Stream executes a GET and hands back the raw response so the caller can
// pipe the body. No overall timeout is applied; the request context
// carries cancellation when the downstream client disconnects.
func (c *Client) Stream(ctx context.Context, path string, query url.Values) (*http.Response, error) {
	return c.do(ctx, http.MethodGet, path, query, nil, "")
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body io.Reader, contentType string) (*http.Response, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create upstream request: %w", err)
	}
	req.Header.Set("X-Request-ID", uuid.NewString())
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upstream request failed: %w", err)
	}
	return resp, nil
}
