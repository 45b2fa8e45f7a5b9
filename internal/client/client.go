// Package client provides an HTTP client for the PartSelect assistant service.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/raphaelgruber/partchat/internal/metrics"
)

// DefaultTimeout bounds a single request. Chat turns run retrieval and
// validation server-side and can take a while.
const DefaultTimeout = 2 * time.Minute

// ErrNotFound is returned when the service answers 404.
var ErrNotFound = errors.New("not found")

// APIError is a non-2xx response from the service. The body follows the
// service's {"error", "message", "detail"} shape when it can be decoded.
type APIError struct {
	StatusCode int
	Type       string
	Message    string
	Detail     string
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return fmt.Sprintf("server error %d: %s", e.StatusCode, msg)
}

// Unwrap maps 404 responses onto ErrNotFound.
func (e *APIError) Unwrap() error {
	if e.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	return nil
}

// Client talks to the assistant service's REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	metrics    *metrics.Collector
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithMetrics records the timing of every call in mc.
func WithMetrics(mc *metrics.Collector) Option {
	return func(c *Client) { c.metrics = mc }
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a client for the service at baseURL (e.g. http://localhost:8000).
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "client")
	return c
}

// BaseURL returns the service root the client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

// Metrics returns the collector passed via WithMetrics, if any.
func (c *Client) Metrics() *metrics.Collector { return c.metrics }

// slowRequestThreshold is the duration above which requests are logged at WARN level.
// Chat turns run a model and a validation pass, so the bar is high.
const slowRequestThreshold = 30 * time.Second

// errorBody is the service's error payload.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Detail  string `json:"detail"`
}

// do sends a request with an optional JSON body and decodes a JSON response into result.
func (c *Client) do(ctx context.Context, op, method, path string, body, result any) (err error) {
	done := c.metrics.Track(op)
	defer func() { done(err) }()

	var reader io.Reader
	if body != nil {
		reqBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(reqBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	requestID := uuid.New().String()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	duration := time.Since(start)
	attrs := []any{
		"operation", op,
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"request_id", requestID,
		"duration_ms", duration.Milliseconds(),
	}
	if duration > slowRequestThreshold {
		c.logger.Warn("slow request", attrs...)
	} else {
		c.logger.Debug("request completed", attrs...)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var eb errorBody
		if json.Unmarshal(respBody, &eb) == nil {
			apiErr.Type = eb.Error
			apiErr.Message = eb.Message
			apiErr.Detail = eb.Detail
		} else {
			apiErr.Message = strings.TrimSpace(string(respBody))
		}
		return apiErr
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return nil
}

// =============================================================================
// SESSION OPERATIONS
// =============================================================================

// SessionResponse is returned by session creation.
type SessionResponse struct {
	SessionID string    `json:"session_id"`
	CreatedAt Timestamp `json:"created_at"`
}

// CreateSession asks the service for a fresh conversation session.
func (c *Client) CreateSession(ctx context.Context) (*SessionResponse, error) {
	var result SessionResponse
	if err := c.do(ctx, metrics.OpCreateSession, http.MethodPost, "/api/session/new", nil, &result); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	if result.SessionID == "" {
		return nil, errors.New("create session: response has no session_id")
	}
	return &result, nil
}

// DeleteSession discards a session on the service.
func (c *Client) DeleteSession(ctx context.Context, sessionID string) error {
	if err := c.do(ctx, metrics.OpDeleteSession, http.MethodDelete, "/api/session/"+url.PathEscape(sessionID), nil, nil); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// HistoryEntry is one stored exchange of a session.
type HistoryEntry struct {
	Timestamp Timestamp `json:"timestamp"`
	User      string    `json:"user"`
	Agent     string    `json:"agent"`
}

// History returns the exchanges the service remembers for a session.
// Unknown or expired sessions yield ErrNotFound.
func (c *Client) History(ctx context.Context, sessionID string) ([]HistoryEntry, error) {
	var result struct {
		SessionID string         `json:"session_id"`
		History   []HistoryEntry `json:"history"`
	}
	path := "/api/session/" + url.PathEscape(sessionID) + "/history"
	if err := c.do(ctx, metrics.OpHistory, http.MethodGet, path, nil, &result); err != nil {
		return nil, fmt.Errorf("get history: %w", err)
	}
	return result.History, nil
}

// =============================================================================
// CHAT OPERATIONS
// =============================================================================

// ChatRequest is one user turn.
type ChatRequest struct {
	Message             string `json:"message"`
	SessionID           string `json:"session_id,omitempty"`
	EnableValidation    *bool  `json:"enable_validation,omitempty"`
	ValidationThreshold *int   `json:"validation_threshold,omitempty"`
}

// ChatResponse is the service's reply to a turn.
type ChatResponse struct {
	Response        string           `json:"response"`
	SessionID       string           `json:"session_id"`
	ValidationScore *int             `json:"validation_score,omitempty"`
	FunctionCalls   []map[string]any `json:"function_calls,omitempty"`
	Timestamp       string           `json:"timestamp"`
}

// Chat sends one turn and waits for the reply.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	var result ChatResponse
	if err := c.do(ctx, metrics.OpChat, http.MethodPost, "/api/chat", req, &result); err != nil {
		return nil, fmt.Errorf("chat: %w", err)
	}
	return &result, nil
}

// =============================================================================
// HEALTH
// =============================================================================

// HealthResponse reports the service and its backing stores.
type HealthResponse struct {
	Status   string          `json:"status"`
	Version  string          `json:"version"`
	Database map[string]bool `json:"database"`
}

// Healthy reports whether the service considers itself fully healthy.
func (h HealthResponse) Healthy() bool { return h.Status == "healthy" }

// Health checks the service's health endpoint.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var result HealthResponse
	if err := c.do(ctx, metrics.OpHealth, http.MethodGet, "/health", nil, &result); err != nil {
		return nil, fmt.Errorf("health check: %w", err)
	}
	return &result, nil
}
