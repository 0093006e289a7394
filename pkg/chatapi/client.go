// Package chatapi is the HTTP client for the v2v chat backend.
//
// The backend exposes a small JSON API under a base URL (by default
// http://localhost:8000/api):
//
//	GET  {base}               health check, {"status": "ok"}
//	POST {base}/chat          {"message", "session_id"} → {"response", "session_id"}
//	GET  {base}/session       list sessions
//	POST {base}/session       create a session
//	GET  {base}/session/{id}  {"messages": [{"role", "content"}]}
//
// Every call is a single attempt. Failures are returned as *Error.
package chatapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultBaseURL is the backend address used when none is configured.
const DefaultBaseURL = "http://localhost:8000/api"

// EnvBaseURL names the environment variable that overrides the default base
// URL.
const EnvBaseURL = "V2V_API_BASE_URL"

// RequestIDHeader carries the per-request correlation id.
const RequestIDHeader = "X-Request-Id"

// maxErrorBody bounds how much of an error response body is kept.
const maxErrorBody = 512

// Client talks to the chat backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	log        *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL sets the API base URL.
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = url
	}
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout bounds each request. By default requests are only bounded by
// the caller's context.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithLogger sets the logger for request tracing.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.log = l
	}
}

// NewClient creates a client. The base URL defaults to $V2V_API_BASE_URL,
// then DefaultBaseURL.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL: os.Getenv(EnvBaseURL),
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	for _, opt := range opts {
		opt(c)
	}
	c.baseURL = strings.TrimRight(c.baseURL, "/")
	if c.httpClient == nil {
		c.httpClient = http.DefaultClient
	}
	if c.log == nil {
		c.log = slog.Default()
	}
	return c
}

// BaseURL returns the API base URL in use.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// doJSON sends a JSON request and decodes a 2xx JSON response into result.
func (c *Client) doJSON(ctx context.Context, op, method, path string, body, result any) error {
	reqID := uuid.New().String()
	fail := func(status int, msg string, err error) error {
		return &Error{Op: op, StatusCode: status, RequestID: reqID, Message: msg, Err: err}
	}

	var bodyReader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fail(0, "", fmt.Errorf("marshal request: %w", err))
		}
		bodyReader = bytes.NewReader(b)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fail(0, "", fmt.Errorf("create request: %w", err))
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, reqID)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Debug("chatapi: request failed", "op", op, "request_id", reqID, "err", err)
		return fail(0, "", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fail(resp.StatusCode, "", fmt.Errorf("read response: %w", err))
	}
	c.log.Debug("chatapi: request done",
		"op", op, "request_id", reqID, "status", resp.StatusCode, "elapsed", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fail(resp.StatusCode, errorMessage(respBody), errUnexpectedStatus)
	}
	if result == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, result); err != nil {
		return fail(resp.StatusCode, "", fmt.Errorf("decode response: %w", err))
	}
	return nil
}

var errUnexpectedStatus = errors.New("unexpected status")

// errorMessage extracts a readable message from an error body. FastAPI
// reports errors as {"detail": ...}.
func errorMessage(body []byte) string {
	var v struct {
		Detail json.RawMessage `json:"detail"`
	}
	if json.Unmarshal(body, &v) == nil && len(v.Detail) > 0 {
		var s string
		if json.Unmarshal(v.Detail, &s) == nil {
			return s
		}
		body = v.Detail
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > maxErrorBody {
		msg = msg[:maxErrorBody] + "..."
	}
	return msg
}
