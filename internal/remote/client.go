package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/Conversly/storefront/internal/utils"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrUnauthorized marks a 401/403 from the backend. Callers treat it as
	// "no session", never as a user-facing failure.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrTransport wraps network failures (timeouts, resets, DNS).
	ErrTransport = errors.New("transport failure")
)

// APIError is a request the backend understood and rejected, either with
// success=false or with a non-2xx status. Message is meant to be shown to
// the user verbatim.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend returned status %d", e.Status)
	}
	return e.Message
}

// envelope is the {success, message} wrapper every endpoint responds with.
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

const maxErrorBody = 4 << 10

// Client is the thin HTTP wrapper every storefront component uses to reach
// the backend.
type Client struct {
	baseURL string
	http    *http.Client

	mu    sync.RWMutex
	token string
}

func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) ClearToken() {
	c.SetToken("")
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// do sends body (if any) as JSON and decodes the response into out after
// checking the success envelope.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build %s %s: %w", method, path, err)
	}
	requestID := uuid.New().String()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		utils.Zlog.Warn("Backend request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.String("requestId", requestID),
			zap.Error(err))
		return fmt.Errorf("%w: %s %s: %v", ErrTransport, method, path, err)
	}
	defer resp.Body.Close()

	utils.Zlog.Debug("Backend request",
		zap.String("method", method),
		zap.String("path", path),
		zap.String("requestId", requestID),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)))

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return ErrUnauthorized
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: reading %s %s: %v", ErrTransport, method, path, err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		if resp.StatusCode >= http.StatusBadRequest {
			return &APIError{Status: resp.StatusCode, Message: truncate(string(raw))}
		}
		return fmt.Errorf("failed to decode %s %s: %w", method, path, err)
	}
	if resp.StatusCode >= http.StatusBadRequest || !env.Success {
		return &APIError{Status: resp.StatusCode, Message: env.Message}
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("failed to decode %s %s: %w", method, path, err)
		}
	}
	return nil
}

func truncate(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > maxErrorBody {
		return s[:maxErrorBody]
	}
	return s
}

// Message extracts the user-facing text of err: the backend's own message
// for an APIError, fallback otherwise.
func Message(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}
