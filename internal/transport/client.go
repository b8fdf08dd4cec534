// Package transport is the HTTP client for the drafts service: authenticated
// JSON requests against the versioned API plus raw requests against opaque
// pre-signed upload and download URLs.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"draftshare/internal/model"
)

// StatusError is a non-2xx response from the remote service, carrying the
// attempted operation's description and the best-effort server message.
type StatusError struct {
	Op      string
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %s (status %d)", e.Op, e.Message, e.Status)
}

type Client struct {
	baseURL string
	token   string
	http    *http.Client
	logger  *slog.Logger
}

func NewClient(baseURL, token string, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 60 * time.Second},
		logger:  logger,
	}
}

// SetTimeout overrides the default 60s per-request timeout.
func (c *Client) SetTimeout(d time.Duration) {
	if d > 0 {
		c.http.Timeout = d
	}
}

// JSON issues an authenticated request against the drafts API and decodes
// the response body into out when out is non-nil. Any non-2xx response
// becomes a StatusError before a success body is ever parsed.
func (c *Client) JSON(ctx context.Context, op, method, path string, body, out any, hdr http.Header) error {
	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	for key, values := range hdr {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}

	c.logger.Debug("drafts api request", "op", op, "method", method, "path", path)
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s: read response: %w", op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Op: op, Status: resp.StatusCode, Message: extractMessage(respBody, resp.Status)}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

// Upload pushes patch content to a pre-signed object-storage target.
func (c *Client) Upload(ctx context.Context, ref model.SecureBlobRef, content []byte) error {
	method := ref.Method
	if method == "" {
		method = http.MethodPut
	}
	resp, err := c.raw(ctx, method, ref, bytes.NewReader(content))
	if err != nil {
		return fmt.Errorf("upload patch content: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		return &StatusError{Op: "upload patch content", Status: resp.StatusCode, Message: extractMessage(body, resp.Status)}
	}
	return nil
}

// Download fetches patch content from a pre-signed object-storage target.
func (c *Client) Download(ctx context.Context, ref model.SecureBlobRef) ([]byte, error) {
	method := ref.Method
	if method == "" {
		method = http.MethodGet
	}
	resp, err := c.raw(ctx, method, ref, nil)
	if err != nil {
		return nil, fmt.Errorf("download patch content: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("download patch content: read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Op: "download patch content", Status: resp.StatusCode, Message: extractMessage(body, resp.Status)}
	}
	return body, nil
}

func (c *Client) raw(ctx context.Context, method string, ref model.SecureBlobRef, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, ref.URL, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for key, value := range ref.Headers {
		req.Header.Set(key, value)
	}
	return c.http.Do(req)
}

// extractMessage pulls a server error message out of a response body that is
// either a bare JSON string or a {message} object, falling back to the HTTP
// status text.
func extractMessage(body []byte, statusText string) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return statusText
	}
	var asString string
	if err := json.Unmarshal(body, &asString); err == nil && asString != "" {
		return asString
	}
	var asObject struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &asObject); err == nil && asObject.Message != "" {
		return asObject.Message
	}
	return statusText
}
