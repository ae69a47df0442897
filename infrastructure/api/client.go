// Package api implements the chat server's HTTP contract: room listing and
// creation, message history and posting, fallback presence, and file upload.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	apperr "chat-sync/errors"
)

const csrfHeader = "X-CSRF-Token"

// Client talks to one chat server. It is safe for concurrent use; request
// lifecycles are controlled entirely by the caller's context.
type Client struct {
	http    *http.Client
	baseURL string
	csrf    string
	log     *slog.Logger
}

// NewClient builds a Client. The csrf token is caller-supplied (token
// issuance is outside this engine) and is attached to message posts only.
func NewClient(httpClient *http.Client, baseURL, csrf string, log *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{http: httpClient, baseURL: baseURL, csrf: csrf, log: log}
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	return c.send(req, out)
}

func (c *Client) post(ctx context.Context, path string, body any, out any, withCSRF bool) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if withCSRF && c.csrf != "" {
		req.Header.Set(csrfHeader, c.csrf)
	}
	return c.send(req, out)
}

// send executes the request and decodes the JSON answer into out.
// Non-2xx statuses become ErrServerRejected carrying the payload's error
// string when one is present.
func (c *Client) send(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &statusError{code: resp.StatusCode, reason: rejectionReason(raw)}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decoding %s: %w", req.URL.Path, err)
	}
	return nil
}

// statusError is a non-2xx answer. It unwraps to ErrServerRejected so
// callers can classify without looking at the code, while JoinRoom can still
// special-case 404.
type statusError struct {
	code   int
	reason string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("server rejected request: status %d: %s", e.code, e.reason)
}

func (e *statusError) Unwrap() error { return apperr.ErrServerRejected }

// rejectionReason pulls the server's error string out of a failure payload,
// falling back to a trimmed raw body.
func rejectionReason(raw []byte) string {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil {
		if payload.Error != "" {
			return payload.Error
		}
		if payload.Message != "" {
			return payload.Message
		}
	}
	const maxReason = 200
	if len(raw) > maxReason {
		raw = raw[:maxReason]
	}
	return string(raw)
}

func pageQuery(roomID string, page, limit int) url.Values {
	return url.Values{
		"roomId": {roomID},
		"page":   {strconv.Itoa(page)},
		"limit":  {strconv.Itoa(limit)},
	}
}
