// Package api is the JSON client for the HisaabPlus REST backend.
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
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"hisaabpos/domain"
)

// HeaderCorrelationID is sent with every request so backend logs can be matched to ours
const HeaderCorrelationID = "X-Correlation-ID"

// TokenSource supplies the bearer token for each request. An empty token sends no header.
type TokenSource interface {
	AccessToken() string
}

// StaticToken is a fixed bearer token
type StaticToken string

// AccessToken implements TokenSource
func (t StaticToken) AccessToken() string { return string(t) }

// Client sends JSON requests to the backend
type Client struct {
	BaseURL *url.URL
	HTTP    *http.Client
	Tokens  TokenSource
}

// NewClient parses baseURL and returns a Client. A nil httpClient uses http.DefaultClient.
func NewClient(baseURL string, httpClient *http.Client, tokens TokenSource) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid api url %q: %w", baseURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid api url %q: scheme and host required", baseURL)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{BaseURL: u, HTTP: httpClient, Tokens: tokens}, nil
}

// Get decodes the response of GET path into out
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.Do(ctx, http.MethodGet, path, query, nil, out)
}

// Post sends in as JSON and decodes the response into out
func (c *Client) Post(ctx context.Context, path string, in, out any) error {
	return c.Do(ctx, http.MethodPost, path, nil, in, out)
}

// Put sends in as JSON and decodes the response into out
func (c *Client) Put(ctx context.Context, path string, in, out any) error {
	return c.Do(ctx, http.MethodPut, path, nil, in, out)
}

// Patch sends in as JSON and decodes the response into out
func (c *Client) Patch(ctx context.Context, path string, in, out any) error {
	return c.Do(ctx, http.MethodPatch, path, nil, in, out)
}

// Delete issues DELETE path
func (c *Client) Delete(ctx context.Context, path string) error {
	return c.Do(ctx, http.MethodDelete, path, nil, nil, nil)
}

// Do performs one request. Transport failures become *domain.NetworkError and
// non-2xx responses *domain.BackendError carrying the backend's message.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	op := method + " " + path

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: encode body: %w", op, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url(path, query), body)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Tokens != nil {
		if tok := c.Tokens.AccessToken(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}
	cid := uuid.NewString()
	req.Header.Set(HeaderCorrelationID, cid)

	start := time.Now()
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return &domain.NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	slog.Debug("api request",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"correlation_id", cid,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &domain.NetworkError{Op: op, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &domain.BackendError{StatusCode: resp.StatusCode, Message: backendMessage(raw)}
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &domain.NetworkError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func (c *Client) url(path string, query url.Values) string {
	u := *c.BaseURL
	u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.TrimLeft(path, "/")
	u.RawQuery = query.Encode()
	return u.String()
}

// backendMessage extracts a human message from an error body. DRF-style bodies carry
// it under detail/message/error, or as per-field lists of strings.
func backendMessage(raw []byte) string {
	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		return ""
	}
	for _, k := range []string{"detail", "message", "error", "non_field_errors"} {
		if s := firstString(body[k]); s != "" {
			return s
		}
	}
	keys := make([]string, 0, len(body))
	for k := range body {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if s := firstString(body[k]); s != "" {
			return k + ": " + s
		}
	}
	return ""
}

func firstString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []any:
		for _, e := range t {
			if s := firstString(e); s != "" {
				return s
			}
		}
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if s := firstString(t[k]); s != "" {
				return s
			}
		}
	}
	return ""
}
