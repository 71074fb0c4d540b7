// Package api is a typed JSON client for the Optiva backend.
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
	"strings"
	"time"
)

// Client issues JSON requests against a base URL. Authentication is the
// job of the http.Client's transport; Client itself never sees tokens.
type Client struct {
	base   *url.URL
	http   *http.Client
	cache  *responseCache
	logger *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the underlying http.Client. Defaults to
// http.DefaultClient.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithCacheTTL sets how long GET responses are cached. Zero disables the
// cache.
func WithCacheTTL(ttl time.Duration) Option {
	return func(c *Client) { c.cache = newResponseCache(ttl) }
}

// WithLogger sets the logger for request-level debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New returns a Client for baseURL, which must be absolute.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base URL %q must be absolute", baseURL)
	}
	c := &Client{
		base:   u,
		http:   http.DefaultClient,
		cache:  newResponseCache(DefaultCacheTTL),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "api")
	return c, nil
}

// BaseURL returns the base URL requests are resolved against.
func (c *Client) BaseURL() string {
	return c.base.String()
}

// Invalidate drops every cached GET response.
func (c *Client) Invalidate() {
	c.cache.clear()
}

func (c *Client) resolve(path string, query url.Values) string {
	u := *c.base
	u.Path = c.base.Path + "/" + strings.TrimLeft(path, "/")
	u.RawQuery = ""
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// Do sends a JSON request. in, if non-nil, is encoded as the body; out, if
// non-nil, receives the decoded 2xx response. Non-2xx responses are returned
// as *Error. Successful GETs are served from and stored in the cache,
// unless the cache was invalidated while the request was in flight; any
// successful non-GET invalidates it.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	target := c.resolve(path, query)
	gen := c.cache.generation()

	if method == http.MethodGet {
		if body, ok := c.cache.get(target); ok {
			c.logger.LogAttrs(ctx, slog.LevelDebug, "cache hit", slog.String("url", target))
			return decodeBody(body, out)
		}
	}

	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding %s %s request: %w", method, path, err)
		}
		body = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("building %s %s request: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	c.logger.LogAttrs(ctx, slog.LevelDebug, "request",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading %s %s response: %w", method, path, err)
	}
	if method == http.MethodGet {
		c.cache.put(target, raw, gen)
	} else {
		c.cache.clear()
	}
	return decodeBody(raw, out)
}

func decodeBody(raw []byte, out any) error {
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	return c.Do(ctx, http.MethodGet, path, query, nil, out)
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	return c.Do(ctx, http.MethodPost, path, nil, in, out)
}

func (c *Client) put(ctx context.Context, path string, in, out any) error {
	return c.Do(ctx, http.MethodPut, path, nil, in, out)
}

func (c *Client) patch(ctx context.Context, path string, in, out any) error {
	return c.Do(ctx, http.MethodPatch, path, nil, in, out)
}

func (c *Client) delete(ctx context.Context, path string) error {
	return c.Do(ctx, http.MethodDelete, path, nil, nil, nil)
}
