// Package apiclient is the panel's outbound request pipeline: every request
// to the backend API goes through a Client, which carries a base URL and a set
// of default headers applied to each request.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultTimeout = 15 * time.Second
	userAgent      = "visaexpress-panel/1.0"
	// maxErrorBody caps how much of a failed response is kept for diagnostics.
	maxErrorBody = 4 << 10
)

// ErrStatus is wrapped by every StatusError.
var ErrStatus = errors.New("unexpected response status")

// StatusError reports a non-2xx response from the backend.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.StatusCode)
}

func (e *StatusError) Unwrap() error { return ErrStatus }

// ObserverFunc is called once per completed request. status is 0 when the
// request failed before a response arrived.
type ObserverFunc func(method, path string, status int, err error)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the per-request timeout of the default *http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http = &http.Client{Timeout: d, Transport: c.http.Transport, Jar: c.http.Jar}
		}
	}
}

// WithObserver registers fn to be told about every completed request.
func WithObserver(fn ObserverFunc) Option {
	return func(c *Client) {
		c.observer = fn
	}
}

// Client issues JSON requests against a backend base URL.
type Client struct {
	baseURL  *url.URL
	http     *http.Client
	defaults http.Header
	observer ObserverFunc
}

// New creates a Client for the backend at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing backend URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("backend URL %q: scheme must be http or https", baseURL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("backend URL %q: missing host", baseURL)
	}

	c := &Client{
		baseURL:  u,
		http:     &http.Client{Timeout: defaultTimeout},
		defaults: make(http.Header),
	}
	c.defaults.Set("Accept", "application/json")
	c.defaults.Set("User-Agent", userAgent)
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Defaults returns the header set applied to every outgoing request.
// Mutations are visible to all subsequent requests made by this Client but
// not to clones taken earlier.
func (c *Client) Defaults() http.Header {
	return c.defaults
}

// Clone returns an independent Client sharing the transport but owning a
// copy of the default headers. opts are applied to the clone only.
func (c *Client) Clone(opts ...Option) *Client {
	clone := &Client{
		baseURL:  c.baseURL,
		http:     c.http,
		defaults: c.defaults.Clone(),
		observer: c.observer,
	}
	for _, opt := range opts {
		opt(clone)
	}
	return clone
}

// BaseURL returns a copy of the backend base URL.
func (c *Client) BaseURL() *url.URL {
	u := *c.baseURL
	return &u
}

// ResolveURL joins path onto the base URL, keeping any base path prefix.
func (c *Client) ResolveURL(path string) *url.URL {
	rawQuery := ""
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path, rawQuery = path[:i], path[i+1:]
	}
	u := c.baseURL.JoinPath(path)
	u.RawQuery = rawQuery
	return u
}

// ApplyDefaults copies the default headers onto h, replacing existing values.
func (c *Client) ApplyDefaults(h http.Header) {
	for k, v := range c.defaults {
		h[k] = append([]string(nil), v...)
	}
}

// NewRequest builds a request for path with the default headers applied.
// A non-nil body is encoded as JSON.
func (c *Client) NewRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
		reader = &buf
	}

	req, err := http.NewRequestWithContext(ctx, method, c.ResolveURL(path).String(), reader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	c.ApplyDefaults(req.Header)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// Do sends req and decodes a JSON response into out when out is non-nil.
// Non-2xx responses yield a *StatusError.
func (c *Client) Do(req *http.Request, out any) (err error) {
	status := 0
	defer func() {
		if c.observer != nil {
			c.observer(req.Method, req.URL.Path, status, err)
		}
	}()

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()
	status = resp.StatusCode

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{
			Method:     req.Method,
			Path:       req.URL.Path,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: decoding response: %w", req.Method, req.URL.Path, err)
	}
	return nil
}

// Get issues a GET for path and decodes the JSON response into out.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	req, err := c.NewRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	return c.Do(req, out)
}

// Post issues a POST for path with body encoded as JSON. The response is
// decoded into out when out is non-nil.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	req, err := c.NewRequest(ctx, http.MethodPost, path, body)
	if err != nil {
		return err
	}
	return c.Do(req, out)
}
