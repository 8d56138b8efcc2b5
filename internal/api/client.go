package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultCSRFCookie = "csrftoken"
	DefaultCSRFHeader = "X-CSRFToken"
)

// Client talks to the econdata REST API. State-changing requests carry the
// CSRF token found in the client's cookie jar.
type Client struct {
	BaseURL    *url.URL
	CSRFCookie string
	CSRFHeader string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. A cookie jar is
// attached if the client has none.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithCSRF overrides the cookie the CSRF token is read from and the header it
// is sent in.
func WithCSRF(cookieName, headerName string) Option {
	return func(c *Client) {
		if cookieName != "" {
			c.CSRFCookie = cookieName
		}
		if headerName != "" {
			c.CSRFHeader = headerName
		}
	}
}

// WithCookie seeds the cookie jar, e.g. with a session id or a CSRF token
// obtained out of band.
func WithCookie(name, value string) Option {
	return func(c *Client) {
		if name == "" || value == "" {
			return
		}
		c.jar().SetCookies(c.BaseURL, []*http.Cookie{{Name: name, Value: value, Path: "/"}})
	}
}

// NewClient creates a client for the API rooted at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", baseURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base URL %q must be absolute", baseURL)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	c := &Client{
		BaseURL:    u,
		CSRFCookie: DefaultCSRFCookie,
		CSRFHeader: DefaultCSRFHeader,
		httpClient: &http.Client{
			Jar:     jar,
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) jar() http.CookieJar {
	if c.httpClient.Jar == nil {
		// cookiejar.New never fails with nil options
		jar, _ := cookiejar.New(nil)
		c.httpClient.Jar = jar
	}
	return c.httpClient.Jar
}

// Resolve turns an absolute or base-relative reference into an absolute URL.
func (c *Client) Resolve(ref string) (*url.URL, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return nil, fmt.Errorf("invalid reference %q: %w", ref, err)
	}
	return c.BaseURL.ResolveReference(u), nil
}

// Get fetches ref with the given query and decodes the JSON body into out.
// Parameters already present in ref are kept unless overridden by query.
func (c *Client) Get(ctx context.Context, ref string, query url.Values, out any) error {
	u, err := c.Resolve(ref)
	if err != nil {
		return err
	}
	if len(query) > 0 {
		q := u.Query()
		for k, vs := range query {
			q[k] = append([]string(nil), vs...)
		}
		u.RawQuery = q.Encode()
	}
	return c.do(ctx, http.MethodGet, u, nil, out)
}

// Post sends body as JSON to ref and decodes the response into out, if out
// is non-nil.
func (c *Client) Post(ctx context.Context, ref string, body, out any) error {
	u, err := c.Resolve(ref)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, u, body, out)
}

// Delete removes the resource at ref.
func (c *Client) Delete(ctx context.Context, ref string) error {
	u, err := c.Resolve(ref)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodDelete, u, nil, nil)
}

func (c *Client) do(ctx context.Context, method string, u *url.URL, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if !safeMethod(method) {
		c.setCSRF(req)
	}

	slog.Debug("API request", "method", method, "url", u.String(), "request_id", requestID)
	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s failed: %w", method, u.Redacted(), err)
	}
	defer resp.Body.Close()

	slog.Debug("API response", "method", method, "url", u.String(), "status", resp.StatusCode,
		"request_id", requestID, "duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &StatusError{
			Method:     method,
			URL:        u.Redacted(),
			StatusCode: resp.StatusCode,
			Body:       string(data),
		}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", u.Redacted(), err)
	}
	return nil
}

// setCSRF copies the CSRF cookie into the CSRF header. Django also checks the
// Referer of secure requests, so it is pointed at the API root.
func (c *Client) setCSRF(req *http.Request) {
	req.Header.Set("Referer", c.BaseURL.String())
	for _, cookie := range c.jar().Cookies(req.URL) {
		if cookie.Name == c.CSRFCookie {
			req.Header.Set(c.CSRFHeader, cookie.Value)
			return
		}
	}
	slog.Debug("No CSRF cookie present", "cookie", c.CSRFCookie, "url", req.URL.String())
}

func safeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return true
	}
	return false
}
