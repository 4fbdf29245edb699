// Package api is the HTTP adapter between the stores and the lead backend.
//
// Every request reads the bearer token through a TokenSource, so the adapter
// never caches credentials. Transport failures surface as domain.ErrNetwork
// and rejected requests as *domain.APIError carrying the server's message.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"github.com/leadflow/leadctl/internal/core/domain"
	"github.com/leadflow/leadctl/internal/core/query"
	"github.com/leadflow/leadctl/internal/metrics"
)

const (
	DefaultBaseURL = "https://lead-management-system-backend-whbe.onrender.com/api/v1/"
	DefaultTimeout = 15 * time.Second

	// HeaderRequestID correlates a client request with backend logs.
	HeaderRequestID = "X-Request-ID"

	maxBodyBytes = 4 << 20
)

// TokenSource yields the current bearer token, or "" when logged out.
type TokenSource interface {
	Token(ctx context.Context) string
}

// TokenSourceFunc adapts a function to TokenSource.
type TokenSourceFunc func(ctx context.Context) string

func (f TokenSourceFunc) Token(ctx context.Context) string { return f(ctx) }

// Config captures the adapter settings.
type Config struct {
	BaseURL string
	Timeout time.Duration
	// RateLimit is requests per second; zero disables pacing.
	RateLimit float64
	RateBurst int
}

// Client issues JSON requests against the backend base URL.
type Client struct {
	base    *url.URL
	http    *http.Client
	tokens  TokenSource
	limiter *rate.Limiter
	log     zerolog.Logger
}

// NewClient builds a Client. A nil tokens source sends no Authorization header.
func NewClient(cfg Config, tokens TokenSource, log zerolog.Logger) (*Client, error) {
	raw := cfg.BaseURL
	if raw == "" {
		raw = DefaultBaseURL
	}
	if !strings.HasSuffix(raw, "/") {
		raw += "/"
	}
	base, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", raw)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}
	if tokens == nil {
		tokens = TokenSourceFunc(func(context.Context) string { return "" })
	}

	c := &Client{
		base:   base,
		http:   &http.Client{Timeout: timeout, Jar: jar},
		tokens: tokens,
		log:    log,
	}
	if cfg.RateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), max(cfg.RateBurst, 1))
	}
	return c, nil
}

// BaseURL returns the resolved base URL.
func (c *Client) BaseURL() string {
	return c.base.String()
}

// Ping checks that the backend answers at all. Any HTTP status counts as reachable.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.base.String(), nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrNetwork, err)
	}
	resp.Body.Close()
	return nil
}

// route is a request target. endpoint is the path template used as the
// metrics label; path is the concrete relative path.
type route struct {
	method   string
	endpoint string
	path     string
}

type response struct {
	status  int
	body    []byte
	cookies []*http.Cookie
}

func (c *Client) do(ctx context.Context, rt route, params query.Values, body any) (*response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: %s %s: %v", domain.ErrNetwork, rt.method, rt.endpoint, err)
		}
	}

	ref, err := url.Parse(rt.path)
	if err != nil {
		return nil, fmt.Errorf("build url %s: %w", rt.path, err)
	}
	if len(params) > 0 {
		ref.RawQuery = params.Encode()
	}
	target := c.base.ResolveReference(ref)

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode %s body: %w", rt.endpoint, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, rt.method, target.String(), reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	reqID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set(HeaderRequestID, reqID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok := c.tokens.Token(ctx); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.ObserveRequest(rt.method, rt.endpoint, 0, time.Since(start))
		c.log.Warn().Err(err).Str("request_id", reqID).Str("endpoint", rt.endpoint).Msg("request failed")
		return nil, fmt.Errorf("%w: %s %s: %v", domain.ErrNetwork, rt.method, rt.endpoint, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	metrics.ObserveRequest(rt.method, rt.endpoint, resp.StatusCode, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s response: %v", domain.ErrNetwork, rt.endpoint, err)
	}

	c.log.Debug().
		Str("request_id", reqID).
		Str("method", rt.method).
		Str("endpoint", rt.endpoint).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("backend request")

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, &domain.APIError{Status: resp.StatusCode, Message: serverMessage(raw)}
	}
	return &response{status: resp.StatusCode, body: raw, cookies: resp.Cookies()}, nil
}

// serverMessage extracts the backend's human-readable message, if any.
func serverMessage(body []byte) string {
	if !gjson.ValidBytes(body) {
		return ""
	}
	for _, path := range []string{"message", "error.message", "error"} {
		if r := gjson.GetBytes(body, path); r.Type == gjson.String && r.Str != "" {
			return r.Str
		}
	}
	return ""
}

// unwrap returns the raw JSON at the first of paths holding an object, or the
// whole body when none does.
func unwrap(body []byte, paths ...string) []byte {
	for _, p := range paths {
		if r := gjson.GetBytes(body, p); r.IsObject() {
			return []byte(r.Raw)
		}
	}
	return body
}

func decode(raw []byte, v any, what string) error {
	if len(bytes.TrimSpace(raw)) == 0 {
		return fmt.Errorf("decode %s: empty body", what)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode %s: %w", what, err)
	}
	return nil
}

// errUnexpected reports a 2xx response the adapter cannot interpret.
func errUnexpected(endpoint string, status int) error {
	return fmt.Errorf("unexpected %d response from %s", status, endpoint)
}
