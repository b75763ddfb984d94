package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/pvault/internal/common"
	"github.com/dmitrijs2005/pvault/internal/logging"
	"github.com/dmitrijs2005/pvault/internal/netx"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL = "http://localhost:8080/api"
	DefaultTimeout = 30 * time.Second

	// maxErrorBody bounds how much of a failed response is read.
	maxErrorBody = 64 << 10
	// MaxArtifactSize bounds a single downloaded artifact.
	MaxArtifactSize = 64 << 20
)

// TokenSource yields the bearer token to attach, or "" for none.
type TokenSource func() string

type HTTPClient struct {
	base    *url.URL
	hc      *http.Client
	limiter *rate.Limiter
	token   TokenSource
	log     logging.Logger
	reqID   func() string
}

type Option func(*HTTPClient)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *HTTPClient) { c.hc = hc }
}

func WithTimeout(d time.Duration) Option {
	return func(c *HTTPClient) {
		if d > 0 {
			c.hc.Timeout = d
		}
	}
}

// WithRateLimit paces outgoing calls. A non-positive rps disables pacing.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *HTTPClient) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

func WithTokenSource(ts TokenSource) Option {
	return func(c *HTTPClient) { c.token = ts }
}

func WithLogger(l logging.Logger) Option {
	return func(c *HTTPClient) {
		if l != nil {
			c.log = l
		}
	}
}

// New builds a client for baseURL (for example http://localhost:8080/api).
func New(baseURL string, opts ...Option) (*HTTPClient, error) {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("parse base url: unsupported scheme %q", u.Scheme)
	}

	c := &HTTPClient{
		base:  u,
		hc:    &http.Client{Timeout: DefaultTimeout},
		token: func() string { return "" },
		log:   logging.Nop(),
		reqID: func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the normalized API root.
func (c *HTTPClient) BaseURL() string {
	return c.base.String()
}

func (c *HTTPClient) endpoint(path string, query url.Values) string {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// send performs one request and returns the response when its status is 2xx.
// The caller owns the body.
func (c *HTTPClient) send(ctx context.Context, op, method, path string, query url.Values, body io.Reader, contentType string) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, transportError(op, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, query), body)
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", op, err)
	}

	id := c.reqID()
	req.Header.Set(common.RequestIDHeaderName, id)
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token := c.token(); token != "" {
		req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+token)
	}

	started := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		c.log.Warn(ctx, "api request failed", "op", op, "request_id", id, "error", err)
		return nil, transportError(op, err)
	}
	c.log.Debug(ctx, "api request", "op", op, "method", method, "path", path,
		"status", resp.StatusCode, "request_id", id, "duration", time.Since(started))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := netx.ReadSnippet(resp.Body, maxErrorBody)
		netx.DrainAndClose(resp.Body)
		return nil, statusError(op, resp.StatusCode, snippet)
	}
	return resp, nil
}

// doJSON sends in (if non-nil) as JSON and decodes a 2xx body into out (if
// non-nil).
func (c *HTTPClient) doJSON(ctx context.Context, op, method, path string, query url.Values, in, out any) error {
	var (
		body        io.Reader
		contentType string
	)
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		body = bytes.NewReader(b)
		contentType = "application/json"
	}

	resp, err := c.send(ctx, op, method, path, query, body, contentType)
	if err != nil {
		return err
	}
	defer netx.DrainAndClose(resp.Body)

	if out == nil {
		return nil
	}
	if err := decodeOptional(resp.Body, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}
