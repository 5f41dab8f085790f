package httpclient

import (
	"hue-bridge-client/internal/ports"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const DefaultTimeout = 10 * time.Second

// Client is the HTTP transport shared by discovery, pairing and the bridge
// client. It bounds every request with a timeout and logs each exchange at
// trace level with the username path segment masked.
type Client struct {
	httpClient *http.Client
	logger     zerolog.Logger

	mu       sync.Mutex
	requests int
}

var _ ports.HTTPDoer = (*Client)(nil)

type Option func(*Client)

func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithTransport replaces the underlying round tripper.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) { c.httpClient.Transport = rt }
}

func NewClient(timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := &Client{
		httpClient: &http.Client{Timeout: timeout},
		logger:     log.Logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With().Str("component", "http").Logger()
	return c
}

func (c *Client) Do(req *http.Request) (*http.Response, error) {
	c.mu.Lock()
	c.requests++
	c.mu.Unlock()

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	ev := c.logger.Trace().
		Str("method", req.Method).
		Str("host", req.URL.Host).
		Str("path", MaskPath(req.URL.Path)).
		Dur("elapsed", time.Since(start))
	if err != nil {
		ev.Err(err).Msg("Request failed")
		return nil, err
	}
	ev.Int("status", resp.StatusCode).Msg("Request done")
	return resp, nil
}

// Requests reports how many requests went through the client.
func (c *Client) Requests() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.requests
}

func (c *Client) CloseIdleConnections() {
	c.httpClient.CloseIdleConnections()
}

// MaskPath hides the username in "/api/<username>/...". The bare pairing
// path "/api" is returned as is.
func MaskPath(path string) string {
	rest, ok := strings.CutPrefix(path, "/api/")
	if !ok || rest == "" {
		return path
	}
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		return "/api/***" + rest[i:]
	}
	return "/api/***"
}
