// Package transport executes HTTP requests against provider endpoints.
// It knows nothing about authentication or result classification: callers
// receive the raw status, headers and a size-limited body.
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/1212falcon1212/b2b-pharmacy-sub000/internal/domain/integration"
	"go.uber.org/zap"
)

// maxResponseSize is the maximum allowed response size from a provider (10MB)
const maxResponseSize = 10 * 1024 * 1024

// Default timeouts
const (
	DefaultTimeout     = 30 * time.Second
	DefaultSOAPTimeout = 60 * time.Second
)

// Doer executes a transport request
type Doer interface {
	Do(ctx context.Context, req *Request) (*Response, error)
}

// Response is a fully read provider response
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// IsSuccess reports a 2xx status
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Client is a bounded-timeout HTTP client
type Client struct {
	httpClient *http.Client
	userAgent  string
	logger     *zap.Logger
}

// ClientOption configures a Client
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying http.Client
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithUserAgent sets the User-Agent header sent on every request
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithLogger sets the logger used for request tracing at debug level
func WithLogger(logger *zap.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a Client with the given timeout (DefaultTimeout when <= 0)
func NewClient(timeout time.Duration, opts ...ClientOption) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := &Client{
		httpClient: &http.Client{Timeout: timeout},
		userAgent:  "b2b-pharmacy-integration/1.0",
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Do executes the request. Transport failures (DNS, refused connections,
// timeouts) are wrapped with integration.ErrPlatformUnavailable. Non-2xx
// responses are returned as-is without an error.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	httpReq, err := req.build(ctx)
	if err != nil {
		return nil, fmt.Errorf("transport: failed to create request: %w", err)
	}
	if c.userAgent != "" && httpReq.Header.Get("User-Agent") == "" {
		httpReq.Header.Set("User-Agent", c.userAgent)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", integration.ErrPlatformUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", integration.ErrPlatformUnavailable, err)
	}

	c.logger.Debug("provider request",
		zap.String("method", httpReq.Method),
		zap.String("host", httpReq.URL.Host),
		zap.String("path", httpReq.URL.Path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}, nil
}

var _ Doer = (*Client)(nil)
