// Package remote provides the HTTP transport to the rental backend.
// It prepares requests (base URL per domain, JSON body, bearer token,
// request id) and maps failures onto the transport/HTTP error taxonomy.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/artpar/rentdesk/adapters/idgen"
	"github.com/artpar/rentdesk/adapters/metrics"
	"github.com/artpar/rentdesk/ports"
	"github.com/rs/zerolog"
)

// Client provides HTTP communication with the rental backend.
type Client struct {
	httpClient *http.Client
	baseURL    string
	domains    map[string]string
	headers    map[string]string
	ids        ports.IDGenerator
	metrics    *metrics.Collector
	logger     zerolog.Logger
}

// ClientConfig configures the remote client.
type ClientConfig struct {
	BaseURL string
	// Domains overrides BaseURL for individual domains ("vehicles", "bookings", ...).
	Domains map[string]string
	// Timeout is the transport timeout. Zero keeps the http.Client default (none).
	Timeout time.Duration
	Headers map[string]string

	HTTPClient *http.Client
	IDs        ports.IDGenerator
	Metrics    *metrics.Collector
	Logger     zerolog.Logger
}

// NewClient creates a new remote HTTP client.
func NewClient(cfg ClientConfig) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	ids := cfg.IDs
	if ids == nil {
		ids = idgen.RequestID{}
	}

	domains := make(map[string]string, len(cfg.Domains))
	for k, v := range cfg.Domains {
		domains[k] = strings.TrimRight(v, "/")
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		domains:    domains,
		headers:    cfg.Headers,
		ids:        ids,
		metrics:    cfg.Metrics,
		logger:     cfg.Logger,
	}
}

// BaseURL returns the base URL used for a domain.
func (c *Client) BaseURL(domain string) string {
	if u, ok := c.domains[domain]; ok && u != "" {
		return u
	}
	return c.baseURL
}

// NewRequest builds the *http.Request for a prepared call.
// The token is taken from req, never from ambient state.
func (c *Client) NewRequest(ctx context.Context, req ports.Request) (*http.Request, error) {
	var bodyReader io.Reader
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.BaseURL(req.Domain)+req.Path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	// Configured headers go first; the session token and protocol headers win.
	for k, v := range c.headers {
		httpReq.Header.Set(k, v)
	}

	httpReq.Header.Set("Accept", "application/json")
	if req.Body != nil || isMutation(method) {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if req.Token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.Token)
	}
	httpReq.Header.Set("X-Request-ID", c.ids.New())

	return httpReq, nil
}

func isMutation(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return false
	}
	return true
}

// Do sends the request and returns the body of a 2xx response.
func (c *Client) Do(ctx context.Context, req ports.Request) ([]byte, error) {
	httpReq, err := c.NewRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	if c.metrics != nil {
		c.metrics.RequestsInFlight.Inc()
		defer c.metrics.RequestsInFlight.Dec()
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.observe(req, httpReq.Method, 0, start)
		c.logger.Debug().
			Err(err).
			Str("endpoint", req.Endpoint).
			Str("request_id", httpReq.Header.Get("X-Request-ID")).
			Msg("backend request failed")
		return nil, &TransportError{Op: httpReq.Method + " " + req.Path, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	c.observe(req, httpReq.Method, resp.StatusCode, start)
	if err != nil {
		return nil, &TransportError{Op: "read " + req.Path, Err: err}
	}

	c.logger.Debug().
		Str("endpoint", req.Endpoint).
		Str("method", httpReq.Method).
		Str("path", req.Path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Str("request_id", httpReq.Header.Get("X-Request-ID")).
		Msg("backend request")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	return body, nil
}

func (c *Client) observe(req ports.Request, method string, status int, start time.Time) {
	if c.metrics == nil {
		return
	}
	c.metrics.RequestsTotal.WithLabelValues(req.Endpoint, method, metrics.StatusClass(status)).Inc()
	c.metrics.RequestDuration.WithLabelValues(req.Endpoint, method).Observe(time.Since(start).Seconds())
}

// Ensure interface compliance.
var _ ports.Transport = (*Client)(nil)
