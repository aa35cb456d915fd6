// Package client provides the HTTP transport for listsync: it issues GET
// requests against a paginated JSON API with quota-based rate limiting and
// decodes the response envelope.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/listsync/pkg/logging"
	"github.com/Sternrassler/listsync/pkg/query"
	"github.com/Sternrassler/listsync/pkg/ratelimit"
	"github.com/Sternrassler/listsync/pkg/transport"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// maxErrorBody bounds how much of a failed response is kept as the message.
const maxErrorBody = 4 << 10

// Prometheus metrics for HTTP transport operations.
var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "listsync_http_requests_total",
		Help: "Total HTTP requests by endpoint and status",
	}, []string{"endpoint", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "listsync_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds by endpoint",
		Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	httpErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "listsync_http_errors_total",
		Help: "Total HTTP errors by class",
	}, []string{"class"})
)

var validate = validator.New()

// Client is the HTTP transport. It implements transport.Transport.
type Client struct {
	httpClient  *http.Client
	rateLimiter *ratelimit.Tracker
	config      Config
	logger      zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// BaseURL is prepended to every endpoint.
	BaseURL string `validate:"required,url"`

	// UserAgent is sent with every request.
	UserAgent string `validate:"required"`

	// Timeout bounds a single HTTP request (default: 30s).
	Timeout time.Duration `validate:"gte=0"`

	// Redis enables shared rate limit tracking when set.
	Redis *redis.Client `validate:"-"`

	// Headers are added to every request.
	Headers map[string]string `validate:"-"`
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(baseURL, userAgent string) Config {
	return Config{
		BaseURL:   baseURL,
		UserAgent: userAgent,
		Timeout:   30 * time.Second,
	}
}

// New creates a new HTTP transport.
func New(cfg Config) (*Client, error) {
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid client config: %w", err)
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	logger := logging.NewLogger("http-client")

	var rateLimiter *ratelimit.Tracker
	if cfg.Redis != nil {
		rateLimiter = ratelimit.NewTracker(cfg.Redis, logging.NewLogger("ratelimit"))
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		rateLimiter: rateLimiter,
		config:      cfg,
		logger:      logger,
	}, nil
}

// Get performs a GET request against endpoint with params encoded in the
// query string and decodes the paginated envelope. Non-2xx statuses and
// network failures are returned as *transport.Error.
func (c *Client) Get(ctx context.Context, endpoint string, params query.Params) (*transport.Response, error) {
	target := c.config.BaseURL + "/" + strings.TrimLeft(endpoint, "/")
	if encoded := query.Encode(params).Encode(); encoded != "" {
		target += "?" + encoded
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		message := strings.TrimSpace(string(body))
		if message == "" {
			message = resp.Status
		}
		return nil, &transport.Error{
			StatusCode: resp.StatusCode,
			Message:    message,
		}
	}

	var envelope transport.Response
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, &transport.Error{
			StatusCode: resp.StatusCode,
			Message:    "decode response envelope",
			Err:        err,
		}
	}

	return &envelope, nil
}

// Do performs an HTTP request with rate limiting and instrumentation. The
// caller owns the response body. Only network failures and requests stopped
// by the rate limiter are returned as errors.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	endpoint := req.URL.Path

	startTime := time.Now()
	defer func() {
		httpRequestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	if c.rateLimiter != nil {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, c.rateLimitError(endpoint, err)
		}
	}

	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")
	for key, value := range c.config.Headers {
		req.Header.Set(key, value)
	}

	c.logger.Debug().
		Str("endpoint", endpoint).
		Str("method", req.Method).
		Str("query", req.URL.RawQuery).
		Msg("Executing request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		errClass := c.classifyError(nil, err)
		httpErrorsTotal.WithLabelValues(string(errClass)).Inc()
		httpRequestsTotal.WithLabelValues(endpoint, "network_error").Inc()
		c.logger.Error().Err(err).Str("endpoint", endpoint).Msg("HTTP request failed")
		return nil, &transport.Error{
			Message: "request failed",
			Err:     err,
		}
	}

	if c.rateLimiter != nil {
		if err := c.rateLimiter.UpdateFromHeaders(ctx, resp.Header); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to update rate limit from headers")
		}
	}

	httpRequestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode >= 400 {
		errClass := c.classifyError(resp, nil)
		httpErrorsTotal.WithLabelValues(string(errClass)).Inc()
		c.logger.Warn().
			Str("endpoint", endpoint).
			Int("status", resp.StatusCode).
			Str("error_class", string(errClass)).
			Msg("Request error")
	}

	return resp, nil
}

// rateLimitError reports a request stopped before it was sent. Only an
// exhausted quota is a 429; a failed quota lookup or a cancelled throttle
// pause keeps status 0.
func (c *Client) rateLimitError(endpoint string, err error) error {
	switch {
	case errors.Is(err, ratelimit.ErrBlocked):
		c.logger.Warn().
			Str("endpoint", endpoint).
			Msg("Request blocked by rate limiter")
		httpRequestsTotal.WithLabelValues(endpoint, "rate_limited").Inc()
		httpErrorsTotal.WithLabelValues(string(ErrorClassRateLimit)).Inc()
		return &transport.Error{
			StatusCode: http.StatusTooManyRequests,
			Message:    "rate limit quota exhausted",
			Err:        err,
		}

	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		httpRequestsTotal.WithLabelValues(endpoint, "cancelled").Inc()
		httpErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		return &transport.Error{
			Message: "rate limit wait",
			Err:     err,
		}

	default:
		c.logger.Error().
			Err(err).
			Str("endpoint", endpoint).
			Msg("Rate limit check failed")
		httpRequestsTotal.WithLabelValues(endpoint, "rate_limit_check_failed").Inc()
		httpErrorsTotal.WithLabelValues(string(ErrorClassRateLimitCheck)).Inc()
		return &transport.Error{
			Message: "rate limit check",
			Err:     fmt.Errorf("%w: %w", ErrRateLimitCheck, err),
		}
	}
}

// classifyError categorizes an error for observability.
func (c *Client) classifyError(resp *http.Response, err error) ErrorClass {
	if err != nil {
		return ErrorClassNetwork
	}
	return ClassifyStatus(resp.StatusCode)
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// RateLimiter returns the rate limit tracker, or nil without Redis.
func (c *Client) RateLimiter() *ratelimit.Tracker {
	return c.rateLimiter
}
