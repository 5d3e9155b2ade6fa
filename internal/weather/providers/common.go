package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/i474232898/nws-weather/internal/metrics"
	"github.com/i474232898/nws-weather/internal/weather"
)

// DefaultUserAgent identifies us to api.weather.gov, which rejects anonymous clients.
const DefaultUserAgent = "waybar-weather-cli/2.0 (github.com/user/weather-cli)"

// validate checks the `validate` tags on wire structs after decoding.
var validate = validator.New()

// maxErrorBody caps how much of a non-2xx body is kept in StatusError.
const maxErrorBody = 64 << 10

// RetryConfig controls linear backoff: the wait after attempt n is BaseDelay*n.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// BreakerConfig controls the per-host circuit breaker.
type BreakerConfig struct {
	FailureThreshold uint32        // consecutive failed attempts before opening
	OpenTimeout      time.Duration // time spent open before a probe request
}

// ClientConfig bundles HTTP client and resilience settings.
type ClientConfig struct {
	UserAgent      string
	Timeout        time.Duration // whole attempt
	ConnectTimeout time.Duration // dial + TLS handshake
	Retry          RetryConfig
	Breaker        BreakerConfig

	// RateLimit is requests per second across all hosts; <= 0 disables it.
	RateLimit float64
	RateBurst int

	// HTTPClient replaces the client built from the timeouts above.
	HTTPClient *http.Client
}

// DefaultClientConfig provides the canonical defaults.
var DefaultClientConfig = ClientConfig{
	UserAgent:      DefaultUserAgent,
	Timeout:        15 * time.Second,
	ConnectTimeout: 10 * time.Second,
	Retry: RetryConfig{
		MaxAttempts: 5,
		BaseDelay:   2 * time.Second,
	},
	Breaker: BreakerConfig{
		FailureThreshold: 10,
		OpenTimeout:      30 * time.Second,
	},
	RateBurst: 1,
}

// Client performs GET+decode with bounded retry. It is safe for concurrent use.
type Client struct {
	httpClient *http.Client
	userAgent  string
	retry      RetryConfig
	breakerCfg BreakerConfig
	limiter    *rate.Limiter
	logger     *slog.Logger

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker
}

// NewClient builds a Client. Zero fields in cfg fall back to DefaultClientConfig.
func NewClient(cfg ClientConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultClientConfig.UserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultClientConfig.Timeout
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = DefaultClientConfig.ConnectTimeout
	}
	if cfg.Retry.MaxAttempts < 1 {
		cfg.Retry.MaxAttempts = 1
	}
	if cfg.Retry.BaseDelay < 0 {
		cfg.Retry.BaseDelay = 0
	}
	if cfg.Breaker.FailureThreshold == 0 {
		cfg.Breaker.FailureThreshold = DefaultClientConfig.Breaker.FailureThreshold
	}
	if cfg.Breaker.OpenTimeout <= 0 {
		cfg.Breaker.OpenTimeout = DefaultClientConfig.Breaker.OpenTimeout
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = newHTTPClient(cfg.Timeout, cfg.ConnectTimeout)
	}

	return &Client{
		httpClient: httpClient,
		userAgent:  cfg.UserAgent,
		retry:      cfg.Retry,
		breakerCfg: cfg.Breaker,
		limiter:    limiter,
		logger:     logger,
		breakers:   make(map[string]*gobreaker.CircuitBreaker),
	}
}

func newHTTPClient(timeout, connectTimeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   connectTimeout,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout: connectTimeout,
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 4,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// FetchJSON GETs rawURL and decodes the body into T, retrying transport
// failures, non-2xx responses and undecodable bodies. A body whose
// `validate` tags fail counts as undecodable. After the attempt budget is
// spent the most recent error is returned.
func FetchJSON[T any](ctx context.Context, c *Client, rawURL string) (T, error) {
	var zero T

	u, err := url.Parse(rawURL)
	if err != nil {
		return zero, fmt.Errorf("invalid url %q: %w", rawURL, err)
	}
	host := u.Host
	cb := c.breaker(host)

	var lastErr error
	for attempt := 1; attempt <= c.retry.MaxAttempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return zero, fmt.Errorf("rate limit wait canceled: %w", err)
		}

		start := time.Now()
		result, err := cb.Execute(func() (interface{}, error) {
			v, fetchErr := fetchOnce[T](ctx, c, rawURL)
			if fetchErr != nil {
				return nil, fetchErr
			}
			return v, nil
		})
		metrics.UpstreamLatency.WithLabelValues(host).Observe(time.Since(start).Seconds())

		if err == nil {
			metrics.UpstreamAttempts.WithLabelValues(host, "ok").Inc()
			v, ok := result.(T)
			if !ok {
				return zero, fmt.Errorf("unexpected result type %T from circuit breaker", result)
			}
			return v, nil
		}

		// An open breaker means the host is known bad; don't spend the budget.
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.UpstreamAttempts.WithLabelValues(host, "circuit_open").Inc()
			return zero, fmt.Errorf("%w: %s: %v", weather.ErrCircuitOpen, host, err)
		}

		metrics.UpstreamAttempts.WithLabelValues(host, outcome(err)).Inc()
		lastErr = err

		if ctx.Err() != nil {
			return zero, lastErr
		}
		if attempt == c.retry.MaxAttempts {
			break
		}

		delay := c.retry.BaseDelay * time.Duration(attempt)
		c.logger.Debug("upstream attempt failed, retrying",
			"url", rawURL,
			"attempt", attempt,
			"max_attempts", c.retry.MaxAttempts,
			"delay", delay,
			"error", err,
		)
		metrics.UpstreamRetries.WithLabelValues(host).Inc()

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}

	return zero, lastErr
}

func fetchOnce[T any](ctx context.Context, c *Client, rawURL string) (T, error) {
	var out T

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return out, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/geo+json, application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return out, fmt.Errorf("%w: %w", weather.ErrTransport, err)
	}
	defer func(Body io.ReadCloser) {
		_ = Body.Close()
	}(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return out, &weather.StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return out, fmt.Errorf("%w: %w", weather.ErrDecode, err)
	}

	// A 2xx body missing required fields counts as a failed attempt.
	if err := validate.Struct(&out); err != nil {
		var invalid *validator.InvalidValidationError
		if !errors.As(err, &invalid) {
			return out, fmt.Errorf("%w: %w", weather.ErrDecode, err)
		}
	}
	return out, nil
}

// breaker returns the circuit breaker for host, creating it on first use.
func (c *Client) breaker(host string) *gobreaker.CircuitBreaker {
	c.mu.Lock()
	defer c.mu.Unlock()

	if cb, ok := c.breakers[host]; ok {
		return cb
	}

	threshold := c.breakerCfg.FailureThreshold
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        host,
		MaxRequests: 1,
		Timeout:     c.breakerCfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn("circuit breaker state changed", "host", name, "from", from.String(), "to", to.String())
		},
	})
	c.breakers[host] = cb
	return cb
}

func outcome(err error) string {
	switch {
	case errors.Is(err, weather.ErrTransport):
		return "transport"
	case errors.Is(err, weather.ErrUpstreamStatus):
		return "status"
	case errors.Is(err, weather.ErrDecode):
		return "decode"
	default:
		return "error"
	}
}
