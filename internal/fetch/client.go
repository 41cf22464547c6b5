package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/vtecchio/dadosbr-pipeline/internal/models"
)

// ClientConfig configures the downloader.
type ClientConfig struct {
	// Timeout for a single attempt (connect + read).
	Timeout time.Duration

	// MaxRetries is the total attempt budget for transient failures.
	MaxRetries int

	// RateLimit requests per second against the remote host.
	RateLimit float64

	// RateBurst maximum burst size.
	RateBurst int

	UserAgent string

	// Transport allows injecting a custom HTTP transport (for tests).
	Transport http.RoundTripper
}

// DefaultClientConfig returns a config with the defaults the government
// mirrors tolerate: generous read timeout, modest request rate.
func DefaultClientConfig() *ClientConfig {
	return &ClientConfig{
		Timeout:    500 * time.Second,
		MaxRetries: 5,
		RateLimit:  4.0,
		RateBurst:  2,
		UserAgent:  "dadosbr-pipeline/1.0",
	}
}

// Client is a rate-limited, retry-capable HTTP fetcher. Retries apply only to
// transient failure classes; a 404 fails fast with NotFoundError so the
// invocation's execution budget is not spent on a permanent absence.
type Client struct {
	config      *ClientConfig
	httpClient  *http.Client
	rateLimiter *rate.Limiter
}

func NewClient(config *ClientConfig) *Client {
	if config == nil {
		config = DefaultClientConfig()
	}
	if config.Timeout == 0 {
		config.Timeout = 500 * time.Second
	}
	if config.MaxRetries == 0 {
		config.MaxRetries = 5
	}
	if config.RateLimit == 0 {
		config.RateLimit = 4.0
	}
	if config.RateBurst == 0 {
		config.RateBurst = 2
	}
	if config.UserAgent == "" {
		config.UserAgent = "dadosbr-pipeline/1.0"
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout:   config.Timeout,
			Transport: config.Transport,
		},
		rateLimiter: rate.NewLimiter(rate.Limit(config.RateLimit), config.RateBurst),
	}
}

// Download fetches url fully into memory, retrying transient failures with
// exponential backoff up to the configured budget.
func (c *Client) Download(ctx context.Context, url string) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt < c.config.MaxRetries; attempt++ {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}

		body, err := c.doOnce(ctx, url)
		if err == nil {
			return body, nil
		}

		if !isRetryable(err) {
			return nil, err
		}
		lastErr = err

		backoff := time.Duration(1<<uint(attempt)) * 500 * time.Millisecond
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}

	return nil, &models.TransientFetchError{Target: url, Attempts: c.config.MaxRetries, Err: lastErr}
}

func (c *Client) doOnce(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.config.UserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &transientError{err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, &models.NotFoundError{Target: url}
	case resp.StatusCode >= 500:
		io.Copy(io.Discard, resp.Body)
		return nil, &transientError{fmt.Errorf("server returned %s", resp.Status)}
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf("%s: server returned %s", url, resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &transientError{fmt.Errorf("read body: %w", err)}
	}

	return body, nil
}

// transientError marks a failure as eligible for retry.
type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

func isRetryable(err error) bool {
	var transient *transientError
	if errors.As(err, &transient) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
