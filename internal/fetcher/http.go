// Package fetcher provides the HTTP client and CSV reading used by the
// census and poverty pipelines.
package fetcher

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/one-labs/streets-cli/internal/resilience"
)

// HTTPOptions configures the HTTP client.
type HTTPOptions struct {
	UserAgent    string
	Timeout      time.Duration
	RateLimiters map[string]*rate.Limiter
}

// DefaultRateLimiters returns the per-host rate limiters for census endpoints.
func DefaultRateLimiters() map[string]*rate.Limiter {
	return map[string]*rate.Limiter{
		"tigerweb.geo.census.gov": rate.NewLimiter(5, 5),
		"api.census.gov":          rate.NewLimiter(2, 2),
	}
}

// Client issues rate-limited GET requests. It performs exactly one attempt
// per call; callers wrap requests in the shared retry policy so that
// backoff behavior is uniform across the codebase.
type Client struct {
	client   *http.Client
	opts     HTTPOptions
	limiters map[string]*rate.Limiter
}

// NewClient creates a Client with the given options.
func NewClient(opts HTTPOptions) *Client {
	if opts.Timeout == 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "streets-cli/1.0"
	}
	limiters := make(map[string]*rate.Limiter)
	for k, v := range opts.RateLimiters {
		limiters[k] = v
	}
	transport := &http.Transport{
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     90 * time.Second,
	}
	return &Client{
		client: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
		},
		opts:     opts,
		limiters: limiters,
	}
}

func (c *Client) limiterFor(rawURL string) *rate.Limiter {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil
	}
	return c.limiters[u.Host]
}

// Get fetches rawURL and returns the response body. Non-2xx responses are
// errors carrying the status code; 4xx responses are marked permanent so
// the retry wrapper fails fast, 5xx and 429 are left retryable.
func (c *Client) Get(ctx context.Context, rawURL string) ([]byte, error) {
	if lim := c.limiterFor(rawURL); lim != nil {
		if err := lim.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "fetcher: rate limiter wait")
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, resilience.Permanent(eris.Wrap(err, "fetcher: build request"))
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("fetcher: status %d from %s", resp.StatusCode, req.URL.Host)
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return nil, resilience.Permanent(err)
		}
		zap.L().Warn("fetcher: retryable response",
			zap.Int("status", resp.StatusCode),
			zap.String("host", req.URL.Host),
		)
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: read body")
	}
	return body, nil
}
