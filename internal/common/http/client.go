package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// Client is an http.Client that waits on a token bucket before every request,
// so a single platform is never called faster than its configured budget.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient builds a client limited to perMinute requests with a burst of
// perMinute/6 (at least one). perMinute <= 0 disables limiting.
func NewClient(timeout time.Duration, perMinute int) *Client {
	limiter := rate.NewLimiter(rate.Inf, 0)
	if perMinute > 0 {
		burst := perMinute / 6
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), burst)
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		limiter:    limiter,
	}
}

// Do waits for a token, bounded by ctx, then sends req with ctx attached.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}
	return c.httpClient.Do(req.WithContext(ctx))
}

// Limit reports the configured requests per second.
func (c *Client) Limit() rate.Limit {
	return c.limiter.Limit()
}
