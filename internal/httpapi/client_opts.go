package httpapi

import (
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

type ClientOpt func(*Client)

// WithTimeout sets the default per-request timeout.
func WithTimeout(d time.Duration) ClientOpt {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying http client.
func WithHTTPClient(hc *http.Client) ClientOpt {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithRateLimit configures the local request limiter. A non-positive rps
// disables it.
func WithRateLimit(rps float64, burst int) ClientOpt {
	return func(c *Client) {
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

func WithUserAgent(ua string) ClientOpt {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}
