package command

import (
	"fmt"
	"net/url"

	"github.com/pixil98/go-errors"

	"github.com/pixil98/go-gamesync/internal/dispatch"
	"github.com/pixil98/go-gamesync/internal/httpapi"
)

type BackendConfig struct {
	BaseURL   string  `json:"base_url"`
	Timeout   string  `json:"timeout"`
	RateLimit float64 `json:"rate_limit"`
	RateBurst int     `json:"rate_burst"`
	UserAgent string  `json:"user_agent"`
}

func (c *BackendConfig) Validate() error {
	el := errors.NewErrorList()

	if c.BaseURL == "" {
		el.Add(fmt.Errorf("backend: base_url is required"))
	} else if u, err := url.Parse(c.BaseURL); err != nil {
		el.Add(fmt.Errorf("backend: parsing base_url: %w", err))
	} else if u.Scheme != "http" && u.Scheme != "https" {
		el.Add(fmt.Errorf("backend: base_url must use http or https"))
	}

	if _, err := parseOptionalDuration("backend: timeout", c.Timeout); err != nil {
		el.Add(err)
	}
	if c.RateLimit < 0 {
		el.Add(fmt.Errorf("backend: rate_limit must not be negative"))
	}
	if c.RateBurst < 0 {
		el.Add(fmt.Errorf("backend: rate_burst must not be negative"))
	}

	return el.Err()
}

func (c *BackendConfig) BuildClient(poster dispatch.Poster) (*httpapi.Client, error) {
	var opts []httpapi.ClientOpt

	timeout, err := parseOptionalDuration("timeout", c.Timeout)
	if err != nil {
		return nil, err
	}
	if timeout > 0 {
		opts = append(opts, httpapi.WithTimeout(timeout))
	}
	if c.RateLimit > 0 {
		burst := c.RateBurst
		if burst == 0 {
			burst = int(c.RateLimit * 2)
		}
		opts = append(opts, httpapi.WithRateLimit(c.RateLimit, burst))
	}
	if c.UserAgent != "" {
		opts = append(opts, httpapi.WithUserAgent(c.UserAgent))
	}

	return httpapi.NewClient(c.BaseURL, poster, opts...)
}
