package command

import (
	"fmt"

	"github.com/pixil98/go-errors"

	"github.com/pixil98/go-gamesync/internal/dispatch"
	"github.com/pixil98/go-gamesync/internal/realtime"
)

type RealtimeConfig struct {
	// URL defaults to the backend base URL.
	URL                  string `json:"url"`
	MaxReconnectAttempts int    `json:"max_reconnect_attempts"`
	ReconnectDelay       string `json:"reconnect_delay"`
	SendBuffer           int    `json:"send_buffer"`
}

func (c *RealtimeConfig) Validate() error {
	el := errors.NewErrorList()

	if c.MaxReconnectAttempts < 0 {
		el.Add(fmt.Errorf("realtime: max_reconnect_attempts must not be negative"))
	}
	if _, err := parseOptionalDuration("realtime: reconnect_delay", c.ReconnectDelay); err != nil {
		el.Add(err)
	}
	if c.SendBuffer < 0 {
		el.Add(fmt.Errorf("realtime: send_buffer must not be negative"))
	}

	return el.Err()
}

func (c *RealtimeConfig) BuildChannel(baseURL string, poster dispatch.Poster) (*realtime.Channel, error) {
	var opts []realtime.ChannelOpt

	if c.MaxReconnectAttempts > 0 {
		opts = append(opts, realtime.WithMaxReconnectAttempts(c.MaxReconnectAttempts))
	}
	delay, err := parseOptionalDuration("reconnect_delay", c.ReconnectDelay)
	if err != nil {
		return nil, err
	}
	if delay > 0 {
		opts = append(opts, realtime.WithReconnectDelay(delay))
	}
	if c.SendBuffer > 0 {
		opts = append(opts, realtime.WithSendBuffer(c.SendBuffer))
	}

	target := c.URL
	if target == "" {
		target = baseURL
	}
	return realtime.NewChannel(target, poster, opts...)
}
