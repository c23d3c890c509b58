package realtime

import (
	"time"

	"github.com/gorilla/websocket"
)

type ChannelOpt func(*Channel)

// WithMaxReconnectAttempts bounds consecutive failed (re)connection attempts.
func WithMaxReconnectAttempts(n int) ChannelOpt {
	return func(c *Channel) {
		if n >= 0 {
			c.maxAttempts = n
		}
	}
}

// WithReconnectDelay sets the base delay; attempt n waits n times the delay.
func WithReconnectDelay(d time.Duration) ChannelOpt {
	return func(c *Channel) {
		c.retryDelay = d
	}
}

func WithSendBuffer(n int) ChannelOpt {
	return func(c *Channel) {
		if n > 0 {
			c.sendBuffer = n
		}
	}
}

func WithDialer(d *websocket.Dialer) ChannelOpt {
	return func(c *Channel) {
		if d != nil {
			c.dialer = d
		}
	}
}
