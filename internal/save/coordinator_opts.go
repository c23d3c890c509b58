package save

import "time"

type CoordinatorOpt func(*Coordinator)

func WithCooldown(d time.Duration) CoordinatorOpt {
	return func(c *Coordinator) {
		c.cooldown = d
	}
}

func WithTimeout(d time.Duration) CoordinatorOpt {
	return func(c *Coordinator) {
		c.timeout = d
	}
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) CoordinatorOpt {
	return func(c *Coordinator) {
		c.now = now
	}
}
