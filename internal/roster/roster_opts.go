package roster

import "time"

type RosterOpt func(*Roster)

func WithClock(now func() time.Time) RosterOpt {
	return func(r *Roster) {
		r.now = now
	}
}

// WithSmoothing sets the approach rate; higher values track targets faster.
func WithSmoothing(rate float64) RosterOpt {
	return func(r *Roster) {
		if rate > 0 {
			r.smoothing = rate
		}
	}
}
