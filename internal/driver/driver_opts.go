package driver

import (
	"context"
	"time"
)

type FrameDriverOpt func(*FrameDriver)

func WithTickLength(tickLength time.Duration) FrameDriverOpt {
	return func(d *FrameDriver) {
		d.tickLength = tickLength
	}
}

// WithStopHook registers fn to run on the update goroutine when the driver stops.
func WithStopHook(fn func(context.Context)) FrameDriverOpt {
	return func(d *FrameDriver) {
		d.onStop = append(d.onStop, fn)
	}
}
