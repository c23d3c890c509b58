package driver

import (
	"context"
	"fmt"
	"time"
)

const (
	DefaultTickLength = 50 * time.Millisecond
)

// Manager is advanced once per frame on the update goroutine.
type Manager interface {
	Tick(context.Context) error
}

// ManagerFunc adapts a function to a Manager.
type ManagerFunc func(context.Context) error

func (f ManagerFunc) Tick(ctx context.Context) error {
	return f(ctx)
}

// FrameDriver owns the update goroutine. Every frame it ticks its managers in
// order; nothing else may mutate session state.
type FrameDriver struct {
	tickLength time.Duration
	managers   []Manager
	onStop     []func(context.Context)
}

func NewFrameDriver(managers []Manager, opts ...FrameDriverOpt) *FrameDriver {
	d := &FrameDriver{
		tickLength: DefaultTickLength,
		managers:   managers,
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

func (d *FrameDriver) Start(ctx context.Context) error {
	ticker := time.NewTicker(d.tickLength)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// Shutdown hooks run with a fresh context; ctx is already done.
			stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			for _, fn := range d.onStop {
				fn(stopCtx)
			}
			cancel()
			return nil
		case <-ticker.C:
			err := d.Tick(ctx)
			if err != nil {
				return err
			}
		}
	}
}

func (d *FrameDriver) Tick(ctx context.Context) error {
	for i, m := range d.managers {
		if err := m.Tick(ctx); err != nil {
			return fmt.Errorf("ticking manager %d: %w", i, err)
		}
	}
	return nil
}
