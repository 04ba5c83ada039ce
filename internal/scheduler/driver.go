package scheduler

import (
	"context"
	"sync"
	"time"
)

// Stepper is one cooperative unit of work per frame. Step reports false when
// the work has converged and the driver should stop rescheduling.
type Stepper interface {
	Step() bool
}

// Driver invokes a Stepper once per frame until it converges or Stop is
// called. It does no work of its own beyond the drive loop and timing
// bookkeeping; all physics lives behind the Stepper.
type Driver struct {
	interval time.Duration

	stopOnce sync.Once
	stop     chan struct{}
}

// DefaultFrameInterval approximates a 60fps redraw budget.
const DefaultFrameInterval = 16 * time.Millisecond

// NewDriver returns a driver pacing frames at the given interval.
// Non-positive intervals fall back to DefaultFrameInterval.
func NewDriver(interval time.Duration) *Driver {
	if interval <= 0 {
		interval = DefaultFrameInterval
	}
	return &Driver{
		interval: interval,
		stop:     make(chan struct{}),
	}
}

// Run drives s until convergence, Stop, or context cancellation. Each frame
// executes exactly one synchronous Step; a stop request between frames takes
// effect before the next one, never mid-step.
func (d *Driver) Run(ctx context.Context, s Stepper) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-d.stop:
			return
		case <-ticker.C:
			if !s.Step() {
				return
			}
		}
	}
}

// Stop cancels the pending reschedule. Idempotent.
func (d *Driver) Stop() {
	d.stopOnce.Do(func() { close(d.stop) })
}
