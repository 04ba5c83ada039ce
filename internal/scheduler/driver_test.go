package scheduler

import (
	"context"
	"testing"
	"time"
)

type countingStepper struct {
	steps int
	limit int
}

func (c *countingStepper) Step() bool {
	c.steps++
	return c.steps < c.limit
}

func TestDriverRunsUntilConvergence(t *testing.T) {
	s := &countingStepper{limit: 5}
	d := NewDriver(time.Millisecond)

	done := make(chan struct{})
	go func() {
		d.Run(context.Background(), s)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("driver did not stop after stepper converged")
	}
	if s.steps != 5 {
		t.Errorf("expected 5 steps, got %d", s.steps)
	}
}

func TestDriverStopIsIdempotent(t *testing.T) {
	s := &countingStepper{limit: 1 << 30}
	d := NewDriver(time.Millisecond)

	done := make(chan struct{})
	go func() {
		d.Run(context.Background(), s)
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	d.Stop()
	d.Stop() // second call must not panic

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("driver did not honor Stop")
	}
}

func TestDriverHonorsContext(t *testing.T) {
	s := &countingStepper{limit: 1 << 30}
	d := NewDriver(time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		d.Run(ctx, s)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("driver did not honor context cancellation")
	}
}

func TestNextRun(t *testing.T) {
	base := time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)

	tests := []struct {
		expr    string
		want    time.Time
		wantErr bool
	}{
		{"@every 30m", base.Add(30 * time.Minute), false},
		{"@every 2d", base.Add(48 * time.Hour), false},
		{"@hourly", time.Date(2026, 3, 14, 11, 0, 0, 0, time.UTC), false},
		{"@daily", time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), false},
		{"@every nonsense", time.Time{}, true},
		{"0 * * * *", time.Time{}, true},
	}
	for _, tt := range tests {
		got, err := NextRun(tt.expr, base)
		if tt.wantErr {
			if err == nil {
				t.Errorf("%q: expected error", tt.expr)
			}
			continue
		}
		if err != nil {
			t.Errorf("%q: unexpected error: %v", tt.expr, err)
			continue
		}
		if !got.Equal(tt.want) {
			t.Errorf("%q: got %v, want %v", tt.expr, got, tt.want)
		}
	}
}
