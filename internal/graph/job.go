package graph

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/onnwee/knowledge-cluster-map/engine/internal/scheduler"
)

// Job recomputes the layout on a schedule expression (e.g. "@hourly",
// "@every 30m").
type Job struct {
	service *Service
	cadence string
	paused  func(context.Context) bool
}

func NewJob(service *Service, cadence string) *Job {
	return &Job{
		service: service,
		cadence: cadence,
	}
}

// SetPauseCheck installs a callback consulted before each scheduled run.
// When it returns true the run is skipped; manual runs are unaffected.
func (j *Job) SetPauseCheck(check func(context.Context) bool) {
	j.paused = check
}

func (j *Job) Start(ctx context.Context) {
	// Run immediately on start, then follow the cadence.
	j.run(ctx)

	for {
		next, err := scheduler.NextRun(j.cadence, time.Now())
		if err != nil {
			log.Printf("Invalid layout cadence %q: %v", j.cadence, err)
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Until(next)):
			j.run(ctx)
		}
	}
}

func (j *Job) run(ctx context.Context) {
	if j.paused != nil && j.paused(ctx) {
		log.Printf("⏸️ Layout job paused, skipping scheduled run")
		return
	}
	if _, err := j.service.RunLayout(ctx); err != nil && !errors.Is(err, ErrLayoutRunning) {
		log.Printf("Error running layout: %v", err)
	}
	if _, err := j.service.DetectCommunities(ctx); err != nil {
		log.Printf("Error detecting communities: %v", err)
	}
}
