package orchestrator

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"mediaengine/internal/domain"
	"mediaengine/internal/infra"
)

const reapConcurrency = 4

// Reaper fails jobs stuck in a non-terminal state past the stale deadline.
// Provider callbacks and polls can be lost; without reaping, one stuck job
// would permanently block its requester through the duplicate guard.
type Reaper struct {
	jobs     domain.JobRepository
	notifier *Notifier
	deadline time.Duration
	logger   infra.Logger
}

// NewReaper creates a reaper with the given stale deadline.
func NewReaper(jobs domain.JobRepository, notifier *Notifier, deadline time.Duration, logger infra.Logger) *Reaper {
	if deadline <= 0 {
		deadline = 5 * time.Minute
	}
	return &Reaper{jobs: jobs, notifier: notifier, deadline: deadline, logger: logger}
}

// Reap transitions every stale non-terminal job to failed/"timed out" and
// returns how many it moved. Each record is handled in isolation: a failed
// update is logged and skipped, never aborting the rest of the sweep.
func (r *Reaper) Reap(ctx context.Context) (int, error) {
	cutoff := time.Now().Add(-r.deadline)
	stale, err := r.jobs.ListStale(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if len(stale) == 0 {
		return 0, nil
	}

	var reaped atomic.Int64
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(reapConcurrency)
	for _, job := range stale {
		job := job
		g.Go(func() error {
			msg := "timed out"
			ok, err := r.jobs.CompareAndUpdateStatus(ctx, job.ID, domain.ActiveStatuses, domain.JobUpdate{
				Status:       domain.JobStatusFailed,
				ErrorMessage: &msg,
			})
			if err != nil {
				r.logger.Error().Err(err).Str("job_id", job.ID).Msg("reaper: failed to mark job stale")
				return nil
			}
			if !ok {
				// Someone else moved it terminal first.
				return nil
			}
			reaped.Add(1)
			r.logger.Warn().
				Str("job_id", job.ID).
				Str("requester_id", job.RequesterID).
				Time("created_at", job.CreatedAt).
				Msg("reaper: job timed out")
			if r.notifier != nil {
				failed := job
				failed.Status = domain.JobStatusFailed
				failed.ErrorMessage = msg
				r.notifier.OnTerminal(ctx, &failed)
			}
			return nil
		})
	}
	_ = g.Wait()
	return int(reaped.Load()), nil
}
