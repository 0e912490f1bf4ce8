package orchestrator

import (
	"context"
	"time"

	"mediaengine/internal/domain"
)

// DuplicateGuard rejects new submissions while the requester already has a
// job in flight. It is advisory (read-only); the partial unique index on the
// jobs table is the authoritative backstop for the narrow race between two
// simultaneous generate calls.
type DuplicateGuard struct {
	jobs   domain.JobRepository
	window time.Duration
}

// NewDuplicateGuard creates a guard looking back window into the job store.
func NewDuplicateGuard(jobs domain.JobRepository, window time.Duration) *DuplicateGuard {
	if window <= 0 {
		window = 15 * time.Second
	}
	return &DuplicateGuard{jobs: jobs, window: window}
}

// HasOngoing reports whether requesterID has a non-terminal job created
// inside the guard window, and if so which one. A requester with no prior
// jobs never blocks.
func (g *DuplicateGuard) HasOngoing(ctx context.Context, requesterID string) (bool, string, error) {
	since := time.Now().Add(-g.window)
	active, err := g.jobs.ListActive(ctx, requesterID, since)
	if err != nil {
		return false, "", err
	}
	if len(active) == 0 {
		return false, "", nil
	}
	return true, active[0].ID, nil
}
