package domain

import (
	"context"
	"time"
)

// JobRepository defines persistence for job entities. The store is the
// single source of truth; concurrent orchestrator, poller and reaper
// interleavings coordinate exclusively through CompareAndUpdateStatus.
type JobRepository interface {
	Create(ctx context.Context, job *Job) error
	GetByID(ctx context.Context, jobID string) (*Job, error)
	// CompareAndUpdateStatus applies upd only if the job is currently in one
	// of the expected states. Returns false when the job was not, which a
	// caller must treat as losing the race, not as an error.
	CompareAndUpdateStatus(ctx context.Context, jobID string, expected []JobStatus, upd JobUpdate) (bool, error)
	// ListActive returns the requester's non-terminal jobs created at or
	// after since, newest first.
	ListActive(ctx context.Context, requesterID string, since time.Time) ([]Job, error)
	// ListStale returns non-terminal jobs created before cutoff.
	ListStale(ctx context.Context, cutoff time.Time) ([]Job, error)
	List(ctx context.Context, filter JobFilter) ([]JobSummary, error)
}

// PreferenceRepository reads per-user notification preference flags.
// A requester with no stored preference defaults to enabled.
type PreferenceRepository interface {
	Get(ctx context.Context, requesterID string, category NotificationCategory) (bool, error)
}

// NotificationRepository writes notification rows to the external store.
type NotificationRepository interface {
	Create(ctx context.Context, notification *Notification) error
}
