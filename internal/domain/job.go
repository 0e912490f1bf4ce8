package domain

import "time"

// JobStatus enumerates job lifecycle states.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Terminal reports whether the status admits no further transitions.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// ActiveStatuses are the non-terminal states a job can occupy. Conditional
// status updates use this list as the expected-from set so that terminal
// transitions apply at most once.
var ActiveStatuses = []JobStatus{JobStatusPending, JobStatusProcessing}

// Job encapsulates the lifecycle of one track-generation request.
// Status moves along pending -> processing -> {completed, failed}; the
// staleness reaper and user cancellation may short-circuit any non-terminal
// state straight to failed.
type Job struct {
	ID           string
	RequesterID  string
	Prompt       string
	Style        string
	DurationSec  int
	Status       JobStatus
	Provider     string
	ProviderRef  string
	ResultURL    string
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// JobUpdate carries the fields applied alongside a status transition.
// Nil pointers leave the stored value untouched.
type JobUpdate struct {
	Status       JobStatus
	Provider     *string
	ProviderRef  *string
	ResultURL    *string
	ErrorMessage *string
}

// JobFilter narrows admin/list queries. Zero values mean "any".
type JobFilter struct {
	RequesterID string
	Status      JobStatus
	Limit       int
}

// JobSummary is the read-only projection returned by list queries.
type JobSummary struct {
	ID           string
	RequesterID  string
	Style        string
	Status       JobStatus
	Provider     string
	ResultURL    string
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
