package domain

import (
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("not found")

// ErrDuplicateActive is returned by the job store when the one-active-job-
// per-requester constraint rejects an insert. The orchestrator resolves it
// to a DuplicateInFlightError naming the blocking job.
var ErrDuplicateActive = errors.New("requester already has an active job")

// ValidationError rejects a malformed generation request before any job is
// created. Fully recoverable by resubmitting corrected input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// DuplicateInFlightError signals that the requester already has an active
// job; the caller should poll that job instead of retrying.
type DuplicateInFlightError struct {
	JobID string
}

func (e *DuplicateInFlightError) Error() string {
	return fmt.Sprintf("a generation job is already in flight (job %s)", e.JobID)
}
