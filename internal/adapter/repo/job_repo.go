package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"mediaengine/internal/domain"
)

// JobRepositoryPG implements domain.JobRepository over PostgreSQL.
type JobRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewJobRepository creates a new job repository backed by PostgreSQL.
func NewJobRepository(pool *pgxpool.Pool) *JobRepositoryPG {
	return &JobRepositoryPG{pool: pool}
}

const jobColumns = `id, requester_id, prompt, style, duration_sec, status, provider, provider_ref, result_url, error_message, created_at, updated_at`

// Create inserts a new job record. The partial unique index on active jobs
// is the authoritative duplicate check; its violation comes back as
// domain.ErrDuplicateActive so callers can reject with the blocking job
// instead of a generic failure.
func (r *JobRepositoryPG) Create(ctx context.Context, job *domain.Job) error {
	query := `
INSERT INTO jobs (id, requester_id, prompt, style, duration_sec, status, provider, provider_ref, result_url, error_message)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10);
`
	_, err := r.pool.Exec(ctx, query,
		job.ID,
		job.RequesterID,
		job.Prompt,
		job.Style,
		job.DurationSec,
		job.Status,
		job.Provider,
		job.ProviderRef,
		job.ResultURL,
		job.ErrorMessage,
	)
	if isActiveJobConflict(err) {
		return domain.ErrDuplicateActive
	}
	return err
}

// isActiveJobConflict reports whether err is the one-active-job-per-requester
// unique index rejecting an insert.
func isActiveJobConflict(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) &&
		pgErr.Code == "23505" &&
		pgErr.ConstraintName == "idx_jobs_one_active_per_requester"
}

// GetByID fetches a job by its identifier.
func (r *JobRepositoryPG) GetByID(ctx context.Context, jobID string) (*domain.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE id = $1;`
	job, err := scanJob(r.pool.QueryRow(ctx, query, jobID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return job, nil
}

// CompareAndUpdateStatus transitions the job only if it is currently in one
// of the expected states. The conditional WHERE clause makes concurrent
// reaper/poll/generate interleavings safe without a lock: the first writer
// wins and every later attempt observes zero affected rows.
func (r *JobRepositoryPG) CompareAndUpdateStatus(ctx context.Context, jobID string, expected []domain.JobStatus, upd domain.JobUpdate) (bool, error) {
	if len(expected) == 0 {
		return false, fmt.Errorf("expected status list is required")
	}
	query := `
UPDATE jobs
SET status = $2,
    provider = COALESCE($3, provider),
    provider_ref = COALESCE($4, provider_ref),
    result_url = COALESCE($5, result_url),
    error_message = COALESCE($6, error_message),
    updated_at = NOW()
WHERE id = $1 AND status = ANY($7);
`
	tag, err := r.pool.Exec(ctx, query,
		jobID,
		upd.Status,
		upd.Provider,
		upd.ProviderRef,
		upd.ResultURL,
		upd.ErrorMessage,
		statusStrings(expected),
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// ListActive returns the requester's non-terminal jobs created at or after
// since, newest first.
func (r *JobRepositoryPG) ListActive(ctx context.Context, requesterID string, since time.Time) ([]domain.Job, error) {
	query := `
SELECT ` + jobColumns + `
FROM jobs
WHERE requester_id = $1 AND status = ANY($2) AND created_at >= $3
ORDER BY created_at DESC;
`
	rows, err := r.pool.Query(ctx, query, requesterID, statusStrings(domain.ActiveStatuses), since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectJobs(rows)
}

// ListStale returns non-terminal jobs created before cutoff.
func (r *JobRepositoryPG) ListStale(ctx context.Context, cutoff time.Time) ([]domain.Job, error) {
	query := `
SELECT ` + jobColumns + `
FROM jobs
WHERE status = ANY($1) AND created_at < $2
ORDER BY created_at ASC;
`
	rows, err := r.pool.Query(ctx, query, statusStrings(domain.ActiveStatuses), cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectJobs(rows)
}

// List returns a read-only projection for admin/list views.
func (r *JobRepositoryPG) List(ctx context.Context, filter domain.JobFilter) ([]domain.JobSummary, error) {
	query := `
SELECT id, requester_id, style, status, provider, result_url, error_message, created_at, updated_at
FROM jobs
WHERE ($1 = '' OR requester_id = $1)
  AND ($2 = '' OR status = $2)
ORDER BY created_at DESC
LIMIT $3;
`
	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, query, filter.RequesterID, string(filter.Status), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.JobSummary
	for rows.Next() {
		var s domain.JobSummary
		if err := rows.Scan(
			&s.ID,
			&s.RequesterID,
			&s.Style,
			&s.Status,
			&s.Provider,
			&s.ResultURL,
			&s.ErrorMessage,
			&s.CreatedAt,
			&s.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func scanJob(row pgx.Row) (*domain.Job, error) {
	var job domain.Job
	if err := row.Scan(
		&job.ID,
		&job.RequesterID,
		&job.Prompt,
		&job.Style,
		&job.DurationSec,
		&job.Status,
		&job.Provider,
		&job.ProviderRef,
		&job.ResultURL,
		&job.ErrorMessage,
		&job.CreatedAt,
		&job.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &job, nil
}

func collectJobs(rows pgx.Rows) ([]domain.Job, error) {
	var out []domain.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *job)
	}
	return out, rows.Err()
}

func statusStrings(statuses []domain.JobStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

var _ domain.JobRepository = (*JobRepositoryPG)(nil)
