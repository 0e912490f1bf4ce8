package repo

import (
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestIsActiveJobConflict(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "active job unique violation",
			err:  &pgconn.PgError{Code: "23505", ConstraintName: "idx_jobs_one_active_per_requester"},
			want: true,
		},
		{
			name: "wrapped violation",
			err:  fmt.Errorf("exec: %w", &pgconn.PgError{Code: "23505", ConstraintName: "idx_jobs_one_active_per_requester"}),
			want: true,
		},
		{
			name: "unique violation on another constraint",
			err:  &pgconn.PgError{Code: "23505", ConstraintName: "jobs_pkey"},
			want: false,
		},
		{
			name: "non-unique pg error",
			err:  &pgconn.PgError{Code: "23503", ConstraintName: "idx_jobs_one_active_per_requester"},
			want: false,
		},
		{
			name: "plain error",
			err:  fmt.Errorf("connection refused"),
			want: false,
		},
		{
			name: "nil",
			err:  nil,
			want: false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := isActiveJobConflict(tc.err); got != tc.want {
				t.Fatalf("isActiveJobConflict(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}
