package orchestrator

import (
	"context"
	"testing"
	"time"

	"mediaengine/internal/domain"
)

func TestGuardNoPriorJobsNeverBlocks(t *testing.T) {
	guard := NewDuplicateGuard(newMemJobs(), 15*time.Second)

	blocked, _, err := guard.HasOngoing(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("HasOngoing error: %v", err)
	}
	if blocked {
		t.Fatal("requester with no jobs must not block")
	}
}

func TestGuardBlocksOnRecentActiveJob(t *testing.T) {
	jobs := newMemJobs()
	jobs.seed(domain.Job{ID: "j1", RequesterID: "user-1", Status: domain.JobStatusPending, CreatedAt: time.Now().Add(-2 * time.Second)})
	guard := NewDuplicateGuard(jobs, 15*time.Second)

	blocked, blockingID, err := guard.HasOngoing(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("HasOngoing error: %v", err)
	}
	if !blocked || blockingID != "j1" {
		t.Fatalf("blocked=%v id=%s", blocked, blockingID)
	}
}

func TestGuardIgnoresJobsOutsideWindow(t *testing.T) {
	jobs := newMemJobs()
	jobs.seed(domain.Job{ID: "j1", RequesterID: "user-1", Status: domain.JobStatusProcessing, CreatedAt: time.Now().Add(-time.Minute)})
	guard := NewDuplicateGuard(jobs, 15*time.Second)

	blocked, _, err := guard.HasOngoing(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("HasOngoing error: %v", err)
	}
	if blocked {
		t.Fatal("job older than the window must not block")
	}
}

func TestGuardIgnoresTerminalJobs(t *testing.T) {
	jobs := newMemJobs()
	jobs.seed(domain.Job{ID: "j1", RequesterID: "user-1", Status: domain.JobStatusFailed, CreatedAt: time.Now()})
	jobs.seed(domain.Job{ID: "j2", RequesterID: "user-1", Status: domain.JobStatusCompleted, CreatedAt: time.Now()})
	guard := NewDuplicateGuard(jobs, 15*time.Second)

	blocked, _, err := guard.HasOngoing(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("HasOngoing error: %v", err)
	}
	if blocked {
		t.Fatal("terminal jobs must not block")
	}
}

func TestGuardIgnoresOtherRequesters(t *testing.T) {
	jobs := newMemJobs()
	jobs.seed(domain.Job{ID: "j1", RequesterID: "user-2", Status: domain.JobStatusPending, CreatedAt: time.Now()})
	guard := NewDuplicateGuard(jobs, 15*time.Second)

	blocked, _, err := guard.HasOngoing(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("HasOngoing error: %v", err)
	}
	if blocked {
		t.Fatal("another requester's job must not block")
	}
}
