package orchestrator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"mediaengine/internal/domain"
)

func newTestReaper(jobs *memJobs, notifs *fakeNotifications) *Reaper {
	logger := zerolog.Nop()
	prefs := &fakePrefs{disabled: make(map[domain.NotificationCategory]bool)}
	notifier := NewNotifier(prefs, notifs, nil, logger)
	return NewReaper(jobs, notifier, 5*time.Minute, logger)
}

func TestReapFailsStaleJobs(t *testing.T) {
	jobs := newMemJobs()
	notifs := &fakeNotifications{}
	jobs.seed(domain.Job{ID: "old-pending", RequesterID: "u1", Status: domain.JobStatusPending, CreatedAt: time.Now().Add(-10 * time.Minute)})
	jobs.seed(domain.Job{ID: "old-processing", RequesterID: "u2", Status: domain.JobStatusProcessing, CreatedAt: time.Now().Add(-6 * time.Minute)})
	jobs.seed(domain.Job{ID: "fresh", RequesterID: "u3", Status: domain.JobStatusProcessing, CreatedAt: time.Now().Add(-time.Minute)})
	jobs.seed(domain.Job{ID: "done", RequesterID: "u4", Status: domain.JobStatusCompleted, CreatedAt: time.Now().Add(-time.Hour)})

	reaped, err := newTestReaper(jobs, notifs).Reap(context.Background())
	if err != nil {
		t.Fatalf("Reap error: %v", err)
	}
	if reaped != 2 {
		t.Fatalf("reaped = %d, want 2", reaped)
	}
	for _, id := range []string{"old-pending", "old-processing"} {
		job := jobs.get(id)
		if job.Status != domain.JobStatusFailed || job.ErrorMessage != "timed out" {
			t.Fatalf("job %s not reaped: %+v", id, job)
		}
	}
	if jobs.get("fresh").Status != domain.JobStatusProcessing {
		t.Fatal("fresh job must stay untouched")
	}
	if jobs.get("done").Status != domain.JobStatusCompleted {
		t.Fatal("terminal job must stay untouched")
	}
	if notifs.count() != 2 {
		t.Fatalf("notification count = %d, want 2", notifs.count())
	}
}

func TestReapNothingStale(t *testing.T) {
	jobs := newMemJobs()
	jobs.seed(domain.Job{ID: "fresh", RequesterID: "u1", Status: domain.JobStatusPending, CreatedAt: time.Now()})

	reaped, err := newTestReaper(jobs, &fakeNotifications{}).Reap(context.Background())
	if err != nil {
		t.Fatalf("Reap error: %v", err)
	}
	if reaped != 0 {
		t.Fatalf("reaped = %d, want 0", reaped)
	}
}

// One record failing to update must not abort the rest of the sweep.
func TestReapIsolatesPerRecordFailures(t *testing.T) {
	jobs := newMemJobs()
	jobs.seed(domain.Job{ID: "poisoned", RequesterID: "u1", Status: domain.JobStatusPending, CreatedAt: time.Now().Add(-10 * time.Minute)})
	jobs.seed(domain.Job{ID: "healthy", RequesterID: "u2", Status: domain.JobStatusPending, CreatedAt: time.Now().Add(-10 * time.Minute)})
	jobs.casErrs["poisoned"] = errors.New("row lock timeout")

	reaped, err := newTestReaper(jobs, &fakeNotifications{}).Reap(context.Background())
	if err != nil {
		t.Fatalf("Reap error: %v", err)
	}
	if reaped != 1 {
		t.Fatalf("reaped = %d, want 1", reaped)
	}
	if jobs.get("healthy").Status != domain.JobStatusFailed {
		t.Fatal("healthy record must still be reaped")
	}
}
