package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"mediaengine/internal/domain"
	"mediaengine/internal/providers/music"
)

// memJobs is an in-memory domain.JobRepository honoring the same
// compare-and-set semantics as the Postgres implementation.
type memJobs struct {
	mu      sync.Mutex
	jobs    map[string]*domain.Job
	casErrs map[string]error
}

func newMemJobs() *memJobs {
	return &memJobs{jobs: make(map[string]*domain.Job), casErrs: make(map[string]error)}
}

// Create enforces the same one-active-job-per-requester constraint as the
// partial unique index in the Postgres schema.
func (m *memJobs) Create(ctx context.Context, job *domain.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.jobs {
		if existing.RequesterID == job.RequesterID && !existing.Status.Terminal() {
			return domain.ErrDuplicateActive
		}
	}
	stored := *job
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	if stored.UpdatedAt.IsZero() {
		stored.UpdatedAt = stored.CreatedAt
	}
	m.jobs[stored.ID] = &stored
	return nil
}

// seed inserts a job verbatim, letting tests backdate CreatedAt.
func (m *memJobs) seed(job domain.Job) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[job.ID] = &job
}

func (m *memJobs) get(id string) domain.Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.jobs[id]
}

func (m *memJobs) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.jobs)
}

func (m *memJobs) GetByID(ctx context.Context, jobID string) (*domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[jobID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *job
	return &cp, nil
}

func (m *memJobs) CompareAndUpdateStatus(ctx context.Context, jobID string, expected []domain.JobStatus, upd domain.JobUpdate) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.casErrs[jobID]; ok {
		return false, err
	}
	job, ok := m.jobs[jobID]
	if !ok {
		return false, nil
	}
	matched := false
	for _, s := range expected {
		if job.Status == s {
			matched = true
			break
		}
	}
	if !matched {
		return false, nil
	}
	job.Status = upd.Status
	if upd.Provider != nil {
		job.Provider = *upd.Provider
	}
	if upd.ProviderRef != nil {
		job.ProviderRef = *upd.ProviderRef
	}
	if upd.ResultURL != nil {
		job.ResultURL = *upd.ResultURL
	}
	if upd.ErrorMessage != nil {
		job.ErrorMessage = *upd.ErrorMessage
	}
	job.UpdatedAt = time.Now()
	return true, nil
}

func (m *memJobs) ListActive(ctx context.Context, requesterID string, since time.Time) ([]domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Job
	for _, job := range m.jobs {
		if job.RequesterID != requesterID || job.Status.Terminal() || job.CreatedAt.Before(since) {
			continue
		}
		out = append(out, *job)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memJobs) ListStale(ctx context.Context, cutoff time.Time) ([]domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Job
	for _, job := range m.jobs {
		if job.Status.Terminal() || !job.CreatedAt.Before(cutoff) {
			continue
		}
		out = append(out, *job)
	}
	return out, nil
}

func (m *memJobs) List(ctx context.Context, filter domain.JobFilter) ([]domain.JobSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.JobSummary
	for _, job := range m.jobs {
		if filter.RequesterID != "" && job.RequesterID != filter.RequesterID {
			continue
		}
		if filter.Status != "" && job.Status != filter.Status {
			continue
		}
		out = append(out, domain.JobSummary{
			ID:           job.ID,
			RequesterID:  job.RequesterID,
			Style:        job.Style,
			Status:       job.Status,
			Provider:     job.Provider,
			ResultURL:    job.ResultURL,
			ErrorMessage: job.ErrorMessage,
			CreatedAt:    job.CreatedAt,
			UpdatedAt:    job.UpdatedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

var _ domain.JobRepository = (*memJobs)(nil)

// fakeProvider scripts submit/poll outcomes and counts invocations.
type fakeProvider struct {
	mu            sync.Mutex
	name          string
	submitOutcome *music.SubmitOutcome
	submitErr     error
	pollOutcome   *music.PollOutcome
	pollErr       error
	submitCalls   int
	pollCalls     int
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Submit(ctx context.Context, req music.GenerationRequest) (*music.SubmitOutcome, error) {
	f.mu.Lock()
	f.submitCalls++
	f.mu.Unlock()
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	return f.submitOutcome, nil
}

func (f *fakeProvider) Poll(ctx context.Context, providerRef string) (*music.PollOutcome, error) {
	f.mu.Lock()
	f.pollCalls++
	f.mu.Unlock()
	if f.pollErr != nil {
		return nil, f.pollErr
	}
	return f.pollOutcome, nil
}

func (f *fakeProvider) submits() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submitCalls
}

func (f *fakeProvider) polls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pollCalls
}

var _ music.Provider = (*fakeProvider)(nil)

// fakePrefs serves preference flags and counts repository reads.
type fakePrefs struct {
	mu       sync.Mutex
	disabled map[domain.NotificationCategory]bool
	err      error
	reads    int
}

func (f *fakePrefs) Get(ctx context.Context, requesterID string, category domain.NotificationCategory) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	if f.err != nil {
		return false, f.err
	}
	return !f.disabled[category], nil
}

func (f *fakePrefs) readCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reads
}

// fakeNotifications records created notifications.
type fakeNotifications struct {
	mu      sync.Mutex
	err     error
	created []domain.Notification
}

func (f *fakeNotifications) Create(ctx context.Context, n *domain.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.created = append(f.created, *n)
	return nil
}

func (f *fakeNotifications) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.created)
}

func (f *fakeNotifications) last() domain.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.created[len(f.created)-1]
}

// memStore is an in-memory ObjectStore.
type memStore struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{blobs: make(map[string][]byte)}
}

func (m *memStore) Write(ctx context.Context, key string, data []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[key] = append([]byte(nil), data...)
	return key, nil
}

func (m *memStore) URL(key string) string {
	return fmt.Sprintf("mem://%s", key)
}
