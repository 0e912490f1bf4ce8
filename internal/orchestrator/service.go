package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"mediaengine/internal/domain"
	"mediaengine/internal/infra"
	"mediaengine/internal/providers/music"
)

const (
	minDurationSec     = 15
	maxDurationSec     = 600
	defaultDurationSec = 60
)

// ObjectStore uploads raw audio returned by a provider and resolves the
// public URL recorded on the job.
type ObjectStore interface {
	Write(ctx context.Context, key string, data []byte) (string, error)
	URL(key string) string
}

// GenerateRequest is a validated-on-entry track generation request.
type GenerateRequest struct {
	RequesterID string
	Prompt      string
	Style       string
	DurationSec int
}

// GenerateResult is what callers get back from Generate: a definitive job id
// and the status reached synchronously within the call.
type GenerateResult struct {
	JobID     string
	Status    domain.JobStatus
	ResultURL string
}

// Service is the job orchestrator. It holds no mutable state of its own; all
// coordination between concurrent generate, poll and reaper work goes
// through the job repository's conditional status updates.
type Service struct {
	jobs      domain.JobRepository
	providers []music.Provider
	guard     *DuplicateGuard
	reaper    *Reaper
	notifier  *Notifier
	store     ObjectStore
	logger    infra.Logger
}

// NewService wires the orchestrator. The provider slice is the fixed
// priority order walked on transient submit failures.
func NewService(
	jobs domain.JobRepository,
	providers []music.Provider,
	guard *DuplicateGuard,
	reaper *Reaper,
	notifier *Notifier,
	store ObjectStore,
	logger infra.Logger,
) *Service {
	return &Service{
		jobs:      jobs,
		providers: providers,
		guard:     guard,
		reaper:    reaper,
		notifier:  notifier,
		store:     store,
		logger:    logger,
	}
}

// Generate validates the request, runs the duplicate guard, creates a job
// and submits it to the provider chain. It returns as soon as the
// synchronous submit settles; it never waits for an async render.
func (s *Service) Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	if req.DurationSec == 0 {
		req.DurationSec = defaultDurationSec
	}

	// Opportunistic reap keeps the guard check below honest: a stuck job
	// older than the stale deadline must not block this requester.
	if _, err := s.reaper.Reap(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("orchestrator: opportunistic reap failed")
	}

	blocked, blockingID, err := s.guard.HasOngoing(ctx, req.RequesterID)
	if err != nil {
		return nil, fmt.Errorf("duplicate check: %w", err)
	}
	if blocked {
		return nil, &domain.DuplicateInFlightError{JobID: blockingID}
	}

	job := &domain.Job{
		ID:          uuid.NewString(),
		RequesterID: req.RequesterID,
		Prompt:      req.Prompt,
		Style:       req.Style,
		DurationSec: req.DurationSec,
		Status:      domain.JobStatusPending,
	}
	if err := s.jobs.Create(ctx, job); err != nil {
		// The guard window is shorter than the stale deadline, so an
		// in-flight job older than the window slips past the guard and
		// trips the store's unique constraint instead.
		if errors.Is(err, domain.ErrDuplicateActive) {
			return nil, &domain.DuplicateInFlightError{JobID: s.activeJobID(ctx, req.RequesterID)}
		}
		return nil, fmt.Errorf("create job: %w", err)
	}

	s.submit(ctx, job, req)

	return &GenerateResult{JobID: job.ID, Status: job.Status, ResultURL: job.ResultURL}, nil
}

// submit walks the provider priority list. Transient failures advance to the
// next provider; a non-transient failure fails the job immediately because
// retrying a caller error elsewhere cannot help. The outcome is persisted on
// the job, never thrown back up the call chain.
func (s *Service) submit(ctx context.Context, job *domain.Job, req GenerateRequest) {
	preq := music.GenerationRequest{
		Prompt:      req.Prompt,
		Style:       req.Style,
		DurationSec: req.DurationSec,
		RequesterID: req.RequesterID,
		RequestID:   job.ID,
	}

	var failures []string
	for _, provider := range s.providers {
		outcome, err := provider.Submit(ctx, preq)
		if err != nil {
			if music.IsTransient(err) {
				s.logger.Warn().Err(err).
					Str("job_id", job.ID).
					Str("provider", provider.Name()).
					Msg("orchestrator: provider submit failed, trying next")
				failures = append(failures, fmt.Sprintf("%s: %v", provider.Name(), err))
				continue
			}
			s.failJob(ctx, job, fmt.Sprintf("%s: %v", provider.Name(), err))
			return
		}

		s.acceptOutcome(ctx, job, provider.Name(), outcome)
		return
	}

	s.failJob(ctx, job, "all providers failed: "+strings.Join(failures, "; "))
}

// acceptOutcome records a successful submission: straight to completed when
// the provider finished synchronously, otherwise to processing for later
// polling.
func (s *Service) acceptOutcome(ctx context.Context, job *domain.Job, providerName string, outcome *music.SubmitOutcome) {
	if outcome.Completed() {
		resultURL, err := s.resolveResult(ctx, job.ID, outcome.ResultURL, outcome.Audio)
		if err != nil {
			s.failJob(ctx, job, fmt.Sprintf("store result: %v", err))
			return
		}
		upd := domain.JobUpdate{
			Status:      domain.JobStatusCompleted,
			Provider:    &providerName,
			ProviderRef: &outcome.ProviderRef,
			ResultURL:   &resultURL,
		}
		ok, err := s.jobs.CompareAndUpdateStatus(ctx, job.ID, []domain.JobStatus{domain.JobStatusPending}, upd)
		if err != nil {
			s.logger.Error().Err(err).Str("job_id", job.ID).Msg("orchestrator: persist completion failed")
			return
		}
		if !ok {
			s.reload(ctx, job)
			return
		}
		job.Status = domain.JobStatusCompleted
		job.Provider = providerName
		job.ProviderRef = outcome.ProviderRef
		job.ResultURL = resultURL
		s.notifier.OnTerminal(ctx, job)
		return
	}

	upd := domain.JobUpdate{
		Status:      domain.JobStatusProcessing,
		Provider:    &providerName,
		ProviderRef: &outcome.ProviderRef,
	}
	ok, err := s.jobs.CompareAndUpdateStatus(ctx, job.ID, []domain.JobStatus{domain.JobStatusPending}, upd)
	if err != nil {
		s.logger.Error().Err(err).Str("job_id", job.ID).Msg("orchestrator: persist submission failed")
		return
	}
	if !ok {
		s.reload(ctx, job)
		return
	}
	job.Status = domain.JobStatusProcessing
	job.Provider = providerName
	job.ProviderRef = outcome.ProviderRef
}

// CheckStatus returns the job's current state, polling the provider when the
// job is still processing. Terminal states are stable: once completed or
// failed, repeated calls return identical fields and never transition again.
func (s *Service) CheckStatus(ctx context.Context, jobID string) (*domain.Job, error) {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status.Terminal() {
		return job, nil
	}
	if job.Status != domain.JobStatusProcessing || job.ProviderRef == "" {
		return job, nil
	}

	provider := s.providerByName(job.Provider)
	if provider == nil {
		s.logger.Warn().Str("job_id", job.ID).Str("provider", job.Provider).Msg("orchestrator: provider no longer configured")
		return job, nil
	}

	outcome, err := provider.Poll(ctx, job.ProviderRef)
	if err != nil {
		if !music.IsTransient(err) {
			msg := err.Error()
			s.finishProcessing(ctx, job, domain.JobUpdate{
				Status:       domain.JobStatusFailed,
				ErrorMessage: &msg,
			})
			return job, nil
		}
		// Transient poll failure: leave the job untouched, the reaper
		// bounds how long this can go on.
		s.logger.Warn().Err(err).Str("job_id", job.ID).Msg("orchestrator: provider poll failed")
		return job, nil
	}

	switch outcome.State {
	case music.PollStateDone:
		resultURL, rerr := s.resolveResult(ctx, job.ID, outcome.ResultURL, outcome.Audio)
		if rerr != nil {
			s.logger.Error().Err(rerr).Str("job_id", job.ID).Msg("orchestrator: store polled result failed")
			return job, nil
		}
		s.finishProcessing(ctx, job, domain.JobUpdate{
			Status:    domain.JobStatusCompleted,
			ResultURL: &resultURL,
		})
	case music.PollStateFailed:
		msg := outcome.Message
		if msg == "" {
			msg = "generation failed"
		}
		s.finishProcessing(ctx, job, domain.JobUpdate{
			Status:       domain.JobStatusFailed,
			ErrorMessage: &msg,
		})
	}
	return job, nil
}

// finishProcessing applies a terminal transition from processing. Two
// concurrent polls may race here; the compare-and-set guarantees only the
// winner mutates the record and fires the notification gate. The loser
// reloads whatever the winner wrote.
func (s *Service) finishProcessing(ctx context.Context, job *domain.Job, upd domain.JobUpdate) {
	ok, err := s.jobs.CompareAndUpdateStatus(ctx, job.ID, []domain.JobStatus{domain.JobStatusProcessing}, upd)
	if err != nil {
		s.logger.Error().Err(err).Str("job_id", job.ID).Msg("orchestrator: terminal transition failed")
		return
	}
	if !ok {
		s.reload(ctx, job)
		return
	}
	job.Status = upd.Status
	if upd.ResultURL != nil {
		job.ResultURL = *upd.ResultURL
	}
	if upd.ErrorMessage != nil {
		job.ErrorMessage = *upd.ErrorMessage
	}
	s.notifier.OnTerminal(ctx, job)
}

// Cancel is a user-initiated transition to failed with a "cancelled" detail,
// allowed only from a non-terminal state. Cancelling a terminal job is a
// no-op returning the job as-is.
func (s *Service) Cancel(ctx context.Context, jobID, requesterID string) (*domain.Job, error) {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.RequesterID != requesterID {
		return nil, domain.ErrNotFound
	}
	if job.Status.Terminal() {
		return job, nil
	}

	msg := "cancelled"
	ok, err := s.jobs.CompareAndUpdateStatus(ctx, job.ID, domain.ActiveStatuses, domain.JobUpdate{
		Status:       domain.JobStatusFailed,
		ErrorMessage: &msg,
	})
	if err != nil {
		return nil, fmt.Errorf("cancel job: %w", err)
	}
	if !ok {
		s.reload(ctx, job)
		return job, nil
	}
	job.Status = domain.JobStatusFailed
	job.ErrorMessage = msg
	s.notifier.OnTerminal(ctx, job)
	return job, nil
}

// ListJobs returns a read-only projection for admin/list views.
func (s *Service) ListJobs(ctx context.Context, filter domain.JobFilter) ([]domain.JobSummary, error) {
	return s.jobs.List(ctx, filter)
}

// failJob applies the failed transition from any non-terminal state and
// fires the notification gate when it wins.
func (s *Service) failJob(ctx context.Context, job *domain.Job, msg string) {
	ok, err := s.jobs.CompareAndUpdateStatus(ctx, job.ID, domain.ActiveStatuses, domain.JobUpdate{
		Status:       domain.JobStatusFailed,
		ErrorMessage: &msg,
	})
	if err != nil {
		s.logger.Error().Err(err).Str("job_id", job.ID).Msg("orchestrator: persist failure failed")
		return
	}
	if !ok {
		s.reload(ctx, job)
		return
	}
	job.Status = domain.JobStatusFailed
	job.ErrorMessage = msg
	s.logger.Warn().Str("job_id", job.ID).Str("error", msg).Msg("orchestrator: job failed")
	s.notifier.OnTerminal(ctx, job)
}

// resolveResult turns a provider result into a durable URL, uploading raw
// audio through the object store when the provider returned bytes.
func (s *Service) resolveResult(ctx context.Context, jobID, resultURL string, audio []byte) (string, error) {
	if resultURL != "" {
		return resultURL, nil
	}
	if len(audio) == 0 {
		return "", errors.New("provider returned neither url nor audio")
	}
	if s.store == nil {
		return "", errors.New("no object store configured for raw audio")
	}
	key, err := s.store.Write(ctx, fmt.Sprintf("tracks/%s/track.mp3", jobID), audio)
	if err != nil {
		return "", err
	}
	return s.store.URL(key), nil
}

// reload refreshes the in-memory job after losing a status race.
func (s *Service) reload(ctx context.Context, job *domain.Job) {
	fresh, err := s.jobs.GetByID(ctx, job.ID)
	if err != nil {
		s.logger.Warn().Err(err).Str("job_id", job.ID).Msg("orchestrator: reload after lost race failed")
		return
	}
	*job = *fresh
}

// activeJobID looks up which in-flight job blocked a rejected insert. Best
// effort: an empty id still yields a well-formed duplicate rejection.
func (s *Service) activeJobID(ctx context.Context, requesterID string) string {
	active, err := s.jobs.ListActive(ctx, requesterID, time.Time{})
	if err != nil || len(active) == 0 {
		return ""
	}
	return active[0].ID
}

func (s *Service) providerByName(name string) music.Provider {
	for _, p := range s.providers {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

func (r GenerateRequest) validate() error {
	if strings.TrimSpace(r.RequesterID) == "" {
		return &domain.ValidationError{Field: "requester_id", Reason: "must not be empty"}
	}
	if strings.TrimSpace(r.Prompt) == "" {
		return &domain.ValidationError{Field: "prompt", Reason: "must not be empty"}
	}
	if r.DurationSec != 0 && (r.DurationSec < minDurationSec || r.DurationSec > maxDurationSec) {
		return &domain.ValidationError{
			Field:  "duration_sec",
			Reason: fmt.Sprintf("must be between %d and %d seconds", minDurationSec, maxDurationSec),
		}
	}
	return nil
}
