package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"mediaengine/internal/domain"
	"mediaengine/internal/orchestrator"
)

type generateTrackRequest struct {
	Prompt      string `json:"prompt"`
	Style       string `json:"style"`
	DurationSec int    `json:"duration_sec"`
}

type generateTrackResponse struct {
	JobID     string `json:"job_id"`
	Status    string `json:"status"`
	ResultURL string `json:"result_url,omitempty"`
}

type trackResponse struct {
	ID           string    `json:"id"`
	Status       string    `json:"status"`
	Provider     string    `json:"provider,omitempty"`
	ResultURL    string    `json:"result_url,omitempty"`
	ErrorMessage string    `json:"error,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func toTrackResponse(job *domain.Job) trackResponse {
	return trackResponse{
		ID:           job.ID,
		Status:       string(job.Status),
		Provider:     job.Provider,
		ResultURL:    job.ResultURL,
		ErrorMessage: job.ErrorMessage,
		CreatedAt:    job.CreatedAt,
		UpdatedAt:    job.UpdatedAt,
	}
}

// GenerateTrack accepts a generation request and returns the job id and the
// status reached synchronously. The render itself finishes asynchronously.
func (a *App) GenerateTrack(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	var req generateTrackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}

	result, err := a.Orchestrator.Generate(r.Context(), orchestrator.GenerateRequest{
		RequesterID: userID,
		Prompt:      req.Prompt,
		Style:       req.Style,
		DurationSec: req.DurationSec,
	})
	if err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			a.error(w, http.StatusBadRequest, "bad_request", verr.Error())
			return
		}
		var dup *domain.DuplicateInFlightError
		if errors.As(err, &dup) {
			a.json(w, http.StatusConflict, map[string]string{
				"error":      "duplicate_in_flight",
				"message":    "a generation job is already in flight",
				"blocked_by": dup.JobID,
			})
			return
		}
		a.Logger.Error().Err(err).Msg("handlers: generate failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to start generation")
		return
	}

	a.json(w, http.StatusAccepted, generateTrackResponse{
		JobID:     result.JobID,
		Status:    string(result.Status),
		ResultURL: result.ResultURL,
	})
}

// TrackStatus returns the job's current state, refreshing it from the
// provider when still processing.
func (a *App) TrackStatus(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	jobID := chi.URLParam(r, "job_id")
	if jobID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "job_id required")
		return
	}

	job, err := a.Orchestrator.CheckStatus(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "job not found")
			return
		}
		a.Logger.Error().Err(err).Str("job_id", jobID).Msg("handlers: status check failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to check status")
		return
	}
	if job.RequesterID != userID {
		a.error(w, http.StatusNotFound, "not_found", "job not found")
		return
	}

	a.json(w, http.StatusOK, toTrackResponse(job))
}

// CancelTrack moves a non-terminal job to failed with a "cancelled" detail.
func (a *App) CancelTrack(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	jobID := chi.URLParam(r, "job_id")
	if jobID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "job_id required")
		return
	}

	job, err := a.Orchestrator.Cancel(r.Context(), jobID, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "job not found")
			return
		}
		a.Logger.Error().Err(err).Str("job_id", jobID).Msg("handlers: cancel failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to cancel job")
		return
	}

	a.json(w, http.StatusOK, toTrackResponse(job))
}

// ListTracks returns the requester's jobs, optionally filtered by status.
func (a *App) ListTracks(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}

	filter := domain.JobFilter{RequesterID: userID}
	if status := r.URL.Query().Get("status"); status != "" {
		filter.Status = domain.JobStatus(status)
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if limit, err := strconv.Atoi(raw); err == nil {
			filter.Limit = limit
		}
	}

	summaries, err := a.Orchestrator.ListJobs(r.Context(), filter)
	if err != nil {
		a.Logger.Error().Err(err).Msg("handlers: list failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to list jobs")
		return
	}

	items := make([]map[string]any, 0, len(summaries))
	for _, s := range summaries {
		items = append(items, map[string]any{
			"id":         s.ID,
			"style":      s.Style,
			"status":     string(s.Status),
			"provider":   s.Provider,
			"result_url": s.ResultURL,
			"error":      s.ErrorMessage,
			"created_at": s.CreatedAt,
			"updated_at": s.UpdatedAt,
		})
	}
	a.json(w, http.StatusOK, map[string]any{"jobs": items})
}
