package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"mediaengine/internal/domain"
	"mediaengine/internal/infra"
	"mediaengine/internal/orchestrator"
)

// Orchestrator is the surface the handlers need from the job orchestrator.
type Orchestrator interface {
	Generate(ctx context.Context, req orchestrator.GenerateRequest) (*orchestrator.GenerateResult, error)
	CheckStatus(ctx context.Context, jobID string) (*domain.Job, error)
	Cancel(ctx context.Context, jobID, requesterID string) (*domain.Job, error)
	ListJobs(ctx context.Context, filter domain.JobFilter) ([]domain.JobSummary, error)
}

// App bundles handler dependencies.
type App struct {
	Orchestrator Orchestrator
	Logger       infra.Logger
}

// NewApp creates the handler set.
func NewApp(orch Orchestrator, logger infra.Logger) *App {
	return &App{Orchestrator: orch, Logger: logger}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, status int, code, message string) {
	a.json(w, status, map[string]string{"error": code, "message": message})
}

// currentUserID reads the requester identity set by the upstream auth layer.
func (a *App) currentUserID(r *http.Request) string {
	return r.Header.Get("X-User-ID")
}

// Health responds to liveness probes.
func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]string{"status": "ok"})
}
