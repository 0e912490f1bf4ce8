package httpapi

import (
	stdhttp "net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"mediaengine/internal/http/handlers"
)

// NewRouter assembles the exposed HTTP surface. Auth runs upstream; this
// layer only trusts the identity header it forwards.
func NewRouter(app *handlers.App) stdhttp.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)

	r.Get("/v1/healthz", app.Health)

	r.Route("/v1/tracks", func(r chi.Router) {
		r.Post("/", app.GenerateTrack)
		r.Get("/", app.ListTracks)
		r.Get("/{job_id}", app.TrackStatus)
		r.Post("/{job_id}/cancel", app.CancelTrack)
	})

	return r
}
