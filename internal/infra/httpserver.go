package infra

import (
	"context"
	"net/http"
	"time"
)

// HTTPServer is the process's HTTP listener with the timeout profile from
// config applied. Shutdown stops accepting new connections and drains
// in-flight track requests before returning.
type HTTPServer struct {
	srv *http.Server
}

// NewHTTPServer builds the listener for the track generation surface.
func NewHTTPServer(cfg *Config, handler http.Handler) *HTTPServer {
	return &HTTPServer{
		srv: &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           handler,
			ReadTimeout:       cfg.HTTPReadTimeout,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      cfg.HTTPWriteTimeout,
			IdleTimeout:       cfg.HTTPIdleTimeout,
		},
	}
}

// Addr is the listen address, for startup logging.
func (s *HTTPServer) Addr() string {
	return s.srv.Addr
}

// Start blocks serving requests until Shutdown or a listener error.
func (s *HTTPServer) Start() error {
	return s.srv.ListenAndServe()
}

// Shutdown gracefully drains the server.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
