package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		// Health check (no auth required)
		r.Get("/health", s.handleHealth)

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Get("/objects", s.handleListObjects)

			r.Route("/states", func(r chi.Router) {
				r.Get("/", s.handleListStates)
				r.Get("/{path}", s.handleGetState)
				r.Put("/{path}", s.handleSetState)
			})

			r.Get("/commands", s.handleListCommands)

			r.Get(s.wsPath(), s.handleWebSocket)
		})
	})

	return r
}

// wsPath is the WebSocket route below /api/v1.
func (s *Server) wsPath() string {
	if s.wsCfg.Path == "" {
		return "/ws"
	}
	return s.wsCfg.Path
}
