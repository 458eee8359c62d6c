// Package api exposes an engine over HTTP.
//
//	GET    /healthz
//	GET    /api/routes          registered routes
//	GET    /api/data/*          query; limit, offset and column=value filters
//	POST   /api/data/*          insert the JSON object body
//	PATCH  /api/data/*          update with {"values": {...}, "where": {...}}
//	DELETE /api/data/*          delete; column=value filters
//	GET    /api/watch           websocket watch stream
//
// The wildcard path is the identifier, so GET /api/data/tasks/1 reads
// /tasks/1.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/roach88/livestore/internal/engine"
)

// Server serves one engine.
type Server struct {
	engine *engine.Engine
}

// New creates a server for eng.
func New(eng *engine.Engine) *Server {
	return &Server{engine: eng}
}

// Routes returns the HTTP handler.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(LoggingMiddleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/routes", s.handleRoutes)
		r.Get("/watch", s.handleWatch)
		r.Route("/data", func(r chi.Router) {
			r.Get("/*", s.handleQuery)
			r.Post("/*", s.handleInsert)
			r.Patch("/*", s.handleUpdate)
			r.Delete("/*", s.handleDelete)
		})
	})
	return r
}
