package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/qqlww1987/KnowFlow-sub000/internal/config"
	"github.com/qqlww1987/KnowFlow-sub000/internal/pipeline"
	"github.com/qqlww1987/KnowFlow-sub000/internal/token"
)

// Server is the HTTP surface over the chunking core.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	counter      *token.Counter
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(orch *pipeline.Orchestrator, counter *token.Counter, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		orchestrator: orch,
		counter:      counter,
		log:          log,
		cfg:          cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.APIKey, s.log))

		// Synchronous core boundaries.
		r.Post("/api/segment", s.handleSegment)
		r.Post("/api/hierarchy", s.handleHierarchy)
		r.Post("/api/coordinates", s.handleCoordinates)

		// Async document pipeline.
		r.Post("/api/ingest", s.handleIngest)
		r.Get("/api/ingest/{jobID}", s.handleJobStatus)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func jsonResponse(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, status int) {
	jsonResponse(w, status, map[string]string{"error": msg})
}
