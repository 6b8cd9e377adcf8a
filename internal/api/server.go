package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dgallion1/pdflayout/internal/pipeline"
	"github.com/dgallion1/pdflayout/internal/shaper"
)

// Server is the HTTP API server for pdflayout.
type Server struct {
	router  chi.Router
	service *pipeline.Service
	stats   *shaper.Stats
	log     *slog.Logger
	apiKey  string
}

// NewServer creates and configures the HTTP server. stats may be nil.
func NewServer(svc *pipeline.Service, stats *shaper.Stats, log *slog.Logger, apiKey string) *Server {
	s := &Server{
		service: svc,
		stats:   stats,
		log:     log,
		apiKey:  apiKey,
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
		r.Use(AuthMiddleware(s.apiKey, s.log))

		r.Post("/api/batches", s.handleSubmitBatch)
		r.Get("/api/batches/{jobID}", s.handleBatchStatus)
		r.Get("/api/batches/{jobID}/results", s.handleResults)
		r.Get("/api/batches/{jobID}/results/{filename}/markdown", s.handleMarkdown)
		r.Get("/api/batches/{jobID}/tables.xlsx", s.handleTablesWorkbook)
		r.Get("/api/stats/analyze", s.handleAnalyzeStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
