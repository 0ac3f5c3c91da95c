package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/baxromumarov/job-harvester/internal/observability"
	"github.com/baxromumarov/job-harvester/internal/store"
)

// RecordStore is satisfied by *store.Store.
type RecordStore interface {
	Ping(ctx context.Context) error
	CountLinks(ctx context.Context) (int, error)
	ListRecords(ctx context.Context, limit, offset int) ([]store.Record, int, error)
}

type Server struct {
	router  *chi.Mux
	runs    *Runs
	records RecordStore
	baseCtx context.Context
	logger  *slog.Logger
}

// NewServer wires the routes. Crawls started over HTTP run under baseCtx so
// they outlive the request that started them. records may be nil.
func NewServer(baseCtx context.Context, runs *Runs, records RecordStore, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		router:  chi.NewRouter(),
		runs:    runs,
		records: records,
		baseCtx: baseCtx,
		logger:  logger,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
	}))

	s.router.Get("/health", s.handleHealth)
	s.router.Get("/stats", s.handleStats)
	s.router.Method(http.MethodGet, "/metrics", observability.MetricsHandler())
	s.router.Get("/crawls", s.handleListCrawls)
	s.router.Post("/crawls", s.handleStartCrawl)
	s.router.Get("/crawls/{id}", s.handleGetCrawl)
	s.router.Get("/records", s.handleListRecords)
}

func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.records != nil {
		if err := s.records.Ping(r.Context()); err != nil {
			s.logger.Warn("store ping failed", "error", err)
			http.Error(w, "store unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	response, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(response)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
