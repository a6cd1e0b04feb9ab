package monitor

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/transparenciamx/numeralia/internal/catalog"
)

// Server exposes the last run of every system over HTTP for serve mode.
type Server struct {
	logger *zap.Logger

	mu   sync.RWMutex
	runs map[string]catalog.Run
}

func NewServer(logger *zap.Logger) *Server {
	return &Server{
		logger: logger,
		runs:   make(map[string]catalog.Run),
	}
}

// RecordRun stores the outcome of a finished run, replacing the system's
// previous one.
func (s *Server) RecordRun(run catalog.Run) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.runs[run.System] = run
	s.logger.Info("run recorded",
		zap.String("system", run.System),
		zap.String("run_id", run.RunID),
		zap.Int64("total_records", run.TotalRecords),
	)
}

func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	r.Get("/healthz", s.healthz)
	r.Route("/api/v1/runs", func(r chi.Router) {
		r.Get("/", s.listRuns)
		r.Get("/{system}", s.getRun)
	})

	return r
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := make([]catalog.Run, 0, len(s.runs))
	for _, run := range s.runs {
		runs = append(runs, run)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"runs":  runs,
		"count": len(runs),
	})
}

func (s *Server) getRun(w http.ResponseWriter, r *http.Request) {
	system := chi.URLParam(r, "system")

	s.mu.RLock()
	run, ok := s.runs[system]
	s.mu.RUnlock()

	if !ok {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(run)
}
