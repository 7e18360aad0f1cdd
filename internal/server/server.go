package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mstanton/keepsake/internal/engine"
	"github.com/mstanton/keepsake/internal/store"
)

// Server is the keepsake HTTP API server.
type Server struct {
	db      *store.DB
	engine  *engine.Engine
	router  chi.Router
	version string
	started time.Time
}

// New creates a new Server with the given database, engine, and version
// string.
func New(db *store.DB, e *engine.Engine, version string) *Server {
	s := &Server{
		db:      db,
		engine:  e,
		version: version,
		started: time.Now(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Post("/memories", s.handleCreateMemory)
		r.Get("/memories", s.handleListMemories)
		r.Get("/memories/{memoryID}", s.handleGetMemory)
		r.Delete("/memories/{memoryID}", s.handleDeleteMemory)
		r.Post("/memories/{memoryID}/relations", s.handleCreateRelation)
		r.Get("/memories/{memoryID}/relations", s.handleListRelations)

		r.Post("/generate", s.handleGenerate)
		r.Get("/retrieve", s.handleRetrieve)

		r.Post("/review/trigger", s.handleReviewTrigger)
		r.Get("/reviews", s.handleListReviews)
		r.Post("/organize/trigger", s.handleOrganizeTrigger)
		r.Post("/counter/reset", s.handleCounterReset)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	dbOK := true
	if err := s.db.Ping(); err != nil {
		dbOK = false
	}
	count, _ := s.db.CountMemories()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":   "ok",
		"version":  s.version,
		"uptime":   time.Since(s.started).Seconds(),
		"db":       dbOK,
		"db_path":  s.db.Path,
		"memories": count,
	})
}
