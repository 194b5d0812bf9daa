package api

import (
	"log/slog"
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/dgallion1/coursevoice/internal/config"
	"github.com/dgallion1/coursevoice/internal/ingest"
	"github.com/dgallion1/coursevoice/internal/session"
	"github.com/dgallion1/coursevoice/internal/stats"
	"github.com/dgallion1/coursevoice/internal/tutor"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Deps are the components the HTTP shell drives.
type Deps struct {
	Sessions  *session.Registry
	Ingestor  *ingest.Ingestor
	Processor *tutor.Processor

	GenerationModel string
	GenerationStats *stats.Latency
	SynthesisStats  *stats.Latency
}

// Server is the HTTP API for course-notes tutoring sessions.
type Server struct {
	router chi.Router
	deps   Deps
	log    *slog.Logger
	cfg    config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(deps Deps, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		deps: deps,
		log:  log,
		cfg:  cfg,
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

	r.Group(func(r chi.Router) {
		if s.cfg.TutorAPIKey != "" {
			r.Use(AuthMiddleware(s.cfg.TutorAPIKey, s.log))
		}

		r.Post("/api/sessions", s.handleCreateSession)
		r.Get("/api/sessions/{sessionID}", s.handleGetSession)
		r.Delete("/api/sessions/{sessionID}", s.handleDeleteSession)

		r.Put("/api/sessions/{sessionID}/corpus", s.handleUploadCorpus)

		r.With(RateLimit(s.cfg.TurnRatePerMinute)).Post("/api/sessions/{sessionID}/turns", s.handleTurn)
		r.Get("/api/sessions/{sessionID}/turns", s.handleListTurns)
		r.Get("/api/sessions/{sessionID}/turns/{index}/audio", s.handleTurnAudio)

		r.Get("/api/stats", s.handleStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = sonic.ConfigDefault.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}
