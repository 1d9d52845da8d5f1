// Package server provides the HTTP interface to SignLingo: the exercise
// catalog, practice history, and the live state of the current session.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ayusman/signlingo/internal/lesson"
	"github.com/ayusman/signlingo/internal/session"
	"github.com/ayusman/signlingo/internal/store"
)

// Session is the part of a practice session the server exposes.
type Session interface {
	Snapshot() session.Snapshot
	Watch(fn func(session.Snapshot)) func()
	Reset()
	Retry()
}

// Config holds the server configuration.
type Config struct {
	StaticDir string
	Catalog   *lesson.Catalog
	Store     *store.Store
	Session   Session
	Logger    *slog.Logger
}

// Server represents the HTTP server for the SignLingo application.
type Server struct {
	config Config
	router *chi.Mux
	log    *slog.Logger
	start  time.Time

	quit     chan struct{}
	quitOnce sync.Once
}

// New creates a new Server with the given configuration. A nil Catalog
// serves the built-in exercises.
func New(config Config) *Server {
	if config.Catalog == nil {
		config.Catalog = lesson.DefaultCatalog()
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		config: config,
		router: chi.NewRouter(),
		log:    logger.With("component", "server"),
		start:  time.Now(),
		quit:   make(chan struct{}),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	r := s.router

	r.Use(RequestID)
	r.Use(Logger(s.log))
	r.Use(Recovery(s.log))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Get("/lessons", s.handleListExercises(lesson.KindLesson))
		r.Get("/lessons/{id}", s.handleGetExercise(lesson.KindLesson))
		r.Get("/quizzes", s.handleListExercises(lesson.KindQuiz))
		r.Get("/quizzes/{id}", s.handleGetExercise(lesson.KindQuiz))

		// History routes need the store
		if s.config.Store != nil {
			r.Get("/history", s.handleListHistory)
			r.Get("/history/{id}", s.handleGetHistory)
			r.Get("/stats", s.handleStats)
		}

		// Session routes need a running session
		if s.config.Session != nil {
			r.Get("/session", s.handleSession)
			r.Post("/session/reset", s.handleSessionReset)
			r.Post("/session/retry", s.handleSessionRetry)
			r.Get("/session/events", s.handleSessionEvents)
		}
	})

	// Serve static files if StaticDir is configured
	if s.config.StaticDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(s.config.StaticDir)))
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

type healthResponse struct {
	Status    string `json:"status"`
	Uptime    string `json:"uptime"`
	Readiness string `json:"readiness,omitempty"`
	Channel   string `json:"channel,omitempty"`
}

// handleHealth handles GET /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status: "ok",
		Uptime: time.Since(s.start).Round(time.Second).String(),
	}
	if s.config.Session != nil {
		snap := s.config.Session.Snapshot()
		resp.Readiness = snap.Readiness.String()
		resp.Channel = snap.Channel
	}
	writeJSON(w, http.StatusOK, resp)
}

// Serve listens on addr until ctx is cancelled, then shuts down gracefully.
// Open session event streams are closed with a going-away frame.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.log.Info("listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		s.close()
		return err
	case <-ctx.Done():
	}

	s.close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) close() {
	s.quitOnce.Do(func() { close(s.quit) })
}
