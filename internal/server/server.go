// Package server exposes scheduled pipeline runs over HTTP and a websocket
// event stream.
package server

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"go.uber.org/zap"

	"macro-risk-lab/internal/observability"
	"macro-risk-lab/internal/storage"
)

// HealthCheck probes one dependency.
type HealthCheck func(ctx context.Context) error

// Options configures a Server.
type Options struct {
	// Required
	Runs      storage.RunStore
	Scheduler *Scheduler

	Hub    *Hub                   // optional, enables /ws
	Health map[string]HealthCheck // optional dependency probes for /healthz

	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	Logger *zap.Logger
	Clock  func() time.Time
}

// Server serves the run API.
type Server struct {
	runs      storage.RunStore
	scheduler *Scheduler
	hub       *Hub
	health    map[string]HealthCheck
	http      *http.Server
	started   time.Time
	logger    *zap.Logger
	clock     func() time.Time
}

// New creates a server. It does not start listening.
func New(opts Options) (*Server, error) {
	if opts.Runs == nil {
		return nil, errors.New("server: run store is required")
	}
	if opts.Scheduler == nil {
		return nil, errors.New("server: scheduler is required")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	s := &Server{
		runs:      opts.Runs,
		scheduler: opts.Scheduler,
		hub:       opts.Hub,
		health:    opts.Health,
		started:   opts.Clock(),
		logger:    opts.Logger.With(zap.String("component", "server")),
		clock:     opts.Clock,
	}
	s.http = &http.Server{
		Addr:         opts.Addr,
		Handler:      s.Routes(),
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
	}
	return s, nil
}

// Routes builds the HTTP handler.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Handle("/metrics", observability.Handler())
	if s.hub != nil {
		r.Handle("/ws", s.hub)
	}

	r.Group(func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Get("/healthz", s.handleHealth)
		r.Get("/status", s.handleStatus)
		r.Route("/runs", func(r chi.Router) {
			r.Get("/", s.handleListRuns)
			r.Post("/", s.handleTriggerRun)
			r.Get("/{id}", s.handleGetRun)
		})
	})
	return r
}

// ListenAndServe blocks until the server stops. It returns nil after Shutdown.
func (s *Server) ListenAndServe() error {
	s.logger.Info("http server listening", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and closes websocket clients.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.hub != nil {
		s.hub.Close()
	}
	return s.http.Shutdown(ctx)
}

type errorResponse struct {
	Error string `json:"error"`
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok"}
	if len(s.health) > 0 {
		resp.Checks = make(map[string]string, len(s.health))
		names := make([]string, 0, len(s.health))
		for name := range s.health {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			if err := s.health[name](r.Context()); err != nil {
				s.logger.Warn("health check failed", zap.String("check", name), zap.Error(err))
				resp.Checks[name] = err.Error()
				resp.Status = "degraded"
				continue
			}
			resp.Checks[name] = "ok"
		}
	}

	if resp.Status != "ok" {
		render.Status(r, http.StatusServiceUnavailable)
	}
	render.JSON(w, r, resp)
}

type statusResponse struct {
	Uptime    string `json:"uptime"`
	Clients   int    `json:"websocket_clients"`
	Scheduler Status `json:"scheduler"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		Uptime:    s.clock().Sub(s.started).Round(time.Second).String(),
		Scheduler: s.scheduler.Status(),
	}
	if s.hub != nil {
		resp.Clients = s.hub.ClientCount()
	}
	render.JSON(w, r, resp)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.runs.GetAll(r.Context())
	if err != nil {
		s.fail(w, r, http.StatusInternalServerError, err)
		return
	}
	render.JSON(w, r, runs)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	run, err := s.runs.GetByID(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		s.fail(w, r, http.StatusNotFound, err)
		return
	}
	if err != nil {
		s.fail(w, r, http.StatusInternalServerError, err)
		return
	}
	render.JSON(w, r, run)
}

// handleTriggerRun starts a run in the background. A run already in
// progress yields 409.
func (s *Server) handleTriggerRun(w http.ResponseWriter, r *http.Request) {
	if s.scheduler.Running() {
		s.fail(w, r, http.StatusConflict, ErrRunInProgress)
		return
	}
	go func() {
		if _, err := s.scheduler.Trigger(s.scheduler.baseCtx); err != nil && !errors.Is(err, ErrRunInProgress) {
			s.logger.Error("manual run failed", zap.Error(err))
		}
	}()
	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, map[string]string{"status": "accepted"})
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, code int, err error) {
	if code >= http.StatusInternalServerError {
		s.logger.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
	render.Status(r, code)
	render.JSON(w, r, errorResponse{Error: err.Error()})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}
