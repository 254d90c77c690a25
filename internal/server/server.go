package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lazypower/heartline/internal/engine"
	"github.com/lazypower/heartline/internal/metrics"
)

// Options configures a Server.
type Options struct {
	Version  string
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer // served at /metrics; nil uses the default registry
}

// Server is the heartline HTTP API server.
type Server struct {
	engine   *engine.Engine
	metrics  *metrics.Metrics
	gatherer prometheus.Gatherer
	router   chi.Router
	version  string
	started  time.Time
}

// New creates a Server around eng.
func New(eng *engine.Engine, opts Options) *Server {
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}
	s := &Server{
		engine:   eng,
		metrics:  opts.Metrics,
		gatherer: opts.Gatherer,
		version:  opts.Version,
		started:  time.Now(),
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
	r.Use(s.countRequests)

	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Post("/chat", s.handleChat)
		r.Post("/analyze", s.handleAnalyze)

		r.Route("/users/{user}", func(r chi.Router) {
			r.Get("/", s.handleStatus)
			r.Get("/history", s.handleHistory)
			r.Get("/emotions", s.handleObservations)
			r.Get("/emotions/stats", s.handleEmotionStats)
			r.Get("/events", s.handleEvents)
			r.Get("/instruction", s.handleInstruction)
			r.Post("/reset", s.handleReset)
		})
	})

	s.router = r
}

// countRequests records each request under its route pattern, so user ids
// never become label values.
func (s *Server) countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.metrics.HTTPRequest(r.Method, route, strconv.Itoa(status))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	dbOK := s.engine.Ping(ctx) == nil

	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"version":   s.version,
		"uptime":    time.Since(s.started).Seconds(),
		"db":        dbOK,
		"generator": s.engine.HasGenerator(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
