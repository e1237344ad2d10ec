// Package server is the HTTP surface over a map session: uploads,
// configuration edits, redraws, exports and presets.
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/sells-group/geoplot/internal/metrics"
	"github.com/sells-group/geoplot/internal/session"
	"github.com/sells-group/geoplot/internal/store"
)

// Stats headers set on redraw responses.
const (
	HeaderRows          = "X-Geoplot-Rows"
	HeaderPlotted       = "X-Geoplot-Plotted"
	HeaderDiscarded     = "X-Geoplot-Discarded"
	HeaderUnprojectable = "X-Geoplot-Unprojectable"
	HeaderMatched       = "X-Geoplot-Matched"
	HeaderFilled        = "X-Geoplot-Filled-Regions"
)

// Options configure the HTTP surface.
type Options struct {
	CORSOrigins    []string
	MaxUploadBytes int64
	// Gatherer backs GET /metrics. Nil disables the endpoint.
	Gatherer prometheus.Gatherer
}

// Server routes HTTP requests onto a session.
type Server struct {
	sess    *session.Session
	store   store.Store
	metrics *metrics.Metrics
	opts    Options
	router  chi.Router
}

// New builds the router. st and m may be nil.
func New(sess *session.Session, st store.Store, m *metrics.Metrics, opts Options) *Server {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 64 << 20
	}
	if len(opts.CORSOrigins) == 0 {
		opts.CORSOrigins = []string{"*"}
	}
	s := &Server{sess: sess, store: st, metrics: m, opts: opts}
	s.router = s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.opts.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		ExposedHeaders: []string{
			HeaderRows, HeaderPlotted, HeaderDiscarded, HeaderUnprojectable, HeaderMatched, HeaderFilled,
			"Content-Disposition",
		},
		MaxAge: 300,
	}))
	r.Use(s.instrument)

	r.Get("/health", s.handleHealth)
	if s.opts.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.opts.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Get("/state", s.handleState)
	r.Post("/dataset", s.handleDataset)
	r.Route("/boundaries", func(r chi.Router) {
		r.Post("/", s.handleBoundaryUpload)
		r.Post("/default", s.handleBoundaryDefault)
		r.Post("/source", s.handleBoundarySource)
	})

	r.Get("/config", s.handleGetConfig)
	r.Put("/config", s.handlePutConfig)
	r.Patch("/config", s.handlePatchConfig)
	r.Get("/schemes", s.handleSchemes)

	r.Post("/redraw", s.handleRedraw)
	r.Get("/export/{format}", s.handleExport)

	r.Route("/presets", func(r chi.Router) {
		r.Use(s.requireStore)
		r.Get("/", s.handleListPresets)
		r.Post("/", s.handleSavePreset)
		r.Get("/{id}", s.handleGetPreset)
		r.Delete("/{id}", s.handleDeletePreset)
		r.Post("/{id}/apply", s.handleApplyPreset)
	})
	return r
}

// instrument records latency per route pattern and logs the request.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := time.Since(start)
		s.metrics.ObserveRequest(route, r.Method, status, elapsed)

		zap.L().Debug("server: request",
			zap.String("method", r.Method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Duration("elapsed", elapsed),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func (s *Server) requireStore(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.store == nil {
			writeError(w, http.StatusServiceUnavailable, "preset store is not configured")
			return
		}
		next.ServeHTTP(w, r)
	})
}
