// Package http serves the dashboard page, its JSON/PNG/GeoJSON/XLSX API and
// the operational endpoints.
package http

import (
	"context"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/covid-dashboard/internal/domain"
)

// Dashboard is the query side of the pipeline.
type Dashboard interface {
	States() ([]string, error)
	Report(ctx context.Context, sel domain.Selection) (domain.Report, error)
	Compute(ctx context.Context, sel domain.Selection) (domain.Report, error)
	Choropleth(ctx context.Context, state string) (domain.Choropleth, domain.MapView, error)
	Load(ctx context.Context) (*domain.Dataset, error)
}

// Server exposes the dashboard plus health, readiness, and metrics routes.
type Server struct {
	httpServer *http.Server
	dashboard  Dashboard
	page       *template.Template
	logger     *slog.Logger
}

// NewServer wires the chi router.
func NewServer(addr string, dashboard Dashboard, ready sharedobs.ReadinessChecker, logger *slog.Logger) *Server {
	r := chi.NewRouter()

	s := &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           r,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       10 * time.Second,
			// Reloads fetch both source tables inside the request.
			WriteTimeout: 90 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		dashboard: dashboard,
		page:      dashboardPage,
		logger:    logger,
	}

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", sharedobs.LivenessHandler())
	r.Get("/readyz", sharedobs.ReadinessHandler(ready))
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/", s.handlePage)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/states", s.handleStates)
		r.Get("/report", s.handleReport)
		r.Get("/report/trend", s.handleTrend)
		r.Get("/report.xlsx", s.handleWorkbook)
		r.Get("/charts/{kind}", s.handleChart)
		r.Get("/choropleth.geojson", s.handleChoropleth)
		r.Post("/reload", s.handleReload)
	})

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.DebugContext(r.Context(), "request completed",
				"request_id", middleware.GetReqID(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
			)
		})
	}
}
