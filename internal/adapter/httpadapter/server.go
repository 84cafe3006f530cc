package httpadapter

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/drug-kpi-dashboard/internal/dashboard"
	"github.com/couchcryptid/drug-kpi-dashboard/internal/domain"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Dashboard is the view layer served by the API.
type Dashboard interface {
	UsageMap(ctx context.Context, period domain.Period) (domain.ChoroplethMap, error)
	UsageSummary(ctx context.Context, period domain.Period) (domain.UsageSummary, error)
	UsagePeriods(ctx context.Context) ([]domain.Period, error)
	Forecast(ctx context.Context, metric, region string) (dashboard.ForecastResult, error)
	Increases(ctx context.Context, metric string, baseline, target domain.Period) (dashboard.IncreasesResult, error)
	RiskMap(ctx context.Context, metric string, baseline, target domain.Period) (domain.ChoroplethMap, error)
	Deaths(ctx context.Context, ageGroup string) (dashboard.DeathsResult, error)
	DeathDistribution(ctx context.Context, period domain.Period) (dashboard.DistributionResult, error)
	Trends(ctx context.Context, region string, kpis []string) (dashboard.TrendsResult, error)
}

// Server exposes the dashboard API alongside health, readiness, and metrics
// endpoints.
type Server struct {
	httpServer *http.Server
	api        Dashboard
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics and the
// /api/v1 routes.
func NewServer(addr string, ready sharedobs.ReadinessChecker, api Dashboard, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		api:    api,
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/v1/regions", s.handleRegions)
	mux.HandleFunc("GET /api/v1/regions/translate", s.handleTranslate)

	mux.HandleFunc("GET /api/v1/usage/map", s.handleUsageMap)
	mux.HandleFunc("GET /api/v1/usage/summary", s.handleUsageSummary)
	mux.HandleFunc("GET /api/v1/usage/periods", s.handleUsagePeriods)

	mux.HandleFunc("GET /api/v1/forecasts/{metric}", s.handleForecast)
	mux.HandleFunc("GET /api/v1/forecasts/{metric}/chart.png", s.handleForecastChart)
	mux.HandleFunc("GET /api/v1/forecasts/{metric}/increases", s.handleIncreases)
	mux.HandleFunc("GET /api/v1/forecasts/{metric}/risk-map", s.handleRiskMap)

	mux.HandleFunc("GET /api/v1/deaths", s.handleDeaths)
	mux.HandleFunc("GET /api/v1/deaths/chart.png", s.handleDeathsChart)
	mux.HandleFunc("GET /api/v1/deaths/distribution", s.handleDistribution)
	mux.HandleFunc("GET /api/v1/deaths/distribution.png", s.handleDistributionChart)

	mux.HandleFunc("GET /api/v1/trends", s.handleTrends)
	mux.HandleFunc("GET /api/v1/trends/chart.png", s.handleTrendsChart)

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
