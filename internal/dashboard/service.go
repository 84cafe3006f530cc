package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/couchcryptid/drug-kpi-dashboard/internal/domain"
	"github.com/couchcryptid/drug-kpi-dashboard/internal/observability"
	"github.com/samber/lo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/couchcryptid/drug-kpi-dashboard/internal/dashboard"

// Usage map labels.
const (
	UsageMetric  = "usage"
	UsageLabel   = "Reported drug usage"
	UsageCaption = "Reported Drug Usage for Finnish Regions"
	RiskCaption  = "High risk regions"
	RiskLabel    = "Predicted increase"
)

// DefaultTrendKPI is drawn when a trends request names no KPI.
const DefaultTrendKPI = "arrests"

const alertTimeout = 5 * time.Second

// AlertLoader publishes increase alerts.
type AlertLoader interface {
	LoadBatch(ctx context.Context, alerts []domain.IncreaseAlert) error
}

// Service builds every dashboard view from the data source.
type Service struct {
	source   Source
	alerts   AlertLoader
	logger   *slog.Logger
	metrics  *observability.Metrics
	tracer   trace.Tracer
	baseline domain.Period
	target   domain.Period

	// Last ranking published per metric/baseline/target, so repeated
	// requests do not re-announce an unchanged ranking.
	mu        sync.Mutex
	published map[string]string
}

// New creates a Service. alerts may be nil to disable alert publishing.
// baseline and target are the default periods of increase rankings.
func New(src Source, alerts AlertLoader, logger *slog.Logger, metrics *observability.Metrics, baseline, target domain.Period) *Service {
	return &Service{
		source:    src,
		alerts:    alerts,
		logger:    logger,
		metrics:   metrics,
		tracer:    otel.Tracer(tracerName),
		baseline:  baseline,
		target:    target,
		published: make(map[string]string),
	}
}

// ForecastResult is the forecast view of one region.
type ForecastResult struct {
	Metric  string                 `json:"metric"`
	Region  string                 `json:"region"`
	Regions []string               `json:"regions"`
	Points  []domain.ForecastPoint `json:"points"`
}

// IncreasesResult is an increase ranking with the periods it compares.
type IncreasesResult struct {
	Metric   string               `json:"metric"`
	Baseline domain.Period        `json:"baseline"`
	Target   domain.Period        `json:"target"`
	Regions  []domain.RegionDelta `json:"regions"`
}

// DeathsResult is the deaths view of one age group.
type DeathsResult struct {
	domain.DeathsView
	AgeGroups []string `json:"age_groups"`
}

// DistributionResult is the age-group split of one forecast period.
type DistributionResult struct {
	Period domain.Period     `json:"period"`
	Shares []domain.AgeShare `json:"shares"`
}

// TrendsResult holds the KPI lines of one region.
type TrendsResult struct {
	Region  string             `json:"region"`
	Regions []string           `json:"regions"`
	Lines   []domain.TrendLine `json:"lines"`
}

// UsageMap draws the usage choropleth of period. The zero period selects
// the latest year in the table.
func (s *Service) UsageMap(ctx context.Context, period domain.Period) (domain.ChoroplethMap, error) {
	var m domain.ChoroplethMap
	err := s.observe(ctx, "usage_map", func(ctx context.Context) error {
		series, err := s.usageSeries(ctx)
		if err != nil {
			return err
		}
		geoms, err := s.source.Boundaries(ctx)
		if err != nil {
			return err
		}
		m, err = domain.BuildChoropleth(geoms, series, latestIfZero(period, series.Periods()), domain.EnglishToFinnish, domain.ChoroplethOptions{
			Caption:    UsageCaption,
			ValueLabel: UsageLabel,
		})
		return err
	})
	return m, err
}

// UsageSummary totals usage for period (zero selects the latest year).
func (s *Service) UsageSummary(ctx context.Context, period domain.Period) (domain.UsageSummary, error) {
	var sum domain.UsageSummary
	err := s.observe(ctx, "usage_summary", func(ctx context.Context) error {
		series, err := s.usageSeries(ctx)
		if err != nil {
			return err
		}
		sum = domain.Summarize(series, latestIfZero(period, series.Periods()))
		return nil
	})
	return sum, err
}

// UsagePeriods lists the years of the usage table.
func (s *Service) UsagePeriods(ctx context.Context) ([]domain.Period, error) {
	series, err := s.usageSeries(ctx)
	if err != nil {
		return nil, err
	}
	return series.Periods(), nil
}

// Forecast returns the forecast points of one region. An empty region
// selects the first region choice (Uusimaa when present).
func (s *Service) Forecast(ctx context.Context, metric, region string) (ForecastResult, error) {
	var res ForecastResult
	err := s.observe(ctx, "forecast", func(ctx context.Context) error {
		series, err := s.forecastSeries(ctx, metric)
		if err != nil {
			return err
		}
		choices := domain.ForecastRegions(series)
		name, err := pickRegion(region, choices)
		if err != nil {
			return err
		}
		res = ForecastResult{
			Metric:  series.Metric,
			Region:  name,
			Regions: choices,
			Points:  domain.ForecastView(series, name),
		}
		return nil
	}, attribute.String("metric", metric))
	return res, err
}

// Increases ranks the regions predicted to grow between baseline and
// target. Zero periods fall back to the configured defaults. A non-empty
// ranking is announced to the alert topic when alerts are enabled.
func (s *Service) Increases(ctx context.Context, metric string, baseline, target domain.Period) (IncreasesResult, error) {
	var res IncreasesResult
	err := s.observe(ctx, "increases", func(ctx context.Context) error {
		var err error
		res, err = s.rank(ctx, metric, baseline, target)
		return err
	}, attribute.String("metric", metric))
	if err == nil {
		s.publish(ctx, res)
	}
	return res, err
}

// RiskMap draws the increase ranking as a choropleth at the target period.
func (s *Service) RiskMap(ctx context.Context, metric string, baseline, target domain.Period) (domain.ChoroplethMap, error) {
	var m domain.ChoroplethMap
	err := s.observe(ctx, "risk_map", func(ctx context.Context) error {
		res, err := s.rank(ctx, metric, baseline, target)
		if err != nil {
			return err
		}
		geoms, err := s.source.Boundaries(ctx)
		if err != nil {
			return err
		}
		series := domain.IncreaseSeries(res.Metric, res.Regions, res.Target)
		m, err = domain.BuildChoropleth(geoms, series, res.Target, domain.EnglishToFinnish, domain.ChoroplethOptions{
			Caption:    RiskCaption,
			ValueLabel: RiskLabel,
		})
		return err
	}, attribute.String("metric", metric))
	return m, err
}

// Deaths returns the history and forecast of an age group. An empty age
// group selects the first one of the forecast.
func (s *Service) Deaths(ctx context.Context, ageGroup string) (DeathsResult, error) {
	var res DeathsResult
	err := s.observe(ctx, "deaths", func(ctx context.Context) error {
		history, forecast, err := s.deathTables(ctx)
		if err != nil {
			return err
		}
		groups := domain.AgeGroups(forecast)
		ageGroup = strings.TrimSpace(ageGroup)
		if ageGroup == "" && len(groups) > 0 {
			ageGroup = groups[0]
		}
		if !lo.Contains(groups, ageGroup) {
			return fmt.Errorf("%w: %q", domain.ErrUnknownAgeGroup, ageGroup)
		}
		res = DeathsResult{DeathsView: domain.Deaths(history, forecast, ageGroup), AgeGroups: groups}
		return nil
	})
	return res, err
}

// DeathDistribution splits the forecast deaths of period by age group. The
// zero period selects the latest forecast year.
func (s *Service) DeathDistribution(ctx context.Context, period domain.Period) (DistributionResult, error) {
	var res DistributionResult
	err := s.observe(ctx, "death_distribution", func(ctx context.Context) error {
		t, err := s.source.DeathForecast(ctx)
		if err != nil {
			return err
		}
		forecast, err := domain.ParseDeathForecast(t)
		if err != nil {
			return err
		}
		periods := lo.Map(forecast, func(f domain.DeathForecast, _ int) domain.Period { return f.Period })
		p := latestIfZero(period, periods)
		res = DistributionResult{Period: p, Shares: domain.AgeDistribution(forecast, p)}
		return nil
	})
	return res, err
}

// Trends returns one line per KPI for a region. No KPIs selects arrests; an
// empty region selects the first region choice.
func (s *Service) Trends(ctx context.Context, region string, kpis []string) (TrendsResult, error) {
	var res TrendsResult
	err := s.observe(ctx, "trends", func(ctx context.Context) error {
		if len(kpis) == 0 {
			kpis = []string{DefaultTrendKPI}
		}
		selected, err := domain.ValidateKPIs(kpis)
		if err != nil {
			return err
		}
		t, err := s.source.Trends(ctx)
		if err != nil {
			return err
		}
		series, err := domain.ParseTrends(t, selected)
		if err != nil {
			return err
		}
		choices := domain.SeriesRegions(series...)
		name, err := pickRegion(region, choices)
		if err != nil {
			return err
		}
		res = TrendsResult{Region: name, Regions: choices, Lines: domain.TrendLines(series, name)}
		return nil
	})
	return res, err
}

func (s *Service) usageSeries(ctx context.Context) (domain.MetricSeries, error) {
	return readUsage(ctx, s.source)
}

// readUsage reshapes the wide usage table over the region columns it has.
func readUsage(ctx context.Context, src Source) (domain.MetricSeries, error) {
	t, err := src.Usage(ctx)
	if err != nil {
		return domain.MetricSeries{}, err
	}
	cols := lo.Filter(domain.FinnishRegionNames(), func(name string, _ int) bool {
		_, ok := t.Column(name)
		return ok
	})
	if len(cols) == 0 {
		return domain.MetricSeries{}, &domain.DataQualityError{Source: t.Source, Column: "<region>", Err: domain.ErrMissingColumn}
	}
	return domain.ReshapeWideToLong(t, []string{domain.PeriodColumn}, cols, UsageMetric)
}

func (s *Service) forecastSeries(ctx context.Context, metric string) (domain.ForecastSeries, error) {
	if !lo.Contains(domain.ForecastMetrics, metric) {
		return domain.ForecastSeries{}, fmt.Errorf("%w: %q", domain.ErrUnknownMetric, metric)
	}
	t, err := s.source.Forecast(ctx, metric)
	if err != nil {
		return domain.ForecastSeries{}, err
	}
	return domain.ParseForecast(t, metric)
}

func (s *Service) rank(ctx context.Context, metric string, baseline, target domain.Period) (IncreasesResult, error) {
	if baseline == (domain.Period{}) {
		baseline = s.baseline
	}
	if target == (domain.Period{}) {
		target = s.target
	}
	series, err := s.forecastSeries(ctx, metric)
	if err != nil {
		return IncreasesResult{}, err
	}
	return IncreasesResult{
		Metric:   series.Metric,
		Baseline: baseline,
		Target:   target,
		Regions:  domain.RankIncreases(series, baseline, target),
	}, nil
}

func (s *Service) deathTables(ctx context.Context) ([]domain.DeathRecord, []domain.DeathForecast, error) {
	ht, err := s.source.DeathHistory(ctx)
	if err != nil {
		return nil, nil, err
	}
	history, err := domain.ParseDeaths(ht)
	if err != nil {
		return nil, nil, err
	}
	ft, err := s.source.DeathForecast(ctx)
	if err != nil {
		return nil, nil, err
	}
	forecast, err := domain.ParseDeathForecast(ft)
	if err != nil {
		return nil, nil, err
	}
	return history, forecast, nil
}

// publish announces a ranking unless the same ranking was the last one
// published for its metric and periods. Failures are logged only.
func (s *Service) publish(ctx context.Context, res IncreasesResult) {
	if s.alerts == nil || len(res.Regions) == 0 {
		return
	}
	key := fmt.Sprintf("%s/%s/%s", res.Metric, res.Baseline, res.Target)
	fingerprint := fmt.Sprint(res.Regions)

	s.mu.Lock()
	if s.published[key] == fingerprint {
		s.mu.Unlock()
		return
	}
	s.published[key] = fingerprint
	s.mu.Unlock()

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), alertTimeout)
	defer cancel()

	alerts := domain.IncreaseAlerts(res.Metric, res.Regions, res.Baseline, res.Target)
	if err := s.alerts.LoadBatch(pubCtx, alerts); err != nil {
		s.logger.Error("publish increase alerts failed", "error", err, "metric", res.Metric, "count", len(alerts))
		s.metrics.AlertErrors.Inc()
		s.mu.Lock()
		delete(s.published, key)
		s.mu.Unlock()
		return
	}
	s.metrics.AlertsPublished.Add(float64(len(alerts)))
}

// observe wraps a view in a span, records its duration and outcome, and
// logs data-quality failures with their location.
func (s *Service) observe(ctx context.Context, view string, fn func(context.Context) error, attrs ...attribute.KeyValue) error {
	ctx, span := s.tracer.Start(ctx, "dashboard."+view, trace.WithAttributes(attrs...))
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	s.metrics.RenderDuration.WithLabelValues(view).Observe(time.Since(start).Seconds())

	if err != nil {
		kind := errorKind(err)
		s.metrics.RenderErrors.WithLabelValues(view, kind).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, kind)

		var dq *domain.DataQualityError
		if errors.As(err, &dq) {
			s.logger.Warn("data quality failure", "view", view, "source", dq.Source, "line", dq.Line, "column", dq.Column, "error", dq.Err)
		} else if kind == "io" {
			s.logger.Error("render failed", "view", view, "error", err)
		}
		return err
	}

	s.metrics.Renders.WithLabelValues(view).Inc()
	s.logger.Debug("view rendered", "view", view, "duration", time.Since(start))
	return nil
}

// errorKind classifies a view error for metrics and HTTP status mapping.
func errorKind(err error) string {
	var dq *domain.DataQualityError
	switch {
	case errors.As(err, &dq):
		return "data_quality"
	case errors.Is(err, domain.ErrUnknownMetric),
		errors.Is(err, domain.ErrUnknownRegion),
		errors.Is(err, domain.ErrUnknownAgeGroup):
		return "not_found"
	default:
		return "io"
	}
}

// pickRegion resolves a user-supplied region against the available choices.
// Input may use either naming convention; the first choice is used when
// the input is empty.
func pickRegion(input string, choices []string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		if len(choices) == 0 {
			return "", fmt.Errorf("%w: no regions available", domain.ErrUnknownRegion)
		}
		return choices[0], nil
	}
	if lo.Contains(choices, input) {
		return input, nil
	}
	if r, ok := domain.ResolveRegion(input); ok && lo.Contains(choices, r.Finnish) {
		return r.Finnish, nil
	}
	return "", fmt.Errorf("%w: %q", domain.ErrUnknownRegion, input)
}

// latestIfZero returns p, or the latest of periods when p is the zero period.
func latestIfZero(p domain.Period, periods []domain.Period) domain.Period {
	if p != (domain.Period{}) || len(periods) == 0 {
		return p
	}
	latest := periods[0]
	for _, q := range periods[1:] {
		if latest.Before(q) {
			latest = q
		}
	}
	return latest
}
