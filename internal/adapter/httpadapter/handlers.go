package httpadapter

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/couchcryptid/drug-kpi-dashboard/internal/adapter/boundary"
	"github.com/couchcryptid/drug-kpi-dashboard/internal/adapter/chart"
	"github.com/couchcryptid/drug-kpi-dashboard/internal/domain"
	"github.com/samber/lo"
)

// errBadParam marks a malformed query parameter.
var errBadParam = errors.New("bad parameter")

// translation is null when the name is unknown in the source convention.
type translation struct {
	Name        string  `json:"name"`
	Direction   string  `json:"direction"`
	Translation *string `json:"translation"`
}

func (s *Server) handleRegions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, domain.Regions())
}

func (s *Server) handleTranslate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	name := strings.TrimSpace(q.Get("name"))
	if name == "" {
		s.writeError(w, fmt.Errorf("%w: name is required", errBadParam))
		return
	}
	dir := domain.EnglishToFinnish
	if raw := q.Get("direction"); raw != "" {
		d, ok := domain.ParseDirection(raw)
		if !ok {
			s.writeError(w, fmt.Errorf("%w: direction %q", errBadParam, raw))
			return
		}
		dir = d
	}
	res := translation{Name: name, Direction: dir.String()}
	if out, ok := domain.Translate(name, dir); ok {
		res.Translation = &out
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleUsageMap(w http.ResponseWriter, r *http.Request) {
	period, err := periodParam(r, "year")
	if err != nil {
		s.writeError(w, err)
		return
	}
	m, err := s.api.UsageMap(r.Context(), period)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeMap(w, m)
}

func (s *Server) handleUsageSummary(w http.ResponseWriter, r *http.Request) {
	period, err := periodParam(r, "year")
	if err != nil {
		s.writeError(w, err)
		return
	}
	sum, err := s.api.UsageSummary(r.Context(), period)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (s *Server) handleUsagePeriods(w http.ResponseWriter, r *http.Request) {
	periods, err := s.api.UsagePeriods(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, periods)
}

func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	res, err := s.api.Forecast(r.Context(), r.PathValue("metric"), r.URL.Query().Get("region"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleForecastChart(w http.ResponseWriter, r *http.Request) {
	res, err := s.api.Forecast(r.Context(), r.PathValue("metric"), r.URL.Query().Get("region"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writePNG(w, func(out io.Writer) error {
		return chart.Forecast(out, res.Metric, res.Region, res.Points)
	})
}

func (s *Server) handleIncreases(w http.ResponseWriter, r *http.Request) {
	baseline, target, err := comparisonParams(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	res, err := s.api.Increases(r.Context(), r.PathValue("metric"), baseline, target)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleRiskMap(w http.ResponseWriter, r *http.Request) {
	baseline, target, err := comparisonParams(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	m, err := s.api.RiskMap(r.Context(), r.PathValue("metric"), baseline, target)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeMap(w, m)
}

func (s *Server) handleDeaths(w http.ResponseWriter, r *http.Request) {
	res, err := s.api.Deaths(r.Context(), r.URL.Query().Get("age_group"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleDeathsChart(w http.ResponseWriter, r *http.Request) {
	res, err := s.api.Deaths(r.Context(), r.URL.Query().Get("age_group"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writePNG(w, func(out io.Writer) error {
		return chart.Deaths(out, res.DeathsView)
	})
}

func (s *Server) handleDistribution(w http.ResponseWriter, r *http.Request) {
	period, err := periodParam(r, "year")
	if err != nil {
		s.writeError(w, err)
		return
	}
	res, err := s.api.DeathDistribution(r.Context(), period)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleDistributionChart(w http.ResponseWriter, r *http.Request) {
	period, err := periodParam(r, "year")
	if err != nil {
		s.writeError(w, err)
		return
	}
	res, err := s.api.DeathDistribution(r.Context(), period)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writePNG(w, func(out io.Writer) error {
		return chart.Distribution(out, res.Period, res.Shares)
	})
}

func (s *Server) handleTrends(w http.ResponseWriter, r *http.Request) {
	res, err := s.api.Trends(r.Context(), r.URL.Query().Get("region"), kpiParams(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleTrendsChart(w http.ResponseWriter, r *http.Request) {
	res, err := s.api.Trends(r.Context(), r.URL.Query().Get("region"), kpiParams(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writePNG(w, func(out io.Writer) error {
		return chart.Trends(out, res.Region, res.Lines)
	})
}

// periodParam parses an optional period query parameter; absent means the
// zero period.
func periodParam(r *http.Request, name string) (domain.Period, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return domain.Period{}, nil
	}
	p, err := domain.ParsePeriod(raw)
	if err != nil {
		return domain.Period{}, fmt.Errorf("%w: %s: %w", errBadParam, name, err)
	}
	return p, nil
}

func comparisonParams(r *http.Request) (baseline, target domain.Period, err error) {
	if baseline, err = periodParam(r, "baseline"); err != nil {
		return
	}
	target, err = periodParam(r, "target")
	return
}

// kpiParams accepts both repeated (?kpi=a&kpi=b) and comma-separated
// (?kpi=a,b) forms.
func kpiParams(r *http.Request) []string {
	var out []string
	for _, v := range r.URL.Query()["kpi"] {
		out = append(out, strings.Split(v, ",")...)
	}
	out = lo.Map(out, func(k string, _ int) string { return strings.TrimSpace(k) })
	return lo.Compact(out)
}

// statusOf maps a view error onto an HTTP status.
func statusOf(err error) int {
	var dq *domain.DataQualityError
	switch {
	case errors.Is(err, errBadParam):
		return http.StatusBadRequest
	case errors.As(err, &dq):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrUnknownMetric),
		errors.Is(err, domain.ErrUnknownRegion),
		errors.Is(err, domain.ErrUnknownAgeGroup),
		errors.Is(err, chart.ErrNoData):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusOf(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
		msg = http.StatusText(status)
	}
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) writeMap(w http.ResponseWriter, m domain.ChoroplethMap) {
	var buf bytes.Buffer
	if err := boundary.Encode(&buf, m); err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes()) //nolint:errcheck // client went away
}

// writePNG renders into a buffer first so a drawing failure can still be
// reported with a proper status.
func (s *Server) writePNG(w http.ResponseWriter, draw func(io.Writer) error) {
	var buf bytes.Buffer
	if err := draw(&buf); err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes()) //nolint:errcheck // client went away
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
