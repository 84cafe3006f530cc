package httpadapter_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/couchcryptid/drug-kpi-dashboard/internal/adapter/httpadapter"
	"github.com/couchcryptid/drug-kpi-dashboard/internal/dashboard"
	"github.com/couchcryptid/drug-kpi-dashboard/internal/domain"
	"github.com/couchcryptid/drug-kpi-dashboard/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testData = "../../dashboard/testdata/data"

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

func newTestServer(t *testing.T, dir string, readyErr error) *httpadapter.Server {
	t.Helper()
	svc := dashboard.New(dashboard.NewFileSource(dir), nil, slog.Default(), observability.NewMetricsForTesting(), domain.Year(2024), domain.Year(2025))
	return httpadapter.NewServer(":0", &mockReadiness{err: readyErr}, svc, slog.Default())
}

func get(t *testing.T, srv *httpadapter.Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func TestHealthzReturns200(t *testing.T) {
	rec := get(t, newTestServer(t, testData, nil), "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	rec := get(t, newTestServer(t, testData, nil), "/readyz")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	rec := get(t, newTestServer(t, testData, fmt.Errorf("data validation failed")), "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	rec := get(t, newTestServer(t, testData, nil), "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestRegions(t *testing.T) {
	rec := get(t, newTestServer(t, testData, nil), "/api/v1/regions")
	require.Equal(t, http.StatusOK, rec.Code)

	var regions []domain.Region
	decode(t, rec, &regions)
	assert.Len(t, regions, 19)
	assert.Equal(t, domain.Region{English: "Uusimaa", Finnish: "Uusimaa"}, regions[0])
}

func TestTranslate(t *testing.T) {
	srv := newTestServer(t, testData, nil)

	tests := []struct {
		name   string
		target string
		status int
		want   any
	}{
		{"default direction", "/api/v1/regions/translate?name=Lapland", http.StatusOK, "Lappi"},
		{"finnish to english", "/api/v1/regions/translate?name=Varsinais-Suomi&direction=fi-en", http.StatusOK, "Finland Proper"},
		{"unknown name is absent", "/api/v1/regions/translate?name=Atlantis", http.StatusOK, nil},
		{"wrong convention is absent", "/api/v1/regions/translate?name=Lapland&direction=fi-en", http.StatusOK, nil},
		{"bad direction", "/api/v1/regions/translate?name=Lapland&direction=up", http.StatusBadRequest, nil},
		{"missing name", "/api/v1/regions/translate", http.StatusBadRequest, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, srv, tt.target)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())

			var body map[string]any
			decode(t, rec, &body)
			if tt.status == http.StatusOK {
				require.Contains(t, body, "translation")
				assert.Equal(t, tt.want, body["translation"])
			} else {
				assert.NotEmpty(t, body["error"])
			}
		})
	}
}

func TestUsageMap(t *testing.T) {
	rec := get(t, newTestServer(t, testData, nil), "/api/v1/usage/map")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/geo+json", rec.Header().Get("Content-Type"))

	var doc struct {
		Type     string `json:"type"`
		Period   string `json:"period"`
		HasData  bool   `json:"has_data"`
		Features []struct {
			Properties map[string]any `json:"properties"`
		} `json:"features"`
	}
	decode(t, rec, &doc)
	assert.Equal(t, "FeatureCollection", doc.Type)
	assert.Equal(t, "2022", doc.Period)
	assert.True(t, doc.HasData)
	require.Len(t, doc.Features, 3)
	assert.Equal(t, "Uusimaa", doc.Features[0].Properties["name"])
	assert.InDelta(t, 1200, doc.Features[0].Properties["value"], 0)
}

func TestUsageSummary(t *testing.T) {
	srv := newTestServer(t, testData, nil)

	rec := get(t, srv, "/api/v1/usage/summary?year=2022")
	require.Equal(t, http.StatusOK, rec.Code)
	var sum domain.UsageSummary
	decode(t, rec, &sum)
	assert.Equal(t, 1710.0, sum.Total)
	assert.Equal(t, domain.Year(2022), sum.Period)

	rec = get(t, srv, "/api/v1/usage/summary?year=last")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUsagePeriods(t *testing.T) {
	rec := get(t, newTestServer(t, testData, nil), "/api/v1/usage/periods")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `["2021","2022"]`, rec.Body.String())
}

func TestForecast(t *testing.T) {
	srv := newTestServer(t, testData, nil)

	rec := get(t, srv, "/api/v1/forecasts/arrests?region=Lapland")
	require.Equal(t, http.StatusOK, rec.Code)
	var res dashboard.ForecastResult
	decode(t, rec, &res)
	assert.Equal(t, "Lappi", res.Region)
	assert.Len(t, res.Points, 3)

	assert.Equal(t, http.StatusNotFound, get(t, srv, "/api/v1/forecasts/parking").Code)
	assert.Equal(t, http.StatusNotFound, get(t, srv, "/api/v1/forecasts/arrests?region=Atlantis").Code)
}

func TestForecastChart(t *testing.T) {
	rec := get(t, newTestServer(t, testData, nil), "/api/v1/forecasts/offences/chart.png")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), pngMagic))
}

func TestIncreases(t *testing.T) {
	srv := newTestServer(t, testData, nil)

	rec := get(t, srv, "/api/v1/forecasts/arrests/increases")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{
		"metric": "arrests",
		"baseline": "2024",
		"target": "2025",
		"regions": [{"region": "Uusimaa", "delta": 40}, {"region": "Lappi", "delta": 8}]
	}`, rec.Body.String())

	rec = get(t, srv, "/api/v1/forecasts/arrests/increases?baseline=2019&target=2025")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"regions":[]`)

	assert.Equal(t, http.StatusBadRequest, get(t, srv, "/api/v1/forecasts/arrests/increases?baseline=soon").Code)
}

func TestRiskMap(t *testing.T) {
	rec := get(t, newTestServer(t, testData, nil), "/api/v1/forecasts/arrests/risk-map")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var doc struct {
		Caption string `json:"caption"`
		Scale   struct {
			Min float64 `json:"min"`
			Max float64 `json:"max"`
		} `json:"scale"`
	}
	decode(t, rec, &doc)
	assert.Equal(t, dashboard.RiskCaption, doc.Caption)
	assert.Equal(t, 8.0, doc.Scale.Min)
	assert.Equal(t, 40.0, doc.Scale.Max)
}

func TestDeaths(t *testing.T) {
	srv := newTestServer(t, testData, nil)

	rec := get(t, srv, "/api/v1/deaths?age_group=25-34")
	require.Equal(t, http.StatusOK, rec.Code)
	var res dashboard.DeathsResult
	decode(t, rec, &res)
	assert.Equal(t, "25-34", res.AgeGroup)
	assert.Len(t, res.Forecast, 1)

	assert.Equal(t, http.StatusNotFound, get(t, srv, "/api/v1/deaths?age_group=65%2B").Code)

	rec = get(t, srv, "/api/v1/deaths/chart.png")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), pngMagic))
}

func TestDistribution(t *testing.T) {
	srv := newTestServer(t, testData, nil)

	rec := get(t, srv, "/api/v1/deaths/distribution")
	require.Equal(t, http.StatusOK, rec.Code)
	var res dashboard.DistributionResult
	decode(t, rec, &res)
	assert.Equal(t, domain.Year(2025), res.Period)
	assert.Len(t, res.Shares, 2)

	rec = get(t, srv, "/api/v1/deaths/distribution.png?year=2025")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), pngMagic))

	rec = get(t, srv, "/api/v1/deaths/distribution.png?year=1990")
	assert.Equal(t, http.StatusNotFound, rec.Code, "nothing to draw")
}

func TestTrends(t *testing.T) {
	srv := newTestServer(t, testData, nil)

	rec := get(t, srv, "/api/v1/trends?region=lappi&kpi=rehab,clinic")
	require.Equal(t, http.StatusOK, rec.Code)
	var res dashboard.TrendsResult
	decode(t, rec, &res)
	assert.Equal(t, "Lappi", res.Region)
	require.Len(t, res.Lines, 2)
	assert.Equal(t, "clinic", res.Lines[1].KPI)

	rec = get(t, srv, "/api/v1/trends?kpi=arrests&kpi=offences")
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &res)
	assert.Len(t, res.Lines, 2)

	assert.Equal(t, http.StatusNotFound, get(t, srv, "/api/v1/trends?kpi=parking").Code)

	rec = get(t, srv, "/api/v1/trends/chart.png?kpi=arrests")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), pngMagic))
}

func TestDataQualityReturns422(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.CopyFS(dir, os.DirFS(testData)))
	bad := ",year,Uusimaa\n0,2022,n/a\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, dashboard.UsageFile), []byte(bad), 0o600))

	rec := get(t, newTestServer(t, dir, nil), "/api/v1/usage/summary")
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var body map[string]string
	decode(t, rec, &body)
	assert.Contains(t, body["error"], "line 2")
	assert.Contains(t, body["error"], "Uusimaa")
}

func TestMissingFileReturns500(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.CopyFS(dir, os.DirFS(testData)))
	require.NoError(t, os.Remove(filepath.Join(dir, dashboard.TrendsFile)))

	rec := get(t, newTestServer(t, dir, nil), "/api/v1/trends")
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var body map[string]string
	decode(t, rec, &body)
	assert.Equal(t, "Internal Server Error", body["error"])
}
