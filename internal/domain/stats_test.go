package domain

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarize(t *testing.T) {
	s := MetricSeries{Metric: "usage", Rows: []Observation{
		{Region: "Uusimaa", Period: Year(2021), Value: 80},
		{Region: "Lappi", Period: Year(2021), Value: 40},
		{Region: "Uusimaa", Period: Year(2022), Value: 90},
		{Region: "Lappi", Period: Year(2022), Value: 60},
	}}

	got := Summarize(s, Year(2022))
	assert.Equal(t, 150.0, got.Total)
	assert.Equal(t, 2, got.Regions)
	require.NotNil(t, got.Previous)
	assert.Equal(t, 120.0, *got.Previous)
	require.NotNil(t, got.ChangePct)
	assert.InDelta(t, 25.0, *got.ChangePct, 1e-9)

	first := Summarize(s, Year(2021))
	assert.Nil(t, first.Previous)
	assert.Nil(t, first.ChangePct)
}

func TestSummarize_ZeroPrevious(t *testing.T) {
	s := MetricSeries{Rows: []Observation{
		{Region: "Lappi", Period: Year(2021), Value: 0},
		{Region: "Lappi", Period: Year(2022), Value: 3},
	}}
	got := Summarize(s, Year(2022))
	require.NotNil(t, got.Previous)
	assert.Nil(t, got.ChangePct)
}

func deathTables() (Table, Table) {
	history := Table{
		Source: "death_df.csv",
		Header: []string{"year", "age_group", "deaths"},
		Rows: [][]string{
			{"2021-01-01", "15-24", "40"},
			{"2020-01-01", "15-24", "35"},
			{"2020-01-01", "25-34", "70"},
		},
	}
	forecast := Table{
		Source: "deaths_forecast.csv",
		Header: []string{"year", "age_group", "forecast", "lower", "upper"},
		Rows: [][]string{
			{"2025-01-01", "25-34", "75", "60", "90"},
			{"2025-01-01", "15-24", "25", "", ""},
			{"2024-01-01", "15-24", "42", "30", "50"},
		},
	}
	return history, forecast
}

func TestDeaths(t *testing.T) {
	ht, ft := deathTables()
	history, err := ParseDeaths(ht)
	require.NoError(t, err)
	forecast, err := ParseDeathForecast(ft)
	require.NoError(t, err)

	assert.Equal(t, []string{"25-34", "15-24"}, AgeGroups(forecast))

	v := Deaths(history, forecast, "15-24")
	require.Len(t, v.History, 2)
	assert.Equal(t, Year(2020), v.History[0].Period)
	require.Len(t, v.Forecast, 2)
	assert.Equal(t, Year(2024), v.Forecast[0].Period)
	assert.Nil(t, v.Forecast[1].Lower)

	empty := Deaths(history, forecast, "65+")
	assert.Empty(t, empty.History)
	assert.Empty(t, empty.Forecast)
}

func TestAgeDistribution(t *testing.T) {
	_, ft := deathTables()
	forecast, err := ParseDeathForecast(ft)
	require.NoError(t, err)

	got := AgeDistribution(forecast, Year(2025))
	require.Len(t, got, 2)
	assert.Equal(t, "25-34", got[0].AgeGroup)
	assert.InDelta(t, 0.75, got[0].Share, 1e-9)
	assert.InDelta(t, 0.25, got[1].Share, 1e-9)

	assert.Empty(t, AgeDistribution(forecast, Year(2030)))
}

func TestParseDeaths_DataQuality(t *testing.T) {
	ht, _ := deathTables()
	ht.Rows[2][2] = "seventy"

	_, err := ParseDeaths(ht)
	var dq *DataQualityError
	require.ErrorAs(t, err, &dq)
	assert.Equal(t, "death_df.csv", dq.Source)
	assert.Equal(t, 4, dq.Line)
	assert.Equal(t, "deaths", dq.Column)
}

func trendTable() Table {
	return Table{
		Source: "merged_TSA.csv",
		Header: []string{"region", "year", "arrests", "offences", "rehab", "clinic"},
		Rows: [][]string{
			{"Lappi", "2021", "12", "30", "4", "2"},
			{"Lappi", "2020", "10", "25", "3", "2"},
			{"Uusimaa", "2020", "100", "250", "30", "20"},
		},
	}
}

func TestTrends(t *testing.T) {
	kpis, err := ValidateKPIs([]string{"arrests", "clinic", "arrests"})
	require.NoError(t, err)
	assert.Equal(t, []string{"arrests", "clinic"}, kpis)

	series, err := ParseTrends(trendTable(), kpis)
	require.NoError(t, err)
	require.Len(t, series, 2)

	lines := TrendLines(series, "Lappi")
	require.Len(t, lines, 2)
	assert.Equal(t, "arrests", lines[0].KPI)
	assert.Equal(t, []TrendPoint{{Period: Year(2020), Value: 10}, {Period: Year(2021), Value: 12}}, lines[0].Points)
	assert.Equal(t, "clinic", lines[1].KPI)

	assert.Equal(t, []string{"Uusimaa", "Lappi"}, SeriesRegions(series...))
}

func TestValidateKPIs_Unknown(t *testing.T) {
	_, err := ValidateKPIs([]string{"arrests", "parking"})
	require.ErrorIs(t, err, ErrUnknownMetric)
}

func TestIncreaseAlerts(t *testing.T) {
	SetClock(clockwork.NewFakeClockAt(time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)))
	defer SetClock(nil)

	alerts := IncreaseAlerts("arrests", []RegionDelta{{Region: "Lappi", Delta: 9}, {Region: "Nowhere", Delta: 1}}, Year(2024), Year(2025))
	require.Len(t, alerts, 2)
	assert.Equal(t, IncreaseAlert{
		Metric:      "arrests",
		Region:      "Lappi",
		RegionEN:    "Lapland",
		Baseline:    Year(2024),
		Target:      Year(2025),
		Delta:       9,
		Rank:        1,
		GeneratedAt: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
	}, alerts[0])
	assert.Equal(t, 2, alerts[1].Rank)
	assert.Empty(t, alerts[1].RegionEN)
}
