package domain

import (
	"math/rand"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testForecastSource = "arrests_forecast.csv"

func forecastTable() Table {
	return Table{
		Source: testForecastSource,
		Header: []string{"year", "region", "type", "arrests", "arrests_lower", "arrests_upper"},
		Rows: [][]string{
			{"2023-01-01", "R1", "Actual", "10", "", ""},
			{"2025-01-01", "R1", "Prediction", "15", "12", "18"},
			{"2023-01-01", "R2", "Actual", "20", "", ""},
			{"2025-01-01", "R2", "Prediction", "18", "15", "21"},
			{"2025-01-01", "R3", "Prediction", "5", "4", "6"},
			{"2024-01-01", "R3", "Fitted", "4", "", ""},
		},
	}
}

func TestParseForecast(t *testing.T) {
	s, err := ParseForecast(forecastTable(), "arrests")
	require.NoError(t, err)

	assert.Equal(t, "arrests", s.Metric)
	require.Len(t, s.Points, 5, "Fitted rows are skipped")

	p := s.Points[1]
	assert.Equal(t, "R1", p.Region)
	assert.Equal(t, Year(2025), p.Period)
	assert.Equal(t, Prediction, p.Kind)
	assert.Equal(t, 15.0, p.Value)
	require.NotNil(t, p.Lower)
	require.NotNil(t, p.Upper)
	assert.Equal(t, 12.0, *p.Lower)
	assert.Equal(t, 18.0, *p.Upper)

	assert.Nil(t, s.Points[0].Lower)
	assert.Nil(t, s.Points[0].Upper)
}

func TestParseForecast_WithoutBoundColumns(t *testing.T) {
	tbl := Table{
		Header: []string{"year", "region", "type", "offences"},
		Rows:   [][]string{{"2023", "Uusimaa", "Actual", "100"}},
	}
	s, err := ParseForecast(tbl, "offences")
	require.NoError(t, err)
	require.Len(t, s.Points, 1)
	assert.Nil(t, s.Points[0].Lower)
}

func TestParseForecast_DataQuality(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Table)
		column string
		line   int
	}{
		{
			name:   "non-numeric value",
			mutate: func(tb *Table) { tb.Rows[2][3] = "twenty" },
			column: "arrests",
			line:   4,
		},
		{
			name:   "lower above value",
			mutate: func(tb *Table) { tb.Rows[1][4] = "16" },
			column: "arrests_lower",
			line:   3,
		},
		{
			name:   "upper below value",
			mutate: func(tb *Table) { tb.Rows[1][5] = "14" },
			column: "arrests_upper",
			line:   3,
		},
		{
			name:   "duplicate actual",
			mutate: func(tb *Table) { tb.Rows = append(tb.Rows, []string{"2023-01-01", "R1", "Actual", "11", "", ""}) },
			column: "type",
			line:   8,
		},
		{
			name:   "bad period",
			mutate: func(tb *Table) { tb.Rows[0][0] = "yesterday" },
			column: "year",
			line:   2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl := forecastTable()
			tt.mutate(&tbl)

			_, err := ParseForecast(tbl, "arrests")
			var dq *DataQualityError
			require.ErrorAs(t, err, &dq)
			assert.Equal(t, tt.column, dq.Column)
			assert.Equal(t, tt.line, dq.Line)
			assert.Equal(t, testForecastSource, dq.Source)
		})
	}
}

func TestParseForecast_ActualAndPredictionMayCoexist(t *testing.T) {
	tbl := forecastTable()
	tbl.Rows = append(tbl.Rows, []string{"2023-01-01", "R1", "Prediction", "9", "8", "10"})

	s, err := ParseForecast(tbl, "arrests")
	require.NoError(t, err)
	assert.Len(t, s.Points, 6)
}

func TestParseForecast_MissingMetricColumn(t *testing.T) {
	_, err := ParseForecast(forecastTable(), "offences")
	require.ErrorIs(t, err, ErrMissingColumn)
}

func TestRankIncreases_Filtering(t *testing.T) {
	s, err := ParseForecast(forecastTable(), "arrests")
	require.NoError(t, err)

	got := RankIncreases(s, Year(2023), Year(2025))
	assert.Equal(t, []RegionDelta{{Region: "R1", Delta: 5}}, got)
}

func TestParseForecast_MonthlyDates(t *testing.T) {
	tbl := Table{
		Source: testForecastSource,
		Header: []string{"year", "region", "type", "arrests"},
		Rows: [][]string{
			{"2025-01-01", "Uusimaa", "Actual", "10"},
			{"2025-02-01", "Uusimaa", "Actual", "12"},
			{"2025-03-01", "Uusimaa", "Prediction", "20"},
			{"2025-02-01", "Lappi", "Actual", "3"},
			{"2025-03-01", "Lappi", "Prediction", "2"},
		},
	}
	s, err := ParseForecast(tbl, "arrests")
	require.NoError(t, err)
	require.Len(t, s.Points, 5)
	assert.Equal(t, Period{Year: 2025, Month: time.January}, s.Points[0].Period)

	feb := Period{Year: 2025, Month: time.February}
	mar := Period{Year: 2025, Month: time.March}
	assert.Equal(t, []RegionDelta{{Region: "Uusimaa", Delta: 8}}, RankIncreases(s, feb, mar))
}

func TestRankIncreases_OrderAndTies(t *testing.T) {
	s := ForecastSeries{Metric: "offences", Points: []ForecastPoint{
		{Region: "B", Period: Year(2024), Kind: Actual, Value: 1},
		{Region: "B", Period: Year(2025), Kind: Prediction, Value: 4},
		{Region: "A", Period: Year(2024), Kind: Actual, Value: 2},
		{Region: "A", Period: Year(2025), Kind: Prediction, Value: 5},
		{Region: "C", Period: Year(2024), Kind: Actual, Value: 0},
		{Region: "C", Period: Year(2025), Kind: Prediction, Value: 10},
		{Region: "D", Period: Year(2024), Kind: Actual, Value: 7},
		{Region: "D", Period: Year(2025), Kind: Prediction, Value: 7},
		// predictions at baseline and actuals at target are ignored
		{Region: "E", Period: Year(2024), Kind: Prediction, Value: 1},
		{Region: "E", Period: Year(2025), Kind: Actual, Value: 50},
	}}

	want := []RegionDelta{
		{Region: "C", Delta: 10},
		{Region: "A", Delta: 3},
		{Region: "B", Delta: 3},
	}
	if diff := cmp.Diff(want, RankIncreases(s, Year(2024), Year(2025))); diff != "" {
		t.Errorf("ranking mismatch (-want +got):\n%s", diff)
	}
}

func TestRankIncreases_DeterministicUnderShuffle(t *testing.T) {
	s := ForecastSeries{Metric: "arrests"}
	for i, region := range FinnishRegionNames() {
		s.Points = append(s.Points,
			ForecastPoint{Region: region, Period: Year(2024), Kind: Actual, Value: float64(100 + i%4)},
			ForecastPoint{Region: region, Period: Year(2025), Kind: Prediction, Value: float64(100 + i%7)},
		)
	}
	want := RankIncreases(s, Year(2024), Year(2025))
	require.NotEmpty(t, want)

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 20; i++ {
		shuffled := ForecastSeries{Metric: s.Metric, Points: append([]ForecastPoint(nil), s.Points...)}
		rng.Shuffle(len(shuffled.Points), func(a, b int) {
			shuffled.Points[a], shuffled.Points[b] = shuffled.Points[b], shuffled.Points[a]
		})
		assert.Equal(t, want, RankIncreases(shuffled, Year(2024), Year(2025)))
	}
}

func TestRankIncreases_MissingPeriodsIsEmpty(t *testing.T) {
	s, err := ParseForecast(forecastTable(), "arrests")
	require.NoError(t, err)

	got := RankIncreases(s, Year(1999), Year(2025))
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.Empty(t, RankIncreases(ForecastSeries{}, Year(2023), Year(2025)))
}

func TestIncreaseSeries(t *testing.T) {
	got := IncreaseSeries("arrests", []RegionDelta{{Region: "Lappi", Delta: 4}}, Year(2025))
	assert.Equal(t, MetricSeries{Metric: "arrests", Rows: []Observation{{Region: "Lappi", Period: Year(2025), Value: 4}}}, got)
}

func TestForecastView(t *testing.T) {
	s := ForecastSeries{Metric: "arrests", Points: []ForecastPoint{
		{Region: "Lappi", Period: Year(2025), Kind: Prediction, Value: 3},
		{Region: "Uusimaa", Period: Year(2023), Kind: Actual, Value: 9},
		{Region: "Lappi", Period: Year(2024), Kind: Prediction, Value: 2},
		{Region: "Lappi", Period: Year(2024), Kind: Actual, Value: 1},
		{Region: "Lappi", Period: Year(2023), Kind: Actual, Value: 1},
	}}

	got := ForecastView(s, "Lappi")
	require.Len(t, got, 4)
	assert.Equal(t, Year(2023), got[0].Period)
	assert.Equal(t, Actual, got[1].Kind)
	assert.Equal(t, Prediction, got[2].Kind)
	assert.Equal(t, Year(2025), got[3].Period)

	assert.Equal(t, []string{"Uusimaa", "Lappi"}, ForecastRegions(s))
}
