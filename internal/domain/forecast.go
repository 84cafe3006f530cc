package domain

import (
	"fmt"
	"sort"
)

// ForecastKind tags a forecast row as observed history or model output.
type ForecastKind string

const (
	Actual     ForecastKind = "Actual"
	Prediction ForecastKind = "Prediction"
)

// ForecastMetrics are the KPIs with a forecast table.
var ForecastMetrics = []string{"arrests", "offences"}

// Column names of the long forecast tables.
const (
	PeriodColumn = "year"
	RegionColumn = "region"
	KindColumn   = "type"
)

// ForecastPoint is one row of a forecast table. Lower and Upper are the
// optional confidence bounds; when both are set Lower <= Value <= Upper.
type ForecastPoint struct {
	Region string       `json:"region"`
	Period Period       `json:"period"`
	Kind   ForecastKind `json:"kind"`
	Value  float64      `json:"value"`
	Lower  *float64     `json:"lower,omitempty"`
	Upper  *float64     `json:"upper,omitempty"`
}

// ForecastSeries holds the actual and predicted values of one metric.
// For a given (region, period) there is at most one Actual and at most one
// Prediction point.
type ForecastSeries struct {
	Metric string          `json:"metric"`
	Points []ForecastPoint `json:"points"`
}

// RegionDelta is one entry of an increase ranking.
type RegionDelta struct {
	Region string  `json:"region"`
	Delta  float64 `json:"delta"`
}

type forecastKey struct {
	region string
	period Period
	kind   ForecastKind
}

// ParseForecast reads a long forecast table whose value column is named after
// the metric, with optional "<metric>_lower" and "<metric>_upper" bound
// columns. Rows of other kinds are skipped.
func ParseForecast(t Table, metric string) (ForecastSeries, error) {
	periodIdx, err := t.requireColumn(PeriodColumn)
	if err != nil {
		return ForecastSeries{}, err
	}
	regionIdx, err := t.requireColumn(RegionColumn)
	if err != nil {
		return ForecastSeries{}, err
	}
	kindIdx, err := t.requireColumn(KindColumn)
	if err != nil {
		return ForecastSeries{}, err
	}
	valueIdx, err := t.requireColumn(metric)
	if err != nil {
		return ForecastSeries{}, err
	}
	lowerCol, upperCol := metric+"_lower", metric+"_upper"
	lowerIdx, _ := t.Column(lowerCol)
	upperIdx, _ := t.Column(upperCol)

	periods, err := t.periods(periodIdx)
	if err != nil {
		return ForecastSeries{}, err
	}

	out := ForecastSeries{Metric: metric}
	seen := make(map[forecastKey]int)
	for r := range t.Rows {
		kind := ForecastKind(t.cell(r, kindIdx))
		if kind != Actual && kind != Prediction {
			continue
		}

		period := periods[r]
		region := t.cell(r, regionIdx)

		key := forecastKey{region: region, period: period, kind: kind}
		if first, dup := seen[key]; dup {
			return ForecastSeries{}, &DataQualityError{
				Source: t.Source, Line: line(r), Column: KindColumn, Value: string(kind),
				Err: fmt.Errorf("duplicate %s row for %s %s (first on line %d)", kind, region, period, first),
			}
		}
		seen[key] = line(r)

		value, err := t.number(r, valueIdx, metric)
		if err != nil {
			return ForecastSeries{}, err
		}
		lower, err := t.optionalNumber(r, lowerIdx, lowerCol)
		if err != nil {
			return ForecastSeries{}, err
		}
		upper, err := t.optionalNumber(r, upperIdx, upperCol)
		if err != nil {
			return ForecastSeries{}, err
		}
		if lower != nil && *lower > value {
			return ForecastSeries{}, &DataQualityError{
				Source: t.Source, Line: line(r), Column: lowerCol, Value: t.cell(r, lowerIdx),
				Err: fmt.Errorf("lower bound exceeds %s value %g", metric, value),
			}
		}
		if upper != nil && *upper < value {
			return ForecastSeries{}, &DataQualityError{
				Source: t.Source, Line: line(r), Column: upperCol, Value: t.cell(r, upperIdx),
				Err: fmt.Errorf("upper bound below %s value %g", metric, value),
			}
		}

		out.Points = append(out.Points, ForecastPoint{
			Region: region,
			Period: period,
			Kind:   kind,
			Value:  value,
			Lower:  lower,
			Upper:  upper,
		})
	}
	return out, nil
}

// RankIncreases compares each region's Actual value at baseline with its
// Prediction at target and returns the regions whose value is predicted to
// grow, largest increase first. Regions missing on either side and
// non-positive deltas are dropped; ties are ordered by region name. The
// result does not depend on the order of the input points.
func RankIncreases(s ForecastSeries, baseline, target Period) []RegionDelta {
	actual := make(map[string]float64)
	predicted := make(map[string]float64)
	for _, p := range s.Points {
		switch {
		case p.Kind == Actual && p.Period == baseline:
			actual[p.Region] = p.Value
		case p.Kind == Prediction && p.Period == target:
			predicted[p.Region] = p.Value
		}
	}

	out := make([]RegionDelta, 0, len(predicted))
	for region, pv := range predicted {
		av, ok := actual[region]
		if !ok {
			continue
		}
		if d := pv - av; d > 0 {
			out = append(out, RegionDelta{Region: region, Delta: d})
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Delta != out[j].Delta {
			return out[i].Delta > out[j].Delta
		}
		return out[i].Region < out[j].Region
	})
	return out
}

// IncreaseSeries turns a ranking into a MetricSeries stamped at the target
// period so it can be drawn with BuildChoropleth.
func IncreaseSeries(metric string, ranked []RegionDelta, target Period) MetricSeries {
	out := MetricSeries{Metric: metric, Rows: make([]Observation, len(ranked))}
	for i, r := range ranked {
		out.Rows[i] = Observation{Region: r.Region, Period: target, Value: r.Delta}
	}
	return out
}

// ForecastView returns the Actual and Prediction points of one region in
// chronological order, actuals before predictions within a period.
func ForecastView(s ForecastSeries, region string) []ForecastPoint {
	var out []ForecastPoint
	for _, p := range s.Points {
		if p.Region == region {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Period != out[j].Period {
			return out[i].Period.Before(out[j].Period)
		}
		return out[i].Kind == Actual && out[j].Kind == Prediction
	})
	return out
}

// ForecastRegions lists the regions present in a forecast, Uusimaa first.
func ForecastRegions(s ForecastSeries) []string {
	names := make([]string, len(s.Points))
	for i, p := range s.Points {
		names[i] = p.Region
	}
	return RegionChoices(names)
}
