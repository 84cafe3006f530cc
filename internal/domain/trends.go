package domain

import (
	"fmt"
	"sort"

	"github.com/samber/lo"
)

// TrendKPIs are the columns of the merged time-series table.
var TrendKPIs = []string{"arrests", "offences", "rehab", "clinic"}

// TrendPoint is one value of a KPI line.
type TrendPoint struct {
	Period Period  `json:"period"`
	Value  float64 `json:"value"`
}

// TrendLine is the history of one KPI in one region.
type TrendLine struct {
	KPI    string       `json:"kpi"`
	Region string       `json:"region"`
	Points []TrendPoint `json:"points"`
}

// ParseTrends reads the merged long table (region, year and one column per
// KPI) into one MetricSeries per requested KPI, in the order given.
func ParseTrends(t Table, kpis []string) ([]MetricSeries, error) {
	regionIdx, err := t.requireColumn(RegionColumn)
	if err != nil {
		return nil, err
	}
	periodIdx, err := t.requireColumn(PeriodColumn)
	if err != nil {
		return nil, err
	}
	kpiIdx := make([]int, len(kpis))
	for i, k := range kpis {
		if kpiIdx[i], err = t.requireColumn(k); err != nil {
			return nil, err
		}
	}

	periods, err := t.periods(periodIdx)
	if err != nil {
		return nil, err
	}

	out := make([]MetricSeries, len(kpis))
	for i, k := range kpis {
		out[i] = MetricSeries{Metric: k, Rows: make([]Observation, 0, len(t.Rows))}
	}
	for r, period := range periods {
		region := t.cell(r, regionIdx)
		for i, k := range kpis {
			v, err := t.number(r, kpiIdx[i], k)
			if err != nil {
				return nil, err
			}
			out[i].Rows = append(out[i].Rows, Observation{Region: region, Period: period, Value: v})
		}
	}
	return out, nil
}

// ValidateKPIs rejects names outside TrendKPIs and removes duplicates.
func ValidateKPIs(kpis []string) ([]string, error) {
	for _, k := range kpis {
		if !lo.Contains(TrendKPIs, k) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownMetric, k)
		}
	}
	return lo.Uniq(kpis), nil
}

// TrendLines extracts one line per series for region, sorted by period.
func TrendLines(series []MetricSeries, region string) []TrendLine {
	out := make([]TrendLine, 0, len(series))
	for _, s := range series {
		tl := TrendLine{KPI: s.Metric, Region: region}
		for _, o := range s.Rows {
			if o.Region == region {
				tl.Points = append(tl.Points, TrendPoint{Period: o.Period, Value: o.Value})
			}
		}
		sort.SliceStable(tl.Points, func(i, j int) bool { return tl.Points[i].Period.Before(tl.Points[j].Period) })
		out = append(out, tl)
	}
	return out
}

// SeriesRegions lists the regions present in any of the series, Uusimaa first.
func SeriesRegions(series ...MetricSeries) []string {
	var names []string
	for _, s := range series {
		for _, o := range s.Rows {
			names = append(names, o.Region)
		}
	}
	return RegionChoices(names)
}
