package domain

import (
	"sort"

	"github.com/samber/lo"
)

// Column names of the deaths tables.
const (
	AgeGroupColumn      = "age_group"
	DeathsColumn        = "deaths"
	DeathForecastColumn = "forecast"
	DeathLowerColumn    = "lower"
	DeathUpperColumn    = "upper"
)

// DeathRecord is one observed count of drug-related deaths.
type DeathRecord struct {
	Period   Period  `json:"period"`
	AgeGroup string  `json:"age_group"`
	Deaths   float64 `json:"deaths"`
}

// DeathForecast is one predicted count with optional bounds.
type DeathForecast struct {
	Period   Period   `json:"period"`
	AgeGroup string   `json:"age_group"`
	Forecast float64  `json:"forecast"`
	Lower    *float64 `json:"lower,omitempty"`
	Upper    *float64 `json:"upper,omitempty"`
}

// DeathsView is the history and forecast of a single age group.
type DeathsView struct {
	AgeGroup string          `json:"age_group"`
	History  []DeathRecord   `json:"history"`
	Forecast []DeathForecast `json:"forecast"`
}

// AgeShare is one slice of the age-group distribution of a forecast period.
type AgeShare struct {
	AgeGroup string  `json:"age_group"`
	Forecast float64 `json:"forecast"`
	Share    float64 `json:"share"`
}

// ParseDeaths reads the observed deaths table (year, age_group, deaths).
func ParseDeaths(t Table) ([]DeathRecord, error) {
	periodIdx, ageIdx, err := deathKeys(t)
	if err != nil {
		return nil, err
	}
	valueIdx, err := t.requireColumn(DeathsColumn)
	if err != nil {
		return nil, err
	}
	periods, err := t.periods(periodIdx)
	if err != nil {
		return nil, err
	}

	out := make([]DeathRecord, 0, len(t.Rows))
	for r, period := range periods {
		v, err := t.number(r, valueIdx, DeathsColumn)
		if err != nil {
			return nil, err
		}
		out = append(out, DeathRecord{Period: period, AgeGroup: t.cell(r, ageIdx), Deaths: v})
	}
	return out, nil
}

// ParseDeathForecast reads the deaths forecast table
// (year, age_group, forecast, optional lower and upper).
func ParseDeathForecast(t Table) ([]DeathForecast, error) {
	periodIdx, ageIdx, err := deathKeys(t)
	if err != nil {
		return nil, err
	}
	valueIdx, err := t.requireColumn(DeathForecastColumn)
	if err != nil {
		return nil, err
	}
	lowerIdx, _ := t.Column(DeathLowerColumn)
	upperIdx, _ := t.Column(DeathUpperColumn)
	periods, err := t.periods(periodIdx)
	if err != nil {
		return nil, err
	}

	out := make([]DeathForecast, 0, len(t.Rows))
	for r, period := range periods {
		v, err := t.number(r, valueIdx, DeathForecastColumn)
		if err != nil {
			return nil, err
		}
		lower, err := t.optionalNumber(r, lowerIdx, DeathLowerColumn)
		if err != nil {
			return nil, err
		}
		upper, err := t.optionalNumber(r, upperIdx, DeathUpperColumn)
		if err != nil {
			return nil, err
		}
		out = append(out, DeathForecast{
			Period:   period,
			AgeGroup: t.cell(r, ageIdx),
			Forecast: v,
			Lower:    lower,
			Upper:    upper,
		})
	}
	return out, nil
}

func deathKeys(t Table) (periodIdx, ageIdx int, err error) {
	if periodIdx, err = t.requireColumn(PeriodColumn); err != nil {
		return
	}
	ageIdx, err = t.requireColumn(AgeGroupColumn)
	return
}

// AgeGroups lists the forecast age groups in order of first appearance.
func AgeGroups(forecast []DeathForecast) []string {
	return lo.Uniq(lo.Map(forecast, func(f DeathForecast, _ int) string { return f.AgeGroup }))
}

// Deaths selects one age group's history and forecast, each sorted by period.
func Deaths(history []DeathRecord, forecast []DeathForecast, ageGroup string) DeathsView {
	v := DeathsView{
		AgeGroup: ageGroup,
		History:  lo.Filter(history, func(d DeathRecord, _ int) bool { return d.AgeGroup == ageGroup }),
		Forecast: lo.Filter(forecast, func(d DeathForecast, _ int) bool { return d.AgeGroup == ageGroup }),
	}
	sort.SliceStable(v.History, func(i, j int) bool { return v.History[i].Period.Before(v.History[j].Period) })
	sort.SliceStable(v.Forecast, func(i, j int) bool { return v.Forecast[i].Period.Before(v.Forecast[j].Period) })
	return v
}

// AgeDistribution returns each age group's share of the forecast total for
// period, in order of first appearance. Shares are zero when the total is zero.
func AgeDistribution(forecast []DeathForecast, period Period) []AgeShare {
	var out []AgeShare
	var sum float64
	for _, f := range forecast {
		if f.Period != period {
			continue
		}
		out = append(out, AgeShare{AgeGroup: f.AgeGroup, Forecast: f.Forecast})
		sum += f.Forecast
	}
	if sum == 0 {
		return out
	}
	for i := range out {
		out[i].Share = out[i].Forecast / sum
	}
	return out
}
