package domain

// UsageSummary is the headline metric of the monitoring view: the national
// total for a period and its change against the previous period.
type UsageSummary struct {
	Metric    string   `json:"metric"`
	Period    Period   `json:"period"`
	Total     float64  `json:"total"`
	Regions   int      `json:"regions"`
	Previous  *float64 `json:"previous,omitempty"`
	ChangePct *float64 `json:"change_pct,omitempty"`
}

// Summarize totals the series at period. Previous and ChangePct are nil when
// the preceding period has no rows; ChangePct is also nil when the previous
// total is zero.
func Summarize(s MetricSeries, period Period) UsageSummary {
	cur := s.AtPeriod(period)
	out := UsageSummary{
		Metric:  s.Metric,
		Period:  period,
		Total:   total(cur),
		Regions: len(cur.Rows),
	}

	prev := s.AtPeriod(period.Previous())
	if len(prev.Rows) == 0 {
		return out
	}
	pt := total(prev)
	out.Previous = &pt
	if pt != 0 {
		pct := (out.Total - pt) / pt * 100
		out.ChangePct = &pct
	}
	return out
}

func total(s MetricSeries) float64 {
	var sum float64
	for _, o := range s.Rows {
		sum += o.Value
	}
	return sum
}
