package domain

import "time"

// IncreaseAlert notifies downstream consumers that a region is predicted to
// grow on a metric. Rank is 1-based within its ranking.
type IncreaseAlert struct {
	Metric      string    `json:"metric"`
	Region      string    `json:"region"`
	RegionEN    string    `json:"region_en,omitempty"`
	Baseline    Period    `json:"baseline"`
	Target      Period    `json:"target"`
	Delta       float64   `json:"delta"`
	Rank        int       `json:"rank"`
	GeneratedAt time.Time `json:"generated_at"`
}

// IncreaseAlerts builds one alert per ranked region, preserving rank order.
func IncreaseAlerts(metric string, ranked []RegionDelta, baseline, target Period) []IncreaseAlert {
	now := clock.Now().UTC()
	out := make([]IncreaseAlert, len(ranked))
	for i, r := range ranked {
		en, _ := Translate(r.Region, FinnishToEnglish)
		out[i] = IncreaseAlert{
			Metric:      metric,
			Region:      r.Region,
			RegionEN:    en,
			Baseline:    baseline,
			Target:      target,
			Delta:       r.Delta,
			Rank:        i + 1,
			GeneratedAt: now,
		}
	}
	return out
}
