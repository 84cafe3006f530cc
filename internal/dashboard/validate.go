package dashboard

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/couchcryptid/drug-kpi-dashboard/internal/domain"
)

// Check is the outcome of validating one data file.
type Check struct {
	File string
	Err  error
}

// Validate reads and parses every data file the dashboard serves from.
// It returns one Check per file in a fixed order.
func Validate(ctx context.Context, src Source) []Check {
	checks := []Check{
		{File: UsageFile, Err: validateUsage(ctx, src)},
	}
	for _, metric := range domain.ForecastMetrics {
		checks = append(checks, Check{File: ForecastFile(metric), Err: validateForecast(ctx, src, metric)})
	}
	checks = append(checks,
		Check{File: DeathHistoryFile, Err: validateTable(ctx, src.DeathHistory, func(t domain.Table) error {
			_, err := domain.ParseDeaths(t)
			return err
		})},
		Check{File: DeathForecastFile, Err: validateTable(ctx, src.DeathForecast, func(t domain.Table) error {
			_, err := domain.ParseDeathForecast(t)
			return err
		})},
		Check{File: TrendsFile, Err: validateTable(ctx, src.Trends, func(t domain.Table) error {
			_, err := domain.ParseTrends(t, domain.TrendKPIs)
			return err
		})},
		Check{File: BoundaryFile, Err: validateBoundaries(ctx, src)},
	)
	return checks
}

// Failed returns the failed checks joined into a single error, or nil.
func Failed(checks []Check) error {
	var errs []error
	for _, c := range checks {
		if c.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", c.File, c.Err))
		}
	}
	return errors.Join(errs...)
}

func validateUsage(ctx context.Context, src Source) error {
	series, err := readUsage(ctx, src)
	if err != nil {
		return err
	}
	if len(series.Rows) == 0 {
		return errors.New("no usage rows")
	}
	return nil
}

func validateForecast(ctx context.Context, src Source, metric string) error {
	t, err := src.Forecast(ctx, metric)
	if err != nil {
		return err
	}
	_, err = domain.ParseForecast(t, metric)
	return err
}

func validateTable(ctx context.Context, read func(context.Context) (domain.Table, error), parse func(domain.Table) error) error {
	t, err := read(ctx)
	if err != nil {
		return err
	}
	return parse(t)
}

// validateBoundaries also reports boundary names that do not translate to
// a known region, since those regions would never receive a value.
func validateBoundaries(ctx context.Context, src Source) error {
	geoms, err := src.Boundaries(ctx)
	if err != nil {
		return err
	}
	if len(geoms) == 0 {
		return errors.New("no boundary features")
	}
	var unknown []string
	for _, g := range geoms {
		if _, ok := domain.Translate(g.Name, domain.EnglishToFinnish); !ok {
			unknown = append(unknown, g.Name)
		}
	}
	if len(unknown) > 0 {
		return fmt.Errorf("%w: %s", domain.ErrUnknownRegion, strings.Join(unknown, ", "))
	}
	return nil
}
