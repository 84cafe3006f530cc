// Command render draws dashboard views offline from a data directory:
// choropleth GeoJSON, increase rankings and PNG charts.
//
// Usage:
//
//	render map usage --year 2022 -o usage.geojson
//	render map risk --metric arrests
//	render increases arrests --baseline 2024 --target 2025
//	render chart forecast arrests --region Lapland -o arrests.png
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/couchcryptid/drug-kpi-dashboard/internal/adapter/boundary"
	"github.com/couchcryptid/drug-kpi-dashboard/internal/adapter/chart"
	"github.com/couchcryptid/drug-kpi-dashboard/internal/dashboard"
	"github.com/couchcryptid/drug-kpi-dashboard/internal/domain"
	"github.com/couchcryptid/drug-kpi-dashboard/internal/observability"
	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/spf13/cobra"
)

type options struct {
	dataDir  string
	output   string
	logLevel string
	baseline string
	target   string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:          "render",
		Short:        "Render drug KPI dashboard views offline",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.dataDir, "data-dir", sharedcfg.EnvOrDefault("DATA_DIR", "data"), "dashboard data directory")
	root.PersistentFlags().StringVarP(&opts.output, "output", "o", "", "output file path (default: stdout)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level: debug, info, warn, error")
	root.PersistentFlags().StringVar(&opts.baseline, "baseline", "2024", "baseline period of increase rankings")
	root.PersistentFlags().StringVar(&opts.target, "target", "2025", "target period of increase rankings")

	root.AddCommand(newMapCmd(opts), newIncreasesCmd(opts), newChartCmd(opts))
	return root
}

func newMapCmd(opts *options) *cobra.Command {
	var year, metric string
	cmd := &cobra.Command{
		Use:       "map usage|risk",
		Short:     "Write a choropleth as a GeoJSON FeatureCollection",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"usage", "risk"},
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := opts.service(cmd)
			if err != nil {
				return err
			}
			var m domain.ChoroplethMap
			switch args[0] {
			case "usage":
				period, err := optionalPeriod(year)
				if err != nil {
					return err
				}
				m, err = svc.UsageMap(cmd.Context(), period)
				if err != nil {
					return err
				}
			case "risk":
				m, err = svc.RiskMap(cmd.Context(), metric, domain.Period{}, domain.Period{})
				if err != nil {
					return err
				}
			}
			return opts.write(cmd, func(w io.Writer) error { return boundary.Encode(w, m) })
		},
	}
	cmd.Flags().StringVar(&year, "year", "", "usage period (default: latest)")
	cmd.Flags().StringVar(&metric, "metric", "arrests", "forecast metric of the risk map")
	return cmd
}

func newIncreasesCmd(opts *options) *cobra.Command {
	var pretty bool
	cmd := &cobra.Command{
		Use:   "increases <metric>",
		Short: "Write the regions predicted to increase as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := opts.service(cmd)
			if err != nil {
				return err
			}
			res, err := svc.Increases(cmd.Context(), args[0], domain.Period{}, domain.Period{})
			if err != nil {
				return err
			}
			return opts.write(cmd, func(w io.Writer) error {
				enc := json.NewEncoder(w)
				if pretty {
					enc.SetIndent("", "  ")
				}
				return enc.Encode(res)
			})
		},
	}
	cmd.Flags().BoolVar(&pretty, "pretty", false, "pretty-print JSON output")
	return cmd
}

func newChartCmd(opts *options) *cobra.Command {
	var region, ageGroup, year string
	var kpis []string
	cmd := &cobra.Command{
		Use:       "chart forecast <metric>|deaths|distribution|trends",
		Short:     "Write a PNG chart",
		Args:      cobra.RangeArgs(1, 2),
		ValidArgs: []string{"forecast", "deaths", "distribution", "trends"},
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := opts.service(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			var draw func(io.Writer) error

			switch args[0] {
			case "forecast":
				if len(args) != 2 {
					return fmt.Errorf("chart forecast needs a metric (one of %s)", strings.Join(domain.ForecastMetrics, ", "))
				}
				res, err := svc.Forecast(ctx, args[1], region)
				if err != nil {
					return err
				}
				draw = func(w io.Writer) error { return chart.Forecast(w, res.Metric, res.Region, res.Points) }
			case "deaths":
				res, err := svc.Deaths(ctx, ageGroup)
				if err != nil {
					return err
				}
				draw = func(w io.Writer) error { return chart.Deaths(w, res.DeathsView) }
			case "distribution":
				period, err := optionalPeriod(year)
				if err != nil {
					return err
				}
				res, err := svc.DeathDistribution(ctx, period)
				if err != nil {
					return err
				}
				draw = func(w io.Writer) error { return chart.Distribution(w, res.Period, res.Shares) }
			case "trends":
				res, err := svc.Trends(ctx, region, kpis)
				if err != nil {
					return err
				}
				draw = func(w io.Writer) error { return chart.Trends(w, res.Region, res.Lines) }
			default:
				return fmt.Errorf("unknown chart %q", args[0])
			}
			return opts.write(cmd, draw)
		},
	}
	cmd.Flags().StringVar(&region, "region", "", "region in either naming convention (default: Uusimaa)")
	cmd.Flags().StringVar(&ageGroup, "age-group", "", "age group of the deaths chart (default: first)")
	cmd.Flags().StringVar(&year, "year", "", "forecast period of the distribution chart (default: latest)")
	cmd.Flags().StringSliceVar(&kpis, "kpi", nil, "KPIs of the trends chart (default: arrests)")
	return cmd
}

// service builds a dashboard over the data directory. Alerts are never
// published from the CLI.
func (o *options) service(cmd *cobra.Command) (*dashboard.Service, error) {
	baseline, err := domain.ParsePeriod(o.baseline)
	if err != nil {
		return nil, fmt.Errorf("--baseline: %w", err)
	}
	target, err := domain.ParsePeriod(o.target)
	if err != nil {
		return nil, fmt.Errorf("--target: %w", err)
	}
	// stdout may carry the rendered image
	logger := observability.NewLoggerTo(cmd.ErrOrStderr(), o.logLevel, "text")
	return dashboard.New(dashboard.NewFileSource(o.dataDir), nil, logger, observability.NewUnregisteredMetrics(), baseline, target), nil
}

// write renders into memory first so a failed render leaves no partial file.
func (o *options) write(cmd *cobra.Command, render func(io.Writer) error) error {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		return err
	}
	if o.output == "" {
		_, err := cmd.OutOrStdout().Write(buf.Bytes())
		return err
	}
	if err := os.WriteFile(o.output, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

func optionalPeriod(s string) (domain.Period, error) {
	if s == "" {
		return domain.Period{}, nil
	}
	return domain.ParsePeriod(s)
}
