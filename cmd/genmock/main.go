// Command genmock writes a synthetic dashboard data directory covering all 19
// regions: the wide usage table, forecast tables, deaths tables, the merged
// KPI time series and a boundary file with one rectangle per region. Output
// is deterministic for a given seed, so it can back demos and smoke tests.
//
// Usage:
//
//	go run ./cmd/genmock -out data/mock -from 2015 -to 2024
package main

import (
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"

	"github.com/couchcryptid/drug-kpi-dashboard/internal/dashboard"
	"github.com/couchcryptid/drug-kpi-dashboard/internal/domain"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"github.com/xuri/excelize/v2"
)

var ageGroups = []string{"15-24", "25-34", "35-44", "45-54", "55+"}

type options struct {
	out  string
	seed uint64
	from int
	to   int
	xlsx bool
}

func main() {
	var opts options
	flag.StringVar(&opts.out, "out", "", "output data directory")
	flag.Uint64Var(&opts.seed, "seed", 1, "random seed")
	flag.IntVar(&opts.from, "from", 2015, "first observed year")
	flag.IntVar(&opts.to, "to", 2024, "last observed year; forecasts cover the two years after")
	flag.BoolVar(&opts.xlsx, "xlsx", false, "write the usage table as a workbook instead of CSV")
	flag.Parse()

	if opts.out == "" {
		flag.Usage()
		os.Exit(1)
	}
	if err := run(opts); err != nil {
		log.Fatal(err)
	}
}

func run(opts options) error {
	if opts.from > opts.to {
		return fmt.Errorf("-from %d is after -to %d", opts.from, opts.to)
	}
	for _, dir := range []string{"clean", "map"} {
		if err := os.MkdirAll(filepath.Join(opts.out, dir), 0o755); err != nil {
			return err
		}
	}

	g := &generator{
		rng:     rand.New(rand.NewPCG(opts.seed, opts.seed^0x9e3779b97f4a7c15)),
		regions: domain.Regions(),
		years:   years(opts.from, opts.to),
	}
	g.scales = make([]float64, len(g.regions))
	for i, r := range g.regions {
		g.scales[i] = 0.5 + g.rng.Float64()
		if r.Finnish == "Uusimaa" {
			g.scales[i] *= 4
		}
	}

	usage := g.usage()
	if opts.xlsx {
		path := filepath.Join(opts.out, "clean", "Reported_drug_usage_by_regions.xlsx")
		if err := writeXLSX(path, usage); err != nil {
			return fmt.Errorf("writing usage workbook: %w", err)
		}
	} else if err := writeCSV(filepath.Join(opts.out, dashboard.UsageFile), usage); err != nil {
		return fmt.Errorf("writing usage table: %w", err)
	}

	for i, metric := range domain.ForecastMetrics {
		rows := g.forecast(metric, 100*float64(i+1))
		if err := writeCSV(filepath.Join(opts.out, dashboard.ForecastFile(metric)), rows); err != nil {
			return fmt.Errorf("writing %s forecast: %w", metric, err)
		}
	}
	if err := writeCSV(filepath.Join(opts.out, dashboard.DeathHistoryFile), g.deathHistory()); err != nil {
		return fmt.Errorf("writing death history: %w", err)
	}
	if err := writeCSV(filepath.Join(opts.out, dashboard.DeathForecastFile), g.deathForecast()); err != nil {
		return fmt.Errorf("writing death forecast: %w", err)
	}
	if err := writeCSV(filepath.Join(opts.out, dashboard.TrendsFile), g.trends()); err != nil {
		return fmt.Errorf("writing trends: %w", err)
	}
	if err := writeBoundaries(filepath.Join(opts.out, dashboard.BoundaryFile), g.regions); err != nil {
		return fmt.Errorf("writing boundaries: %w", err)
	}

	log.Printf("wrote %d regions, %d-%d, to %s", len(g.regions), opts.from, opts.to, opts.out)
	return nil
}

type generator struct {
	rng     *rand.Rand
	regions []domain.Region
	scales  []float64
	years   []int
}

// value draws a noisy, slowly growing count around base.
func (g *generator) value(base, scale float64, step int) float64 {
	trend := 1 + 0.04*float64(step)
	noise := 0.9 + 0.2*g.rng.Float64()
	return math.Round(base * scale * trend * noise)
}

func (g *generator) usage() [][]string {
	header := []string{"", domain.PeriodColumn}
	for _, r := range g.regions {
		header = append(header, r.Finnish)
	}
	header = append(header, "KOKO MAA")

	rows := [][]string{header}
	for i, y := range g.years {
		row := []string{strconv.Itoa(i), strconv.Itoa(y)}
		var total float64
		for j := range g.regions {
			v := g.value(250, g.scales[j], i)
			total += v
			row = append(row, format(v))
		}
		rows = append(rows, append(row, format(total)))
	}
	return rows
}

func (g *generator) forecast(metric string, base float64) [][]string {
	rows := [][]string{{domain.PeriodColumn, domain.RegionColumn, domain.KindColumn, metric, metric + "_lower", metric + "_upper"}}
	last := len(g.years) - 1
	for j, r := range g.regions {
		var v float64
		for i, y := range g.years {
			v = g.value(base, g.scales[j], i)
			rows = append(rows, []string{stamp(y), r.Finnish, string(domain.Actual), format(v), "", ""})
		}
		rows = append(rows, []string{stamp(g.years[last]), r.Finnish, "Fitted", format(v), "", ""})
		for k := 1; k <= 2; k++ {
			p := g.value(base, g.scales[j], last+k)
			rows = append(rows, []string{
				stamp(g.years[last] + k), r.Finnish, string(domain.Prediction),
				format(p), format(math.Floor(p * 0.85)), format(math.Ceil(p * 1.15)),
			})
		}
	}
	return rows
}

func (g *generator) deathHistory() [][]string {
	rows := [][]string{{domain.PeriodColumn, domain.AgeGroupColumn, domain.DeathsColumn}}
	for i, y := range g.years {
		for k, ag := range ageGroups {
			rows = append(rows, []string{stamp(y), ag, format(g.value(20, float64(5-k)/2, i))})
		}
	}
	return rows
}

func (g *generator) deathForecast() [][]string {
	rows := [][]string{{domain.PeriodColumn, domain.AgeGroupColumn, domain.DeathForecastColumn, domain.DeathLowerColumn, domain.DeathUpperColumn}}
	last := len(g.years) - 1
	for k := 1; k <= 2; k++ {
		for a, ag := range ageGroups {
			p := g.value(20, float64(5-a)/2, last+k)
			rows = append(rows, []string{
				stamp(g.years[last] + k), ag,
				format(p), format(math.Floor(p * 0.8)), format(math.Ceil(p * 1.2)),
			})
		}
	}
	return rows
}

func (g *generator) trends() [][]string {
	header := append([]string{domain.RegionColumn, domain.PeriodColumn}, domain.TrendKPIs...)
	bases := []float64{100, 600, 25, 12}
	rows := [][]string{header}
	for j, r := range g.regions {
		for i, y := range g.years {
			row := []string{r.Finnish, strconv.Itoa(y)}
			for k := range domain.TrendKPIs {
				row = append(row, format(g.value(bases[k%len(bases)], g.scales[j], i)))
			}
			rows = append(rows, row)
		}
	}
	return rows
}

type feature struct {
	Type       string            `json:"type"`
	Properties map[string]string `json:"properties"`
	Geometry   *geojson.Geometry `json:"geometry"`
}

// writeBoundaries lays the regions out as a grid of rectangles over
// Finland's extent. The shapes are placeholders; only the names matter for
// the join.
func writeBoundaries(path string, regions []domain.Region) error {
	const (
		cols                 = 4
		west, south          = 20.5, 59.8
		cellWidth, cellDepth = 2.6, 2.0
	)
	features := make([]feature, len(regions))
	for i, r := range regions {
		x0 := west + float64(i%cols)*cellWidth
		y0 := south + float64(i/cols)*cellDepth
		poly, err := geom.NewPolygon(geom.XY).SetCoords([][]geom.Coord{{
			{x0, y0}, {x0 + cellWidth, y0}, {x0 + cellWidth, y0 + cellDepth}, {x0, y0 + cellDepth}, {x0, y0},
		}})
		if err != nil {
			return err
		}
		g, err := geojson.Encode(poly)
		if err != nil {
			return err
		}
		features[i] = feature{Type: "Feature", Properties: map[string]string{"name": r.English}, Geometry: g}
	}

	b, err := json.MarshalIndent(map[string]any{"type": "FeatureCollection", "features": features}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

func writeCSV(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeXLSX(path string, rows [][]string) error {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for r, row := range rows {
		for c, v := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
	}
	return f.SaveAs(path)
}

func years(from, to int) []int {
	out := make([]int, 0, to-from+1)
	for y := from; y <= to; y++ {
		out = append(out, y)
	}
	return out
}

func stamp(year int) string { return fmt.Sprintf("%d-01-01", year) }

func format(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
