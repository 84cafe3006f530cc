// Command validate checks the integrity of a dashboard data directory: every
// table parses, forecast bounds hold, and boundary names join onto the
// statistics tables. It exits non-zero when any file is unusable.
//
// Usage:
//
//	go run ./cmd/validate -data-dir data
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/couchcryptid/drug-kpi-dashboard/internal/dashboard"
	"github.com/couchcryptid/drug-kpi-dashboard/internal/domain"
	"github.com/samber/lo"
)

// phase tracks pass/fail for a validation phase. Warnings are reported but
// do not fail the run.
type phase struct {
	name     string
	errors   []string
	warnings []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) warnf(format string, args ...any) {
	p.warnings = append(p.warnings, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	dataDir := flag.String("data-dir", os.Getenv("DATA_DIR"), "dashboard data directory (defaults to $DATA_DIR)")
	timeout := flag.Duration("timeout", 30*time.Second, "overall validation timeout")
	flag.Parse()

	if *dataDir == "" {
		flag.Usage()
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	code := run(ctx, *dataDir)
	cancel()
	if code != 0 {
		os.Exit(code)
	}
}

func run(ctx context.Context, dataDir string) int {
	fmt.Println("=== Drug KPI Data Validation ===")
	fmt.Printf("Data directory: %s\n\n", dataDir)

	src := dashboard.NewFileSource(dataDir)

	var phases []*phase
	for _, c := range dashboard.Validate(ctx, src) {
		p := &phase{name: c.File}
		if c.Err != nil {
			p.errorf("%v", c.Err)
		}
		phases = append(phases, p)
	}
	phases = append(phases, validateCoverage(ctx, src))

	// ── Report results ──
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		} else if len(p.warnings) > 0 {
			status = fmt.Sprintf("\033[33mPASS (%d warnings)\033[0m", len(p.warnings))
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	for _, p := range phases {
		if p.passed() && len(p.warnings) == 0 {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
		for _, w := range p.warnings {
			fmt.Printf("  warning: %s\n", w)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// validateCoverage compares the usage columns with the boundary features.
// A region present on only one side renders as "no data", which is allowed
// but usually a sign of a stale file.
func validateCoverage(ctx context.Context, src dashboard.Source) *phase {
	p := &phase{name: "Region coverage"}

	t, err := src.Usage(ctx)
	if err != nil {
		p.warnf("usage table unavailable: %v", err)
		return p
	}
	geoms, err := src.Boundaries(ctx)
	if err != nil {
		p.warnf("boundaries unavailable: %v", err)
		return p
	}

	columns := lo.Filter(domain.FinnishRegionNames(), func(name string, _ int) bool {
		_, ok := t.Column(name)
		return ok
	})
	joined := lo.FilterMap(geoms, func(g domain.GeoPolygon, _ int) (string, bool) {
		return domain.Translate(g.Name, domain.EnglishToFinnish)
	})

	onlyTable, onlyMap := lo.Difference(columns, joined)
	for _, name := range onlyTable {
		p.warnf("region %q has usage values but no boundary", name)
	}
	for _, name := range onlyMap {
		p.warnf("region %q has a boundary but no usage column", name)
	}
	if len(columns) == 0 {
		p.errorf("usage table has no region columns")
	}
	return p
}
