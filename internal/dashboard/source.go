package dashboard

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/couchcryptid/drug-kpi-dashboard/internal/adapter/boundary"
	"github.com/couchcryptid/drug-kpi-dashboard/internal/adapter/tabular"
	"github.com/couchcryptid/drug-kpi-dashboard/internal/domain"
)

// Data files, relative to the data directory.
const (
	UsageFile         = "clean/Reported_drug_usage_by_regions.csv"
	DeathHistoryFile  = "clean/death_df.csv"
	DeathForecastFile = "clean/deaths_forecast.csv"
	TrendsFile        = "merged_TSA.csv"
	BoundaryFile      = "map/fi.json"
)

// ForecastFile returns the forecast table of a metric.
func ForecastFile(metric string) string {
	return "clean/" + metric + "_forecast.csv"
}

// Source supplies the raw tables and boundaries behind every view.
type Source interface {
	Usage(ctx context.Context) (domain.Table, error)
	Forecast(ctx context.Context, metric string) (domain.Table, error)
	DeathHistory(ctx context.Context) (domain.Table, error)
	DeathForecast(ctx context.Context) (domain.Table, error)
	Trends(ctx context.Context) (domain.Table, error)
	Boundaries(ctx context.Context) ([]domain.GeoPolygon, error)
}

// FileSource reads the data directory on every call; nothing is cached so
// refreshed files are picked up by the next request.
type FileSource struct {
	dir string
}

// NewFileSource creates a Source rooted at dir.
func NewFileSource(dir string) *FileSource {
	return &FileSource{dir: dir}
}

// Dir returns the data directory.
func (f *FileSource) Dir() string { return f.dir }

func (f *FileSource) path(rel string) string {
	return filepath.Join(f.dir, filepath.FromSlash(rel))
}

// Usage reads the wide usage table. A workbook with the same base name is
// used when the CSV is absent.
func (f *FileSource) Usage(ctx context.Context) (domain.Table, error) {
	if err := ctx.Err(); err != nil {
		return domain.Table{}, err
	}
	p := f.path(UsageFile)
	if _, err := os.Stat(p); errors.Is(err, fs.ErrNotExist) {
		xlsx := strings.TrimSuffix(p, filepath.Ext(p)) + ".xlsx"
		if _, xerr := os.Stat(xlsx); xerr == nil {
			return tabular.Read(xlsx)
		}
	}
	return tabular.Read(p)
}

func (f *FileSource) Forecast(ctx context.Context, metric string) (domain.Table, error) {
	return f.read(ctx, ForecastFile(metric))
}

func (f *FileSource) DeathHistory(ctx context.Context) (domain.Table, error) {
	return f.read(ctx, DeathHistoryFile)
}

func (f *FileSource) DeathForecast(ctx context.Context) (domain.Table, error) {
	return f.read(ctx, DeathForecastFile)
}

func (f *FileSource) Trends(ctx context.Context) (domain.Table, error) {
	return f.read(ctx, TrendsFile)
}

func (f *FileSource) Boundaries(ctx context.Context) ([]domain.GeoPolygon, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return boundary.Load(f.path(BoundaryFile))
}

func (f *FileSource) read(ctx context.Context, rel string) (domain.Table, error) {
	if err := ctx.Err(); err != nil {
		return domain.Table{}, err
	}
	return tabular.Read(f.path(rel))
}
