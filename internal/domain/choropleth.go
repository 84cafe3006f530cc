package domain

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/twpayne/go-geom"
)

// Default map viewport over mainland Finland.
const (
	DefaultCenterLat = 64.0
	DefaultCenterLon = 26.0
	DefaultZoom      = 5.4
)

// NoData is shown in tooltips of regions without a joined value.
const NoData = "no data"

// GeoPolygon is a named region boundary as loaded from the boundary file.
// Name is in the boundary file's own convention (English).
type GeoPolygon struct {
	Name     string
	Geometry geom.T
}

// Field is one labelled line of a tooltip or popup.
type Field struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Style is the Leaflet-compatible path style of a region.
type Style struct {
	FillColor   string  `json:"fillColor"`
	Color       string  `json:"color"`
	FillOpacity float64 `json:"fillOpacity"`
	Weight      float64 `json:"weight"`
}

// RegionShape is one rendered polygon of a choropleth.
type RegionShape struct {
	Name     string   `json:"name"`
	JoinName string   `json:"join_name,omitempty"`
	Value    *float64 `json:"value"`
	Style    Style    `json:"style"`
	Tooltip  []Field  `json:"tooltip"`
	Popup    []Field  `json:"popup"`
	Geometry geom.T   `json:"-"`
}

// ChoroplethMap is a render-only artifact; it is rebuilt on every request.
type ChoroplethMap struct {
	Metric      string         `json:"metric"`
	Caption     string         `json:"caption"`
	Period      Period         `json:"period"`
	Center      [2]float64     `json:"center"` // lat, lon
	Zoom        float64        `json:"zoom"`
	Bounds      *[2][2]float64 `json:"bounds,omitempty"` // [[south, west], [north, east]]
	HasData     bool           `json:"has_data"`
	Scale       ColorScale     `json:"scale"`
	Regions     []RegionShape  `json:"regions"`
	GeneratedAt time.Time      `json:"generated_at"`
}

// ChoroplethOptions controls captions and labels. Zero values fall back to
// the series metric name and RedPalette.
type ChoroplethOptions struct {
	Caption    string
	ValueLabel string
	Palette    []string
}

// BuildChoropleth joins the series values of one period onto the region
// boundaries. Each geometry name is translated with dir into the series'
// naming convention and matched by equality. Every geometry is rendered
// exactly once; regions without a value get the neutral fill. An empty join
// is not an error: the map is returned with every region neutral.
func BuildChoropleth(geometries []GeoPolygon, series MetricSeries, period Period, dir Direction, opts ChoroplethOptions) (ChoroplethMap, error) {
	caption := opts.Caption
	if caption == "" {
		caption = series.Metric
	}
	valueLabel := opts.ValueLabel
	if valueLabel == "" {
		valueLabel = series.Metric
	}
	palette := opts.Palette
	if len(palette) == 0 {
		palette = RedPalette
	}

	byRegion := make(map[string]float64)
	for _, o := range series.AtPeriod(period).Rows {
		byRegion[o.Region] = o.Value
	}

	values := make([]*float64, len(geometries))
	joinNames := make([]string, len(geometries))
	lo, hi := math.Inf(1), math.Inf(-1)
	for i, g := range geometries {
		name, ok := Translate(g.Name, dir)
		if !ok {
			continue
		}
		joinNames[i] = name
		v, ok := byRegion[name]
		if !ok {
			continue
		}
		values[i] = &v
		lo, hi = math.Min(lo, v), math.Max(hi, v)
	}

	hasData := !math.IsInf(lo, 1)
	if !hasData {
		lo, hi = 0, 0
	}
	scale, err := NewColorScale(lo, hi, palette, caption)
	if err != nil {
		return ChoroplethMap{}, err
	}

	m := ChoroplethMap{
		Metric:      series.Metric,
		Caption:     caption,
		Period:      period,
		Center:      [2]float64{DefaultCenterLat, DefaultCenterLon},
		Zoom:        DefaultZoom,
		Bounds:      boundsOf(geometries),
		HasData:     hasData,
		Scale:       scale,
		Regions:     make([]RegionShape, len(geometries)),
		GeneratedAt: clock.Now().UTC(),
	}

	for i, g := range geometries {
		fill := NeutralFill
		shown := NoData
		if v := values[i]; v != nil {
			fill = scale.At(*v)
			shown = formatValue(*v)
		}
		fields := []Field{
			{Label: "Region:", Value: g.Name},
			{Label: valueLabel + ":", Value: shown},
		}
		m.Regions[i] = RegionShape{
			Name:     g.Name,
			JoinName: joinNames[i],
			Value:    values[i],
			Style:    Style{FillColor: fill, Color: "black", FillOpacity: 0.4, Weight: 1},
			Tooltip:  fields,
			Popup:    append(append([]Field(nil), fields...), Field{Label: "Period:", Value: period.String()}),
			Geometry: g.Geometry,
		}
	}
	return m, nil
}

// boundsOf returns the lat/lon extent of all geometries, or nil when none
// carries coordinates.
func boundsOf(geometries []GeoPolygon) *[2][2]float64 {
	minLon, minLat := math.Inf(1), math.Inf(1)
	maxLon, maxLat := math.Inf(-1), math.Inf(-1)
	for _, g := range geometries {
		if g.Geometry == nil || len(g.Geometry.FlatCoords()) == 0 {
			continue
		}
		b := g.Geometry.Bounds()
		minLon, minLat = math.Min(minLon, b.Min(0)), math.Min(minLat, b.Min(1))
		maxLon, maxLat = math.Max(maxLon, b.Max(0)), math.Max(maxLat, b.Max(1))
	}
	if math.IsInf(minLon, 1) {
		return nil
	}
	return &[2][2]float64{{minLat, minLon}, {maxLat, maxLon}}
}

// formatValue renders whole numbers with thousands separators and anything
// else with two decimals.
func formatValue(v float64) string {
	if v != math.Trunc(v) || math.Abs(v) >= 1e15 {
		return strconv.FormatFloat(v, 'f', 2, 64)
	}
	s := strconv.FormatInt(int64(math.Abs(v)), 10)
	var b strings.Builder
	if v < 0 {
		b.WriteByte('-')
	}
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	return b.String()
}
