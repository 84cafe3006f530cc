// Package boundary reads region boundaries from GeoJSON and writes rendered
// choropleths back out as GeoJSON feature collections for Leaflet-style
// frontends.
package boundary

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/couchcryptid/drug-kpi-dashboard/internal/domain"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// NameProperty is the feature property holding the region name.
const NameProperty = "name"

// ErrNotFeatureCollection is returned for documents of any other GeoJSON type.
var ErrNotFeatureCollection = errors.New("not a FeatureCollection")

type feature struct {
	Type       string            `json:"type"`
	Properties map[string]any    `json:"properties"`
	Geometry   *geojson.Geometry `json:"geometry"`
}

type featureCollection struct {
	Type     string    `json:"type"`
	Features []feature `json:"features"`
}

// Load reads a boundary file.
func Load(path string) ([]domain.GeoPolygon, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return Decode(filepath.Base(path), f)
}

// Decode parses a FeatureCollection whose features carry the region name in
// NameProperty. Features with a null geometry are kept so that every named
// region is still rendered.
func Decode(source string, r io.Reader) ([]domain.GeoPolygon, error) {
	var fc featureCollection
	if err := json.NewDecoder(r).Decode(&fc); err != nil {
		return nil, fmt.Errorf("%s: %w", source, err)
	}
	if fc.Type != "FeatureCollection" {
		return nil, fmt.Errorf("%s: %w (type %q)", source, ErrNotFeatureCollection, fc.Type)
	}

	out := make([]domain.GeoPolygon, 0, len(fc.Features))
	for i, ft := range fc.Features {
		name, _ := ft.Properties[NameProperty].(string)
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, &domain.DataQualityError{
				Source: source,
				Column: fmt.Sprintf("features[%d].properties.%s", i, NameProperty),
				Err:    errors.New("missing region name"),
			}
		}
		p := domain.GeoPolygon{Name: name}
		if ft.Geometry != nil {
			g, err := ft.Geometry.Decode()
			if err != nil {
				return nil, fmt.Errorf("%s: feature %q: %w", source, name, err)
			}
			p.Geometry = g
		}
		out = append(out, p)
	}
	return out, nil
}

type scaleDoc struct {
	Min     float64  `json:"min"`
	Max     float64  `json:"max"`
	Colors  []string `json:"colors"`
	Caption string   `json:"caption"`
}

type mapDoc struct {
	Type        string         `json:"type"`
	Metric      string         `json:"metric"`
	Caption     string         `json:"caption"`
	Period      domain.Period  `json:"period"`
	Center      [2]float64     `json:"center"`
	Zoom        float64        `json:"zoom"`
	Bounds      *[2][2]float64 `json:"bounds,omitempty"`
	HasData     bool           `json:"has_data"`
	Scale       *scaleDoc      `json:"scale,omitempty"`
	GeneratedAt time.Time      `json:"generated_at"`
	Features    []feature      `json:"features"`
}

// Encode writes m as a GeoJSON FeatureCollection. Map settings travel as
// foreign members next to "features"; each feature carries its value, style,
// tooltip and popup in its properties.
func Encode(w io.Writer, m domain.ChoroplethMap) error {
	doc := mapDoc{
		Type:        "FeatureCollection",
		Metric:      m.Metric,
		Caption:     m.Caption,
		Period:      m.Period,
		Center:      m.Center,
		Zoom:        m.Zoom,
		Bounds:      m.Bounds,
		HasData:     m.HasData,
		GeneratedAt: m.GeneratedAt,
		Features:    make([]feature, 0, len(m.Regions)),
	}
	if m.HasData {
		doc.Scale = &scaleDoc{Min: m.Scale.Min, Max: m.Scale.Max, Colors: m.Scale.Colors, Caption: m.Scale.Caption}
	}

	for _, r := range m.Regions {
		ft := feature{
			Type: "Feature",
			Properties: map[string]any{
				NameProperty: r.Name,
				"join_name":  r.JoinName,
				"value":      r.Value,
				"style":      r.Style,
				"tooltip":    r.Tooltip,
				"popup":      r.Popup,
			},
		}
		if r.Geometry != nil {
			g, err := geojson.Encode(r.Geometry)
			if err != nil {
				return fmt.Errorf("encode %q: %w", r.Name, err)
			}
			ft.Geometry = g
		}
		doc.Features = append(doc.Features, ft)
	}

	return json.NewEncoder(w).Encode(doc)
}
