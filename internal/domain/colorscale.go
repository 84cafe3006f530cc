package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// RedPalette is the light-to-dark scale used by every choropleth view.
var RedPalette = []string{"#ffcccc", "#ff6666", "#ff3333", "#cc0000", "#990000"}

// NeutralFill is used for regions that have no joined value.
const NeutralFill = "transparent"

// ColorScale maps a value range linearly onto an ordered palette, with the
// stops spaced evenly between Min and Max. Values outside the range are
// clamped. When Min == Max every value maps to the first (lightest) stop.
type ColorScale struct {
	Min     float64  `json:"min"`
	Max     float64  `json:"max"`
	Colors  []string `json:"colors"`
	Caption string   `json:"caption"`

	stops []rgb
}

type rgb struct{ r, g, b float64 }

// NewColorScale validates the palette and builds a scale over [lo, hi].
func NewColorScale(lo, hi float64, palette []string, caption string) (ColorScale, error) {
	if len(palette) < 2 {
		return ColorScale{}, fmt.Errorf("color scale: palette needs at least two colors, got %d", len(palette))
	}
	if lo > hi {
		lo, hi = hi, lo
	}
	stops := make([]rgb, len(palette))
	for i, hex := range palette {
		c, err := parseHex(hex)
		if err != nil {
			return ColorScale{}, fmt.Errorf("color scale: %w", err)
		}
		stops[i] = c
	}
	colors := make([]string, len(palette))
	copy(colors, palette)
	return ColorScale{Min: lo, Max: hi, Colors: colors, Caption: caption, stops: stops}, nil
}

// At returns the "#rrggbb" color of v. A scale without a usable palette
// returns NeutralFill.
func (c ColorScale) At(v float64) string {
	stops := c.stops
	if len(stops) == 0 {
		// decoded from JSON: only Colors survived
		stops = make([]rgb, 0, len(c.Colors))
		for _, hex := range c.Colors {
			s, err := parseHex(hex)
			if err != nil {
				return NeutralFill
			}
			stops = append(stops, s)
		}
	}
	if len(stops) == 0 {
		return NeutralFill
	}
	t := 0.0
	if c.Max > c.Min {
		t = (v - c.Min) / (c.Max - c.Min)
	}
	t = math.Max(0, math.Min(1, t))

	pos := t * float64(len(stops)-1)
	i := int(math.Floor(pos))
	if i >= len(stops)-1 {
		return stops[len(stops)-1].hex()
	}
	frac := pos - float64(i)
	a, b := stops[i], stops[i+1]
	return rgb{
		r: a.r + (b.r-a.r)*frac,
		g: a.g + (b.g-a.g)*frac,
		b: a.b + (b.b-a.b)*frac,
	}.hex()
}

func (c rgb) hex() string {
	return fmt.Sprintf("#%02x%02x%02x", channel(c.r), channel(c.g), channel(c.b))
}

func channel(v float64) uint8 {
	return uint8(math.Max(0, math.Min(255, math.Round(v))))
}

func parseHex(s string) (rgb, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) != 6 {
		return rgb{}, fmt.Errorf("invalid hex color %q", s)
	}
	n, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return rgb{}, fmt.Errorf("invalid hex color %q", s)
	}
	return rgb{r: float64(n >> 16 & 0xff), g: float64(n >> 8 & 0xff), b: float64(n & 0xff)}, nil
}
