// Package chart renders the dashboard's line and bar charts as PNG images.
package chart

import (
	"errors"
	"fmt"
	"image/color"
	"io"

	"github.com/couchcryptid/drug-kpi-dashboard/internal/domain"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// ErrNoData is returned when there is nothing to draw.
var ErrNoData = errors.New("no data to plot")

// Size of every rendered image.
const (
	Width  = 8 * vg.Inch
	Height = 4 * vg.Inch
)

var (
	actualColor     = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	predictionColor = color.RGBA{R: 255, G: 127, B: 14, A: 255}
	boundColor      = color.RGBA{R: 150, G: 150, B: 150, A: 255}
	barColor        = color.RGBA{R: 204, G: 0, B: 0, A: 255}

	dotted = []vg.Length{vg.Points(2), vg.Points(2)}

	// Line colors for multi-series charts, cycled in order.
	seriesColors = []color.Color{
		actualColor,
		predictionColor,
		color.RGBA{R: 44, G: 160, B: 44, A: 255},
		color.RGBA{R: 214, G: 39, B: 40, A: 255},
		color.RGBA{R: 148, G: 103, B: 189, A: 255},
	}
)

// x places a period on a continuous year axis.
func x(p domain.Period) float64 {
	if p.Month == 0 {
		return float64(p.Year)
	}
	return float64(p.Year) + float64(p.Month-1)/12
}

// Forecast draws the Actual and Prediction lines of one region with the
// prediction bounds as dotted lines.
func Forecast(w io.Writer, metric, region string, points []domain.ForecastPoint) error {
	if len(points) == 0 {
		return ErrNoData
	}

	var actual, predicted, lower, upper plotter.XYs
	for _, pt := range points {
		xy := plotter.XY{X: x(pt.Period), Y: pt.Value}
		switch pt.Kind {
		case domain.Actual:
			actual = append(actual, xy)
		case domain.Prediction:
			predicted = append(predicted, xy)
			if pt.Lower != nil {
				lower = append(lower, plotter.XY{X: xy.X, Y: *pt.Lower})
			}
			if pt.Upper != nil {
				upper = append(upper, plotter.XY{X: xy.X, Y: *pt.Upper})
			}
		}
	}

	p := newPlot(fmt.Sprintf("%s in %s", metric, region), "Year", metric)
	if err := addLine(p, "Actual", actual, actualColor, nil); err != nil {
		return err
	}
	if err := addLine(p, "Prediction", predicted, predictionColor, nil); err != nil {
		return err
	}
	if err := addLine(p, "Lower bound", lower, boundColor, dotted); err != nil {
		return err
	}
	if err := addLine(p, "Upper bound", upper, boundColor, dotted); err != nil {
		return err
	}
	return writePNG(w, p)
}

// Deaths draws the observed deaths of one age group followed by its
// forecast and bounds.
func Deaths(w io.Writer, v domain.DeathsView) error {
	if len(v.History) == 0 && len(v.Forecast) == 0 {
		return ErrNoData
	}

	history := make(plotter.XYs, 0, len(v.History))
	for _, d := range v.History {
		history = append(history, plotter.XY{X: x(d.Period), Y: d.Deaths})
	}
	var forecast, lower, upper plotter.XYs
	for _, f := range v.Forecast {
		forecast = append(forecast, plotter.XY{X: x(f.Period), Y: f.Forecast})
		if f.Lower != nil {
			lower = append(lower, plotter.XY{X: x(f.Period), Y: *f.Lower})
		}
		if f.Upper != nil {
			upper = append(upper, plotter.XY{X: x(f.Period), Y: *f.Upper})
		}
	}

	p := newPlot("Drug-related deaths, age "+v.AgeGroup, "Year", "Deaths")
	if err := addLine(p, "Observed", history, actualColor, nil); err != nil {
		return err
	}
	if err := addLine(p, "Forecast", forecast, predictionColor, nil); err != nil {
		return err
	}
	if err := addLine(p, "Lower bound", lower, boundColor, dotted); err != nil {
		return err
	}
	if err := addLine(p, "Upper bound", upper, boundColor, dotted); err != nil {
		return err
	}
	return writePNG(w, p)
}

// Distribution draws the age-group shares of a forecast period as bars.
func Distribution(w io.Writer, period domain.Period, shares []domain.AgeShare) error {
	if len(shares) == 0 {
		return ErrNoData
	}

	values := make(plotter.Values, len(shares))
	labels := make([]string, len(shares))
	for i, s := range shares {
		values[i] = s.Share * 100
		labels[i] = s.AgeGroup
	}

	bars, err := plotter.NewBarChart(values, vg.Points(30))
	if err != nil {
		return fmt.Errorf("bar chart: %w", err)
	}
	bars.Color = barColor
	bars.LineStyle.Width = vg.Length(0)

	p := newPlot("Forecast deaths by age group, "+period.String(), "Age group", "Share (%)")
	p.Add(bars)
	p.NominalX(labels...)
	p.X.Tick.Label.XAlign = draw.XCenter
	p.Y.Min = 0
	return writePNG(w, p)
}

// Trends draws one line per KPI.
func Trends(w io.Writer, region string, lines []domain.TrendLine) error {
	empty := true
	for _, l := range lines {
		if len(l.Points) > 0 {
			empty = false
			break
		}
	}
	if empty {
		return ErrNoData
	}

	p := newPlot("KPI trends in "+region, "Year", "Count")
	for i, l := range lines {
		xys := make(plotter.XYs, len(l.Points))
		for j, pt := range l.Points {
			xys[j] = plotter.XY{X: x(pt.Period), Y: pt.Value}
		}
		if err := addLine(p, l.KPI, xys, seriesColors[i%len(seriesColors)], nil); err != nil {
			return err
		}
	}
	return writePNG(w, p)
}

func newPlot(title, xLabel, yLabel string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel
	p.Legend.Top = true
	p.Add(plotter.NewGrid())
	return p
}

// addLine skips empty series so that optional bounds can be passed as-is.
func addLine(p *plot.Plot, name string, xys plotter.XYs, c color.Color, dashes []vg.Length) error {
	if len(xys) == 0 {
		return nil
	}
	l, err := plotter.NewLine(xys)
	if err != nil {
		return fmt.Errorf("line %q: %w", name, err)
	}
	l.Color = c
	l.Width = vg.Points(1.5)
	l.Dashes = dashes
	p.Add(l)
	p.Legend.Add(name, l)
	return nil
}

func writePNG(w io.Writer, p *plot.Plot) error {
	wt, err := p.WriterTo(Width, Height, "png")
	if err != nil {
		return fmt.Errorf("render png: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("write png: %w", err)
	}
	return nil
}
