package domain

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Table is a raw rectangular table as read from a CSV file or a worksheet.
// Rows exclude the header. Short rows read as empty trailing cells.
type Table struct {
	Source string
	Header []string
	Rows   [][]string
}

// Column returns the index of the named header cell.
func (t Table) Column(name string) (int, bool) {
	for i, h := range t.Header {
		if strings.TrimSpace(h) == name {
			return i, true
		}
	}
	return -1, false
}

// requireColumn is Column with a data-quality error for absent headers.
func (t Table) requireColumn(name string) (int, error) {
	i, ok := t.Column(name)
	if !ok {
		return -1, &DataQualityError{Source: t.Source, Column: name, Err: ErrMissingColumn}
	}
	return i, nil
}

func (t Table) cell(row, col int) string {
	r := t.Rows[row]
	if col < 0 || col >= len(r) {
		return ""
	}
	return strings.TrimSpace(r[col])
}

// line converts a row index into the 1-based source line (header is line 1).
func line(row int) int { return row + 2 }

// Observation is one long-form row: a metric value for a region and period.
// Labels carries the preserved id column values of the source row.
type Observation struct {
	Region string            `json:"region"`
	Period Period            `json:"period"`
	Value  float64           `json:"value"`
	Labels map[string]string `json:"labels,omitempty"`
}

// MetricSeries is a long-form table for one named metric. At most one
// observation exists per (region, period).
type MetricSeries struct {
	Metric string        `json:"metric"`
	Rows   []Observation `json:"rows"`
}

// AtPeriod returns the observations of a single period, preserving order.
func (s MetricSeries) AtPeriod(p Period) MetricSeries {
	out := MetricSeries{Metric: s.Metric}
	for _, o := range s.Rows {
		if o.Period == p {
			out.Rows = append(out.Rows, o)
		}
	}
	return out
}

// Periods returns the distinct periods in chronological order.
func (s MetricSeries) Periods() []Period {
	seen := make(map[Period]struct{})
	var out []Period
	for _, o := range s.Rows {
		if _, ok := seen[o.Period]; ok {
			continue
		}
		seen[o.Period] = struct{}{}
		out = append(out, o.Period)
	}
	sortPeriods(out)
	return out
}

// ReshapeWideToLong unpivots a wide table (one column per region) into one
// observation per input row and value column, in row-major order. The first
// id column holds the period; every id column value is preserved in Labels.
// A non-numeric value cell aborts the reshape with a *DataQualityError.
func ReshapeWideToLong(t Table, idColumns, valueColumns []string, valueLabel string) (MetricSeries, error) {
	if len(idColumns) == 0 {
		return MetricSeries{}, errors.New("reshape: at least one id column is required")
	}

	idIdx := make([]int, len(idColumns))
	for i, name := range idColumns {
		idx, err := t.requireColumn(name)
		if err != nil {
			return MetricSeries{}, err
		}
		idIdx[i] = idx
	}
	valIdx := make([]int, len(valueColumns))
	for i, name := range valueColumns {
		idx, err := t.requireColumn(name)
		if err != nil {
			return MetricSeries{}, err
		}
		valIdx[i] = idx
	}

	out := MetricSeries{
		Metric: valueLabel,
		Rows:   make([]Observation, 0, len(t.Rows)*len(valueColumns)),
	}
	periods, err := t.periods(idIdx[0])
	if err != nil {
		return MetricSeries{}, err
	}
	for r, period := range periods {
		for i, region := range valueColumns {
			v, err := t.number(r, valIdx[i], region)
			if err != nil {
				return MetricSeries{}, err
			}
			labels := make(map[string]string, len(idColumns))
			for k, name := range idColumns {
				labels[name] = t.cell(r, idIdx[k])
			}
			out.Rows = append(out.Rows, Observation{
				Region: region,
				Period: period,
				Value:  v,
				Labels: labels,
			})
		}
	}
	return out, nil
}

// number parses a required numeric cell.
func (t Table) number(row, col int, column string) (float64, error) {
	raw := t.cell(row, col)
	v, err := parseNumber(raw)
	if err != nil {
		return 0, &DataQualityError{Source: t.Source, Line: line(row), Column: column, Value: raw, Err: err}
	}
	return v, nil
}

// optionalNumber parses a cell that may be empty.
func (t Table) optionalNumber(row, col int, column string) (*float64, error) {
	if col < 0 || t.cell(row, col) == "" {
		return nil, nil
	}
	v, err := t.number(row, col, column)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func parseNumber(s string) (float64, error) {
	if s == "" {
		return 0, errors.New("empty numeric cell")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("not a number")
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("not a finite number")
	}
	return v, nil
}
