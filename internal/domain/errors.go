package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownMetric is returned when a request names a KPI the dashboard has no table for.
	ErrUnknownMetric = errors.New("unknown metric")
	// ErrUnknownRegion is returned when a request names a region outside the reference set.
	ErrUnknownRegion = errors.New("unknown region")
	// ErrUnknownAgeGroup is returned when a request names an age group absent from the deaths forecast.
	ErrUnknownAgeGroup = errors.New("unknown age group")
	// ErrMissingColumn is wrapped by DataQualityError when a required header is absent.
	ErrMissingColumn = errors.New("missing column")
)

// DataQualityError identifies the cell that made a source table unusable.
// Line is the 1-based line in the source file (the header is line 1);
// it is zero for table-level problems such as a missing column.
type DataQualityError struct {
	Source string
	Line   int
	Column string
	Value  string
	Err    error
}

func (e *DataQualityError) Error() string {
	src := e.Source
	if src == "" {
		src = "table"
	}
	if e.Line == 0 {
		return fmt.Sprintf("%s: column %q: %v", src, e.Column, e.Err)
	}
	return fmt.Sprintf("%s line %d column %q: value %q: %v", src, e.Line, e.Column, e.Value, e.Err)
}

func (e *DataQualityError) Unwrap() error { return e.Err }
