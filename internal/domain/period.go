package domain

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Period is a calendar year, optionally narrowed to one month.
// Month is zero for annual observations.
// It marshals as its String form ("2023", "2023-04").
type Period struct {
	Year  int
	Month time.Month
}

// Year builds an annual period.
func Year(y int) Period { return Period{Year: y} }

// Before orders periods chronologically; an annual period sorts before the
// months of the same year.
func (p Period) Before(o Period) bool {
	if p.Year != o.Year {
		return p.Year < o.Year
	}
	return p.Month < o.Month
}

// Previous returns the preceding period at the same granularity.
func (p Period) Previous() Period {
	if p.Month == 0 {
		return Period{Year: p.Year - 1}
	}
	if p.Month == time.January {
		return Period{Year: p.Year - 1, Month: time.December}
	}
	return Period{Year: p.Year, Month: p.Month - 1}
}

func (p Period) String() string {
	if p.Month == 0 {
		return strconv.Itoa(p.Year)
	}
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

// MarshalText implements encoding.TextMarshaler.
func (p Period) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler using ParsePeriod.
func (p *Period) UnmarshalText(b []byte) error {
	v, err := ParsePeriod(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// ParsePeriod accepts "2023", "2023-04" and full dates. A January 1 date
// is an annual stamp and keeps only the year; any other date keeps its month.
func ParsePeriod(s string) (Period, error) {
	p, _, err := parseStamp(s)
	return p, err
}

// parseStamp is ParsePeriod that also reports whether s was a January 1
// date read as annual.
func parseStamp(s string) (p Period, annualDate bool, err error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Period{}, false, fmt.Errorf("parse period: empty value")
	}

	// Pandas-written timestamps may carry a time part.
	if i := strings.IndexAny(s, " T"); i > 0 {
		s = s[:i]
	}

	parts := strings.Split(s, "-")
	year, err := strconv.Atoi(parts[0])
	if err != nil || year < 1000 || year > 9999 {
		return Period{}, false, fmt.Errorf("parse period %q: invalid year", s)
	}

	switch len(parts) {
	case 1:
		return Period{Year: year}, false, nil
	case 2:
		month, err := strconv.Atoi(parts[1])
		if err != nil || month < 1 || month > 12 {
			return Period{}, false, fmt.Errorf("parse period %q: invalid month", s)
		}
		return Period{Year: year, Month: time.Month(month)}, false, nil
	case 3:
		d, err := time.Parse("2006-01-02", s)
		if err != nil {
			return Period{}, false, fmt.Errorf("parse period %q: %w", s, err)
		}
		if d.Month() == time.January && d.Day() == 1 {
			return Period{Year: year}, true, nil
		}
		return Period{Year: year, Month: d.Month()}, false, nil
	default:
		return Period{}, false, fmt.Errorf("parse period %q: unrecognized format", s)
	}
}

// periods parses a whole period column. Granularity is decided per column:
// once any row is monthly, January 1 dates in the same column are read as
// January rather than as the whole year.
func (t Table) periods(col int) ([]Period, error) {
	out := make([]Period, len(t.Rows))
	stamped := make([]bool, len(t.Rows))
	monthly := false
	for r := range t.Rows {
		raw := t.cell(r, col)
		p, annualDate, err := parseStamp(raw)
		if err != nil {
			return nil, &DataQualityError{Source: t.Source, Line: line(r), Column: t.Header[col], Value: raw, Err: err}
		}
		out[r], stamped[r] = p, annualDate
		monthly = monthly || p.Month != 0
	}
	if monthly {
		for r := range out {
			if stamped[r] {
				out[r].Month = time.January
			}
		}
	}
	return out, nil
}

func sortPeriods(ps []Period) {
	sort.Slice(ps, func(i, j int) bool { return ps[i].Before(ps[j]) })
}
