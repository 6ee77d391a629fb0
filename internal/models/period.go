package models

import (
	"errors"
	"fmt"
	"time"
)

// Period identifies the calendar month a settlement covers.
// Wire and storage format is "YYYY-MM".
type Period struct {
	Year  int
	Month time.Month
}

var ErrInvalidPeriod = errors.New("invalid period")

// ParsePeriod parses a "YYYY-MM" string into a Period.
func ParsePeriod(s string) (Period, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Period{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
	}
	p := Period{Year: t.Year(), Month: t.Month()}
	if err := p.Validate(); err != nil {
		return Period{}, err
	}
	return p, nil
}

// Validate checks the period is a plausible calendar month.
func (p Period) Validate() error {
	if p.Year < 2000 || p.Year > 2100 {
		return fmt.Errorf("%w: year %d out of range", ErrInvalidPeriod, p.Year)
	}
	if p.Month < time.January || p.Month > time.December {
		return fmt.Errorf("%w: month %d out of range", ErrInvalidPeriod, p.Month)
	}
	return nil
}

// String returns the canonical "YYYY-MM" form.
func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}
