// Package dates parses the date formats used by the Chilean government
// services feeding the pipeline. Each source picked a different one:
// the Senado emits DD/MM/YYYY, the Cámara ISO-8601 timestamps, and
// MercadoPublico a bare DDMMYYYY.
package dates

import (
	"fmt"
	"time"
)

const (
	dmyLayout     = "02/01/2006"
	compactLayout = "02012006"
)

// isoLayouts covers the timestamp shapes observed from the Cámara open-data
// service. Tried in order.
var isoLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// FromDMY parses a DD/MM/YYYY date.
func FromDMY(s string) (time.Time, error) {
	t, err := time.Parse(dmyLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse dmy date %q: %w", s, err)
	}
	return t, nil
}

// FromISO parses an ISO-8601 date or timestamp.
func FromISO(s string) (time.Time, error) {
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("parse iso date %q: unrecognized layout", s)
}

// FromCompact parses a DDMMYYYY date.
func FromCompact(s string) (time.Time, error) {
	if len(s) != 8 {
		return time.Time{}, fmt.Errorf("parse compact date %q: want 8 digits", s)
	}
	t, err := time.Parse(compactLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse compact date %q: %w", s, err)
	}
	return t, nil
}

// Compact formats a time as DDMMYYYY, the query-parameter format the
// MercadoPublico API expects.
func Compact(t time.Time) string {
	return t.Format(compactLayout)
}

// YesterdayCompact returns yesterday relative to now in DDMMYYYY form.
// The procurement feed for the current day is incomplete until midnight,
// so runs always query the previous day.
func YesterdayCompact(now time.Time) string {
	return Compact(now.AddDate(0, 0, -1))
}

// MaybeDMY parses a DD/MM/YYYY date, returning nil on empty or malformed
// input. Sources routinely omit or garble dates; callers store NULL.
func MaybeDMY(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := FromDMY(s)
	if err != nil {
		return nil
	}
	return &t
}

// MaybeISO parses an ISO date or timestamp, returning nil on empty or
// malformed input.
func MaybeISO(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := FromISO(s)
	if err != nil {
		return nil
	}
	return &t
}
