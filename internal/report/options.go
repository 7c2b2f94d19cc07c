package report

import (
	"fmt"
	"strings"
	"time"
)

// TieBreak decides which item wins when two items share the highest cup count.
type TieBreak string

const (
	// TieBreakFirstSeen picks the item that appears first in chronological order.
	TieBreakFirstSeen TieBreak = "first_seen"
	// TieBreakAlphabetical picks the lexicographically smallest item name.
	TieBreakAlphabetical TieBreak = "alphabetical"
)

const (
	DefaultWindowMonths = 13
	DefaultCatalogSize  = 91
)

type Options struct {
	// PeriodStart is the first month of the monthly-counts window. Only its
	// year and month are used.
	PeriodStart  time.Time
	WindowMonths int
	CatalogSize  int
	TieBreak     TieBreak
	Location     *time.Location
}

func DefaultOptions() Options {
	return Options{
		PeriodStart:  time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC),
		WindowMonths: DefaultWindowMonths,
		CatalogSize:  DefaultCatalogSize,
		TieBreak:     TieBreakFirstSeen,
		Location:     time.UTC,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Location == nil {
		o.Location = d.Location
	}
	if o.PeriodStart.IsZero() {
		o.PeriodStart = d.PeriodStart
	}
	if o.WindowMonths <= 0 {
		o.WindowMonths = d.WindowMonths
	}
	if o.CatalogSize <= 0 {
		o.CatalogSize = d.CatalogSize
	}
	if o.TieBreak == "" {
		o.TieBreak = d.TieBreak
	}
	return o
}

// monthIndex returns the window bucket for t and whether t falls inside the window.
func (o Options) monthIndex(t time.Time) (int, bool) {
	local := t.In(o.Location)
	idx := (local.Year()-o.PeriodStart.Year())*12 + int(local.Month()) - int(o.PeriodStart.Month())
	if idx < 0 || idx >= o.WindowMonths {
		return 0, false
	}
	return idx, true
}

// MonthLabels returns "2006-01" labels for every bucket of the window.
func (o Options) MonthLabels() []string {
	o = o.withDefaults()
	first := time.Date(o.PeriodStart.Year(), o.PeriodStart.Month(), 1, 0, 0, 0, 0, o.Location)
	labels := make([]string, o.WindowMonths)
	for i := range labels {
		labels[i] = first.AddDate(0, i, 0).Format("2006-01")
	}
	return labels
}

// ParsePeriodStart parses a "YYYY-MM" window anchor in loc.
func ParsePeriodStart(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation("2006-01", strings.TrimSpace(s), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid report period start %q (want YYYY-MM): %w", s, err)
	}
	return t, nil
}

func ParseTieBreak(s string) (TieBreak, error) {
	switch TieBreak(strings.ToLower(strings.TrimSpace(s))) {
	case "", TieBreakFirstSeen:
		return TieBreakFirstSeen, nil
	case TieBreakAlphabetical:
		return TieBreakAlphabetical, nil
	}
	return "", fmt.Errorf("favorite tie break must be %q or %q, got %q", TieBreakFirstSeen, TieBreakAlphabetical, s)
}
