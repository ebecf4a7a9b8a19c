package model

import (
	"fmt"
	"time"
)

// DateRange is an inclusive range of YYYY-MM-DD days. Either bound may be
// empty, meaning unbounded on that side.
type DateRange struct {
	Start string
	End   string
}

// Contains compares day against the bounds as strings.
func (r DateRange) Contains(day string) bool {
	if r.Start != "" && day < r.Start {
		return false
	}
	if r.End != "" && day > r.End {
		return false
	}
	return true
}

// Validate checks that both bounds, when set, are well-formed and ordered.
func (r DateRange) Validate() error {
	for _, s := range []string{r.Start, r.End} {
		if s == "" {
			continue
		}
		if _, err := time.Parse(DateFormat, s); err != nil {
			return fmt.Errorf("invalid date %q: want YYYY-MM-DD", s)
		}
	}
	if r.Start != "" && r.End != "" && r.Start > r.End {
		return fmt.Errorf("start %s is after end %s", r.Start, r.End)
	}
	return nil
}

// MonthRange returns the range covering a calendar month.
func MonthRange(year, month int) DateRange {
	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)
	return DateRange{Start: first.Format(DateFormat), End: last.Format(DateFormat)}
}

// Months lists the (year, month) pairs the range touches, oldest first.
// ok is false when a bound is missing.
func (r DateRange) Months() (months [][2]int, ok bool) {
	if r.Start == "" || r.End == "" {
		return nil, false
	}
	start, err := time.Parse(DateFormat, r.Start)
	if err != nil {
		return nil, false
	}
	end, err := time.Parse(DateFormat, r.End)
	if err != nil {
		return nil, false
	}
	cur := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC)
	for !cur.After(end) {
		months = append(months, [2]int{cur.Year(), int(cur.Month())})
		cur = cur.AddDate(0, 1, 0)
	}
	return months, true
}

func (r DateRange) String() string {
	start, end := r.Start, r.End
	if start == "" {
		start = "…"
	}
	if end == "" {
		end = "…"
	}
	return start + ".." + end
}
