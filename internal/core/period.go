package core

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// Date is a calendar day in UTC. It encodes as YYYY-MM-DD.
type Date struct {
	time.Time
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// ParseDate parses YYYY-MM-DD, also accepting a full RFC 3339 timestamp.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(dateLayout, s); err == nil {
		return Date{Time: t}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return DateOf(t.UTC()), nil
	}
	return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

// MonthKey returns the YYYY-MM bucket the day falls in.
func (d Date) MonthKey() string {
	return d.Format("2006-01")
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidDate, b)
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Period names a reporting window relative to the current day.
type Period string

const (
	CurrentMonth   Period = "current_month"
	CurrentQuarter Period = "current_quarter"
	CurrentYear    Period = "current_year"
)

// ParsePeriod maps a keyword to a Period. Unknown or empty keywords fall back to CurrentMonth.
func ParsePeriod(s string) Period {
	switch Period(s) {
	case CurrentQuarter:
		return CurrentQuarter
	case CurrentYear:
		return CurrentYear
	default:
		return CurrentMonth
	}
}

// Window is an inclusive range of calendar days.
type Window struct {
	Start Date
	End   Date
}

func (w Window) Contains(d Date) bool {
	return !d.Before(w.Start.Time) && !d.After(w.End.Time)
}

// PeriodWindow returns the inclusive day range of p around now.
func PeriodWindow(p Period, now time.Time) Window {
	y, m, _ := now.Date()
	switch ParsePeriod(string(p)) {
	case CurrentQuarter:
		q := (int(m) - 1) / 3
		start := NewDate(y, q*3+1, 1)
		return Window{Start: start, End: Date{start.AddDate(0, 3, -1)}}
	case CurrentYear:
		return Window{Start: NewDate(y, 1, 1), End: NewDate(y, 12, 31)}
	default:
		start := NewDate(y, int(m), 1)
		return Window{Start: start, End: Date{start.AddDate(0, 1, -1)}}
	}
}

// MonthsWindow covers the current month and the months-1 months before it.
func MonthsWindow(months int, now time.Time) Window {
	y, m, _ := now.Date()
	current := NewDate(y, int(m), 1)
	return Window{
		Start: Date{current.AddDate(0, -(months - 1), 0)},
		End:   Date{current.AddDate(0, 1, -1)},
	}
}

// MonthKeys lists the YYYY-MM keys of the window's months in ascending order.
func (w Window) MonthKeys() []string {
	var keys []string
	for d := NewDate(w.Start.Year(), int(w.Start.Month()), 1); !d.After(w.End.Time); d = (Date{d.AddDate(0, 1, 0)}) {
		keys = append(keys, d.MonthKey())
	}
	return keys
}

// DaysUntil is the whole number of days from now until the start of end, rounded up.
// It is zero or negative once end has been reached.
func DaysUntil(end Date, now time.Time) int {
	return int(math.Ceil(end.Sub(now).Hours() / 24))
}
