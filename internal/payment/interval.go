package payment

import (
	"fmt"
	"strings"
	"time"
)

// Interval is the cadence between scheduled due dates.
//
// A monthly interval is end-of-month safe: each due date is computed from
// the anchor, not from the previous due date, and the anchor's day is
// clamped to the last day of shorter months. An anchor on the 31st yields
// Feb 28 (or 29) and then Mar 31 again.
//
// A fixed interval steps anchor + k*d.
type Interval struct {
	monthly bool
	step    time.Duration
}

// Monthly returns the calendar-month interval.
func Monthly() Interval { return Interval{monthly: true} }

// Every returns a fixed-duration interval.
func Every(d time.Duration) (Interval, error) {
	if d <= 0 {
		return Interval{}, fmt.Errorf("interval must be positive, got %s", d)
	}
	return Interval{step: d}, nil
}

// ParseInterval accepts "monthly" or a Go duration such as "5h".
func ParseInterval(s string) (Interval, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "monthly") {
		return Monthly(), nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return Interval{}, fmt.Errorf("interval %q is neither \"monthly\" nor a duration: %w", s, err)
	}
	return Every(d)
}

// IsZero reports whether the interval was never initialized.
func (i Interval) IsZero() bool { return !i.monthly && i.step == 0 }

func (i Interval) String() string {
	if i.monthly {
		return "monthly"
	}
	return i.step.String()
}

// Due returns the k-th due date after anchor, k >= 1.
func (i Interval) Due(anchor time.Time, k int) time.Time {
	if i.monthly {
		return addMonthsClamped(anchor, k)
	}
	return anchor.Add(time.Duration(k) * i.step)
}

func addMonthsClamped(anchor time.Time, months int) time.Time {
	y, m, d := anchor.Date()
	hh, mm, ss := anchor.Clock()
	first := time.Date(y, m+time.Month(months), 1, hh, mm, ss, anchor.Nanosecond(), anchor.Location())
	if last := daysIn(first.Year(), first.Month()); d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, hh, mm, ss, anchor.Nanosecond(), anchor.Location())
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
