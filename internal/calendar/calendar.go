// Package calendar wraps the Taiwan trading-day calendar.
package calendar

import (
	"log"
	"time"

	"github.com/scmhub/calendar"
)

// Trading answers trading-day questions for the Taiwan market (MIC xtai).
// If the calendar library cannot provide it, a Mon-Fri fallback is used;
// holidays then count as trading days, which only costs a redundant fetch.
type Trading struct {
	cal      *calendar.Calendar
	fallback bool
	loc      *time.Location
}

// NewTaiwan loads the Taiwan exchange calendar. The library registers no
// xtai calendar; Hong Kong runs the same lunar holiday schedule and is the
// closest registered stand-in.
func NewTaiwan() *Trading {
	loc, err := time.LoadLocation("Asia/Taipei")
	if err != nil {
		loc = time.UTC
	}
	cal := calendar.GetCalendar("xtai")
	if cal == nil {
		cal = calendar.GetCalendar("xhkg")
	}
	if cal == nil {
		log.Println("[WARN] no exchange calendar available, falling back to Mon-Fri")
		return &Trading{fallback: true, loc: loc}
	}
	return &Trading{cal: cal, loc: loc}
}

// IsTradingDay reports whether the market trades on the given date.
func (t *Trading) IsTradingDay(d time.Time) bool {
	if t.loc != nil {
		d = time.Date(d.Year(), d.Month(), d.Day(), 12, 0, 0, 0, t.loc)
	}
	if t.fallback {
		wd := d.Weekday()
		return wd != time.Saturday && wd != time.Sunday
	}
	return t.cal.IsBusinessDay(d)
}

// TradingDaysBetween counts trading days in the half-open range (from, to].
// Returns 0 when to is not after from.
func (t *Trading) TradingDaysBetween(from, to time.Time) int {
	from = dayOf(from)
	to = dayOf(to)
	n := 0
	for d := from.AddDate(0, 0, 1); !d.After(to); d = d.AddDate(0, 0, 1) {
		if t.IsTradingDay(d) {
			n++
		}
	}
	return n
}

func dayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
