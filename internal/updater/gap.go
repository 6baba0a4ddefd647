package updater

import (
	"time"

	"StockCorr/internal/calendar"
	"StockCorr/internal/model"
)

// Gap is the date range that must be fetched to bring one stock up to date.
type Gap struct {
	Start time.Time
	End   time.Time
	Empty bool
}

// Resolver computes minimal fetch ranges. Weekends and holidays are not
// subtracted from a gap; days the market didn't trade simply come back
// absent from the provider.
type Resolver struct {
	Cal           *calendar.Trading
	LookbackDays  int // target trailing window, calendar days
	PaddingDays   int // extra days fetched on a from-scratch load
	FreshnessDays int // max trading-day lag still considered up to date
	Now           func() time.Time
}

// NewResolver builds a resolver with the given policy values.
func NewResolver(cal *calendar.Trading, lookbackDays, paddingDays, freshnessDays int) *Resolver {
	return &Resolver{
		Cal:           cal,
		LookbackDays:  lookbackDays,
		PaddingDays:   paddingDays,
		FreshnessDays: freshnessDays,
		Now:           time.Now,
	}
}

// Resolve returns the range to fetch given the latest stored date. With no
// stored data the whole target window (plus padding for non-trading days) is
// fetched; with fresh data the gap is empty; otherwise only the tail from
// the day after the latest stored date.
func (r *Resolver) Resolve(latest time.Time, hasData bool) Gap {
	today := model.Day(r.Now())

	if !hasData {
		return Gap{
			Start: today.AddDate(0, 0, -(r.LookbackDays + r.PaddingDays)),
			End:   today,
		}
	}

	latest = model.Day(latest)
	if !latest.Before(today) {
		return Gap{Empty: true}
	}
	if r.Cal.TradingDaysBetween(latest, today) <= r.FreshnessDays {
		return Gap{Empty: true}
	}

	return Gap{Start: latest.AddDate(0, 0, 1), End: today}
}
