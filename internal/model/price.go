package model

import "time"

// Source tags recorded with every stored price. The tag is always set
// explicitly by the writer, never inferred.
const (
	SourceYahoo       = "YAHOO"        // general-purpose ticker provider
	SourceExchangeEOD = "EXCHANGE_EOD" // exchange end-of-day quote feed
	SourceLegacy      = "TWSE"         // rows written before the source column existed
)

// PricePoint is one (stock, trading date) closing price.
type PricePoint struct {
	Code   string
	Date   time.Time // calendar date, no time component
	Close  float64
	Source string
}

// PriceSeries is a read-only close series for one stock, ascending by date.
type PriceSeries struct {
	Code   string
	Points []PricePoint
}

// Len returns the number of points in the series.
func (s PriceSeries) Len() int { return len(s.Points) }

// Tail returns the most recent n points (all points if fewer exist).
func (s PriceSeries) Tail(n int) PriceSeries {
	if len(s.Points) <= n {
		return s
	}
	return PriceSeries{Code: s.Code, Points: s.Points[len(s.Points)-n:]}
}

// ByDate indexes closes by their day key for date alignment.
func (s PriceSeries) ByDate() map[string]float64 {
	m := make(map[string]float64, len(s.Points))
	for _, p := range s.Points {
		m[DayKey(p.Date)] = p.Close
	}
	return m
}

// Day truncates a time to its calendar date in UTC.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DayKey formats a date the way the store persists it.
func DayKey(t time.Time) string {
	return t.Format("2006-01-02")
}
