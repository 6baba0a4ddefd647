package fetcher

import (
	"context"
	"time"

	"StockCorr/internal/model"
)

// MockTickerFetcher returns controllable fixed data for development and testing.
type MockTickerFetcher struct {
	Closes  map[string][]DailyClose // keyed by full ticker
	Market  model.Market            // ResolveMarket answer for any code
	Err     error
	Fetched []string // tickers requested, in order
}

func (m *MockTickerFetcher) Name() string { return "mock" }

func (m *MockTickerFetcher) FetchDailyCloses(_ context.Context, ticker string, start, end time.Time) ([]DailyClose, error) {
	m.Fetched = append(m.Fetched, ticker)
	if m.Err != nil {
		return nil, m.Err
	}
	var out []DailyClose
	for _, c := range m.Closes[ticker] {
		if c.Date.Before(model.Day(start)) || c.Date.After(model.Day(end)) {
			continue
		}
		out = append(out, c)
	}
	if len(out) == 0 {
		return nil, &NoDataError{Subject: ticker}
	}
	return out, nil
}

func (m *MockTickerFetcher) ResolveMarket(_ context.Context, code string) (model.Market, error) {
	if m.Market == "" {
		return "", &NoDataError{Subject: code}
	}
	return m.Market, nil
}

// MockFeedFetcher serves canned exchange-feed quotes keyed by date.
type MockFeedFetcher struct {
	Quotes map[string][]Quote // keyed by "2006-01-02"
	Err    error
}

func (m *MockFeedFetcher) Name() string { return "mock-feed" }

func (m *MockFeedFetcher) FetchDailyQuotes(_ context.Context, date time.Time) ([]Quote, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	quotes, ok := m.Quotes[model.DayKey(date)]
	if !ok || len(quotes) == 0 {
		return nil, &NoDataError{Subject: model.DayKey(date)}
	}
	return quotes, nil
}
