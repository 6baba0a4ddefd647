package fetcher

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"StockCorr/internal/model"

	"golang.org/x/time/rate"
)

// DailyClose is one normalized (trading date, closing price) sample.
type DailyClose struct {
	Date  time.Time
	Close float64
}

// Quote is one row of the exchange end-of-day feed.
type Quote struct {
	Code  string
	Name  string
	Close float64
}

// TickerFetcher fetches one stock's daily close series from the
// general-purpose provider, keyed by full ticker (code + market suffix).
type TickerFetcher interface {
	// FetchDailyCloses returns closes in [start, end], ascending by date.
	FetchDailyCloses(ctx context.Context, ticker string, start, end time.Time) ([]DailyClose, error)
	// ResolveMarket probes which market a bare code trades under.
	ResolveMarket(ctx context.Context, code string) (model.Market, error)
	Name() string
}

// FeedFetcher fetches the entire market's end-of-day quotes for one date.
type FeedFetcher interface {
	FetchDailyQuotes(ctx context.Context, date time.Time) ([]Quote, error)
	Name() string
}

func newHTTPClient(proxyURL string, timeout time.Duration) *http.Client {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &http.Client{Timeout: timeout, Transport: transport}
}

// newLimiter builds a limiter enforcing the minimum spacing between calls.
func newLimiter(spacing time.Duration) *rate.Limiter {
	if spacing <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(spacing), 1)
}
