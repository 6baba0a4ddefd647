package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"StockCorr/internal/model"

	"golang.org/x/time/rate"
)

// YahooFetcher implements TickerFetcher using the Yahoo Finance chart API.
type YahooFetcher struct {
	BaseURL    string
	Client     *http.Client
	MaxRetries int
	limiter    *rate.Limiter
}

// NewYahooFetcher creates a fetcher with optional proxy support. spacing is
// the minimum interval between upstream calls.
func NewYahooFetcher(baseURL, proxyURL string, spacing time.Duration, maxRetries int) *YahooFetcher {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &YahooFetcher{
		BaseURL:    baseURL,
		Client:     newHTTPClient(proxyURL, 30*time.Second),
		MaxRetries: maxRetries,
		limiter:    newLimiter(spacing),
	}
}

func (f *YahooFetcher) Name() string { return "yahoo" }

// yahooChart is the response structure from the chart API.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []interface{} `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func toFloat(v interface{}) float64 {
	if v == nil {
		return 0
	}
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	default:
		return 0
	}
}

func (f *YahooFetcher) FetchDailyCloses(ctx context.Context, ticker string, start, end time.Time) ([]DailyClose, error) {
	// period2 is exclusive upstream; push it one day past end.
	u := fmt.Sprintf("%s/v8/finance/chart/%s?interval=1d&period1=%d&period2=%d",
		f.BaseURL, url.PathEscape(ticker),
		model.Day(start).Unix(), model.Day(end).AddDate(0, 0, 1).Unix())

	body, err := f.get(ctx, u)
	if err != nil {
		return nil, err
	}

	var chart yahooChart
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, &ParseError{Source: f.Name(), Detail: fmt.Sprintf("decode chart: %v", err)}
	}
	if chart.Chart.Error != nil {
		return nil, &NoDataError{Subject: ticker}
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Timestamp) == 0 {
		return nil, &NoDataError{Subject: ticker}
	}

	result := chart.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return nil, &NoDataError{Subject: ticker}
	}
	quote := result.Indicators.Quote[0]
	if len(quote.Close) != len(result.Timestamp) {
		return nil, &ParseError{
			Source: f.Name(),
			Detail: fmt.Sprintf("close count %d != timestamp count %d", len(quote.Close), len(result.Timestamp)),
		}
	}

	closes := make([]DailyClose, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		c := toFloat(quote.Close[i])
		if c == 0 {
			continue // null bar (holiday etc.)
		}
		closes = append(closes, DailyClose{Date: model.Day(time.Unix(ts, 0).UTC()), Close: c})
	}
	if len(closes) == 0 {
		return nil, &NoDataError{Subject: ticker}
	}

	sort.Slice(closes, func(i, j int) bool { return closes[i].Date.Before(closes[j].Date) })
	return closes, nil
}

// ResolveMarket probes a bare code as listed (.TW) first, then OTC (.TWO),
// and reports the first market that returns data.
func (f *YahooFetcher) ResolveMarket(ctx context.Context, code string) (model.Market, error) {
	end := time.Now()
	start := end.AddDate(0, 0, -7)

	for _, market := range []model.Market{model.MarketTWSE, model.MarketTPEX} {
		_, err := f.FetchDailyCloses(ctx, code+market.Suffix(), start, end)
		if err == nil {
			return market, nil
		}
		if _, noData := err.(*NoDataError); noData {
			continue
		}
		return "", err
	}
	return "", &NoDataError{Subject: code}
}

// get performs a rate-limited GET with bounded retries and backoff.
func (f *YahooFetcher) get(ctx context.Context, u string) ([]byte, error) {
	var lastErr error
	for attempt := 1; attempt <= f.MaxRetries; attempt++ {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, &FetchError{URL: u, Attempts: attempt, Err: err}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, &FetchError{URL: u, Attempts: attempt, Err: err}
		}
		req.Header.Set("User-Agent", "Mozilla/5.0")

		resp, err := f.Client.Do(req)
		if err != nil {
			lastErr = err
		} else {
			body, readErr := io.ReadAll(resp.Body)
			resp.Body.Close()
			switch {
			case readErr != nil:
				lastErr = readErr
			case resp.StatusCode == http.StatusOK:
				return body, nil
			default:
				lastErr = fmt.Errorf("status %d: %s", resp.StatusCode, string(body))
				if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
					return nil, &FetchError{URL: u, Attempts: attempt, Err: lastErr}
				}
			}
		}

		if attempt < f.MaxRetries {
			if err := sleepCtx(ctx, time.Duration(attempt)*time.Second); err != nil {
				return nil, &FetchError{URL: u, Attempts: attempt, Err: err}
			}
		}
	}
	return nil, &FetchError{URL: u, Attempts: f.MaxRetries, Err: lastErr}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
