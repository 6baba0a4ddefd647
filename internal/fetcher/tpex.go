package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// sampleSize is how many parsed rows are logged for operator confirmation of
// the feed's positional column order.
const sampleSize = 5

// TPEXFetcher implements FeedFetcher against the TPEX daily-quotes endpoint.
// The response nests positional rows: index 0 = stock code, 1 = name,
// 2 = closing price as a string (thousands separators possible).
type TPEXFetcher struct {
	BaseURL    string
	Client     *http.Client
	MaxRetries int
	limiter    *rate.Limiter
}

// NewTPEXFetcher creates a feed fetcher with optional proxy support.
func NewTPEXFetcher(baseURL, proxyURL string, spacing time.Duration, maxRetries int) *TPEXFetcher {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &TPEXFetcher{
		BaseURL:    baseURL,
		Client:     newHTTPClient(proxyURL, 10*time.Second),
		MaxRetries: maxRetries,
		limiter:    newLimiter(spacing),
	}
}

func (f *TPEXFetcher) Name() string { return "tpex" }

// feedResponse is the expected envelope of the daily-quotes endpoint.
type feedResponse struct {
	Tables []struct {
		Data [][]string `json:"data"`
	} `json:"tables"`
}

func (f *TPEXFetcher) FetchDailyQuotes(ctx context.Context, date time.Time) ([]Quote, error) {
	params := url.Values{}
	params.Set("date", date.Format("2006/01/02"))
	params.Set("id", "")
	params.Set("response", "json")
	u := f.BaseURL + "?" + params.Encode()

	body, err := f.get(ctx, u)
	if err != nil {
		return nil, err
	}

	var feed feedResponse
	if err := json.Unmarshal(body, &feed); err != nil {
		return nil, &ParseError{Source: f.Name(), Detail: fmt.Sprintf("decode: %v", err)}
	}
	if len(feed.Tables) == 0 || len(feed.Tables[0].Data) == 0 {
		// Non-trading day or date outside the published range.
		return nil, &NoDataError{Subject: date.Format("2006-01-02")}
	}

	quotes, err := parseFeedRows(feed.Tables[0].Data)
	if err != nil {
		return nil, err
	}

	// Diagnostic sample so an operator can spot positional schema drift.
	for i, q := range quotes {
		if i >= sampleSize {
			break
		}
		log.Printf("[INFO] feed sample %d/%d: code=%s name=%s close=%.2f",
			i+1, sampleSize, q.Code, q.Name, q.Close)
	}
	return quotes, nil
}

// parseFeedRows validates the positional schema. Rows quoting `-` as the
// close are the upstream's no-trade marker and are skipped; anything else
// that fails to parse poisons the whole response.
func parseFeedRows(rows [][]string) ([]Quote, error) {
	quotes := make([]Quote, 0, len(rows))
	for i, row := range rows {
		if len(row) < 3 {
			return nil, &ParseError{
				Source: "tpex",
				Detail: fmt.Sprintf("row %d has %d columns, want >= 3", i, len(row)),
			}
		}
		code := strings.TrimSpace(row[0])
		name := strings.TrimSpace(row[1])
		closeStr := strings.TrimSpace(row[2])

		if code == "" || closeStr == "" || closeStr == "-" || closeStr == "--" {
			continue
		}

		close, err := strconv.ParseFloat(strings.ReplaceAll(closeStr, ",", ""), 64)
		if err != nil {
			return nil, &ParseError{
				Source: "tpex",
				Detail: fmt.Sprintf("row %d (%s): close %q not numeric", i, code, closeStr),
			}
		}
		quotes = append(quotes, Quote{Code: code, Name: name, Close: close})
	}
	return quotes, nil
}

func (f *TPEXFetcher) get(ctx context.Context, u string) ([]byte, error) {
	var lastErr error
	for attempt := 1; attempt <= f.MaxRetries; attempt++ {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, &FetchError{URL: u, Attempts: attempt, Err: err}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, &FetchError{URL: u, Attempts: attempt, Err: err}
		}
		req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")

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
				lastErr = fmt.Errorf("status %d", resp.StatusCode)
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
