// Package updater orchestrates gap resolution, remote fetching, and store
// writes to keep price series current without redundant network calls.
package updater

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"StockCorr/internal/fetcher"
	"StockCorr/internal/model"
	"StockCorr/internal/store"
)

// Updater brings one or many stocks up to date. The correlation engine never
// fetches; this is the only component issuing remote calls.
type Updater struct {
	Store    store.Store
	Ticker   fetcher.TickerFetcher
	Feed     fetcher.FeedFetcher
	Resolver *Resolver
	Workers  int
	KeepDays int // retention horizon for CleanOldData
}

// New wires an updater with the given collaborators.
func New(st store.Store, ticker fetcher.TickerFetcher, feed fetcher.FeedFetcher, resolver *Resolver, workers, keepDays int) *Updater {
	if workers <= 0 {
		workers = 1
	}
	return &Updater{
		Store:    st,
		Ticker:   ticker,
		Feed:     feed,
		Resolver: resolver,
		Workers:  workers,
		KeepDays: keepDays,
	}
}

// UpdateStock incrementally refreshes one stock via the ticker-indexed path.
// The identifier may be a bare code ("2330") or carry a market suffix
// ("2330.TW"); bare codes not yet registered are probed against the provider.
func (u *Updater) UpdateStock(ctx context.Context, identifier string) (model.UpdateSummary, error) {
	var summary model.UpdateSummary

	code, market, hasSuffix := model.SplitSymbol(identifier)

	registered, found, err := u.Store.Stock(code)
	if err != nil {
		return summary, err
	}
	switch {
	case found && registered.Market != "":
		market = registered.Market
	case hasSuffix:
		// keep the caller-supplied market
	default:
		market, err = u.Ticker.ResolveMarket(ctx, code)
		if err != nil {
			return summary, fmt.Errorf("resolve market for %s: %w", code, err)
		}
	}

	latest, hasData, err := u.Store.LatestDate(code)
	if err != nil {
		return summary, err
	}

	gap := u.Resolver.Resolve(latest, hasData)
	if gap.Empty {
		summary.Skipped = 1
		return summary, nil
	}

	closes, err := u.Ticker.FetchDailyCloses(ctx, code+market.Suffix(), gap.Start, gap.End)
	if err != nil {
		return summary, err
	}

	points := make([]model.PricePoint, len(closes))
	for i, c := range closes {
		points[i] = model.PricePoint{
			Code:   code,
			Date:   c.Date,
			Close:  c.Close,
			Source: model.SourceYahoo,
		}
	}

	// Register on first successful fetch; name arrives later via the feed
	// path or caller-supplied config.
	if !found || registered.Market == "" {
		if err := u.Store.UpsertStock(model.Stock{Code: code, Market: market}); err != nil {
			return summary, err
		}
	}

	written, rejected, err := u.Store.UpsertPricePoints(code, points)
	if err != nil {
		return summary, err
	}
	if err := u.Store.TouchLastUpdate(code, model.Day(u.Resolver.Now())); err != nil {
		return summary, err
	}

	summary.Fetched = written
	summary.Rejected = rejected
	return summary, nil
}

// UpdateAll applies UpdateStock to each identifier with a bounded worker
// pool, one stock per task so writes for distinct stocks never interleave on
// the same key. A failure on one stock is recorded and never aborts the
// batch. Cancelling the context stops further stocks from being issued; a
// fetch in flight runs to completion.
func (u *Updater) UpdateAll(ctx context.Context, identifiers []string) model.UpdateSummary {
	var (
		agg  model.UpdateSummary
		mu   sync.Mutex
		wg   sync.WaitGroup
		jobs = make(chan string)
	)

	for i := 0; i < u.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range jobs {
				summary, err := u.UpdateStock(ctx, id)
				mu.Lock()
				if err != nil {
					agg.Failed++
					agg.RecordError(id, err)
					log.Printf("[ERROR] update %s: %v", id, err)
				} else {
					agg.Merge(summary)
				}
				mu.Unlock()
			}
		}()
	}

feed:
	for _, id := range identifiers {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- id:
		}
	}
	close(jobs)
	wg.Wait()

	log.Printf("[INFO] batch update done: fetched=%d skipped=%d rejected=%d failed=%d",
		agg.Fetched, agg.Skipped, agg.Rejected, agg.Failed)
	return agg
}

// UpdateFromExchangeFeed writes one date's whole-market quotes in a single
// batch, tagged with the feed's identity. This is the only path that
// auto-registers stocks not previously known. Parse errors invalidate the
// whole response and nothing is committed.
func (u *Updater) UpdateFromExchangeFeed(ctx context.Context, date time.Time) (model.UpdateSummary, error) {
	var summary model.UpdateSummary

	quotes, err := u.Feed.FetchDailyQuotes(ctx, date)
	if err != nil {
		return summary, err
	}

	day := model.Day(date)
	stocks := make([]model.Stock, len(quotes))
	points := make([]model.PricePoint, len(quotes))
	for i, q := range quotes {
		stocks[i] = model.Stock{Code: q.Code, Name: q.Name, Market: model.MarketTPEX}
		points[i] = model.PricePoint{
			Code:   q.Code,
			Date:   day,
			Close:  q.Close,
			Source: model.SourceExchangeEOD,
		}
	}
	if err := u.Store.UpsertStocks(stocks); err != nil {
		return summary, err
	}
	written, rejected, err := u.Store.UpsertPriceBatch(points)
	if err != nil {
		return summary, err
	}
	summary.Fetched = written
	summary.Rejected = rejected

	log.Printf("[INFO] exchange feed %s: wrote %d quotes (%d rejected)",
		model.DayKey(day), summary.Fetched, summary.Rejected)
	return summary, nil
}

// UpdateFeedRange runs the exchange-feed path for each trading day in the
// inclusive range. Days the feed has no data for are skipped silently;
// parse and storage failures surface immediately with whatever the summary
// already accumulated.
func (u *Updater) UpdateFeedRange(ctx context.Context, start, end time.Time) (model.UpdateSummary, error) {
	var agg model.UpdateSummary

	for d := model.Day(start); !d.After(model.Day(end)); d = d.AddDate(0, 0, 1) {
		if err := ctx.Err(); err != nil {
			return agg, err
		}
		if !u.Resolver.Cal.IsTradingDay(d) {
			continue
		}
		summary, err := u.UpdateFromExchangeFeed(ctx, d)
		if err != nil {
			var noData *fetcher.NoDataError
			if errors.As(err, &noData) {
				continue
			}
			return agg, err
		}
		agg.Merge(summary)
	}
	return agg, nil
}

// UpdateFeedLastDays runs the exchange-feed path over the last n calendar
// days ending today, inclusive, so n=1 covers today only.
func (u *Updater) UpdateFeedLastDays(ctx context.Context, n int) (model.UpdateSummary, error) {
	if n < 1 {
		n = 1
	}
	end := model.Day(u.Resolver.Now())
	return u.UpdateFeedRange(ctx, end.AddDate(0, 0, -(n-1)), end)
}

// CleanOldData drops price rows older than the retention horizon for one
// stock. The extra month of slack mirrors the fetch padding.
func (u *Updater) CleanOldData(code string) (int64, error) {
	cutoff := model.Day(u.Resolver.Now()).AddDate(0, 0, -(u.KeepDays + 30))
	return u.Store.DeleteOlderThan(code, cutoff)
}
