// Package scheduler runs the daily refresh when the process is kept alive in
// daemon mode.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"StockCorr/internal/config"
	"StockCorr/internal/model"
	"StockCorr/internal/report"
	"StockCorr/internal/store"
	"StockCorr/internal/updater"

	"github.com/robfig/cron/v3"
)

// Scheduler manages the cron-driven refresh tasks.
type Scheduler struct {
	Cron    *cron.Cron
	Store   store.Store
	Updater *updater.Updater
	Stocks  []config.StockEntry
	Ctx     context.Context
}

// NewScheduler creates a scheduler over the configured stock list.
func NewScheduler(ctx context.Context, st store.Store, up *updater.Updater, stocks []config.StockEntry) *Scheduler {
	return &Scheduler{
		Cron:    cron.New(cron.WithSeconds()),
		Store:   st,
		Updater: up,
		Stocks:  stocks,
		Ctx:     ctx,
	}
}

// Register registers the daily refresh task.
func (s *Scheduler) Register(dailyCron string) error {
	if _, err := s.Cron.AddFunc(dailyCron, s.dailyRefresh); err != nil {
		return fmt.Errorf("register daily refresh: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Println("[INFO] scheduler started")
}

// Stop stops the cron scheduler gracefully.
func (s *Scheduler) Stop() {
	s.Cron.Stop()
	log.Println("[INFO] scheduler stopped")
}

// RunDailyNow executes the daily refresh immediately (manual trigger).
func (s *Scheduler) RunDailyNow() {
	s.dailyRefresh()
}

func (s *Scheduler) dailyRefresh() {
	log.Println("[INFO] running daily refresh")

	// Seed the registry with the caller-supplied names so rankings display
	// them even before the feed path fills names in.
	ids := make([]string, 0, len(s.Stocks))
	for _, entry := range s.Stocks {
		code, market, _ := model.SplitSymbol(entry.Code)
		if err := s.Store.UpsertStock(model.Stock{Code: code, Name: entry.Name, Market: market}); err != nil {
			log.Printf("[ERROR] register %s: %v", code, err)
			continue
		}
		ids = append(ids, entry.Code)
	}

	summary := s.Updater.UpdateAll(s.Ctx, ids)

	// OTC coverage comes from the exchange feed in one call for the day.
	if _, err := s.Updater.UpdateFromExchangeFeed(s.Ctx, time.Now()); err != nil {
		log.Printf("[WARN] exchange feed refresh: %v", err)
	}

	for _, entry := range s.Stocks {
		code, _, _ := model.SplitSymbol(entry.Code)
		if _, err := s.Updater.CleanOldData(code); err != nil {
			log.Printf("[ERROR] cleanup %s: %v", code, err)
		}
	}

	log.Printf("[INFO] daily refresh done\n%s", report.FormatUpdateSummary(summary))

	stocks, err1 := s.Store.StockCount()
	records, err2 := s.Store.PriceRecordCount()
	if err1 == nil && err2 == nil {
		log.Printf("[INFO] %s", report.FormatStoreStats(stocks, records))
	}
}
