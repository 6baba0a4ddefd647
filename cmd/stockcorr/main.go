package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"StockCorr/internal/calendar"
	"StockCorr/internal/config"
	"StockCorr/internal/correlation"
	"StockCorr/internal/fetcher"
	"StockCorr/internal/model"
	"StockCorr/internal/report"
	"StockCorr/internal/scheduler"
	"StockCorr/internal/store"
	"StockCorr/internal/updater"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	var (
		updateFlag = flag.Bool("update", false, "incrementally update all configured stocks")
		feedDate   = flag.String("feed", "", "exchange-feed update for one date (YYYY/MM/DD)")
		feedDays   = flag.Int("feed-days", 0, "exchange-feed update for the last N days")
		pairFlag   = flag.String("pair", "", "pair correlation, two codes comma separated (e.g. 2330,2317)")
		rankFlag   = flag.String("rank", "", "rank stocks most correlated with this code")
		topFlag    = flag.Int("top", 0, "result count for -rank (default from config)")
		daemonFlag = flag.Bool("daemon", false, "stay alive and refresh on the daily cron")
	)
	flag.Parse()

	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("[FATAL] load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[FATAL] config validation: %v", err)
	}

	// Init store
	st, err := store.NewSQLiteStore(cfg.Database.SQLitePath)
	if err != nil {
		log.Fatalf("[FATAL] open store: %v", err)
	}
	defer st.Close()

	// Init fetchers and core components
	cal := calendar.NewTaiwan()
	ticker := fetcher.NewYahooFetcher(cfg.DataSource.YahooBaseURL, cfg.Proxy, cfg.MinSpacing(), cfg.Update.MaxRetries)
	feed := fetcher.NewTPEXFetcher(cfg.DataSource.FeedBaseURL, cfg.Proxy, cfg.MinSpacing(), cfg.Update.MaxRetries)
	resolver := updater.NewResolver(cal, cfg.Update.LookbackDays, cfg.Update.PaddingDays, cfg.Update.FreshnessDays)
	up := updater.New(st, ticker, feed, resolver, cfg.Update.Workers, cfg.Update.KeepDays)
	engine := correlation.NewEngine(st, cfg.Correlation.Windows, cfg.Correlation.MinCoverage)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	switch {
	case *pairFlag != "":
		parts := strings.Split(*pairFlag, ",")
		if len(parts) != 2 {
			log.Fatalf("[FATAL] -pair wants two codes, got %q", *pairFlag)
		}
		result, err := engine.PairCorrelation(strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]))
		if err != nil {
			exitCorrelationError(err)
		}
		fmt.Println(report.FormatPairResult(result))

	case *rankFlag != "":
		topN := *topFlag
		if topN <= 0 {
			topN = cfg.Correlation.TopN
		}
		results, err := engine.FindCorrelated(*rankFlag, topN)
		if err != nil {
			exitCorrelationError(err)
		}
		fmt.Println(report.FormatRanking(*rankFlag, results, cfg.Correlation.Windows))

	case *feedDate != "":
		day, err := time.Parse("2006/01/02", *feedDate)
		if err != nil {
			log.Fatalf("[FATAL] -feed wants YYYY/MM/DD, got %q", *feedDate)
		}
		summary, err := up.UpdateFromExchangeFeed(ctx, day)
		if err != nil {
			log.Fatalf("[FATAL] exchange feed update: %v", err)
		}
		fmt.Println(report.FormatUpdateSummary(summary))
		printStats(st)

	case *feedDays > 0:
		summary, err := up.UpdateFeedLastDays(ctx, *feedDays)
		if err != nil {
			log.Fatalf("[FATAL] exchange feed range update: %v", err)
		}
		fmt.Println(report.FormatUpdateSummary(summary))
		printStats(st)

	case *updateFlag:
		ids := make([]string, 0, len(cfg.Stocks))
		for _, entry := range cfg.Stocks {
			code, market, _ := model.SplitSymbol(entry.Code)
			if err := st.UpsertStock(model.Stock{Code: code, Name: entry.Name, Market: market}); err != nil {
				log.Fatalf("[FATAL] register %s: %v", code, err)
			}
			ids = append(ids, entry.Code)
		}
		if len(ids) == 0 {
			log.Fatal("[FATAL] no stocks configured; add a stocks: list to the config")
		}
		summary := up.UpdateAll(ctx, ids)
		fmt.Println(report.FormatUpdateSummary(summary))
		printStats(st)

	case *daemonFlag:
		sched := scheduler.NewScheduler(ctx, st, up, cfg.Stocks)
		if err := sched.Register(cfg.Schedule.DailyCron); err != nil {
			log.Fatalf("[FATAL] register cron tasks: %v", err)
		}
		sched.Start()
		defer sched.Stop()

		if os.Getenv("RUN_ON_START") == "true" {
			log.Println("[INFO] RUN_ON_START enabled, executing daily refresh now")
			go sched.RunDailyNow()
		}

		log.Println("[INFO] StockCorr daemon running. Press Ctrl+C to stop.")
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Println("[INFO] shutdown signal received, stopping...")
		cancel()

	default:
		flag.Usage()
	}
}

// exitCorrelationError prints a message that tells caller misuse, missing
// data, and real failures apart.
func exitCorrelationError(err error) {
	var invalid *correlation.InvalidInputError
	var noSeries *correlation.NoSeriesError
	switch {
	case errors.As(err, &invalid):
		log.Fatalf("[FATAL] %v (自我相關恆為 1.0，請提供兩個不同的股票代碼)", err)
	case errors.As(err, &noSeries):
		log.Fatalf("[FATAL] %v (請先執行 -update 或 -feed 取得資料)", err)
	default:
		log.Fatalf("[FATAL] correlation query: %v", err)
	}
}

func printStats(st store.Store) {
	stocks, err1 := st.StockCount()
	records, err2 := st.PriceRecordCount()
	if err1 != nil || err2 != nil {
		return
	}
	fmt.Println(report.FormatStoreStats(stocks, records))
}
