package store

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"StockCorr/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("open in-memory store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestUpsertPricePoints_Idempotent(t *testing.T) {
	s := newTestStore(t)

	p := model.PricePoint{Date: day(2024, 3, 1), Close: 580.5, Source: model.SourceYahoo}
	for i := 0; i < 2; i++ {
		written, rejected, err := s.UpsertPricePoints("2330", []model.PricePoint{p})
		if err != nil {
			t.Fatalf("upsert #%d: %v", i+1, err)
		}
		if written != 1 || rejected != 0 {
			t.Fatalf("upsert #%d: written=%d rejected=%d", i+1, written, rejected)
		}
	}

	n, err := s.PriceRecordCount()
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 row after repeated upsert, got %d", n)
	}
}

func TestUpsertPricePoints_ReplaceKeepsLatestValue(t *testing.T) {
	s := newTestStore(t)

	d := day(2024, 3, 1)
	if _, _, err := s.UpsertPricePoints("2330", []model.PricePoint{
		{Date: d, Close: 580.5, Source: model.SourceYahoo},
	}); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if _, _, err := s.UpsertPricePoints("2330", []model.PricePoint{
		{Date: d, Close: 581.0, Source: model.SourceExchangeEOD},
	}); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	series, err := s.PriceSeries("2330", d, d)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if series.Len() != 1 {
		t.Fatalf("expected 1 point, got %d", series.Len())
	}
	if series.Points[0].Close != 581.0 {
		t.Errorf("expected replaced close 581.0, got %.2f", series.Points[0].Close)
	}
	if series.Points[0].Source != model.SourceExchangeEOD {
		t.Errorf("expected source %s, got %s", model.SourceExchangeEOD, series.Points[0].Source)
	}
}

func TestUpsertPricePoints_RejectsNonPositive(t *testing.T) {
	s := newTestStore(t)

	written, rejected, err := s.UpsertPricePoints("2330", []model.PricePoint{
		{Date: day(2024, 3, 1), Close: 580.5, Source: model.SourceYahoo},
		{Date: day(2024, 3, 4), Close: 0, Source: model.SourceYahoo},
		{Date: day(2024, 3, 5), Close: -1.5, Source: model.SourceYahoo},
		{Date: day(2024, 3, 6), Close: 582.0, Source: model.SourceYahoo},
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if written != 2 {
		t.Errorf("expected 2 written, got %d", written)
	}
	if rejected != 2 {
		t.Errorf("expected 2 rejected, got %d", rejected)
	}

	// Valid rows in the same batch must still commit.
	n, _ := s.PriceRecordCount()
	if n != 2 {
		t.Errorf("expected 2 rows committed, got %d", n)
	}
}

func TestPriceSeries_EmptyRangeIsNotError(t *testing.T) {
	s := newTestStore(t)

	series, err := s.PriceSeries("2330", day(2024, 1, 1), day(2024, 1, 31))
	if err != nil {
		t.Fatalf("empty range should not error: %v", err)
	}
	if series.Len() != 0 {
		t.Errorf("expected empty series, got %d points", series.Len())
	}
}

func TestLatestDate(t *testing.T) {
	s := newTestStore(t)

	if _, ok, err := s.LatestDate("2330"); err != nil || ok {
		t.Fatalf("expected ok=false for unknown stock, got ok=%v err=%v", ok, err)
	}

	if _, _, err := s.UpsertPricePoints("2330", []model.PricePoint{
		{Date: day(2024, 3, 1), Close: 580.5, Source: model.SourceYahoo},
		{Date: day(2024, 3, 4), Close: 579.0, Source: model.SourceYahoo},
	}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	latest, ok, err := s.LatestDate("2330")
	if err != nil || !ok {
		t.Fatalf("expected ok=true, got ok=%v err=%v", ok, err)
	}
	if !latest.Equal(day(2024, 3, 4)) {
		t.Errorf("expected latest 2024-03-04, got %s", latest.Format("2006-01-02"))
	}
}

func TestTailSeries_AscendingOrder(t *testing.T) {
	s := newTestStore(t)

	var points []model.PricePoint
	for i := 1; i <= 10; i++ {
		points = append(points, model.PricePoint{
			Date: day(2024, 3, i), Close: 100 + float64(i), Source: model.SourceYahoo,
		})
	}
	if _, _, err := s.UpsertPricePoints("2330", points); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	series, err := s.TailSeries("2330", 3)
	if err != nil {
		t.Fatalf("tail: %v", err)
	}
	if series.Len() != 3 {
		t.Fatalf("expected 3 points, got %d", series.Len())
	}
	want := []float64{108, 109, 110}
	for i, w := range want {
		if series.Points[i].Close != w {
			t.Errorf("point %d: expected %.0f, got %.0f", i, w, series.Points[i].Close)
		}
	}
}

func TestUpsertStock_BackfillsNameAndEmptyMarket(t *testing.T) {
	s := newTestStore(t)

	if err := s.UpsertStock(model.Stock{Code: "2330"}); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if err := s.UpsertStock(model.Stock{Code: "2330", Name: "台積電", Market: model.MarketTWSE}); err != nil {
		t.Fatalf("backfill upsert: %v", err)
	}
	// An empty follow-up must not erase what is already there.
	if err := s.UpsertStock(model.Stock{Code: "2330"}); err != nil {
		t.Fatalf("empty upsert: %v", err)
	}

	stock, ok, err := s.Stock("2330")
	if err != nil || !ok {
		t.Fatalf("lookup: ok=%v err=%v", ok, err)
	}
	if stock.Name != "台積電" {
		t.Errorf("expected name kept, got %q", stock.Name)
	}
	if stock.Market != model.MarketTWSE {
		t.Errorf("expected market kept, got %q", stock.Market)
	}

	n, _ := s.StockCount()
	if n != 1 {
		t.Errorf("expected 1 registry row, got %d", n)
	}
}

func TestUpsertStock_MarketFixedOnceSet(t *testing.T) {
	s := newTestStore(t)

	if err := s.UpsertStock(model.Stock{Code: "2330", Name: "台積電", Market: model.MarketTWSE}); err != nil {
		t.Fatalf("register: %v", err)
	}
	// A later writer claiming a different market must not win.
	if err := s.UpsertStock(model.Stock{Code: "2330", Market: model.MarketTPEX}); err != nil {
		t.Fatalf("conflicting upsert: %v", err)
	}

	stock, ok, err := s.Stock("2330")
	if err != nil || !ok {
		t.Fatalf("lookup: ok=%v err=%v", ok, err)
	}
	if stock.Market != model.MarketTWSE {
		t.Errorf("expected market to stay TWSE, got %q", stock.Market)
	}
}

func TestUpsertStocks_Batch(t *testing.T) {
	s := newTestStore(t)

	if err := s.UpsertStocks([]model.Stock{
		{Code: "2330", Name: "台積電", Market: model.MarketTWSE},
		{Code: "6488", Name: "環球晶", Market: model.MarketTPEX},
	}); err != nil {
		t.Fatalf("batch upsert: %v", err)
	}

	n, _ := s.StockCount()
	if n != 2 {
		t.Errorf("expected 2 registry rows, got %d", n)
	}
	stock, ok, _ := s.Stock("6488")
	if !ok || stock.Name != "環球晶" {
		t.Errorf("expected 6488 registered, got %+v ok=%v", stock, ok)
	}
}

func TestUpsertPriceBatch_MultipleStocks(t *testing.T) {
	s := newTestStore(t)

	d := day(2024, 3, 6)
	written, rejected, err := s.UpsertPriceBatch([]model.PricePoint{
		{Code: "2330", Date: d, Close: 580.5, Source: model.SourceExchangeEOD},
		{Code: "6488", Date: d, Close: 120, Source: model.SourceExchangeEOD},
		{Code: "5555", Date: d, Close: 0, Source: model.SourceExchangeEOD},
	})
	if err != nil {
		t.Fatalf("batch upsert: %v", err)
	}
	if written != 2 || rejected != 1 {
		t.Errorf("expected written=2 rejected=1, got written=%d rejected=%d", written, rejected)
	}

	for code, want := range map[string]float64{"2330": 580.5, "6488": 120} {
		series, err := s.PriceSeries(code, d, d)
		if err != nil || series.Len() != 1 {
			t.Fatalf("%s: expected 1 point, got %d (err=%v)", code, series.Len(), err)
		}
		if series.Points[0].Close != want {
			t.Errorf("%s: expected close %.1f, got %.1f", code, want, series.Points[0].Close)
		}
	}
}

func TestDeleteOlderThan(t *testing.T) {
	s := newTestStore(t)

	if _, _, err := s.UpsertPricePoints("2330", []model.PricePoint{
		{Date: day(2024, 1, 2), Close: 570, Source: model.SourceYahoo},
		{Date: day(2024, 2, 1), Close: 575, Source: model.SourceYahoo},
		{Date: day(2024, 3, 1), Close: 580, Source: model.SourceYahoo},
	}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	removed, err := s.DeleteOlderThan("2330", day(2024, 2, 1))
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if removed != 1 {
		t.Errorf("expected 1 row removed, got %d", removed)
	}
	n, _ := s.PriceRecordCount()
	if n != 2 {
		t.Errorf("expected 2 rows left, got %d", n)
	}
}

func TestMigrate_AddsSourceColumnInPlace(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.db")

	// A database from before provenance tracking: no source column.
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open legacy db: %v", err)
	}
	if _, err := db.Exec(`CREATE TABLE stock_prices (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol      TEXT NOT NULL,
		date        TEXT NOT NULL,
		close_price REAL NOT NULL,
		created_at  TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(symbol, date)
	)`); err != nil {
		t.Fatalf("create legacy table: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO stock_prices (symbol, date, close_price)
		VALUES ('2330', '2024-03-01', 580.5)`); err != nil {
		t.Fatalf("insert legacy row: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("close legacy db: %v", err)
	}

	s, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("open store over legacy db: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	series, err := s.PriceSeries("2330", day(2024, 3, 1), day(2024, 3, 1))
	if err != nil {
		t.Fatalf("read migrated row: %v", err)
	}
	if series.Len() != 1 {
		t.Fatalf("expected legacy row to survive migration, got %d rows", series.Len())
	}
	if series.Points[0].Close != 580.5 {
		t.Errorf("expected close 580.5, got %.2f", series.Points[0].Close)
	}
	if series.Points[0].Source != model.SourceLegacy {
		t.Errorf("expected legacy default source %q, got %q", model.SourceLegacy, series.Points[0].Source)
	}
}

func TestStorageError_Unwrap(t *testing.T) {
	inner := errors.New("disk full")
	err := storageErr("upsert price", inner)

	var se *StorageError
	if !errors.As(err, &se) {
		t.Fatal("expected *StorageError")
	}
	if !errors.Is(err, inner) {
		t.Error("expected wrapped error to survive Unwrap")
	}
}
