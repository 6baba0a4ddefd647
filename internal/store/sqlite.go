package store

import (
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	"StockCorr/internal/model"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists the stock registry and price points to SQLite.
type SQLiteStore struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteStore opens (or creates) the database and runs migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, storageErr("open", err)
	}

	// WAL mode so correlation reads don't block a running update.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, storageErr("set WAL mode", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	log.Printf("[INFO] sqlite store opened: %s", dbPath)
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS stock_prices (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			symbol      TEXT NOT NULL,
			date        TEXT NOT NULL,
			close_price REAL NOT NULL,
			source      TEXT DEFAULT 'TWSE',
			created_at  TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(symbol, date)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_symbol_date ON stock_prices(symbol, date)`,
		`CREATE INDEX IF NOT EXISTS idx_date ON stock_prices(date)`,

		`CREATE TABLE IF NOT EXISTS stock_list (
			symbol      TEXT PRIMARY KEY,
			name        TEXT,
			market      TEXT,
			last_update TEXT,
			created_at  TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return storageErr("migrate", fmt.Errorf("exec %q: %w", stmt[:40], err))
		}
	}

	// Additive migration: databases created before provenance tracking lack
	// the source column. Alter in place; existing rows keep the old default.
	if _, err := s.db.Exec("SELECT source FROM stock_prices LIMIT 1"); err != nil {
		if _, err := s.db.Exec(
			`ALTER TABLE stock_prices ADD COLUMN source TEXT DEFAULT 'TWSE'`); err != nil {
			return storageErr("migrate source column", err)
		}
		log.Println("[INFO] added source column to stock_prices")
	}
	return nil
}

// upsertStockSQL backfills the name on change but never rewrites a market
// that is already set; a stock's market is fixed once known.
const upsertStockSQL = `INSERT INTO stock_list (symbol, name, market)
	VALUES (?, ?, ?)
	ON CONFLICT(symbol) DO UPDATE SET
		name   = CASE WHEN excluded.name != '' THEN excluded.name ELSE stock_list.name END,
		market = CASE WHEN stock_list.market = '' OR stock_list.market IS NULL
			THEN excluded.market ELSE stock_list.market END`

func (s *SQLiteStore) UpsertStock(stock model.Stock) error {
	return s.UpsertStocks([]model.Stock{stock})
}

func (s *SQLiteStore) UpsertStocks(stocks []model.Stock) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return storageErr("begin upsert stocks", err)
	}
	stmt, err := tx.Prepare(upsertStockSQL)
	if err != nil {
		tx.Rollback()
		return storageErr("prepare upsert stocks", err)
	}
	defer stmt.Close()

	for _, stock := range stocks {
		if _, err := stmt.Exec(stock.Code, stock.Name, string(stock.Market)); err != nil {
			tx.Rollback()
			return storageErr("upsert stock", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return storageErr("commit upsert stocks", err)
	}
	return nil
}

func (s *SQLiteStore) Stock(code string) (model.Stock, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var stock model.Stock
	var market string
	err := s.db.QueryRow(`SELECT symbol, name, market FROM stock_list WHERE symbol = ?`,
		code).Scan(&stock.Code, &stock.Name, &market)
	if err == sql.ErrNoRows {
		return model.Stock{}, false, nil
	}
	if err != nil {
		return model.Stock{}, false, storageErr("query stock", err)
	}
	stock.Market = model.Market(market)
	return stock, true, nil
}

func (s *SQLiteStore) Stocks() ([]model.Stock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`SELECT symbol, name, market FROM stock_list ORDER BY symbol`)
	if err != nil {
		return nil, storageErr("query stocks", err)
	}
	defer rows.Close()

	var stocks []model.Stock
	for rows.Next() {
		var stock model.Stock
		var market string
		if err := rows.Scan(&stock.Code, &stock.Name, &market); err != nil {
			return nil, storageErr("scan stock", err)
		}
		stock.Market = model.Market(market)
		stocks = append(stocks, stock)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate stocks", err)
	}
	return stocks, nil
}

func (s *SQLiteStore) UpsertPricePoints(code string, points []model.PricePoint) (int, int, error) {
	batch := make([]model.PricePoint, len(points))
	for i, p := range points {
		p.Code = code
		batch[i] = p
	}
	return s.UpsertPriceBatch(batch)
}

func (s *SQLiteStore) UpsertPriceBatch(points []model.PricePoint) (int, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return 0, 0, storageErr("begin upsert", err)
	}

	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO stock_prices (symbol, date, close_price, source)
		VALUES (?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return 0, 0, storageErr("prepare upsert", err)
	}
	defer stmt.Close()

	written, rejected := 0, 0
	for _, p := range points {
		if p.Close <= 0 {
			rejected++
			continue
		}
		if _, err := stmt.Exec(p.Code, model.DayKey(p.Date), p.Close, p.Source); err != nil {
			tx.Rollback()
			return 0, 0, storageErr("upsert price", err)
		}
		written++
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, storageErr("commit upsert", err)
	}
	return written, rejected, nil
}

func (s *SQLiteStore) LatestDate(code string) (time.Time, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var latest sql.NullString
	err := s.db.QueryRow(`SELECT MAX(date) FROM stock_prices WHERE symbol = ?`, code).Scan(&latest)
	if err != nil {
		return time.Time{}, false, storageErr("query latest date", err)
	}
	if !latest.Valid || latest.String == "" {
		return time.Time{}, false, nil
	}
	t, err := time.ParseInLocation("2006-01-02", latest.String, time.UTC)
	if err != nil {
		return time.Time{}, false, storageErr("parse latest date", err)
	}
	return t, true, nil
}

func (s *SQLiteStore) PriceSeries(code string, start, end time.Time) (model.PriceSeries, error) {
	return s.querySeries(code,
		`SELECT date, close_price, source FROM stock_prices
		 WHERE symbol = ? AND date >= ? AND date <= ?
		 ORDER BY date ASC`,
		code, model.DayKey(start), model.DayKey(end))
}

func (s *SQLiteStore) TailSeries(code string, limit int) (model.PriceSeries, error) {
	// Most recent rows first, then reversed to ascending.
	series, err := s.querySeries(code,
		`SELECT date, close_price, source FROM (
			SELECT date, close_price, source FROM stock_prices
			WHERE symbol = ? ORDER BY date DESC LIMIT ?
		 ) ORDER BY date ASC`,
		code, limit)
	if err != nil {
		return model.PriceSeries{}, err
	}
	return series, nil
}

func (s *SQLiteStore) querySeries(code, query string, args ...any) (model.PriceSeries, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	series := model.PriceSeries{Code: code}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return series, storageErr("query series", err)
	}
	defer rows.Close()

	for rows.Next() {
		var day, source string
		var close float64
		if err := rows.Scan(&day, &close, &source); err != nil {
			return series, storageErr("scan series", err)
		}
		date, err := time.ParseInLocation("2006-01-02", day, time.UTC)
		if err != nil {
			return series, storageErr("parse series date", err)
		}
		series.Points = append(series.Points, model.PricePoint{
			Code: code, Date: date, Close: close, Source: source,
		})
	}
	if err := rows.Err(); err != nil {
		return series, storageErr("iterate series", err)
	}
	return series, nil
}

func (s *SQLiteStore) TouchLastUpdate(code string, date time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(`UPDATE stock_list SET last_update = ? WHERE symbol = ?`,
		model.DayKey(date), code); err != nil {
		return storageErr("touch last update", err)
	}
	return nil
}

func (s *SQLiteStore) DeleteOlderThan(code string, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`DELETE FROM stock_prices WHERE symbol = ? AND date < ?`,
		code, model.DayKey(cutoff))
	if err != nil {
		return 0, storageErr("delete old prices", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (s *SQLiteStore) StockCount() (int, error) {
	return s.count(`SELECT COUNT(*) FROM stock_list`)
}

func (s *SQLiteStore) PriceRecordCount() (int, error) {
	return s.count(`SELECT COUNT(*) FROM stock_prices`)
}

func (s *SQLiteStore) count(query string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int
	if err := s.db.QueryRow(query).Scan(&n); err != nil {
		return 0, storageErr("count", err)
	}
	return n, nil
}

func (s *SQLiteStore) Close() error {
	log.Println("[INFO] closing sqlite store")
	return s.db.Close()
}
