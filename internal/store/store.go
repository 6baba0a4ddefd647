package store

import (
	"fmt"
	"time"

	"StockCorr/internal/model"
)

// Store is the persistence contract for the stock registry and price series.
// The (code, date) uniqueness key is enforced by the store itself, not by
// caller discipline. All other components read and write prices only through
// this interface.
type Store interface {
	// UpsertStock inserts the stock if absent and backfills the name if a
	// non-empty one is supplied. The market is set once and never changed
	// by later writes. Idempotent.
	UpsertStock(stock model.Stock) error

	// UpsertStocks applies UpsertStock semantics to a batch in one
	// transaction.
	UpsertStocks(stocks []model.Stock) error

	// Stock looks up one registry entry by bare code.
	Stock(code string) (model.Stock, bool, error)

	// Stocks returns all registry entries ordered by code.
	Stocks() ([]model.Stock, error)

	// UpsertPricePoints writes a batch for one stock. A point for an
	// already-stored date replaces the prior row. Points with a non-positive
	// close are rejected and counted without aborting the batch.
	UpsertPricePoints(code string, points []model.PricePoint) (written, rejected int, err error)

	// UpsertPriceBatch writes points for many stocks, keyed by each
	// point's own code, in a single transaction.
	UpsertPriceBatch(points []model.PricePoint) (written, rejected int, err error)

	// LatestDate returns the most recent stored trading date for the stock.
	// ok is false when no data exists yet.
	LatestDate(code string) (latest time.Time, ok bool, err error)

	// PriceSeries returns stored points in [start, end] ascending by date.
	// An empty series is not an error.
	PriceSeries(code string, start, end time.Time) (model.PriceSeries, error)

	// TailSeries returns the most recent limit points ascending by date.
	TailSeries(code string, limit int) (model.PriceSeries, error)

	// TouchLastUpdate records when the stock was last refreshed.
	TouchLastUpdate(code string, date time.Time) error

	// DeleteOlderThan removes price rows strictly before cutoff for one stock.
	DeleteOlderThan(code string, cutoff time.Time) (int64, error)

	// StockCount and PriceRecordCount are diagnostics counters.
	StockCount() (int, error)
	PriceRecordCount() (int, error)

	Close() error
}

// StorageError wraps a persistence-layer failure. Storage errors are always
// fatal for the operation that hit them.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func storageErr(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}
