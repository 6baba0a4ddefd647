// Package correlation computes multi-window Pearson correlation over stored
// price series. The engine only reads from the store; it never fetches.
package correlation

import (
	"fmt"
	"sort"

	"StockCorr/internal/model"
	"StockCorr/internal/store"
)

// InvalidInputError is caller-level misuse of a correlation query.
type InvalidInputError struct {
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid input: %s", e.Reason)
}

// NoSeriesError means no stored price data exists for a stock; distinct from
// both caller misuse and a computation failure.
type NoSeriesError struct {
	Code string
}

func (e *NoSeriesError) Error() string {
	return fmt.Sprintf("no price data stored for %s", e.Code)
}

// Engine computes pair and one-vs-many correlations.
type Engine struct {
	Store       store.Store
	Windows     []int   // trading-day lookbacks, longest first
	MinCoverage float64 // aligned-data fraction below which a window is insufficient
}

// NewEngine builds an engine over the given store and policy values.
func NewEngine(st store.Store, windows []int, minCoverage float64) *Engine {
	return &Engine{Store: st, Windows: windows, MinCoverage: minCoverage}
}

func (e *Engine) maxWindow() int {
	max := 0
	for _, w := range e.Windows {
		if w > max {
			max = w
		}
	}
	return max
}

// PairCorrelation correlates two stocks over every configured window.
// Self-correlation is rejected: it is definitionally 1.0 and a query for it
// almost always means a typo.
func (e *Engine) PairCorrelation(id1, id2 string) (model.CorrelationResult, error) {
	code1, _, _ := model.SplitSymbol(id1)
	code2, _, _ := model.SplitSymbol(id2)
	if code1 == code2 {
		return model.CorrelationResult{}, &InvalidInputError{
			Reason: fmt.Sprintf("identical stock identifiers %q", code1),
		}
	}

	s1, err := e.Store.TailSeries(code1, e.maxWindow())
	if err != nil {
		return model.CorrelationResult{}, err
	}
	if s1.Len() == 0 {
		return model.CorrelationResult{}, &NoSeriesError{Code: code1}
	}
	s2, err := e.Store.TailSeries(code2, e.maxWindow())
	if err != nil {
		return model.CorrelationResult{}, err
	}
	if s2.Len() == 0 {
		return model.CorrelationResult{}, &NoSeriesError{Code: code2}
	}

	result := e.correlate(s1, s2)
	result.Name1, result.Name2 = e.lookupName(code1), e.lookupName(code2)
	return result, nil
}

// FindCorrelated correlates the reference stock against every other known
// stock and returns the topN results ranked by the multi-level sort key:
// longest-window coefficient first, each shorter window only breaking ties
// left by the previous one.
func (e *Engine) FindCorrelated(referenceID string, topN int) ([]model.CorrelationResult, error) {
	ref, _, _ := model.SplitSymbol(referenceID)

	refSeries, err := e.Store.TailSeries(ref, e.maxWindow())
	if err != nil {
		return nil, err
	}
	if refSeries.Len() == 0 {
		return nil, &NoSeriesError{Code: ref}
	}
	refName := e.lookupName(ref)

	stocks, err := e.Store.Stocks()
	if err != nil {
		return nil, err
	}

	var results []model.CorrelationResult
	for _, stock := range stocks {
		if stock.Code == ref {
			continue
		}
		series, err := e.Store.TailSeries(stock.Code, e.maxWindow())
		if err != nil {
			return nil, err
		}
		if series.Len() == 0 {
			continue
		}

		result := e.correlate(refSeries, series)
		if !anySufficient(result.Windows) {
			continue
		}
		result.Name1 = refName
		result.Name2 = stock.Name
		results = append(results, result)
	}

	sort.SliceStable(results, func(i, j int) bool {
		for _, w := range e.Windows {
			ci, cj := results[i].Coefficient(w), results[j].Coefficient(w)
			if ci != cj {
				return ci > cj
			}
		}
		return false
	})

	if topN > 0 && len(results) > topN {
		results = results[:topN]
	}
	return results, nil
}

func (e *Engine) correlate(s1, s2 model.PriceSeries) model.CorrelationResult {
	result := model.CorrelationResult{Code1: s1.Code, Code2: s2.Code}
	for _, w := range e.Windows {
		coeff, sufficient := e.windowCorrelation(s1, s2, w)
		result.Windows = append(result.Windows, model.WindowCorrelation{
			Window:      w,
			Coefficient: coeff,
			Sufficient:  sufficient,
		})
	}
	return result
}

// windowCorrelation aligns both series on shared dates over the trailing
// window. Below the coverage threshold the coefficient is reported as 0.0
// instead of a statistically noisy value.
func (e *Engine) windowCorrelation(s1, s2 model.PriceSeries, window int) (float64, bool) {
	required := e.MinCoverage * float64(window)

	t1 := s1.Tail(window)
	t2 := s2.Tail(window)
	if float64(t1.Len()) < required || float64(t2.Len()) < required {
		return 0, false
	}

	other := t2.ByDate()
	xs := make([]float64, 0, t1.Len())
	ys := make([]float64, 0, t1.Len())
	for _, p := range t1.Points {
		if y, ok := other[model.DayKey(p.Date)]; ok {
			xs = append(xs, p.Close)
			ys = append(ys, y)
		}
	}
	if float64(len(xs)) < required {
		return 0, false
	}

	return Pearson(xs, ys), true
}

func (e *Engine) lookupName(code string) string {
	stock, found, err := e.Store.Stock(code)
	if err != nil || !found {
		return ""
	}
	return stock.Name
}

func anySufficient(windows []model.WindowCorrelation) bool {
	for _, w := range windows {
		if w.Sufficient {
			return true
		}
	}
	return false
}
