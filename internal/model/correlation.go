package model

// WindowCorrelation is the Pearson coefficient over one trailing window of
// trading days. Sufficient reports whether enough aligned data existed; when
// false the coefficient is forced to 0.0.
type WindowCorrelation struct {
	Window      int
	Coefficient float64
	Sufficient  bool
}

// CorrelationResult is the outcome of correlating one stock pair, ordered
// longest window first. Transient; never persisted.
type CorrelationResult struct {
	Code1   string
	Code2   string
	Name1   string
	Name2   string
	Windows []WindowCorrelation
}

// Coefficient returns the coefficient for the given window length, or 0 if
// that window was not computed.
func (r CorrelationResult) Coefficient(window int) float64 {
	for _, w := range r.Windows {
		if w.Window == window {
			return w.Coefficient
		}
	}
	return 0
}
