package model

// UpdateSummary reports the outcome of one update operation. For a batch the
// counters are aggregates and Errors records per-stock failures keyed by code.
type UpdateSummary struct {
	Fetched  int // price points written to the store
	Skipped  int // stocks already up to date (empty gap)
	Rejected int // rows the store refused (non-positive price)
	Failed   int // stocks whose update errored
	Errors   map[string]error
}

// Merge folds another summary into this one.
func (s *UpdateSummary) Merge(other UpdateSummary) {
	s.Fetched += other.Fetched
	s.Skipped += other.Skipped
	s.Rejected += other.Rejected
	s.Failed += other.Failed
	for code, err := range other.Errors {
		s.RecordError(code, err)
	}
}

// RecordError notes a per-stock failure without aborting the batch.
func (s *UpdateSummary) RecordError(code string, err error) {
	if s.Errors == nil {
		s.Errors = make(map[string]error)
	}
	s.Errors[code] = err
}
