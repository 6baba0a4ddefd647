package fetcher

import "fmt"

// NoDataError means the provider responded successfully but returned no
// usable series for the requested stock or date.
type NoDataError struct {
	Subject string // ticker or date the request was keyed by
}

func (e *NoDataError) Error() string {
	return fmt.Sprintf("no data for %s", e.Subject)
}

// FetchError is a network or HTTP failure that survived all retry attempts.
type FetchError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s failed after %d attempts: %v", e.URL, e.Attempts, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ParseError means the response shape did not match the expected schema.
// It is never silently coerced; a malformed row invalidates the whole
// response it came from.
type ParseError struct {
	Source string
	Detail string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s response malformed: %s", e.Source, e.Detail)
}
