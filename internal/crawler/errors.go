package crawler

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrUnexpectedStatus is the cause of a FetchError raised for a non-2xx response.
var ErrUnexpectedStatus = errors.New("unexpected status code")

// ErrBodyTooLarge is the cause of a FetchError raised when a response body
// exceeds the fetcher's size limit.
var ErrBodyTooLarge = errors.New("response body too large")

// FetchError reports a page that could not be retrieved.
type FetchError struct {
	// URL is the page that was requested.
	URL string

	// StatusCode is the last HTTP status received, 0 when no response arrived.
	StatusCode int

	// Err is the underlying cause.
	Err error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the failure is a transient gateway error.
func (e *FetchError) Retryable() bool {
	return isTransientStatus(e.StatusCode)
}

func isTransientStatus(code int) bool {
	switch code {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

// PageKind names the kind of page being extracted.
type PageKind string

const (
	// PageIndex is the metagame index listing every deck.
	PageIndex PageKind = "index"
	// PageResults is a deck's list of tournament finishes.
	PageResults PageKind = "results"
	// PageDecklist is the card list of one finish.
	PageDecklist PageKind = "decklist"
)

// ExtractionError reports a row whose fields could not be read.
type ExtractionError struct {
	Page PageKind

	// Row is the 1-based data row, header excluded.
	Row int

	// Field names the cell or attribute that was missing or malformed.
	Field string

	Err error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s page: row %d: %s: %v", e.Page, e.Row, e.Field, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// Extraction causes.
var (
	ErrMissingCell      = errors.New("missing cell")
	ErrMissingLink      = errors.New("missing link")
	ErrMissingAttribute = errors.New("missing attribute")
	ErrMalformedRecord  = errors.New("record is not wins-losses-ties")
)
