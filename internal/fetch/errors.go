package fetch

import (
	"errors"
	"fmt"

	"social-account-lab/internal/domain"
)

// Fetch errors.
var (
	// ErrAllSourcesExhausted means every stage of the source chain failed or
	// was skipped. Not pipeline-fatal: the account is marked unverified.
	ErrAllSourcesExhausted = errors.New("all sources exhausted")

	// ErrSourceUnavailable means the rate budget for a source is spent and
	// the caller's wait ceiling forbids blocking until the window resets.
	ErrSourceUnavailable = errors.New("source unavailable: rate budget exhausted")
)

// Terminal HTTP statuses: errors carrying one of these are permanent and
// never retried within a stage.
var terminalStatuses = map[int]bool{
	401: true,
	403: true,
	404: true,
	429: true,
}

// SourceError is an error from one stage of the source chain, annotated with
// enough context to classify it as transient or permanent.
type SourceError struct {
	Source domain.FetchSource
	Status int // HTTP status, 0 when the failure was not an HTTP response
	Err    error
}

// Error implements the error interface.
func (e *SourceError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Source, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Source, e.Err)
}

// Unwrap returns the underlying error.
func (e *SourceError) Unwrap() error {
	return e.Err
}

// Permanent reports whether the error carries a terminal status.
func (e *SourceError) Permanent() bool {
	return terminalStatuses[e.Status]
}

// IsPermanent reports whether err is a permanent source error (no retry).
// Timeouts, connection resets and 5xx responses are transient.
func IsPermanent(err error) bool {
	var se *SourceError
	if errors.As(err, &se) {
		return se.Permanent()
	}
	return false
}
