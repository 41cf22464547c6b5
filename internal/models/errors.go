package models

import (
	"errors"
	"fmt"
)

// DiscoveryError means a remote root or period listing could not be fetched
// or parsed after the retry budget was spent. It fails the whole invocation.
type DiscoveryError struct {
	URL string
	Err error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("discovery failed for %s: %v", e.URL, e.Err)
}

func (e *DiscoveryError) Unwrap() error { return e.Err }

// NotFoundError means the requested period or file does not exist remotely.
// It is never retried.
type NotFoundError struct {
	Target string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: not found", e.Target)
}

// TransientFetchError is a timeout, connection error or 5xx that survived the
// full retry budget.
type TransientFetchError struct {
	Target   string
	Attempts int
	Err      error
}

func (e *TransientFetchError) Error() string {
	return fmt.Sprintf("%s: fetch failed after %d attempts: %v", e.Target, e.Attempts, e.Err)
}

func (e *TransientFetchError) Unwrap() error { return e.Err }

// IntegrityError means an archive failed structural validation. Nothing from
// it is persisted and no marker is written.
type IntegrityError struct {
	Target string
	Err    error
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("%s: corrupt archive: %v", e.Target, e.Err)
}

func (e *IntegrityError) Unwrap() error { return e.Err }

// PersistenceError means a durable-store write failed before the marker was
// written, so a retry is always safe.
type PersistenceError struct {
	Key string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist %s: %v", e.Key, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// LoadJobError means a warehouse ingestion job failed for one period. Sibling
// periods keep going.
type LoadJobError struct {
	Period string
	Table  string
	Err    error
}

func (e *LoadJobError) Error() string {
	return fmt.Sprintf("load job for %s period %s: %v", e.Table, e.Period, e.Err)
}

func (e *LoadJobError) Unwrap() error { return e.Err }

// ErrorClass names the taxonomy class of err for failure reporting.
func ErrorClass(err error) string {
	var (
		discovery *DiscoveryError
		notFound  *NotFoundError
		transient *TransientFetchError
		integrity *IntegrityError
		persist   *PersistenceError
		loadJob   *LoadJobError
	)
	switch {
	case errors.As(err, &notFound):
		return "NotFoundError"
	case errors.As(err, &transient):
		return "TransientFetchError"
	case errors.As(err, &integrity):
		return "IntegrityError"
	case errors.As(err, &persist):
		return "PersistenceError"
	case errors.As(err, &loadJob):
		return "LoadJobError"
	case errors.As(err, &discovery):
		return "DiscoveryError"
	default:
		return "UnknownError"
	}
}
