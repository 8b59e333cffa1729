// Package apperr defines the error kinds the analytics core reports.
// Translation to HTTP status codes happens only at the transport layer.
package apperr

import "errors"

var (
	// ErrInvalidRequest covers malformed periods/weeks/dates, ambiguous
	// scope and statistically insufficient samples.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrForbidden is returned for every scope violation with no further
	// detail, so responses never reveal another tenant's identifiers.
	ErrForbidden = errors.New("access denied")
	ErrNotFound  = errors.New("not found")
	// ErrUnavailable wraps persistence failures; the core never retries.
	ErrUnavailable = errors.New("unavailable")
)
