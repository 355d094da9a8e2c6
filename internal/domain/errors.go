package domain

import "errors"

// Domain errors represent error conditions in the pubship domain.
// These errors are returned by the public API and can be checked with errors.Is.
var (
	// ErrTimeout is returned by a Future when its wait deadline expires.
	// It is the signal to drain and stop, not a failure.
	ErrTimeout = errors.New("pubship: receive timeout")

	// ErrUnexpectedFormat is returned when a message body is not valid JSON.
	ErrUnexpectedFormat = errors.New("pubship: unexpected data format")

	// ErrIngest is returned when the ingestion API rejects a request or
	// cannot be reached.
	ErrIngest = errors.New("pubship: ingestion failed")

	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("pubship: invalid configuration")

	// ErrUnknownSource is returned when the configured subscription backend
	// is not supported.
	ErrUnknownSource = errors.New("pubship: unknown source")
)

// ErrInvalidTransition is returned when a pull loop state change is not allowed.
var ErrInvalidTransition = errors.New("pubship: invalid state transition")
