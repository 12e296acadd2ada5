package extraction

import "errors"

var (
	// ErrServiceUnavailable means the reachability probe failed.
	ErrServiceUnavailable = errors.New("extraction service unavailable")
	// ErrExtractionTimeout means the real request exceeded its bounded wait.
	ErrExtractionTimeout = errors.New("extraction timed out")
	// ErrExtractionFailed means the service answered with an error or unusable output.
	ErrExtractionFailed = errors.New("extraction failed")
	// ErrEmptyInput means there was nothing to send.
	ErrEmptyInput = errors.New("extraction input is empty")
)
