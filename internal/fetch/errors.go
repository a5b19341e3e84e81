package fetch

import "errors"

var (
	// ErrNotFound means the remote service has no record for the target.
	// Callers treat it as a definitive empty answer, not a failure.
	ErrNotFound = errors.New("no data for target")

	// ErrFailed means the attempt budget was exhausted without a usable
	// response. It is counted per target and never aborts the run.
	ErrFailed = errors.New("all fetch attempts failed")
)
