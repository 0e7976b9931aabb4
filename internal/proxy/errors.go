package proxy

import "errors"

// Failure categories surfaced in GenerationResult.Error. Metadata probe
// failures are not listed: they are recovered locally with fallback values
// and never fail a request.
var (
	// ErrUnsupportedSource marks sources the external backend cannot read,
	// such as in-memory blob references. Surfaced before any work starts.
	ErrUnsupportedSource = errors.New("unsupported source reference")

	// ErrBackendUnavailable marks a backend that rejected the job outright.
	ErrBackendUnavailable = errors.New("extraction backend unavailable")

	// ErrGenerationTimeout marks a job that exceeded the adaptive timeout.
	// Safe to retry later.
	ErrGenerationTimeout = errors.New("generation timed out")

	// ErrMalformedPlan marks a request for which no sheet produced any valid
	// frames.
	ErrMalformedPlan = errors.New("no valid sheets in extraction plan")
)
