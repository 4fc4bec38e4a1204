package repository

import "errors"

var (
	// ErrUpstreamUnavailable indicates a VCS provider call failed due to
	// network, auth, or server errors. Per-repository occurrences are
	// isolated by the extractor; a listing-level occurrence aborts the run.
	ErrUpstreamUnavailable = errors.New("vcs provider unavailable")

	// ErrUnsupportedProvider indicates the factory has no connector variant
	// registered for the configured provider type. Fatal for the run.
	ErrUnsupportedProvider = errors.New("unsupported vcs provider")

	// ErrUnknownInstance indicates the requested VCS instance name is absent
	// from the configuration map. Fatal for the run.
	ErrUnknownInstance = errors.New("unknown vcs instance")
)
