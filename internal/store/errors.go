package store

import "errors"

var (
	// ErrFormat reports bytes that are not a valid dataset file: wrong or
	// outdated magic, a malformed seed encoding, or a truncated record.
	ErrFormat = errors.New("invalid dataset format")

	// ErrParamMismatch reports a header whose model/dim/steps disagree with
	// the requested configuration.
	ErrParamMismatch = errors.New("dataset parameters mismatch")

	// ErrShortfall reports a strict read that found fewer records than requested.
	ErrShortfall = errors.New("dataset has fewer records than requested")

	// ErrFinalized reports an append or finalize on a file that already has
	// a footer.
	ErrFinalized = errors.New("dataset already finalized")
)
