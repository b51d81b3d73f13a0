package types

import "errors"

// Error taxonomy for the run. Per-file and per-entry errors wrap one of
// these sentinels and are aggregated into the manifest; only configuration
// and environment errors abort the whole run.
var (
	// ErrUnreadableFile marks a corrupt or unsupported input. The record
	// is kept for reporting but excluded from grouping.
	ErrUnreadableFile = errors.New("unreadable file")

	// ErrConversion marks a failed RAW decode. Treated like an
	// unreadable file.
	ErrConversion = errors.New("raw conversion failed")

	// ErrDestinationConflict marks a planned destination that already
	// exists with different content. The entry fails, the destination
	// is never overwritten, and other entries proceed.
	ErrDestinationConflict = errors.New("destination exists with different content")

	// ErrConfiguration marks invalid configuration. Fatal at startup,
	// before any file I/O.
	ErrConfiguration = errors.New("invalid configuration")
)
