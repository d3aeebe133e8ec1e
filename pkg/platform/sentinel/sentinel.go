package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores, caches, and locks return
// these (optionally wrapped) so services can translate them into domain errors.
//
//   - ErrNotFound: row, object, or cache entry does not exist
//   - ErrConflict: a uniqueness or monotonicity constraint rejected the write
//   - ErrUnavailable: backing service unreachable or timed out
//   - ErrLocked: an exclusive lease is held by another worker
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrUnavailable = errors.New("unavailable")
	ErrLocked      = errors.New("locked")
)
