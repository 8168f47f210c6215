package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Ledger backends return these
// (optionally wrapped) so the contract layer can translate them into domain
// errors.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: key absent from the collection or public log
// - ErrConflict: key already present where absence was required
// - ErrInvalidState: entry in wrong state for requested operation
// - ErrUnavailable: backing store temporarily unreachable
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
