package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and infrastructure layers
// return these (optionally wrapped) so the core can translate them into
// domain errors.
//
// These represent factual states about stored records, not validation failures:
// - ErrNotFound: record does not exist in the store
// - ErrConflict: a uniqueness or root-record invariant was violated
// - ErrTxClosed: the transactional session was already committed or rolled back
// - ErrUnavailable: backing store temporarily unreachable
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrTxClosed    = errors.New("transaction closed")
	ErrUnavailable = errors.New("unavailable")
)
