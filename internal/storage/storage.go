// Package storage provides the key-value stores the SDK persists state in.
//
// Two stores back the tracker: a durable store that survives restarts
// (visitor id, failed-event buffer, abandonment records, journey log) and an
// ephemeral store scoped to one visit (session, attribution). Hosts may
// supply their own implementations; the stock implementations are
// MemoryStore (ephemeral) and SQLiteStore (durable, for embedded hosts).
//
// Storage is best-effort throughout the SDK: callers treat every error as
// "value absent" and fall back to in-memory state. No storage error ever
// propagates to host code.
package storage

import (
	"errors"
	"fmt"
)

// Store is a string key-value store.
//
// Get reports whether the key was present. Implementations must tolerate
// concurrent use from a single process; no cross-process locking is assumed.
type Store interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
	Delete(key string) error
}

// ErrorCode categorizes storage failures.
type ErrorCode string

const (
	// ErrCodeOpen indicates the backing store could not be opened.
	ErrCodeOpen ErrorCode = "OPEN_FAILED"
	// ErrCodeRead indicates a read failed.
	ErrCodeRead ErrorCode = "READ_FAILED"
	// ErrCodeWrite indicates a write failed (quota, disabled, I/O).
	ErrCodeWrite ErrorCode = "WRITE_FAILED"
	// ErrCodeCorrupt indicates a persisted value could not be decoded.
	ErrCodeCorrupt ErrorCode = "CORRUPT_VALUE"
)

// Error is a structured storage error.
type Error struct {
	Code ErrorCode
	Key  string
	Err  error
}

func (e *Error) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("%s: key %q: %v", e.Code, e.Key, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Code, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// IsCorrupt reports whether err is a corrupt-value error.
// Corrupt persisted state is treated as absence by all callers.
func IsCorrupt(err error) bool {
	var se *Error
	return errors.As(err, &se) && se.Code == ErrCodeCorrupt
}

// Keys under which the SDK persists state. All keys are namespaced to avoid
// colliding with host data in a shared store.
const (
	KeyVisitorID   = "bcn_visitor_id"
	KeySession     = "bcn_session"
	KeyAttribution = "bcn_attribution"
	KeyFailedQueue = "bcn_failed_events"
	KeyAbandonment = "bcn_checkout_abandonment"
	KeyJourney     = "bcn_journey"
	KeyConsent     = "bcn_consent"
	KeyConsentTime = "bcn_consent_ts"
)
