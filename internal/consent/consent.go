// Package consent reads the host's consent decision from durable storage.
//
// The contract with the host's consent banner is a single durable key
// holding "granted" or "denied", paired with a timestamp key. A decision is
// valid for one year; past that it reverts to unknown and tracking stays
// gated until the banner re-records it.
package consent

import (
	"strconv"
	"time"

	"github.com/beacon-analytics/beacon-go/internal/storage"
)

// Validity is how long a recorded decision holds.
const Validity = 365 * 24 * time.Hour

// Status is the current consent state.
type Status string

const (
	StatusGranted Status = "granted"
	StatusDenied  Status = "denied"
	StatusUnknown Status = "unknown"
)

// Gate answers whether tracking may start.
type Gate struct {
	durable storage.Store
	now     func() time.Time
}

// Option configures a Gate.
type Option func(*Gate)

// WithClock overrides the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(g *Gate) { g.now = now }
}

// New creates a Gate over the durable store.
func New(durable storage.Store, opts ...Option) *Gate {
	g := &Gate{durable: durable, now: time.Now}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Status returns the current decision, treating missing, malformed, or
// expired state as unknown.
func (g *Gate) Status() Status {
	raw, ok, err := g.durable.Get(storage.KeyConsent)
	if err != nil || !ok {
		return StatusUnknown
	}
	status := Status(raw)
	if status != StatusGranted && status != StatusDenied {
		return StatusUnknown
	}

	tsRaw, ok, err := g.durable.Get(storage.KeyConsentTime)
	if err != nil || !ok {
		return StatusUnknown
	}
	ts, err := strconv.ParseInt(tsRaw, 10, 64)
	if err != nil {
		return StatusUnknown
	}
	if g.now().Sub(time.UnixMilli(ts)) >= Validity {
		return StatusUnknown
	}
	return status
}

// Record persists a decision with the current timestamp. Exposed for hosts
// that route their consent banner through the SDK.
func (g *Gate) Record(status Status) {
	_ = g.durable.Set(storage.KeyConsent, string(status))
	_ = g.durable.Set(storage.KeyConsentTime, strconv.FormatInt(g.now().UnixMilli(), 10))
}
