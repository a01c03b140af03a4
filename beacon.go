package beacon

import (
	"github.com/beacon-analytics/beacon-go/internal/browser"
	"github.com/beacon-analytics/beacon-go/internal/core"
	"github.com/beacon-analytics/beacon-go/internal/platform"
	"github.com/beacon-analytics/beacon-go/internal/storage"
	"github.com/beacon-analytics/beacon-go/internal/wire"
)

// Aliases re-export the SDK surface so hosts import only this package.
type (
	// Config is the tracker configuration; see the field docs for defaults.
	Config = core.Config
	// Tracker is the per-page-load tracking pipeline.
	Tracker = core.Tracker
	// Option customizes tracker construction.
	Option = core.Option

	// Environment is the host-supplied window onto the current page.
	Environment = browser.Environment
	// PageView describes the current document.
	PageView = browser.PageView
	// PageSnapshot carries the raw checkout-relevant page signals.
	PageSnapshot = browser.PageSnapshot
	// OrderData is a confirmed order extracted from a thank-you page.
	OrderData = browser.OrderData
	// Fingerprint is the per-page-life device snapshot.
	Fingerprint = wire.Fingerprint

	// Store is the key-value storage contract for durable and ephemeral
	// state.
	Store = storage.Store
	// Adapter is the storefront-platform integration contract.
	Adapter = platform.Adapter
)

// Construction options, re-exported.
var (
	WithStores      = core.WithStores
	WithSender      = core.WithSender
	WithRegistry    = core.WithRegistry
	WithClock       = core.WithClock
	WithIDGenerator = core.WithIDGenerator
)

// New constructs a Tracker for one page load. Nothing runs until Init.
func New(cfg Config, env Environment, opts ...Option) *Tracker {
	return core.New(cfg, env, opts...)
}

// NewMemoryStore returns an in-process Store, the stock ephemeral store.
func NewMemoryStore() Store {
	return storage.NewMemory()
}

// OpenSQLiteStore opens (creating if needed) the stock durable Store for
// embedded hosts, backed by SQLite at path. Release it with CloseStore.
func OpenSQLiteStore(path string) (Store, error) {
	return storage.OpenSQLite(path)
}

// CloseStore releases a Store whose implementation holds resources (the
// SQLite store does; the memory store does not).
func CloseStore(s Store) error {
	if c, ok := s.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
