package core

import (
	"errors"
	"time"

	"github.com/beacon-analytics/beacon-go/internal/checkout"
	"github.com/beacon-analytics/beacon-go/internal/identity"
	"github.com/beacon-analytics/beacon-go/internal/queue"
)

// Config is the tracker configuration supplied to Init.
type Config struct {
	// APIEndpoint is the collection endpoint URL. Required.
	APIEndpoint string
	// ProjectID identifies the project on the collection side. Required.
	ProjectID string
	// Platform hints which storefront adapter to use: "shopify", "vtex",
	// "nuvemshop", or "generic" (no adapter). Defaults to generic.
	Platform string

	// BatchSize is the flush threshold. Defaults to 10.
	BatchSize int
	// BatchTimeout bounds how long a lone event waits. Defaults to 3s.
	BatchTimeout time.Duration
	// SessionTimeout is the sliding session expiration. Defaults to 30m.
	SessionTimeout time.Duration
	// IdleThreshold is the checkout inactivity abandonment threshold.
	// Defaults to 5m.
	IdleThreshold time.Duration

	// SkipConsentCheck disables consent gating. Gating is on by default:
	// the zero value of this field keeps the check enabled.
	SkipConsentCheck bool
	// ConsentPollInterval is how often the gate re-reads consent while
	// deferred. Defaults to 1s.
	ConsentPollInterval time.Duration
	// ConsentPollTimeout bounds the deferral; past it the tracker abandons
	// startup silently. Defaults to 30s.
	ConsentPollTimeout time.Duration

	// EnableScoring attaches the behavioral-segment subscriber.
	EnableScoring bool
}

// Validation errors.
var (
	ErrMissingEndpoint  = errors.New("config: APIEndpoint is required")
	ErrMissingProjectID = errors.New("config: ProjectID is required")
)

// Validate checks required fields.
func (c Config) Validate() error {
	if c.APIEndpoint == "" {
		return ErrMissingEndpoint
	}
	if c.ProjectID == "" {
		return ErrMissingProjectID
	}
	return nil
}

// withDefaults fills unset optional fields.
func (c Config) withDefaults() Config {
	if c.Platform == "" {
		c.Platform = "generic"
	}
	if c.BatchSize <= 0 {
		c.BatchSize = queue.DefaultBatchSize
	}
	if c.BatchTimeout <= 0 {
		c.BatchTimeout = queue.DefaultBatchTimeout
	}
	if c.SessionTimeout <= 0 {
		c.SessionTimeout = identity.DefaultSessionTimeout
	}
	if c.IdleThreshold <= 0 {
		c.IdleThreshold = checkout.DefaultIdleThreshold
	}
	if c.ConsentPollInterval <= 0 {
		c.ConsentPollInterval = time.Second
	}
	if c.ConsentPollTimeout <= 0 {
		c.ConsentPollTimeout = 30 * time.Second
	}
	return c
}
