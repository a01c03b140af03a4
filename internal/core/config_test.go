package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beacon-analytics/beacon-go/internal/checkout"
	"github.com/beacon-analytics/beacon-go/internal/identity"
	"github.com/beacon-analytics/beacon-go/internal/queue"
)

func TestConfig_Validate(t *testing.T) {
	valid := Config{APIEndpoint: "https://collect.example/events", ProjectID: "proj-1"}
	require.NoError(t, valid.Validate())

	missingEndpoint := valid
	missingEndpoint.APIEndpoint = ""
	assert.ErrorIs(t, missingEndpoint.Validate(), ErrMissingEndpoint)

	missingProject := valid
	missingProject.ProjectID = ""
	assert.ErrorIs(t, missingProject.Validate(), ErrMissingProjectID)
}

func TestConfig_WithDefaults(t *testing.T) {
	cfg := Config{APIEndpoint: "https://collect.example/events", ProjectID: "proj-1"}.withDefaults()

	assert.Equal(t, "generic", cfg.Platform)
	assert.Equal(t, queue.DefaultBatchSize, cfg.BatchSize)
	assert.Equal(t, queue.DefaultBatchTimeout, cfg.BatchTimeout)
	assert.Equal(t, identity.DefaultSessionTimeout, cfg.SessionTimeout)
	assert.Equal(t, checkout.DefaultIdleThreshold, cfg.IdleThreshold)
	assert.Equal(t, time.Second, cfg.ConsentPollInterval)
	assert.Equal(t, 30*time.Second, cfg.ConsentPollTimeout)
	assert.False(t, cfg.SkipConsentCheck, "consent gating stays on by default")
}

func TestConfig_WithDefaults_KeepsExplicitValues(t *testing.T) {
	cfg := Config{
		APIEndpoint:  "https://collect.example/events",
		ProjectID:    "proj-1",
		Platform:     "shopify",
		BatchSize:    25,
		BatchTimeout: time.Minute,
	}.withDefaults()

	assert.Equal(t, "shopify", cfg.Platform)
	assert.Equal(t, 25, cfg.BatchSize)
	assert.Equal(t, time.Minute, cfg.BatchTimeout)
}
