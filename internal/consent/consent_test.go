package consent

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/beacon-analytics/beacon-go/internal/storage"
	"github.com/beacon-analytics/beacon-go/internal/testutil"
)

func newTestGate(t *testing.T) (*Gate, *storage.MemoryStore, *testutil.ManualClock) {
	t.Helper()
	durable := storage.NewMemory()
	clock := testutil.NewManualClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	return New(durable, WithClock(clock.Now)), durable, clock
}

func TestStatus_MissingIsUnknown(t *testing.T) {
	g, _, _ := newTestGate(t)
	assert.Equal(t, StatusUnknown, g.Status())
}

func TestRecordAndStatus_RoundTrip(t *testing.T) {
	g, _, _ := newTestGate(t)

	g.Record(StatusGranted)
	assert.Equal(t, StatusGranted, g.Status())

	g.Record(StatusDenied)
	assert.Equal(t, StatusDenied, g.Status())
}

func TestStatus_MalformedIsUnknown(t *testing.T) {
	g, durable, _ := newTestGate(t)

	durable.Set(storage.KeyConsent, "maybe")
	durable.Set(storage.KeyConsentTime, "1700000000000")
	assert.Equal(t, StatusUnknown, g.Status())

	// Valid value but garbage timestamp.
	durable.Set(storage.KeyConsent, string(StatusGranted))
	durable.Set(storage.KeyConsentTime, "yesterday")
	assert.Equal(t, StatusUnknown, g.Status())

	// Valid value with a missing timestamp.
	g.Record(StatusGranted)
	durable.Delete(storage.KeyConsentTime)
	assert.Equal(t, StatusUnknown, g.Status())
}

func TestStatus_ExpiresAfterOneYear(t *testing.T) {
	g, _, clock := newTestGate(t)
	g.Record(StatusGranted)

	clock.Advance(364 * 24 * time.Hour)
	assert.Equal(t, StatusGranted, g.Status())

	clock.Advance(2 * 24 * time.Hour)
	assert.Equal(t, StatusUnknown, g.Status())
}

func TestStatus_StorageFailureIsUnknown(t *testing.T) {
	g, durable, _ := newTestGate(t)
	g.Record(StatusGranted)

	durable.FailNext(errors.New("disabled"))
	assert.Equal(t, StatusUnknown, g.Status())
	assert.Equal(t, StatusGranted, g.Status())
}
