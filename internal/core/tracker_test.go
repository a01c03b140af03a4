package core

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beacon-analytics/beacon-go/internal/browser"
	"github.com/beacon-analytics/beacon-go/internal/consent"
	"github.com/beacon-analytics/beacon-go/internal/platform"
	"github.com/beacon-analytics/beacon-go/internal/queue"
	"github.com/beacon-analytics/beacon-go/internal/storage"
	"github.com/beacon-analytics/beacon-go/internal/testutil"
	"github.com/beacon-analytics/beacon-go/internal/wire"
)

type trackerFixture struct {
	tracker *Tracker
	sender  *testutil.CaptureSender
	env     *testutil.FakeEnvironment
	durable *storage.MemoryStore
	clock   *testutil.ManualClock
}

func testConfig() Config {
	return Config{
		APIEndpoint:      "https://collect.example/events",
		ProjectID:        "proj-1",
		BatchSize:        1,
		BatchTimeout:     50 * time.Millisecond,
		SkipConsentCheck: true,
	}
}

func newFixture(t *testing.T, cfg Config, opts ...Option) *trackerFixture {
	t.Helper()
	f := &trackerFixture{
		sender:  testutil.NewCaptureSender(),
		env:     testutil.NewFakeEnvironment(),
		durable: storage.NewMemory(),
		clock:   testutil.NewManualClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)),
	}
	f.env.SetPage(browser.PageView{URL: "https://shop.example/", Title: "Home"})
	gen := testutil.NewIDGenerator()
	opts = append([]Option{
		WithSender(f.sender),
		WithStores(f.durable, storage.NewMemory()),
		WithClock(f.clock.Now),
		WithIDGenerator(gen.Next),
	}, opts...)
	f.tracker = New(cfg, f.env, opts...)
	t.Cleanup(f.tracker.Close)
	return f
}

func (f *trackerFixture) waitFor(t *testing.T, eventType string) wire.Event {
	t.Helper()
	var found wire.Event
	require.Eventually(t, func() bool {
		for _, e := range f.sender.Events() {
			if e.EventType == eventType {
				found = e
				return true
			}
		}
		return false
	}, 2*time.Second, 5*time.Millisecond, "waiting for %s", eventType)
	return found
}

func (f *trackerFixture) count(eventType string) int {
	n := 0
	for _, e := range f.sender.Events() {
		if e.EventType == eventType {
			n++
		}
	}
	return n
}

func TestInit_InvalidConfigStaysInert(t *testing.T) {
	cfg := testConfig()
	cfg.APIEndpoint = ""
	f := newFixture(t, cfg)

	require.ErrorIs(t, f.tracker.Init(), ErrMissingEndpoint)

	f.tracker.Track("custom", nil)
	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, f.sender.Events())
}

func TestInit_Idempotent(t *testing.T) {
	f := newFixture(t, testConfig())

	require.NoError(t, f.tracker.Init())
	require.NoError(t, f.tracker.Init())

	f.waitFor(t, "page_view")
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, f.count("page_view"), "second Init must not replay startup")
}

func TestTrack_BeforeInitIsDropped(t *testing.T) {
	f := newFixture(t, testConfig())

	f.tracker.Track("too_early", nil)
	require.NoError(t, f.tracker.Init())

	f.waitFor(t, "page_view")
	assert.Equal(t, 0, f.count("too_early"))
}

func TestTrack_EnrichesWithIdentityAndAttribution(t *testing.T) {
	f := newFixture(t, testConfig())
	f.env.SetPage(browser.PageView{
		URL:   "https://shop.example/?utm_source=ig&utm_campaign=spring",
		Title: "Home",
	})
	require.NoError(t, f.tracker.Init())

	e := f.waitFor(t, "page_view")
	assert.NotEmpty(t, e.EventID)
	assert.NotEmpty(t, e.UserID)
	assert.NotEmpty(t, e.SessionID)
	assert.Equal(t, "https://shop.example/?utm_source=ig&utm_campaign=spring", e.PageURL)
	assert.Equal(t, "generic", e.Platform)
	assert.Equal(t, 1920, e.DeviceFingerprint.ScreenWidth)

	attr, ok := e.Properties["attribution"].(map[string]any)
	require.True(t, ok, "attribution captured on first page view")
	assert.Equal(t, "ig", attr["utm_source"])
	assert.Equal(t, "spring", attr["campaign_id"])
}

// staticAdapter enriches every event with fixed fields.
type staticAdapter struct {
	extra map[string]any
}

func (a *staticAdapter) Init(browser.Environment, platform.Emitter) {}
func (a *staticAdapter) Close()                                    {}
func (a *staticAdapter) EnrichEvent(string, map[string]any) map[string]any {
	return a.extra
}

// panicAdapter panics on every hook.
type panicAdapter struct{}

func (panicAdapter) Init(browser.Environment, platform.Emitter) { panic("init boom") }
func (panicAdapter) Close()                                     { panic("close boom") }
func (panicAdapter) EnrichEvent(string, map[string]any) map[string]any {
	panic("enrich boom")
}

func TestTrack_AdapterFieldsWinOnCollision(t *testing.T) {
	registry := platform.NewRegistry()
	registry.Register("fake", func() platform.Adapter {
		return &staticAdapter{extra: map[string]any{"shop_platform": "fake", "page_type": "product"}}
	})

	cfg := testConfig()
	cfg.Platform = "fake"
	f := newFixture(t, cfg, WithRegistry(registry))
	require.NoError(t, f.tracker.Init())
	f.waitFor(t, "page_view")

	f.tracker.Track("custom", map[string]any{"shop_platform": "host-supplied", "own": 1})

	var got wire.Event
	require.Eventually(t, func() bool {
		for _, e := range f.sender.Events() {
			if e.EventType == "custom" {
				got = e
				return true
			}
		}
		return false
	}, 2*time.Second, 5*time.Millisecond)

	assert.Equal(t, "fake", got.Properties["shop_platform"])
	assert.Equal(t, "product", got.Properties["page_type"])
	assert.Equal(t, 1, got.Properties["own"])
}

func TestTrack_AdapterPanicIsContained(t *testing.T) {
	registry := platform.NewRegistry()
	registry.Register("broken", func() platform.Adapter { return panicAdapter{} })

	cfg := testConfig()
	cfg.Platform = "broken"
	f := newFixture(t, cfg, WithRegistry(registry))
	require.NoError(t, f.tracker.Init())

	// Events still flow, just without enrichment.
	e := f.waitFor(t, "page_view")
	assert.NotContains(t, e.Properties, "shop_platform")
}

func TestConsent_DeniedBlocksTracking(t *testing.T) {
	cfg := testConfig()
	cfg.SkipConsentCheck = false
	f := newFixture(t, cfg)
	consent.New(f.durable, consent.WithClock(f.clock.Now)).Record(consent.StatusDenied)

	require.NoError(t, f.tracker.Init())
	f.tracker.Track("custom", nil)
	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, f.sender.Events())
}

func TestConsent_GrantedLaterStartsTracking(t *testing.T) {
	cfg := testConfig()
	cfg.SkipConsentCheck = false
	cfg.ConsentPollInterval = 5 * time.Millisecond
	f := newFixture(t, cfg)

	require.NoError(t, f.tracker.Init())
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, f.sender.Events(), "gated while consent unknown")

	consent.New(f.durable, consent.WithClock(f.clock.Now)).Record(consent.StatusGranted)
	f.waitFor(t, "page_view")
}

func TestPurchaseCompleted_CarriesJourney(t *testing.T) {
	f := newFixture(t, testConfig())
	require.NoError(t, f.tracker.Init())
	f.waitFor(t, "page_view")

	f.tracker.PurchaseCompleted(browser.OrderData{OrderID: "ord-1", Total: 12900, Currency: "BRL"})

	e := f.waitFor(t, "purchase_completed")
	assert.Equal(t, "ord-1", e.Properties["order_id"])
	journey, ok := e.Properties["journey"].([]map[string]any)
	require.True(t, ok)
	require.NotEmpty(t, journey)
	assert.Equal(t, "https://shop.example/", journey[0]["url"])
}

func TestObserveAndUnload_TracksAbandonment(t *testing.T) {
	f := newFixture(t, testConfig())
	require.NoError(t, f.tracker.Init())
	f.waitFor(t, "page_view")

	f.env.SetSnapshot(browser.PageSnapshot{
		View:         browser.PageView{URL: "https://shop.example/checkout"},
		IsCheckout:   true,
		ExplicitStep: "payment",
	})
	f.tracker.Observe()
	f.waitFor(t, "checkout_started")
	f.waitFor(t, "checkout_step_started")

	f.tracker.PageUnloading()
	e := f.waitFor(t, "checkout_abandoned")
	assert.Equal(t, "page_exit", e.Properties["reason"])
	assert.Equal(t, "payment", e.Properties["step"])

	var record map[string]any
	assert.True(t, storage.ReadJSON(f.durable, storage.KeyAbandonment, &record))
}

func TestHostCallsRaceAgainstTickGoroutine(t *testing.T) {
	f := newFixture(t, testConfig())
	require.NoError(t, f.tracker.Init())
	f.waitFor(t, "page_view")

	f.env.SetSnapshot(browser.PageSnapshot{
		View:         browser.PageView{URL: "https://shop.example/checkout"},
		IsCheckout:   true,
		ExplicitStep: "payment",
	})
	f.tracker.Observe()
	f.waitFor(t, "checkout_started")

	// Host callbacks interleave with the background tick, the way a real
	// page delivers input events while idle detection runs.
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				f.tracker.Activity()
				f.tracker.FieldInteraction("card_number")
				f.tracker.Track("custom", map[string]any{"n": j})
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				f.tracker.tick()
				f.tracker.Observe()
			}
		}()
	}
	wg.Wait()

	// The clock never advanced, so activity kept the session alive.
	assert.Equal(t, 0, f.count("checkout_abandoned"))
	assert.Equal(t, 1, f.count("checkout_started"))
}

func TestScroll_EmitsMilestonesOncePerPageLife(t *testing.T) {
	f := newFixture(t, testConfig())
	require.NoError(t, f.tracker.Init())
	f.waitFor(t, "page_view")

	f.tracker.Scroll(60)
	require.Eventually(t, func() bool {
		return f.count("scroll_depth") == 2
	}, 2*time.Second, 5*time.Millisecond)

	// The immediate follow-up falls inside the throttle window.
	f.tracker.Scroll(95)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 2, f.count("scroll_depth"))
}

func TestClose_StopsTracking(t *testing.T) {
	f := newFixture(t, testConfig())
	require.NoError(t, f.tracker.Init())
	f.waitFor(t, "page_view")

	f.tracker.Close()
	before := len(f.sender.Events())
	f.tracker.Track("after_close", nil)
	time.Sleep(50 * time.Millisecond)
	assert.Len(t, f.sender.Events(), before)
}

func TestOnline_RetriesBufferedEvents(t *testing.T) {
	f := newFixture(t, testConfig())
	require.NoError(t, f.tracker.Init())
	f.waitFor(t, "page_view")

	f.sender.SetFailing(true)
	f.tracker.Track("offline_event", nil)
	require.Eventually(t, func() bool {
		for _, e := range queue.FailedEvents(f.durable) {
			if e.EventType == "offline_event" {
				return true
			}
		}
		return false
	}, 2*time.Second, 5*time.Millisecond)

	f.sender.SetFailing(false)
	f.tracker.Online()
	f.waitFor(t, "offline_event")
}
