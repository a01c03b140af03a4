// Package core wires identity, attribution, the event queue, the checkout
// machine, and an optional platform adapter into one tracker.
//
// ARCHITECTURE:
//
// One tracker exists per page load, constructed explicitly and handed its
// collaborators (no ambient global state). All public entry points contain
// their own failures: nothing the tracker does may surface an error or
// panic into host code, so every hook catches and logs. Tracking silently
// degrades, never visibly breaks the page.
package core

import (
	"log/slog"
	"sync"
	"time"

	"github.com/beacon-analytics/beacon-go/internal/attribution"
	"github.com/beacon-analytics/beacon-go/internal/behavior"
	"github.com/beacon-analytics/beacon-go/internal/browser"
	"github.com/beacon-analytics/beacon-go/internal/checkout"
	"github.com/beacon-analytics/beacon-go/internal/consent"
	"github.com/beacon-analytics/beacon-go/internal/identity"
	"github.com/beacon-analytics/beacon-go/internal/platform"
	"github.com/beacon-analytics/beacon-go/internal/queue"
	"github.com/beacon-analytics/beacon-go/internal/scoring"
	"github.com/beacon-analytics/beacon-go/internal/storage"
	"github.com/beacon-analytics/beacon-go/internal/transport"
	"github.com/beacon-analytics/beacon-go/internal/wire"
)

// scrollThrottleInterval bounds scroll handler frequency.
const scrollThrottleInterval = 200 * time.Millisecond

// Tracker is the orchestrator. Construct with New, start with Init.
type Tracker struct {
	cfg Config
	env browser.Environment

	durable   storage.Store
	ephemeral storage.Store
	sender    queue.Sender
	registry  *platform.Registry
	now       func() time.Time
	newID     func() string

	identity    *identity.Store
	attribution *attribution.Store
	queue       *queue.Queue
	checkout    *checkout.Machine
	consentGate *consent.Gate
	milestones  *behavior.Milestones
	scroll      *behavior.Throttle
	adapter     platform.Adapter
	scorer      *scoring.Scorer

	mu           sync.Mutex
	initialized  bool
	started      bool
	closed       bool
	pageLoadedAt time.Time
	stopTick     chan struct{}
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithSender overrides the batch sender (default: HTTP client against
// Config.APIEndpoint).
func WithSender(s queue.Sender) Option {
	return func(t *Tracker) { t.sender = s }
}

// WithStores overrides the durable and ephemeral stores (default: both
// in-memory).
func WithStores(durable, ephemeral storage.Store) Option {
	return func(t *Tracker) {
		t.durable = durable
		t.ephemeral = ephemeral
	}
}

// WithRegistry overrides the platform adapter registry.
func WithRegistry(r *platform.Registry) Option {
	return func(t *Tracker) { t.registry = r }
}

// WithClock overrides the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// WithIDGenerator overrides id generation for sessions and checkouts, for
// deterministic tests.
func WithIDGenerator(gen func() string) Option {
	return func(t *Tracker) { t.newID = gen }
}

// New constructs a Tracker. Nothing runs until Init.
func New(cfg Config, env browser.Environment, opts ...Option) *Tracker {
	t := &Tracker{
		cfg:      cfg.withDefaults(),
		env:      env,
		registry: platform.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.durable == nil {
		t.durable = storage.NewMemory()
	}
	if t.ephemeral == nil {
		t.ephemeral = storage.NewMemory()
	}
	if t.sender == nil {
		t.sender = transport.NewClient(t.cfg.APIEndpoint)
	}
	return t
}

// Init validates configuration and starts tracking, deferring behind the
// consent gate when enabled. Idempotent: calls after a successful Init are
// no-ops. An invalid configuration is logged and returned; the tracker
// stays inert and every later call is a safe no-op.
func (t *Tracker) Init() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.initialized {
		return nil
	}

	if err := t.cfg.Validate(); err != nil {
		slog.Error("tracker init aborted", "error", err)
		return err
	}
	t.initialized = true

	t.buildComponents()

	if t.cfg.SkipConsentCheck {
		t.startLocked()
		return nil
	}

	switch t.consentGate.Status() {
	case consent.StatusGranted:
		t.startLocked()
	case consent.StatusDenied:
		slog.Info("tracking disabled: consent denied")
	default:
		slog.Debug("consent unknown, deferring tracking start")
		go t.awaitConsent()
	}
	return nil
}

// Track records an event. A no-op before Init completes (pre-init calls
// are dropped, not queued) and after Close. Never returns an error and
// never panics into the host.
func (t *Tracker) Track(eventType string, props map[string]any) {
	defer t.recoverHook("track")

	t.mu.Lock()
	if !t.started || t.closed {
		t.mu.Unlock()
		return
	}
	t.mu.Unlock()

	event := t.buildEvent(eventType, props)
	t.queue.Add(event)

	if t.scorer != nil && eventType != "behavioral_segment" {
		t.scorer.Observe(eventType, event.Properties)
	}
}

// PageChanged reports a navigation (full load or SPA route change): a new
// page life for milestones, a journey entry, attribution re-detection
// (capture-once holds), checkout re-evaluation, and a page_view event.
func (t *Tracker) PageChanged() {
	defer t.recoverHook("page change")
	if !t.running() {
		return
	}

	now := t.now()
	t.mu.Lock()
	t.pageLoadedAt = now
	t.milestones = behavior.NewMilestones(t.emit)
	t.mu.Unlock()

	page := t.env.Page()
	appendJourney(t.durable, page.URL, t.identity.SessionID(), now)
	t.attribution.DetectAndCapture(page)

	snap := t.env.Snapshot()
	t.checkout.CheckRecovery(snap)
	if snap.IsCheckout {
		t.checkout.Observe(snap)
	}

	t.Track("page_view", map[string]any{
		"title":    page.Title,
		"referrer": page.Referrer,
	})
}

// Observe re-evaluates checkout signals from the current page state.
// Hosts call it on relevant DOM mutations; it is cheap and idempotent.
func (t *Tracker) Observe() {
	defer t.recoverHook("observe")
	if !t.running() {
		return
	}
	snap := t.env.Snapshot()
	if snap.IsCheckout || t.checkout.Active() {
		t.checkout.Observe(snap)
	}
}

// Scroll reports scroll depth as a percentage. Throttled.
func (t *Tracker) Scroll(percent int) {
	defer t.recoverHook("scroll")
	if !t.running() || !t.scroll.Allow() {
		return
	}
	t.currentMilestones().OnScroll(percent)
	t.checkout.Activity()
}

// Activity reports qualifying user activity (clicks, key presses),
// resetting the checkout inactivity timer.
func (t *Tracker) Activity() {
	defer t.recoverHook("activity")
	if !t.running() {
		return
	}
	t.checkout.Activity()
}

// FieldInteraction reports a checkout form-field interaction.
func (t *Tracker) FieldInteraction(field string) {
	defer t.recoverHook("field interaction")
	if !t.running() {
		return
	}
	t.checkout.FieldInteraction(field)
}

// ExitIntent reports the mouse leaving the top edge of the viewport.
func (t *Tracker) ExitIntent() {
	defer t.recoverHook("exit intent")
	if !t.running() {
		return
	}
	t.currentMilestones().OnExitIntent()
}

// PurchaseCompleted reports a confirmed order from the thank-you page.
func (t *Tracker) PurchaseCompleted(order browser.OrderData) {
	defer t.recoverHook("purchase")
	if !t.running() {
		return
	}
	t.checkout.Complete(order, readJourney(t.durable))
}

// PageHidden reports the page becoming hidden. Forces a synchronous flush:
// deferred timers are not guaranteed to fire in the background.
func (t *Tracker) PageHidden() {
	defer t.recoverHook("page hidden")
	if !t.running() {
		return
	}
	t.queue.ForceFlush()
}

// PageUnloading reports the page being torn down: abandonment detection,
// then a synchronous drain of the queue.
func (t *Tracker) PageUnloading() {
	defer t.recoverHook("page unload")
	if !t.running() {
		return
	}
	t.checkout.PageUnloading()
	t.queue.ForceFlush()
}

// Online reports connectivity returning; buffered failed events get one
// retry attempt ahead of newer events.
func (t *Tracker) Online() {
	defer t.recoverHook("online")
	if !t.running() {
		return
	}
	t.queue.RetryFailed()
}

// QueueLen reports the number of events buffered and not yet flushed.
// Intended for the scenario harness and diagnostics.
func (t *Tracker) QueueLen() int {
	t.mu.Lock()
	q := t.queue
	t.mu.Unlock()
	if q == nil {
		return 0
	}
	return q.Len()
}

// Close stops background work and drains the queue. The tracker cannot be
// restarted.
func (t *Tracker) Close() {
	defer t.recoverHook("close")

	t.mu.Lock()
	if t.closed || !t.started {
		t.closed = true
		t.mu.Unlock()
		return
	}
	t.closed = true
	if t.stopTick != nil {
		close(t.stopTick)
		t.stopTick = nil
	}
	t.mu.Unlock()

	if t.adapter != nil {
		t.safeAdapter(func() { t.adapter.Close() })
	}
	t.queue.ForceFlush()
}

// buildComponents constructs collaborators that only need configuration,
// not a started tracker.
func (t *Tracker) buildComponents() {
	idOpts := []identity.Option{identity.WithClock(t.now)}
	checkoutOpts := []checkout.Option{
		checkout.WithClock(t.now),
		checkout.WithIdleThreshold(t.cfg.IdleThreshold),
		checkout.WithAttribution(t.attributionProps),
	}
	if t.newID != nil {
		idOpts = append(idOpts, identity.WithIDGenerator(t.newID))
		checkoutOpts = append(checkoutOpts, checkout.WithIDGenerator(t.newID))
	}

	t.identity = identity.New(t.durable, t.ephemeral, t.cfg.SessionTimeout, idOpts...)
	t.attribution = attribution.New(t.ephemeral, attribution.WithClock(t.now))
	t.queue = queue.New(t.cfg.ProjectID, t.sender, t.durable, t.cfg.BatchSize, t.cfg.BatchTimeout, queue.WithClock(t.now))
	t.checkout = checkout.New(t.emit, t.durable, checkoutOpts...)
	t.consentGate = consent.New(t.durable, consent.WithClock(t.now))
	t.milestones = behavior.NewMilestones(t.emit)
	t.scroll = behavior.NewThrottle(scrollThrottleInterval)
	if t.cfg.EnableScoring {
		t.scorer = scoring.New(t.emit)
	}
}

// startLocked flips the tracker live. Caller holds t.mu.
func (t *Tracker) startLocked() {
	if t.started || t.closed {
		return
	}
	t.started = true
	t.pageLoadedAt = t.now()
	t.stopTick = make(chan struct{})

	slog.Info("tracker started", "project_id", t.cfg.ProjectID, "platform", t.cfg.Platform)

	if adapter, ok := t.registry.Resolve(t.cfg.Platform); ok {
		t.adapter = adapter
		t.safeAdapter(func() { adapter.Init(t.env, t.emit) })
	}

	go t.tickLoop(t.stopTick)

	// First page life: warm identity, capture attribution, check recovery,
	// log the journey entry, then retry anything buffered from last visit.
	go func() {
		defer t.recoverHook("startup")
		t.PageChanged()
		t.queue.RetryFailed()
	}()
}

// awaitConsent polls the consent gate until granted, denied, or timeout.
// No events are queued while gated.
func (t *Tracker) awaitConsent() {
	defer t.recoverHook("consent poll")

	deadline := t.now().Add(t.cfg.ConsentPollTimeout)
	ticker := time.NewTicker(t.cfg.ConsentPollInterval)
	defer ticker.Stop()

	for range ticker.C {
		switch t.consentGate.Status() {
		case consent.StatusGranted:
			t.mu.Lock()
			t.startLocked()
			t.mu.Unlock()
			return
		case consent.StatusDenied:
			slog.Info("tracking disabled: consent denied")
			return
		}
		if t.now().After(deadline) {
			slog.Debug("consent never observed, abandoning tracking start")
			return
		}
	}
}

// tickLoop drives time-on-page milestones and checkout idle detection.
func (t *Tracker) tickLoop(stop chan struct{}) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			t.tick()
		}
	}
}

// tick re-evaluates elapsed-time instrumentation once. Split from tickLoop
// so tests can drive it against a manual clock.
func (t *Tracker) tick() {
	defer t.recoverHook("tick")
	if !t.running() {
		return
	}
	t.mu.Lock()
	elapsed := int(t.now().Sub(t.pageLoadedAt).Seconds())
	t.mu.Unlock()
	t.currentMilestones().OnTimeElapsed(elapsed)
	t.checkout.CheckIdle()
}

// currentMilestones returns the milestone tracker for the current page
// life; PageChanged swaps it under the tracker mutex.
func (t *Tracker) currentMilestones() *behavior.Milestones {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.milestones
}

// buildEvent assembles the wire event: identity, page, fingerprint,
// attribution, then adapter enrichment with adapter fields winning on key
// collision.
func (t *Tracker) buildEvent(eventType string, props map[string]any) wire.Event {
	page := t.env.Page()

	event := wire.NewEvent(eventType, t.now())
	event.UserID = t.identity.VisitorID()
	event.SessionID = t.identity.SessionID()
	event.PageURL = page.URL
	event.DeviceFingerprint = t.env.Fingerprint()
	event.Platform = t.cfg.Platform

	merged := make(map[string]any, len(props)+2)
	for k, v := range props {
		merged[k] = v
	}
	if attr := t.attributionProps(); attr != nil {
		merged["attribution"] = attr
	}
	if t.adapter != nil {
		var extra map[string]any
		t.safeAdapter(func() { extra = t.adapter.EnrichEvent(eventType, merged) })
		// Adapter fields take precedence on collision.
		for k, v := range extra {
			merged[k] = v
		}
	}
	if len(merged) > 0 {
		event.Properties = merged
	}
	return event
}

// attributionProps returns the saved attribution record as properties, nil
// when none was captured.
func (t *Tracker) attributionProps() map[string]any {
	if t.attribution == nil {
		return nil
	}
	r := t.attribution.Saved()
	if r == nil {
		return nil
	}
	props := map[string]any{"detected_at": r.DetectedAt}
	set := func(k, v string) {
		if v != "" {
			props[k] = v
		}
	}
	set("influencer_id", r.InfluencerID)
	set("campaign_id", r.CampaignID)
	set("promo_code", r.PromoCode)
	set("utm_source", r.UTMSource)
	set("utm_medium", r.UTMMedium)
	set("utm_campaign", r.UTMCampaign)
	set("utm_content", r.UTMContent)
	set("utm_term", r.UTMTerm)
	set("ref", r.Ref)
	set("social_source", r.SocialSource)
	return props
}

// emit is the Emitter handed to sub-components; it feeds back into Track.
func (t *Tracker) emit(eventType string, props map[string]any) {
	t.Track(eventType, props)
}

func (t *Tracker) running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.started && !t.closed
}

// safeAdapter runs an adapter hook, neutralizing panics. Adapters are
// third-party code; their failures must not reach the host.
func (t *Tracker) safeAdapter(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("platform adapter panicked", "panic", r)
		}
	}()
	fn()
}

// recoverHook contains panics on public entry points.
func (t *Tracker) recoverHook(name string) {
	if r := recover(); r != nil {
		slog.Error("tracker hook panicked", "hook", name, "panic", r)
	}
}
