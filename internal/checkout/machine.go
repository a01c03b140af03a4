// Package checkout tracks a visitor's progress through a multi-step
// checkout flow: step transitions, dwell time, form interaction,
// abandonment, and cross-session recovery.
//
// ARCHITECTURE:
//
// The machine is level-triggered. The host re-supplies a PageSnapshot on
// every relevant page mutation and Observe re-evaluates "what step am I
// on"; a transition is recorded only when the newly detected step differs
// from the current one AND is a known step. A detection of "unknown" never
// overwrites a known current step, which guards against transient DOM
// states during storefront re-renders.
//
// Abandonment is idempotent per checkout session: whichever of the two
// triggers (page unload, prolonged inactivity) fires first wins, and a
// single flag suppresses the rest.
//
// Machine is safe for concurrent use: the orchestrator's tick goroutine
// (idle detection) interleaves with host callbacks. Emits happen under the
// machine lock; the emit path feeds the event queue and never re-enters the
// machine.
package checkout

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/beacon-analytics/beacon-go/internal/browser"
	"github.com/beacon-analytics/beacon-go/internal/storage"
)

// Defaults for abandonment and recovery windows.
const (
	DefaultIdleThreshold = 5 * time.Minute
	RecoveryWindow       = 24 * time.Hour
)

// Emitter receives the machine's outbound signals. The orchestrator wires
// it to Track.
type Emitter func(eventType string, props map[string]any)

// Transition is one recorded step change.
type Transition struct {
	From         Step  `json:"from"`
	To           Step  `json:"to"`
	TimeOnStepMS int64 `json:"time_on_step_ms"`
}

// stepData accumulates per-step dwell and form interaction.
type stepData struct {
	EnteredAt    int64          `json:"entered_at"`
	DurationMS   int64          `json:"duration_ms"`
	Interactions map[string]int `json:"interactions,omitempty"`
}

// AbandonmentRecord is the durable record written when a checkout is
// abandoned, consumed by recovery detection on a later page load.
type AbandonmentRecord struct {
	CheckoutID      string         `json:"checkout_id"`
	AbandonmentTime int64          `json:"abandonment_time"` // unix ms
	Step            Step           `json:"step"`
	CartValue       int64          `json:"cart_value"`
	FormCompletion  float64        `json:"form_completion"`
	Attribution     map[string]any `json:"attribution,omitempty"`
}

// Machine tracks one checkout attempt at a time.
type Machine struct {
	emit          Emitter
	durable       storage.Store
	now           func() time.Time
	newID         func() string
	idleThreshold time.Duration

	// attribution supplies the session's attribution context for the
	// abandonment record; nil when the orchestrator has none.
	attribution func() map[string]any

	// mu guards everything below.
	mu                 sync.Mutex
	active             bool
	checkoutID         string
	startTime          time.Time
	currentStep        Step
	stepEnteredAt      time.Time
	steps              map[Step]*stepData
	history            []Transition
	lastActivity       time.Time
	lastFieldCount     int
	cartValue          int64
	abandonmentTracked bool
	recoveryAttempted  bool
}

// Option configures a Machine.
type Option func(*Machine)

// WithClock overrides the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Machine) { m.now = now }
}

// WithIDGenerator overrides checkout id generation, for tests.
func WithIDGenerator(gen func() string) Option {
	return func(m *Machine) { m.newID = gen }
}

// WithIdleThreshold overrides the inactivity abandonment threshold.
func WithIdleThreshold(d time.Duration) Option {
	return func(m *Machine) { m.idleThreshold = d }
}

// WithAttribution supplies the attribution context attached to
// abandonment records.
func WithAttribution(fn func() map[string]any) Option {
	return func(m *Machine) { m.attribution = fn }
}

// New creates an inactive Machine.
func New(emit Emitter, durable storage.Store, opts ...Option) *Machine {
	m := &Machine{
		emit:          emit,
		durable:       durable,
		now:           time.Now,
		newID:         uuid.NewString,
		idleThreshold: DefaultIdleThreshold,
		currentStep:   StepNotStarted,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Active reports whether a checkout session is in progress.
func (m *Machine) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// CheckoutID returns the current checkout session id, empty when inactive.
func (m *Machine) CheckoutID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.active {
		return ""
	}
	return m.checkoutID
}

// Begin starts a checkout session from the given snapshot. Idempotent: a
// no-op while a session is already active. A visit not preceded by a
// persisted abandonment record gets a fresh checkout id.
func (m *Machine) Begin(snap browser.PageSnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.beginLocked(snap)
}

func (m *Machine) beginLocked(snap browser.PageSnapshot) {
	if m.active || !snap.IsCheckout {
		return
	}
	now := m.now()
	m.active = true
	m.checkoutID = m.newID()
	m.startTime = now
	m.currentStep = StepNotStarted
	m.steps = make(map[Step]*stepData)
	m.history = nil
	m.lastActivity = now
	m.abandonmentTracked = false
	m.observeCart(snap)

	slog.Debug("checkout session started", "checkout_id", m.checkoutID)
	m.emit("checkout_started", map[string]any{
		"checkout_id": m.checkoutID,
		"cart_value":  m.cartValue,
	})

	if step := DetectStep(snap); step.known() {
		m.enterStep(step, now)
	}
}

// Observe re-evaluates the current step from a fresh snapshot. Starts a
// session if a checkout page appears without one. Records a transition only
// on a change to a known step.
func (m *Machine) Observe(snap browser.PageSnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.active {
		m.beginLocked(snap)
		return
	}
	m.observeCart(snap)

	step := DetectStep(snap)
	if !step.known() || step == m.currentStep {
		return
	}
	now := m.now()
	if m.currentStep.known() {
		m.completeStep(now, step)
	}
	m.enterStep(step, now)
}

// FieldInteraction records a form-field interaction on the current step.
// Counts as user activity for the inactivity trigger.
func (m *Machine) FieldInteraction(field string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.active {
		return
	}
	m.lastActivity = m.now()
	data := m.steps[m.currentStep]
	if data == nil {
		return
	}
	if data.Interactions == nil {
		data.Interactions = make(map[string]int)
	}
	data.Interactions[field]++
}

// Activity marks qualifying user activity, resetting the inactivity timer.
func (m *Machine) Activity() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active {
		m.lastActivity = m.now()
	}
}

// CheckIdle triggers abandonment when the visitor has been inactive past
// the idle threshold. Called periodically by the orchestrator.
func (m *Machine) CheckIdle() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.active || m.abandonmentTracked {
		return
	}
	if m.now().Sub(m.lastActivity) >= m.idleThreshold {
		m.abandon("inactivity")
	}
}

// PageUnloading triggers abandonment when the page is left mid-checkout.
func (m *Machine) PageUnloading() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.active || m.abandonmentTracked {
		return
	}
	m.abandon("page_exit")
}

// abandon emits the single abandonment event for this session and writes
// the durable record consumed by recovery detection.
func (m *Machine) abandon(reason string) {
	m.abandonmentTracked = true
	now := m.now()

	record := AbandonmentRecord{
		CheckoutID:      m.checkoutID,
		AbandonmentTime: now.UnixMilli(),
		Step:            m.currentStep,
		CartValue:       m.cartValue,
		FormCompletion:  m.formCompletion(),
	}
	if m.attribution != nil {
		record.Attribution = m.attribution()
	}
	storage.WriteJSON(m.durable, storage.KeyAbandonment, record)

	slog.Debug("checkout abandoned", "checkout_id", m.checkoutID, "reason", reason, "step", m.currentStep)
	m.emit("checkout_abandoned", map[string]any{
		"checkout_id":     m.checkoutID,
		"reason":          reason,
		"step":            string(m.currentStep),
		"cart_value":      m.cartValue,
		"form_completion": record.FormCompletion,
		"duration_ms":     now.Sub(m.startTime).Milliseconds(),
	})
}

// CheckRecovery inspects any persisted abandonment record on page load.
// Inside the recovery window it emits a recovery opportunity; when the
// current page is itself a checkout page it additionally emits a recovery
// attempt and consumes the record. Stale records are deleted silently.
func (m *Machine) CheckRecovery(snap browser.PageSnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var record AbandonmentRecord
	if !storage.ReadJSON(m.durable, storage.KeyAbandonment, &record) {
		return
	}
	age := m.now().Sub(time.UnixMilli(record.AbandonmentTime))
	if age >= RecoveryWindow {
		_ = m.durable.Delete(storage.KeyAbandonment)
		return
	}

	m.emit("checkout_recovery_opportunity", map[string]any{
		"checkout_id":     record.CheckoutID,
		"abandoned_step":  string(record.Step),
		"cart_value":      record.CartValue,
		"hours_since":     age.Hours(),
		"form_completion": record.FormCompletion,
	})

	if snap.IsCheckout {
		m.recoveryAttempted = true
		_ = m.durable.Delete(storage.KeyAbandonment)
		m.emit("checkout_recovery_attempt", map[string]any{
			"checkout_id":    record.CheckoutID,
			"abandoned_step": string(record.Step),
			"cart_value":     record.CartValue,
		})
	}
}

// Complete finishes the checkout on an order-confirmation page: emits the
// single purchase-completed event carrying the full step history, then
// clears the session and any abandonment record.
func (m *Machine) Complete(order browser.OrderData, journey []map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	props := map[string]any{
		"order_id": order.OrderID,
		"total":    order.Total,
		"currency": order.Currency,
		"items":    order.Items,
	}
	if m.active {
		if m.currentStep.known() {
			m.completeStep(now, StepCompleted)
		}
		props["checkout_id"] = m.checkoutID
		props["duration_ms"] = now.Sub(m.startTime).Milliseconds()
		props["steps"] = m.historyProps()
	}
	if m.recoveryAttempted {
		props["recovered_purchase"] = true
	}
	if len(journey) > 0 {
		props["journey"] = journey
	}

	m.emit("purchase_completed", props)
	slog.Debug("purchase completed", "order_id", order.OrderID, "checkout_id", m.checkoutID)

	_ = m.durable.Delete(storage.KeyAbandonment)
	m.reset()
}

// History returns the recorded step transitions.
func (m *Machine) History() []Transition {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Transition, len(m.history))
	copy(out, m.history)
	return out
}

// enterStep makes step current. The per-step timer and form-interaction
// accumulator start fresh on every entry, including re-entry of a step
// visited earlier in the session.
func (m *Machine) enterStep(step Step, now time.Time) {
	m.currentStep = step
	m.stepEnteredAt = now
	m.lastActivity = now
	m.steps[step] = &stepData{EnteredAt: now.UnixMilli()}
	m.emit("checkout_step_started", map[string]any{
		"checkout_id": m.checkoutID,
		"step":        string(step),
	})
}

// completeStep closes out the current step before entering next:
// accumulates dwell, appends the transition, and emits the step-completed
// signal with the step's data.
func (m *Machine) completeStep(now time.Time, next Step) {
	dwell := now.Sub(m.stepEnteredAt).Milliseconds()
	data := m.steps[m.currentStep]
	if data != nil {
		data.DurationMS += dwell
	}

	props := map[string]any{
		"checkout_id":     m.checkoutID,
		"step":            string(m.currentStep),
		"time_on_step_ms": dwell,
	}
	if data != nil && len(data.Interactions) > 0 {
		props["field_interactions"] = len(data.Interactions)
	}
	m.emit("checkout_step_completed", props)

	m.history = append(m.history, Transition{
		From:         m.currentStep,
		To:           next,
		TimeOnStepMS: dwell,
	})
}

func (m *Machine) historyProps() []map[string]any {
	out := make([]map[string]any, 0, len(m.history))
	for _, t := range m.history {
		out = append(out, map[string]any{
			"from":            string(t.From),
			"to":              string(t.To),
			"time_on_step_ms": t.TimeOnStepMS,
		})
	}
	return out
}

// formCompletion estimates how much of the visible form was touched.
func (m *Machine) formCompletion() float64 {
	if m.lastFieldCount == 0 {
		return 0
	}
	touched := 0
	for _, data := range m.steps {
		touched += len(data.Interactions)
	}
	completion := float64(touched) / float64(m.lastFieldCount)
	if completion > 1 {
		completion = 1
	}
	return completion
}

func (m *Machine) observeCart(snap browser.PageSnapshot) {
	if snap.CartValue > 0 {
		m.cartValue = snap.CartValue
	}
	if n := len(snap.FormFields); n > 0 {
		m.lastFieldCount = n
	}
}

func (m *Machine) reset() {
	m.active = false
	m.checkoutID = ""
	m.currentStep = StepNotStarted
	m.steps = nil
	m.history = nil
	m.abandonmentTracked = false
	m.recoveryAttempted = false
}
