// Package queue buffers outbound events, batches them, and ships them to
// the collection endpoint.
//
// ARCHITECTURE:
//
// Bounded-latency batching:
// An event added to the queue is sent within max(batchTimeout, time to
// accumulate batchSize events). A size-triggered flush fires immediately on
// the add that reaches batchSize; otherwise a deferred flush is scheduled.
// Once a deferred flush is scheduled it is NOT rescheduled by later adds:
// size-triggered flushes already bound worst-case latency, so resetting the
// timer would only delay delivery.
//
// Failure containment:
// Transmission failures never reach the caller of Add. A failed batch is
// appended to a durable failed-event buffer capped at the last 100 events
// (oldest evicted first — deliberately lossy under sustained outage).
// RetryFailed prepends buffered events ahead of newer ones, trading strict
// cross-batch ordering for eventual delivery.
package queue

import (
	"log/slog"
	"sync"
	"time"

	"github.com/beacon-analytics/beacon-go/internal/storage"
	"github.com/beacon-analytics/beacon-go/internal/wire"
)

// Default batching parameters.
const (
	DefaultBatchSize    = 10
	DefaultBatchTimeout = 3 * time.Second
)

// Sender performs a single batch transmission. A nil error means the batch
// was accepted; any error (network failure, non-2xx) means the whole batch
// failed.
type Sender interface {
	Send(batch wire.Batch) error
}

// Queue is the outbound event pipeline.
type Queue struct {
	projectID    string
	batchSize    int
	batchTimeout time.Duration
	sender       Sender
	durable      storage.Store
	now          func() time.Time

	mu      sync.Mutex
	pending []wire.Event
	timer   *time.Timer
}

// Option configures a Queue.
type Option func(*Queue)

// WithClock overrides the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(q *Queue) { q.now = now }
}

// New creates a Queue. Zero batchSize/batchTimeout take the defaults.
func New(projectID string, sender Sender, durable storage.Store, batchSize int, batchTimeout time.Duration, opts ...Option) *Queue {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if batchTimeout <= 0 {
		batchTimeout = DefaultBatchTimeout
	}
	q := &Queue{
		projectID:    projectID,
		batchSize:    batchSize,
		batchTimeout: batchTimeout,
		sender:       sender,
		durable:      durable,
		now:          time.Now,
		pending:      make([]wire.Event, 0, batchSize),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Add appends an event. Reaching batchSize triggers an immediate
// asynchronous flush; otherwise a deferred flush is scheduled if none is
// pending. Add never blocks on the network and never returns an error.
func (q *Queue) Add(event wire.Event) {
	q.mu.Lock()
	q.pending = append(q.pending, event)
	if len(q.pending) >= q.batchSize {
		q.mu.Unlock()
		go q.Flush()
		return
	}
	if q.timer == nil {
		q.timer = time.AfterFunc(q.batchTimeout, func() { q.Flush() })
	}
	q.mu.Unlock()
}

// Flush sends up to one batch from the head of the queue.
//
// On success the batch is discarded. On failure its events move to the
// durable failed buffer; they are never re-queued in place. A remaining
// backlog of a full batch or more chains an immediate follow-up flush, the
// same trigger Add applies; a smaller remainder gets a fresh deferred flush
// so nothing sits unscheduled.
func (q *Queue) Flush() {
	q.mu.Lock()
	q.cancelTimerLocked()
	batch := q.popBatchLocked()
	q.mu.Unlock()

	if len(batch) == 0 {
		return
	}
	q.send(batch)

	q.mu.Lock()
	backlog := len(q.pending)
	if backlog >= q.batchSize {
		q.mu.Unlock()
		go q.Flush()
		return
	}
	if backlog > 0 && q.timer == nil {
		q.timer = time.AfterFunc(q.batchTimeout, func() { q.Flush() })
	}
	q.mu.Unlock()
}

// ForceFlush cancels any deferred flush and synchronously drains the whole
// queue. Used on page-hide and unload, where timers are not guaranteed to
// fire again.
func (q *Queue) ForceFlush() {
	for {
		q.mu.Lock()
		q.cancelTimerLocked()
		batch := q.popBatchLocked()
		q.mu.Unlock()
		if len(batch) == 0 {
			return
		}
		q.send(batch)
	}
}

// RetryFailed drains the durable failed buffer into the head of the live
// queue and flushes. Retried events are sent before newer ones; if the
// retry fails too, they re-enter the buffer (still capped). Best-effort,
// at most once per call.
func (q *Queue) RetryFailed() {
	failed := q.takeFailed()
	if len(failed) == 0 {
		return
	}
	slog.Debug("retrying failed events", "count", len(failed))

	q.mu.Lock()
	q.pending = append(failed, q.pending...)
	q.mu.Unlock()
	q.Flush()
}

// Len returns the number of pending (unsent, unburied) events.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// popBatchLocked removes up to batchSize events from the head.
func (q *Queue) popBatchLocked() []wire.Event {
	n := len(q.pending)
	if n == 0 {
		return nil
	}
	if n > q.batchSize {
		n = q.batchSize
	}
	batch := make([]wire.Event, n)
	copy(batch, q.pending[:n])
	// Nil out popped slots so the backing array does not retain event
	// property maps.
	for i := 0; i < n; i++ {
		q.pending[i] = wire.Event{}
	}
	if n == len(q.pending) {
		q.pending = q.pending[:0]
	} else {
		q.pending = append(q.pending[:0], q.pending[n:]...)
	}
	return batch
}

func (q *Queue) cancelTimerLocked() {
	if q.timer != nil {
		q.timer.Stop()
		q.timer = nil
	}
}

// send transmits one batch, parking it in the failed buffer on error.
// Errors stop here; tracking must never break the host.
func (q *Queue) send(events []wire.Event) {
	batch := wire.Batch{
		ProjectID: q.projectID,
		Events:    events,
		Version:   wire.Version,
		Timestamp: q.now().UnixMilli(),
	}
	if err := q.sender.Send(batch); err != nil {
		slog.Warn("batch send failed, buffering for retry", "count", len(events), "error", err)
		q.buryFailed(events)
		return
	}
	slog.Debug("batch sent", "count", len(events))
}
