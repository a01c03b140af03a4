package queue

import (
	"github.com/beacon-analytics/beacon-go/internal/storage"
	"github.com/beacon-analytics/beacon-go/internal/wire"
)

// FailedEventCap bounds the durable failed buffer. When a failed batch
// would exceed it, the oldest events are evicted first. Sustained outages
// therefore lose all but the most recent 100 events.
const FailedEventCap = 100

// buryFailed appends events to the durable failed buffer, enforcing the
// cap. The read-modify-write happens within one synchronous call so
// re-entrant failures cannot lose updates.
func (q *Queue) buryFailed(events []wire.Event) {
	var buffered []wire.Event
	storage.ReadJSON(q.durable, storage.KeyFailedQueue, &buffered)
	buffered = append(buffered, events...)
	if len(buffered) > FailedEventCap {
		buffered = buffered[len(buffered)-FailedEventCap:]
	}
	storage.WriteJSON(q.durable, storage.KeyFailedQueue, buffered)
}

// takeFailed atomically reads and clears the failed buffer.
func (q *Queue) takeFailed() []wire.Event {
	var buffered []wire.Event
	if !storage.ReadJSON(q.durable, storage.KeyFailedQueue, &buffered) || len(buffered) == 0 {
		return nil
	}
	_ = q.durable.Delete(storage.KeyFailedQueue)
	return buffered
}

// FailedEvents reads the durable failed buffer without clearing it.
// Used by the CLI replay command and by tests.
func FailedEvents(durable storage.Store) []wire.Event {
	var buffered []wire.Event
	storage.ReadJSON(durable, storage.KeyFailedQueue, &buffered)
	return buffered
}

// ClearFailed removes the durable failed buffer.
func ClearFailed(durable storage.Store) {
	_ = durable.Delete(storage.KeyFailedQueue)
}
