package testutil

import (
	"errors"
	"strconv"
	"sync"

	"github.com/beacon-analytics/beacon-go/internal/wire"
)

// ErrSendFailed is the error CaptureSender returns while failing.
var ErrSendFailed = errors.New("simulated transmission failure")

// CaptureSender records every batch it is handed and can be told to fail.
type CaptureSender struct {
	mu      sync.Mutex
	batches []wire.Batch
	failing bool
	sent    chan struct{}
}

// NewCaptureSender creates a succeeding sender.
func NewCaptureSender() *CaptureSender {
	return &CaptureSender{sent: make(chan struct{}, 1024)}
}

// Send records the batch; fails when failing mode is on.
func (s *CaptureSender) Send(batch wire.Batch) error {
	s.mu.Lock()
	failing := s.failing
	if !failing {
		s.batches = append(s.batches, batch)
	}
	s.mu.Unlock()

	if failing {
		return ErrSendFailed
	}
	select {
	case s.sent <- struct{}{}:
	default:
	}
	return nil
}

// SetFailing toggles failure mode.
func (s *CaptureSender) SetFailing(failing bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failing = failing
}

// Batches returns a copy of the successfully "sent" batches.
func (s *CaptureSender) Batches() []wire.Batch {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]wire.Batch, len(s.batches))
	copy(out, s.batches)
	return out
}

// Events flattens all sent batches into one event list, in send order.
func (s *CaptureSender) Events() []wire.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []wire.Event
	for _, b := range s.batches {
		out = append(out, b.Events...)
	}
	return out
}

// EventTypes returns the types of all sent events, in send order.
func (s *CaptureSender) EventTypes() []string {
	var out []string
	for _, e := range s.Events() {
		out = append(out, e.EventType)
	}
	return out
}

// Sent signals once per successful Send; receive on it to wait for an
// asynchronous flush without sleeping.
func (s *CaptureSender) Sent() <-chan struct{} {
	return s.sent
}

// IDGenerator yields "id-1", "id-2", ... for deterministic session and
// checkout ids.
type IDGenerator struct {
	mu sync.Mutex
	n  int
}

// NewIDGenerator creates a generator starting at id-1.
func NewIDGenerator() *IDGenerator {
	return &IDGenerator{}
}

// Next returns the next sequential id. Pass this method as the id
// generator to components under test.
func (g *IDGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return "id-" + strconv.Itoa(g.n)
}
