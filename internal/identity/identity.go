// Package identity manages the persistent visitor id and the renewable
// session id.
//
// The visitor id is created once and persisted indefinitely in the durable
// store. The session id lives in the ephemeral store with sliding
// expiration: any read of a live session extends it, a read past the
// timeout mints a new session.
package identity

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/beacon-analytics/beacon-go/internal/storage"
)

// DefaultSessionTimeout is the sliding session expiration window.
const DefaultSessionTimeout = 30 * time.Minute

// session is the persisted session shape.
type session struct {
	ID           string `json:"id"`
	StartTime    int64  `json:"start_time"`    // unix ms
	LastActivity int64  `json:"last_activity"` // unix ms
}

// Store resolves visitor and session identity. Safe for concurrent use:
// the orchestrator reads identity from host callbacks and from its
// background goroutines.
//
// Storage unavailability never surfaces as an error: a failed visitor read
// degrades to a fresh id cached in memory for the rest of the page life,
// and a failed session read behaves as an expired session.
type Store struct {
	durable        storage.Store
	ephemeral      storage.Store
	sessionTimeout time.Duration
	now            func() time.Time
	newID          func() string

	// mu guards the cached fallbacks and serializes the read-extend-write
	// cycle on the persisted session.
	mu            sync.Mutex
	cachedVisitor string
	cachedSession *session
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator overrides UUID generation, for tests.
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) { s.newID = gen }
}

// New creates a Store over the given durable and ephemeral stores.
// A sessionTimeout of zero means DefaultSessionTimeout.
func New(durable, ephemeral storage.Store, sessionTimeout time.Duration, opts ...Option) *Store {
	if sessionTimeout <= 0 {
		sessionTimeout = DefaultSessionTimeout
	}
	s := &Store{
		durable:        durable,
		ephemeral:      ephemeral,
		sessionTimeout: sessionTimeout,
		now:            time.Now,
		newID:          uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// VisitorID returns the persisted visitor id, creating and persisting a new
// one on first call. When the durable store is unavailable the id is held in
// memory only, so it may regenerate across restarts; that tradeoff is
// preferred over surfacing an error.
func (s *Store) VisitorID() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cachedVisitor != "" {
		return s.cachedVisitor
	}
	if id, ok, err := s.durable.Get(storage.KeyVisitorID); err == nil && ok && id != "" {
		s.cachedVisitor = id
		return id
	}
	id := s.newID()
	s.cachedVisitor = id
	_ = s.durable.Set(storage.KeyVisitorID, id)
	return id
}

// SessionID returns the current session id under sliding expiration.
//
// A session is valid iff now-lastActivity < sessionTimeout. Every call that
// finds a live session rewrites last_activity; a call that finds none (or an
// expired or corrupt one) creates a new session. Corrupt persisted JSON is
// treated as absence.
func (s *Store) SessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()

	var sess session
	if storage.ReadJSON(s.ephemeral, storage.KeySession, &sess) && s.live(&sess, now) {
		sess.LastActivity = now.UnixMilli()
		s.cachedSession = &sess
		storage.WriteJSON(s.ephemeral, storage.KeySession, &sess)
		return sess.ID
	}

	// Storage may be unavailable rather than empty; fall back to the cached
	// session if it is still live.
	if s.cachedSession != nil && s.live(s.cachedSession, now) {
		s.cachedSession.LastActivity = now.UnixMilli()
		storage.WriteJSON(s.ephemeral, storage.KeySession, s.cachedSession)
		return s.cachedSession.ID
	}

	fresh := &session{
		ID:           s.newID(),
		StartTime:    now.UnixMilli(),
		LastActivity: now.UnixMilli(),
	}
	s.cachedSession = fresh
	storage.WriteJSON(s.ephemeral, storage.KeySession, fresh)
	return fresh.ID
}

func (s *Store) live(sess *session, now time.Time) bool {
	if sess.ID == "" {
		return false
	}
	last := time.UnixMilli(sess.LastActivity)
	return now.Sub(last) < s.sessionTimeout
}
