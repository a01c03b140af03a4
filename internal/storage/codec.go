package storage

import (
	"encoding/json"
	"log/slog"
)

// ReadJSON loads and decodes the JSON value under key into v.
//
// Returns false when the key is absent, the read fails, or the persisted
// value is corrupt. Corrupt values are deleted so the next write starts
// clean; read failures are logged at debug and otherwise swallowed, since
// every caller has an in-memory fallback.
func ReadJSON(s Store, key string, v any) bool {
	raw, ok, err := s.Get(key)
	if err != nil {
		slog.Debug("storage read failed", "key", key, "error", err)
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		slog.Debug("discarding corrupt persisted value", "key", key, "error", err)
		_ = s.Delete(key)
		return false
	}
	return true
}

// WriteJSON encodes v and stores it under key. Failures are logged at debug
// and reported to the caller, which degrades to in-memory state.
func WriteJSON(s Store, key string, v any) bool {
	raw, err := json.Marshal(v)
	if err != nil {
		slog.Debug("storage encode failed", "key", key, "error", err)
		return false
	}
	if err := s.Set(key, string(raw)); err != nil {
		slog.Debug("storage write failed", "key", key, "error", err)
		return false
	}
	return true
}
