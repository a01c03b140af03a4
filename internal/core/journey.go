package core

import (
	"time"

	"github.com/beacon-analytics/beacon-go/internal/storage"
)

// journeyCap bounds the durable page-visit log.
const journeyCap = 50

// journeyEntry is one page visit in the customer journey.
type journeyEntry struct {
	URL       string `json:"url"`
	Timestamp int64  `json:"ts"` // unix ms
	SessionID string `json:"session_id"`
}

// appendJourney records a page visit in the durable journey log, evicting
// the oldest entries past the cap. Read, modify, and write happen within
// one synchronous call so re-entrant page changes cannot lose updates.
func appendJourney(durable storage.Store, url, sessionID string, now time.Time) {
	var entries []journeyEntry
	storage.ReadJSON(durable, storage.KeyJourney, &entries)
	entries = append(entries, journeyEntry{
		URL:       url,
		Timestamp: now.UnixMilli(),
		SessionID: sessionID,
	})
	if len(entries) > journeyCap {
		entries = entries[len(entries)-journeyCap:]
	}
	storage.WriteJSON(durable, storage.KeyJourney, entries)
}

// readJourney returns the journey log as event properties.
func readJourney(durable storage.Store) []map[string]any {
	var entries []journeyEntry
	if !storage.ReadJSON(durable, storage.KeyJourney, &entries) {
		return nil
	}
	out := make([]map[string]any, 0, len(entries))
	for _, e := range entries {
		out = append(out, map[string]any{
			"url":        e.URL,
			"ts":         e.Timestamp,
			"session_id": e.SessionID,
		})
	}
	return out
}
