package transport

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beacon-analytics/beacon-go/internal/wire"
)

func testBatch() wire.Batch {
	e := wire.NewEvent("page_view", time.Unix(1700000000, 0))
	return wire.Batch{
		ProjectID: "proj-1",
		Events:    []wire.Event{e},
		Version:   wire.Version,
		Timestamp: time.Unix(1700000001, 0).UnixMilli(),
	}
}

func TestSend_PostsBatchAsJSON(t *testing.T) {
	var got wire.Batch
	var contentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	require.NoError(t, c.Send(testBatch()))

	assert.Equal(t, "application/json", contentType)
	assert.Equal(t, "proj-1", got.ProjectID)
	require.Len(t, got.Events, 1)
	assert.Equal(t, "page_view", got.Events[0].EventType)
	assert.Equal(t, wire.Version, got.Version)
}

func TestSend_NonSuccessStatusIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	err := c.Send(testBatch())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestSend_ConnectionFailureIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	c := NewClient(srv.URL, WithHTTPClient(&http.Client{Timeout: time.Second}))
	assert.Error(t, c.Send(testBatch()))
}
