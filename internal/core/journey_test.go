package core

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beacon-analytics/beacon-go/internal/storage"
)

func TestJourney_AppendAndRead(t *testing.T) {
	durable := storage.NewMemory()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	assert.Nil(t, readJourney(durable))

	appendJourney(durable, "https://shop.example/", "sess-1", now)
	appendJourney(durable, "https://shop.example/products/tee", "sess-1", now.Add(time.Minute))

	entries := readJourney(durable)
	require.Len(t, entries, 2)
	assert.Equal(t, "https://shop.example/", entries[0]["url"])
	assert.Equal(t, "sess-1", entries[0]["session_id"])
	assert.Equal(t, now.UnixMilli(), entries[0]["ts"])
	assert.Equal(t, "https://shop.example/products/tee", entries[1]["url"])
}

func TestJourney_CapsAtFiftyEntries(t *testing.T) {
	durable := storage.NewMemory()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 55; i++ {
		appendJourney(durable, fmt.Sprintf("https://shop.example/p/%d", i), "sess-1", now.Add(time.Duration(i)*time.Second))
	}

	entries := readJourney(durable)
	require.Len(t, entries, journeyCap)
	assert.Equal(t, "https://shop.example/p/5", entries[0]["url"])
	assert.Equal(t, "https://shop.example/p/54", entries[len(entries)-1]["url"])
}
