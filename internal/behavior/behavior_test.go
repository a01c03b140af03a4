package behavior

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beacon-analytics/beacon-go/internal/testutil"
)

type capture struct {
	types []string
	props []map[string]any
}

func (c *capture) emit(eventType string, props map[string]any) {
	c.types = append(c.types, eventType)
	c.props = append(c.props, props)
}

func TestOnScroll_FiresEachThresholdOnce(t *testing.T) {
	c := &capture{}
	m := NewMilestones(c.emit)

	m.OnScroll(10)
	assert.Empty(t, c.types)

	// A jump past several thresholds fires all of them, in order.
	m.OnScroll(80)
	require.Equal(t, []string{"scroll_depth", "scroll_depth", "scroll_depth"}, c.types)
	assert.Equal(t, 25, c.props[0]["depth_percent"])
	assert.Equal(t, 50, c.props[1]["depth_percent"])
	assert.Equal(t, 75, c.props[2]["depth_percent"])

	// Scrolling back up and down again re-fires nothing.
	m.OnScroll(20)
	m.OnScroll(80)
	assert.Len(t, c.types, 3)

	m.OnScroll(95)
	assert.Equal(t, 90, c.props[3]["depth_percent"])
}

func TestOnTimeElapsed_FiresEachThresholdOnce(t *testing.T) {
	c := &capture{}
	m := NewMilestones(c.emit)

	m.OnTimeElapsed(29)
	assert.Empty(t, c.types)

	m.OnTimeElapsed(31)
	m.OnTimeElapsed(35)
	require.Len(t, c.types, 1)
	assert.Equal(t, 30, c.props[0]["seconds"])

	m.OnTimeElapsed(301)
	assert.Len(t, c.types, 4)
	assert.Equal(t, 300, c.props[3]["seconds"])
}

func TestOnExitIntent_OneShotWithMaxScroll(t *testing.T) {
	c := &capture{}
	m := NewMilestones(c.emit)

	m.OnScroll(60)
	m.OnScroll(30)
	c.types, c.props = nil, nil

	m.OnExitIntent()
	m.OnExitIntent()

	require.Equal(t, []string{"exit_intent"}, c.types)
	assert.Equal(t, 60, c.props[0]["max_scroll_percent"])
}

func TestThrottle_EnforcesMinimumInterval(t *testing.T) {
	clock := testutil.NewManualClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	th := NewThrottle(200 * time.Millisecond)
	th.SetClock(clock.Now)

	assert.True(t, th.Allow())
	assert.False(t, th.Allow())

	clock.Advance(199 * time.Millisecond)
	assert.False(t, th.Allow())

	clock.Advance(1 * time.Millisecond)
	assert.True(t, th.Allow())
	assert.False(t, th.Allow())
}
