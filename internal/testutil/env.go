package testutil

import (
	"sync"

	"github.com/beacon-analytics/beacon-go/internal/browser"
	"github.com/beacon-analytics/beacon-go/internal/wire"
)

// FakeEnvironment is a settable browser.Environment.
type FakeEnvironment struct {
	mu          sync.Mutex
	page        browser.PageView
	snapshot    browser.PageSnapshot
	fingerprint wire.Fingerprint
}

// NewFakeEnvironment creates an environment showing a blank page.
func NewFakeEnvironment() *FakeEnvironment {
	return &FakeEnvironment{
		fingerprint: wire.Fingerprint{
			ScreenWidth:  1920,
			ScreenHeight: 1080,
			Language:     "en-US",
			Timezone:     "UTC",
			Platform:     "test",
		},
	}
}

// SetPage updates the visible page; the snapshot's view follows.
func (f *FakeEnvironment) SetPage(page browser.PageView) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.page = page
	f.snapshot.View = page
}

// SetSnapshot replaces the checkout signal snapshot.
func (f *FakeEnvironment) SetSnapshot(snap browser.PageSnapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snapshot = snap
	f.page = snap.View
}

// SetFingerprint replaces the device snapshot.
func (f *FakeEnvironment) SetFingerprint(fp wire.Fingerprint) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fingerprint = fp
}

func (f *FakeEnvironment) Page() browser.PageView {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.page
}

func (f *FakeEnvironment) Snapshot() browser.PageSnapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshot
}

func (f *FakeEnvironment) Fingerprint() wire.Fingerprint {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fingerprint
}
