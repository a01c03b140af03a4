// Package beacon is an embeddable event-tracking SDK for e-commerce hosts.
//
// It correlates visitor behavior with marketing and influencer attribution:
// traffic-source detection, device fingerprinting, behavioral event
// batching with durable retry, checkout funnel tracking with abandonment
// and recovery detection, and optional storefront-platform enrichment.
//
// The host supplies the environment (current page state, lifecycle
// signals, key-value storage); the SDK owns the pipeline. A minimal
// embedding looks like:
//
//	tracker := beacon.New(beacon.Config{
//	    APIEndpoint: "https://collect.example.com/events",
//	    ProjectID:   "shop-123",
//	    Platform:    "shopify",
//	}, env)
//	if err := tracker.Init(); err != nil {
//	    // tracking stays disabled; the host is unaffected
//	}
//	tracker.Track("product_viewed", map[string]any{"sku": "TS-001"})
//
// The host forwards lifecycle signals (PageChanged, Scroll, PageHidden,
// PageUnloading, Online) as they happen. No call into the SDK ever
// panics or returns a transmission error: tracking degrades silently
// rather than breaking the page.
package beacon
