// Package browser defines the collaborator contract between the SDK and its
// host environment.
//
// The SDK never touches a DOM. The host (a WASM shim, a webview bridge, or a
// test fake) answers "what page am I on" and "what does the checkout UI look
// like right now" through these types, and pushes lifecycle signals (scroll,
// visibility, unload) into the tracker. Selector heuristics for producing a
// PageSnapshot live entirely on the host side.
package browser

import "github.com/beacon-analytics/beacon-go/internal/wire"

// PageView describes the current document.
type PageView struct {
	// URL is the full current URL including query and fragment.
	URL string
	// Referrer is the document referrer, empty for direct navigation.
	Referrer string
	// Title is the document title.
	Title string
	// UserAgent is the navigator user agent string.
	UserAgent string
}

// PageSnapshot is the raw checkout-relevant signal set for the current
// page state. The host re-supplies it on every relevant page mutation; the
// checkout machine is level-triggered over these snapshots.
type PageSnapshot struct {
	View PageView

	// IsCheckout reports whether the current page is part of a checkout flow.
	IsCheckout bool
	// IsThankYou reports whether the current page is an order-confirmation page.
	IsThankYou bool

	// ExplicitStep is the step name from an explicit page marker
	// (e.g. a data attribute), empty when absent.
	ExplicitStep string
	// StructuralStep is the step inferred from structural markers
	// (e.g. a section id), empty when absent.
	StructuralStep string
	// FormFields lists the visible form field names on the page.
	FormFields []string
	// Breadcrumb is the text of the active navigation breadcrumb, if any.
	Breadcrumb string

	// CartValue is the current cart total in minor units, 0 when unknown.
	CartValue int64
	// Currency is the cart currency code, empty when unknown.
	Currency string
}

// OrderData is the final order extracted from a confirmation page.
type OrderData struct {
	OrderID  string  `json:"order_id"`
	Total    float64 `json:"total"`
	Currency string  `json:"currency"`
	Items    int     `json:"items"`
}

// Environment is the host side of the SDK: a read-only window onto the
// current page. Implementations must be cheap to call; the tracker reads
// Page on every event.
type Environment interface {
	// Page returns the current document state.
	Page() PageView
	// Snapshot returns the current checkout-relevant signals.
	Snapshot() PageSnapshot
	// Fingerprint returns the device snapshot, stable for the page life.
	Fingerprint() wire.Fingerprint
}
