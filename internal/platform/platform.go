// Package platform hosts the pluggable storefront adapters.
//
// Adapters are looked up through an explicit registry keyed by platform
// name, resolved once at init. The "generic" platform resolves to no
// adapter; every adapter call in the orchestrator is optional.
package platform

import "github.com/beacon-analytics/beacon-go/internal/browser"

// Emitter lets adapters publish their own events (e.g. cart polling
// updates) through the tracker.
type Emitter func(eventType string, props map[string]any)

// Adapter is the narrow contract a storefront integration satisfies.
//
// EnrichEvent must be a pure function of its inputs: no blocking, no
// mutation of props. The orchestrator neutralizes panics, but adapters
// should not rely on that.
type Adapter interface {
	// Init is called once after core startup.
	Init(env browser.Environment, emit Emitter)
	// EnrichEvent returns extra properties for the event, or nil.
	EnrichEvent(eventType string, props map[string]any) map[string]any
	// Close releases adapter resources (pollers, listeners).
	Close()
}

// Registry maps platform names to adapter factories.
type Registry struct {
	factories map[string]func() Adapter
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]func() Adapter)}
}

// Register adds a factory under name, replacing any existing one.
func (r *Registry) Register(name string, factory func() Adapter) {
	r.factories[name] = factory
}

// Resolve instantiates the adapter for name. Unknown names and "generic"
// resolve to no adapter.
func (r *Registry) Resolve(name string) (Adapter, bool) {
	factory, ok := r.factories[name]
	if !ok {
		return nil, false
	}
	return factory(), true
}

// Default returns the stock registry: shopify, vtex, nuvemshop.
func Default() *Registry {
	r := NewRegistry()
	r.Register("shopify", func() Adapter { return NewShopify() })
	r.Register("vtex", func() Adapter { return &VTEX{} })
	r.Register("nuvemshop", func() Adapter { return &Nuvemshop{} })
	return r
}
