package platform

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/beacon-analytics/beacon-go/internal/browser"
)

// DefaultCartPollInterval is how often the Shopify adapter re-reads cart
// state when polling is enabled.
const DefaultCartPollInterval = 15 * time.Second

// Doer is the injected HTTP surface the adapter observes cart state
// through. Explicit injection replaces the legacy approach of globally
// intercepting the page's fetch/XHR, which had side effects on unrelated
// host code and was untestable.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// cartState mirrors the subset of the Shopify cart payload the adapter
// cares about.
type cartState struct {
	TotalPrice int64 `json:"total_price"` // minor units
	ItemCount  int   `json:"item_count"`
}

// Shopify enriches events with storefront context and optionally polls the
// cart endpoint, emitting cart_updated on changes.
type Shopify struct {
	client       Doer
	cartURL      string
	pollInterval time.Duration

	env  browser.Environment
	emit Emitter

	mu       sync.Mutex
	lastCart *cartState
	stop     chan struct{}
}

// ShopifyOption configures the adapter.
type ShopifyOption func(*Shopify)

// WithCartClient enables cart polling via the given client against cartURL
// (the storefront's /cart.js equivalent).
func WithCartClient(client Doer, cartURL string) ShopifyOption {
	return func(s *Shopify) {
		s.client = client
		s.cartURL = cartURL
	}
}

// WithPollInterval overrides the cart polling interval.
func WithPollInterval(d time.Duration) ShopifyOption {
	return func(s *Shopify) { s.pollInterval = d }
}

// NewShopify creates the adapter. Without a cart client it only enriches.
func NewShopify(opts ...ShopifyOption) *Shopify {
	s := &Shopify{pollInterval: DefaultCartPollInterval}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Init stores the environment and starts the cart poller when configured.
func (s *Shopify) Init(env browser.Environment, emit Emitter) {
	s.env = env
	s.emit = emit
	if s.client != nil && s.cartURL != "" {
		s.stop = make(chan struct{})
		go s.pollCart()
	}
}

// Close stops the cart poller.
func (s *Shopify) Close() {
	if s.stop != nil {
		close(s.stop)
		s.stop = nil
	}
}

// EnrichEvent adds Shopify page context. Pure over its inputs plus the
// environment's current page.
func (s *Shopify) EnrichEvent(eventType string, props map[string]any) map[string]any {
	extra := map[string]any{
		"shop_platform": "shopify",
	}
	if s.env != nil {
		extra["page_type"] = shopifyPageType(s.env.Page().URL)
	}
	s.mu.Lock()
	if s.lastCart != nil {
		extra["cart_total"] = s.lastCart.TotalPrice
		extra["cart_items"] = s.lastCart.ItemCount
	}
	s.mu.Unlock()
	return extra
}

// pollCart periodically reads cart state, emitting cart_updated when the
// total or item count changes.
func (s *Shopify) pollCart() {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.readCart()
		}
	}
}

func (s *Shopify) readCart() {
	req, err := http.NewRequest(http.MethodGet, s.cartURL, nil)
	if err != nil {
		return
	}
	resp, err := s.client.Do(req)
	if err != nil {
		slog.Debug("cart poll failed", "error", err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return
	}

	var cart cartState
	if err := json.NewDecoder(resp.Body).Decode(&cart); err != nil {
		slog.Debug("cart payload decode failed", "error", err)
		return
	}

	s.mu.Lock()
	changed := s.lastCart == nil || *s.lastCart != cart
	s.lastCart = &cart
	s.mu.Unlock()

	if changed && s.emit != nil {
		s.emit("cart_updated", map[string]any{
			"cart_total": cart.TotalPrice,
			"cart_items": cart.ItemCount,
		})
	}
}

// shopifyPageType classifies a storefront URL by its conventional path.
func shopifyPageType(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "other"
	}
	path := strings.ToLower(u.Path)
	switch {
	case path == "" || path == "/":
		return "home"
	case strings.Contains(path, "/products/"):
		return "product"
	case strings.Contains(path, "/collections"):
		return "collection"
	case strings.Contains(path, "/cart"):
		return "cart"
	case strings.Contains(path, "/checkouts/"), strings.Contains(path, "/checkout"):
		return "checkout"
	case strings.Contains(path, "/thank_you"), strings.Contains(path, "/orders/"):
		return "purchase"
	default:
		return "other"
	}
}
