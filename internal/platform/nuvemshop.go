package platform

import (
	"net/url"
	"strings"

	"github.com/beacon-analytics/beacon-go/internal/browser"
)

// Nuvemshop enriches events with Nuvemshop/Tiendanube storefront context.
type Nuvemshop struct {
	env browser.Environment
}

func (n *Nuvemshop) Init(env browser.Environment, _ Emitter) { n.env = env }

func (n *Nuvemshop) Close() {}

func (n *Nuvemshop) EnrichEvent(eventType string, props map[string]any) map[string]any {
	extra := map[string]any{"shop_platform": "nuvemshop"}
	if n.env == nil {
		return extra
	}
	u, err := url.Parse(n.env.Page().URL)
	if err != nil {
		return extra
	}
	path := strings.ToLower(u.Path)
	switch {
	case strings.Contains(path, "/productos/"), strings.Contains(path, "/products/"):
		extra["page_type"] = "product"
	case strings.Contains(path, "/comprar"), strings.Contains(path, "/checkout"):
		extra["page_type"] = "checkout"
	case strings.Contains(path, "/carrito"), strings.Contains(path, "/cart"):
		extra["page_type"] = "cart"
	}
	return extra
}
