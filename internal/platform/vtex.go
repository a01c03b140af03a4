package platform

import (
	"net/url"
	"strings"

	"github.com/beacon-analytics/beacon-go/internal/browser"
)

// VTEX enriches events with VTEX storefront context. The orderForm id, when
// present as a URL parameter, identifies the checkout server-side.
type VTEX struct {
	env browser.Environment
}

func (v *VTEX) Init(env browser.Environment, _ Emitter) { v.env = env }

func (v *VTEX) Close() {}

func (v *VTEX) EnrichEvent(eventType string, props map[string]any) map[string]any {
	extra := map[string]any{"shop_platform": "vtex"}
	if v.env == nil {
		return extra
	}
	u, err := url.Parse(v.env.Page().URL)
	if err != nil {
		return extra
	}
	if of := u.Query().Get("orderFormId"); of != "" {
		extra["order_form_id"] = of
	}
	if strings.Contains(strings.ToLower(u.Path), "/checkout") {
		extra["page_type"] = "checkout"
	}
	return extra
}
