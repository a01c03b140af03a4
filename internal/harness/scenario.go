package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/beacon-analytics/beacon-go/internal/browser"
)

// Scenario defines one scripted tracking session: a start page, a sequence
// of host signals, and the event types the pipeline must emit in order.
type Scenario struct {
	// Name uniquely identifies this scenario; it doubles as the golden
	// file name.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Platform selects the storefront adapter ("generic" when empty).
	Platform string `yaml:"platform,omitempty"`

	// StartPage is the page visible when the tracker initializes.
	StartPage PageStep `yaml:"start_page"`

	// Steps are the host signals replayed in order after startup.
	Steps []Step `yaml:"steps"`

	// ExpectEvents is the exact sequence of event types the run must
	// produce.
	ExpectEvents []string `yaml:"expect_events"`
}

// PageStep describes a page and its checkout-relevant signals.
type PageStep struct {
	URL          string   `yaml:"url"`
	Title        string   `yaml:"title,omitempty"`
	Referrer     string   `yaml:"referrer,omitempty"`
	IsCheckout   bool     `yaml:"is_checkout,omitempty"`
	ExplicitStep string   `yaml:"explicit_step,omitempty"`
	CartValue    int64    `yaml:"cart_value,omitempty"`
	FormFields   []string `yaml:"form_fields,omitempty"`
}

// snapshot converts the step to the environment's page snapshot.
func (p PageStep) snapshot() browser.PageSnapshot {
	return browser.PageSnapshot{
		View: browser.PageView{
			URL:      p.URL,
			Title:    p.Title,
			Referrer: p.Referrer,
		},
		IsCheckout:   p.IsCheckout,
		ExplicitStep: p.ExplicitStep,
		CartValue:    p.CartValue,
		FormFields:   p.FormFields,
	}
}

// Step is one host signal. Exactly one field must be set.
type Step struct {
	// Page navigates to a new page (SPA route change or full load).
	Page *PageStep `yaml:"page,omitempty"`

	// Snapshot mutates the current page's checkout signals and
	// re-observes, without a navigation.
	Snapshot *PageStep `yaml:"snapshot,omitempty"`

	// Track records a custom event.
	Track *TrackStep `yaml:"track,omitempty"`

	// Scroll reports scroll depth as a percentage.
	Scroll *int `yaml:"scroll,omitempty"`

	// Field reports a checkout form-field interaction.
	Field string `yaml:"field,omitempty"`

	// Unload tears the page down (abandonment detection plus drain).
	Unload bool `yaml:"unload,omitempty"`

	// Purchase reports a confirmed order.
	Purchase *PurchaseStep `yaml:"purchase,omitempty"`
}

// TrackStep is a custom event recorded by the host.
type TrackStep struct {
	Type  string         `yaml:"type"`
	Props map[string]any `yaml:"props,omitempty"`
}

// PurchaseStep is a confirmed order from a thank-you page.
type PurchaseStep struct {
	OrderID  string  `yaml:"order_id"`
	Total    float64 `yaml:"total"`
	Currency string  `yaml:"currency"`
	Items    int     `yaml:"items,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file. Unknown fields are
// rejected so typos fail loudly instead of silently skipping steps.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("parse scenario YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario %s: %w", path, err)
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.StartPage.URL == "" {
		return fmt.Errorf("start_page.url is required")
	}
	if len(s.ExpectEvents) == 0 {
		return fmt.Errorf("expect_events is required and must be non-empty")
	}
	for i, step := range s.Steps {
		if err := validateStep(step); err != nil {
			return fmt.Errorf("steps[%d]: %w", i, err)
		}
	}
	return nil
}

func validateStep(step Step) error {
	set := 0
	if step.Page != nil {
		set++
		if step.Page.URL == "" {
			return fmt.Errorf("page.url is required")
		}
	}
	if step.Snapshot != nil {
		set++
		if step.Snapshot.URL == "" {
			return fmt.Errorf("snapshot.url is required")
		}
	}
	if step.Track != nil {
		set++
		if step.Track.Type == "" {
			return fmt.Errorf("track.type is required")
		}
	}
	if step.Scroll != nil {
		set++
	}
	if step.Field != "" {
		set++
	}
	if step.Unload {
		set++
	}
	if step.Purchase != nil {
		set++
		if step.Purchase.OrderID == "" {
			return fmt.Errorf("purchase.order_id is required")
		}
	}
	if set != 1 {
		return fmt.Errorf("exactly one action per step, got %d", set)
	}
	return nil
}
