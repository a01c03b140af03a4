package checkout

import (
	"net/url"
	"strings"

	"github.com/beacon-analytics/beacon-go/internal/browser"
)

// Step is one stage of the checkout flow.
type Step string

const (
	StepNotStarted Step = "not_started"
	StepContact    Step = "contact"
	StepShipping   Step = "shipping"
	StepPayment    Step = "payment"
	StepReview     Step = "review"
	StepCompleted  Step = "completed"
	StepUnknown    Step = "unknown"
)

// known reports whether s is a concrete checkout stage.
func (s Step) known() bool {
	switch s {
	case StepContact, StepShipping, StepPayment, StepReview:
		return true
	}
	return false
}

// stepAliases normalizes marker/breadcrumb vocabulary across storefront
// themes to the canonical steps.
var stepAliases = map[string]Step{
	"contact":     StepContact,
	"information": StepContact,
	"customer":    StepContact,
	"shipping":    StepShipping,
	"delivery":    StepShipping,
	"payment":     StepPayment,
	"billing":     StepPayment,
	"review":      StepReview,
	"confirm":     StepReview,
	"summary":     StepReview,
}

// detector yields a step from raw page signals, or StepUnknown.
type detector func(browser.PageSnapshot) Step

// detectors is the ordered fallback strategy for step detection. The first
// strategy to yield a known step wins. Explicit markers are most reliable,
// breadcrumb text least.
var detectors = []detector{
	detectExplicit,
	detectStructural,
	detectURLPath,
	detectFormFields,
	detectBreadcrumb,
}

// DetectStep resolves the current checkout step from a page snapshot.
func DetectStep(snap browser.PageSnapshot) Step {
	for _, d := range detectors {
		if step := d(snap); step.known() {
			return step
		}
	}
	return StepUnknown
}

func detectExplicit(snap browser.PageSnapshot) Step {
	return aliasStep(snap.ExplicitStep)
}

func detectStructural(snap browser.PageSnapshot) Step {
	return aliasStep(snap.StructuralStep)
}

func detectURLPath(snap browser.PageSnapshot) Step {
	u, err := url.Parse(snap.View.URL)
	if err != nil {
		return StepUnknown
	}
	path := strings.ToLower(u.Path)
	for alias, step := range stepAliases {
		if strings.Contains(path, alias) {
			return step
		}
	}
	return StepUnknown
}

// fieldHints maps form-field name fragments to steps. Payment is checked
// before shipping and contact: a payment page often still shows address
// fields in a summary.
var fieldHints = []struct {
	fragments []string
	step      Step
}{
	{[]string{"card", "credit", "cvv", "cvc", "expiry"}, StepPayment},
	{[]string{"address", "zip", "postal", "city", "province", "state"}, StepShipping},
	{[]string{"email", "phone", "first_name", "last_name"}, StepContact},
}

func detectFormFields(snap browser.PageSnapshot) Step {
	for _, hint := range fieldHints {
		for _, field := range snap.FormFields {
			name := strings.ToLower(field)
			for _, frag := range hint.fragments {
				if strings.Contains(name, frag) {
					return hint.step
				}
			}
		}
	}
	return StepUnknown
}

func detectBreadcrumb(snap browser.PageSnapshot) Step {
	return aliasStep(snap.Breadcrumb)
}

func aliasStep(raw string) Step {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return StepUnknown
	}
	if step, ok := stepAliases[raw]; ok {
		return step
	}
	// Tolerate decorated markers like "step-payment" or "Payment method".
	for alias, step := range stepAliases {
		if strings.Contains(raw, alias) {
			return step
		}
	}
	return StepUnknown
}
