// Package attribution captures first-touch marketing signals, at most once
// per session.
//
// A qualifying touch is any URL parameter from the known marketing
// parameter lists (query or fragment) or a referrer from a known social
// network domain. Once captured, the record is immutable for the session:
// later page views reuse it even when they carry no parameters of their
// own. If nothing ever qualifies, no record exists.
package attribution

import (
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/beacon-analytics/beacon-go/internal/browser"
	"github.com/beacon-analytics/beacon-go/internal/storage"
)

// Record is the captured first-touch attribution for one session.
type Record struct {
	InfluencerID string `json:"influencer_id,omitempty"`
	CampaignID   string `json:"campaign_id,omitempty"`
	PromoCode    string `json:"promo_code,omitempty"`
	UTMSource    string `json:"utm_source,omitempty"`
	UTMMedium    string `json:"utm_medium,omitempty"`
	UTMCampaign  string `json:"utm_campaign,omitempty"`
	UTMContent   string `json:"utm_content,omitempty"`
	UTMTerm      string `json:"utm_term,omitempty"`
	Ref          string `json:"ref,omitempty"`
	SocialSource string `json:"social_source,omitempty"`
	DetectedAt   int64  `json:"detected_at"` // unix ms
	LandingPage  string `json:"landing_page,omitempty"`
	Referrer     string `json:"referrer,omitempty"`
	UserAgent    string `json:"user_agent,omitempty"`
}

// empty reports whether no marketing signal was detected at all.
func (r *Record) empty() bool {
	return r.InfluencerID == "" && r.CampaignID == "" && r.PromoCode == "" &&
		r.UTMSource == "" && r.UTMMedium == "" && r.UTMCampaign == "" &&
		r.UTMContent == "" && r.UTMTerm == "" && r.Ref == "" && r.SocialSource == ""
}

// Parameter priority lists, first match wins. The lists exist because
// merchants and link tools disagree on parameter names; the order is the
// contract.
var (
	influencerParams = []string{"inf_id", "influencer", "inf"}
	campaignParams   = []string{"utm_campaign", "campaign", "camp"}
	promoParams      = []string{"promo", "codigo", "discount"}
)

// socialDomains maps referrer host suffixes to network names.
var socialDomains = map[string]string{
	"instagram.com": "instagram",
	"tiktok.com":    "tiktok",
	"youtube.com":   "youtube",
	"youtu.be":      "youtube",
	"facebook.com":  "facebook",
	"fb.com":        "facebook",
	"twitter.com":   "twitter",
	"x.com":         "twitter",
	"t.co":          "twitter",
	"pinterest.com": "pinterest",
	"linktr.ee":     "linktree",
}

// Store captures and persists the per-session attribution record. Safe for
// concurrent use: the startup goroutine detects while host callbacks read.
type Store struct {
	ephemeral storage.Store
	now       func() time.Time

	// mu guards cached, which mirrors the persisted record so capture-once
	// holds even when the ephemeral store is unavailable.
	mu     sync.Mutex
	cached *Record
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates an attribution Store over the session-scoped ephemeral store.
func New(ephemeral storage.Store, opts ...Option) *Store {
	s := &Store{ephemeral: ephemeral, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DetectAndCapture returns the session's attribution record.
//
// If a record was already captured this session it is returned unchanged.
// Otherwise the current page is inspected; the candidate is persisted only
// when at least one signal is non-empty. Returns nil when neither an
// existing nor a new record exists.
func (s *Store) DetectAndCapture(page browser.PageView) *Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r := s.savedLocked(); r != nil {
		return r
	}

	candidate := detect(page, s.now())
	if candidate.empty() {
		return nil
	}

	s.cached = candidate
	storage.WriteJSON(s.ephemeral, storage.KeyAttribution, candidate)
	return candidate
}

// Saved returns the already-captured record, or nil. Never mutates.
func (s *Store) Saved() *Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.savedLocked()
}

func (s *Store) savedLocked() *Record {
	var r Record
	if storage.ReadJSON(s.ephemeral, storage.KeyAttribution, &r) && !r.empty() {
		return &r
	}
	if s.cached != nil {
		return s.cached
	}
	return nil
}

// detect computes an attribution candidate from the current page signals.
func detect(page browser.PageView, now time.Time) *Record {
	params := collectParams(page.URL)

	r := &Record{
		InfluencerID: firstParam(params, influencerParams),
		CampaignID:   firstParam(params, campaignParams),
		PromoCode:    firstParam(params, promoParams),
		UTMSource:    clean(params["utm_source"]),
		UTMMedium:    clean(params["utm_medium"]),
		UTMCampaign:  clean(params["utm_campaign"]),
		UTMContent:   clean(params["utm_content"]),
		UTMTerm:      clean(params["utm_term"]),
		Ref:          clean(params["ref"]),
		SocialSource: socialNetwork(page.Referrer),
		DetectedAt:   now.UnixMilli(),
		LandingPage:  page.URL,
		Referrer:     page.Referrer,
		UserAgent:    page.UserAgent,
	}
	return r
}

// collectParams merges query and fragment parameters. Query wins when the
// same name appears in both.
func collectParams(rawURL string) map[string]string {
	out := make(map[string]string)
	u, err := url.Parse(rawURL)
	if err != nil {
		return out
	}
	// Fragment first so query overwrites.
	if u.Fragment != "" {
		if vals, err := url.ParseQuery(u.Fragment); err == nil {
			for k, v := range vals {
				if len(v) > 0 && v[0] != "" {
					out[k] = v[0]
				}
			}
		}
	}
	for k, v := range u.Query() {
		if len(v) > 0 && v[0] != "" {
			out[k] = v[0]
		}
	}
	return out
}

func firstParam(params map[string]string, names []string) string {
	for _, name := range names {
		if v := params[name]; v != "" {
			return clean(v)
		}
	}
	return ""
}

// clean NFC-normalizes and trims a captured marketing string. Link tools
// produce visually identical but differently composed unicode; normalizing
// at capture keeps downstream joins exact.
func clean(v string) string {
	return norm.NFC.String(strings.TrimSpace(v))
}

// socialNetwork maps a referrer URL to a known network name, or "".
func socialNetwork(referrer string) string {
	if referrer == "" {
		return ""
	}
	u, err := url.Parse(referrer)
	if err != nil {
		return ""
	}
	host := strings.ToLower(strings.TrimPrefix(u.Hostname(), "www."))
	if host == "" {
		return ""
	}
	for domain, network := range socialDomains {
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return network
		}
	}
	return ""
}
