package models

import (
	"encoding/json"
	"strings"
	"time"
)

// ItemKind distinguishes standing offers from time-bounded promotional events.
type ItemKind string

const (
	KindOffer ItemKind = "offer"
	KindEvent ItemKind = "event"
)

// WildcardAny marks an allow-list entry that accepts every value.
const WildcardAny = "ANY"

// AllowList is a set of accepted identifiers. An empty list is unrestricted,
// and the WildcardAny sentinel makes a non-empty list unrestricted too.
type AllowList []string

// Unrestricted reports whether the list accepts any value.
func (l AllowList) Unrestricted() bool {
	if len(l) == 0 {
		return true
	}
	for _, v := range l {
		if strings.EqualFold(v, WildcardAny) {
			return true
		}
	}
	return false
}

// Allows reports whether value is accepted by the list.
func (l AllowList) Allows(value string) bool {
	if l.Unrestricted() {
		return true
	}
	for _, v := range l {
		if v == value {
			return true
		}
	}
	return false
}

// AllowsAnyOf reports whether at least one of the values is accepted.
func (l AllowList) AllowsAnyOf(values []string) bool {
	if l.Unrestricted() {
		return true
	}
	for _, v := range values {
		if l.Allows(v) {
			return true
		}
	}
	return false
}

// Validity is the inclusive [Start, End] window in which an item applies.
// A nil bound leaves that side open.
type Validity struct {
	Start *time.Time `json:"start,omitempty"`
	End   *time.Time `json:"end,omitempty"`
}

// validityJSON mirrors the catalog encoding, where bounds are ISO strings
// (full timestamps or bare dates).
type validityJSON struct {
	Start string `json:"start,omitempty"`
	End   string `json:"end,omitempty"`
}

// UnmarshalJSON accepts RFC3339 timestamps and bare YYYY-MM-DD dates.
// Unparsable bounds are left open; the catalog loader decides whether the
// entry is usable.
func (v *Validity) UnmarshalJSON(data []byte) error {
	var raw validityJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	v.Start = parseFlexTime(raw.Start)
	v.End = parseFlexTime(raw.End)
	return nil
}

// MarshalJSON renders bounds back as RFC3339 strings.
func (v Validity) MarshalJSON() ([]byte, error) {
	var raw validityJSON
	if v.Start != nil {
		raw.Start = v.Start.Format(time.RFC3339)
	}
	if v.End != nil {
		raw.End = v.End.Format(time.RFC3339)
	}
	return json.Marshal(raw)
}

func parseFlexTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

// Benefit describes the monetary value of an offer.
type Benefit struct {
	Kind       string  `json:"kind,omitempty"` // percent|fixed|cashback|points
	Value      float64 `json:"value,omitempty"`
	MinSpend   float64 `json:"min_spend,omitempty"`
	MaxBenefit float64 `json:"max_benefit,omitempty"`
}

// Eligibility lists which carriers and payment methods qualify for an item.
type Eligibility struct {
	TelecomAnyOf AllowList `json:"telecom_any_of,omitempty"`
	CardsAnyOf   AllowList `json:"cards_any_of,omitempty"`
}

// TimeRange is a time-of-day window in "HH:MM" form. Windows may wrap past
// midnight (e.g. 23:00-02:00) and are evaluated as circular intervals.
type TimeRange struct {
	Start string `json:"start,omitempty"`
	End   string `json:"end,omitempty"`
}

// UsageLimit caps how often an item may be redeemed.
type UsageLimit struct {
	Period string `json:"period,omitempty"` // daily|weekly|monthly
	Count  int    `json:"count,omitempty"`
}

// Constraints restricts when an item may be used.
type Constraints struct {
	DaysOfWeek     []int       `json:"days_of_week,omitempty"` // 0=Sunday .. 6=Saturday
	Times          *TimeRange  `json:"times,omitempty"`
	UsageLimit     *UsageLimit `json:"usage_limit,omitempty"`
	ExclusiveGroup string      `json:"exclusive_group,omitempty"`
}

// Source records where a catalog entry was scraped or ingested from.
type Source struct {
	URL      string `json:"url,omitempty"`
	Provider string `json:"provider,omitempty"`
}

// Item is a single catalog entry. Offers and events share the same shape;
// Benefit is offer-specific and Notes is event-specific, both optional.
// Items are immutable once loaded into a catalog snapshot.
type Item struct {
	ID          string       `json:"id"`
	Kind        ItemKind     `json:"type"`
	Title       string       `json:"title,omitempty"`
	Brand       string       `json:"brand,omitempty"`
	Category    string       `json:"category,omitempty"`
	Validity    *Validity    `json:"validity,omitempty"`
	Benefit     *Benefit     `json:"benefit,omitempty"`
	Channels    []string     `json:"channels,omitempty"`
	Eligibility *Eligibility `json:"eligibility,omitempty"`
	Constraints *Constraints `json:"constraints,omitempty"`
	Exclusions  []string     `json:"exclusions,omitempty"`
	Notes       string       `json:"notes,omitempty"`
	Source      *Source      `json:"source,omitempty"`
	Priority    float64      `json:"priority,omitempty"` // base score weight, defaults to 50
}

// UserProfile is the per-request telecom/payment profile of the requester.
type UserProfile struct {
	Telecom  string   `json:"telecom"`
	Payments []string `json:"payments"`
}

// VisitPlan is the requester's intended visit. DateTime is the raw ISO 8601
// string from the request; validation parses it before the core sees it.
type VisitPlan struct {
	DateTime string `json:"dateTime"`
	Brand    string `json:"brand"`
	Category string `json:"category"`
}

// MatchTier indicates how a candidate matched the plan.
type MatchTier string

const (
	MatchBrand    MatchTier = "brand"
	MatchCategory MatchTier = "category"
)

// Candidate is a catalog item that passed eligibility filtering, paired with
// its computed score. Position is the item's catalog insertion index, used as
// the deterministic tie-break.
type Candidate struct {
	Item     Item      `json:"item"`
	Score    float64   `json:"score"`
	Tier     MatchTier `json:"match_tier"`
	Position int       `json:"-"`
}

// RelaxationKind names the constraint that was loosened to admit an
// alternative result.
type RelaxationKind string

const (
	RelaxTemporal    RelaxationKind = "temporal"
	RelaxCategorical RelaxationKind = "categorical"
)

// AlternativeResult is a candidate admitted by alternative search, tagged
// with the relaxation that produced it.
type AlternativeResult struct {
	Candidate
	Relaxation      RelaxationKind `json:"relaxation"`
	OffsetMinutes   int            `json:"offset_minutes,omitempty"`   // temporal only
	SubstituteBrand string         `json:"substitute_brand,omitempty"` // categorical only
	Reason          string         `json:"reason"`
}

// RecommendRequest is the request body shared by all recommendation modes.
type RecommendRequest struct {
	User UserProfile `json:"user"`
	Plan VisitPlan   `json:"plan"`
}

// RecommendedItem is a ranked candidate in an API response, optionally
// annotated with a generated justification.
type RecommendedItem struct {
	Item          Item      `json:"item"`
	Score         float64   `json:"score"`
	Tier          MatchTier `json:"match_tier"`
	Justification string    `json:"justification,omitempty"`
}

// RecommendationResponse is the payload for the basic and AI modes.
type RecommendationResponse struct {
	RecommendationID string            `json:"recommendation_id"`
	Recommendations  []RecommendedItem `json:"recommendations"`
	TotalCount       int               `json:"total_count"`
	Timestamp        time.Time         `json:"timestamp"`
}

// AlternativesResponse is the payload for the alternatives mode. The list is
// merged across relaxation strategies and sorted by rank.
type AlternativesResponse struct {
	RecommendationID string              `json:"recommendation_id"`
	Alternatives     []AlternativeResult `json:"alternatives"`
	TotalCount       int                 `json:"total_count"`
	Timestamp        time.Time           `json:"timestamp"`
}

// HealthResponse reports service status and catalog counts.
type HealthResponse struct {
	Status      string `json:"status"`
	Service     string `json:"service"`
	Version     string `json:"version"`
	DataLoaded  bool   `json:"data_loaded"`
	OffersCount int    `json:"offers_count"`
	EventsCount int    `json:"events_count"`
}

// ReloadResponse reports the outcome of a catalog reload.
type ReloadResponse struct {
	OffersCount int       `json:"offers_count"`
	EventsCount int       `json:"events_count"`
	ReloadedAt  time.Time `json:"reloaded_at"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}
