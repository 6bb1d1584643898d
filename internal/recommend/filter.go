// Package recommend implements the rule-based recommendation core:
// eligibility filtering, scoring, and relaxed-constraint alternative search
// over an immutable catalog snapshot. All operations are pure functions.
package recommend

import (
	"time"

	"benefit-recommendation-api/internal/catalog"
	"benefit-recommendation-api/internal/models"
)

// Plan is the validated, core-facing form of a visit plan. Construction goes
// through the validation layer, so the core never sees unparsable input.
type Plan struct {
	Brand    string
	Category string
	When     time.Time
}

// Filter narrows the catalog to items the user can redeem for the exact
// plan: validity window, day/time constraints, carrier/payment eligibility,
// and brand or category match. Candidates come back unscored, in catalog
// order, with their insertion positions recorded for tie-breaking.
func Filter(items []models.Item, user models.UserProfile, plan Plan) []models.Candidate {
	candidates := make([]models.Candidate, 0, len(items))

	for i, it := range items {
		tier, ok := matchTier(it, plan)
		if !ok {
			continue
		}
		if !withinValidity(it.Validity, plan.When) {
			continue
		}
		if !satisfiesSchedule(it.Constraints, plan.When) {
			continue
		}
		if !eligibleUser(it.Eligibility, user) {
			continue
		}

		candidates = append(candidates, models.Candidate{
			Item:     it,
			Tier:     tier,
			Position: i,
		})
	}

	return candidates
}

// matchTier classifies how an item matches the plan. An exact brand match is
// the strong tier; a category-only match is retained as the weak tier. With
// no brand in the plan, only the category tier applies.
func matchTier(it models.Item, plan Plan) (models.MatchTier, bool) {
	if plan.Brand != "" && it.Brand == plan.Brand {
		return models.MatchBrand, true
	}
	if plan.Category != "" && it.Category == plan.Category {
		return models.MatchCategory, true
	}
	return "", false
}

// withinValidity checks the inclusive [start, end] window. A nil validity or
// open bound imposes no restriction; a degenerate window (start after end)
// makes the item ineligible rather than faulting.
func withinValidity(v *models.Validity, when time.Time) bool {
	if v == nil {
		return true
	}
	if v.Start != nil && v.End != nil && v.Start.After(*v.End) {
		return false
	}
	if v.Start != nil && when.Before(*v.Start) {
		return false
	}
	if v.End != nil && when.After(*v.End) {
		return false
	}
	return true
}

// satisfiesSchedule checks day-of-week and time-of-day constraints at the
// given instant. An empty or absent restriction is always satisfied.
func satisfiesSchedule(c *models.Constraints, when time.Time) bool {
	if c == nil {
		return true
	}

	if len(c.DaysOfWeek) > 0 {
		day := int(when.Weekday()) // Sunday=0, matching the catalog convention
		found := false
		for _, d := range c.DaysOfWeek {
			if d == day {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if c.Times != nil && !timeInWindow(c.Times, when) {
		return false
	}

	return true
}

// timeInWindow evaluates a time-of-day window as a circular interval, so
// 23:00-02:00 covers late night across midnight. A window missing either
// bound imposes no restriction; an unparsable bound makes the item
// ineligible.
func timeInWindow(tr *models.TimeRange, when time.Time) bool {
	if tr.Start == "" || tr.End == "" {
		return true
	}

	start, err := catalog.ParseClock(tr.Start)
	if err != nil {
		return false
	}
	end, err := catalog.ParseClock(tr.End)
	if err != nil {
		return false
	}

	minute := when.Hour()*60 + when.Minute()
	if start <= end {
		return minute >= start && minute <= end
	}
	return minute >= start || minute <= end
}

// eligibleUser checks the carrier and payment allow-lists. The user's carrier
// must be accepted and at least one payment method must be accepted; empty
// lists and the ANY wildcard are unrestricted.
func eligibleUser(e *models.Eligibility, user models.UserProfile) bool {
	if e == nil {
		return true
	}
	if !e.TelecomAnyOf.Allows(user.Telecom) {
		return false
	}
	return e.CardsAnyOf.AllowsAnyOf(user.Payments)
}
