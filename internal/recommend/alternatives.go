package recommend

import (
	"fmt"
	"sort"
	"time"

	"benefit-recommendation-api/internal/models"
)

// DefaultOffsets are the instants tried by temporal relaxation, in the order
// they are attempted. Zero comes first so an item redeemable at the planned
// time is tagged as such; later shifts are preferred over earlier ones of
// the same magnitude.
var DefaultOffsets = []time.Duration{
	0,
	30 * time.Minute, -30 * time.Minute,
	60 * time.Minute, -60 * time.Minute,
	120 * time.Minute, -120 * time.Minute,
}

// Alternatives searches the catalog with relaxed constraints. Two strategies
// run independently and their results are merged:
//
//   - temporal: the day/time check instant is shifted by each offset while
//     brand stays fixed; validity and eligibility are still evaluated at the
//     original plan instant. The first admitting offset tags the result.
//   - categorical: the brand constraint is dropped and competing brands in
//     the plan's category are surfaced, tagged with the substituted brand.
//
// An empty result is a valid outcome, not an error.
func Alternatives(items []models.Item, user models.UserProfile, plan Plan, offsets []time.Duration) []models.AlternativeResult {
	if len(offsets) == 0 {
		offsets = DefaultOffsets
	}

	var results []models.AlternativeResult
	results = append(results, temporalRelaxation(items, user, plan, offsets)...)
	results = append(results, categoricalRelaxation(items, user, plan)...)

	// Merged ranking: score descending, temporal hits above categorical hits
	// of equal score (the brand intent is preserved, so it is the closer
	// match), then catalog insertion order.
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		if results[i].Relaxation != results[j].Relaxation {
			return results[i].Relaxation == models.RelaxTemporal
		}
		return results[i].Position < results[j].Position
	})

	return results
}

// temporalRelaxation keeps the requested brand and moves only the instant
// used for the day/time check. Validity-window and carrier/payment checks
// stay pinned to the original plan instant.
func temporalRelaxation(items []models.Item, user models.UserProfile, plan Plan, offsets []time.Duration) []models.AlternativeResult {
	if plan.Brand == "" {
		return nil
	}

	var results []models.AlternativeResult
	for i, it := range items {
		if it.Brand != plan.Brand {
			continue
		}
		if !withinValidity(it.Validity, plan.When) {
			continue
		}
		if !eligibleUser(it.Eligibility, user) {
			continue
		}

		for _, offset := range offsets {
			if !satisfiesSchedule(it.Constraints, plan.When.Add(offset)) {
				continue
			}

			cand := models.Candidate{Item: it, Tier: models.MatchBrand, Position: i}
			cand.Score = Score(cand, plan)
			results = append(results, models.AlternativeResult{
				Candidate:     cand,
				Relaxation:    models.RelaxTemporal,
				OffsetMinutes: int(offset.Minutes()),
				Reason:        offsetReason(it.Brand, offset),
			})
			break
		}
	}

	return results
}

// categoricalRelaxation drops the brand constraint and surfaces competing
// brands within the same category. The originally requested brand is never
// returned by this strategy.
func categoricalRelaxation(items []models.Item, user models.UserProfile, plan Plan) []models.AlternativeResult {
	if plan.Category == "" {
		return nil
	}

	var results []models.AlternativeResult
	for i, it := range items {
		if it.Category != plan.Category {
			continue
		}
		if it.Brand == "" || it.Brand == plan.Brand {
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

		cand := models.Candidate{Item: it, Tier: models.MatchCategory, Position: i}
		cand.Score = Score(cand, plan)
		results = append(results, models.AlternativeResult{
			Candidate:       cand,
			Relaxation:      models.RelaxCategorical,
			SubstituteBrand: it.Brand,
			Reason:          fmt.Sprintf("%s offers a benefit in the same category instead of %s", it.Brand, plan.Brand),
		})
	}

	return results
}

func offsetReason(brand string, offset time.Duration) string {
	minutes := int(offset.Minutes())
	switch {
	case minutes == 0:
		return fmt.Sprintf("%s is available at the planned time", brand)
	case minutes > 0:
		return fmt.Sprintf("%s is available %d minutes later", brand, minutes)
	default:
		return fmt.Sprintf("%s is available %d minutes earlier", brand, -minutes)
	}
}
