package recommend

import (
	"sort"

	"benefit-recommendation-api/internal/models"
)

// Scoring weights. The base comes from the item's stored priority weight
// when present; bonuses reward exact brand matches over category-only
// matches and richer benefits.
const (
	defaultBaseScore   = 50.0
	brandMatchBonus    = 30.0
	categoryMatchBonus = 20.0
	eventNotesBonus    = 5.0
	appChannelBonus    = 5.0
	slackBonusMax      = 5.0
	maxScore           = 100.0
)

// Score assigns a deterministic rank to a candidate; higher is better.
func Score(c models.Candidate, plan Plan) float64 {
	it := c.Item

	score := it.Priority
	if score == 0 {
		score = defaultBaseScore
	}

	if plan.Brand != "" && it.Brand == plan.Brand {
		score += brandMatchBonus
	}
	if plan.Category != "" && it.Category == plan.Category {
		score += categoryMatchBonus
	}

	if it.Kind == models.KindOffer && it.Benefit != nil {
		score += benefitBonus(it.Benefit)
	}

	if it.Kind == models.KindEvent && it.Notes != "" {
		score += eventNotesBonus
	}

	for _, ch := range it.Channels {
		if ch == "app" {
			score += appChannelBonus
			break
		}
	}

	score += slackBonus(it.Validity, plan)

	if score > maxScore {
		score = maxScore
	}
	return score
}

// benefitBonus values the benefit by kind, each capped so a single generous
// offer cannot dominate the ranking.
func benefitBonus(b *models.Benefit) float64 {
	if b.Value <= 0 {
		return 0
	}
	switch b.Kind {
	case "percent":
		return capAt(b.Value/2, 15)
	case "fixed":
		return capAt(b.Value/500, 10)
	case "cashback":
		return capAt(b.Value/2, 12)
	case "points":
		return capAt(b.Value/1000, 8)
	default:
		return 0
	}
}

// slackBonus rewards items whose validity window is not about to expire:
// linear in the remaining share of the window, up to slackBonusMax.
// Open-ended windows earn nothing, keeping the bonus deterministic.
func slackBonus(v *models.Validity, plan Plan) float64 {
	if v == nil || v.Start == nil || v.End == nil {
		return 0
	}
	total := v.End.Sub(*v.Start)
	if total <= 0 {
		return 0
	}
	remaining := v.End.Sub(plan.When)
	share := remaining.Seconds() / total.Seconds()
	if share < 0 {
		share = 0
	}
	if share > 1 {
		share = 1
	}
	return slackBonusMax * share
}

// Rank scores candidates in place and sorts them descending. Ties resolve by
// catalog insertion order, so identical inputs always yield identical output.
func Rank(candidates []models.Candidate, plan Plan) []models.Candidate {
	for i := range candidates {
		candidates[i].Score = Score(candidates[i], plan)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].Position < candidates[j].Position
	})

	return candidates
}

func capAt(v, limit float64) float64 {
	if v > limit {
		return limit
	}
	return v
}
