package recommend

import (
	"time"

	"benefit-recommendation-api/internal/models"
)

// DefaultTopK bounds the size of a ranked result list.
const DefaultTopK = 10

// Engine bundles the filter, scorer, and alternative search behind the
// boundary operations the HTTP layer consumes. It holds only configuration,
// never catalog state, so concurrent requests need no coordination.
type Engine struct {
	topK    int
	offsets []time.Duration
}

// NewEngine creates an engine. Zero topK and nil offsets select the
// defaults.
func NewEngine(topK int, offsets []time.Duration) *Engine {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if len(offsets) == 0 {
		offsets = DefaultOffsets
	}
	return &Engine{topK: topK, offsets: offsets}
}

// Recommend runs the eligibility filter and scorer over a catalog snapshot
// and returns the top-K ranked candidates. An empty result means no match
// was found, which is a valid outcome.
func (e *Engine) Recommend(items []models.Item, user models.UserProfile, plan Plan) []models.Candidate {
	candidates := Rank(Filter(items, user, plan), plan)
	if len(candidates) > e.topK {
		candidates = candidates[:e.topK]
	}
	return candidates
}

// RecommendAlternatives runs the relaxed-constraint search and returns the
// top-K merged results.
func (e *Engine) RecommendAlternatives(items []models.Item, user models.UserProfile, plan Plan) []models.AlternativeResult {
	results := Alternatives(items, user, plan, e.offsets)
	if len(results) > e.topK {
		results = results[:e.topK]
	}
	return results
}

// TopK returns the configured result bound.
func (e *Engine) TopK() int { return e.topK }
