package narrative

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"benefit-recommendation-api/internal/models"
	"benefit-recommendation-api/internal/recommend"
)

// stubGenerator returns a canned response or error and records call counts.
type stubGenerator struct {
	response string
	err      error
	calls    int
}

func (s *stubGenerator) Generate(ctx context.Context, system, prompt string) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func testPlan() recommend.Plan {
	return recommend.Plan{
		Brand:    "Starbucks",
		Category: "Cafe",
		When:     time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC),
	}
}

func testCandidates() []models.Candidate {
	return []models.Candidate{
		{
			Item: models.Item{
				ID: "o1", Kind: models.KindOffer, Title: "Starbucks 10% off",
				Brand: "Starbucks", Category: "Cafe",
				Benefit: &models.Benefit{Kind: "percent", Value: 10},
			},
			Score: 100, Tier: models.MatchBrand,
		},
		{
			Item: models.Item{
				ID: "o2", Kind: models.KindOffer, Title: "Ediya 5% off",
				Brand: "Ediya", Category: "Cafe",
			},
			Score: 75, Tier: models.MatchCategory,
		},
	}
}

func TestAugmentAttachesGeneratedReasons(t *testing.T) {
	gen := &stubGenerator{response: `{"justifications": [
		{"id": "o1", "reason": "Save 10% on your Starbucks visit."},
		{"id": "o2", "reason": "Ediya is a nearby alternative."}
	]}`}
	a := NewAugmenter(gen, nil, 5)

	items := a.Augment(context.Background(), testPlan(), testCandidates())

	require.Len(t, items, 2)
	assert.Equal(t, "Save 10% on your Starbucks visit.", items[0].Justification)
	assert.Equal(t, "Ediya is a nearby alternative.", items[1].Justification)
	assert.Equal(t, 100.0, items[0].Score)
	assert.Equal(t, models.MatchBrand, items[0].Tier)
	assert.Equal(t, 1, gen.calls)
}

func TestAugmentToleratesFencedResponse(t *testing.T) {
	gen := &stubGenerator{response: "```json\n{\"justifications\": [{\"id\": \"o1\", \"reason\": \"Fenced but fine.\"}]}\n```"}
	a := NewAugmenter(gen, nil, 5)

	items := a.Augment(context.Background(), testPlan(), testCandidates())

	require.Len(t, items, 2)
	assert.Equal(t, "Fenced but fine.", items[0].Justification)
}

func TestAugmentDegradesOnGeneratorError(t *testing.T) {
	gen := &stubGenerator{err: errors.New("upstream unavailable")}
	a := NewAugmenter(gen, nil, 5)

	items := a.Augment(context.Background(), testPlan(), testCandidates())

	require.Len(t, items, 2)
	assert.Equal(t, "Starbucks 10% off gives 10% off for your planned visit.", items[0].Justification)
	assert.Equal(t, "Ediya 5% off matches your planned visit.", items[1].Justification)
}

func TestAugmentDegradesOnMalformedResponse(t *testing.T) {
	gen := &stubGenerator{response: "Sure! Here are some great offers for you."}
	a := NewAugmenter(gen, nil, 5)

	items := a.Augment(context.Background(), testPlan(), testCandidates())

	require.Len(t, items, 2)
	for _, it := range items {
		assert.NotEmpty(t, it.Justification)
	}
}

func TestAugmentFillsMissingAndBlankReasons(t *testing.T) {
	// Only o2 gets a usable reason; o1's blank reason falls back locally.
	gen := &stubGenerator{response: `{"justifications": [
		{"id": "o1", "reason": "   "},
		{"id": "o2", "reason": "Ediya instead."}
	]}`}
	a := NewAugmenter(gen, nil, 5)

	items := a.Augment(context.Background(), testPlan(), testCandidates())

	require.Len(t, items, 2)
	assert.Equal(t, "Starbucks 10% off gives 10% off for your planned visit.", items[0].Justification)
	assert.Equal(t, "Ediya instead.", items[1].Justification)
}

func TestAugmentTruncatesToTopK(t *testing.T) {
	gen := &stubGenerator{response: `{"justifications": []}`}
	a := NewAugmenter(gen, nil, 1)

	items := a.Augment(context.Background(), testPlan(), testCandidates())

	require.Len(t, items, 1)
	assert.Equal(t, "o1", items[0].Item.ID)
	assert.Equal(t, 1, gen.calls)
}

func TestAugmentEmptyCandidatesSkipsCall(t *testing.T) {
	gen := &stubGenerator{response: `{"justifications": []}`}
	a := NewAugmenter(gen, nil, 5)

	items := a.Augment(context.Background(), testPlan(), nil)

	assert.Empty(t, items)
	assert.NotNil(t, items)
	assert.Equal(t, 0, gen.calls)
}

func TestAugmentNilGeneratorUsesFallback(t *testing.T) {
	a := NewAugmenter(nil, nil, 5)

	items := a.Augment(context.Background(), testPlan(), testCandidates())

	require.Len(t, items, 2)
	for _, it := range items {
		assert.NotEmpty(t, it.Justification)
	}
}

func TestGenericJustificationVariants(t *testing.T) {
	plan := testPlan()

	event := models.Item{ID: "e1", Kind: models.KindEvent, Title: "Star Days", Notes: "2x stars all week"}
	assert.Equal(t, "Star Days: 2x stars all week", genericJustification(event, plan))

	cashback := models.Item{
		ID: "c1", Kind: models.KindOffer, Brand: "Ediya",
		Benefit: &models.Benefit{Kind: "cashback", Value: 500},
	}
	assert.Equal(t, "Ediya gives 500 cashback for your planned visit.", genericJustification(cashback, plan))

	bare := models.Item{ID: "b1", Kind: models.KindOffer}
	assert.Equal(t, "offer matches your planned visit.", genericJustification(bare, plan))
}
