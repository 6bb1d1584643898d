package narrative

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"benefit-recommendation-api/internal/models"
	"benefit-recommendation-api/internal/recommend"
)

// DefaultTopK bounds how many candidates are sent to the text-generation
// service, keeping external-call cost and latency fixed.
const DefaultTopK = 5

const systemPrompt = `You are an assistant that writes one-sentence justifications for benefit recommendations.

You receive a user's visit plan and a list of candidate benefits. For each candidate, write a short, friendly sentence explaining why it fits the plan. Always mention the concrete benefit (discount percentage, fixed amount, cashback, or event details from the notes) when it is present.

Return ONLY a JSON object of the form:
{"justifications": [{"id": "<candidate id>", "reason": "<one sentence>"}]}`

// promptCandidate is the trimmed candidate view sent to the service.
type promptCandidate struct {
	ID          string              `json:"id"`
	Title       string              `json:"title,omitempty"`
	Brand       string              `json:"brand,omitempty"`
	Category    string              `json:"category,omitempty"`
	Validity    *models.Validity    `json:"validity,omitempty"`
	Benefit     *models.Benefit     `json:"benefit,omitempty"`
	Constraints *models.Constraints `json:"constraints,omitempty"`
	Notes       string              `json:"notes,omitempty"`
}

type generatedJustifications struct {
	Justifications []struct {
		ID     string `json:"id"`
		Reason string `json:"reason"`
	} `json:"justifications"`
}

// Augmenter annotates top candidates with generated justification text.
type Augmenter struct {
	gen    Generator
	logger *zap.Logger
	topK   int
}

// NewAugmenter creates an augmenter. Zero topK selects the default.
func NewAugmenter(gen Generator, logger *zap.Logger, topK int) *Augmenter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Augmenter{gen: gen, logger: logger, topK: topK}
}

// Augment sends the top-K candidates plus plan context to the generation
// service and attaches one justification per candidate. At most one outbound
// call is made; on any failure or malformed response the candidates come
// back with a locally built generic justification instead.
func (a *Augmenter) Augment(ctx context.Context, plan recommend.Plan, candidates []models.Candidate) []models.RecommendedItem {
	if len(candidates) > a.topK {
		candidates = candidates[:a.topK]
	}
	if len(candidates) == 0 {
		return []models.RecommendedItem{}
	}

	reasons := a.generateReasons(ctx, plan, candidates)

	items := make([]models.RecommendedItem, 0, len(candidates))
	for _, c := range candidates {
		reason, ok := reasons[c.Item.ID]
		if !ok || strings.TrimSpace(reason) == "" {
			reason = genericJustification(c.Item, plan)
		}
		items = append(items, models.RecommendedItem{
			Item:          c.Item,
			Score:         c.Score,
			Tier:          c.Tier,
			Justification: reason,
		})
	}
	return items
}

// generateReasons performs the single outbound call. A nil map means the
// caller should fall back to generic justifications for every candidate.
func (a *Augmenter) generateReasons(ctx context.Context, plan recommend.Plan, candidates []models.Candidate) map[string]string {
	if a.gen == nil {
		return nil
	}

	prompt, err := buildPrompt(plan, candidates)
	if err != nil {
		a.logger.Warn("failed to build narrative prompt", zap.Error(err))
		return nil
	}

	text, err := a.gen.Generate(ctx, systemPrompt, prompt)
	if err != nil {
		a.logger.Warn("narrative service unavailable, degrading to generic justifications",
			zap.Error(err))
		return nil
	}

	parsed, err := parseJustifications(text)
	if err != nil {
		a.logger.Warn("malformed narrative response, degrading to generic justifications",
			zap.Error(err))
		return nil
	}
	return parsed
}

func buildPrompt(plan recommend.Plan, candidates []models.Candidate) (string, error) {
	trimmed := make([]promptCandidate, 0, len(candidates))
	for _, c := range candidates {
		trimmed = append(trimmed, promptCandidate{
			ID:          c.Item.ID,
			Title:       c.Item.Title,
			Brand:       c.Item.Brand,
			Category:    c.Item.Category,
			Validity:    c.Item.Validity,
			Benefit:     c.Item.Benefit,
			Constraints: c.Item.Constraints,
			Notes:       c.Item.Notes,
		})
	}

	payload, err := json.Marshal(trimmed)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("[Plan]\nbrand=%s category=%s datetime=%s\n\n[Candidates]\n%s",
		plan.Brand, plan.Category, plan.When.Format("2006-01-02T15:04:05"), payload), nil
}

// parseJustifications accepts the expected JSON object, tolerating a fenced
// code block around it.
func parseJustifications(text string) (map[string]string, error) {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	}

	var parsed generatedJustifications
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		return nil, fmt.Errorf("unexpected response shape: %w", err)
	}

	reasons := make(map[string]string, len(parsed.Justifications))
	for _, j := range parsed.Justifications {
		reasons[j.ID] = j.Reason
	}
	return reasons, nil
}

// genericJustification builds a deterministic local fallback sentence.
func genericJustification(it models.Item, plan recommend.Plan) string {
	subject := it.Title
	if subject == "" {
		subject = it.Brand
	}
	if subject == "" {
		subject = string(it.Kind)
	}

	if b := it.Benefit; b != nil && b.Value > 0 {
		switch b.Kind {
		case "percent":
			return fmt.Sprintf("%s gives %.0f%% off for your planned visit.", subject, b.Value)
		case "fixed":
			return fmt.Sprintf("%s gives %.0f off for your planned visit.", subject, b.Value)
		case "cashback":
			return fmt.Sprintf("%s gives %.0f cashback for your planned visit.", subject, b.Value)
		case "points":
			return fmt.Sprintf("%s earns %.0f points for your planned visit.", subject, b.Value)
		}
	}

	if it.Notes != "" {
		return fmt.Sprintf("%s: %s", subject, it.Notes)
	}
	return fmt.Sprintf("%s matches your planned visit.", subject)
}
