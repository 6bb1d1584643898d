// Package narrative attaches generated justification text to ranked
// candidates. The text-generation service is a black box behind the
// Generator interface; any failure degrades to un-annotated candidates and
// never fails the request.
package narrative

import (
	"context"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
)

// Generator produces free text for a prepared prompt. Implementations may
// fail or time out; callers bound the call with a context deadline.
type Generator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}

// AnthropicGenerator implements Generator using the official SDK.
type AnthropicGenerator struct {
	client    sdk.Client
	model     string
	maxTokens int64
}

// NewAnthropicGenerator creates a generator for the given model.
func NewAnthropicGenerator(apiKey, model string, maxTokens int64) *AnthropicGenerator {
	return &AnthropicGenerator{
		client:    sdk.NewClient(option.WithAPIKey(apiKey)),
		model:     model,
		maxTokens: maxTokens,
	}
}

// Generate issues a single message request and concatenates the text blocks
// of the response.
func (g *AnthropicGenerator) Generate(ctx context.Context, system, prompt string) (string, error) {
	params := sdk.MessageNewParams{
		Model:     sdk.Model(g.model),
		MaxTokens: g.maxTokens,
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(prompt)),
		},
	}
	if system != "" {
		params.System = []sdk.TextBlockParam{{Text: system}}
	}

	msg, err := g.client.Messages.New(ctx, params)
	if err != nil {
		return "", eris.Wrap(err, "narrative: create message")
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return sb.String(), nil
}
