package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/fyrsmithlabs/medichat/internal/prompt"
)

// AnthropicAnswerer calls the Anthropic Messages API.
type AnthropicAnswerer struct {
	client      anthropic.Client
	model       string
	temperature float64
	maxTokens   int
}

// NewAnthropicAnswerer creates a Claude backend.
func NewAnthropicAnswerer(model, baseURL, apiKey string, temperature float64, maxTokens int) (*AnthropicAnswerer, error) {
	if apiKey == "" {
		return nil, errors.New("anthropic api key is required")
	}
	// The gateway makes exactly one attempt per question.
	opts := []option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &AnthropicAnswerer{
		client:      anthropic.NewClient(opts...),
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
	}, nil
}

// Name implements Answerer.
func (a *AnthropicAnswerer) Name() string { return "anthropic/" + a.model }

// Answer implements Answerer.
func (a *AnthropicAnswerer) Answer(ctx context.Context, p prompt.Prompt) (string, error) {
	resp, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: int64(a.maxTokens),
		System:    []anthropic.TextBlockParam{{Text: p.System}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(p.User())),
		},
		Temperature: anthropic.Float(a.temperature),
	})
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return sb.String(), nil
}
