package llm

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"

	"github.com/fyrsmithlabs/medichat/internal/prompt"
)

// OpenAIAnswerer talks to any OpenAI-compatible chat completions endpoint
// (OpenAI, OpenRouter, vLLM, Ollama).
type OpenAIAnswerer struct {
	model       string
	llm         *openai.LLM
	temperature float64
	maxTokens   int
}

// NewOpenAIAnswerer creates an OpenAI-compatible backend.
func NewOpenAIAnswerer(model, baseURL, apiKey string, temperature float64, maxTokens int) (*OpenAIAnswerer, error) {
	opts := []openai.Option{openai.WithModel(model)}
	if apiKey == "" {
		// Local servers accept any token but the client insists on one.
		apiKey = "unused"
	}
	opts = append(opts, openai.WithToken(apiKey))
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}
	client, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("creating openai client: %w", err)
	}
	return &OpenAIAnswerer{model: model, llm: client, temperature: temperature, maxTokens: maxTokens}, nil
}

// Name implements Answerer.
func (a *OpenAIAnswerer) Name() string { return "openai/" + a.model }

// Answer implements Answerer.
func (a *OpenAIAnswerer) Answer(ctx context.Context, p prompt.Prompt) (string, error) {
	messages := []llms.MessageContent{
		llms.TextParts(schema.ChatMessageTypeSystem, p.System),
		llms.TextParts(schema.ChatMessageTypeHuman, p.User()),
	}
	resp, err := a.llm.GenerateContent(ctx, messages,
		llms.WithTemperature(a.temperature),
		llms.WithMaxTokens(a.maxTokens),
	)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices returned", ErrModelUnavailable)
	}
	return resp.Choices[0].Content, nil
}
