package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/fyrsmithlabs/medichat/internal/prompt"
)

// GeminiAnswerer calls the Gemini API.
type GeminiAnswerer struct {
	client      *genai.Client
	model       string
	temperature float64
	maxTokens   int
}

// NewGeminiAnswerer creates a Gemini backend. An empty baseURL uses the
// public endpoint.
func NewGeminiAnswerer(ctx context.Context, model, baseURL, apiKey string, temperature float64, maxTokens int) (*GeminiAnswerer, error) {
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}
	cc := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	return &GeminiAnswerer{client: client, model: model, temperature: temperature, maxTokens: maxTokens}, nil
}

// Name implements Answerer.
func (a *GeminiAnswerer) Name() string { return "gemini/" + a.model }

// Answer implements Answerer.
func (a *GeminiAnswerer) Answer(ctx context.Context, p prompt.Prompt) (string, error) {
	contents := []*genai.Content{genai.NewContentFromText(p.User(), genai.RoleUser)}
	resp, err := a.client.Models.GenerateContent(ctx, a.model, contents, &genai.GenerateContentConfig{
		Temperature:       genai.Ptr(float32(a.temperature)),
		MaxOutputTokens:   int32(a.maxTokens),
		SystemInstruction: genai.NewContentFromText(p.System, genai.RoleUser),
	})
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			sb.WriteString(part.Text)
		}
		break
	}
	return sb.String(), nil
}
