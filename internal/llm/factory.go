package llm

import (
	"context"
	"fmt"

	"github.com/fyrsmithlabs/medichat/internal/config"
)

// NewAnswerer builds the backend named by cfg.Provider.
func NewAnswerer(ctx context.Context, cfg config.LLMConfig) (Answerer, error) {
	key := cfg.APIKey.Value()
	switch cfg.Provider {
	case "", "openai":
		return NewOpenAIAnswerer(cfg.Model, cfg.BaseURL, key, cfg.Temperature, cfg.MaxTokens)
	case "anthropic":
		return NewAnthropicAnswerer(cfg.Model, cfg.BaseURL, key, cfg.Temperature, cfg.MaxTokens)
	case "gemini":
		return NewGeminiAnswerer(ctx, cfg.Model, cfg.BaseURL, key, cfg.Temperature, cfg.MaxTokens)
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", cfg.Provider)
	}
}
