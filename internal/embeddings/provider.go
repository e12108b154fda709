// Package embeddings provides the embedding functions used to index chunks
// and queries.
//
// Providers:
//   - hashing: deterministic feature hashing, no model or network (default)
//   - openai / tei: any OpenAI-compatible /embeddings endpoint via langchaingo
//   - fastembed: local ONNX models (requires cgo)
//   - gemini: Google Gemini embedding models
package embeddings

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/medichat/internal/vectorstore"
)

// Sentinel errors for embedding operations.
var (
	ErrInvalidConfig   = errors.New("invalid embeddings configuration")
	ErrEmptyInput      = errors.New("empty embedding input")
	ErrEmbeddingFailed = errors.New("embedding generation failed")
)

// Provider is an embedding function with a fixed dimension.
type Provider interface {
	vectorstore.Embedder
	// Dimension returns the embedding dimension.
	Dimension() int
	// Close releases resources held by the provider.
	Close() error
}

// ProviderConfig selects and configures a provider.
type ProviderConfig struct {
	// Provider is one of "hashing", "openai", "tei", "fastembed", "gemini".
	Provider string
	Model    string
	BaseURL  string
	APIKey   string
	// Dimension is the vector size for hashing and gemini; other providers
	// derive it from the model.
	Dimension int
	// CacheDir is the FastEmbed model cache directory.
	CacheDir string
}

// NewProvider creates the configured provider, instrumented with metrics.
func NewProvider(ctx context.Context, cfg ProviderConfig, logger *zap.Logger) (Provider, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var (
		p   Provider
		err error
	)
	switch cfg.Provider {
	case "hashing", "":
		p, err = NewHashingProvider(cfg.Dimension)
	case "openai", "tei":
		p, err = NewOpenAIProvider(OpenAIConfig{
			BaseURL:   cfg.BaseURL,
			Model:     cfg.Model,
			APIKey:    cfg.APIKey,
			Dimension: cfg.Dimension,
		})
	case "fastembed":
		p, err = NewFastEmbedProvider(FastEmbedConfig{
			Model:    cfg.Model,
			CacheDir: cfg.CacheDir,
		})
	case "gemini":
		p, err = NewGeminiProvider(ctx, GeminiConfig{
			Model:     cfg.Model,
			APIKey:    cfg.APIKey,
			Dimension: cfg.Dimension,
		})
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrInvalidConfig, cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	logger.Info("embedding provider ready",
		zap.String("provider", cfg.Provider),
		zap.String("model", cfg.Model),
		zap.Int("dimension", p.Dimension()),
	)
	return Instrument(p, cfg.Provider, cfg.Model, logger), nil
}

// detectDimensionFromModel guesses a model's output size from its name.
func detectDimensionFromModel(model string) int {
	if dim, ok := fastEmbedModelDimension(model); ok {
		return dim
	}
	switch {
	case containsAny(model, "3-large"):
		return 3072
	case containsAny(model, "3-small", "ada-002"):
		return 1536
	case containsAny(model, "bge-m3", "large"):
		return 1024
	case containsAny(model, "base"):
		return 768
	default:
		return 384
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// fastEmbedModels lists the FastEmbed models and their dimensions.
var fastEmbedModels = map[string]int{
	"BAAI/bge-small-en-v1.5":                 384,
	"BAAI/bge-small-en":                      384,
	"BAAI/bge-base-en-v1.5":                  768,
	"BAAI/bge-base-en":                       768,
	"BAAI/bge-small-zh-v1.5":                 512,
	"sentence-transformers/all-MiniLM-L6-v2": 384,
}

func fastEmbedModelDimension(model string) (int, bool) {
	dim, ok := fastEmbedModels[model]
	return dim, ok
}
