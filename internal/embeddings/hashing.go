package embeddings

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// HashingProvider embeds text by hashing word unigrams and bigrams into a
// fixed number of signed buckets and L2-normalizing the result. It needs no
// model download or network access and is fully deterministic, which makes
// it the default for local use and tests.
type HashingProvider struct {
	dim int
}

// NewHashingProvider returns a provider producing dim-sized vectors.
func NewHashingProvider(dim int) (*HashingProvider, error) {
	if dim < 2 {
		return nil, fmt.Errorf("%w: hashing dimension must be >= 2, got %d", ErrInvalidConfig, dim)
	}
	return &HashingProvider{dim: dim}, nil
}

// EmbedDocuments implements vectorstore.Embedder.
func (p *HashingProvider) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: texts cannot be empty", ErrEmptyInput)
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = p.embed(t)
	}
	return out, nil
}

// EmbedQuery implements vectorstore.Embedder.
func (p *HashingProvider) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return p.embed(text), nil
}

// Dimension implements Provider.
func (p *HashingProvider) Dimension() int { return p.dim }

// Close implements Provider.
func (p *HashingProvider) Close() error { return nil }

func (p *HashingProvider) embed(text string) []float32 {
	v := make([]float64, p.dim)
	tokens := tokenize(text)
	for i, tok := range tokens {
		p.add(v, tok, 1)
		if i > 0 {
			p.add(v, tokens[i-1]+" "+tok, 0.5)
		}
	}

	var norm float64
	for _, x := range v {
		norm += x * x
	}
	out := make([]float32, p.dim)
	if norm == 0 {
		// Text without tokens maps to a fixed unit vector.
		out[0] = 1
		return out
	}
	norm = math.Sqrt(norm)
	for i, x := range v {
		out[i] = float32(x / norm)
	}
	return out
}

func (p *HashingProvider) add(v []float64, feature string, weight float64) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(feature))
	sum := h.Sum64()
	bucket := int(sum % uint64(p.dim))
	if sum>>63 == 1 {
		weight = -weight
	}
	v[bucket] += weight
}

// tokenize lowercases text and splits it into letter/digit runs of at
// least two runes.
func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	tokens := fields[:0]
	for _, f := range fields {
		if len([]rune(f)) >= 2 {
			tokens = append(tokens, f)
		}
	}
	return tokens
}
