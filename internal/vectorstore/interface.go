package vectorstore

import (
	"context"
	"errors"
)

// Sentinel errors for index operations.
var (
	// ErrEmptyCorpus is returned by Build when there is nothing to index.
	ErrEmptyCorpus = errors.New("empty corpus")

	// ErrIndexNotBuilt is returned by Search when no index has been built.
	ErrIndexNotBuilt = errors.New("index not built")

	// ErrInvalidK is returned by Search for a non-positive k.
	ErrInvalidK = errors.New("k must be positive")

	// ErrEmbeddingFailed indicates the embedding function failed or
	// returned unusable vectors.
	ErrEmbeddingFailed = errors.New("failed to generate embeddings")

	// ErrDimensionMismatch indicates a query vector whose dimension differs
	// from the indexed vectors.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// Embedder generates vector embeddings from text. Implementations must be
// deterministic for identical input and keep a fixed dimension for the
// lifetime of the process.
type Embedder interface {
	// EmbedDocuments returns one embedding per text, in order.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedQuery returns the embedding of a single query.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}
