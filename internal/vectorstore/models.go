package vectorstore

import (
	"time"

	"github.com/philippgille/chromem-go"

	"github.com/fyrsmithlabs/medichat/internal/chunker"
)

// SearchResult is one ranked chunk.
type SearchResult struct {
	Chunk chunker.Chunk `json:"chunk"`
	Score float32       `json:"score"`
}

// Handle is an immutable, fully built index. It is safe for concurrent
// searches.
type Handle struct {
	id         string
	collection *chromem.Collection
	chunks     []chunker.Chunk
	dimension  int
	documents  int
	builtAt    time.Time
}

// ID returns the unique identifier assigned at build time.
func (h *Handle) ID() string { return h.id }

// Len returns the number of indexed chunks.
func (h *Handle) Len() int { return len(h.chunks) }

// Dimension returns the embedding dimension.
func (h *Handle) Dimension() int { return h.dimension }

// Documents returns the number of distinct source documents.
func (h *Handle) Documents() int { return h.documents }

// BuiltAt returns when the handle was built.
func (h *Handle) BuiltAt() time.Time { return h.builtAt }
