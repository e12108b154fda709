// Package retrieval fixes the query-time contract of the vector index.
package retrieval

import (
	"context"

	"github.com/fyrsmithlabs/medichat/internal/vectorstore"
)

// DefaultK is the number of chunks retrieved per question.
const DefaultK = 4

// Searcher is the part of vectorstore.Index the retriever needs.
type Searcher interface {
	Search(ctx context.Context, h *vectorstore.Handle, query string, k int) ([]vectorstore.SearchResult, error)
}

// Retriever returns the top K chunks for a question.
type Retriever struct {
	searcher Searcher
	k        int
}

// New returns a Retriever; k <= 0 selects DefaultK.
func New(searcher Searcher, k int) *Retriever {
	if k <= 0 {
		k = DefaultK
	}
	return &Retriever{searcher: searcher, k: k}
}

// K returns the configured result count.
func (r *Retriever) K() int { return r.k }

// Retrieve searches h for query.
func (r *Retriever) Retrieve(ctx context.Context, h *vectorstore.Handle, query string) ([]vectorstore.SearchResult, error) {
	return r.searcher.Search(ctx, h, query, r.k)
}
