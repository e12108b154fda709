package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/medichat/internal/chunker"
)

// wordEmbedder maps each known word to one dimension; the last dimension is
// a constant bias so no vector is zero.
type wordEmbedder struct {
	words    []string
	failWith error
	queryDim int
}

func newWordEmbedder() *wordEmbedder {
	return &wordEmbedder{words: []string{"heart", "blood", "pressure", "fever", "insulin", "diabetes"}}
}

func (e *wordEmbedder) embed(text string) []float32 {
	v := make([]float32, len(e.words)+1)
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		for i, w := range e.words {
			if strings.Trim(tok, ".,?") == w {
				v[i]++
			}
		}
	}
	v[len(e.words)] = 0.1
	return v
}

func (e *wordEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	if e.failWith != nil {
		return nil, e.failWith
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = e.embed(t)
	}
	return out, nil
}

func (e *wordEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	if e.failWith != nil {
		return nil, e.failWith
	}
	if e.queryDim > 0 {
		return make([]float32, e.queryDim), nil
	}
	return e.embed(text), nil
}

func makeChunks(texts ...string) []chunker.Chunk {
	chunks := make([]chunker.Chunk, len(texts))
	for i, t := range texts {
		chunks[i] = chunker.Chunk{
			ID:         fmt.Sprintf("doc#%d", i),
			DocumentID: "doc",
			Index:      i,
			Text:       t,
		}
	}
	return chunks
}

func newTestIndex(t *testing.T, e Embedder) *Index {
	t.Helper()
	idx, err := NewIndex(e, nil)
	require.NoError(t, err)
	return idx
}

func TestNewIndex_RequiresEmbedder(t *testing.T) {
	_, err := NewIndex(nil, nil)
	assert.Error(t, err)
}

func TestBuild_EmptyCorpus(t *testing.T) {
	idx := newTestIndex(t, newWordEmbedder())

	_, err := idx.Build(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptyCorpus)

	_, err = idx.Build(context.Background(), []chunker.Chunk{})
	assert.ErrorIs(t, err, ErrEmptyCorpus)
}

func TestSearch_NotBuilt(t *testing.T) {
	idx := newTestIndex(t, newWordEmbedder())
	_, err := idx.Search(context.Background(), nil, "heart", 4)
	assert.ErrorIs(t, err, ErrIndexNotBuilt)
}

func TestSearch_RanksBySimilarity(t *testing.T) {
	ctx := context.Background()
	idx := newTestIndex(t, newWordEmbedder())

	h, err := idx.Build(ctx, makeChunks(
		"Fever management in children.",
		"Blood pressure readings were high.",
		"Insulin dosing for diabetes.",
		"Heart rate and blood pressure monitoring.",
	))
	require.NoError(t, err)
	assert.Equal(t, 4, h.Len())
	assert.Equal(t, 1, h.Documents())
	assert.Equal(t, 7, h.Dimension())
	assert.NotEmpty(t, h.ID())

	results, err := idx.Search(ctx, h, "insulin diabetes", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "doc#2", results[0].Chunk.ID)
	assert.GreaterOrEqual(t, results[0].Score, results[1].Score)
}

func TestSearch_KLargerThanCorpus(t *testing.T) {
	ctx := context.Background()
	idx := newTestIndex(t, newWordEmbedder())

	chunks := makeChunks("heart", "blood", "fever")
	h, err := idx.Build(ctx, chunks)
	require.NoError(t, err)

	results, err := idx.Search(ctx, h, "heart", 50)
	require.NoError(t, err)
	require.Len(t, results, len(chunks))

	seen := map[string]bool{}
	for i, r := range results {
		assert.False(t, seen[r.Chunk.ID], "duplicate %s", r.Chunk.ID)
		seen[r.Chunk.ID] = true
		if i > 0 {
			assert.GreaterOrEqual(t, results[i-1].Score, r.Score)
		}
	}
}

func TestSearch_Deterministic(t *testing.T) {
	ctx := context.Background()
	idx := newTestIndex(t, newWordEmbedder())

	h, err := idx.Build(ctx, makeChunks(
		"heart blood", "blood pressure", "fever", "heart", "insulin", "diabetes heart",
	))
	require.NoError(t, err)

	first, err := idx.Search(ctx, h, "heart pressure", 4)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := idx.Search(ctx, h, "heart pressure", 4)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestSearch_TiesKeepInsertionOrder(t *testing.T) {
	ctx := context.Background()
	idx := newTestIndex(t, newWordEmbedder())

	h, err := idx.Build(ctx, makeChunks("fever", "fever", "fever", "fever"))
	require.NoError(t, err)

	results, err := idx.Search(ctx, h, "fever", 3)
	require.NoError(t, err)
	require.Len(t, results, 3)
	for i, r := range results {
		assert.Equal(t, i, r.Chunk.Index)
	}
}

func TestSearch_InvalidK(t *testing.T) {
	ctx := context.Background()
	idx := newTestIndex(t, newWordEmbedder())
	h, err := idx.Build(ctx, makeChunks("heart"))
	require.NoError(t, err)

	_, err = idx.Search(ctx, h, "heart", 0)
	assert.ErrorIs(t, err, ErrInvalidK)
}

func TestSearch_DimensionMismatch(t *testing.T) {
	ctx := context.Background()
	e := newWordEmbedder()
	idx := newTestIndex(t, e)
	h, err := idx.Build(ctx, makeChunks("heart"))
	require.NoError(t, err)

	e.queryDim = 3
	_, err = idx.Search(ctx, h, "heart", 1)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestBuild_EmbedderFailure(t *testing.T) {
	e := newWordEmbedder()
	e.failWith = errors.New("model offline")
	idx := newTestIndex(t, e)

	_, err := idx.Build(context.Background(), makeChunks("heart"))
	assert.ErrorIs(t, err, ErrEmbeddingFailed)
}

type zeroEmbedder struct{}

func (zeroEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = make([]float32, 4)
	}
	return out, nil
}

func (zeroEmbedder) EmbedQuery(context.Context, string) ([]float32, error) {
	return make([]float32, 4), nil
}

func TestBuild_RejectsZeroVectors(t *testing.T) {
	idx := newTestIndex(t, zeroEmbedder{})
	_, err := idx.Build(context.Background(), makeChunks("anything"))
	assert.ErrorIs(t, err, ErrEmbeddingFailed)
}

func TestBuild_ReplacesRatherThanMerges(t *testing.T) {
	ctx := context.Background()
	idx := newTestIndex(t, newWordEmbedder())

	first, err := idx.Build(ctx, makeChunks("heart", "blood"))
	require.NoError(t, err)
	second, err := idx.Build(ctx, makeChunks("fever"))
	require.NoError(t, err)

	assert.NotEqual(t, first.ID(), second.ID())
	assert.Equal(t, 1, second.Len())

	// The earlier handle is untouched and still searchable.
	results, err := idx.Search(ctx, first, "heart", 10)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}
