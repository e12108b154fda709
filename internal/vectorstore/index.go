package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/philippgille/chromem-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/medichat/internal/chunker"
)

var tracer = otel.Tracer("medichat.vectorstore")

const (
	metaChunkID    = "chunk_id"
	metaDocumentID = "document_id"
	collectionName = "chunks"
)

// Index builds and searches chunk indexes with a fixed embedding function.
type Index struct {
	embedder Embedder
	logger   *zap.Logger
}

// NewIndex returns an Index that embeds with embedder.
func NewIndex(embedder Embedder, logger *zap.Logger) (*Index, error) {
	if embedder == nil {
		return nil, errors.New("embedder is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Index{embedder: embedder, logger: logger}, nil
}

// Build embeds chunks and returns a new Handle over them. It returns
// ErrEmptyCorpus when chunks is empty.
func (idx *Index) Build(ctx context.Context, chunks []chunker.Chunk) (h *Handle, err error) {
	ctx, span := tracer.Start(ctx, "Index.Build")
	defer span.End()
	span.SetAttributes(attribute.Int("chunk_count", len(chunks)))

	start := time.Now()
	defer func() {
		BuildsTotal.WithLabelValues(resultLabel(err)).Inc()
		BuildDuration.Observe(time.Since(start).Seconds())
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	if len(chunks) == 0 {
		return nil, ErrEmptyCorpus
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := idx.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("%w: got %d vectors for %d chunks", ErrEmbeddingFailed, len(vectors), len(chunks))
	}

	dim := len(vectors[0])
	docs := make([]chromem.Document, len(chunks))
	sources := make(map[string]struct{})
	for i, c := range chunks {
		if err := checkVector(vectors[i], dim); err != nil {
			return nil, fmt.Errorf("chunk %d: %w", i, err)
		}
		docs[i] = chromem.Document{
			// Insertion order doubles as the document ID so ties can be
			// broken without a lookup table.
			ID:        strconv.Itoa(i),
			Content:   c.Text,
			Embedding: vectors[i],
			Metadata: map[string]string{
				metaChunkID:    c.ID,
				metaDocumentID: c.DocumentID,
			},
		}
		sources[c.DocumentID] = struct{}{}
	}

	db := chromem.NewDB()
	collection, err := db.CreateCollection(collectionName, nil, idx.queryEmbeddingFunc())
	if err != nil {
		return nil, fmt.Errorf("creating collection: %w", err)
	}
	if err := collection.AddDocuments(ctx, docs, 1); err != nil {
		return nil, fmt.Errorf("adding documents: %w", err)
	}

	h = &Handle{
		id:         uuid.NewString(),
		collection: collection,
		chunks:     append([]chunker.Chunk(nil), chunks...),
		dimension:  dim,
		documents:  len(sources),
		builtAt:    time.Now(),
	}

	IndexedChunks.Set(float64(len(chunks)))
	span.SetAttributes(attribute.String("handle_id", h.id), attribute.Int("dimension", dim))
	span.SetStatus(codes.Ok, "success")
	idx.logger.Info("index built",
		zap.String("handle_id", h.id),
		zap.Int("chunks", len(chunks)),
		zap.Int("documents", h.documents),
		zap.Int("dimension", dim),
		zap.Duration("elapsed", time.Since(start)),
	)
	return h, nil
}

// Search returns the k chunks most similar to query, best first. Equal
// scores keep insertion order. A nil handle yields ErrIndexNotBuilt; k
// larger than the handle returns every chunk.
func (idx *Index) Search(ctx context.Context, h *Handle, query string, k int) (results []SearchResult, err error) {
	ctx, span := tracer.Start(ctx, "Index.Search")
	defer span.End()
	span.SetAttributes(attribute.Int("k", k))

	start := time.Now()
	defer func() {
		SearchesTotal.WithLabelValues(resultLabel(err)).Inc()
		SearchDuration.Observe(time.Since(start).Seconds())
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	if h == nil || h.collection == nil {
		return nil, ErrIndexNotBuilt
	}
	if k <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidK, k)
	}

	qv, err := idx.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}
	if err := checkVector(qv, h.dimension); err != nil {
		return nil, err
	}

	n := h.collection.Count()
	raw, err := h.collection.QueryEmbedding(ctx, qv, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("querying collection: %w", err)
	}

	type ranked struct {
		seq   int
		score float32
	}
	all := make([]ranked, 0, len(raw))
	for _, r := range raw {
		seq, err := strconv.Atoi(r.ID)
		if err != nil || seq < 0 || seq >= len(h.chunks) {
			return nil, fmt.Errorf("unexpected document id %q in collection", r.ID)
		}
		all = append(all, ranked{seq: seq, score: r.Similarity})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].score != all[j].score {
			return all[i].score > all[j].score
		}
		return all[i].seq < all[j].seq
	})

	if k > len(all) {
		k = len(all)
	}
	results = make([]SearchResult, k)
	for i := 0; i < k; i++ {
		results[i] = SearchResult{Chunk: h.chunks[all[i].seq], Score: all[i].score}
	}

	span.SetAttributes(attribute.Int("result_count", len(results)))
	span.SetStatus(codes.Ok, "success")
	idx.logger.Debug("index searched",
		zap.String("handle_id", h.id),
		zap.Int("k", k),
		zap.Int("candidates", len(all)),
	)
	return results, nil
}

// queryEmbeddingFunc adapts the embedder for chromem. Every document is
// added with a precomputed vector, so chromem only calls this for text
// queries, which Search never issues.
func (idx *Index) queryEmbeddingFunc() chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		return idx.embedder.EmbedQuery(ctx, text)
	}
}

// checkVector rejects vectors of the wrong dimension and vectors that
// cannot be normalized.
func checkVector(v []float32, dim int) error {
	if len(v) == 0 {
		return fmt.Errorf("%w: empty vector", ErrEmbeddingFailed)
	}
	if len(v) != dim {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(v), dim)
	}
	var sum float64
	for _, x := range v {
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("%w: non-finite component", ErrEmbeddingFailed)
		}
		sum += f * f
	}
	if sum == 0 {
		return fmt.Errorf("%w: zero vector", ErrEmbeddingFailed)
	}
	return nil
}
