package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/medichat/internal/chunker"
	"github.com/fyrsmithlabs/medichat/internal/conversation"
	"github.com/fyrsmithlabs/medichat/internal/extraction"
	"github.com/fyrsmithlabs/medichat/internal/ingestion"
	"github.com/fyrsmithlabs/medichat/internal/insight"
	"github.com/fyrsmithlabs/medichat/internal/logging"
	"github.com/fyrsmithlabs/medichat/internal/prompt"
	"github.com/fyrsmithlabs/medichat/internal/retrieval"
	"github.com/fyrsmithlabs/medichat/internal/vectorstore"
)

// ErrEmptyQuestion is returned by Ask for a blank question.
var ErrEmptyQuestion = errors.New("question is empty")

// excerptLen bounds the chunk text copied into a turn's sources.
const excerptLen = 200

// Answerer is the model gateway as seen by a session.
type Answerer interface {
	Answer(ctx context.Context, p prompt.Prompt) (string, error)
	Name() string
}

// Builder builds index handles.
type Builder interface {
	Build(ctx context.Context, chunks []chunker.Chunk) (*vectorstore.Handle, error)
}

// Deps are the shared pipeline components. All are required except
// Ingestion, which only Ingest and Reload use, and Logger.
type Deps struct {
	Chunker   *chunker.Chunker
	Index     Builder
	Retriever *retrieval.Retriever
	Gateway   Answerer
	Insight   *insight.Generator
	Ingestion *ingestion.Service
	Logger    *logging.Logger
}

func (d Deps) validate() error {
	switch {
	case d.Chunker == nil:
		return errors.New("chunker is required")
	case d.Index == nil:
		return errors.New("index is required")
	case d.Retriever == nil:
		return errors.New("retriever is required")
	case d.Gateway == nil:
		return errors.New("gateway is required")
	case d.Insight == nil:
		return errors.New("insight generator is required")
	}
	return nil
}

// Stats summarizes a session.
type Stats struct {
	SessionID         string    `json:"session_id"`
	Documents         int       `json:"documents"`
	Chunks            int       `json:"chunks"`
	Turns             int       `json:"turns"`
	AverageConfidence float64   `json:"average_confidence"`
	CreatedAt         time.Time `json:"created_at"`
	IndexedAt         time.Time `json:"indexed_at,omitempty"`
}

// Session is one user's pipeline state.
type Session struct {
	id      string
	created time.Time
	deps    Deps
	logger  *logging.Logger

	// mu serializes Ask, Ingest, Reload and Reset.
	mu        sync.Mutex
	handle    atomic.Pointer[vectorstore.Handle]
	lastUsed  atomic.Int64
	docsMu    sync.RWMutex
	documents []extraction.Document
	history   *conversation.Store
}

// New returns an empty session.
func New(deps Deps) (*Session, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	if deps.Logger == nil {
		deps.Logger = logging.Nop()
	}
	id := uuid.NewString()
	s := &Session{
		id:      id,
		created: time.Now().UTC(),
		deps:    deps,
		logger:  deps.Logger,
		history: conversation.NewStore(),
	}
	s.touch()
	return s, nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// CreatedAt returns when the session was created.
func (s *Session) CreatedAt() time.Time { return s.created }

// LastUsed returns the time of the most recent operation.
func (s *Session) LastUsed() time.Time { return time.Unix(0, s.lastUsed.Load()) }

func (s *Session) touch() { s.lastUsed.Store(time.Now().UnixNano()) }

// Handle returns the current index handle, or nil before the first build.
func (s *Session) Handle() *vectorstore.Handle { return s.handle.Load() }

// Documents returns a copy of the session's documents.
func (s *Session) Documents() []extraction.Document {
	s.docsMu.RLock()
	defer s.docsMu.RUnlock()
	return append([]extraction.Document(nil), s.documents...)
}

// Ingest extracts uploads and re-indexes the session with the new
// documents added. Per-file failures are in the report. When no
// document in the session has any text the index is left as it was and
// the error wraps vectorstore.ErrEmptyCorpus.
func (s *Session) Ingest(ctx context.Context, uploads []ingestion.Upload) (ingestion.Report, error) {
	if s.deps.Ingestion == nil {
		return ingestion.Report{}, errors.New("ingestion is not configured")
	}
	ctx = logging.WithSessionID(ctx, s.id)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	report, err := s.deps.Ingestion.Ingest(ctx, uploads)
	if err != nil {
		return report, err
	}
	if len(report.Documents) == 0 {
		return report, nil
	}
	return report, s.rebuild(ctx, s.merge(report.Documents))
}

// Reload indexes every document in the object store.
func (s *Session) Reload(ctx context.Context) (ingestion.Report, error) {
	if s.deps.Ingestion == nil {
		return ingestion.Report{}, errors.New("ingestion is not configured")
	}
	ctx = logging.WithSessionID(ctx, s.id)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	report, err := s.deps.Ingestion.Reload(ctx)
	if err != nil {
		return report, err
	}
	return report, s.rebuild(ctx, s.merge(report.Documents))
}

// merge returns the session documents with docs appended, skipping IDs
// already present. It does not publish the result.
func (s *Session) merge(docs []extraction.Document) []extraction.Document {
	s.docsMu.RLock()
	merged := append([]extraction.Document(nil), s.documents...)
	s.docsMu.RUnlock()

	seen := make(map[string]bool, len(merged))
	for _, d := range merged {
		seen[d.ID] = true
	}
	for _, d := range docs {
		if d.ID != "" && seen[d.ID] {
			continue
		}
		seen[d.ID] = true
		merged = append(merged, d)
	}
	return merged
}

// rebuild chunks docs, builds a fresh handle and publishes both.
func (s *Session) rebuild(ctx context.Context, docs []extraction.Document) error {
	var chunks []chunker.Chunk
	for _, d := range docs {
		chunks = append(chunks, s.deps.Chunker.Split(d.ID, d.Text())...)
	}

	h, err := s.deps.Index.Build(ctx, chunks)
	if err != nil {
		return fmt.Errorf("indexing %d documents: %w", len(docs), err)
	}

	s.docsMu.Lock()
	s.documents = docs
	s.docsMu.Unlock()
	s.handle.Store(h)

	s.logger.Info(ctx, "session indexed",
		zap.Int("documents", len(docs)),
		zap.Int("chunks", h.Len()),
	)
	return nil
}

// Ask answers question against the session's documents and records the
// turn.
func (s *Session) Ask(ctx context.Context, question string) (turn conversation.Turn, err error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return conversation.Turn{}, ErrEmptyQuestion
	}
	ctx = logging.WithSessionID(ctx, s.id)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	start := time.Now()
	defer func() {
		QueryDuration.Observe(time.Since(start).Seconds())
		QueriesTotal.WithLabelValues(queryResult(err)).Inc()
	}()

	h := s.handle.Load()
	if h == nil {
		return conversation.Turn{}, vectorstore.ErrIndexNotBuilt
	}

	results, err := s.deps.Retriever.Retrieve(ctx, h, question)
	if err != nil {
		return conversation.Turn{}, fmt.Errorf("retrieving context: %w", err)
	}

	answer, err := s.deps.Gateway.Answer(ctx, prompt.Assemble(question, results))
	if err != nil {
		s.logger.Warn(ctx, "question not answered", zap.Error(err))
		return conversation.Turn{}, err
	}
	elapsed := time.Since(start)

	if err := ctx.Err(); err != nil {
		return conversation.Turn{}, err
	}

	ins := s.deps.Insight.Generate(insight.Input{
		Question:    question,
		Answer:      answer,
		Results:     results,
		TotalChunks: h.Len(),
		Elapsed:     elapsed,
	})

	turn = s.history.Append(conversation.Turn{
		Question: question,
		Answer:   answer,
		Insight:  ins,
		Sources:  sources(results),
	})

	s.logger.Info(ctx, "question answered",
		zap.String("turn.id", turn.ID),
		zap.Int("relevant_chunks", ins.RelevantDocsCount),
		zap.Float64("confidence", ins.ConfidenceScore),
		zap.Duration("elapsed", elapsed),
	)
	return turn, nil
}

// History returns every turn, oldest first.
func (s *Session) History() []conversation.Turn {
	s.touch()
	return s.history.Turns()
}

// Recent returns up to n latest turns, oldest first.
func (s *Session) Recent(n int) []conversation.Turn {
	return s.history.Last(n)
}

// Reset clears the conversation history. Documents and index are kept.
// A question in flight finishes and is recorded before the history is
// cleared.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	s.history.Clear()
}

// Stats returns a summary of the session.
func (s *Session) Stats() Stats {
	st := Stats{
		SessionID:         s.id,
		Turns:             s.history.Len(),
		AverageConfidence: s.history.AverageConfidence(),
		CreatedAt:         s.created,
	}
	s.docsMu.RLock()
	st.Documents = len(s.documents)
	s.docsMu.RUnlock()
	if h := s.handle.Load(); h != nil {
		st.Chunks = h.Len()
		st.IndexedAt = h.BuiltAt()
	}
	return st
}

func sources(results []vectorstore.SearchResult) []conversation.Source {
	out := make([]conversation.Source, len(results))
	for i, r := range results {
		excerpt := []rune(r.Chunk.Text)
		if len(excerpt) > excerptLen {
			excerpt = append(excerpt[:excerptLen], '…')
		}
		out[i] = conversation.Source{
			ChunkID:    r.Chunk.ID,
			DocumentID: r.Chunk.DocumentID,
			Score:      r.Score,
			Excerpt:    string(excerpt),
		}
	}
	return out
}

func queryResult(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "error"
	}
}
