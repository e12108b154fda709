package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/medichat/internal/chunker"
	"github.com/fyrsmithlabs/medichat/internal/config"
	"github.com/fyrsmithlabs/medichat/internal/embeddings"
	"github.com/fyrsmithlabs/medichat/internal/extraction"
	"github.com/fyrsmithlabs/medichat/internal/ingestion"
	"github.com/fyrsmithlabs/medichat/internal/insight"
	"github.com/fyrsmithlabs/medichat/internal/llm"
	"github.com/fyrsmithlabs/medichat/internal/objectstore"
	"github.com/fyrsmithlabs/medichat/internal/prompt"
	"github.com/fyrsmithlabs/medichat/internal/retrieval"
	"github.com/fyrsmithlabs/medichat/internal/vectorstore"
)

const (
	cardiology = "Cardiology consult. Blood pressure 150/95 on two readings. " +
		"Heart rate 88. Started lisinopril 10mg daily for hypertension."
	endocrine = "Endocrinology note. HbA1c 8.2 percent. Diabetes poorly controlled. " +
		"Metformin increased to 1000mg twice daily."
)

func echoAnswerer(answer string) llm.AnswerFunc {
	return func(context.Context, prompt.Prompt) (string, error) { return answer, nil }
}

func newTestDeps(t *testing.T, answerer llm.Answerer, timeout time.Duration) Deps {
	t.Helper()
	emb, err := embeddings.NewHashingProvider(512)
	require.NoError(t, err)
	idx, err := vectorstore.NewIndex(emb, nil)
	require.NoError(t, err)
	ch, err := chunker.New(chunker.Config{Window: 200, Overlap: 40, SnapLookback: 30})
	require.NoError(t, err)
	gw, err := llm.NewGateway(answerer, llm.GatewayConfig{Timeout: timeout}, nil)
	require.NoError(t, err)
	store, err := objectstore.OpenBadger(objectstore.BadgerConfig{InMemory: true}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return Deps{
		Chunker:   ch,
		Index:     idx,
		Retriever: retrieval.New(idx, retrieval.DefaultK),
		Gateway:   gw,
		Insight:   insight.New(config.Default().Insight),
		Ingestion: ingestion.NewService(store, extraction.NewMux(nil), nil),
	}
}

func newIndexedSession(t *testing.T, deps Deps) *Session {
	t.Helper()
	s, err := New(deps)
	require.NoError(t, err)
	report, err := s.Ingest(context.Background(), []ingestion.Upload{
		{Name: "cardiology.txt", Data: []byte(cardiology)},
		{Name: "endocrine.txt", Data: []byte(endocrine)},
	})
	require.NoError(t, err)
	require.Len(t, report.Uploaded, 2)
	return s
}

func TestNew_RequiresDeps(t *testing.T) {
	_, err := New(Deps{})
	assert.Error(t, err)
}

func TestAsk_BeforeIndexing(t *testing.T) {
	s, err := New(newTestDeps(t, echoAnswerer("x y"), time.Second))
	require.NoError(t, err)

	_, err = s.Ask(context.Background(), "What is the blood pressure?")
	assert.ErrorIs(t, err, vectorstore.ErrIndexNotBuilt)
	assert.Empty(t, s.History())
}

func TestAsk_RecordsTurn(t *testing.T) {
	s := newIndexedSession(t, newTestDeps(t, echoAnswerer("Blood pressure was 150/95 and lisinopril was started."), time.Second))

	turn, err := s.Ask(context.Background(), "  What was the blood pressure?  ")
	require.NoError(t, err)

	assert.NotEmpty(t, turn.ID)
	assert.Equal(t, "What was the blood pressure?", turn.Question)
	assert.Contains(t, turn.Answer, "150/95")
	assert.NotEmpty(t, turn.Sources)
	assert.LessOrEqual(t, turn.Insight.RelevantDocsCount, retrieval.DefaultK)
	assert.Equal(t, len(turn.Sources), turn.Insight.RelevantDocsCount)
	assert.Equal(t, s.Handle().Len(), turn.Insight.TotalChunks)
	assert.Contains(t, turn.Insight.MedicalKeywords, "blood pressure")
	assert.GreaterOrEqual(t, turn.Insight.ConfidenceScore, 0.0)
	assert.LessOrEqual(t, turn.Insight.ConfidenceScore, 1.0)

	history := s.History()
	require.Len(t, history, 1)
	assert.Equal(t, turn.ID, history[0].ID)
}

func TestAsk_PromptCarriesRetrievedContext(t *testing.T) {
	var got prompt.Prompt
	answerer := llm.AnswerFunc(func(_ context.Context, p prompt.Prompt) (string, error) {
		got = p
		return "See the consult note.", nil
	})
	s := newIndexedSession(t, newTestDeps(t, answerer, time.Second))

	_, err := s.Ask(context.Background(), "lisinopril hypertension")
	require.NoError(t, err)
	assert.Equal(t, "lisinopril hypertension", got.Question)
	assert.Contains(t, got.Context, "lisinopril")
	assert.Equal(t, prompt.SystemInstruction, got.System)
}

func TestAsk_EmptyQuestion(t *testing.T) {
	s := newIndexedSession(t, newTestDeps(t, echoAnswerer("x y"), time.Second))
	_, err := s.Ask(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyQuestion)
}

func TestAsk_TimeoutLeavesHistoryUnchanged(t *testing.T) {
	slow := llm.AnswerFunc(func(ctx context.Context, _ prompt.Prompt) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	s := newIndexedSession(t, newTestDeps(t, slow, 20*time.Millisecond))

	_, err := s.Ask(context.Background(), "What was the heart rate?")
	assert.ErrorIs(t, err, llm.ErrModelTimeout)
	assert.Empty(t, s.History())
	assert.Equal(t, 0, s.Stats().Turns)
}

func TestAsk_BackendFailureLeavesHistoryUnchanged(t *testing.T) {
	failing := llm.AnswerFunc(func(context.Context, prompt.Prompt) (string, error) {
		return "", errors.New("503 service unavailable")
	})
	s := newIndexedSession(t, newTestDeps(t, failing, time.Second))

	_, err := s.Ask(context.Background(), "What was the heart rate?")
	assert.ErrorIs(t, err, llm.ErrModelUnavailable)
	assert.Empty(t, s.History())
}

func TestAsk_CancelLeavesHistoryUnchanged(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancelling := llm.AnswerFunc(func(context.Context, prompt.Prompt) (string, error) {
		cancel()
		return "An answer that arrives after the caller left.", nil
	})
	s := newIndexedSession(t, newTestDeps(t, cancelling, time.Second))

	_, err := s.Ask(ctx, "What was the heart rate?")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, s.History())
}

func TestAsk_Serialized(t *testing.T) {
	var inFlight, maxInFlight atomic.Int32
	answerer := llm.AnswerFunc(func(context.Context, prompt.Prompt) (string, error) {
		n := inFlight.Add(1)
		for {
			m := maxInFlight.Load()
			if n <= m || maxInFlight.CompareAndSwap(m, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inFlight.Add(-1)
		return "Metformin dose was increased.", nil
	})
	s := newIndexedSession(t, newTestDeps(t, answerer, time.Second))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Ask(context.Background(), "metformin dose")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInFlight.Load())
	assert.Len(t, s.History(), 8)
}

func TestIngest_EmptyCorpus(t *testing.T) {
	s, err := New(newTestDeps(t, echoAnswerer("x y"), time.Second))
	require.NoError(t, err)

	report, err := s.Ingest(context.Background(), []ingestion.Upload{{Name: "blank.txt", Data: []byte("   \n\n ")}})
	assert.ErrorIs(t, err, vectorstore.ErrEmptyCorpus)
	assert.Len(t, report.Uploaded, 1)
	assert.Nil(t, s.Handle())
	assert.Empty(t, s.Documents())
}

type failingBuilder struct {
	Builder
	fail bool
}

func (b *failingBuilder) Build(ctx context.Context, chunks []chunker.Chunk) (*vectorstore.Handle, error) {
	if b.fail {
		return nil, errors.New("embedding backend down")
	}
	return b.Builder.Build(ctx, chunks)
}

func TestIngest_FailedRebuildKeepsPreviousIndex(t *testing.T) {
	deps := newTestDeps(t, echoAnswerer("Heart rate was 88."), time.Second)
	builder := &failingBuilder{Builder: deps.Index}
	deps.Index = builder
	s := newIndexedSession(t, deps)
	before := s.Handle()
	require.NotNil(t, before)

	builder.fail = true
	_, err := s.Ingest(context.Background(), []ingestion.Upload{{Name: "new.txt", Data: []byte("Allergy to penicillin.")}})
	require.Error(t, err)

	assert.Same(t, before, s.Handle())
	assert.Len(t, s.Documents(), 2)

	_, err = s.Ask(context.Background(), "heart rate")
	assert.NoError(t, err)
}

func TestIngest_AddsToExistingDocuments(t *testing.T) {
	s := newIndexedSession(t, newTestDeps(t, echoAnswerer("x y"), time.Second))
	first := s.Handle()

	_, err := s.Ingest(context.Background(), []ingestion.Upload{
		{Name: "allergy.txt", Data: []byte("Allergy: penicillin causes rash.")},
		{Name: "cardiology-again.txt", Data: []byte(cardiology)},
	})
	require.NoError(t, err)

	assert.Len(t, s.Documents(), 3)
	assert.NotSame(t, first, s.Handle())
	assert.Equal(t, 3, s.Handle().Documents())
}

func TestIngest_WithoutIngestion(t *testing.T) {
	deps := newTestDeps(t, echoAnswerer("x y"), time.Second)
	deps.Ingestion = nil
	s, err := New(deps)
	require.NoError(t, err)

	_, err = s.Ingest(context.Background(), nil)
	assert.Error(t, err)
	_, err = s.Reload(context.Background())
	assert.Error(t, err)
}

func TestReset_WaitsForQuestionInFlight(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	answerer := llm.AnswerFunc(func(context.Context, prompt.Prompt) (string, error) {
		close(entered)
		<-release
		return "Heart rate was 88.", nil
	})
	s := newIndexedSession(t, newTestDeps(t, answerer, 5*time.Second))

	asked := make(chan error, 1)
	go func() {
		_, err := s.Ask(context.Background(), "heart rate")
		asked <- err
	}()
	<-entered

	reset := make(chan struct{})
	go func() {
		s.Reset()
		close(reset)
	}()

	select {
	case <-reset:
		t.Fatal("reset completed while a question was in flight")
	case <-time.After(20 * time.Millisecond):
	}

	close(release)
	require.NoError(t, <-asked)
	<-reset
	assert.Empty(t, s.History())
	assert.Zero(t, s.Stats().Turns)
}

func TestReload(t *testing.T) {
	deps := newTestDeps(t, echoAnswerer("x y"), time.Second)
	_ = newIndexedSession(t, deps)

	fresh, err := New(deps)
	require.NoError(t, err)
	report, err := fresh.Reload(context.Background())
	require.NoError(t, err)
	assert.Len(t, report.Documents, 2)
	assert.Equal(t, 2, fresh.Stats().Documents)
}

func TestResetAndStats(t *testing.T) {
	s := newIndexedSession(t, newTestDeps(t, echoAnswerer("Lisinopril 10mg daily was started."), time.Second))
	_, err := s.Ask(context.Background(), "lisinopril dose")
	require.NoError(t, err)
	_, err = s.Ask(context.Background(), "blood pressure")
	require.NoError(t, err)

	st := s.Stats()
	assert.Equal(t, s.ID(), st.SessionID)
	assert.Equal(t, 2, st.Documents)
	assert.Equal(t, s.Handle().Len(), st.Chunks)
	assert.Equal(t, 2, st.Turns)
	assert.Greater(t, st.AverageConfidence, 0.0)
	assert.False(t, st.IndexedAt.IsZero())

	s.Reset()
	assert.Empty(t, s.History())
	assert.Equal(t, 0, s.Stats().Turns)
	assert.NotNil(t, s.Handle())
}

func TestManager(t *testing.T) {
	ctx := context.Background()
	m, err := NewManager(newTestDeps(t, echoAnswerer("x y"), time.Second), time.Minute)
	require.NoError(t, err)

	s, err := m.Create(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, m.Len())

	got, err := m.Get(s.ID())
	require.NoError(t, err)
	assert.Same(t, s, got)

	_, err = m.Get("missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, m.Delete(ctx, s.ID()))
	assert.ErrorIs(t, m.Delete(ctx, s.ID()), ErrNotFound)
	assert.Equal(t, 0, m.Len())
}

func TestManager_Evict(t *testing.T) {
	ctx := context.Background()
	m, err := NewManager(newTestDeps(t, echoAnswerer("x y"), time.Second), time.Minute)
	require.NoError(t, err)

	idle, err := m.Create(ctx)
	require.NoError(t, err)
	active, err := m.Create(ctx)
	require.NoError(t, err)

	idle.lastUsed.Store(time.Now().Add(-2 * time.Minute).UnixNano())

	assert.Equal(t, 1, m.Evict(time.Now()))
	_, err = m.Get(idle.ID())
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = m.Get(active.ID())
	assert.NoError(t, err)
}

func TestManager_NoEvictionWithoutTTL(t *testing.T) {
	m, err := NewManager(newTestDeps(t, echoAnswerer("x y"), time.Second), 0)
	require.NoError(t, err)
	s, err := m.Create(context.Background())
	require.NoError(t, err)
	s.lastUsed.Store(0)
	assert.Equal(t, 0, m.Evict(time.Now()))
}
