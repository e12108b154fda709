package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/medichat/internal/chunker"
	"github.com/fyrsmithlabs/medichat/internal/config"
	"github.com/fyrsmithlabs/medichat/internal/conversation"
	"github.com/fyrsmithlabs/medichat/internal/embeddings"
	"github.com/fyrsmithlabs/medichat/internal/extraction"
	"github.com/fyrsmithlabs/medichat/internal/ingestion"
	"github.com/fyrsmithlabs/medichat/internal/insight"
	"github.com/fyrsmithlabs/medichat/internal/llm"
	"github.com/fyrsmithlabs/medichat/internal/logging"
	"github.com/fyrsmithlabs/medichat/internal/notify"
	"github.com/fyrsmithlabs/medichat/internal/objectstore"
	"github.com/fyrsmithlabs/medichat/internal/prompt"
	"github.com/fyrsmithlabs/medichat/internal/retrieval"
	"github.com/fyrsmithlabs/medichat/internal/session"
	"github.com/fyrsmithlabs/medichat/internal/vectorstore"
)

const dischargeNote = "Discharge summary. Blood pressure 142/90 at discharge. " +
	"Heart rate 76. Continue amlodipine 5mg daily. Follow up in cardiology clinic in two weeks."

type recordingSender struct {
	mu   sync.Mutex
	sent [][]byte
	err  error
}

func (r *recordingSender) Send(_ context.Context, _ string, _ []string, raw []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, raw)
	return nil
}

func (r *recordingSender) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent)
}

type testServer struct {
	server *Server
	sender *recordingSender
	logger *logging.TestLogger
}

type serverOption func(*serverOptions)

type serverOptions struct {
	answerer  llm.Answerer
	timeout   time.Duration
	maxUpload int64
	noNotify  bool
	noDocs    bool
}

func withAnswerer(a llm.Answerer) serverOption {
	return func(o *serverOptions) { o.answerer = a }
}

func withTimeout(d time.Duration) serverOption {
	return func(o *serverOptions) { o.timeout = d }
}

func withMaxUpload(n int64) serverOption {
	return func(o *serverOptions) { o.maxUpload = n }
}

func withoutNotifier() serverOption {
	return func(o *serverOptions) { o.noNotify = true }
}

func withoutDocuments() serverOption {
	return func(o *serverOptions) { o.noDocs = true }
}

func newTestServer(t *testing.T, opts ...serverOption) *testServer {
	t.Helper()
	o := serverOptions{
		answerer: llm.AnswerFunc(func(context.Context, prompt.Prompt) (string, error) {
			return "Blood pressure at discharge was 142/90 and amlodipine was continued.", nil
		}),
		timeout: time.Second,
	}
	for _, opt := range opts {
		opt(&o)
	}

	emb, err := embeddings.NewHashingProvider(256)
	require.NoError(t, err)
	idx, err := vectorstore.NewIndex(emb, nil)
	require.NoError(t, err)
	ch, err := chunker.New(chunker.Config{Window: 200, Overlap: 40, SnapLookback: 30})
	require.NoError(t, err)
	gw, err := llm.NewGateway(o.answerer, llm.GatewayConfig{Timeout: o.timeout}, nil)
	require.NoError(t, err)
	store, err := objectstore.OpenBadger(objectstore.BadgerConfig{InMemory: true}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	logger := logging.NewTestLogger()
	docs := ingestion.NewService(store, extraction.NewMux(nil), logger.Logger)
	manager, err := session.NewManager(session.Deps{
		Chunker:   ch,
		Index:     idx,
		Retriever: retrieval.New(idx, retrieval.DefaultK),
		Gateway:   gw,
		Insight:   insight.New(config.Default().Insight),
		Ingestion: docs,
		Logger:    logger.Logger,
	}, 0)
	require.NoError(t, err)

	sender := &recordingSender{}
	var dispatcher *notify.Dispatcher
	if !o.noNotify {
		dispatcher = notify.NewDispatcher(config.EmailConfig{
			Enabled:        true,
			From:           "medichat@example.com",
			To:             "reports@example.com",
			SupportAddress: "support@example.com",
		}, sender, nil)
	}

	if o.noDocs {
		docs = nil
	}
	srv, err := NewServer(manager, docs, dispatcher, logger.Logger, &Config{MaxUploadBytes: o.maxUpload}, ModelInfo{
		LLM:          "test-model",
		Embeddings:   "hashing-256",
		ChunkWindow:  200,
		ChunkOverlap: 40,
	})
	require.NoError(t, err)
	return &testServer{server: srv, sender: sender, logger: logger}
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == nil {
		req = httptest.NewRequest(method, path, nil)
	} else {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		req = httptest.NewRequest(method, path, bytes.NewReader(raw))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	ts.server.Handler().ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) upload(t *testing.T, sessionID string, files map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for name, content := range files {
		part, err := w.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/"+sessionID+"/documents", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := httptest.NewRecorder()
	ts.server.Handler().ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) createSession(t *testing.T) string {
	t.Helper()
	rec := ts.do(t, http.MethodPost, "/api/v1/sessions", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	var resp SessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.SessionID)
	return resp.SessionID
}

func (ts *testServer) indexedSession(t *testing.T) string {
	t.Helper()
	id := ts.createSession(t)
	rec := ts.upload(t, id, map[string]string{"discharge.txt": dischargeNote})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return id
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestNewServer_Validation(t *testing.T) {
	_, err := NewServer(nil, nil, nil, logging.Nop(), nil, ModelInfo{})
	assert.Error(t, err)
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	ts.createSession(t)

	rec := ts.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[HealthResponse](t, rec)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 1, resp.Sessions)
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUnknownSession(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/api/v1/sessions/missing/stats", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	resp := decode[ErrorResponse](t, rec)
	assert.Contains(t, resp.Error, "session not found")
	assert.NotEmpty(t, resp.RequestID)
}

func TestUploadAndStats(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createSession(t)

	rec := ts.upload(t, id, map[string]string{
		"discharge.txt": dischargeNote,
		"scan.exe":      "MZ binary",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[UploadResponse](t, rec)
	assert.Equal(t, []string{"discharge.txt"}, resp.Report.Uploaded)
	require.Len(t, resp.Report.Failed, 1)
	assert.Equal(t, "scan.exe", resp.Report.Failed[0].Name)
	assert.Equal(t, 1, resp.Stats.Documents)
	assert.Positive(t, resp.Stats.Chunks)

	// Same bytes again are reported as a duplicate.
	rec = ts.upload(t, id, map[string]string{"copy.txt": dischargeNote})
	require.Equal(t, http.StatusOK, rec.Code)
	resp = decode[UploadResponse](t, rec)
	assert.Equal(t, []string{"copy.txt"}, resp.Report.Duplicates)
	assert.Equal(t, 1, resp.Stats.Documents)

	rec = ts.do(t, http.MethodGet, "/api/v1/sessions/"+id+"/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode[session.Stats](t, rec)
	assert.Equal(t, id, stats.SessionID)
	assert.Equal(t, 1, stats.Documents)
	assert.Zero(t, stats.Turns)
}

func TestUpload_Errors(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createSession(t)

	rec := ts.do(t, http.MethodPost, "/api/v1/sessions/"+id+"/documents", map[string]string{"x": "y"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.upload(t, id, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpload_EmptyCorpusKeepsReport(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createSession(t)

	rec := ts.upload(t, id, map[string]string{
		"blank.txt":  "   \n\n ",
		"broken.pdf": "%PDF-1.4 garbage",
	})
	require.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
	resp := decode[UploadErrorResponse](t, rec)
	assert.Contains(t, resp.Error, "empty corpus")
	assert.NotEmpty(t, resp.RequestID)
	assert.Equal(t, []string{"blank.txt"}, resp.Report.Uploaded)
	require.Len(t, resp.Report.Failed, 1)
	assert.Equal(t, "broken.pdf", resp.Report.Failed[0].Name)
	assert.NotEmpty(t, resp.Report.Failed[0].Reason)
}

func TestStoredDocuments(t *testing.T) {
	ts := newTestServer(t)
	ts.indexedSession(t)

	rec := ts.do(t, http.MethodGet, "/api/v1/documents", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	docs := decode[DocumentsResponse](t, rec).Documents
	require.Len(t, docs, 1)
	assert.Equal(t, "discharge.txt", docs[0].Name)
	assert.Equal(t, objectstore.ContentHash([]byte(dischargeNote)), docs[0].Hash)
	assert.Equal(t, int64(len(dischargeNote)), docs[0].Size)

	// A new session can index everything already stored.
	fresh := ts.createSession(t)
	rec = ts.do(t, http.MethodPost, "/api/v1/sessions/"+fresh+"/documents/reload", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	reloaded := decode[UploadResponse](t, rec)
	assert.Equal(t, 1, reloaded.Stats.Documents)
	assert.Positive(t, reloaded.Stats.Chunks)

	rec = ts.do(t, http.MethodPost, "/api/v1/sessions/"+fresh+"/ask", AskRequest{Question: "What was the blood pressure?"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodDelete, "/api/v1/documents/"+docs[0].Hash, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/v1/documents", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[DocumentsResponse](t, rec).Documents)

	rec = ts.do(t, http.MethodDelete, "/api/v1/documents/"+docs[0].Hash, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, decode[ErrorResponse](t, rec).Error, "object not found")

	// Removing a stored document leaves indexed sessions untouched.
	rec = ts.do(t, http.MethodGet, "/api/v1/sessions/"+fresh+"/stats", nil)
	assert.Equal(t, 1, decode[session.Stats](t, rec).Documents)
}

func TestReload_EmptyStore(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createSession(t)

	rec := ts.do(t, http.MethodPost, "/api/v1/sessions/"+id+"/documents/reload", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	resp := decode[UploadErrorResponse](t, rec)
	assert.Empty(t, resp.Report.Failed)
}

func TestDocumentRoutes_Unconfigured(t *testing.T) {
	ts := newTestServer(t, withoutDocuments())

	rec := ts.do(t, http.MethodGet, "/api/v1/documents", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	rec = ts.do(t, http.MethodDelete, "/api/v1/documents/abc", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestUpload_TooLarge(t *testing.T) {
	ts := newTestServer(t, withMaxUpload(64))
	id := ts.createSession(t)

	rec := ts.upload(t, id, map[string]string{"big.txt": strings.Repeat("blood pressure ", 100)})
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestAsk(t *testing.T) {
	ts := newTestServer(t)
	id := ts.indexedSession(t)

	rec := ts.do(t, http.MethodPost, "/api/v1/sessions/"+id+"/ask", AskRequest{Question: "What was the blood pressure at discharge?"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	turn := decode[conversation.Turn](t, rec)
	assert.Contains(t, turn.Answer, "142/90")
	assert.NotEmpty(t, turn.Sources)
	assert.Contains(t, turn.Insight.MedicalKeywords, "blood pressure")
	assert.Equal(t, insight.LatencyFast, turn.Insight.ResponseTime)

	rec = ts.do(t, http.MethodGet, "/api/v1/sessions/"+id+"/stats", nil)
	stats := decode[session.Stats](t, rec)
	assert.Equal(t, 1, stats.Turns)
}

func TestAsk_Errors(t *testing.T) {
	tests := []struct {
		name     string
		opts     []serverOption
		index    bool
		body     any
		wantCode int
	}{
		{
			name:     "missing question",
			index:    true,
			body:     map[string]string{},
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "blank question",
			index:    true,
			body:     AskRequest{Question: "   "},
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "no documents",
			body:     AskRequest{Question: "blood pressure?"},
			wantCode: http.StatusConflict,
		},
		{
			name: "model timeout",
			opts: []serverOption{
				withTimeout(20 * time.Millisecond),
				withAnswerer(llm.AnswerFunc(func(ctx context.Context, _ prompt.Prompt) (string, error) {
					<-ctx.Done()
					return "", ctx.Err()
				})),
			},
			index:    true,
			body:     AskRequest{Question: "blood pressure?"},
			wantCode: http.StatusGatewayTimeout,
		},
		{
			name: "model unavailable",
			opts: []serverOption{
				withAnswerer(llm.AnswerFunc(func(context.Context, prompt.Prompt) (string, error) {
					return "", errors.New("connection refused")
				})),
			},
			index:    true,
			body:     AskRequest{Question: "blood pressure?"},
			wantCode: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, tt.opts...)
			var id string
			if tt.index {
				id = ts.indexedSession(t)
			} else {
				id = ts.createSession(t)
			}

			rec := ts.do(t, http.MethodPost, "/api/v1/sessions/"+id+"/ask", tt.body)
			assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())

			// Failed questions never reach the history.
			rec = ts.do(t, http.MethodGet, "/api/v1/sessions/"+id+"/history", nil)
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Empty(t, decode[HistoryResponse](t, rec).Turns)
		})
	}
}

func TestAsk_ServerErrorsAreLogged(t *testing.T) {
	ts := newTestServer(t, withAnswerer(llm.AnswerFunc(func(context.Context, prompt.Prompt) (string, error) {
		return "", errors.New("connection refused")
	})))
	id := ts.indexedSession(t)

	rec := ts.do(t, http.MethodPost, "/api/v1/sessions/"+id+"/ask", AskRequest{Question: "blood pressure?"})
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	ts.logger.AssertLogged(t, zapcore.ErrorLevel, "request failed")
}

func TestHistory(t *testing.T) {
	ts := newTestServer(t)
	id := ts.indexedSession(t)

	for _, q := range []string{"What was the blood pressure?", "Which medication was continued?"} {
		rec := ts.do(t, http.MethodPost, "/api/v1/sessions/"+id+"/ask", AskRequest{Question: q})
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := ts.do(t, http.MethodGet, "/api/v1/sessions/"+id+"/history", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	turns := decode[HistoryResponse](t, rec).Turns
	require.Len(t, turns, 2)
	assert.Equal(t, "What was the blood pressure?", turns[0].Question)

	rec = ts.do(t, http.MethodGet, "/api/v1/sessions/"+id+"/history?format=jsonl", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/x-ndjson", rec.Header().Get("Content-Type"))
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 2)
	var exported conversation.Turn
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &exported))
	assert.Equal(t, turns[1].ID, exported.ID)

	rec = ts.do(t, http.MethodDelete, "/api/v1/sessions/"+id+"/history", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/v1/sessions/"+id+"/history", nil)
	assert.Empty(t, decode[HistoryResponse](t, rec).Turns)

	// Documents survive a history reset.
	rec = ts.do(t, http.MethodGet, "/api/v1/sessions/"+id+"/stats", nil)
	assert.Equal(t, 1, decode[session.Stats](t, rec).Documents)
}

func TestDeleteSession(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createSession(t)

	rec := ts.do(t, http.MethodDelete, "/api/v1/sessions/"+id, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/v1/sessions/"+id+"/stats", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReport(t *testing.T) {
	ts := newTestServer(t)
	id := ts.indexedSession(t)

	rec := ts.do(t, http.MethodPost, "/api/v1/sessions/"+id+"/report", ReportRequest{})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/v1/sessions/"+id+"/ask", AskRequest{Question: "What was the blood pressure?"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/v1/sessions/"+id+"/report", ReportRequest{Recipient: "doctor@example.com"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	result := decode[notify.DeliveryResult](t, rec)
	assert.True(t, result.Delivered)
	assert.NotEmpty(t, result.MessageID)
	require.Equal(t, 1, ts.sender.count())
	assert.Contains(t, string(ts.sender.sent[0]), "doctor@example.com")

	rec = ts.do(t, http.MethodPost, "/api/v1/sessions/"+id+"/report", ReportRequest{Recipient: "not-an-address"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReport_DeliveryFailure(t *testing.T) {
	ts := newTestServer(t)
	ts.sender.err = errors.New("smtp: 554 rejected")
	id := ts.indexedSession(t)
	rec := ts.do(t, http.MethodPost, "/api/v1/sessions/"+id+"/ask", AskRequest{Question: "What was the blood pressure?"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/v1/sessions/"+id+"/report", ReportRequest{})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	result := decode[notify.DeliveryResult](t, rec)
	assert.False(t, result.Delivered)
	assert.Contains(t, result.Reason, "554 rejected")
}

func TestTicket(t *testing.T) {
	ts := newTestServer(t)
	id := ts.indexedSession(t)

	rec := ts.do(t, http.MethodPost, "/api/v1/sessions/"+id+"/ticket", TicketRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/v1/sessions/"+id+"/ask", AskRequest{Question: "What was the blood pressure?"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/v1/sessions/"+id+"/ticket", TicketRequest{
		Description: "The answer did not mention the follow-up visit.",
		UserEmail:   "patient@example.com",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	result := decode[notify.DeliveryResult](t, rec)
	assert.True(t, result.Delivered)
	assert.True(t, strings.HasPrefix(result.TicketID, "MC-"))
	require.Equal(t, 1, ts.sender.count())
	assert.Contains(t, string(ts.sender.sent[0]), "support@example.com")

	rec = ts.do(t, http.MethodPost, "/api/v1/sessions/"+id+"/ticket", TicketRequest{UserEmail: "bad"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNotifyRoutes_Unconfigured(t *testing.T) {
	ts := newTestServer(t, withoutNotifier())
	id := ts.createSession(t)

	rec := ts.do(t, http.MethodPost, "/api/v1/sessions/"+id+"/report", ReportRequest{})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	rec = ts.do(t, http.MethodPost, "/api/v1/sessions/"+id+"/ticket", TicketRequest{Question: "q"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{session.ErrEmptyQuestion, http.StatusBadRequest},
		{session.ErrNotFound, http.StatusNotFound},
		{objectstore.ErrNotFound, http.StatusNotFound},
		{vectorstore.ErrIndexNotBuilt, http.StatusConflict},
		{vectorstore.ErrEmptyCorpus, http.StatusConflict},
		{vectorstore.ErrInvalidK, http.StatusBadRequest},
		{llm.ErrModelTimeout, http.StatusGatewayTimeout},
		{llm.ErrModelUnavailable, http.StatusServiceUnavailable},
		{vectorstore.ErrEmbeddingFailed, http.StatusServiceUnavailable},
		{extraction.ErrUnreadablePDF, http.StatusUnprocessableEntity},
		{extraction.ErrUnsupportedType, http.StatusUnprocessableEntity},
		{notify.ErrDeliveryFailed, http.StatusBadGateway},
		{context.Canceled, http.StatusRequestTimeout},
		{&http.MaxBytesError{Limit: 1}, http.StatusRequestEntityTooLarge},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}
