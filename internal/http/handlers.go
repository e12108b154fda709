package http

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/fyrsmithlabs/medichat/internal/conversation"
	"github.com/fyrsmithlabs/medichat/internal/ingestion"
	"github.com/fyrsmithlabs/medichat/internal/logging"
	"github.com/fyrsmithlabs/medichat/internal/notify"
	"github.com/fyrsmithlabs/medichat/internal/objectstore"
	"github.com/fyrsmithlabs/medichat/internal/session"
)

const sessionKey = "session"

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status   string `json:"status"`
	Sessions int    `json:"sessions"`
}

// SessionResponse is the response body for POST /api/v1/sessions.
type SessionResponse struct {
	SessionID string    `json:"session_id"`
	CreatedAt time.Time `json:"created_at"`
}

// UploadResponse is the response body for POST .../documents.
type UploadResponse struct {
	Report ingestion.Report `json:"report"`
	Stats  session.Stats    `json:"stats"`
}

// DocumentsResponse is the response body for GET /api/v1/documents.
type DocumentsResponse struct {
	Documents []objectstore.Object `json:"documents"`
}

// AskRequest is the request body for POST .../ask.
type AskRequest struct {
	Question string `json:"question" validate:"required"`
}

// HistoryResponse is the response body for GET .../history.
type HistoryResponse struct {
	Turns []conversation.Turn `json:"turns"`
}

// ReportRequest is the request body for POST .../report.
type ReportRequest struct {
	Recipient string `json:"recipient" validate:"omitempty,email"`
}

// TicketRequest is the request body for POST .../ticket. Question and
// Answer default to the latest turn.
type TicketRequest struct {
	Question    string `json:"question"`
	Answer      string `json:"answer"`
	Description string `json:"description" validate:"max=5000"`
	UserEmail   string `json:"user_email" validate:"omitempty,email"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok", Sessions: s.sessions.Len()})
}

func (s *Server) handleCreateSession(c echo.Context) error {
	sess, err := s.sessions.Create(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, SessionResponse{SessionID: sess.ID(), CreatedAt: sess.CreatedAt()})
}

// loadSession resolves :id for every session route.
func (s *Server) loadSession(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		sess, err := s.sessions.Get(c.Param("id"))
		if err != nil {
			return err
		}
		c.Set(sessionKey, sess)
		return next(c)
	}
}

// limitBody caps upload request bodies.
func (s *Server) limitBody(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		req.Body = http.MaxBytesReader(c.Response(), req.Body, s.config.MaxUploadBytes)
		return next(c)
	}
}

func current(c echo.Context) *session.Session {
	return c.Get(sessionKey).(*session.Session)
}

func (s *Server) handleDeleteSession(c echo.Context) error {
	if err := s.sessions.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleUpload(c echo.Context) error {
	form, err := c.MultipartForm()
	if err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			return err
		}
		return echo.NewHTTPError(http.StatusBadRequest, "expected multipart form with files")
	}
	defer form.RemoveAll()

	files := form.File["files"]
	if len(files) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "no files uploaded; use the \"files\" field")
	}

	uploads := make([]ingestion.Upload, 0, len(files))
	for _, fh := range files {
		data, err := readFormFile(fh)
		if err != nil {
			return err
		}
		uploads = append(uploads, ingestion.Upload{
			Name:        fh.Filename,
			ContentType: fh.Header.Get(echo.HeaderContentType),
			Data:        data,
		})
	}

	sess := current(c)
	report, err := sess.Ingest(c.Request().Context(), uploads)
	if err != nil {
		return s.uploadFailed(c, report, err)
	}
	return c.JSON(http.StatusOK, UploadResponse{Report: report, Stats: sess.Stats()})
}

func (s *Server) handleReload(c echo.Context) error {
	sess := current(c)
	report, err := sess.Reload(c.Request().Context())
	if err != nil {
		return s.uploadFailed(c, report, err)
	}
	return c.JSON(http.StatusOK, UploadResponse{Report: report, Stats: sess.Stats()})
}

// uploadFailed answers with err and the per-file report gathered before
// the batch failed.
func (s *Server) uploadFailed(c echo.Context, report ingestion.Report, err error) error {
	ctx := c.Request().Context()
	status := statusFor(err)
	logFailure(ctx, s.logger, status, err)
	return c.JSON(status, UploadErrorResponse{
		ErrorResponse: ErrorResponse{
			Error:     errorMessage(status, err),
			RequestID: logging.RequestIDFromContext(ctx),
		},
		Report: report,
	})
}

func (s *Server) handleListDocuments(c echo.Context) error {
	if s.docs == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "document storage is not configured")
	}
	objects, err := s.docs.Stored(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, DocumentsResponse{Documents: objects})
}

func (s *Server) handleRemoveDocument(c echo.Context) error {
	if s.docs == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "document storage is not configured")
	}
	if err := s.docs.Remove(c.Request().Context(), c.Param("hash")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func readFormFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", fh.Filename, err)
	}
	defer f.Close()
	return io.ReadAll(f)
}

func (s *Server) handleAsk(c echo.Context) error {
	var req AskRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	turn, err := current(c).Ask(c.Request().Context(), req.Question)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, turn)
}

func (s *Server) handleHistory(c echo.Context) error {
	turns := current(c).History()
	if c.QueryParam("format") == "jsonl" {
		c.Response().Header().Set(echo.HeaderContentType, "application/x-ndjson")
		c.Response().WriteHeader(http.StatusOK)
		return conversation.WriteJSONL(c.Response(), turns)
	}
	return c.JSON(http.StatusOK, HistoryResponse{Turns: turns})
}

func (s *Server) handleResetHistory(c echo.Context) error {
	current(c).Reset()
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleStats(c echo.Context) error {
	return c.JSON(http.StatusOK, current(c).Stats())
}

func (s *Server) handleReport(c echo.Context) error {
	if s.notifier == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "email delivery is not configured")
	}
	var req ReportRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	sess := current(c)
	recent := sess.Recent(notify.RecentTurns)
	if len(recent) == 0 {
		return echo.NewHTTPError(http.StatusConflict, "no questions have been asked in this session")
	}
	last := recent[len(recent)-1]
	stats := sess.Stats()

	result, err := s.notifier.SendReport(c.Request().Context(), req.Recipient, notify.ReportData{
		SessionID:      sess.ID(),
		Documents:      stats.Documents,
		Chunks:         stats.Chunks,
		TotalTurns:     stats.Turns,
		Question:       last.Question,
		Answer:         last.Answer,
		Insight:        &last.Insight,
		Recent:         recent,
		LLMModel:       s.info.LLM,
		EmbeddingModel: s.info.Embeddings,
		ChunkWindow:    s.info.ChunkWindow,
		ChunkOverlap:   s.info.ChunkOverlap,
	})
	if err != nil {
		return c.JSON(statusFor(err), result)
	}
	return c.JSON(http.StatusOK, result)
}

func (s *Server) handleTicket(c echo.Context) error {
	if s.notifier == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "email delivery is not configured")
	}
	var req TicketRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	sess := current(c)
	if req.Question == "" {
		last := sess.Recent(1)
		if len(last) == 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "question is required when the session has no history")
		}
		req.Question = last[0].Question
		if req.Answer == "" {
			req.Answer = last[0].Answer
		}
	}

	result, err := s.notifier.SendTicket(c.Request().Context(), notify.TicketRequest{
		SessionID:   sess.ID(),
		Question:    req.Question,
		Answer:      req.Answer,
		Description: req.Description,
		UserEmail:   req.UserEmail,
	})
	if err != nil {
		return c.JSON(statusFor(err), result)
	}
	return c.JSON(http.StatusOK, result)
}
