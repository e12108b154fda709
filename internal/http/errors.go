package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/medichat/internal/chunker"
	"github.com/fyrsmithlabs/medichat/internal/extraction"
	"github.com/fyrsmithlabs/medichat/internal/ingestion"
	"github.com/fyrsmithlabs/medichat/internal/llm"
	"github.com/fyrsmithlabs/medichat/internal/logging"
	"github.com/fyrsmithlabs/medichat/internal/notify"
	"github.com/fyrsmithlabs/medichat/internal/objectstore"
	"github.com/fyrsmithlabs/medichat/internal/session"
	"github.com/fyrsmithlabs/medichat/internal/vectorstore"
)

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// UploadErrorResponse is the error body of the document routes. Report
// lists what happened to each file before the batch failed.
type UploadErrorResponse struct {
	ErrorResponse
	Report ingestion.Report `json:"report"`
}

// statusFor maps pipeline errors onto HTTP status codes.
func statusFor(err error) int {
	var maxBytes *http.MaxBytesError
	var validation validator.ValidationErrors
	switch {
	case errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case errors.As(err, &validation),
		errors.Is(err, session.ErrEmptyQuestion),
		errors.Is(err, chunker.ErrInvalidConfig),
		errors.Is(err, vectorstore.ErrInvalidK):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrNotFound),
		errors.Is(err, objectstore.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, vectorstore.ErrIndexNotBuilt),
		errors.Is(err, vectorstore.ErrEmptyCorpus):
		return http.StatusConflict
	case errors.Is(err, llm.ErrModelTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, llm.ErrModelUnavailable),
		errors.Is(err, vectorstore.ErrEmbeddingFailed):
		return http.StatusServiceUnavailable
	case errors.Is(err, extraction.ErrUnreadablePDF),
		errors.Is(err, extraction.ErrUnsupportedType):
		return http.StatusUnprocessableEntity
	case errors.Is(err, notify.ErrDeliveryFailed):
		return http.StatusBadGateway
	case errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

// errorMessage hides the detail of unexpected failures.
func errorMessage(status int, err error) string {
	if status == http.StatusInternalServerError {
		return http.StatusText(status)
	}
	return err.Error()
}

// logFailure logs err at a level matching status.
func logFailure(ctx context.Context, logger *logging.Logger, status int, err error) {
	if status >= http.StatusInternalServerError {
		logger.Error(ctx, "request failed", zap.Int("status", status), zap.Error(err))
	} else {
		logger.Debug(ctx, "request rejected", zap.Int("status", status), zap.Error(err))
	}
}

// errorHandler renders errors as ErrorResponse JSON.
func errorHandler(e *echo.Echo, logger *logging.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := http.StatusInternalServerError
		message := http.StatusText(status)
		var he *echo.HTTPError
		if errors.As(err, &he) {
			status = he.Code
			if m, ok := he.Message.(string); ok {
				message = m
			} else {
				message = http.StatusText(status)
			}
		} else {
			status = statusFor(err)
			message = errorMessage(status, err)
		}

		ctx := c.Request().Context()
		logFailure(ctx, logger, status, err)

		body := ErrorResponse{Error: message, RequestID: logging.RequestIDFromContext(ctx)}
		var writeErr error
		if c.Request().Method == http.MethodHead {
			writeErr = c.NoContent(status)
		} else {
			writeErr = c.JSON(status, body)
		}
		if writeErr != nil {
			e.Logger.Error(writeErr)
		}
	}
}
