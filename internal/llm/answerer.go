// Package llm sends assembled prompts to a chat model.
//
// Each backend implements Answerer. Gateway wraps one Answerer with the
// request deadline, rate limiting and the error taxonomy the rest of the
// pipeline relies on:
//
//   - ErrModelTimeout: the deadline (configured or caller supplied) passed
//   - ErrModelUnavailable: transport, auth or empty-response failure
//   - context.Canceled: the caller abandoned the request
//
// The gateway makes exactly one call per Answer; retrying is the caller's
// decision.
package llm

import (
	"context"
	"errors"

	"github.com/fyrsmithlabs/medichat/internal/prompt"
)

// Sentinel errors surfaced by Gateway.
var (
	ErrModelUnavailable = errors.New("model unavailable")
	ErrModelTimeout     = errors.New("model timeout")
)

// Answerer is a chat model backend.
type Answerer interface {
	// Answer returns the model's raw text response to p.
	Answer(ctx context.Context, p prompt.Prompt) (string, error)
	// Name identifies the backend and model, for logs and reports.
	Name() string
}

// AnswerFunc adapts a function to Answerer.
type AnswerFunc func(ctx context.Context, p prompt.Prompt) (string, error)

// Answer implements Answerer.
func (f AnswerFunc) Answer(ctx context.Context, p prompt.Prompt) (string, error) {
	return f(ctx, p)
}

// Name implements Answerer.
func (f AnswerFunc) Name() string { return "func" }
