package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/fyrsmithlabs/medichat/internal/prompt"
)

var tracer = otel.Tracer("medichat.llm")

// GatewayConfig configures a Gateway.
type GatewayConfig struct {
	// Timeout bounds every call; a shorter caller deadline wins.
	Timeout time.Duration
	// RequestsPerMinute limits call rate; 0 disables limiting.
	RequestsPerMinute int
}

// Gateway is the single entry point to the chat model.
type Gateway struct {
	answerer Answerer
	timeout  time.Duration
	limiter  *rate.Limiter
	logger   *zap.Logger
}

// NewGateway wraps answerer.
func NewGateway(answerer Answerer, cfg GatewayConfig, logger *zap.Logger) (*Gateway, error) {
	if answerer == nil {
		return nil, errors.New("answerer is required")
	}
	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("timeout must be positive, got %s", cfg.Timeout)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	g := &Gateway{answerer: answerer, timeout: cfg.Timeout, logger: logger}
	if cfg.RequestsPerMinute > 0 {
		g.limiter = rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMinute)/60), 1)
	}
	return g, nil
}

// Name returns the backend name.
func (g *Gateway) Name() string { return g.answerer.Name() }

// Answer sends p to the model and returns its text.
func (g *Gateway) Answer(ctx context.Context, p prompt.Prompt) (answer string, err error) {
	ctx, span := tracer.Start(ctx, "Gateway.Answer")
	defer span.End()
	span.SetAttributes(
		attribute.String("backend", g.answerer.Name()),
		attribute.Int("context_chars", len(p.Context)),
	)

	parent := ctx
	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			g.logger.Warn("model call failed",
				zap.String("backend", g.answerer.Name()),
				zap.Duration("elapsed", time.Since(start)),
				zap.Error(err),
			)
			return
		}
		span.SetStatus(codes.Ok, "success")
	}()

	if g.limiter != nil {
		// Wait fails early when the deadline cannot accommodate the next
		// token, so any non-cancel failure here is a timeout.
		if err := g.limiter.Wait(callCtx); err != nil {
			if errors.Is(parent.Err(), context.Canceled) {
				return "", fmt.Errorf("answer abandoned: %w", context.Canceled)
			}
			return "", fmt.Errorf("%w: rate limit wait: %w", ErrModelTimeout, context.DeadlineExceeded)
		}
	}

	type reply struct {
		text string
		err  error
	}
	done := make(chan reply, 1)
	go func() {
		text, err := g.answerer.Answer(callCtx, p)
		done <- reply{text, err}
	}()

	// Backends that ignore ctx cannot hold the caller past the deadline.
	select {
	case r := <-done:
		if r.err != nil {
			return "", g.classify(parent, callCtx, r.err)
		}
		if strings.TrimSpace(r.text) == "" {
			return "", fmt.Errorf("%w: empty response from %s", ErrModelUnavailable, g.answerer.Name())
		}
		g.logger.Debug("model answered",
			zap.String("backend", g.answerer.Name()),
			zap.Int("answer_chars", len(r.text)),
			zap.Duration("elapsed", time.Since(start)),
		)
		return r.text, nil
	case <-callCtx.Done():
		return "", g.classify(parent, callCtx, callCtx.Err())
	}
}

// classify maps a failure onto the gateway's error taxonomy.
func (g *Gateway) classify(parent, callCtx context.Context, err error) error {
	if errors.Is(parent.Err(), context.Canceled) {
		return fmt.Errorf("answer abandoned: %w", context.Canceled)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w after %s: %w", ErrModelTimeout, g.timeout, context.DeadlineExceeded)
	}
	if errors.Is(err, ErrModelUnavailable) || errors.Is(err, ErrModelTimeout) {
		return err
	}
	return fmt.Errorf("%w: %s: %v", ErrModelUnavailable, g.answerer.Name(), err)
}
