package main

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/medichat/internal/chunker"
	"github.com/fyrsmithlabs/medichat/internal/config"
	"github.com/fyrsmithlabs/medichat/internal/embeddings"
	"github.com/fyrsmithlabs/medichat/internal/extraction"
	medihttp "github.com/fyrsmithlabs/medichat/internal/http"
	"github.com/fyrsmithlabs/medichat/internal/ingestion"
	"github.com/fyrsmithlabs/medichat/internal/insight"
	"github.com/fyrsmithlabs/medichat/internal/llm"
	"github.com/fyrsmithlabs/medichat/internal/logging"
	"github.com/fyrsmithlabs/medichat/internal/notify"
	"github.com/fyrsmithlabs/medichat/internal/objectstore"
	"github.com/fyrsmithlabs/medichat/internal/redact"
	"github.com/fyrsmithlabs/medichat/internal/retrieval"
	"github.com/fyrsmithlabs/medichat/internal/session"
	"github.com/fyrsmithlabs/medichat/internal/telemetry"
	"github.com/fyrsmithlabs/medichat/internal/vectorstore"
)

// newAnswerer builds the chat model backend. Tests replace it.
var newAnswerer = llm.NewAnswerer

// app holds the process-wide pipeline components.
type app struct {
	cfg        *config.Config
	logger     *logging.Logger
	telemetry  *telemetry.Telemetry
	embedder   embeddings.Provider
	store      objectstore.Store
	deps       session.Deps
	dispatcher *notify.Dispatcher
}

// newApp initializes, in order: telemetry, logger, embeddings, index,
// object store, model gateway and email dispatch. Components built before
// a failure are closed.
func newApp(ctx context.Context, cfg *config.Config) (_ *app, err error) {
	a := &app{cfg: cfg}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	a.telemetry, err = telemetry.New(ctx, telemetry.FromAppConfig(cfg.Observability, version))
	if err != nil {
		return nil, err
	}

	logCfg, err := logging.FromAppConfig(cfg.Logging, a.telemetry.LoggerProvider() != nil)
	if err != nil {
		return nil, err
	}
	a.logger, err = logging.NewLogger(logCfg, a.telemetry.LoggerProvider())
	if err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}
	if h := a.telemetry.Health(); h.Degraded {
		a.logger.Warn(ctx, "telemetry degraded", zap.Error(h.Err))
	}
	zl := a.logger.Underlying()

	a.embedder, err = embeddings.NewProvider(ctx, embeddings.ProviderConfig{
		Provider:  cfg.Embeddings.Provider,
		Model:     cfg.Embeddings.Model,
		BaseURL:   cfg.Embeddings.BaseURL,
		APIKey:    cfg.Embeddings.APIKey.Value(),
		Dimension: cfg.Embeddings.Dimension,
		CacheDir:  cfg.Embeddings.CacheDir,
	}, zl)
	if err != nil {
		return nil, fmt.Errorf("initializing embeddings: %w", err)
	}

	index, err := vectorstore.NewIndex(a.embedder, zl)
	if err != nil {
		return nil, err
	}
	ch, err := chunker.New(chunker.Config{
		Window:       cfg.Chunking.Window,
		Overlap:      cfg.Chunking.Overlap,
		SnapLookback: cfg.Chunking.SnapLookback,
	})
	if err != nil {
		return nil, err
	}

	answerer, err := newAnswerer(ctx, cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("initializing %s model: %w", cfg.LLM.Provider, err)
	}
	gateway, err := llm.NewGateway(answerer, llm.GatewayConfig{
		Timeout:           cfg.LLM.Timeout,
		RequestsPerMinute: cfg.LLM.RequestsPerMinute,
	}, zl)
	if err != nil {
		return nil, err
	}

	a.store, err = objectstore.OpenBadger(objectstore.BadgerConfig{
		Path:     cfg.Storage.Path,
		InMemory: cfg.Storage.InMemory,
	}, zl)
	if err != nil {
		return nil, fmt.Errorf("opening object store: %w", err)
	}

	a.deps = session.Deps{
		Chunker:   ch,
		Index:     index,
		Retriever: retrieval.New(index, cfg.Retrieval.K),
		Gateway:   gateway,
		Insight:   insight.New(cfg.Insight),
		Ingestion: ingestion.NewService(a.store, extraction.NewMux(zl), a.logger),
		Logger:    a.logger,
	}

	if cfg.Email.Enabled {
		scrubber, err := redact.New(redact.DefaultConfig())
		if err != nil {
			return nil, fmt.Errorf("creating redactor: %w", err)
		}
		a.dispatcher = notify.NewDispatcher(cfg.Email, nil, zl, notify.WithScrubber(scrubber))
	}

	a.logger.Info(ctx, "pipeline initialized",
		zap.String("llm_provider", cfg.LLM.Provider),
		zap.String("llm_model", cfg.LLM.Model),
		zap.String("embeddings_provider", cfg.Embeddings.Provider),
		zap.Int("embedding_dimension", a.embedder.Dimension()),
		zap.Int("chunk_window", cfg.Chunking.Window),
		zap.Int("chunk_overlap", cfg.Chunking.Overlap),
		zap.Int("k", cfg.Retrieval.K),
		zap.Bool("email_enabled", cfg.Email.Enabled),
		zap.Bool("telemetry_enabled", a.telemetry.IsEnabled()),
	)
	return a, nil
}

func (a *app) modelInfo() medihttp.ModelInfo {
	return medihttp.ModelInfo{
		LLM:          fmt.Sprintf("%s (%s)", a.cfg.LLM.Model, a.cfg.LLM.Provider),
		Embeddings:   fmt.Sprintf("%s (%s)", a.cfg.Embeddings.Model, a.cfg.Embeddings.Provider),
		ChunkWindow:  a.cfg.Chunking.Window,
		ChunkOverlap: a.cfg.Chunking.Overlap,
	}
}

// Close releases everything newApp opened.
func (a *app) Close() error {
	var errs []error
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	if a.embedder != nil {
		errs = append(errs, a.embedder.Close())
	}
	if a.telemetry != nil {
		errs = append(errs, a.telemetry.Shutdown(context.Background()))
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
	return errors.Join(errs...)
}
