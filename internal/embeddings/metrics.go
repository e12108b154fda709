package embeddings

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const instrumentationName = "github.com/fyrsmithlabs/medichat/internal/embeddings"

// Metrics records embedding latency, batch size and failures.
type Metrics struct {
	duration  metric.Float64Histogram
	batchSize metric.Int64Histogram
	errors    metric.Int64Counter
}

// NewMetrics creates the instruments on the global meter provider.
// Instrument creation failures are logged and leave that instrument unset.
func NewMetrics(logger *zap.Logger) *Metrics {
	meter := otel.Meter(instrumentationName)
	m := &Metrics{}

	var err error
	m.duration, err = meter.Float64Histogram(
		"medichat.embedding.duration_seconds",
		metric.WithDescription("Duration of embedding calls in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		logger.Warn("failed to create embedding duration histogram", zap.Error(err))
	}
	m.batchSize, err = meter.Int64Histogram(
		"medichat.embedding.batch_size",
		metric.WithDescription("Number of texts per embedding call"),
	)
	if err != nil {
		logger.Warn("failed to create embedding batch size histogram", zap.Error(err))
	}
	m.errors, err = meter.Int64Counter(
		"medichat.embedding.errors_total",
		metric.WithDescription("Number of failed embedding calls"),
	)
	if err != nil {
		logger.Warn("failed to create embedding error counter", zap.Error(err))
	}
	return m
}

// Record records one embedding call.
func (m *Metrics) Record(ctx context.Context, attrs []attribute.KeyValue, elapsed time.Duration, batch int, err error) {
	opt := metric.WithAttributes(attrs...)
	if m.duration != nil {
		m.duration.Record(ctx, elapsed.Seconds(), opt)
	}
	if m.batchSize != nil && batch > 0 {
		m.batchSize.Record(ctx, int64(batch), opt)
	}
	if m.errors != nil && err != nil {
		m.errors.Add(ctx, 1, opt)
	}
}

// instrumented wraps a Provider with Metrics.
type instrumented struct {
	Provider
	metrics  *Metrics
	provider attribute.KeyValue
	model    attribute.KeyValue
}

// Instrument wraps p so every call is recorded.
func Instrument(p Provider, provider, model string, logger *zap.Logger) Provider {
	return &instrumented{
		Provider: p,
		metrics:  NewMetrics(logger),
		provider: attribute.String("provider", provider),
		model:    attribute.String("model", model),
	}
}

func (i *instrumented) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	start := time.Now()
	out, err := i.Provider.EmbedDocuments(ctx, texts)
	i.metrics.Record(ctx, []attribute.KeyValue{i.provider, i.model, attribute.String("operation", "documents")},
		time.Since(start), len(texts), err)
	return out, err
}

func (i *instrumented) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	start := time.Now()
	out, err := i.Provider.EmbedQuery(ctx, text)
	i.metrics.Record(ctx, []attribute.KeyValue{i.provider, i.model, attribute.String("operation", "query")},
		time.Since(start), 1, err)
	return out, err
}
