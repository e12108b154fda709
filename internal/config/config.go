// Package config provides configuration loading for medichat.
//
// A single immutable Config is assembled at startup from defaults, an
// optional YAML file and the environment, validated once, and then injected
// into every component.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config is the root configuration structure.
type Config struct {
	Server        ServerConfig        `koanf:"server"`
	Observability ObservabilityConfig `koanf:"observability"`
	Logging       LoggingConfig       `koanf:"logging"`
	Chunking      ChunkingConfig      `koanf:"chunking"`
	Retrieval     RetrievalConfig     `koanf:"retrieval"`
	Embeddings    EmbeddingsConfig    `koanf:"embeddings"`
	LLM           LLMConfig           `koanf:"llm"`
	Insight       InsightConfig       `koanf:"insight"`
	Storage       StorageConfig       `koanf:"storage"`
	Email         EmailConfig         `koanf:"email"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `koanf:"http_host"`
	Port            int           `koanf:"http_port" validate:"gte=1,lte=65535"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
	MaxUploadBytes  int64         `koanf:"max_upload_bytes" validate:"gt=0"`
	SessionIdleTTL  time.Duration `koanf:"session_idle_ttl"`
}

// ObservabilityConfig holds OpenTelemetry settings.
type ObservabilityConfig struct {
	EnableTelemetry bool    `koanf:"enable_telemetry"`
	ServiceName     string  `koanf:"service_name"`
	Endpoint        string  `koanf:"endpoint"`
	Protocol        string  `koanf:"protocol" validate:"oneof=grpc http"`
	Insecure        bool    `koanf:"insecure"`
	SampleRate      float64 `koanf:"sample_rate" validate:"gte=0,lte=1"`
}

// LoggingConfig is the subset of logging options exposed through config.
type LoggingConfig struct {
	Level    string `koanf:"level" validate:"oneof=trace debug info warn error"`
	Format   string `koanf:"format" validate:"oneof=json console"`
	Sampling bool   `koanf:"sampling"`
}

// ChunkingConfig controls text segmentation.
type ChunkingConfig struct {
	Window       int `koanf:"window" validate:"gt=0"`
	Overlap      int `koanf:"overlap" validate:"gte=0,ltfield=Window"`
	SnapLookback int `koanf:"snap_lookback" validate:"gte=0,ltfield=Window"`
}

// RetrievalConfig controls top-k retrieval.
type RetrievalConfig struct {
	K int `koanf:"k" validate:"gt=0"`
}

// EmbeddingsConfig selects the embedding provider.
type EmbeddingsConfig struct {
	Provider  string `koanf:"provider" validate:"oneof=hashing openai tei fastembed gemini"`
	Model     string `koanf:"model"`
	BaseURL   string `koanf:"base_url"`
	APIKey    Secret `koanf:"api_key"`
	Dimension int    `koanf:"dimension" validate:"gt=0"`
	CacheDir  string `koanf:"cache_dir"`
}

// LLMConfig selects the chat model backend.
type LLMConfig struct {
	Provider          string        `koanf:"provider" validate:"oneof=openai anthropic gemini"`
	Model             string        `koanf:"model" validate:"required"`
	BaseURL           string        `koanf:"base_url"`
	APIKey            Secret        `koanf:"api_key"`
	Timeout           time.Duration `koanf:"timeout" validate:"gt=0"`
	Temperature       float64       `koanf:"temperature" validate:"gte=0,lte=2"`
	MaxTokens         int           `koanf:"max_tokens" validate:"gt=0"`
	RequestsPerMinute int           `koanf:"requests_per_minute" validate:"gte=0"`
}

// InsightConfig holds the tunable thresholds of the insight heuristics.
type InsightConfig struct {
	FastThreshold     time.Duration `koanf:"fast_threshold" validate:"gt=0"`
	SlowThreshold     time.Duration `koanf:"slow_threshold" validate:"gtefield=FastThreshold"`
	SimpleMaxWords    int           `koanf:"simple_max_words" validate:"gt=0"`
	MediumMaxWords    int           `koanf:"medium_max_words" validate:"gtfield=SimpleMaxWords"`
	DenseKeywordRatio float64       `koanf:"dense_keyword_ratio" validate:"gt=0,lte=1"`
	AnswerLengthCap   int           `koanf:"answer_length_cap" validate:"gt=0"`
	KeywordWeight     float64       `koanf:"keyword_weight" validate:"gte=0,lte=1"`
	NarrowRatio       float64       `koanf:"narrow_ratio" validate:"gt=0,lte=1"`
	BroadRatio        float64       `koanf:"broad_ratio" validate:"gtefield=NarrowRatio,lte=1"`
	MaxKeywords       int           `koanf:"max_keywords" validate:"gt=0"`
	Vocabulary        []string      `koanf:"vocabulary" validate:"min=1,dive,required"`
}

// StorageConfig controls the content-addressed document store.
type StorageConfig struct {
	Path     string `koanf:"path"`
	InMemory bool   `koanf:"in_memory"`
}

// EmailConfig holds SMTP delivery settings.
type EmailConfig struct {
	Enabled        bool          `koanf:"enabled"`
	SMTPHost       string        `koanf:"smtp_host"`
	SMTPPort       int           `koanf:"smtp_port" validate:"gte=1,lte=65535"`
	Username       string        `koanf:"username"`
	Password       Secret        `koanf:"password"`
	From           string        `koanf:"from" validate:"omitempty,email"`
	To             string        `koanf:"to" validate:"omitempty,email"`
	SupportAddress string        `koanf:"support_address" validate:"omitempty,email"`
	Timeout        time.Duration `koanf:"timeout" validate:"gt=0"`
}

// DefaultVocabulary is the built-in medical term list used by the insight
// generator when no vocabulary is configured.
var DefaultVocabulary = []string{
	"diagnosis", "treatment", "medication", "symptom", "condition",
	"disease", "therapy", "prescription", "allergy", "blood pressure",
	"heart rate", "temperature", "pain", "inflammation", "infection",
	"chronic", "acute", "patient", "doctor", "nurse", "hospital",
	"clinic", "medical", "health",
}

// Default returns a configuration populated with built-in defaults.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// applyDefaults fills zero-valued fields with defaults.
func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "127.0.0.1"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8085
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}
	if cfg.Server.MaxUploadBytes == 0 {
		cfg.Server.MaxUploadBytes = 32 << 20
	}
	if cfg.Server.SessionIdleTTL == 0 {
		cfg.Server.SessionIdleTTL = time.Hour
	}

	if cfg.Observability.ServiceName == "" {
		cfg.Observability.ServiceName = "medichat"
	}
	if cfg.Observability.Endpoint == "" {
		cfg.Observability.Endpoint = "localhost:4317"
	}
	if cfg.Observability.Protocol == "" {
		cfg.Observability.Protocol = "grpc"
	}
	if cfg.Observability.SampleRate == 0 {
		cfg.Observability.SampleRate = 1.0
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.Chunking.Window == 0 {
		cfg.Chunking.Window = 1000
		if cfg.Chunking.Overlap == 0 {
			cfg.Chunking.Overlap = 200
		}
		if cfg.Chunking.SnapLookback == 0 {
			cfg.Chunking.SnapLookback = 100
		}
	}

	if cfg.Retrieval.K == 0 {
		cfg.Retrieval.K = 4
	}

	if cfg.Embeddings.Provider == "" {
		cfg.Embeddings.Provider = "hashing"
	}
	if cfg.Embeddings.Dimension == 0 {
		cfg.Embeddings.Dimension = 384
	}
	if cfg.Embeddings.Model == "" {
		switch cfg.Embeddings.Provider {
		case "gemini":
			cfg.Embeddings.Model = "text-embedding-004"
		case "openai":
			cfg.Embeddings.Model = "text-embedding-3-small"
		default:
			cfg.Embeddings.Model = "BAAI/bge-small-en-v1.5"
		}
	}
	if cfg.Embeddings.BaseURL == "" && cfg.Embeddings.Provider == "tei" {
		cfg.Embeddings.BaseURL = "http://localhost:8080/v1"
	}

	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = "openai"
	}
	if cfg.LLM.Model == "" {
		switch cfg.LLM.Provider {
		case "anthropic":
			cfg.LLM.Model = "claude-sonnet-4-20250514"
		case "gemini":
			cfg.LLM.Model = "gemini-2.5-flash"
		default:
			cfg.LLM.Model = "openai/gpt-oss-20b"
		}
	}
	if cfg.LLM.Timeout == 0 {
		cfg.LLM.Timeout = 60 * time.Second
	}
	if cfg.LLM.Temperature == 0 {
		cfg.LLM.Temperature = 0.1
	}
	if cfg.LLM.MaxTokens == 0 {
		cfg.LLM.MaxTokens = 1024
	}
	if cfg.LLM.RequestsPerMinute == 0 {
		cfg.LLM.RequestsPerMinute = 60
	}

	if cfg.Insight.FastThreshold == 0 {
		cfg.Insight.FastThreshold = 2 * time.Second
	}
	if cfg.Insight.SlowThreshold == 0 {
		cfg.Insight.SlowThreshold = 6 * time.Second
	}
	if cfg.Insight.SimpleMaxWords == 0 {
		cfg.Insight.SimpleMaxWords = 5
	}
	if cfg.Insight.MediumMaxWords == 0 {
		cfg.Insight.MediumMaxWords = 10
	}
	if cfg.Insight.DenseKeywordRatio == 0 {
		cfg.Insight.DenseKeywordRatio = 0.3
	}
	if cfg.Insight.AnswerLengthCap == 0 {
		cfg.Insight.AnswerLengthCap = 500
	}
	if cfg.Insight.KeywordWeight == 0 {
		cfg.Insight.KeywordWeight = 0.6
	}
	if cfg.Insight.NarrowRatio == 0 {
		cfg.Insight.NarrowRatio = 0.1
	}
	if cfg.Insight.BroadRatio == 0 {
		cfg.Insight.BroadRatio = 0.5
	}
	if cfg.Insight.MaxKeywords == 0 {
		cfg.Insight.MaxKeywords = 10
	}
	if len(cfg.Insight.Vocabulary) == 0 {
		cfg.Insight.Vocabulary = append([]string(nil), DefaultVocabulary...)
	}

	if !cfg.Storage.InMemory && cfg.Storage.Path == "" {
		cfg.Storage.Path = defaultStoragePath()
	}

	if cfg.Email.SMTPHost == "" {
		cfg.Email.SMTPHost = "smtp.gmail.com"
	}
	if cfg.Email.SMTPPort == 0 {
		cfg.Email.SMTPPort = 587
	}
	if cfg.Email.Timeout == 0 {
		cfg.Email.Timeout = 30 * time.Second
	}
}

// defaultStoragePath returns ~/.local/share/medichat/objects, or a relative
// directory when the home directory cannot be resolved.
func defaultStoragePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join("data", "objects")
	}
	return filepath.Join(home, ".local", "share", "medichat", "objects")
}

var validate = validator.New()

// Validate checks the configuration once at startup. Struct-tag rules cover
// ranges and cross-field ordering; the remaining checks are provider
// specific.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid %s: failed %q rule (value %v)", fe.Namespace(), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if c.Observability.EnableTelemetry && c.Observability.ServiceName == "" {
		return errors.New("service name required when telemetry is enabled")
	}

	switch c.LLM.Provider {
	case "anthropic", "gemini":
		if !c.LLM.APIKey.IsSet() {
			return fmt.Errorf("llm.api_key required for provider %q", c.LLM.Provider)
		}
	}

	switch c.Embeddings.Provider {
	case "openai", "tei":
		if c.Embeddings.BaseURL == "" && c.Embeddings.Provider == "tei" {
			return errors.New("embeddings.base_url required for provider \"tei\"")
		}
	case "gemini":
		if !c.Embeddings.APIKey.IsSet() && !c.LLM.APIKey.IsSet() {
			return errors.New("embeddings.api_key required for provider \"gemini\"")
		}
	}

	if c.Email.Enabled {
		if c.Email.SMTPHost == "" {
			return errors.New("email.smtp_host required when email is enabled")
		}
		if c.Email.From == "" {
			return errors.New("email.from required when email is enabled")
		}
	}

	return nil
}
