package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	maxConfigFileSize = 1024 * 1024 // 1MB

	// EnvPrefix is stripped from environment variables before mapping them
	// onto configuration keys.
	EnvPrefix = "MEDICHAT_"
)

// Load reads configuration with the following precedence (highest first):
//
//  1. Environment variables (MEDICHAT_LLM_MODEL, MEDICHAT_SERVER_HTTP_PORT, ...)
//  2. YAML config file at configPath (skipped when empty or missing)
//  3. Built-in defaults
//
// A .env file in the working directory is loaded into the process
// environment first; variables already set are not overridden.
//
// Environment variables map onto keys by splitting on the first underscore
// after the prefix:
//
//	MEDICHAT_LLM_API_KEY      -> llm.api_key
//	MEDICHAT_CHUNKING_WINDOW  -> chunking.window
//
// The unprefixed variables used by earlier deployments (OPENAI_API_KEY,
// LLM_MODEL, EMAIL_SENDER, ...) fill fields that are still unset.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	k := koanf.New(".")

	if configPath != "" {
		content, err := readConfigFile(configPath)
		if err != nil {
			return nil, err
		}
		if content != nil {
			if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
			}
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyLegacyEnv(&cfg)
	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// envKey maps MEDICHAT_SECTION_FIELD_NAME to section.field_name.
func envKey(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	section, field, ok := strings.Cut(lower, "_")
	if !ok {
		return lower
	}
	return section + "." + field
}

// readConfigFile returns nil content when the file does not exist.
func readConfigFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	// Validate through the open descriptor to avoid a stat/open race.
	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if err := validateConfigFileProperties(info); err != nil {
		return nil, fmt.Errorf("config file validation failed: %w", err)
	}

	content, err := io.ReadAll(io.LimitReader(f, maxConfigFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return content, nil
}

// validateConfigFileProperties rejects oversized and world-writable files.
func validateConfigFileProperties(info os.FileInfo) error {
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", info.Name())
	}
	if runtime.GOOS != "windows" && info.Mode().Perm()&0o002 != 0 {
		return fmt.Errorf("insecure config file permissions: %v (world-writable)", info.Mode().Perm())
	}
	if info.Size() > maxConfigFileSize {
		return fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
	}
	return nil
}

// applyLegacyEnv fills unset fields from unprefixed variables.
func applyLegacyEnv(cfg *Config) {
	setString := func(dst *string, key string) {
		if *dst == "" {
			*dst = os.Getenv(key)
		}
	}
	setSecret := func(dst *Secret, key string) {
		if !dst.IsSet() {
			*dst = Secret(os.Getenv(key))
		}
	}

	setString(&cfg.LLM.BaseURL, "OPENAI_API_BASE")
	setString(&cfg.LLM.Model, "LLM_MODEL")
	switch cfg.LLM.Provider {
	case "anthropic":
		setSecret(&cfg.LLM.APIKey, "ANTHROPIC_API_KEY")
	case "gemini":
		setSecret(&cfg.LLM.APIKey, "GEMINI_API_KEY")
	default:
		setSecret(&cfg.LLM.APIKey, "OPENAI_API_KEY")
	}

	setString(&cfg.Embeddings.BaseURL, "OPENAI_EMBEDDING_BASE")
	setString(&cfg.Embeddings.Model, "EMBEDDING_MODEL")
	if cfg.Embeddings.Provider == "openai" || cfg.Embeddings.Provider == "tei" {
		setSecret(&cfg.Embeddings.APIKey, "OPENAI_API_KEY")
	}

	setString(&cfg.Email.SMTPHost, "EMAIL_SMTP_SERVER")
	if cfg.Email.SMTPPort == 0 {
		if port, err := strconv.Atoi(os.Getenv("EMAIL_SMTP_PORT")); err == nil {
			cfg.Email.SMTPPort = port
		}
	}
	setString(&cfg.Email.From, "EMAIL_SENDER")
	setString(&cfg.Email.To, "EMAIL_RECEIVER")
	setSecret(&cfg.Email.Password, "EMAIL_PASSWORD")
	if cfg.Email.Username == "" {
		cfg.Email.Username = cfg.Email.From
	}
}
