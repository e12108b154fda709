package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 1000, cfg.Chunking.Window)
	assert.Equal(t, 200, cfg.Chunking.Overlap)
	assert.Equal(t, 4, cfg.Retrieval.K)
	assert.Equal(t, "hashing", cfg.Embeddings.Provider)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, 2*time.Second, cfg.Insight.FastThreshold)
	assert.Equal(t, 6*time.Second, cfg.Insight.SlowThreshold)
	assert.Equal(t, DefaultVocabulary, cfg.Insight.Vocabulary)
	assert.NotEmpty(t, cfg.Storage.Path)
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"overlap equals window", func(c *Config) { c.Chunking.Overlap = c.Chunking.Window }},
		{"negative overlap", func(c *Config) { c.Chunking.Overlap = -1 }},
		{"zero k", func(c *Config) { c.Retrieval.K = 0 }},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }},
		{"unknown llm provider", func(c *Config) { c.LLM.Provider = "mystery" }},
		{"unknown embeddings provider", func(c *Config) { c.Embeddings.Provider = "mystery" }},
		{"slow below fast", func(c *Config) { c.Insight.SlowThreshold = time.Second }},
		{"medium below simple", func(c *Config) { c.Insight.MediumMaxWords = 2 }},
		{"keyword weight above one", func(c *Config) { c.Insight.KeywordWeight = 1.5 }},
		{"broad below narrow", func(c *Config) { c.Insight.BroadRatio = 0.05 }},
		{"empty vocabulary term", func(c *Config) { c.Insight.Vocabulary = []string{"pain", ""} }},
		{"anthropic without key", func(c *Config) { c.LLM.Provider = "anthropic" }},
		{"email enabled without sender", func(c *Config) { c.Email.Enabled = true }},
		{"malformed sender", func(c *Config) { c.Email.From = "not-an-address" }},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoad_YAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "medichat.yaml")
	content := `server:
  http_port: 9191
chunking:
  window: 500
  overlap: 50
  snap_lookback: 40
llm:
  provider: anthropic
  api_key: sk-ant-test
  timeout: 15s
insight:
  vocabulary: [fever, cough]
storage:
  in_memory: true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9191, cfg.Server.Port)
	assert.Equal(t, 500, cfg.Chunking.Window)
	assert.Equal(t, 50, cfg.Chunking.Overlap)
	assert.Equal(t, 40, cfg.Chunking.SnapLookback)
	assert.Equal(t, "anthropic", cfg.LLM.Provider)
	assert.Equal(t, "sk-ant-test", cfg.LLM.APIKey.Value())
	assert.Equal(t, 15*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, []string{"fever", "cough"}, cfg.Insight.Vocabulary)
	assert.True(t, cfg.Storage.InMemory)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 8085, cfg.Server.Port)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "medichat.yaml")
	require.NoError(t, os.WriteFile(path, []byte("retrieval:\n  k: 3\n"), 0o600))

	t.Setenv("MEDICHAT_RETRIEVAL_K", "6")
	t.Setenv("MEDICHAT_LLM_MODEL", "gpt-4o-mini")
	t.Setenv("MEDICHAT_EMAIL_SMTP_PORT", "2525")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 6, cfg.Retrieval.K)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
	assert.Equal(t, 2525, cfg.Email.SMTPPort)
}

func TestLoad_LegacyEnv(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-legacy")
	t.Setenv("OPENAI_API_BASE", "https://router.example.com/v1")
	t.Setenv("EMAIL_SENDER", "bot@example.com")
	t.Setenv("EMAIL_RECEIVER", "team@example.com")
	t.Setenv("EMAIL_SMTP_PORT", "465")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "sk-legacy", cfg.LLM.APIKey.Value())
	assert.Equal(t, "https://router.example.com/v1", cfg.LLM.BaseURL)
	assert.Equal(t, "bot@example.com", cfg.Email.From)
	assert.Equal(t, "bot@example.com", cfg.Email.Username)
	assert.Equal(t, "team@example.com", cfg.Email.To)
	assert.Equal(t, 465, cfg.Email.SMTPPort)
}

func TestLoad_InvalidValuesFail(t *testing.T) {
	t.Setenv("MEDICHAT_CHUNKING_WINDOW", "100")
	t.Setenv("MEDICHAT_CHUNKING_OVERLAP", "100")

	_, err := Load("")
	assert.Error(t, err)
}

func TestLoad_RejectsWorldWritable(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission bits not enforced on windows")
	}
	path := filepath.Join(t.TempDir(), "medichat.yaml")
	require.NoError(t, os.WriteFile(path, []byte("retrieval:\n  k: 3\n"), 0o600))
	require.NoError(t, os.Chmod(path, 0o666))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "llm.api_key", envKey("MEDICHAT_LLM_API_KEY"))
	assert.Equal(t, "server.http_port", envKey("MEDICHAT_SERVER_HTTP_PORT"))
	assert.Equal(t, "debug", envKey("MEDICHAT_DEBUG"))
}

func TestSecret_Redaction(t *testing.T) {
	s := Secret("hunter2")

	assert.Equal(t, "[REDACTED]", s.String())
	assert.Equal(t, "[REDACTED]", fmt.Sprintf("%v", s))
	assert.NotContains(t, fmt.Sprintf("%#v", s), "hunter2")
	assert.Equal(t, "hunter2", s.Value())

	data, err := json.Marshal(struct {
		Key Secret `json:"key"`
	}{Key: s})
	require.NoError(t, err)
	assert.JSONEq(t, `{"key":"[REDACTED]"}`, string(data))

	assert.Equal(t, "", Secret("").String())
	assert.False(t, Secret("").IsSet())
}

func TestDuration_UnmarshalText(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte("1m30s")))
	assert.Equal(t, 90*time.Second, d.Duration())

	assert.Error(t, d.UnmarshalText([]byte("-5s")))
	assert.Error(t, d.UnmarshalText([]byte("soon")))
}
