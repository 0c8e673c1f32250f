package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/resume-analyzer/internal/llm"
)

// clearEnv isolates a test from the developer's environment.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, env := range envBindings {
		t.Setenv(env, "")
		require.NoError(t, os.Unsetenv(env))
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.Port)
	assert.Equal(t, ":8000", cfg.Addr())
	assert.Equal(t, int64(10<<20), cfg.MaxUploadBytes)
	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.InDelta(t, 0.1, cfg.LLM.Temperature, 1e-6)
	assert.Equal(t, 90*time.Second, cfg.Stage.Timeout)
	assert.Equal(t, 2, cfg.Stage.MaxRetries)
	assert.Equal(t, 24, cfg.JWT.ExpirationHours)
	assert.True(t, cfg.RateLimit.Enabled)
	assert.Equal(t, 10, cfg.RateLimit.AnalyzePerHour)
	assert.Equal(t, 2, cfg.RateLimit.AnalyzeBurst)
	assert.Equal(t, 1000, cfg.RateLimit.DefaultPerMinute)
	assert.Equal(t, 75.0, cfg.Fallback.QualityScore)
	assert.Equal(t, 70.0, cfg.Fallback.MatchScore)
	assert.False(t, cfg.Log.JSON)
	assert.Empty(t, cfg.GeminiAPIKey)
}

func TestLoad_Environment(t *testing.T) {
	clearEnv(t)
	t.Setenv("GEMINI_API_KEY", "key-123")
	t.Setenv("PORT", "9090")
	t.Setenv("LLM_PROVIDER", "genai")
	t.Setenv("LLM_MODEL_ADVANCED", "gemini-custom")
	t.Setenv("STAGE_TIMEOUT", "45s")
	t.Setenv("FRONTEND_URL", "https://app.example.com/")
	t.Setenv("RATE_LIMIT_ENABLED", "false")
	t.Setenv("LOG_JSON", "true")
	t.Setenv("FALLBACK_MATCH_SCORE", "60")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "key-123", cfg.GeminiAPIKey)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "genai", cfg.LLM.Provider)
	assert.Equal(t, "gemini-custom", cfg.LLM.ModelAdvanced)
	assert.Equal(t, 45*time.Second, cfg.Stage.Timeout)
	assert.Equal(t, "https://app.example.com", cfg.FrontendURL)
	assert.False(t, cfg.RateLimit.Enabled)
	assert.True(t, cfg.Log.JSON)
	assert.Equal(t, 60.0, cfg.Fallback.MatchScore)
}

func TestLoad_ConfigFile(t *testing.T) {
	clearEnv(t)
	content := `
port: 7000
database-url: postgres://localhost/analyzer
llm:
  model-lite: lite-model
stage:
  max-retries: 0
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.Port)
	assert.Equal(t, "postgres://localhost/analyzer", cfg.DatabaseURL)
	assert.Equal(t, "lite-model", cfg.LLM.ModelLite)
	assert.Equal(t, 0, cfg.Stage.MaxRetries)
	assert.Equal(t, "gemini-2.5-pro", cfg.LLM.ModelAdvanced)
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: 7000\n"), 0644))
	t.Setenv("PORT", "7100")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7100, cfg.Port)
}

func TestLoad_FileNotFound(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoad_InvalidValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("LLM_PROVIDER", "openai")
	t.Setenv("FALLBACK_QUALITY_SCORE", "150")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown LLM provider")
	assert.Contains(t, err.Error(), "fallback quality score")
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Port:           8000,
			MaxUploadBytes: 1,
			LLM:            LLMConfig{Provider: "gemini", Temperature: 0.1},
			Stage:          StageConfig{Timeout: time.Second},
			RateLimit:      RateLimitConfig{Enabled: true, AnalyzePerHour: 1, AnalyzeBurst: 1, DefaultPerMinute: 1},
			Fallback:       FallbackConfig{QualityScore: 75, MatchScore: 70},
		}
	}
	require.NoError(t, base().Validate())

	tests := []struct {
		name   string
		mutate func(c *Config)
		want   string
	}{
		{"bad port", func(c *Config) { c.Port = 0 }, "port must be"},
		{"no upload budget", func(c *Config) { c.MaxUploadBytes = 0 }, "max-upload-bytes"},
		{"hot temperature", func(c *Config) { c.LLM.Temperature = 3 }, "temperature"},
		{"zero timeout", func(c *Config) { c.Stage.Timeout = 0 }, "stage timeout"},
		{"negative retries", func(c *Config) { c.Stage.MaxRetries = -1 }, "max-retries"},
		{"zero rate", func(c *Config) { c.RateLimit.AnalyzeBurst = 0 }, "rate limits"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(c)
			err := c.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	c := base()
	c.RateLimit = RateLimitConfig{}
	assert.NoError(t, c.Validate(), "limits are not checked when disabled")
}

func TestConfig_Conversions(t *testing.T) {
	c := &Config{
		LLM:      LLMConfig{Provider: "genai", ModelLite: "a", ModelStandard: "b", ModelAdvanced: "", Temperature: 0.3},
		Stage:    StageConfig{MaxRetries: 4},
		Fallback: FallbackConfig{QualityScore: 50, MatchScore: 40},
	}

	lc := c.LLMClientConfig()
	assert.Equal(t, llm.ProviderGenAI, lc.Provider)
	assert.Equal(t, "a", lc.GetModel(llm.TierLite))
	assert.Equal(t, "b", lc.GetModel(llm.TierAdvanced), "empty tier falls back to standard")
	assert.InDelta(t, 0.3, lc.Temperature, 1e-6)

	assert.Equal(t, 4, c.RetryConfig().MaxRetries)
	assert.Equal(t, llm.DefaultRetryConfig.InitialWait, c.RetryConfig().InitialWait)

	fb := c.Fallbacks()
	assert.Equal(t, 50.0, fb.QualityScore)
	assert.Equal(t, 40.0, fb.MatchScore)
	assert.Equal(t, "No keywords extracted", fb.MatchedKeywords)
}
