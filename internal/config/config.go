// Package config loads service and CLI configuration from defaults, an optional
// config file and the environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/jonathan/resume-analyzer/internal/llm"
	"github.com/jonathan/resume-analyzer/internal/report"
)

// Config is the full application configuration.
type Config struct {
	GeminiAPIKey   string `mapstructure:"gemini-api-key"`
	DatabaseURL    string `mapstructure:"database-url"`
	Port           int    `mapstructure:"port"`
	FrontendURL    string `mapstructure:"frontend-url"`
	UseBrowser     bool   `mapstructure:"use-browser"`
	MaxUploadBytes int64  `mapstructure:"max-upload-bytes"`

	LLM       LLMConfig       `mapstructure:"llm"`
	Stage     StageConfig     `mapstructure:"stage"`
	JWT       JWTSettings     `mapstructure:"jwt"`
	RateLimit RateLimitConfig `mapstructure:"rate-limit"`
	Log       LogConfig       `mapstructure:"log"`
	Fallback  FallbackConfig  `mapstructure:"fallback"`
}

// LLMConfig selects the provider and per-tier models.
type LLMConfig struct {
	Provider      string  `mapstructure:"provider"`
	ModelLite     string  `mapstructure:"model-lite"`
	ModelStandard string  `mapstructure:"model-standard"`
	ModelAdvanced string  `mapstructure:"model-advanced"`
	Temperature   float32 `mapstructure:"temperature"`
}

// StageConfig bounds each delegate call.
type StageConfig struct {
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries int           `mapstructure:"max-retries"`
}

// JWTSettings holds raw token settings. An empty secret disables authentication.
type JWTSettings struct {
	Secret          string `mapstructure:"secret"`
	ExpirationHours int    `mapstructure:"expiration-hours"`
}

// RateLimitConfig sets per-client request budgets.
type RateLimitConfig struct {
	Enabled          bool `mapstructure:"enabled"`
	AnalyzePerHour   int  `mapstructure:"analyze-per-hour"`
	AnalyzeBurst     int  `mapstructure:"analyze-burst"`
	DefaultPerMinute int  `mapstructure:"default-per-minute"`

	Whitelist string `mapstructure:"whitelist"` // comma-separated client IPs
	Blacklist string `mapstructure:"blacklist"`
}

// LogConfig controls the zap logger.
type LogConfig struct {
	JSON  bool `mapstructure:"json"`
	Debug bool `mapstructure:"debug"`
}

// FallbackConfig holds the scores reported when a stage yields none.
type FallbackConfig struct {
	QualityScore float64 `mapstructure:"quality-score"`
	MatchScore   float64 `mapstructure:"match-score"`
}

// envBindings maps config keys to their environment variables.
var envBindings = map[string]string{
	"gemini-api-key":                "GEMINI_API_KEY",
	"database-url":                  "DATABASE_URL",
	"port":                          "PORT",
	"frontend-url":                  "FRONTEND_URL",
	"use-browser":                   "USE_BROWSER",
	"max-upload-bytes":              "MAX_UPLOAD_BYTES",
	"llm.provider":                  "LLM_PROVIDER",
	"llm.model-lite":                "LLM_MODEL_LITE",
	"llm.model-standard":            "LLM_MODEL_STANDARD",
	"llm.model-advanced":            "LLM_MODEL_ADVANCED",
	"llm.temperature":               "LLM_TEMPERATURE",
	"stage.timeout":                 "STAGE_TIMEOUT",
	"stage.max-retries":             "STAGE_MAX_RETRIES",
	"jwt.secret":                    "JWT_SECRET",
	"jwt.expiration-hours":          "JWT_EXPIRATION_HOURS",
	"rate-limit.enabled":            "RATE_LIMIT_ENABLED",
	"rate-limit.analyze-per-hour":   "RATE_LIMIT_ANALYZE_PER_HOUR",
	"rate-limit.analyze-burst":      "RATE_LIMIT_ANALYZE_BURST",
	"rate-limit.default-per-minute": "RATE_LIMIT_DEFAULT_PER_MINUTE",
	"rate-limit.whitelist":          "RATE_LIMIT_WHITELIST",
	"rate-limit.blacklist":          "RATE_LIMIT_BLACKLIST",
	"log.json":                      "LOG_JSON",
	"log.debug":                     "LOG_DEBUG",
	"fallback.quality-score":        "FALLBACK_QUALITY_SCORE",
	"fallback.match-score":          "FALLBACK_MATCH_SCORE",
}

func setDefaults(v *viper.Viper) {
	defaults := llm.DefaultConfig()
	fb := report.DefaultFallbacks()

	v.SetDefault("port", 8000)
	v.SetDefault("use-browser", false)
	v.SetDefault("max-upload-bytes", 10<<20)

	v.SetDefault("llm.provider", string(defaults.Provider))
	v.SetDefault("llm.model-lite", defaults.Models[llm.TierLite])
	v.SetDefault("llm.model-standard", defaults.Models[llm.TierStandard])
	v.SetDefault("llm.model-advanced", defaults.Models[llm.TierAdvanced])
	v.SetDefault("llm.temperature", defaults.Temperature)

	v.SetDefault("stage.timeout", 90*time.Second)
	v.SetDefault("stage.max-retries", llm.DefaultRetryConfig.MaxRetries)

	v.SetDefault("jwt.expiration-hours", 24)

	v.SetDefault("rate-limit.enabled", true)
	v.SetDefault("rate-limit.analyze-per-hour", 10)
	v.SetDefault("rate-limit.analyze-burst", 2)
	v.SetDefault("rate-limit.default-per-minute", 1000)

	v.SetDefault("fallback.quality-score", fb.QualityScore)
	v.SetDefault("fallback.match-score", fb.MatchScore)
}

// Load builds the configuration. path names an optional YAML, JSON or TOML file.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.FrontendURL = strings.TrimRight(strings.TrimSpace(cfg.FrontendURL), "/")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that the configuration has valid values.
// The API key is checked by the commands that call a model.
func (c *Config) Validate() error {
	var errs []error

	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port must be between 1 and 65535, got %d", c.Port))
	}
	if c.MaxUploadBytes < 1 {
		errs = append(errs, fmt.Errorf("max-upload-bytes must be positive"))
	}
	if _, err := llm.ParseProvider(c.LLM.Provider); err != nil {
		errs = append(errs, err)
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		errs = append(errs, fmt.Errorf("llm temperature must be between 0 and 2, got %v", c.LLM.Temperature))
	}
	if c.Stage.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("stage timeout must be positive"))
	}
	if c.Stage.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("stage max-retries must be non-negative"))
	}
	if c.RateLimit.Enabled && (c.RateLimit.AnalyzePerHour < 1 || c.RateLimit.AnalyzeBurst < 1 || c.RateLimit.DefaultPerMinute < 1) {
		errs = append(errs, fmt.Errorf("rate limits must be positive when enabled"))
	}
	for name, score := range map[string]float64{"quality": c.Fallback.QualityScore, "match": c.Fallback.MatchScore} {
		if score < 0 || score > 100 {
			errs = append(errs, fmt.Errorf("fallback %s score must be between 0 and 100, got %v", name, score))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config error: %w", errors.Join(errs...))
	}
	return nil
}

// LLMClientConfig converts the settings to an llm.Config.
func (c *Config) LLMClientConfig() *llm.Config {
	provider, err := llm.ParseProvider(c.LLM.Provider)
	if err != nil {
		provider = llm.ProviderGemini
	}
	cfg := llm.DefaultConfig().
		WithModel(llm.TierLite, c.LLM.ModelLite).
		WithModel(llm.TierStandard, c.LLM.ModelStandard).
		WithModel(llm.TierAdvanced, c.LLM.ModelAdvanced)
	cfg.Provider = provider
	cfg.Temperature = c.LLM.Temperature
	return cfg
}

// RetryConfig returns the retry policy for delegate calls.
func (c *Config) RetryConfig() llm.RetryConfig {
	rc := llm.DefaultRetryConfig
	rc.MaxRetries = c.Stage.MaxRetries
	return rc
}

// Fallbacks returns the report fallbacks with the configured scores.
func (c *Config) Fallbacks() report.Fallbacks {
	fb := report.DefaultFallbacks()
	fb.QualityScore = c.Fallback.QualityScore
	fb.MatchScore = c.Fallback.MatchScore
	return fb
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
