package main

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jonathan/resume-analyzer/internal/config"
)

func TestServerConfig(t *testing.T) {
	cfg := &config.Config{
		Port:           8000,
		FrontendURL:    "https://analyzer.example.com",
		MaxUploadBytes: 1 << 20,
		RateLimit: config.RateLimitConfig{
			Enabled:          true,
			AnalyzePerHour:   10,
			AnalyzeBurst:     2,
			DefaultPerMinute: 1000,
			Whitelist:        "10.0.0.1",
		},
	}

	srvConfig, err := serverConfig(cfg, zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, 8000, srvConfig.Port)
	assert.Equal(t, "https://analyzer.example.com", srvConfig.FrontendURL)
	assert.Nil(t, srvConfig.JWT)
	require.NotNil(t, srvConfig.RateLimit)
	assert.True(t, srvConfig.RateLimit.Enabled)
	assert.True(t, srvConfig.RateLimit.Whitelist["10.0.0.1"])
	require.Len(t, srvConfig.RateLimit.EndpointConfigs, 4)
	assert.Equal(t, http.MethodPost, srvConfig.RateLimit.EndpointConfigs[0].Method)
	assert.Equal(t, time.Hour, srvConfig.RateLimit.EndpointConfigs[0].Window)
}

func TestServerConfig_InvalidJWT(t *testing.T) {
	cfg := &config.Config{JWT: config.JWTSettings{Secret: "short", ExpirationHours: 1}}

	_, err := serverConfig(cfg, zap.NewNop())
	assert.Error(t, err)
}

func TestAttemptTimeout(t *testing.T) {
	cfg := &config.Config{Stage: config.StageConfig{Timeout: 90 * time.Second, MaxRetries: 2}}
	assert.Equal(t, 30*time.Second, attemptTimeout(cfg))
}
