package ratelimit

import (
	"net/http"
	"strings"
	"time"
)

// EndpointConfig represents rate limiting configuration for a specific endpoint.
type EndpointConfig struct {
	Path   string        // Endpoint path pattern (a trailing "/" matches by prefix)
	Method string        // HTTP method (GET, POST, etc.)
	Limit  int           // Maximum requests per window
	Window time.Duration // Time window
	Burst  int           // Burst capacity (defaults to Limit if 0)
}

// Settings are the tunable budgets exposed through application config.
type Settings struct {
	Enabled          bool
	AnalyzePerHour   int
	AnalyzeBurst     int
	DefaultPerMinute int
	Whitelist        string // comma-separated client IPs
	Blacklist        string
}

// NewConfig builds a limiter configuration from settings.
func NewConfig(s Settings) *Config {
	if !s.Enabled {
		return &Config{Enabled: false}
	}
	return &Config{
		Enabled:         true,
		DefaultLimit:    s.DefaultPerMinute,
		DefaultWindow:   time.Minute,
		CleanupInterval: 5 * time.Minute,
		Whitelist:       parseIPList(s.Whitelist),
		Blacklist:       parseIPList(s.Blacklist),
		EndpointConfigs: AnalyzeEndpointConfigs(s.AnalyzePerHour, s.AnalyzeBurst),
	}
}

// AnalyzeEndpointConfigs returns the limits for the endpoints that call the model.
func AnalyzeEndpointConfigs(perHour, burst int) []EndpointConfig {
	return []EndpointConfig{
		{Path: "/api/analyze", Method: http.MethodPost, Limit: perHour, Window: time.Hour, Burst: burst},
		{Path: "/api/analyze/sync", Method: http.MethodPost, Limit: perHour, Window: time.Hour, Burst: burst},
		{Path: "/api/analyze/stream", Method: http.MethodPost, Limit: perHour, Window: time.Hour, Burst: burst},
		{Path: "/api/analyses", Method: http.MethodPost, Limit: perHour, Window: time.Hour, Burst: burst},
	}
}

// parseIPList parses a comma-separated list of IP addresses into a map.
func parseIPList(list string) map[string]bool {
	result := make(map[string]bool)
	for _, ip := range strings.Split(list, ",") {
		if ip = strings.TrimSpace(ip); ip != "" {
			result[ip] = true
		}
	}
	return result
}
