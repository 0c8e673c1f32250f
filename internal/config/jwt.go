package config

import (
	"fmt"
	"time"
)

// minSecretLength is the shortest accepted HMAC signing secret.
const minSecretLength = 16

// JWTConfig is the validated configuration for API bearer tokens.
type JWTConfig struct {
	Secret          string
	ExpirationHours int
}

// JWTConfig returns the token configuration, or nil when JWT_SECRET is unset
// and the API runs without authentication.
func (c *Config) JWTConfig() (*JWTConfig, error) {
	if c.JWT.Secret == "" {
		return nil, nil
	}
	return NewJWTConfig(c.JWT.Secret, c.JWT.ExpirationHours)
}

// NewJWTConfig validates secret and lifetime.
func NewJWTConfig(secret string, expirationHours int) (*JWTConfig, error) {
	switch {
	case secret == "":
		return nil, fmt.Errorf("JWT_SECRET cannot be empty")
	case len(secret) < minSecretLength:
		return nil, fmt.Errorf("JWT_SECRET must be at least %d characters", minSecretLength)
	case expirationHours < 1:
		return nil, fmt.Errorf("JWT_EXPIRATION_HOURS must be at least 1 hour, got: %d", expirationHours)
	}
	return &JWTConfig{Secret: secret, ExpirationHours: expirationHours}, nil
}

// TTL is the lifetime of an issued token.
func (c *JWTConfig) TTL() time.Duration {
	return time.Duration(c.ExpirationHours) * time.Hour
}
