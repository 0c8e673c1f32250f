package ingestion

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Metadata describes where a job description came from.
type Metadata struct {
	URL         string `json:"url,omitempty"`
	Timestamp   string `json:"timestamp"` // RFC3339
	Hash        string `json:"hash"`      // SHA256 hex digest of the cleaned text
	Platform    string `json:"platform,omitempty"`
	Title       string `json:"title,omitempty"`
	FromCache   bool   `json:"from_cache,omitempty"`
	UsedBrowser bool   `json:"used_browser,omitempty"`
}

// NewMetadata creates a new Metadata instance with current timestamp
func NewMetadata(content string, url string) *Metadata {
	return &Metadata{
		URL:       url,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Hash:      ComputeHash(content),
	}
}

// ComputeHash returns the SHA256 hex digest of content.
func ComputeHash(content string) string {
	hash := sha256.Sum256([]byte(content))
	return hex.EncodeToString(hash[:])
}
