package db

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

// Fetch status values
const (
	FetchStatusSuccess  = "success"
	FetchStatusNotFound = "not_found"
	FetchStatusBlocked  = "blocked"
	FetchStatusError    = "error"
)

// DefaultPageCacheTTL is the default time-to-live for cached job pages (7 days)
const DefaultPageCacheTTL = 7 * 24 * time.Hour

// JobPage is a cached job posting page.
type JobPage struct {
	ID                 uuid.UUID
	URL                string
	RawHTML            string
	ContentHash        string
	HTTPStatus         int
	FetchStatus        string
	ErrorMessage       *string
	IsPermanentFailure bool
	RetryCount         int
	RetryAfter         *time.Time
	FetchedAt          time.Time
}

// IsFresh returns true if the page was fetched within maxAge
func (p *JobPage) IsFresh(maxAge time.Duration) bool {
	return time.Since(p.FetchedAt) < maxAge
}

// IsPermanentHTTPStatus returns true for status codes that indicate permanent failure
func IsPermanentHTTPStatus(status int) bool {
	switch status {
	case 404, 410, 451:
		return true
	default:
		return false
	}
}

// FetchStatusFromHTTP determines fetch status from HTTP status code
func FetchStatusFromHTTP(status int) string {
	switch {
	case status >= 200 && status < 300:
		return FetchStatusSuccess
	case status == 404 || status == 410:
		return FetchStatusNotFound
	case status == 403 || status == 429:
		return FetchStatusBlocked
	default:
		return FetchStatusError
	}
}

// HashContent computes SHA-256 hash of content for change detection
func HashContent(content string) string {
	hash := sha256.Sum256([]byte(content))
	return hex.EncodeToString(hash[:])
}
