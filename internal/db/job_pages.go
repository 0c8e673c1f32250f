package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// GetJobPageByURL retrieves a cached page by URL. Returns nil, nil when not cached.
func (db *DB) GetJobPageByURL(ctx context.Context, pageURL string) (*JobPage, error) {
	p := &JobPage{}
	var rawHTML, contentHash *string
	var httpStatus *int

	err := db.pool.QueryRow(ctx,
		`SELECT id, url, raw_html, content_hash, http_status, fetch_status, error_message,
		        is_permanent_failure, retry_count, retry_after, fetched_at
		 FROM job_pages WHERE url = $1`,
		pageURL,
	).Scan(&p.ID, &p.URL, &rawHTML, &contentHash, &httpStatus, &p.FetchStatus, &p.ErrorMessage,
		&p.IsPermanentFailure, &p.RetryCount, &p.RetryAfter, &p.FetchedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get job page: %w", err)
	}

	p.RawHTML = deref(rawHTML)
	p.ContentHash = deref(contentHash)
	if httpStatus != nil {
		p.HTTPStatus = *httpStatus
	}
	return p, nil
}

// GetFreshJobPage returns a successfully fetched page younger than maxAge, or nil.
func (db *DB) GetFreshJobPage(ctx context.Context, pageURL string, maxAge time.Duration) (*JobPage, error) {
	page, err := db.GetJobPageByURL(ctx, pageURL)
	if err != nil || page == nil {
		return nil, err
	}
	if page.FetchStatus != FetchStatusSuccess || !page.IsFresh(maxAge) {
		return nil, nil
	}

	_, _ = db.pool.Exec(ctx, `UPDATE job_pages SET last_accessed_at = NOW() WHERE id = $1`, page.ID)
	return page, nil
}

// ShouldSkipURL checks if a URL should be skipped due to previous permanent failure or backoff
func (db *DB) ShouldSkipURL(ctx context.Context, pageURL string) (bool, string, error) {
	page, err := db.GetJobPageByURL(ctx, pageURL)
	if err != nil {
		return false, "", err
	}
	if page == nil {
		return false, "", nil
	}

	if page.IsPermanentFailure {
		reason := "permanent failure"
		if page.ErrorMessage != nil {
			reason = *page.ErrorMessage
		}
		return true, reason, nil
	}

	if page.RetryAfter != nil && time.Now().Before(*page.RetryAfter) {
		return true, "retry backoff", nil
	}

	return false, "", nil
}

// UpsertJobPage stores a successfully fetched page.
func (db *DB) UpsertJobPage(ctx context.Context, page *JobPage) error {
	page.ContentHash = HashContent(page.RawHTML)
	if page.FetchStatus == "" {
		page.FetchStatus = FetchStatusSuccess
	}

	err := db.pool.QueryRow(ctx,
		`INSERT INTO job_pages (url, raw_html, content_hash, http_status, fetch_status, fetched_at)
		 VALUES ($1, $2, $3, $4, $5, NOW())
		 ON CONFLICT (url) DO UPDATE SET
		     raw_html = $2,
		     content_hash = $3,
		     http_status = $4,
		     fetch_status = $5,
		     error_message = NULL,
		     is_permanent_failure = FALSE,
		     retry_count = 0,
		     retry_after = NULL,
		     fetched_at = NOW(),
		     updated_at = NOW()
		 RETURNING id, fetched_at`,
		page.URL, page.RawHTML, page.ContentHash, page.HTTPStatus, page.FetchStatus,
	).Scan(&page.ID, &page.FetchedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert job page: %w", err)
	}
	return nil
}

// RecordFailedFetch records a failed fetch. Transient failures back off
// 1 min * 5^retry_count, capped at 2 hours; permanent failures are never retried.
func (db *DB) RecordFailedFetch(ctx context.Context, pageURL string, httpStatus int, errorMsg string) error {
	fetchStatus := FetchStatusFromHTTP(httpStatus)
	if httpStatus == 0 {
		fetchStatus = FetchStatusError
	}
	isPermanent := IsPermanentHTTPStatus(httpStatus)

	_, err := db.pool.Exec(ctx,
		`INSERT INTO job_pages (url, http_status, fetch_status, error_message, is_permanent_failure, retry_count, retry_after, fetched_at)
		 VALUES ($1, $2, $3, $4, $5, 1,
		         CASE WHEN $5 THEN NULL ELSE NOW() + INTERVAL '1 minute' END,
		         NOW())
		 ON CONFLICT (url) DO UPDATE SET
		     http_status = $2,
		     fetch_status = $3,
		     error_message = $4,
		     is_permanent_failure = $5 OR job_pages.is_permanent_failure,
		     retry_count = job_pages.retry_count + 1,
		     retry_after = CASE
		         WHEN $5 OR job_pages.is_permanent_failure THEN NULL
		         ELSE NOW() + LEAST(
		             INTERVAL '1 minute' * POWER(5, LEAST(job_pages.retry_count, 3)),
		             INTERVAL '2 hours'
		         )
		     END,
		     fetched_at = NOW(),
		     updated_at = NOW()`,
		pageURL, httpStatus, fetchStatus, errorMsg, isPermanent,
	)
	if err != nil {
		return fmt.Errorf("failed to record failed fetch: %w", err)
	}
	return nil
}

// InvalidateJobPage forces the next fetch of pageURL to bypass the cache.
func (db *DB) InvalidateJobPage(ctx context.Context, pageURL string) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE job_pages SET fetched_at = NOW() - INTERVAL '365 days', updated_at = NOW() WHERE url = $1`,
		pageURL,
	)
	if err != nil {
		return fmt.Errorf("failed to invalidate job page: %w", err)
	}
	return nil
}
