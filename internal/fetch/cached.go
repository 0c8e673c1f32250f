package fetch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/resume-analyzer/internal/db"
)

// PageStore persists fetched job pages. *db.DB implements it.
type PageStore interface {
	ShouldSkipURL(ctx context.Context, pageURL string) (bool, string, error)
	GetFreshJobPage(ctx context.Context, pageURL string, maxAge time.Duration) (*db.JobPage, error)
	UpsertJobPage(ctx context.Context, page *db.JobPage) error
	RecordFailedFetch(ctx context.Context, pageURL string, httpStatus int, errorMsg string) error
	InvalidateJobPage(ctx context.Context, pageURL string) error
}

// CachedFetcher wraps URL fetching with database-backed caching.
type CachedFetcher struct {
	store     PageStore
	options   *Options
	cacheTTL  time.Duration
	skipCache bool
	logger    *zap.Logger
}

// CachedFetcherConfig holds configuration for the cached fetcher.
type CachedFetcherConfig struct {
	CacheTTL  time.Duration
	SkipCache bool
	Options   *Options
	Logger    *zap.Logger
}

// DefaultCachedFetcherConfig returns sensible defaults.
func DefaultCachedFetcherConfig() *CachedFetcherConfig {
	return &CachedFetcherConfig{
		CacheTTL: db.DefaultPageCacheTTL,
		Options:  DefaultOptions(),
	}
}

// NewCachedFetcher creates a new cached fetcher. A nil store disables caching.
func NewCachedFetcher(store PageStore, config *CachedFetcherConfig) *CachedFetcher {
	if config == nil {
		config = DefaultCachedFetcherConfig()
	}
	f := &CachedFetcher{
		store:     store,
		options:   config.Options,
		cacheTTL:  config.CacheTTL,
		skipCache: config.SkipCache,
		logger:    config.Logger,
	}
	if f.options == nil {
		f.options = DefaultOptions()
	}
	if f.cacheTTL == 0 {
		f.cacheTTL = db.DefaultPageCacheTTL
	}
	if f.logger == nil {
		f.logger = zap.NewNop()
	}
	return f
}

// CachedResult extends Result with cache metadata.
type CachedResult struct {
	*Result
	FromCache bool
	PageID    uuid.UUID
}

// Fetch retrieves a URL, using the cache if a fresh copy exists.
// Failures are recorded so that permanently broken URLs are skipped next time.
func (f *CachedFetcher) Fetch(ctx context.Context, urlStr string) (*CachedResult, error) {
	log := f.logger.With(zap.String("url", urlStr))
	useCache := f.store != nil && !f.skipCache

	if useCache {
		skip, reason, err := f.store.ShouldSkipURL(ctx, urlStr)
		if err != nil {
			return nil, fmt.Errorf("failed to check skip status: %w", err)
		}
		if skip {
			log.Info("skipping url", zap.String("reason", reason))
			return nil, &Error{URL: urlStr, Message: fmt.Sprintf("URL skipped: %s", reason)}
		}

		cached, err := f.store.GetFreshJobPage(ctx, urlStr, f.cacheTTL)
		if err != nil {
			return nil, fmt.Errorf("failed to check cache: %w", err)
		}
		if cached != nil {
			log.Debug("page cache hit", zap.Time("fetched_at", cached.FetchedAt))
			return &CachedResult{
				Result: &Result{
					URL:        cached.URL,
					HTML:       cached.RawHTML,
					StatusCode: cached.HTTPStatus,
				},
				FromCache: true,
				PageID:    cached.ID,
			}, nil
		}
	}

	result, err := URL(ctx, urlStr, f.options)
	if err != nil {
		if f.store != nil && !errors.Is(err, context.Canceled) {
			status := 0
			if result != nil {
				status = result.StatusCode
			}
			if rerr := f.store.RecordFailedFetch(ctx, urlStr, status, err.Error()); rerr != nil {
				log.Warn("failed to record fetch failure", zap.Error(rerr))
			}
		}
		return nil, err
	}

	out := &CachedResult{Result: result}
	if f.store != nil {
		page := &db.JobPage{
			URL:        urlStr,
			RawHTML:    result.HTML,
			HTTPStatus: result.StatusCode,
		}
		if err := f.store.UpsertJobPage(ctx, page); err != nil {
			log.Warn("failed to cache page", zap.Error(err))
		} else {
			out.PageID = page.ID
		}
	}
	log.Debug("page fetched", zap.Int("status", result.StatusCode), zap.Int("bytes", len(result.HTML)))
	return out, nil
}

// InvalidateCache forces a re-fetch on the next request for urlStr.
func (f *CachedFetcher) InvalidateCache(ctx context.Context, urlStr string) error {
	if f.store == nil {
		return nil
	}
	return f.store.InvalidateJobPage(ctx, urlStr)
}
