package ingestion

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/jonathan/resume-analyzer/internal/fetch"
)

var (
	// ErrInvalidURL is returned when URL is malformed
	ErrInvalidURL = errors.New("invalid URL")
	// ErrHTTPRequestFailed is returned when HTTP request fails
	ErrHTTPRequestFailed = errors.New("HTTP request failed")
	// ErrContentExtractionFailed is returned when content extraction fails
	ErrContentExtractionFailed = errors.New("content extraction failed")
	// ErrEmptyContent is returned when no text remains after cleaning
	ErrEmptyContent = errors.New("no job description text found")
)

// Fetcher retrieves a page, possibly from cache. *fetch.CachedFetcher implements it.
type Fetcher interface {
	Fetch(ctx context.Context, urlStr string) (*fetch.CachedResult, error)
}

// Ingester turns job posting URLs into clean job description text.
type Ingester struct {
	fetcher  Fetcher
	renderer fetch.Renderer
	logger   *zap.Logger
}

// NewIngester creates an Ingester. A nil renderer disables the headless browser fallback.
func NewIngester(fetcher Fetcher, renderer fetch.Renderer, log *zap.Logger) *Ingester {
	if fetcher == nil {
		fetcher = fetch.NewCachedFetcher(nil, nil)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Ingester{fetcher: fetcher, renderer: renderer, logger: log}
}

// IngestFromURL fetches a posting, extracts its main text with platform-specific
// selectors, and cleans it. Pages that yield too little text are re-rendered in a
// headless browser when a renderer is configured.
func (i *Ingester) IngestFromURL(ctx context.Context, urlStr string) (string, *Metadata, error) {
	if err := fetch.ValidateURL(urlStr); err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}

	platform := fetch.DetectPlatform(urlStr)
	log := i.logger.With(zap.String("url", urlStr), zap.String("platform", string(platform)))

	result, err := i.fetcher.Fetch(ctx, urlStr)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrHTTPRequestFailed, err)
	}
	log.Debug("fetched job page", zap.Int("bytes", len(result.HTML)), zap.Bool("from_cache", result.FromCache))

	contentSelectors := fetch.PlatformContentSelectors(platform)
	noiseSelectors := fetch.PlatformNoiseSelectors(platform)

	text, err := fetch.ExtractMainText(result.HTML, contentSelectors, noiseSelectors...)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrContentExtractionFailed, err)
	}
	html := result.HTML

	usedBrowser := false
	if i.renderer != nil && fetch.ShouldUseBrowser(text) {
		log.Info("content too short, rendering in browser",
			zap.Int("chars", len(text)),
			zap.Int("min_chars", fetch.MinContentLength),
		)
		rendered, rerr := i.renderer(ctx, urlStr)
		if rerr != nil {
			log.Warn("browser rendering failed, using HTTP content", zap.Error(rerr))
		} else if browserText, xerr := fetch.ExtractMainText(rendered, contentSelectors, noiseSelectors...); xerr != nil {
			log.Warn("browser content extraction failed", zap.Error(xerr))
		} else if len(browserText) > len(text) {
			text, html, usedBrowser = browserText, rendered, true
		}
	}

	cleanedText := CleanText(text)
	if cleanedText == "" {
		return "", nil, ErrEmptyContent
	}
	log.Info("job description ingested", zap.Int("chars", len(cleanedText)), zap.Bool("browser", usedBrowser))

	metadata := NewMetadata(cleanedText, urlStr)
	metadata.Platform = string(platform)
	metadata.Title = fetch.PageTitle(html)
	metadata.FromCache = result.FromCache
	metadata.UsedBrowser = usedBrowser
	return cleanedText, metadata, nil
}
