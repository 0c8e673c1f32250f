package ingestion

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/resume-analyzer/internal/fetch"
)

// staticFetcher serves fixed HTML for any URL.
type staticFetcher struct {
	html  string
	err   error
	calls int
}

func (f *staticFetcher) Fetch(_ context.Context, urlStr string) (*fetch.CachedResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &fetch.CachedResult{Result: &fetch.Result{URL: urlStr, HTML: f.html, StatusCode: http.StatusOK}}, nil
}

func TestIngestFromURL_InvalidURL(t *testing.T) {
	tests := []struct {
		name   string
		urlStr string
	}{
		{"empty URL", ""},
		{"malformed URL", "not-a-url"},
		{"no scheme", "example.com"},
		{"no host", "http://"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &staticFetcher{}
			_, _, err := NewIngester(f, nil, nil).IngestFromURL(context.Background(), tt.urlStr)
			assert.ErrorIs(t, err, ErrInvalidURL)
			assert.Zero(t, f.calls)
		})
	}
}

func TestIngestFromURL_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		html := `<!DOCTYPE html>
<html>
<body>
<nav>Nav</nav>
<main>
<h1>Job Title</h1>
<p>Job description</p>
</main>
<footer>Footer</footer>
</body>
</html>`
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(html))
	}))
	defer server.Close()

	cleanedText, metadata, err := NewIngester(nil, nil, nil).IngestFromURL(context.Background(), server.URL)
	require.NoError(t, err)

	assert.Equal(t, server.URL, metadata.URL)
	assert.Equal(t, string(fetch.PlatformUnknown), metadata.Platform)
	assert.Equal(t, ComputeHash(cleanedText), metadata.Hash)
	assert.Contains(t, cleanedText, "Job Title")
	assert.Contains(t, cleanedText, "Job description")
	assert.NotContains(t, cleanedText, "Nav")
	assert.NotContains(t, cleanedText, "Footer")
}

func TestIngestFromURL_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, _, err := NewIngester(nil, nil, nil).IngestFromURL(context.Background(), server.URL)
	assert.ErrorIs(t, err, ErrHTTPRequestFailed)

	var fetchErr *fetch.Error
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, http.StatusNotFound, fetchErr.StatusCode)
}

func TestIngestFromURL_FetcherError(t *testing.T) {
	f := &staticFetcher{err: errors.New("connection refused")}
	_, _, err := NewIngester(f, nil, nil).IngestFromURL(context.Background(), "https://example.com/job")
	assert.ErrorIs(t, err, ErrHTTPRequestFailed)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestIngestFromURL_EmptyPage(t *testing.T) {
	f := &staticFetcher{html: "<html><body><nav>only nav</nav></body></html>"}
	_, _, err := NewIngester(f, nil, nil).IngestFromURL(context.Background(), "https://example.com/job")
	assert.ErrorIs(t, err, ErrEmptyContent)
}

func TestIngestFromURL_GreenhouseFixture(t *testing.T) {
	htmlContent, err := os.ReadFile("testdata/greenhouse_job.html")
	require.NoError(t, err)

	f := &staticFetcher{html: string(htmlContent)}
	cleanedText, metadata, err := NewIngester(f, nil, nil).
		IngestFromURL(context.Background(), "https://boards.greenhouse.io/acme/jobs/123")
	require.NoError(t, err)

	assert.Equal(t, string(fetch.PlatformGreenhouse), metadata.Platform)
	assert.Equal(t, "Senior Software Engineer - Acme", metadata.Title)
	assert.Contains(t, cleanedText, "Senior Software Engineer")
	assert.Contains(t, cleanedText, "About the Role")
	assert.Contains(t, cleanedText, "5+ years of Go")
	assert.NotContains(t, cleanedText, "Apply for this job")
	assert.NotContains(t, cleanedText, "equal opportunity")
	assert.NotContains(t, cleanedText, "Jobs at Acme")
}

func TestIngestFromURL_BrowserFallback(t *testing.T) {
	f := &staticFetcher{html: `<html><body><div id="root"></div><noscript>enable js</noscript><p>Loading</p></body></html>`}
	body := strings.Repeat("Design and run distributed systems in Go. ", 20)
	rendered := 0
	renderer := func(_ context.Context, url string) (string, error) {
		rendered++
		return "<html><head><title>Rendered</title></head><body><main><p>" + body + "</p></main></body></html>", nil
	}

	text, metadata, err := NewIngester(f, renderer, nil).IngestFromURL(context.Background(), "https://jobs.ashbyhq.com/acme/1")
	require.NoError(t, err)
	assert.Equal(t, 1, rendered)
	assert.True(t, metadata.UsedBrowser)
	assert.Equal(t, "Rendered", metadata.Title)
	assert.Contains(t, text, "distributed systems")
}

func TestIngestFromURL_BrowserFailureKeepsHTTPContent(t *testing.T) {
	f := &staticFetcher{html: `<html><body><main><p>Short but real posting</p></main></body></html>`}
	renderer := func(context.Context, string) (string, error) {
		return "", errors.New("chrome not installed")
	}

	text, metadata, err := NewIngester(f, renderer, nil).IngestFromURL(context.Background(), "https://example.com/job")
	require.NoError(t, err)
	assert.False(t, metadata.UsedBrowser)
	assert.Equal(t, "Short but real posting", text)
}

func TestIngestFromURL_LongContentSkipsBrowser(t *testing.T) {
	f := &staticFetcher{html: "<html><body><main><p>" + strings.Repeat("word ", 200) + "</p></main></body></html>"}
	renderer := func(context.Context, string) (string, error) {
		t.Fatal("renderer should not be called")
		return "", nil
	}

	_, metadata, err := NewIngester(f, renderer, nil).IngestFromURL(context.Background(), "https://example.com/job")
	require.NoError(t, err)
	assert.False(t, metadata.UsedBrowser)
}
