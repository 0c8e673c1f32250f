package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/resume-analyzer/internal/db"
)

type memoryStore struct {
	pages    map[string]*db.JobPage
	failures map[string]int
	skip     map[string]string
	err      error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		pages:    map[string]*db.JobPage{},
		failures: map[string]int{},
		skip:     map[string]string{},
	}
}

func (m *memoryStore) ShouldSkipURL(_ context.Context, pageURL string) (bool, string, error) {
	if m.err != nil {
		return false, "", m.err
	}
	reason, ok := m.skip[pageURL]
	return ok, reason, nil
}

func (m *memoryStore) GetFreshJobPage(_ context.Context, pageURL string, maxAge time.Duration) (*db.JobPage, error) {
	p, ok := m.pages[pageURL]
	if !ok || !p.IsFresh(maxAge) {
		return nil, nil
	}
	return p, nil
}

func (m *memoryStore) UpsertJobPage(_ context.Context, page *db.JobPage) error {
	page.ID = uuid.New()
	page.FetchedAt = time.Now()
	m.pages[page.URL] = page
	return nil
}

func (m *memoryStore) RecordFailedFetch(_ context.Context, pageURL string, httpStatus int, _ string) error {
	m.failures[pageURL] = httpStatus
	return nil
}

func (m *memoryStore) InvalidateJobPage(_ context.Context, pageURL string) error {
	delete(m.pages, pageURL)
	return nil
}

func countingServer(t *testing.T, status int, body string) (*httptest.Server, *int32) {
	t.Helper()
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server, &hits
}

func TestCachedFetcher_CachesSuccessfulFetch(t *testing.T) {
	server, hits := countingServer(t, http.StatusOK, "<html><body>job</body></html>")
	store := newMemoryStore()
	f := NewCachedFetcher(store, nil)

	first, err := f.Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	assert.False(t, first.FromCache)
	assert.NotEqual(t, uuid.Nil, first.PageID)

	second, err := f.Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, first.HTML, second.HTML)
	assert.Equal(t, int32(1), atomic.LoadInt32(hits))
}

func TestCachedFetcher_RecordsFailure(t *testing.T) {
	server, _ := countingServer(t, http.StatusNotFound, "gone")
	store := newMemoryStore()
	f := NewCachedFetcher(store, nil)

	_, err := f.Fetch(context.Background(), server.URL)
	var fetchErr *Error
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, http.StatusNotFound, store.failures[server.URL])
}

func TestCachedFetcher_SkipsBlockedURL(t *testing.T) {
	server, hits := countingServer(t, http.StatusOK, "ok")
	store := newMemoryStore()
	store.skip[server.URL] = "HTTP status 404"
	f := NewCachedFetcher(store, nil)

	_, err := f.Fetch(context.Background(), server.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "URL skipped: HTTP status 404")
	assert.Equal(t, int32(0), atomic.LoadInt32(hits))
}

func TestCachedFetcher_StoreError(t *testing.T) {
	store := newMemoryStore()
	store.err = errors.New("db down")
	f := NewCachedFetcher(store, nil)

	_, err := f.Fetch(context.Background(), "https://example.com/job")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
}

func TestCachedFetcher_SkipCache(t *testing.T) {
	server, hits := countingServer(t, http.StatusOK, "fresh")
	store := newMemoryStore()
	f := NewCachedFetcher(store, &CachedFetcherConfig{SkipCache: true})

	_, err := f.Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	_, err = f.Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(hits))
}

func TestCachedFetcher_NilStore(t *testing.T) {
	server, hits := countingServer(t, http.StatusOK, "plain")
	f := NewCachedFetcher(nil, nil)

	result, err := f.Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "plain", result.HTML)
	assert.False(t, result.FromCache)
	assert.Equal(t, int32(1), atomic.LoadInt32(hits))
	assert.NoError(t, f.InvalidateCache(context.Background(), server.URL))
}

func TestCachedFetcher_InvalidateCache(t *testing.T) {
	server, hits := countingServer(t, http.StatusOK, "page")
	store := newMemoryStore()
	f := NewCachedFetcher(store, nil)

	_, err := f.Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	require.NoError(t, f.InvalidateCache(context.Background(), server.URL))
	_, err = f.Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(hits))
}

func TestNewCachedFetcher_Defaults(t *testing.T) {
	f := NewCachedFetcher(nil, &CachedFetcherConfig{})
	assert.Equal(t, db.DefaultPageCacheTTL, f.cacheTTL)
	assert.NotNil(t, f.options)
	assert.NotNil(t, f.logger)
}

var _ PageStore = (*db.DB)(nil)
