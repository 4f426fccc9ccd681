package release

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func testOptions(url string) Options {
	return Options{
		APIURL:     url,
		Repository: "LetPeopleWork/Lighthouse",
		Fallback:   "v25.7.27.1729",
		CacheTTL:   time.Minute,
	}
}

func TestLatestReturnsTagAndCaches(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/repos/LetPeopleWork/Lighthouse/releases/latest", r.URL.Path)
		_, _ = w.Write([]byte(`{"tag_name":"v26.10.1.1200"}`))
	}))
	defer srv.Close()

	c := NewClient(testOptions(srv.URL), srv.Client())
	assert.Equal(t, "v26.10.1.1200", c.Latest(context.Background()))
	assert.Equal(t, "v26.10.1.1200", c.Latest(context.Background()))
	assert.Equal(t, int32(1), calls.Load())
}

func TestLatestRefreshesAfterTTL(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"tag_name":"v26.10.1.1200"}`))
	}))
	defer srv.Close()

	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	c := NewClient(testOptions(srv.URL), srv.Client())
	c.now = func() time.Time { return now }

	c.Latest(context.Background())
	now = now.Add(2 * time.Minute)
	c.Latest(context.Background())
	assert.Equal(t, int32(2), calls.Load())
}

func TestLatestFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c := NewClient(testOptions(srv.URL), srv.Client())
	assert.Equal(t, "v25.7.27.1729", c.Latest(context.Background()))
}

func TestLatestCachesFallbackBriefly(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	c := NewClient(testOptions(srv.URL), srv.Client())
	c.now = func() time.Time { return now }

	assert.Equal(t, "v25.7.27.1729", c.Latest(context.Background()))
	assert.Equal(t, "v25.7.27.1729", c.Latest(context.Background()))
	assert.Equal(t, int32(1), calls.Load())

	now = now.Add(failureTTL + time.Second)
	c.Latest(context.Background())
	assert.Equal(t, int32(2), calls.Load())
}

func TestLatestIgnoresCallerCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"tag_name":"v26.10.1.1200"}`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewClient(testOptions(srv.URL), srv.Client())
	assert.Equal(t, "v26.10.1.1200", c.Latest(ctx))
}

func TestLatestFallsBackOnEmptyTag(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewClient(testOptions(srv.URL), srv.Client())
	assert.Equal(t, "v25.7.27.1729", c.Latest(context.Background()))
}

func TestDownloadURLs(t *testing.T) {
	c := NewClient(testOptions("https://api.github.com"), nil)
	urls := c.DownloadURLs("v25.7.27.1729")
	assert.Equal(t, map[string]string{
		"windows": "https://github.com/LetPeopleWork/Lighthouse/releases/download/v25.7.27.1729/Lighthouse-win-x64.zip",
		"macos":   "https://github.com/LetPeopleWork/Lighthouse/releases/download/v25.7.27.1729/Lighthouse-osx-x64.zip",
		"linux":   "https://github.com/LetPeopleWork/Lighthouse/releases/download/v25.7.27.1729/Lighthouse-linux-x64.zip",
	}, urls)
}
