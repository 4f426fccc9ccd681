package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubReleases struct{ tag string }

func (s stubReleases) Latest(context.Context) string { return s.tag }

func (s stubReleases) DownloadURLs(tag string) map[string]string {
	return map[string]string{"linux": "https://example.com/" + tag + "/Lighthouse-linux-x64.zip"}
}

func TestVersionHandler(t *testing.T) {
	rr := httptest.NewRecorder()
	NewVersionHandler(stubReleases{tag: "v25.8.1.1200"}).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/version", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.Equal(t, "public, max-age=300", rr.Header().Get("Cache-Control"))

	var body versionResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "v25.8.1.1200", body.Version)
	assert.Equal(t, "https://example.com/v25.8.1.1200/Lighthouse-linux-x64.zip", body.Downloads["linux"])
}
