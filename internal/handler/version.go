package handler

import (
	"context"
	"net/http"
)

// ReleaseLookup resolves the latest product release.
type ReleaseLookup interface {
	Latest(ctx context.Context) string
	DownloadURLs(tag string) map[string]string
}

type versionResponse struct {
	Version   string            `json:"version"`
	Downloads map[string]string `json:"downloads"`
}

type VersionHandler struct {
	releases ReleaseLookup
}

func NewVersionHandler(releases ReleaseLookup) *VersionHandler {
	return &VersionHandler{releases: releases}
}

func (h *VersionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	tag := h.releases.Latest(r.Context())
	w.Header().Set("Cache-Control", "public, max-age=300")
	encodeJSON(w, http.StatusOK, versionResponse{Version: tag, Downloads: h.releases.DownloadURLs(tag)})
}
